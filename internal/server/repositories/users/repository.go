package users

import (
	"context"

	"github.com/kuzkabot/sellerbot/internal/server/models"
)

type Repository interface {
	// GetOrCreate returns the user with the given Telegram id, creating it
	// with role "user" on first login, and stamps last_login_at.
	GetOrCreate(ctx context.Context, telegramID int64) (*models.User, error)

	// GetByTelegramID returns the user or common.ErrorNotFound.
	GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error)
}
