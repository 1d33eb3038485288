package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/kuzkabot/sellerbot/internal/common"
	"github.com/kuzkabot/sellerbot/internal/dbx"
	"github.com/kuzkabot/sellerbot/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetOrCreate(ctx context.Context, telegramID int64) (*models.User, error) {

	// the generated id only takes effect on first login; on conflict the
	// existing row keeps its id
	query := `
		INSERT INTO users (id, telegram_id, role, last_login_at)
		VALUES ($1, $2, 'user', now())
		ON CONFLICT (telegram_id)
		DO UPDATE SET last_login_at = now()
		RETURNING id, telegram_id, role, created_at, last_login_at
	`

	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, uuid.NewString(), telegramID).Scan(
		&user.ID, &user.TelegramID, &user.Role, &user.CreatedAt, &user.LastLoginAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {

	query := `
		SELECT id, telegram_id, role, created_at, last_login_at
		FROM users
		WHERE telegram_id = $1
	`

	user := &models.User{}
	var lastLogin sql.NullTime
	err := r.db.QueryRowContext(ctx, query, telegramID).Scan(
		&user.ID, &user.TelegramID, &user.Role, &user.CreatedAt, &lastLogin)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if lastLogin.Valid {
		user.LastLoginAt = lastLogin.Time
	}

	return user, nil
}

var _ Repository = (*PostgresRepository)(nil)
