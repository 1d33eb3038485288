// Package credentials provides storage for envelope-encrypted WB API keys,
// one row per user.
package credentials

import (
	"context"

	"github.com/kuzkabot/sellerbot/internal/server/models"
)

type Repository interface {
	// Upsert stores or replaces the user's encrypted credential.
	Upsert(ctx context.Context, cred *models.Credential) error

	// GetByUserID returns the credential or common.ErrorNotFound.
	GetByUserID(ctx context.Context, userID string) (*models.Credential, error)

	// Delete removes the user's credential. Deleting a missing row is not
	// an error.
	Delete(ctx context.Context, userID string) error
}
