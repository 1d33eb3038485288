package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kuzkabot/sellerbot/internal/common"
	"github.com/kuzkabot/sellerbot/internal/dbx"
	"github.com/kuzkabot/sellerbot/internal/server/models"
)

// PostgresRepository implements credential storage over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Upsert(ctx context.Context, cred *models.Credential) error {

	query := `
		INSERT INTO user_credentials (user_id, ciphertext, salt, key_version)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id)
		DO UPDATE SET ciphertext = $2, salt = $3, key_version = $4, updated_at = now()
	`

	if _, err := r.db.ExecContext(ctx, query,
		cred.UserID, cred.Ciphertext, cred.Salt, cred.KeyVersion); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByUserID(ctx context.Context, userID string) (*models.Credential, error) {

	query := `
		SELECT user_id, ciphertext, salt, key_version, created_at, updated_at
		FROM user_credentials
		WHERE user_id = $1
	`

	cred := &models.Credential{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&cred.UserID, &cred.Ciphertext, &cred.Salt, &cred.KeyVersion,
		&cred.CreatedAt, &cred.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return cred, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, userID string) error {
	query := `
		DELETE FROM user_credentials
		WHERE user_id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

var _ Repository = (*PostgresRepository)(nil)
