package logintokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kuzkabot/sellerbot/internal/common"
	"github.com/kuzkabot/sellerbot/internal/dbx"
)

// PostgresStore persists login tokens in the login_tokens table. The
// first-consume transition is a single conditional UPDATE, so concurrent
// redemptions serialize on the row: exactly one caller flips consumed,
// the rest fall into the grace path.
type PostgresStore struct {
	db dbx.DBTX
}

func NewPostgresStore(db dbx.DBTX) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Issue(ctx context.Context, telegramID int64) (string, error) {
	token, err := common.MakeRandHexString(32)
	if err != nil {
		return "", err
	}

	query := `
		INSERT INTO login_tokens (token, telegram_id, issued_at, expires_at)
		VALUES ($1, $2, now(), now() + make_interval(secs => $3))
	`
	if _, err := s.db.ExecContext(ctx, query, token, telegramID, TokenTTL.Seconds()); err != nil {
		return "", fmt.Errorf("db error: %w", err)
	}
	return token, nil
}

func (s *PostgresStore) Redeem(ctx context.Context, token string) (int64, error) {

	// first-consume: only succeeds for an unconsumed, unexpired token
	query := `
		UPDATE login_tokens
		SET consumed = true, consumed_at = now()
		WHERE token = $1 AND NOT consumed AND expires_at > now()
		RETURNING telegram_id
	`
	var telegramID int64
	err := s.db.QueryRowContext(ctx, query, token).Scan(&telegramID)
	if err == nil {
		return telegramID, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("db error: %w", err)
	}

	// grace path: already consumed less than GraceWindow ago and not expired
	query = `
		SELECT telegram_id
		FROM login_tokens
		WHERE token = $1
		  AND consumed
		  AND consumed_at > now() - make_interval(secs => $2)
		  AND expires_at > now()
	`
	err = s.db.QueryRowContext(ctx, query, token, GraceWindow.Seconds()).Scan(&telegramID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrTokenExpiredOrInvalid
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return telegramID, nil
}

// DeleteDead removes tokens that can never be redeemed again. Called
// opportunistically; correctness never depends on it.
func (s *PostgresStore) DeleteDead(ctx context.Context) error {
	query := `
		DELETE FROM login_tokens
		WHERE expires_at <= now()
		   OR (consumed AND consumed_at <= now() - make_interval(secs => $1))
	`
	if _, err := s.db.ExecContext(ctx, query, GraceWindow.Seconds()); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

var _ Store = (*PostgresStore)(nil)
