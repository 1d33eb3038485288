// Package services implements the application flows on top of the
// repositories: the one-time-token login bridge and credential storage.
package services

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	"github.com/kuzkabot/sellerbot/internal/dbx"
	"github.com/kuzkabot/sellerbot/internal/server/auth"
	"github.com/kuzkabot/sellerbot/internal/server/models"
	"github.com/kuzkabot/sellerbot/internal/server/repositories/repomanager"
)

// LoginService drives the OTT protocol: the bot asks it for login links,
// the web layer redeems the token and gets back a bound session.
type LoginService struct {
	db            *sql.DB
	repos         repomanager.RepositoryManager
	binder        *auth.Binder
	publicBaseURL string
}

func NewLoginService(db *sql.DB, repos repomanager.RepositoryManager, binder *auth.Binder, publicBaseURL string) *LoginService {
	return &LoginService{
		db:            db,
		repos:         repos,
		binder:        binder,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

// IssueLoginToken creates a one-time token for the Telegram identity and
// returns the login URL the bot sends to the user. The link stays valid
// for logintokens.TokenTTL.
func (s *LoginService) IssueLoginToken(ctx context.Context, telegramID int64) (string, error) {
	token, err := s.repos.LoginTokens(s.db).Issue(ctx, telegramID)
	if err != nil {
		return "", fmt.Errorf("issuing login token: %w", err)
	}
	return s.publicBaseURL + "/login/tg?token=" + url.QueryEscape(token), nil
}

// RedeemLoginToken redeems the token and upserts the principal row (first
// login creates the user) in one transaction, so a consumed token never
// points at a user row that failed to materialize. Returns the signed
// session value for the cookie and the user.
//
// A repeat call within the grace window after the first redemption yields
// an equivalent session for the same identity; anything else fails with
// common.ErrTokenExpiredOrInvalid.
func (s *LoginService) RedeemLoginToken(ctx context.Context, token string) (string, *models.User, error) {

	var user *models.User
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		telegramID, err := s.repos.LoginTokens(tx).Redeem(ctx, token)
		if err != nil {
			return err
		}
		user, err = s.repos.Users(tx).GetOrCreate(ctx, telegramID)
		if err != nil {
			return fmt.Errorf("upserting user: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", nil, err
	}

	session, err := s.binder.Bind(user.TelegramID)
	if err != nil {
		return "", nil, fmt.Errorf("binding session: %w", err)
	}

	return session, user, nil
}

// VerifySession validates a session cookie value and returns the Telegram
// identity it is bound to.
func (s *LoginService) VerifySession(value string) (int64, error) {
	return s.binder.Verify(value)
}
