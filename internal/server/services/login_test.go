package services

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/kuzkabot/sellerbot/internal/common"
	"github.com/kuzkabot/sellerbot/internal/dbx"
	"github.com/kuzkabot/sellerbot/internal/server/auth"
	"github.com/kuzkabot/sellerbot/internal/server/models"
	"github.com/kuzkabot/sellerbot/internal/server/repositories/credentials"
	"github.com/kuzkabot/sellerbot/internal/server/repositories/logintokens"
	"github.com/kuzkabot/sellerbot/internal/server/repositories/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- fakes ----

type fakeUserRepo struct {
	users   map[int64]*models.User
	lastErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int64]*models.User)}
}

func (f *fakeUserRepo) GetOrCreate(ctx context.Context, telegramID int64) (*models.User, error) {
	if f.lastErr != nil {
		return nil, f.lastErr
	}
	u, ok := f.users[telegramID]
	if !ok {
		u = &models.User{ID: "u-1", TelegramID: telegramID, Role: "user"}
		f.users[telegramID] = u
	}
	u.LastLoginAt = time.Now()
	return u, nil
}

func (f *fakeUserRepo) GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	if f.lastErr != nil {
		return nil, f.lastErr
	}
	u, ok := f.users[telegramID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return u, nil
}

// fakeRepoManager hands out in-memory fakes regardless of the DBTX, so the
// transaction handling can be observed through sqlmock alone.
type fakeRepoManager struct {
	tokens logintokens.Store
	users  *fakeUserRepo
}

func (f *fakeRepoManager) RunMigrations(context.Context) error         { return nil }
func (f *fakeRepoManager) Conn() *sql.DB                               { return nil }
func (f *fakeRepoManager) Close() error                                { return nil }
func (f *fakeRepoManager) Users(dbx.DBTX) users.Repository             { return f.users }
func (f *fakeRepoManager) Credentials(dbx.DBTX) credentials.Repository { return nil }
func (f *fakeRepoManager) LoginTokens(dbx.DBTX) logintokens.Store      { return f.tokens }

// ---- tests ----

func newLoginService(t *testing.T) (*LoginService, *fakeUserRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := newFakeUserRepo()
	rm := &fakeRepoManager{tokens: logintokens.NewMemoryStore(), users: repo}
	binder := auth.NewBinder([]byte("test-secret"), time.Hour)
	svc := NewLoginService(db, rm, binder, "https://bot.example.com/")
	return svc, repo, mock
}

func issueToken(t *testing.T, svc *LoginService, telegramID int64) string {
	t.Helper()
	link, err := svc.IssueLoginToken(context.Background(), telegramID)
	require.NoError(t, err)
	u, err := url.Parse(link)
	require.NoError(t, err)
	return u.Query().Get("token")
}

func TestLoginService_IssueLoginToken_BuildsURL(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newLoginService(t)

	link, err := svc.IssueLoginToken(ctx, 42)
	require.NoError(t, err)

	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "bot.example.com", u.Host)
	assert.Equal(t, "/login/tg", u.Path)
	assert.Len(t, u.Query().Get("token"), 64)
}

func TestLoginService_RedeemLoginToken_CreatesUserAndSession(t *testing.T) {
	ctx := context.Background()
	svc, repo, mock := newLoginService(t)
	token := issueToken(t, svc, 42)

	mock.ExpectBegin()
	mock.ExpectCommit()

	session, user, err := svc.RedeemLoginToken(ctx, token)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, int64(42), user.TelegramID)
	assert.Equal(t, "user", user.Role)
	assert.Contains(t, repo.users, int64(42))
	assert.NoError(t, mock.ExpectationsWereMet())

	id, err := svc.VerifySession(session)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestLoginService_RedeemLoginToken_GraceReentry(t *testing.T) {
	ctx := context.Background()
	svc, _, mock := newLoginService(t)
	token := issueToken(t, svc, 7)

	mock.ExpectBegin()
	mock.ExpectCommit()
	s1, _, err := svc.RedeemLoginToken(ctx, token)
	require.NoError(t, err)

	// double-clicked link: equivalent session for the same identity
	mock.ExpectBegin()
	mock.ExpectCommit()
	s2, user, err := svc.RedeemLoginToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), user.TelegramID)

	id1, err := svc.VerifySession(s1)
	require.NoError(t, err)
	id2, err := svc.VerifySession(s2)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)
}

func TestLoginService_RedeemLoginToken_InvalidToken(t *testing.T) {
	svc, repo, mock := newLoginService(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, _, err := svc.RedeemLoginToken(context.Background(), "bogus")
	assert.ErrorIs(t, err, common.ErrTokenExpiredOrInvalid)
	assert.Empty(t, repo.users, "no user row for a failed redemption")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginService_RedeemLoginToken_UpsertFailureRollsBack(t *testing.T) {
	svc, repo, mock := newLoginService(t)
	token := issueToken(t, svc, 9)
	repo.lastErr = errors.New("db down")

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, _, err := svc.RedeemLoginToken(context.Background(), token)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginService_VerifySession_Garbage(t *testing.T) {
	svc, _, _ := newLoginService(t)
	_, err := svc.VerifySession("garbage")
	assert.ErrorIs(t, err, common.ErrSessionInvalidOrExpired)
}
