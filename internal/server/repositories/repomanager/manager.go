package repomanager

import (
	"context"
	"database/sql"

	"github.com/kuzkabot/sellerbot/internal/dbx"
	"github.com/kuzkabot/sellerbot/internal/server/repositories/credentials"
	"github.com/kuzkabot/sellerbot/internal/server/repositories/logintokens"
	"github.com/kuzkabot/sellerbot/internal/server/repositories/users"
)

// RepositoryManager owns the database handle and vends repositories bound
// to any DBTX, so callers can run several repository operations inside one
// transaction by passing the same *sql.Tx to each accessor.
type RepositoryManager interface {
	RunMigrations(context.Context) error
	Conn() *sql.DB
	Close() error
	Users(db dbx.DBTX) users.Repository
	Credentials(db dbx.DBTX) credentials.Repository
	LoginTokens(db dbx.DBTX) logintokens.Store
}
