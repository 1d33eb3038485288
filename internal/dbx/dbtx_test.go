package dbx

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder collects the transaction lifecycle events seen by the fake
// driver so tests can assert commit/rollback behavior without a real DB.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(e string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

var rec = &recorder{}

type fakeDriver struct{}

func (fakeDriver) Open(string) (driver.Conn, error) { return &fakeConn{}, nil }

type fakeConn struct{}

func (*fakeConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("not implemented") }
func (*fakeConn) Close() error                        { return nil }
func (*fakeConn) Begin() (driver.Tx, error)           { return &fakeTx{}, nil }

func (c *fakeConn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
	rec.add("begin")
	return &fakeTx{}, nil
}

func (c *fakeConn) ExecContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Result, error) {
	rec.add("exec:" + query)
	return driver.RowsAffected(1), nil
}

type fakeTx struct{}

func (*fakeTx) Commit() error   { rec.add("commit"); return nil }
func (*fakeTx) Rollback() error { rec.add("rollback"); return nil }

var registerOnce sync.Once

func fakeDB(t *testing.T) *sql.DB {
	t.Helper()
	registerOnce.Do(func() { sql.Register("dbxfake", fakeDriver{}) })
	rec.mu.Lock()
	rec.events = nil
	rec.mu.Unlock()

	db, err := sql.Open("dbxfake", "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestWithTx_CommitsOnSuccess(t *testing.T) {
	db := fakeDB(t)

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		_, err := tx.ExecContext(ctx, "UPDATE t SET v = 1")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"begin", "exec:UPDATE t SET v = 1", "commit"}, rec.list())
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	db := fakeDB(t)
	boom := errors.New("boom")

	err := WithTx(context.Background(), db, nil, func(context.Context, DBTX) error {
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"begin", "rollback"}, rec.list())
}

func TestWithTx_RollsBackAndRethrowsOnPanic(t *testing.T) {
	db := fakeDB(t)

	assert.PanicsWithValue(t, "kaboom", func() {
		_ = WithTx(context.Background(), db, nil, func(context.Context, DBTX) error {
			panic("kaboom")
		})
	})
	assert.Equal(t, []string{"begin", "rollback"}, rec.list())
}

func TestDBTX_SatisfiedByDBAndTx(t *testing.T) {
	var _ DBTX = (*sql.DB)(nil)
	var _ DBTX = (*sql.Tx)(nil)
}
