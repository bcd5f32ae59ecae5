// Package testutil provides fakes for exercising money-moving services
// without a database.
package testutil

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// NoopTx satisfies pgx.Tx for tests that compose services inside a
// transaction; only Commit/Rollback are expected to be called.
type NoopTx struct{}

func (NoopTx) Begin(context.Context) (pgx.Tx, error) { return NoopTx{}, nil }
func (NoopTx) Commit(context.Context) error          { return nil }
func (NoopTx) Rollback(context.Context) error        { return nil }
func (NoopTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (NoopTx) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }
func (NoopTx) QueryRow(context.Context, string, ...any) pgx.Row        { return nil }
func (NoopTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (NoopTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (NoopTx) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }
func (NoopTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (NoopTx) Conn() *pgx.Conn { return nil }
