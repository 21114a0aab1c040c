package persistence

import (
	"context"
	"errors"
	"testing"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/zenGate-Global/palmyra-sites/platform/go/tenant"
)

// fakeTx satisfies pgx.Tx and records the statements it receives.
type fakeTx struct {
	stmts     []string
	args      [][]any
	committed bool
	rolled    bool
}

func (f *fakeTx) record(sql string, args []any) {
	f.stmts = append(f.stmts, sql)
	f.args = append(f.args, args)
}

func (f *fakeTx) Begin(ctx context.Context) (pgx.Tx, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeTx) Commit(ctx context.Context) error   { f.committed = true; return nil }
func (f *fakeTx) Rollback(ctx context.Context) error { f.rolled = true; return nil }
func (f *fakeTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, errors.New("not implemented")
}
func (f *fakeTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (f *fakeTx) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }
func (f *fakeTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return &pgconn.StatementDescription{}, errors.New("not implemented")
}
func (f *fakeTx) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.record(sql, args)
	return nil, errors.New("not implemented")
}
func (f *fakeTx) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.record(sql, args)
	return errRow{err: pgx.ErrNoRows}
}
func (f *fakeTx) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.record(sql, args)
	return pgconn.NewCommandTag("UPDATE 1"), nil
}
func (f *fakeTx) Conn() *pgx.Conn { return nil }

// fakePool returns a preconstructed transaction.
type fakePool struct{ tx *fakeTx }

func (p *fakePool) BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error) {
	return p.tx, nil
}

type noteRecord struct {
	tenantID tenant.ID
	body     string
}

func (n *noteRecord) Table() string            { return "notes" }
func (n *noteRecord) Columns() []string        { return []string{"body"} }
func (n *noteRecord) Values() []any            { return []any{n.body} }
func (n *noteRecord) TenantID() tenant.ID      { return n.tenantID }
func (n *noteRecord) SetTenantID(id tenant.ID) { n.tenantID = id }

var (
	tenantA = tenant.Resolved("tenant-a", tenant.SourceHost)
	tenantB = tenant.Resolved("tenant-b", tenant.SourceHost)
)

func TestScopeSelectAlwaysFilters(t *testing.T) {
	scope := Attach(&fakeTx{}, tenantA)

	sql, args, err := scope.Select("notes", "id", "body").Where(sq.Eq{"id": 7}).ToSql()
	require.NoError(t, err)
	require.Equal(t, "SELECT id, body FROM notes WHERE tenant_id = $1 AND id = $2", sql)
	require.Equal(t, []any{"tenant-a", 7}, args)
}

func TestScopeSelectUnresolvedMatchesNothing(t *testing.T) {
	scope := Attach(&fakeTx{}, tenant.Unresolved())

	sql, args, err := scope.Select("notes", "id").ToSql()
	require.NoError(t, err)
	require.Equal(t, "SELECT id FROM notes WHERE 1=0", sql)
	require.Empty(t, args)
}

func TestScopeUpdateAndDeleteFilter(t *testing.T) {
	scope := Attach(&fakeTx{}, tenantB)

	sql, args, err := scope.Update("notes").Set("body", "x").Where(sq.Eq{"id": 1}).ToSql()
	require.NoError(t, err)
	require.Equal(t, "UPDATE notes SET body = $1 WHERE tenant_id = $2 AND id = $3", sql)
	require.Equal(t, []any{"x", "tenant-b", 1}, args)

	sql, args, err = scope.Delete("notes").Where(sq.Eq{"id": 1}).ToSql()
	require.NoError(t, err)
	require.Equal(t, "DELETE FROM notes WHERE tenant_id = $1 AND id = $2", sql)
	require.Equal(t, []any{"tenant-b", 1}, args)
}

func TestScopeInsertStampsTenant(t *testing.T) {
	// Built before any tenant is known; stamped when it reaches the scope.
	rec := &noteRecord{body: "hello"}
	scope := Attach(&fakeTx{}, tenantA)

	ins, err := scope.Insert(rec)
	require.NoError(t, err)
	require.Equal(t, tenant.ID("tenant-a"), rec.TenantID())

	sql, args, err := ins.ToSql()
	require.NoError(t, err)
	require.Equal(t, "INSERT INTO notes (tenant_id,body) VALUES ($1,$2)", sql)
	require.Equal(t, []any{"tenant-a", "hello"}, args)
}

func TestScopeInsertRejectsForeignRecord(t *testing.T) {
	scope := Attach(&fakeTx{}, tenantA)

	_, err := scope.Insert(&noteRecord{tenantID: "tenant-b", body: "x"})
	require.ErrorIs(t, err, ErrCrossTenantWrite)

	_, err = scope.Insert(&noteRecord{tenantID: "tenant-a", body: "x"})
	require.NoError(t, err)
}

func TestScopeInsertUnresolvedFails(t *testing.T) {
	rec := &noteRecord{body: "x"}
	_, err := Attach(&fakeTx{}, tenant.Unresolved()).Insert(rec)
	require.ErrorIs(t, err, ErrTenantUnresolved)
	require.Empty(t, rec.TenantID())
}

func TestScopeExecUnresolvedFails(t *testing.T) {
	ftx := &fakeTx{}
	scope := Attach(ftx, tenant.Unresolved())

	_, err := scope.Exec(context.Background(), scope.Delete("notes"))
	require.ErrorIs(t, err, ErrTenantUnresolved)
	require.Empty(t, ftx.stmts)
}

func TestScopeExecRunsBuiltStatement(t *testing.T) {
	ftx := &fakeTx{}
	scope := Attach(ftx, tenantA)

	n, err := scope.Exec(context.Background(), scope.Update("notes").Set("body", "y"))
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
	require.Equal(t, []string{"UPDATE notes SET body = $1 WHERE tenant_id = $2"}, ftx.stmts)
}

// rawSelect wraps a scoped select but renders its own, unfiltered SQL.
type rawSelect struct {
	SelectStmt
}

func (rawSelect) ToSql() (string, []any, error) { return "SELECT id FROM notes", nil, nil }

func TestScopeRunsOnlyItsOwnStatements(t *testing.T) {
	ftx := &fakeTx{}
	scope := Attach(ftx, tenantA)
	ctx := context.Background()

	smuggled := rawSelect{SelectStmt: scope.Select("notes", "id")}

	_, err := scope.Query(ctx, smuggled)
	require.ErrorIs(t, err, ErrUnscopedStatement)
	require.ErrorIs(t, scope.QueryRow(ctx, smuggled).Scan(), ErrUnscopedStatement)
	_, err = scope.Exec(ctx, smuggled)
	require.ErrorIs(t, err, ErrUnscopedStatement)
	require.Empty(t, ftx.stmts)

	err = scope.QueryRow(ctx, scope.Select("notes", "id")).Scan()
	require.ErrorIs(t, err, pgx.ErrNoRows)
	require.Equal(t, []string{"SELECT id FROM notes WHERE tenant_id = $1"}, ftx.stmts)
}

func TestGuardWithTenantCommitsOnSuccess(t *testing.T) {
	ftx := &fakeTx{}
	guard := &Guard{pool: &fakePool{tx: ftx}}

	var seen tenant.Context
	err := guard.WithTenant(context.Background(), tenantA, func(scope *Scope) error {
		seen = scope.Tenant()
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, tenantA, seen)
	require.True(t, ftx.committed)
}

func TestGuardWithTenantRollsBackOnError(t *testing.T) {
	ftx := &fakeTx{}
	guard := &Guard{pool: &fakePool{tx: ftx}}

	boom := errors.New("boom")
	err := guard.WithTenant(context.Background(), tenantA, func(*Scope) error { return boom })
	require.ErrorIs(t, err, boom)
	require.False(t, ftx.committed)
	require.True(t, ftx.rolled)
}

func TestGuardWithRegistry(t *testing.T) {
	ftx := &fakeTx{}
	guard := &Guard{pool: &fakePool{tx: ftx}}

	err := guard.WithRegistry(context.Background(), func(tx pgx.Tx) error {
		return LockTenant(context.Background(), tx, "tenant-a")
	})
	require.ErrorIs(t, err, ErrNotFound)
	require.Contains(t, ftx.stmts[0], "FOR UPDATE")
	require.False(t, ftx.committed)
}

func TestIsUniqueViolation(t *testing.T) {
	err := &pgconn.PgError{Code: "23505", ConstraintName: "tenant_domains_hostname_key"}
	require.True(t, IsUniqueViolation(err, ""))
	require.True(t, IsUniqueViolation(errors.Join(errors.New("wrap"), err), "tenant_domains_hostname_key"))
	require.False(t, IsUniqueViolation(err, "other"))
	require.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}, ""))
	require.False(t, IsUniqueViolation(errors.New("x"), ""))
}

func TestSplitStatements(t *testing.T) {
	stmts := splitStatements("-- header; with semicolon\nCREATE TABLE a (id INT);\n\nCREATE INDEX b ON a (id);\n")
	require.Equal(t, []string{"CREATE TABLE a (id INT)", "CREATE INDEX b ON a (id)"}, stmts)
}
