package persistence

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zenGate-Global/palmyra-sites/platform/go/tenant"
)

// TenantColumn is the column every tenant-owned table carries.
const TenantColumn = "tenant_id"

var (
	// ErrTenantUnresolved is returned when a write is attempted without a resolved tenant.
	ErrTenantUnresolved = errors.New("tenant not resolved")
	// ErrCrossTenantWrite is returned when a record stamped for one tenant is written in another's scope.
	ErrCrossTenantWrite = errors.New("record belongs to another tenant")
	// ErrUnscopedStatement is returned when a Scope is asked to run a statement it did not build.
	ErrUnscopedStatement = errors.New("statement was not built by the tenant scope")
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type txBeginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// Record is a tenant-owned row. Columns and Values exclude the tenant column; the Scope adds it.
type Record interface {
	Table() string
	Columns() []string
	Values() []any
	TenantID() tenant.ID
	SetTenantID(id tenant.ID)
}

// Guard is the only way repositories reach tenant-owned tables.
type Guard struct {
	pool txBeginner
}

func NewGuard(pool *pgxpool.Pool) *Guard {
	if pool == nil {
		panic("Guard requires pool")
	}
	return &Guard{pool: pool}
}

// WithTenant executes fn inside a transaction whose every statement is filtered to tc's tenant.
func (g *Guard) WithTenant(ctx context.Context, tc tenant.Context, fn func(scope *Scope) error) error {
	tx, err := g.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if err := fn(Attach(tx, tc)); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// WithRegistry executes fn inside an unscoped transaction. Reserved for the registry control
// plane (tenants, principals, hostname lookups); tenant-owned rows written in the same
// transaction must still go through Attach.
func (g *Guard) WithRegistry(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := g.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Attach scopes an open transaction to tc.
func Attach(tx pgx.Tx, tc tenant.Context) *Scope {
	return &Scope{tx: tx, tc: tc}
}

// Scope builds and runs statements restricted to a single tenant.
type Scope struct {
	tx pgx.Tx
	tc tenant.Context
}

func (s *Scope) Tenant() tenant.Context {
	return s.tc
}

func (s *Scope) filter() sq.Sqlizer {
	id, ok := s.tc.TenantID()
	if !ok {
		return sq.Expr("1=0")
	}
	return sq.Eq{TenantColumn: id.String()}
}

// Select starts a query on table already restricted to the scope's tenant.
// Unresolved scopes select nothing.
func (s *Scope) Select(table string, columns ...string) SelectStmt {
	return SelectStmt{b: psql.Select(columns...).From(table).Where(s.filter())}
}

// Update starts an update on table restricted to the scope's tenant.
func (s *Scope) Update(table string) UpdateStmt {
	return UpdateStmt{b: psql.Update(table).Where(s.filter())}
}

// Delete starts a delete on table restricted to the scope's tenant.
func (s *Scope) Delete(table string) DeleteStmt {
	return DeleteStmt{b: psql.Delete(table).Where(s.filter())}
}

// Insert stamps rec with the scope's tenant when it has none and builds its insert.
// Callers may append ON CONFLICT or RETURNING suffixes to the result.
func (s *Scope) Insert(rec Record) (InsertStmt, error) {
	id, ok := s.tc.TenantID()
	if !ok {
		return InsertStmt{}, ErrTenantUnresolved
	}

	switch owner := rec.TenantID(); {
	case owner == "":
		rec.SetTenantID(id)
	case owner != id:
		return InsertStmt{}, ErrCrossTenantWrite
	}

	columns := append([]string{TenantColumn}, rec.Columns()...)
	values := append([]any{id.String()}, rec.Values()...)
	if len(columns) != len(values) {
		return InsertStmt{}, fmt.Errorf("%s: %d columns but %d values", rec.Table(), len(columns), len(values))
	}

	return InsertStmt{b: psql.Insert(rec.Table()).Columns(columns...).Values(values...)}, nil
}

// QueryRow runs a scoped select, or an insert with a RETURNING suffix.
func (s *Scope) QueryRow(ctx context.Context, q Statement) pgx.Row {
	sql, args, err := s.build(q)
	if err != nil {
		return errRow{err: err}
	}
	return s.tx.QueryRow(ctx, sql, args...)
}

// Query runs a scoped select returning many rows.
func (s *Scope) Query(ctx context.Context, q Statement) (pgx.Rows, error) {
	sql, args, err := s.build(q)
	if err != nil {
		return nil, err
	}
	return s.tx.Query(ctx, sql, args...)
}

// Exec runs a scoped mutation and returns the number of affected rows.
// Mutations are refused outright on an unresolved scope.
func (s *Scope) Exec(ctx context.Context, q Statement) (int64, error) {
	if !s.tc.IsResolved() {
		return 0, ErrTenantUnresolved
	}
	sql, args, err := s.build(q)
	if err != nil {
		return 0, err
	}
	tag, err := s.tx.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// build renders only statements a Scope produced. Anything else, including types that embed
// one of them, is refused.
func (s *Scope) build(q Statement) (string, []any, error) {
	var b sq.Sqlizer
	switch stmt := q.(type) {
	case SelectStmt:
		b = stmt.b
	case UpdateStmt:
		b = stmt.b
	case DeleteStmt:
		b = stmt.b
	case InsertStmt:
		b = stmt.b
	default:
		return "", nil, ErrUnscopedStatement
	}
	sql, args, err := b.ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("build statement: %w", err)
	}
	return sql, args, nil
}

type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }
