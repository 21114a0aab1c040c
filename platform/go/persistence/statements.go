package persistence

import (
	sq "github.com/Masterminds/squirrel"
)

// Statement is a tenant-filtered statement handed out by a Scope. Scope.Query, QueryRow and Exec
// accept nothing else.
type Statement interface {
	ToSql() (string, []any, error)
	scoped()
}

// SelectStmt is a select already restricted to one tenant.
type SelectStmt struct{ b sq.SelectBuilder }

func (s SelectStmt) Where(pred any, args ...any) SelectStmt {
	return SelectStmt{b: s.b.Where(pred, args...)}
}

func (s SelectStmt) OrderBy(orderBys ...string) SelectStmt {
	return SelectStmt{b: s.b.OrderBy(orderBys...)}
}

func (s SelectStmt) ToSql() (string, []any, error) { return s.b.ToSql() }
func (SelectStmt) scoped()                          {}

// UpdateStmt is an update already restricted to one tenant.
type UpdateStmt struct{ b sq.UpdateBuilder }

func (s UpdateStmt) Set(column string, value any) UpdateStmt {
	return UpdateStmt{b: s.b.Set(column, value)}
}

func (s UpdateStmt) Where(pred any, args ...any) UpdateStmt {
	return UpdateStmt{b: s.b.Where(pred, args...)}
}

func (s UpdateStmt) ToSql() (string, []any, error) { return s.b.ToSql() }
func (UpdateStmt) scoped()                          {}

// DeleteStmt is a delete already restricted to one tenant.
type DeleteStmt struct{ b sq.DeleteBuilder }

func (s DeleteStmt) Where(pred any, args ...any) DeleteStmt {
	return DeleteStmt{b: s.b.Where(pred, args...)}
}

func (s DeleteStmt) ToSql() (string, []any, error) { return s.b.ToSql() }
func (DeleteStmt) scoped()                          {}

// InsertStmt is an insert whose record was stamped by the scope.
type InsertStmt struct{ b sq.InsertBuilder }

// Suffix appends ON CONFLICT or RETURNING clauses.
func (s InsertStmt) Suffix(sql string, args ...any) InsertStmt {
	return InsertStmt{b: s.b.Suffix(sql, args...)}
}

func (s InsertStmt) ToSql() (string, []any, error) { return s.b.ToSql() }
func (InsertStmt) scoped()                          {}
