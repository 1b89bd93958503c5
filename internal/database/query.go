package database

import (
	"context"
	"database/sql"
	"strings"
)

// QueryBuilder rewrites a statement written once for both stores. Statements
// use ? for parameters and two dialect fragments:
//
//	{greatest}  the two-argument maximum (MAX, GREATEST)
//	{serial}    the generated integer primary key column
//
// A ? inside a single-quoted literal is left alone.
type QueryBuilder struct {
	dialect   Dialect
	numbered  bool
	fragments *strings.Replacer
}

// NewQueryBuilder creates a QueryBuilder for the given dialect.
func NewQueryBuilder(dialect Dialect) *QueryBuilder {
	return &QueryBuilder{
		dialect:  dialect,
		numbered: dialect.Placeholder(1) != "?",
		fragments: strings.NewReplacer(
			"{greatest}", dialect.Greatest(),
			"{serial}", dialect.AutoIncrementKey(),
		),
	}
}

// Build expands fragments and, for PostgreSQL, numbers the placeholders.
//
//	input:    UPDATE profiles SET gold = {greatest}(gold + ?, 0) WHERE id = ?
//	SQLite:   UPDATE profiles SET gold = MAX(gold + ?, 0) WHERE id = ?
//	Postgres: UPDATE profiles SET gold = GREATEST(gold + $1, 0) WHERE id = $2
func (qb *QueryBuilder) Build(query string) string {
	query = qb.fragments.Replace(query)
	if !qb.numbered || !strings.Contains(query, "?") {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 16)
	position, quoted := 0, false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			quoted = !quoted
		case c == '?' && !quoted:
			position++
			b.WriteString(qb.dialect.Placeholder(position))
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// execQuerier is satisfied by *sql.DB and *sql.Tx.
type execQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// InsertID runs an INSERT and returns the generated key. SQLite reports it
// through LastInsertId; PostgreSQL needs a RETURNING clause.
func (qb *QueryBuilder) InsertID(ctx context.Context, db execQuerier, query, column string, args ...any) (int64, error) {
	query = qb.insertQuery(query, column)
	if qb.dialect.SupportsLastInsertID() {
		res, err := db.ExecContext(ctx, query, args...)
		if err != nil {
			return 0, err
		}
		return res.LastInsertId()
	}
	var id int64
	err := db.QueryRowContext(ctx, query, args...).Scan(&id)
	return id, err
}

func (qb *QueryBuilder) insertQuery(query, column string) string {
	query = qb.Build(query)
	if qb.dialect.SupportsLastInsertID() {
		return query
	}
	return strings.TrimRight(query, " \t\n") + qb.dialect.ReturningClause(column)
}
