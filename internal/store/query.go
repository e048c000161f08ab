package store

import "strings"

// QueryBuilder rewrites queries written with ? placeholders for a dialect.
type QueryBuilder struct {
	dialect Dialect
}

// NewQueryBuilder creates a new QueryBuilder for the given dialect.
func NewQueryBuilder(dialect Dialect) *QueryBuilder {
	return &QueryBuilder{dialect: dialect}
}

// Build converts ? placeholders to the dialect's numbered form. Queries in
// this package never contain a literal '?'.
//
// Example:
//
//	input:    "SELECT * FROM solves WHERE id = ? AND shape = ?"
//	SQLite:   "SELECT * FROM solves WHERE id = ? AND shape = ?"
//	Postgres: "SELECT * FROM solves WHERE id = $1 AND shape = $2"
func (qb *QueryBuilder) Build(query string) string {
	if qb.dialect.Placeholder(1) == "?" {
		return query
	}

	var sb strings.Builder
	for n := 1; ; n++ {
		before, after, found := strings.Cut(query, "?")
		sb.WriteString(before)
		if !found {
			return sb.String()
		}
		sb.WriteString(qb.dialect.Placeholder(n))
		query = after
	}
}
