package option

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Option applies a query refinement to a gorm statement.
type Option interface {
	Apply(stmt *gorm.DB) *gorm.DB
}

type sortBy struct {
	clause string
}

func (o sortBy) Apply(stmt *gorm.DB) *gorm.DB {
	if o.clause == "" {
		return stmt
	}
	return stmt.Order(o.clause)
}

// WithSortBy orders the query by the given clause; empty means no-op.
func WithSortBy(clause string) Option {
	return sortBy{clause: clause}
}

// WithQuerySortBy builds an ORDER BY clause from user-supplied sort/
// order params, restricted to an allow-list of columns. Unknown columns
// fall back to created_at desc.
func WithQuerySortBy(sortColumn, orderBy string, allowed map[string]bool) string {
	column := strings.TrimSpace(strings.ToLower(sortColumn))
	if column == "" || !allowed[column] {
		column = "created_at"
	}

	direction := strings.TrimSpace(strings.ToLower(orderBy))
	if direction != "asc" && direction != "desc" {
		direction = "desc"
	}

	return fmt.Sprintf("%s %s", column, direction)
}
