package migrations

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// columnSet is the set of column names of a live table. A nil set means the
// table does not exist.
type columnSet map[string]bool

func (s columnSet) has(names ...string) bool {
	for _, n := range names {
		if !s[n] {
			return false
		}
	}
	return true
}

// existingTables returns which of names exist as tables.
func existingTables(ctx context.Context, q sqlx.QueryerContext, names []string) (map[string]bool, error) {
	query, args, err := sqlx.In(`SELECT name FROM sqlite_master WHERE type = 'table' AND name IN (?)`, names)
	if err != nil {
		return nil, fmt.Errorf("prepare table lookup: %w", err)
	}
	var found []string
	if err := sqlx.SelectContext(ctx, q, &found, query, args...); err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	out := make(map[string]bool, len(found))
	for _, name := range found {
		out[name] = true
	}
	return out, nil
}

// tableColumns introspects the columns of table, or returns nil when the
// table is absent.
func tableColumns(ctx context.Context, q sqlx.QueryerContext, table string) (columnSet, error) {
	exists, err := existingTables(ctx, q, []string{table})
	if err != nil {
		return nil, err
	}
	if !exists[table] {
		return nil, nil
	}
	var names []string
	if err := sqlx.SelectContext(ctx, q, &names, `SELECT name FROM pragma_table_info(?)`, table); err != nil {
		return nil, fmt.Errorf("table info %s: %w", table, err)
	}
	cols := make(columnSet, len(names))
	for _, n := range names {
		cols[n] = true
	}
	return cols, nil
}
