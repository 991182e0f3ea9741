package migrations

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// Shape is one recognised state of a live table together with the step that
// brings it to the canonical shape.
type Shape struct {
	Name  string
	Match func(t Table, cols columnSet) bool
	Apply func(ctx context.Context, tx sqlx.ExtContext, t Table, cols columnSet) error
	// Rebuild marks steps that copy the table; the lightweight check skips them.
	Rebuild bool
}

const (
	ShapeAbsent    = "absent"
	ShapeCanonical = "canonical"
	ShapeAdditive  = "additive"
	ShapeLegacy    = "legacy"
)

// shapes is evaluated in order; the first match wins. The last entry matches
// every existing table.
var shapes = []Shape{
	{
		Name:  ShapeAbsent,
		Match: func(_ Table, cols columnSet) bool { return cols == nil },
		Apply: createTable,
	},
	{
		Name:  ShapeCanonical,
		Match: func(t Table, cols columnSet) bool { return len(t.Missing(cols)) == 0 },
		Apply: func(context.Context, sqlx.ExtContext, Table, columnSet) error { return nil },
	},
	{
		Name: ShapeAdditive,
		Match: func(t Table, cols columnSet) bool {
			for _, name := range t.Missing(cols) {
				c, _ := t.Column(name)
				if !t.additive(c) {
					return false
				}
			}
			return true
		},
		Apply: addColumns,
	},
	{
		Name:    ShapeLegacy,
		Match:   func(Table, columnSet) bool { return true },
		Apply:   rebuildTable,
		Rebuild: true,
	},
}

func classify(t Table, cols columnSet) Shape {
	for _, s := range shapes {
		if s.Match(t, cols) {
			return s
		}
	}
	return shapes[len(shapes)-1]
}

func createTable(ctx context.Context, tx sqlx.ExtContext, t Table, _ columnSet) error {
	_, err := tx.ExecContext(ctx, t.CreateSQL(t.Name))
	return err
}

// addColumns adds missing columns in place. Columns whose default is not a
// constant are added bare and back-filled.
func addColumns(ctx context.Context, tx sqlx.ExtContext, t Table, cols columnSet) error {
	for _, name := range t.Missing(cols) {
		c, _ := t.Column(name)
		if c.constantDefault() {
			if _, err := tx.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", t.Name, c.definition())); err != nil {
				return fmt.Errorf("add column %s: %w", c.Name, err)
			}
			continue
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", t.Name, c.Name, c.Type)); err != nil {
			return fmt.Errorf("add column %s: %w", c.Name, err)
		}
		backfill := fmt.Sprintf("UPDATE %s SET %s = %s WHERE %s IS NULL", t.Name, c.Name, c.fill(), c.Name)
		if _, err := tx.ExecContext(ctx, backfill); err != nil {
			return fmt.Errorf("backfill %s: %w", c.Name, err)
		}
	}
	return nil
}

// rebuildTable copies a legacy table into a canonical shadow table and swaps
// it into place.
func rebuildTable(ctx context.Context, tx sqlx.ExtContext, t Table, cols columnSet) error {
	shadow := t.Name + "_new"
	targets, sources := copyColumns(t, cols)
	stmts := []string{
		"DROP TABLE IF EXISTS " + shadow,
		t.CreateSQL(shadow),
		fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s",
			shadow, strings.Join(targets, ", "), strings.Join(sources, ", "), t.Name),
		"DROP TABLE " + t.Name,
		fmt.Sprintf("ALTER TABLE %s RENAME TO %s", shadow, t.Name),
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("rebuild %s: %w", t.Name, err)
		}
	}
	return nil
}

// copyColumns maps every canonical column to a source expression over the
// legacy table: the column itself, a legacy alias, or the fill value.
func copyColumns(t Table, cols columnSet) (targets, sources []string) {
	for _, c := range t.Columns {
		src := ""
		if cols.has(c.Name) {
			src = c.Name
		} else {
			for _, alias := range c.Aliases {
				if cols.has(alias) {
					src = alias
					break
				}
			}
		}

		switch {
		case c.PrimaryKey && c.AutoIncrement && src == "":
			continue
		case c.PrimaryKey && c.AutoIncrement:
			sources = append(sources, src)
		case src == "":
			sources = append(sources, c.fill())
		default:
			sources = append(sources, fmt.Sprintf("COALESCE(%s, %s)", src, c.fill()))
		}
		targets = append(targets, c.Name)
	}
	return targets, sources
}
