package migrations

import (
	"fmt"
	"strings"

	"vilapos/m/domain"
)

const nowExpr = "(datetime('now', 'localtime'))"

// Column describes one canonical column.
type Column struct {
	Name          string
	Type          string
	PrimaryKey    bool
	AutoIncrement bool
	NotNull       bool
	Unique        bool
	// Default is the DDL default expression.
	Default string
	// Fill is the value copied into rows whose source table lacks the
	// column. Default is used when empty.
	Fill string
	// Aliases are legacy names of the same column.
	Aliases []string
	// Timestamp columns are filled from the manager's clock instead of
	// SQLite's localtime, which follows the process time zone.
	Timestamp bool
}

func (c Column) definition() string {
	var b strings.Builder
	b.WriteString(c.Name)
	b.WriteString(" ")
	b.WriteString(c.Type)
	if c.PrimaryKey {
		b.WriteString(" PRIMARY KEY")
		if c.AutoIncrement {
			b.WriteString(" AUTOINCREMENT")
		}
	}
	if c.NotNull {
		b.WriteString(" NOT NULL")
	}
	if c.Unique {
		b.WriteString(" UNIQUE")
	}
	if c.Default != "" {
		b.WriteString(" DEFAULT ")
		b.WriteString(c.Default)
	}
	return b.String()
}

func (c Column) fill() string {
	switch {
	case c.Fill != "":
		return c.Fill
	case c.Default != "":
		return c.Default
	}
	return "NULL"
}

// constantDefault reports whether ALTER TABLE ADD COLUMN accepts the default.
// SQLite rejects parenthesised expressions there.
func (c Column) constantDefault() bool {
	return !strings.HasPrefix(c.Default, "(")
}

// stampTables copies tables, binding the fill of every timestamp column to
// the literal stamp.
func stampTables(tables []Table, stamp string) []Table {
	out := make([]Table, len(tables))
	for i, t := range tables {
		cols := make([]Column, len(t.Columns))
		for j, c := range t.Columns {
			if c.Timestamp {
				c.Fill = "'" + stamp + "'"
			}
			cols[j] = c
		}
		t.Columns = cols
		out[i] = t
	}
	return out
}

// Index is a single-column secondary index.
type Index struct {
	Name   string
	Column string
}

// Table is the canonical shape of one table.
type Table struct {
	Name    string
	Columns []Column
	// Required columns cannot be added in place; their absence forces a rebuild.
	Required []string
	Indexes  []Index
}

// CreateSQL renders the canonical DDL under the given table name.
func (t Table) CreateSQL(name string) string {
	defs := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		defs[i] = "    " + c.definition()
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n%s\n)", name, strings.Join(defs, ",\n"))
}

// IndexSQL renders the index DDL of the table.
func (t Table) IndexSQL() []string {
	stmts := make([]string, len(t.Indexes))
	for i, idx := range t.Indexes {
		stmts[i] = fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s(%s)", idx.Name, t.Name, idx.Column)
	}
	return stmts
}

// Column looks up a canonical column by name.
func (t Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

func (t Table) required(name string) bool {
	for _, r := range t.Required {
		if r == name {
			return true
		}
	}
	return false
}

// additive reports whether a missing column can be added with ALTER TABLE.
func (t Table) additive(c Column) bool {
	if t.required(c.Name) || c.PrimaryKey || c.Unique {
		return false
	}
	return !c.NotNull || (c.Default != "" && c.constantDefault())
}

// Missing lists canonical columns absent from cols, in canonical order.
func (t Table) Missing(cols columnSet) []string {
	var missing []string
	for _, c := range t.Columns {
		if !cols.has(c.Name) {
			missing = append(missing, c.Name)
		}
	}
	return missing
}

const (
	TableProducts = "products"
	TableSales    = "sales"
	TableShops    = "shops"
	TableUsers    = "users"
)

var defaultShop = "'" + domain.DefaultShopID + "'"

// Registry returns the canonical schema, in creation order.
func Registry() []Table {
	return []Table{
		{
			Name: TableProducts,
			Columns: []Column{
				{Name: "id", Type: "INTEGER", PrimaryKey: true, AutoIncrement: true},
				{Name: "name", Type: "TEXT", NotNull: true, Fill: "''"},
				{Name: "stock", Type: "INTEGER", Default: "0", Aliases: []string{"quantity"}},
				{Name: "price", Type: "REAL", Default: "0.0"},
				{Name: "costPrice", Type: "REAL", Default: "0.0"},
				{Name: "minQuantity", Type: "INTEGER", Default: "5"},
				{Name: "shopId", Type: "TEXT", NotNull: true, Default: defaultShop},
				{Name: "dateCreated", Type: "TEXT", Default: nowExpr, Timestamp: true},
			},
			Required: []string{"name", "stock", "price", "shopId", "dateCreated"},
			Indexes:  []Index{{Name: "idx_products_shop", Column: "shopId"}},
		},
		{
			Name: TableSales,
			Columns: []Column{
				{Name: "id", Type: "INTEGER", PrimaryKey: true, AutoIncrement: true},
				{Name: "product", Type: "TEXT", NotNull: true, Fill: "''"},
				{Name: "itemsSold", Type: "INTEGER", NotNull: true, Fill: "0"},
				{Name: "total", Type: "REAL", NotNull: true, Fill: "0.0"},
				{Name: "shopId", Type: "TEXT", NotNull: true, Default: defaultShop},
				{Name: "date", Type: "TEXT", Default: nowExpr, Timestamp: true},
			},
			Required: []string{"product", "itemsSold", "total", "shopId", "date"},
			Indexes:  []Index{{Name: "idx_sales_shop", Column: "shopId"}},
		},
		{
			Name: TableShops,
			Columns: []Column{
				{Name: "id", Type: "TEXT", PrimaryKey: true, Fill: "lower(hex(randomblob(16)))"},
				{Name: "name", Type: "TEXT", NotNull: true, Fill: "''"},
				{Name: "description", Type: "TEXT"},
				{Name: "address", Type: "TEXT", NotNull: true, Default: "''"},
				{Name: "phone", Type: "TEXT"},
				{Name: "ownerId", Type: "TEXT", NotNull: true, Default: "''"},
				{Name: "dateCreated", Type: "TEXT", Default: nowExpr, Timestamp: true},
			},
			Required: []string{"id", "name"},
			Indexes:  []Index{{Name: "idx_shops_owner", Column: "ownerId"}},
		},
		{
			Name: TableUsers,
			Columns: []Column{
				{Name: "id", Type: "TEXT", PrimaryKey: true, Fill: "lower(hex(randomblob(16)))"},
				{Name: "email", Type: "TEXT", NotNull: true, Unique: true, Fill: "''"},
				{Name: "password", Type: "TEXT", NotNull: true, Fill: "''"},
				{Name: "name", Type: "TEXT", NotNull: true, Fill: "''"},
				{Name: "cpfCnpj", Type: "TEXT", NotNull: true, Default: "''"},
				{Name: "address", Type: "TEXT", NotNull: true, Default: "''"},
				{Name: "phone", Type: "TEXT"},
				{Name: "shopId", Type: "TEXT", NotNull: true, Default: "''"},
				{Name: "role", Type: "TEXT", Default: "'user'"},
				{Name: "dateCreated", Type: "TEXT", Default: nowExpr, Timestamp: true},
			},
			Required: []string{"id", "email", "password", "name"},
			Indexes:  []Index{{Name: "idx_users_shop", Column: "shopId"}},
		},
	}
}
