package migrations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registryTable(t *testing.T, name string) Table {
	t.Helper()
	for _, table := range Registry() {
		if table.Name == name {
			return table
		}
	}
	t.Fatalf("table %s not in registry", name)
	return Table{}
}

func TestCreateSQL_Products(t *testing.T) {
	sql := registryTable(t, TableProducts).CreateSQL(TableProducts)

	assert.Contains(t, sql, "CREATE TABLE IF NOT EXISTS products (")
	assert.Contains(t, sql, "id INTEGER PRIMARY KEY AUTOINCREMENT")
	assert.Contains(t, sql, "name TEXT NOT NULL")
	assert.Contains(t, sql, "stock INTEGER DEFAULT 0")
	assert.Contains(t, sql, "price REAL DEFAULT 0.0")
	assert.Contains(t, sql, "costPrice REAL DEFAULT 0.0")
	assert.Contains(t, sql, "minQuantity INTEGER DEFAULT 5")
	assert.Contains(t, sql, "shopId TEXT NOT NULL DEFAULT 'default-shop'")
	assert.Contains(t, sql, "dateCreated TEXT DEFAULT (datetime('now', 'localtime'))")
}

func TestIndexSQL(t *testing.T) {
	assert.Equal(t,
		[]string{"CREATE INDEX IF NOT EXISTS idx_sales_shop ON sales(shopId)"},
		registryTable(t, TableSales).IndexSQL())
}

func TestClassify(t *testing.T) {
	products := registryTable(t, TableProducts)
	full := columnSet{}
	for _, c := range products.Columns {
		full[c.Name] = true
	}
	without := func(names ...string) columnSet {
		cols := columnSet{}
		for k := range full {
			cols[k] = true
		}
		for _, n := range names {
			delete(cols, n)
		}
		return cols
	}

	tests := []struct {
		name string
		cols columnSet
		want string
	}{
		{"absent", nil, ShapeAbsent},
		{"canonical", full, ShapeCanonical},
		{"missing costPrice", without("costPrice"), ShapeAdditive},
		{"missing costPrice and minQuantity", without("costPrice", "minQuantity"), ShapeAdditive},
		{"missing shopId", without("shopId"), ShapeLegacy},
		{"missing stock", without("stock"), ShapeLegacy},
		{"missing dateCreated", without("dateCreated"), ShapeLegacy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(products, tt.cols).Name)
		})
	}
}

func TestClassify_NonConstantDefaultIsAdditiveWhenOptional(t *testing.T) {
	users := registryTable(t, TableUsers)
	cols := columnSet{"id": true, "email": true, "password": true, "name": true, "cpfCnpj": true, "address": true, "phone": true, "shopId": true}
	shape := classify(users, cols)
	assert.Equal(t, ShapeAdditive, shape.Name)
	assert.Equal(t, []string{"role", "dateCreated"}, users.Missing(cols))
}

func TestCopyColumns_LegacyQuantity(t *testing.T) {
	products := registryTable(t, TableProducts)
	targets, sources := copyColumns(products, columnSet{"id": true, "name": true, "quantity": true, "minQuantity": true})

	require.Len(t, sources, len(targets))
	mapping := map[string]string{}
	for i, target := range targets {
		mapping[target] = sources[i]
	}
	assert.Equal(t, "id", mapping["id"])
	assert.Equal(t, "COALESCE(name, '')", mapping["name"])
	assert.Equal(t, "COALESCE(quantity, 0)", mapping["stock"])
	assert.Equal(t, "0.0", mapping["price"])
	assert.Equal(t, "0.0", mapping["costPrice"])
	assert.Equal(t, "COALESCE(minQuantity, 5)", mapping["minQuantity"])
	assert.Equal(t, "'default-shop'", mapping["shopId"])
	assert.Equal(t, "(datetime('now', 'localtime'))", mapping["dateCreated"])
}

func TestCopyColumns_SkipsMissingAutoIncrementKey(t *testing.T) {
	sales := registryTable(t, TableSales)
	targets, _ := copyColumns(sales, columnSet{"product": true, "itemsSold": true, "total": true})
	assert.NotContains(t, targets, "id")
}

func TestStampTables(t *testing.T) {
	tables := Registry()
	stamped := stampTables(tables, "2025-11-03 00:30:00")

	require.Equal(t, TableSales, stamped[1].Name)
	date, _ := stamped[1].Column("date")
	assert.Equal(t, "'2025-11-03 00:30:00'", date.fill())
	assert.Equal(t, nowExpr, date.Default)
	total, _ := stamped[1].Column("total")
	assert.Equal(t, "0.0", total.fill())

	// The input is not modified.
	orig, _ := tables[1].Column("date")
	assert.Equal(t, nowExpr, orig.fill())
}
