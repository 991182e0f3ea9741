package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vilapos/m/domain"
	"vilapos/m/internal/database"
	"vilapos/m/internal/migrations"
	"vilapos/m/internal/seed"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "vilapos", cmd.Use)
	assert.Contains(t, cmd.Long, "SQLite")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"serve", "migrate", "seed", "import", "dashboard"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	dbFlag := cmd.PersistentFlags().Lookup("db")
	require.NotNil(t, dbFlag)
	assert.Equal(t, "", dbFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestCommandFlags(t *testing.T) {
	tests := []struct {
		command, flag, shorthand string
	}{
		{"serve", "port", "p"},
		{"migrate", "dry-run", ""},
		{"migrate", "reset", ""},
		{"seed", "shop", ""},
		{"import", "file", "f"},
		{"import", "shop", ""},
		{"dashboard", "watch", "w"},
		{"dashboard", "shop", ""},
	}
	for _, tt := range tests {
		t.Run(tt.command+"/"+tt.flag, func(t *testing.T) {
			sub, _, err := NewRootCommand().Find([]string{tt.command})
			require.NoError(t, err)
			f := sub.Flags().Lookup(tt.flag)
			require.NotNil(t, f)
			assert.Equal(t, tt.shorthand, f.Shorthand)
		})
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("LOG_MODE", "production")
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestInvalidFormat(t *testing.T) {
	_, err := run(t, "migrate", "--db", filepath.Join(t.TempDir(), "x.db"), "--format", "xml")
	assert.ErrorContains(t, err, "invalid format")
}

func TestMigrateDryRunLeavesLegacyTables(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "legacy.db")
	db, err := database.Connect(dsn)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE products (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT, quantity INTEGER, price REAL)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	out, err := run(t, "migrate", "--dry-run", "--db", dsn, "--format", "json")
	require.NoError(t, err)

	var res MigrateResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.DryRun)
	assert.Equal(t, migrations.StateUninitialized.String(), res.State)
	shapes := map[string]string{}
	for _, table := range res.Tables {
		shapes[table.Table] = table.Shape
	}
	assert.Equal(t, migrations.ShapeLegacy, shapes[migrations.TableProducts])
	assert.Equal(t, migrations.ShapeAbsent, shapes[migrations.TableSales])

	out, err = run(t, "migrate", "--db", dsn)
	require.NoError(t, err)
	assert.Contains(t, out, "schema: ready")
	assert.Contains(t, out, "products")
	assert.NotContains(t, out, "legacy")
}

func TestMigrateResetEmptiesProductsAndSales(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "pos.db")
	_, err := run(t, "seed", "--db", dsn, "--shop", "s1")
	require.NoError(t, err)

	out, err := run(t, "migrate", "--reset", "--db", dsn, "--format", "json")
	require.NoError(t, err)
	var res MigrateResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, []string{migrations.TableProducts, migrations.TableSales}, res.Reset)
	assert.Equal(t, migrations.StateReady.String(), res.State)
	for _, table := range res.Tables {
		assert.Equal(t, migrations.ShapeCanonical, table.Shape, table.Table)
	}

	db, err := database.Connect(dsn)
	require.NoError(t, err)
	defer db.Close()
	var products, sales int
	require.NoError(t, db.Get(&products, `SELECT COUNT(*) FROM products`))
	require.NoError(t, db.Get(&sales, `SELECT COUNT(*) FROM sales`))
	assert.Zero(t, products)
	assert.Zero(t, sales)
}

func TestMigrateRejectsDryRunWithReset(t *testing.T) {
	_, err := run(t, "migrate", "--dry-run", "--reset", "--db", filepath.Join(t.TempDir(), "x.db"))
	assert.ErrorContains(t, err, "cannot be combined")
}

func TestSeedImportAndDashboard(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "pos.db")

	out, err := run(t, "seed", "--db", dsn, "--shop", "s1", "--format", "json")
	require.NoError(t, err)
	var seeded seed.Result
	require.NoError(t, json.Unmarshal([]byte(out), &seeded))
	assert.Equal(t, seed.Result{Products: 8, Sales: 33}, seeded)

	out, err = run(t, "import", "--db", dsn, "--shop", "s1", "--file", filepath.Join("..", "..", "assets", "products.csv"))
	require.NoError(t, err)
	assert.Contains(t, out, "imported 6 products into s1")

	out, err = run(t, "dashboard", "--db", dsn, "--shop", "s1", "--format", "json")
	require.NoError(t, err)
	var m domain.DashboardMetrics
	require.NoError(t, json.Unmarshal([]byte(out), &m))
	assert.Equal(t, "s1", m.ShopID)
	assert.Equal(t, int64(14), m.Stock.TotalProducts)
	assert.Equal(t, int64(3), m.Daily.Count)

	out, err = run(t, "dashboard", "--db", dsn, "--shop", "s1")
	require.NoError(t, err)
	assert.Contains(t, out, "shop s1")
	assert.Contains(t, out, "today    total 71.00  items 48  sales 3")
	assert.Contains(t, out, "top 1: Pão de Açúcar")
}

func TestImportRequiresFile(t *testing.T) {
	_, err := run(t, "import", "--db", filepath.Join(t.TempDir(), "x.db"))
	assert.ErrorContains(t, err, "file")
}
