package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"vilapos/m/domain"
	"vilapos/m/internal/clock"
	"vilapos/m/internal/logging"
	"vilapos/m/internal/migrations"
)

const productColumns = `id, COALESCE(name, '') AS name, COALESCE(stock, 0) AS stock,
	COALESCE(price, 0) AS price, COALESCE(costPrice, 0) AS costPrice,
	COALESCE(minQuantity, 0) AS minQuantity, shopId, COALESCE(dateCreated, '') AS dateCreated`

// ProductRepository reads and writes the products table.
type ProductRepository struct {
	db    *sqlx.DB
	guard SchemaGuard
	clock clock.Clock
	log   *zap.Logger
}

func NewProductRepository(db *sqlx.DB, g SchemaGuard, c clock.Clock, logger *zap.Logger) *ProductRepository {
	return &ProductRepository{db: db, guard: g, clock: c, log: logging.OrNop(logger).Named("products")}
}

// GetAll returns the products of a shop, newest first.
func (r *ProductRepository) GetAll(ctx context.Context, shopID string) []domain.Product {
	guard(ctx, r.guard, r.log, migrations.TableProducts)

	products := []domain.Product{}
	err := r.db.SelectContext(ctx, &products,
		`SELECT `+productColumns+` FROM products WHERE shopId = ? ORDER BY id DESC`, shopID)
	if err != nil {
		readFailed(r.log, "products", "list", err)
		return []domain.Product{}
	}
	return products
}

// Get returns one product of the shop. A product of another shop is
// reported as domain.ErrNotFound.
func (r *ProductRepository) Get(ctx context.Context, shopID string, id int64) (domain.Product, error) {
	guard(ctx, r.guard, r.log, migrations.TableProducts)

	var p domain.Product
	err := r.db.GetContext(ctx, &p,
		`SELECT `+productColumns+` FROM products WHERE id = ? AND shopId = ?`, id, shopID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Product{}, &domain.ReadError{Entity: "products", Op: "get", Err: err}
	}
	return p, nil
}

// LowStock returns the products of a shop whose stock is below their
// minimum quantity, lowest stock first.
func (r *ProductRepository) LowStock(ctx context.Context, shopID string) []domain.Product {
	guard(ctx, r.guard, r.log, migrations.TableProducts)

	products := []domain.Product{}
	err := r.db.SelectContext(ctx, &products,
		`SELECT `+productColumns+` FROM products
		WHERE shopId = ? AND COALESCE(stock, 0) < COALESCE(minQuantity, 0)
		ORDER BY stock ASC, id ASC`, shopID)
	if err != nil {
		readFailed(r.log, "products", "low stock", err)
		return []domain.Product{}
	}
	return products
}

// Insert adds a product and returns its id.
func (r *ProductRepository) Insert(ctx context.Context, p domain.NewProduct) (int64, error) {
	guard(ctx, r.guard, r.log, migrations.TableProducts)

	if err := p.Validate(); err != nil {
		return 0, writeError("products", "insert", err)
	}
	if p.DateCreated == "" {
		p.DateCreated = clock.Stamp(r.clock.Now())
	}

	res, err := r.db.NamedExecContext(ctx,
		`INSERT INTO products (name, stock, price, costPrice, minQuantity, shopId, dateCreated)
		VALUES (:name, :stock, :price, :costPrice, :minQuantity, :shopId, :dateCreated)`, p)
	if err != nil {
		r.log.Error("insert product", zap.String("shop", p.ShopID), zap.Error(err))
		return 0, writeError("products", "insert", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, writeError("products", "insert", err)
	}
	return id, nil
}

// Update applies the non-nil fields of patch. An empty patch is a no-op.
func (r *ProductRepository) Update(ctx context.Context, id int64, patch domain.ProductPatch) error {
	guard(ctx, r.guard, r.log, migrations.TableProducts)

	if patch.Empty() {
		return nil
	}
	if err := patch.Validate(); err != nil {
		return writeError("products", "update", err)
	}

	var (
		sets []string
		args []any
	)
	if patch.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *patch.Name)
	}
	if patch.Stock != nil {
		sets = append(sets, "stock = ?")
		args = append(args, *patch.Stock)
	}
	if patch.Price != nil {
		sets = append(sets, "price = ?")
		args = append(args, *patch.Price)
	}
	if patch.CostPrice != nil {
		sets = append(sets, "costPrice = ?")
		args = append(args, *patch.CostPrice)
	}
	if patch.MinQuantity != nil {
		sets = append(sets, "minQuantity = ?")
		args = append(args, *patch.MinQuantity)
	}
	args = append(args, id)

	query := `UPDATE products SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.log.Error("update product", zap.Int64("id", id), zap.Error(err))
		return writeError("products", "update", err)
	}
	return nil
}

// Delete removes a product by id. Deleting a missing id is not an error.
func (r *ProductRepository) Delete(ctx context.Context, id int64) error {
	guard(ctx, r.guard, r.log, migrations.TableProducts)

	if _, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id); err != nil {
		r.log.Error("delete product", zap.Int64("id", id), zap.Error(err))
		return writeError("products", "delete", err)
	}
	return nil
}

// DeleteByShop removes every product of a shop.
func (r *ProductRepository) DeleteByShop(ctx context.Context, shopID string) error {
	guard(ctx, r.guard, r.log, migrations.TableProducts)

	if _, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE shopId = ?`, shopID); err != nil {
		return writeError("products", "clear", err)
	}
	return nil
}
