package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"vilapos/m/domain"
	"vilapos/m/internal/clock"
	"vilapos/m/internal/logging"
	"vilapos/m/internal/migrations"
)

// SaleRepository reads and writes the sales table. Sales are never updated.
type SaleRepository struct {
	db    *sqlx.DB
	guard SchemaGuard
	clock clock.Clock
	log   *zap.Logger
}

func NewSaleRepository(db *sqlx.DB, g SchemaGuard, c clock.Clock, logger *zap.Logger) *SaleRepository {
	return &SaleRepository{db: db, guard: g, clock: c, log: logging.OrNop(logger).Named("sales")}
}

// GetAll returns the sales of a shop, most recent first.
func (r *SaleRepository) GetAll(ctx context.Context, shopID string) []domain.Sale {
	guard(ctx, r.guard, r.log, migrations.TableSales)

	sales := []domain.Sale{}
	err := r.db.SelectContext(ctx, &sales,
		`SELECT id, product, itemsSold, COALESCE(total, 0) AS total, shopId, COALESCE(date, '') AS date
		FROM sales WHERE shopId = ? ORDER BY date DESC, id DESC`, shopID)
	if err != nil {
		readFailed(r.log, "sales", "list", err)
		return []domain.Sale{}
	}
	return sales
}

// Insert records a sale and returns its id. An empty date is stamped with
// the current time.
func (r *SaleRepository) Insert(ctx context.Context, s domain.NewSale) (int64, error) {
	guard(ctx, r.guard, r.log, migrations.TableSales)

	if err := s.Validate(); err != nil {
		return 0, writeError("sales", "insert", err)
	}
	date, err := normalizeDate(s.Date, r.clock.Now)
	if err != nil {
		return 0, writeError("sales", "insert", err)
	}
	s.Date = date

	res, err := r.db.NamedExecContext(ctx,
		`INSERT INTO sales (product, itemsSold, total, shopId, date)
		VALUES (:product, :itemsSold, :total, :shopId, :date)`, s)
	if err != nil {
		r.log.Error("insert sale", zap.String("shop", s.ShopID), zap.Error(err))
		return 0, writeError("sales", "insert", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, writeError("sales", "insert", err)
	}
	return id, nil
}

// DeleteByShop removes every sale of a shop.
func (r *SaleRepository) DeleteByShop(ctx context.Context, shopID string) error {
	guard(ctx, r.guard, r.log, migrations.TableSales)

	if _, err := r.db.ExecContext(ctx, `DELETE FROM sales WHERE shopId = ?`, shopID); err != nil {
		return writeError("sales", "clear", err)
	}
	return nil
}
