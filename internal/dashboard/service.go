// Package dashboard computes the KPI snapshot of a shop from the sales and
// products tables. Nothing it computes is persisted.
package dashboard

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"vilapos/m/domain"
	"vilapos/m/internal/clock"
	"vilapos/m/internal/logging"
	"vilapos/m/internal/migrations"
	"vilapos/m/internal/repository"
)

const (
	// TicketDays is the trailing window of the average ticket.
	TicketDays = 30
	// TopDays is the trailing window of the best sellers ranking.
	TopDays = 30
	// TrendDays is the length of the sales trend.
	TrendDays = 30
	TopLimit  = 5
)

// Service runs the dashboard queries. It only reads.
type Service struct {
	db    *sqlx.DB
	guard repository.SchemaGuard
	clock clock.Clock
	log   *zap.Logger
}

func NewService(db *sqlx.DB, g repository.SchemaGuard, c clock.Clock, logger *zap.Logger) *Service {
	return &Service{db: db, guard: g, clock: c, log: logging.OrNop(logger).Named("dashboard")}
}

// Compute builds the snapshot for shopID. Query failures degrade to zero
// values; the only errors are an empty shop id and a cancelled context.
func (s *Service) Compute(ctx context.Context, shopID string) (domain.DashboardMetrics, error) {
	if shopID == "" {
		return domain.DashboardMetrics{}, fmt.Errorf("%w: shop id is required", domain.ErrInvalid)
	}
	if err := ctx.Err(); err != nil {
		return domain.DashboardMetrics{}, err
	}
	s.ensureTables(ctx)

	now := s.clock.Now()
	m := domain.DashboardMetrics{
		ShopID:        shopID,
		GeneratedAt:   clock.Stamp(now),
		Daily:         s.Summary(ctx, shopID, Today(now)),
		Weekly:        s.Summary(ctx, shopID, RollingWeek(now)),
		Monthly:       s.Summary(ctx, shopID, CalendarMonth(now)),
		AverageTicket: s.AverageTicket(ctx, shopID, Trailing(now, TicketDays)),
		Stock:         s.Stock(ctx, shopID),
		TopProducts:   s.TopProducts(ctx, shopID, Trailing(now, TopDays), TopLimit),
		SalesTrend:    s.SalesTrend(ctx, shopID, Trailing(now, TrendDays)),
	}
	if err := ctx.Err(); err != nil {
		return domain.DashboardMetrics{}, err
	}
	return m, nil
}

func (s *Service) ensureTables(ctx context.Context) {
	if s.guard == nil {
		return
	}
	for _, table := range []string{migrations.TableProducts, migrations.TableSales} {
		if err := s.guard.EnsureTable(ctx, table); err != nil {
			s.log.Warn("schema check failed", zap.String("table", table), zap.Error(err))
		}
	}
}

func (s *Service) readFailed(op, shopID string, err error) {
	s.log.Error("dashboard query failed",
		zap.String("shop", shopID),
		zap.Error(&domain.ReadError{Entity: "dashboard", Op: op, Err: err}))
}

// Summary totals the sales of a window.
func (s *Service) Summary(ctx context.Context, shopID string, w Window) domain.SalesSummary {
	from, to := w.Bounds()
	var sum domain.SalesSummary
	err := s.db.GetContext(ctx, &sum,
		`SELECT COALESCE(SUM(total), 0) AS total, COALESCE(SUM(itemsSold), 0) AS items, COUNT(*) AS count
		FROM sales WHERE shopId = ? AND date(date) BETWEEN ? AND ?`, shopID, from, to)
	if err != nil {
		s.readFailed("summary", shopID, err)
		return domain.SalesSummary{}
	}
	return sum
}

// AverageTicket is total over count for the window, zero without sales.
func (s *Service) AverageTicket(ctx context.Context, shopID string, w Window) decimal.Decimal {
	sum := s.Summary(ctx, shopID, w)
	if sum.Count == 0 {
		return decimal.Zero
	}
	return sum.Total.Div(decimal.NewFromInt(sum.Count))
}

type stockRow struct {
	Products int64           `db:"products"`
	Items    int64           `db:"items"`
	Value    decimal.Decimal `db:"value"`
}

// Stock rolls up the product table of a shop.
func (s *Service) Stock(ctx context.Context, shopID string) domain.StockMetrics {
	metrics := domain.StockMetrics{LowStockProducts: []domain.Product{}}

	var row stockRow
	err := s.db.GetContext(ctx, &row,
		`SELECT COUNT(*) AS products, COALESCE(SUM(stock), 0) AS items,
			COALESCE(SUM(COALESCE(stock, 0) * COALESCE(price, 0)), 0) AS value
		FROM products WHERE shopId = ?`, shopID)
	if err != nil {
		s.readFailed("stock", shopID, err)
	} else {
		metrics.TotalProducts = row.Products
		metrics.TotalStockItems = row.Items
		metrics.TotalStockValue = row.Value
	}

	err = s.db.SelectContext(ctx, &metrics.LowStockProducts,
		`SELECT id, COALESCE(name, '') AS name, COALESCE(stock, 0) AS stock,
			COALESCE(price, 0) AS price, COALESCE(costPrice, 0) AS costPrice,
			COALESCE(minQuantity, 0) AS minQuantity, shopId, COALESCE(dateCreated, '') AS dateCreated
		FROM products
		WHERE shopId = ? AND COALESCE(stock, 0) < COALESCE(minQuantity, 0)
		ORDER BY stock ASC, id ASC`, shopID)
	if err != nil {
		s.readFailed("low stock", shopID, err)
		metrics.LowStockProducts = []domain.Product{}
	}
	metrics.LowStockCount = len(metrics.LowStockProducts)
	return metrics
}

// TopProducts ranks product names by units sold in the window. Ties keep the
// order in which the products were first sold.
func (s *Service) TopProducts(ctx context.Context, shopID string, w Window, limit int) []domain.TopProduct {
	from, to := w.Bounds()
	top := []domain.TopProduct{}
	err := s.db.SelectContext(ctx, &top,
		`SELECT product AS name, SUM(itemsSold) AS quantity, COALESCE(SUM(total), 0) AS revenue
		FROM sales
		WHERE shopId = ? AND date(date) BETWEEN ? AND ?
		GROUP BY product
		ORDER BY quantity DESC, MIN(id) ASC
		LIMIT ?`, shopID, from, to, limit)
	if err != nil {
		s.readFailed("top products", shopID, err)
		return []domain.TopProduct{}
	}
	return top
}

// SalesTrend returns one point per day of the window, ascending, with zero
// for days without sales.
func (s *Service) SalesTrend(ctx context.Context, shopID string, w Window) []domain.TrendPoint {
	days := w.Days()
	trend := make([]domain.TrendPoint, len(days))
	for i, day := range days {
		trend[i] = domain.TrendPoint{Date: day, TotalSales: decimal.Zero}
	}

	from, to := w.Bounds()
	var rows []domain.TrendPoint
	err := s.db.SelectContext(ctx, &rows,
		`SELECT date(date) AS day, COALESCE(SUM(total), 0) AS total
		FROM sales
		WHERE shopId = ? AND date(date) BETWEEN ? AND ?
		GROUP BY day`, shopID, from, to)
	if err != nil {
		s.readFailed("trend", shopID, err)
		return trend
	}

	byDay := make(map[string]decimal.Decimal, len(rows))
	for _, r := range rows {
		byDay[r.Date] = r.TotalSales
	}
	for i := range trend {
		if total, ok := byDay[trend[i].Date]; ok {
			trend[i].TotalSales = total
		}
	}
	return trend
}
