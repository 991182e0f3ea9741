package domain

import "github.com/shopspring/decimal"

// SalesSummary aggregates the sales of one window.
type SalesSummary struct {
	Total decimal.Decimal `db:"total" json:"total_sales"`
	Items int64           `db:"items" json:"items_sold"`
	Count int64           `db:"count" json:"sales_count"`
}

// StockMetrics rolls up the product table of a shop.
type StockMetrics struct {
	TotalProducts    int64           `json:"total_products"`
	TotalStockItems  int64           `json:"total_stock_items"`
	TotalStockValue  decimal.Decimal `json:"total_stock_value"`
	LowStockCount    int             `json:"low_stock_count"`
	LowStockProducts []Product       `json:"low_stock_products"`
}

// TopProduct is one entry of the best sellers ranking.
type TopProduct struct {
	Name     string          `db:"name" json:"name"`
	Quantity int64           `db:"quantity" json:"quantity"`
	Revenue  decimal.Decimal `db:"revenue" json:"revenue"`
}

// TrendPoint is the sales total of a single day.
type TrendPoint struct {
	Date       string          `db:"day" json:"date"`
	TotalSales decimal.Decimal `db:"total" json:"total_sales"`
}

// DashboardMetrics is a point-in-time KPI snapshot for one shop.
type DashboardMetrics struct {
	ShopID        string          `json:"shop_id"`
	GeneratedAt   string          `json:"generated_at"`
	Daily         SalesSummary    `json:"daily"`
	Weekly        SalesSummary    `json:"weekly"`
	Monthly       SalesSummary    `json:"monthly"`
	AverageTicket decimal.Decimal `json:"average_ticket"`
	Stock         StockMetrics    `json:"stock_metrics"`
	TopProducts   []TopProduct    `json:"top_products"`
	SalesTrend    []TrendPoint    `json:"sales_last_30_days"`
}
