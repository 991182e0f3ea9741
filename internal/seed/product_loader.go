package seed

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"vilapos/m/domain"
)

const defaultMinQuantity = 5

// productRecord is one row of a catalog CSV. Numeric columns are parsed by
// hand so a bad row can be skipped instead of failing the file.
type productRecord struct {
	Name        string `csv:"name"`
	Stock       string `csv:"stock"`
	Price       string `csv:"price"`
	CostPrice   string `csv:"cost_price"`
	MinQuantity string `csv:"min_quantity"`
}

// ImportResult counts the rows of a catalog import.
type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// LoadProducts imports the catalog CSV at path into shopID. Rows that do not
// parse are logged and skipped; a failed insert stops the import.
func LoadProducts(ctx context.Context, products ProductStore, shopID, path string) (ImportResult, error) {
	file, err := os.Open(path)
	if err != nil {
		return ImportResult{}, fmt.Errorf("open product catalog %s: %w", path, err)
	}
	defer file.Close()

	return ReadProducts(ctx, products, shopID, file)
}

// ReadProducts imports a catalog from r. The header row names the columns
// name, stock, price, cost_price and min_quantity; only name is required.
func ReadProducts(ctx context.Context, products ProductStore, shopID string, r io.Reader) (ImportResult, error) {
	var res ImportResult
	if shopID == "" {
		return res, fmt.Errorf("%w: shop id is required", domain.ErrInvalid)
	}

	var records []productRecord
	if err := gocsv.Unmarshal(r, &records); err != nil {
		return res, fmt.Errorf("read product catalog: %w", err)
	}

	log := zap.L().Named("import")
	for i, rec := range records {
		p, err := rec.toProduct(shopID)
		if err != nil {
			// Line numbers count the header.
			log.Warn("skipping catalog row", zap.Int("line", i+2), zap.Error(err))
			res.Skipped++
			continue
		}
		if _, err := products.Insert(ctx, p); err != nil {
			return res, fmt.Errorf("import %s: %w", p.Name, err)
		}
		res.Imported++
	}

	log.Info("product catalog imported",
		zap.String("shop", shopID),
		zap.Int("imported", res.Imported),
		zap.Int("skipped", res.Skipped))
	return res, nil
}

func (rec productRecord) toProduct(shopID string) (domain.NewProduct, error) {
	p := domain.NewProduct{
		Name:        strings.TrimSpace(rec.Name),
		ShopID:      shopID,
		MinQuantity: defaultMinQuantity,
	}
	var err error
	if p.Stock, err = parseCount(rec.Stock, 0); err != nil {
		return p, fmt.Errorf("stock: %w", err)
	}
	if p.MinQuantity, err = parseCount(rec.MinQuantity, defaultMinQuantity); err != nil {
		return p, fmt.Errorf("min_quantity: %w", err)
	}
	if p.Price, err = parseMoney(rec.Price); err != nil {
		return p, fmt.Errorf("price: %w", err)
	}
	if p.CostPrice, err = parseMoney(rec.CostPrice); err != nil {
		return p, fmt.Errorf("cost_price: %w", err)
	}
	return p, p.Validate()
}

func parseCount(s string, fallback int64) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback, nil
	}
	return strconv.ParseInt(s, 10, 64)
}

// parseMoney accepts a decimal point or a decimal comma.
func parseMoney(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(strings.Replace(s, ",", ".", 1))
}
