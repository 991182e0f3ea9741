// Package repository holds the shop-scoped data access for products and sales
// and the identity tables behind the HTTP API.
//
// Every operation confirms its table through a SchemaGuard first. Read
// failures are logged and produce empty results; write failures are returned
// as *domain.WriteError.
package repository

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"vilapos/m/domain"
	"vilapos/m/internal/clock"
)

// SchemaGuard confirms a table has its required columns before use.
// *migrations.Manager satisfies it.
type SchemaGuard interface {
	EnsureTable(ctx context.Context, table string) error
}

// guard runs the schema check. A failed check is logged and the operation
// goes ahead; the query itself reports anything that is really broken.
func guard(ctx context.Context, g SchemaGuard, log *zap.Logger, table string) {
	if g == nil {
		return
	}
	if err := g.EnsureTable(ctx, table); err != nil {
		log.Warn("schema check failed", zap.String("table", table), zap.Error(err))
	}
}

func readFailed(log *zap.Logger, entity, op string, err error) {
	log.Error("read failed", zap.Error(&domain.ReadError{Entity: entity, Op: op, Err: err}))
}

func writeError(entity, op string, err error) error {
	return &domain.WriteError{Entity: entity, Op: op, Err: err}
}

// normalizeDate accepts the stored layout, a bare day or RFC 3339 and
// returns the stored layout. An empty value yields now.
func normalizeDate(value string, now func() time.Time) (string, error) {
	if value == "" {
		return clock.Stamp(now()), nil
	}
	if _, err := time.Parse(clock.Layout, value); err == nil {
		return value, nil
	}
	if t, err := time.Parse(clock.DateLayout, value); err == nil {
		return clock.Stamp(t), nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return clock.Stamp(t.In(now().Location())), nil
	}
	return "", fmt.Errorf("%w: date %q is not in %s form", domain.ErrInvalid, value, clock.Layout)
}
