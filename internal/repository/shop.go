package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"vilapos/m/domain"
	"vilapos/m/internal/clock"
	"vilapos/m/internal/logging"
	"vilapos/m/internal/migrations"
)

const shopColumns = `id, name, COALESCE(description, '') AS description, address,
	COALESCE(phone, '') AS phone, ownerId, COALESCE(dateCreated, '') AS dateCreated`

type ShopRepository struct {
	db    *sqlx.DB
	guard SchemaGuard
	clock clock.Clock
	log   *zap.Logger
}

func NewShopRepository(db *sqlx.DB, g SchemaGuard, c clock.Clock, logger *zap.Logger) *ShopRepository {
	return &ShopRepository{db: db, guard: g, clock: c, log: logging.OrNop(logger).Named("shops")}
}

// Insert creates a shop with a fresh id and returns it as stored.
func (r *ShopRepository) Insert(ctx context.Context, s domain.Shop) (domain.Shop, error) {
	guard(ctx, r.guard, r.log, migrations.TableShops)

	s.Name = strings.TrimSpace(s.Name)
	if s.Name == "" {
		return domain.Shop{}, writeError("shops", "insert", fmt.Errorf("%w: name is required", domain.ErrInvalid))
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	s.DateCreated = clock.Stamp(r.clock.Now())

	_, err := r.db.NamedExecContext(ctx,
		`INSERT INTO shops (id, name, description, address, phone, ownerId, dateCreated)
		VALUES (:id, :name, :description, :address, :phone, :ownerId, :dateCreated)`, s)
	if err != nil {
		r.log.Error("insert shop", zap.String("owner", s.OwnerID), zap.Error(err))
		return domain.Shop{}, writeError("shops", "insert", err)
	}
	return s, nil
}

func (r *ShopRepository) Get(ctx context.Context, id string) (domain.Shop, error) {
	guard(ctx, r.guard, r.log, migrations.TableShops)

	var s domain.Shop
	err := r.db.GetContext(ctx, &s, `SELECT `+shopColumns+` FROM shops WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Shop{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Shop{}, &domain.ReadError{Entity: "shops", Op: "get", Err: err}
	}
	return s, nil
}

// ListByOwner returns the shops owned by a user, oldest first.
func (r *ShopRepository) ListByOwner(ctx context.Context, ownerID string) []domain.Shop {
	guard(ctx, r.guard, r.log, migrations.TableShops)

	shops := []domain.Shop{}
	err := r.db.SelectContext(ctx, &shops,
		`SELECT `+shopColumns+` FROM shops WHERE ownerId = ? ORDER BY dateCreated ASC, name ASC`, ownerID)
	if err != nil {
		readFailed(r.log, "shops", "list", err)
		return []domain.Shop{}
	}
	return shops
}
