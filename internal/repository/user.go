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

// ErrEmailTaken is returned when registering an address already in use.
var ErrEmailTaken = errors.New("email already exists")

const userColumns = `id, email, password, name, cpfCnpj, address, COALESCE(phone, '') AS phone,
	shopId, COALESCE(role, 'user') AS role, COALESCE(dateCreated, '') AS dateCreated`

type UserRepository struct {
	db    *sqlx.DB
	guard SchemaGuard
	clock clock.Clock
	log   *zap.Logger
}

func NewUserRepository(db *sqlx.DB, g SchemaGuard, c clock.Clock, logger *zap.Logger) *UserRepository {
	return &UserRepository{db: db, guard: g, clock: c, log: logging.OrNop(logger).Named("users")}
}

// Insert stores a user whose Password is already hashed. Emails are stored
// lower-cased.
func (r *UserRepository) Insert(ctx context.Context, u domain.User) (domain.User, error) {
	guard(ctx, r.guard, r.log, migrations.TableUsers)

	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.Email == "" || u.Password == "" || u.Name == "" {
		return domain.User{}, writeError("users", "insert", fmt.Errorf("%w: email, password and name are required", domain.ErrInvalid))
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Role = domain.NormalizeRole(u.Role)
	u.DateCreated = clock.Stamp(r.clock.Now())

	_, err := r.db.NamedExecContext(ctx,
		`INSERT INTO users (id, email, password, name, cpfCnpj, address, phone, shopId, role, dateCreated)
		VALUES (:id, :email, :password, :name, :cpfCnpj, :address, :phone, :shopId, :role, :dateCreated)`, u)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return domain.User{}, writeError("users", "insert", ErrEmailTaken)
		}
		r.log.Error("insert user", zap.Error(err))
		return domain.User{}, writeError("users", "insert", err)
	}
	return u, nil
}

func (r *UserRepository) ByEmail(ctx context.Context, email string) (domain.User, error) {
	guard(ctx, r.guard, r.log, migrations.TableUsers)

	var u domain.User
	err := r.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE email = ?`,
		strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.User{}, &domain.ReadError{Entity: "users", Op: "by email", Err: err}
	}
	return u, nil
}

// SetShop records the shop a user last selected.
func (r *UserRepository) SetShop(ctx context.Context, userID, shopID string) error {
	guard(ctx, r.guard, r.log, migrations.TableUsers)

	res, err := r.db.ExecContext(ctx, `UPDATE users SET shopId = ? WHERE id = ?`, shopID, userID)
	if err != nil {
		return writeError("users", "set shop", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return writeError("users", "set shop", domain.ErrNotFound)
	}
	return nil
}
