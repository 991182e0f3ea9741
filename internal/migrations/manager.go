// Package migrations owns the lifecycle of the embedded schema: creating the
// canonical tables, bringing legacy shapes up to date and repairing missing
// columns on demand.
//
// Schema versions are implicit. Every run introspects the live columns and
// matches each table against an ordered list of shapes (absent, canonical,
// additive, legacy); there is no migration ledger.
package migrations

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"vilapos/m/domain"
	"vilapos/m/internal/clock"
	"vilapos/m/internal/logging"
)

// State is the lifecycle state of a Manager.
type State int32

const (
	StateUninitialized State = iota
	StateMigrating
	StateReady
	// StateDegraded means the full migration failed and only the fallback
	// tables were ensured.
	StateDegraded
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateMigrating:
		return "migrating"
	case StateReady:
		return "ready"
	case StateDegraded:
		return "degraded"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Manager serializes all schema work of a process. The first EnsureReady runs
// the full migration; later calls only repair missing columns.
type Manager struct {
	db     *sqlx.DB
	tables []Table
	clock  clock.Clock
	log    *zap.Logger

	// sem is a one-slot semaphore; holding it grants exclusive schema access.
	sem   chan struct{}
	state atomic.Int32
}

// NewManager returns a manager for the canonical Registry tables.
func NewManager(db *sqlx.DB, logger *zap.Logger) *Manager {
	return &Manager{
		db:     db,
		tables: Registry(),
		clock:  clock.System{},
		log:    logging.OrNop(logger).Named("schema"),
		sem:    make(chan struct{}, 1),
	}
}

// WithClock sets the clock that stamps timestamp columns filled during a
// migration. Use the same clock as the repositories.
func (m *Manager) WithClock(c clock.Clock) *Manager {
	m.clock = c
	return m
}

// stamped returns tables with timestamp fills bound to the current time.
func (m *Manager) stamped(tables []Table) []Table {
	return stampTables(tables, clock.Stamp(m.clock.Now()))
}

// State reports the current lifecycle state.
func (m *Manager) State() State {
	return State(m.state.Load())
}

func (m *Manager) setState(s State) {
	m.state.Store(int32(s))
}

func (m *Manager) acquire(ctx context.Context) error {
	select {
	case m.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) release() {
	<-m.sem
}

// EnsureReady brings the schema to its canonical shape. It is idempotent and
// safe to call concurrently: a caller arriving while another run is in
// progress waits for it, then performs the lightweight column check.
//
// Migration failures are logged and recovered by creating any absent table;
// the returned error is non-nil only when that fallback fails too.
func (m *Manager) EnsureReady(ctx context.Context) error {
	if err := m.acquire(ctx); err != nil {
		return err
	}
	defer m.release()

	if m.State() == StateUninitialized {
		return m.initialize(ctx)
	}
	return m.ensureColumns(ctx, m.tables)
}

// EnsureTable confirms a single table exists with its additive columns. It
// runs the full migration first if this process has not done so yet.
func (m *Manager) EnsureTable(ctx context.Context, name string) error {
	t, ok := m.table(name)
	if !ok {
		return &domain.SchemaError{Table: name, Op: "lookup", Err: errors.New("unknown table")}
	}
	if err := m.acquire(ctx); err != nil {
		return err
	}
	defer m.release()

	if m.State() == StateUninitialized {
		return m.initialize(ctx)
	}
	return m.ensureColumns(ctx, []Table{t})
}

func (m *Manager) table(name string) (Table, bool) {
	for _, t := range m.tables {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}

// initialize runs the full migration and the fallback. Caller holds sem.
func (m *Manager) initialize(ctx context.Context) error {
	m.setState(StateMigrating)

	err := m.migrate(ctx)
	if err == nil {
		m.setState(StateReady)
		m.log.Info("schema ready")
		return nil
	}

	m.log.Error("schema migration failed, ensuring basic tables", zap.Error(err))
	m.setState(StateDegraded)
	if ferr := m.ensureBasicTables(ctx); ferr != nil {
		m.log.Error("fallback table creation failed", zap.Error(ferr))
		return ferr
	}
	m.log.Warn("fallback tables ensured; legacy data left untouched")
	return nil
}

// migrate classifies and converts every table inside one transaction.
func (m *Manager) migrate(ctx context.Context) (err error) {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return &domain.SchemaError{Table: "*", Op: "begin", Err: err}
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				m.log.Error("rollback failed", zap.Error(rerr))
			}
		}
	}()

	tables := m.stamped(m.tables)
	for _, t := range tables {
		cols, ierr := tableColumns(ctx, tx, t.Name)
		if ierr != nil {
			return &domain.SchemaError{Table: t.Name, Op: "inspect", Err: ierr}
		}
		shape := classify(t, cols)
		if shape.Name != ShapeCanonical {
			m.log.Info("migrating table",
				zap.String("table", t.Name),
				zap.String("shape", shape.Name),
				zap.Strings("missing", t.Missing(cols)))
		}
		if aerr := shape.Apply(ctx, tx, t, cols); aerr != nil {
			return &domain.SchemaError{Table: t.Name, Op: shape.Name, Err: aerr}
		}
	}

	for _, t := range tables {
		for _, stmt := range t.IndexSQL() {
			if _, xerr := tx.ExecContext(ctx, stmt); xerr != nil {
				return &domain.SchemaError{Table: t.Name, Op: "index", Err: xerr}
			}
		}
	}

	if cerr := tx.Commit(); cerr != nil {
		return &domain.SchemaError{Table: "*", Op: "commit", Err: cerr}
	}
	return nil
}

// ensureBasicTables creates wholly absent tables. Legacy tables are left as
// they are; index failures are logged and skipped.
func (m *Manager) ensureBasicTables(ctx context.Context) error {
	for _, t := range m.tables {
		if _, err := m.db.ExecContext(ctx, t.CreateSQL(t.Name)); err != nil {
			return &domain.SchemaError{Table: t.Name, Op: "create", Err: err}
		}
	}
	m.ensureIndexes(ctx, m.tables)
	return nil
}

// ensureColumns is the lightweight check: create absent tables and add
// additive columns. Tables that need a rebuild are reported, not rebuilt.
// Canonical tables cost one introspection and no DDL.
func (m *Manager) ensureColumns(ctx context.Context, tables []Table) error {
	var (
		errs     []error
		repaired []Table
	)
	for _, t := range m.stamped(tables) {
		cols, err := tableColumns(ctx, m.db, t.Name)
		if err != nil {
			errs = append(errs, &domain.SchemaError{Table: t.Name, Op: "inspect", Err: err})
			continue
		}
		shape := classify(t, cols)
		if shape.Rebuild {
			errs = append(errs, &domain.SchemaError{
				Table: t.Name,
				Op:    "check",
				Err:   fmt.Errorf("missing required columns %v", t.Missing(cols)),
			})
			continue
		}
		if shape.Name == ShapeCanonical {
			continue
		}
		if err := m.applyAlone(ctx, t, shape, cols); err != nil {
			errs = append(errs, &domain.SchemaError{Table: t.Name, Op: shape.Name, Err: err})
			continue
		}
		repaired = append(repaired, t)
		m.log.Info("repaired table", zap.String("table", t.Name), zap.String("shape", shape.Name))
	}
	m.ensureIndexes(ctx, repaired)
	return errors.Join(errs...)
}

func (m *Manager) applyAlone(ctx context.Context, t Table, shape Shape, cols columnSet) error {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := shape.Apply(ctx, tx, t, cols); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (m *Manager) ensureIndexes(ctx context.Context, tables []Table) {
	for _, t := range tables {
		for _, stmt := range t.IndexSQL() {
			if _, err := m.db.ExecContext(ctx, stmt); err != nil {
				m.log.Warn("index not created", zap.String("table", t.Name), zap.Error(err))
			}
		}
	}
}

// Reset drops the named tables and runs the full migration again, as a fresh
// process would. Data in the dropped tables is lost.
func (m *Manager) Reset(ctx context.Context, names ...string) error {
	for _, name := range names {
		if _, ok := m.table(name); !ok {
			return &domain.SchemaError{Table: name, Op: "lookup", Err: errors.New("unknown table")}
		}
	}
	if err := m.acquire(ctx); err != nil {
		return err
	}
	defer m.release()

	for _, name := range names {
		if _, err := m.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+name); err != nil {
			return &domain.SchemaError{Table: name, Op: "drop", Err: err}
		}
		m.log.Warn("table dropped", zap.String("table", name))
	}
	m.setState(StateUninitialized)
	return m.initialize(ctx)
}

// TableReport describes how a live table relates to its canonical shape.
type TableReport struct {
	Table   string   `json:"table"`
	Shape   string   `json:"shape"`
	Missing []string `json:"missing,omitempty"`
}

// Inspect classifies every table without changing anything.
func (m *Manager) Inspect(ctx context.Context) ([]TableReport, error) {
	if err := m.acquire(ctx); err != nil {
		return nil, err
	}
	defer m.release()

	reports := make([]TableReport, 0, len(m.tables))
	for _, t := range m.tables {
		cols, err := tableColumns(ctx, m.db, t.Name)
		if err != nil {
			return nil, &domain.SchemaError{Table: t.Name, Op: "inspect", Err: err}
		}
		reports = append(reports, TableReport{
			Table:   t.Name,
			Shape:   classify(t, cols).Name,
			Missing: t.Missing(cols),
		})
	}
	return reports, nil
}
