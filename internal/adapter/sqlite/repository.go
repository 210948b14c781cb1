package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pressly/goose/v3"

	"github.com/neomorfeo/talladmin/internal/domain"

	_ "modernc.org/sqlite" // Register SQLite driver.
)

//go:embed migrations/*.sql
var migrations embed.FS

// Compile-time check: TenantRepository implements domain.TenantRepository.
var _ domain.TenantRepository = (*TenantRepository)(nil)

// TenantRepository implements domain.TenantRepository using SQLite.
type TenantRepository struct {
	db *sql.DB
}

// New opens a SQLite database, runs migrations, and returns a ready repository.
func New(dataSourceName string) (*TenantRepository, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Every connection to ":memory:" is a separate database.
	if strings.Contains(dataSourceName, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	// Enable foreign keys (off by default in SQLite).
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	return NewFromDB(db)
}

// NewFromDB wraps an existing database connection, runs migrations, and returns a ready repository.
// Use this when the *sql.DB has been pre-configured (e.g., with otelsql instrumentation).
func NewFromDB(db *sql.DB) (*TenantRepository, error) {
	if err := runMigrations(db); err != nil {
		return nil, err
	}

	return &TenantRepository{db: db}, nil
}

// Close closes the underlying database connection.
func (r *TenantRepository) Close() error {
	return r.db.Close()
}

// DB returns the underlying database connection for use by other adapters (e.g., river).
func (r *TenantRepository) DB() *sql.DB {
	return r.db
}

func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	return nil
}

// Fixed width so that lexical order matches chronological order.
const timeFormat = "2006-01-02T15:04:05.000000Z"

const tenantColumns = `id, name, domain, status, plan, seats, users,
	contact_name, contact_email, contact_phone, created_at, updated_at`

func (r *TenantRepository) Create(ctx context.Context, t domain.Tenant) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tenants (`+tenantColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.Domain, string(t.Status), t.Plan, t.Seats, t.Users,
		t.PrimaryContact.Name, t.PrimaryContact.Email, t.PrimaryContact.Phone,
		t.CreatedAt.UTC().Format(timeFormat),
		t.UpdatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &domain.DomainConflictError{Domain: t.Domain}
		}
		return fmt.Errorf("inserting tenant: %w", err)
	}
	return nil
}

func (r *TenantRepository) GetByID(ctx context.Context, id string) (domain.Tenant, error) {
	return scanTenant(r.db.QueryRowContext(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE id = ?`, id,
	))
}

func (r *TenantRepository) GetByDomain(ctx context.Context, d string) (domain.Tenant, error) {
	return scanTenant(r.db.QueryRowContext(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE domain = ?`, d,
	))
}

func (r *TenantRepository) List(ctx context.Context, filter domain.ListFilter) ([]domain.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants`
	var args []any

	if filter.Status != nil {
		query += ` WHERE status = ?`
		args = append(args, string(*filter.Status))
	} else {
		query += ` WHERE status <> ?`
		args = append(args, string(domain.StatusDeleted))
	}

	query += ` ORDER BY created_at DESC, id`

	// SQLite only accepts OFFSET after a LIMIT; -1 means no limit.
	limit := -1
	if filter.Limit > 0 {
		limit = filter.Limit
	}
	query += ` LIMIT ? OFFSET ?`
	args = append(args, limit, max(filter.Offset, 0))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing tenants: %w", err)
	}
	defer rows.Close()

	tenants := make([]domain.Tenant, 0)
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}

	return tenants, rows.Err()
}

// SetStatus moves the tenant from change.From to change.To and appends the
// change to its history in one transaction.
func (r *TenantRepository) SetStatus(ctx context.Context, id string, change domain.StatusChange) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning status change: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	at := change.At.UTC().Format(timeFormat)

	result, err := tx.ExecContext(ctx,
		`UPDATE tenants SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(change.To), at, id, string(change.From),
	)
	if err != nil {
		return fmt.Errorf("updating tenant status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		var exists int
		if scanErr := tx.QueryRowContext(ctx, `SELECT 1 FROM tenants WHERE id = ?`, id).Scan(&exists); scanErr != nil {
			if errors.Is(scanErr, sql.ErrNoRows) {
				return domain.ErrTenantNotFound
			}
			return fmt.Errorf("checking tenant: %w", scanErr)
		}
		return domain.ErrStatusConflict
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO tenant_status_changes
		 (tenant_id, event, from_status, to_status, reason, actor, notify, pause_jobs, resume_jobs, archive, changed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, string(change.Event), string(change.From), string(change.To), change.Reason, change.Actor,
		change.Notify, change.PauseJobs, change.ResumeJobs, change.Archive, at,
	)
	if err != nil {
		return fmt.Errorf("recording status change: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing status change: %w", err)
	}
	return nil
}

// History returns the tenant's status changes, oldest first.
func (r *TenantRepository) History(ctx context.Context, id string) ([]domain.StatusChange, error) {
	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT event, from_status, to_status, reason, actor, notify, pause_jobs, resume_jobs, archive, changed_at
		 FROM tenant_status_changes WHERE tenant_id = ? ORDER BY id`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("listing status changes: %w", err)
	}
	defer rows.Close()

	changes := make([]domain.StatusChange, 0)
	for rows.Next() {
		var c domain.StatusChange
		var event, from, to, at string
		if err := rows.Scan(&event, &from, &to, &c.Reason, &c.Actor,
			&c.Notify, &c.PauseJobs, &c.ResumeJobs, &c.Archive, &at); err != nil {
			return nil, fmt.Errorf("scanning status change: %w", err)
		}
		c.Event = domain.Event(event)
		c.From = domain.Status(from)
		c.To = domain.Status(to)
		c.At, _ = time.Parse(timeFormat, at)
		changes = append(changes, c)
	}

	return changes, rows.Err()
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTenant(row scanner) (domain.Tenant, error) {
	var t domain.Tenant
	var status, createdAt, updatedAt string

	err := row.Scan(&t.ID, &t.Name, &t.Domain, &status, &t.Plan, &t.Seats, &t.Users,
		&t.PrimaryContact.Name, &t.PrimaryContact.Email, &t.PrimaryContact.Phone,
		&createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Tenant{}, domain.ErrTenantNotFound
		}
		return domain.Tenant{}, fmt.Errorf("scanning tenant: %w", err)
	}

	t.Status = domain.Status(status)
	t.CreatedAt, _ = time.Parse(timeFormat, createdAt)
	t.UpdatedAt, _ = time.Parse(timeFormat, updatedAt)

	return t, nil
}

// isUniqueViolation checks if a SQLite error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
