package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/neomorfeo/talladmin/internal/domain"
)

var _ domain.CredentialService = (*AccountStore)(nil)

// AccountStore implements domain.CredentialService over the accounts table.
// Passwords are stored as bcrypt hashes.
type AccountStore struct {
	db   *sql.DB
	cost int
}

// NewAccountStore returns a credential store on a database already migrated
// by New or NewFromDB.
func NewAccountStore(db *sql.DB) *AccountStore {
	return &AccountStore{db: db, cost: bcrypt.DefaultCost}
}

// WithCost sets the bcrypt cost used for new hashes.
func (s *AccountStore) WithCost(cost int) *AccountStore {
	s.cost = cost
	return s
}

// EnsureAccount creates the account if it does not exist yet. An existing
// account keeps its password.
func (s *AccountStore) EnsureAccount(ctx context.Context, email, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	now := time.Now().UTC().Format(timeFormat)
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO accounts (email, password_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (email) DO NOTHING`,
		domain.NormalizeEmail(email), string(hash), now, now,
	)
	if err != nil {
		return fmt.Errorf("inserting account: %w", err)
	}
	return nil
}

func (s *AccountStore) VerifyIdentity(ctx context.Context, email string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM accounts WHERE email = ?`, domain.NormalizeEmail(email),
	).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("looking up account: %w", err)
	}
	return true, nil
}

func (s *AccountStore) VerifyPassword(ctx context.Context, email, password string) (bool, error) {
	var hash string
	err := s.db.QueryRowContext(ctx,
		`SELECT password_hash FROM accounts WHERE email = ?`, domain.NormalizeEmail(email),
	).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("looking up account: %w", err)
	}

	err = bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("comparing password: %w", err)
	}
	return true, nil
}

// SetPassword replaces the account's password. Unknown accounts fail with
// domain.ErrInvalidCredentials.
func (s *AccountStore) SetPassword(ctx context.Context, email, newPassword string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.cost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET password_hash = ?, updated_at = ? WHERE email = ?`,
		string(hash), time.Now().UTC().Format(timeFormat), domain.NormalizeEmail(email),
	)
	if err != nil {
		return fmt.Errorf("updating password: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrInvalidCredentials
	}
	return nil
}
