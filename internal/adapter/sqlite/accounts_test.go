package sqlite_test

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/neomorfeo/talladmin/internal/adapter/sqlite"
	"github.com/neomorfeo/talladmin/internal/domain"
)

func newTestAccounts(t *testing.T) *sqlite.AccountStore {
	t.Helper()
	repo := newTestRepo(t)
	store := sqlite.NewAccountStore(repo.DB()).WithCost(bcrypt.MinCost)
	if err := store.EnsureAccount(context.Background(), "Ops@Talladmin.io", "s3cret"); err != nil {
		t.Fatalf("EnsureAccount failed: %v", err)
	}
	return store
}

func TestAccountStore_VerifyIdentity(t *testing.T) {
	store := newTestAccounts(t)
	ctx := context.Background()

	ok, err := store.VerifyIdentity(ctx, "ops@talladmin.io")
	if err != nil || !ok {
		t.Errorf("VerifyIdentity(known) = %v, %v; want true, nil", ok, err)
	}

	ok, err = store.VerifyIdentity(ctx, "who@talladmin.io")
	if err != nil || ok {
		t.Errorf("VerifyIdentity(unknown) = %v, %v; want false, nil", ok, err)
	}
}

func TestAccountStore_VerifyPassword(t *testing.T) {
	store := newTestAccounts(t)
	ctx := context.Background()

	ok, err := store.VerifyPassword(ctx, " OPS@talladmin.io ", "s3cret")
	if err != nil || !ok {
		t.Errorf("VerifyPassword(correct) = %v, %v; want true, nil", ok, err)
	}

	ok, err = store.VerifyPassword(ctx, "ops@talladmin.io", "wrong")
	if err != nil || ok {
		t.Errorf("VerifyPassword(wrong) = %v, %v; want false, nil", ok, err)
	}

	ok, err = store.VerifyPassword(ctx, "who@talladmin.io", "s3cret")
	if err != nil || ok {
		t.Errorf("VerifyPassword(unknown) = %v, %v; want false, nil", ok, err)
	}
}

func TestAccountStore_EnsureAccountKeepsPassword(t *testing.T) {
	store := newTestAccounts(t)
	ctx := context.Background()

	if err := store.EnsureAccount(ctx, "ops@talladmin.io", "other"); err != nil {
		t.Fatalf("EnsureAccount failed: %v", err)
	}

	ok, _ := store.VerifyPassword(ctx, "ops@talladmin.io", "s3cret")
	if !ok {
		t.Error("existing password was overwritten")
	}
}

func TestAccountStore_SetPassword(t *testing.T) {
	store := newTestAccounts(t)
	ctx := context.Background()

	if err := store.SetPassword(ctx, "ops@talladmin.io", "n3w-secret"); err != nil {
		t.Fatalf("SetPassword failed: %v", err)
	}

	if ok, _ := store.VerifyPassword(ctx, "ops@talladmin.io", "s3cret"); ok {
		t.Error("old password still accepted")
	}
	if ok, _ := store.VerifyPassword(ctx, "ops@talladmin.io", "n3w-secret"); !ok {
		t.Error("new password rejected")
	}

	err := store.SetPassword(ctx, "who@talladmin.io", "x")
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}
