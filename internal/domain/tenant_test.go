package domain_test

import (
	"testing"
	"time"

	"github.com/neomorfeo/talladmin/internal/domain"
)

func TestNewTenant(t *testing.T) {
	contact := domain.Contact{Name: "Ada", Email: "ada@acme.io"}
	before := time.Now().UTC()
	tenant := domain.NewTenant("id-1", "Acme Corp", "acme.io", "pro", 25, contact)
	after := time.Now().UTC()

	if tenant.ID != "id-1" {
		t.Errorf("ID = %q, want %q", tenant.ID, "id-1")
	}
	if tenant.Domain != "acme.io" {
		t.Errorf("Domain = %q, want %q", tenant.Domain, "acme.io")
	}
	if tenant.Status != domain.StatusActive {
		t.Errorf("Status = %q, want %q", tenant.Status, domain.StatusActive)
	}
	if tenant.Seats != 25 || tenant.Users != 0 {
		t.Errorf("Seats/Users = %d/%d, want 25/0", tenant.Seats, tenant.Users)
	}
	if tenant.PrimaryContact != contact {
		t.Errorf("PrimaryContact = %+v, want %+v", tenant.PrimaryContact, contact)
	}
	if tenant.CreatedAt.Before(before) || tenant.CreatedAt.After(after) {
		t.Errorf("CreatedAt = %v, want between %v and %v", tenant.CreatedAt, before, after)
	}
	if tenant.UpdatedAt != tenant.CreatedAt {
		t.Errorf("UpdatedAt should equal CreatedAt on new tenant")
	}
}

func TestStatus_Valid(t *testing.T) {
	for _, s := range []domain.Status{domain.StatusActive, domain.StatusSuspended, domain.StatusDeleted} {
		if !s.Valid() {
			t.Errorf("%q.Valid() = false, want true", s)
		}
	}
	if domain.Status("archived").Valid() {
		t.Error(`"archived".Valid() = true, want false`)
	}
}

func TestTransitions_ValidPaths(t *testing.T) {
	cases := []struct {
		event domain.Event
		src   domain.Status
		dst   domain.Status
	}{
		{domain.EventSuspend, domain.StatusActive, domain.StatusSuspended},
		{domain.EventReactivate, domain.StatusSuspended, domain.StatusActive},
		{domain.EventDelete, domain.StatusActive, domain.StatusDeleted},
		{domain.EventDelete, domain.StatusSuspended, domain.StatusDeleted},
	}

	for _, tc := range cases {
		found := false
		for _, tr := range domain.Transitions {
			if tr.Event == tc.event && tr.Src == tc.src && tr.Dst == tc.dst {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("missing transition: %q from %q → %q", tc.event, tc.src, tc.dst)
		}
	}
}

func TestTransitions_InvalidPaths(t *testing.T) {
	invalid := []struct {
		event domain.Event
		src   domain.Status
	}{
		{domain.EventSuspend, domain.StatusSuspended},
		{domain.EventSuspend, domain.StatusDeleted},
		{domain.EventReactivate, domain.StatusActive},
		{domain.EventReactivate, domain.StatusDeleted},
		{domain.EventDelete, domain.StatusDeleted},
		{domain.EventCreated, domain.StatusActive},
	}

	for _, tc := range invalid {
		for _, tr := range domain.Transitions {
			if tr.Event == tc.event && tr.Src == tc.src {
				t.Errorf("unexpected transition: %q from %q should not exist", tc.event, tc.src)
			}
		}
	}
}
