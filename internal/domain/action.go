package domain

import (
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
)

// DefaultRetention is how long archived tenant data is kept after deletion.
const DefaultRetention = 90 * 24 * time.Hour

// ActionRequest carries the operator input for one lifecycle transition attempt.
type ActionRequest struct {
	Reason        string `json:"reason"`
	NotifyContact bool   `json:"notify_contact"`
	PauseJobs     bool   `json:"pause_jobs"`
	ResumeJobs    bool   `json:"resume_jobs"`
	ArchiveData   bool   `json:"archive_data"`
	ConfirmText   string `json:"confirm_text"`
	Confirmed     bool   `json:"confirmed"`
	Actor         string `json:"actor"`
}

// Check evaluates the guard of the given event against the tenant. Every
// failing condition is reported at once in a *ValidationError.
func (r ActionRequest) Check(event Event, tenant Tenant) error {
	rules := []*validation.FieldRules{
		validation.Field(&r.Reason, validation.By(notBlank)),
		validation.Field(&r.Confirmed, validation.By(acknowledged)),
	}
	if event == EventDelete {
		rules = append(rules, validation.Field(&r.ConfirmText, validation.By(exactly(tenant.Name))))
	}

	if err := validation.ValidateStruct(&r, rules...); err != nil {
		return newValidationError(err)
	}
	return nil
}

// Change builds the status change record for an accepted transition.
func (r ActionRequest) Change(event Event, from, to Status, at time.Time) StatusChange {
	return StatusChange{
		Event:      event,
		From:       from,
		To:         to,
		Reason:     strings.TrimSpace(r.Reason),
		Actor:      r.Actor,
		Notify:     r.NotifyContact,
		PauseJobs:  event == EventSuspend && r.PauseJobs,
		ResumeJobs: event == EventReactivate && r.ResumeJobs,
		Archive:    event == EventDelete && r.ArchiveData,
		At:         at,
	}
}

func notBlank(value any) error {
	s, _ := value.(string)
	if strings.TrimSpace(s) == "" {
		return errors.New("cannot be blank")
	}
	return nil
}

func acknowledged(value any) error {
	if ok, _ := value.(bool); !ok {
		return errors.New("must be confirmed")
	}
	return nil
}

// exactly matches case- and whitespace-sensitively.
func exactly(want string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if want == "" || s != want {
			return errors.New("must match the tenant name exactly")
		}
		return nil
	}
}
