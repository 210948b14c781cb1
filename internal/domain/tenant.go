package domain

import "time"

// Status represents the lifecycle state of a tenant.
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusDeleted   Status = "deleted"
)

// Valid reports whether s is one of the known lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusSuspended, StatusDeleted:
		return true
	}
	return false
}

// Event represents an action that triggers a state transition.
type Event string

const (
	EventCreated    Event = "created"
	EventSuspend    Event = "suspend"
	EventReactivate Event = "reactivate"
	EventDelete     Event = "delete"
)

// Transition defines a valid state change: an event moves a tenant from Src to Dst.
type Transition struct {
	Event Event
	Src   Status
	Dst   Status
}

// Transitions defines all valid state changes in the tenant lifecycle.
// Deleted has no outgoing transitions.
var Transitions = []Transition{
	{Event: EventSuspend, Src: StatusActive, Dst: StatusSuspended},
	{Event: EventReactivate, Src: StatusSuspended, Dst: StatusActive},
	{Event: EventDelete, Src: StatusActive, Dst: StatusDeleted},
	{Event: EventDelete, Src: StatusSuspended, Dst: StatusDeleted},
}

// Contact is the person notified about lifecycle changes of a tenant.
type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Tenant is the core domain entity representing an organization using the platform.
type Tenant struct {
	ID             string
	Name           string
	Domain         string
	Status         Status
	Plan           string
	Seats          int
	Users          int
	PrimaryContact Contact
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewTenant creates a tenant in the initial "active" state.
func NewTenant(id, name, domain, plan string, seats int, contact Contact) Tenant {
	now := time.Now().UTC()
	return Tenant{
		ID:             id,
		Name:           name,
		Domain:         domain,
		Status:         StatusActive,
		Plan:           plan,
		Seats:          seats,
		PrimaryContact: contact,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// StatusChange is the metadata recorded with every accepted lifecycle transition.
type StatusChange struct {
	Event      Event
	From       Status
	To         Status
	Reason     string
	Actor      string
	Notify     bool
	PauseJobs  bool
	ResumeJobs bool
	Archive    bool
	At         time.Time
}
