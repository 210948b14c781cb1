package fsm

import (
	"context"
	"errors"

	loopfsm "github.com/looplab/fsm"

	"github.com/neomorfeo/talladmin/internal/domain"
)

// Compile-time check: Validator implements domain.TransitionValidator.
var _ domain.TransitionValidator = (*Validator)(nil)

// edge is one row of a transition table, independent of its domain types.
type edge struct {
	name string
	src  string
	dst  string
}

// buildEvents converts a transition table into looplab/fsm EventDesc format.
// Rows sharing event and destination are merged into a single EventDesc with
// multiple source states (delete from "active" and "suspended" both go to
// "deleted").
func buildEvents(edges []edge) []loopfsm.EventDesc {
	type key struct {
		event string
		dst   string
	}
	grouped := make(map[key][]string)
	order := make([]key, 0)

	for _, e := range edges {
		k := key{event: e.name, dst: e.dst}
		if _, exists := grouped[k]; !exists {
			order = append(order, k)
		}
		grouped[k] = append(grouped[k], e.src)
	}

	out := make([]loopfsm.EventDesc, 0, len(order))
	for _, k := range order {
		out = append(out, loopfsm.EventDesc{
			Name: k.event,
			Src:  grouped[k],
			Dst:  k.dst,
		})
	}
	return out
}

var tenantEvents = buildEvents(tenantEdges())

func tenantEdges() []edge {
	out := make([]edge, 0, len(domain.Transitions))
	for _, t := range domain.Transitions {
		out = append(out, edge{name: string(t.Event), src: string(t.Src), dst: string(t.Dst)})
	}
	return out
}

// fire runs event on a fresh machine positioned at current and reports the
// resulting state. ok is false when the table has no such move. Self-loops
// succeed with the state unchanged.
func fire(ctx context.Context, events []loopfsm.EventDesc, current, event string) (string, bool, error) {
	machine := loopfsm.NewFSM(current, events, nil)

	if err := machine.Event(ctx, event); err != nil {
		var noTransition loopfsm.NoTransitionError
		if errors.As(err, &noTransition) {
			return current, true, nil
		}
		var invalidEvent loopfsm.InvalidEventError
		var unknownEvent loopfsm.UnknownEventError
		if errors.As(err, &invalidEvent) || errors.As(err, &unknownEvent) {
			return "", false, nil
		}
		return "", false, err
	}
	return machine.Current(), true, nil
}

// Validator implements domain.TransitionValidator over the tenant
// lifecycle table. Each Apply positions a fresh machine at the stored status.
type Validator struct{}

func New() *Validator {
	return &Validator{}
}

// Apply returns the status event leads to from current, or a
// *domain.TransitionError when the lifecycle has no such move.
func (v *Validator) Apply(ctx context.Context, current domain.Status, event domain.Event) (domain.Status, error) {
	dst, ok, err := fire(ctx, tenantEvents, string(current), string(event))
	if err != nil {
		return "", err
	}
	if !ok {
		return "", &domain.TransitionError{
			Event:   event,
			Current: current,
		}
	}
	return domain.Status(dst), nil
}
