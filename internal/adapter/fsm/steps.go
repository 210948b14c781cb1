package fsm

import (
	"context"

	loopfsm "github.com/looplab/fsm"

	"github.com/neomorfeo/talladmin/internal/domain"
)

var _ domain.StepValidator = (*StepValidator)(nil)

var stepEvents = map[domain.FlowKind][]loopfsm.EventDesc{
	domain.FlowLogin:    buildEvents(stepEdges(domain.LoginSteps)),
	domain.FlowRecovery: buildEvents(stepEdges(domain.RecoverySteps)),
}

func stepEdges(table []domain.StepTransition) []edge {
	out := make([]edge, 0, len(table))
	for _, t := range table {
		out = append(out, edge{name: string(t.Action), src: string(t.Src), dst: string(t.Dst)})
	}
	return out
}

// StepValidator implements domain.StepValidator over the login and recovery
// step tables.
type StepValidator struct{}

// NewSteps creates a new FSM-backed step validator.
func NewSteps() *StepValidator {
	return &StepValidator{}
}

// Next returns the step the flow moves to when action is taken at current.
// Returns a domain.StepError if the action is not allowed there.
func (v *StepValidator) Next(ctx context.Context, kind domain.FlowKind, current domain.Step, action domain.Action) (domain.Step, error) {
	events, found := stepEvents[kind]
	if !found {
		return "", &domain.StepError{Action: action, Step: current}
	}

	dst, ok, err := fire(ctx, events, string(current), string(action))
	if err != nil {
		return "", err
	}
	if !ok {
		return "", &domain.StepError{Action: action, Step: current}
	}
	return domain.Step(dst), nil
}
