package executor

import (
	"context"
	"fmt"
	"strings"

	"promptq/internal/queue"
)

// Action is one of the four ways a failed submission can be resolved.
type Action string

const (
	ActionRetry   Action = "retry"
	ActionSkip    Action = "skip"
	ActionRequeue Action = "requeue"
	ActionCancel  Action = "cancel"
)

// ParseAction converts a string into a known Action.
func ParseAction(value string) (Action, bool) {
	switch Action(strings.ToLower(strings.TrimSpace(value))) {
	case ActionRetry:
		return ActionRetry, true
	case ActionSkip:
		return ActionSkip, true
	case ActionRequeue:
		return ActionRequeue, true
	case ActionCancel:
		return ActionCancel, true
	default:
		return "", false
	}
}

// Resolution is the decision made for one failed submission. Delay asks the
// runner to wait its configured retry delay before the next attempt.
type Resolution struct {
	Action Action
	Delay  bool
}

// Failure describes a failed submission handed to the Resolver.
type Failure struct {
	Item       *queue.Item
	Unit       queue.Subtask
	UnitIndex  int
	TotalUnits int
	Attempt    int
	Err        error
}

// Resolver decides how the run proceeds after a failed submission.
type Resolver interface {
	Resolve(ctx context.Context, failure Failure) (Resolution, error)
}

// policyMaxRetries bounds unattended retry loops before escalating.
const policyMaxRetries = 3

// PolicyResolver applies a fixed action without user interaction. A retry
// policy waits the runner's retry delay between attempts and cancels the run
// once the attempt budget is spent.
type PolicyResolver struct {
	Action     Action
	MaxRetries int
}

// NewPolicyResolver builds a resolver for the given action name.
func NewPolicyResolver(action string) (*PolicyResolver, error) {
	parsed, ok := ParseAction(action)
	if !ok {
		return nil, fmt.Errorf("unknown failure action %q (want retry, skip, requeue, or cancel)", action)
	}
	return &PolicyResolver{Action: parsed, MaxRetries: policyMaxRetries}, nil
}

// Resolve applies the fixed policy.
func (p *PolicyResolver) Resolve(ctx context.Context, failure Failure) (Resolution, error) {
	if p.Action == ActionRetry {
		budget := p.MaxRetries
		if budget <= 0 {
			budget = policyMaxRetries
		}
		if failure.Attempt >= budget {
			return Resolution{Action: ActionCancel}, nil
		}
		return Resolution{Action: ActionRetry, Delay: true}, nil
	}
	return Resolution{Action: p.Action}, nil
}
