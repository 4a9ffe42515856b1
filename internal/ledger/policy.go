package ledger

import (
	"errors"

	"smartbudgets/internal/core"
)

// Origin identifies who asked for a mutation. The policy gate is evaluated
// once, centrally, before any operation touches the document.
type Origin string

const (
	OriginUser   Origin = "user"
	OriginAgent  Origin = "agent"
	OriginSystem Origin = "system"
)

// ErrHeldByPolicy is returned when an agent-originated mutation is refused
// because the user has not granted the advisor autonomy.
var ErrHeldByPolicy = errors.New("mutation held by policy")

// Policy decides whether a mutation from the given origin may be applied to
// the document. No operation bypasses it.
type Policy interface {
	CanApply(origin Origin, st *core.FinancialState) error
}

// AutonomyPolicy admits user and system mutations unconditionally; agent
// mutations require the document's advisor autonomy flag.
type AutonomyPolicy struct{}

func (AutonomyPolicy) CanApply(origin Origin, st *core.FinancialState) error {
	if origin == OriginAgent && !st.AdvisorAutonomy {
		return ErrHeldByPolicy
	}
	return nil
}
