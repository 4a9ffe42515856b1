// Package sentinel evaluates user-authored watch rules (reminders) against
// the current ledger document. Each reminder type has its own firing rule;
// monthly recurrence is evaluated separately and additively.
package sentinel

import (
	"fmt"
	"time"

	"smartbudgets/internal/core"
	"smartbudgets/internal/notify"
)

// Event is a notification produced by a firing reminder.
type Event struct {
	Message  string
	Severity notify.Severity
}

// Rule decides whether an armed reminder of one type fires against the
// current document. Rules never mutate the reminder; the evaluator owns the
// trigger-state bookkeeping.
type Rule interface {
	Evaluate(st *core.FinancialState, r core.Reminder, now time.Time) (bool, Event)
}

// BudgetThresholdRule fires when spend in the reminder's category reaches
// the configured percentage of its budget limit. A missing budget or a zero
// limit never fires: there is no percentage to evaluate.
type BudgetThresholdRule struct{}

func (BudgetThresholdRule) Evaluate(st *core.FinancialState, r core.Reminder, _ time.Time) (bool, Event) {
	b, ok := st.BudgetFor(r.Category)
	if !ok || b.Limit.Cents <= 0 {
		return false, Event{}
	}
	if st.BudgetUtilization(r.Category) < r.Threshold {
		return false, Event{}
	}
	return true, Event{
		Message:  fmt.Sprintf("Sentinel Alert: %s budget reached %g%%", r.Category, r.Threshold),
		Severity: notify.SeverityWarning,
	}
}

// UpcomingExpenseRule fires when the due date is today or already past.
type UpcomingExpenseRule struct{}

func (UpcomingExpenseRule) Evaluate(_ *core.FinancialState, r core.Reminder, now time.Time) (bool, Event) {
	if !r.DueDate.SameDay(now) && !r.DueDate.Before(now) {
		return false, Event{}
	}
	return true, Event{
		Message:  fmt.Sprintf("Sentinel Alert: Upcoming outflow %q is due.", r.Title),
		Severity: notify.SeverityInfo,
	}
}

// rules maps reminder types to their firing rules. Types without an entry
// (recurring_debit, goal_milestone) carry no type rule of their own and fire
// only through the recurrence path.
var rules = map[core.ReminderType]Rule{
	core.ReminderBudgetThreshold: BudgetThresholdRule{},
	core.ReminderUpcomingExpense: UpcomingExpenseRule{},
}

// RuleFor returns the firing rule for a reminder type, if one exists.
func RuleFor(t core.ReminderType) (Rule, bool) {
	rule, ok := rules[t]
	return rule, ok
}

// RegisterRule installs a custom firing rule for a reminder type.
func RegisterRule(t core.ReminderType, rule Rule) {
	rules[t] = rule
}
