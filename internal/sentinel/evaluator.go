package sentinel

import (
	"fmt"
	"time"

	"smartbudgets/internal/core"
	"smartbudgets/internal/notify"
)

// Change records which fields of one reminder a scan modified.
type Change struct {
	ReminderID string
	Fields     []string
}

// Result is the outcome of one scan: the reminders whose trigger state
// changed, the per-reminder field changes, and the notifications to emit.
// An empty Updated slice means no write-back is needed.
type Result struct {
	Updated []core.Reminder
	Changes []Change
	Events  []Event
}

// Scan evaluates every reminder in stored order against the document and
// now. It is pure: the document is not mutated, and the same snapshot and
// timestamp always produce the same result.
//
// A non-recurring reminder fires at most once, latched by Triggered. A
// recurring reminder re-arms each calendar month, keyed by
// LastTriggeredMonth; its type rule and its recurrence are evaluated
// independently, so both may fire in the same scan. A reminder missing the
// fields its type requires is skipped, never an error.
func Scan(st *core.FinancialState, now time.Time) Result {
	var res Result
	monthKey := core.MonthKey(now)

	for _, r := range st.Reminders {
		if r.Validate() != nil {
			continue
		}

		var fields []string

		if !r.Triggered {
			if rule, ok := RuleFor(r.Type); ok {
				if fired, ev := rule.Evaluate(st, r, now); fired {
					r.Triggered = true
					fields = append(fields, "triggered")
					res.Events = append(res.Events, ev)
				}
			}
		}

		if r.Recurring && r.DayOfMonth == now.Day() && r.LastTriggeredMonth != monthKey {
			r.LastTriggeredMonth = monthKey
			fields = append(fields, "last_triggered_month")
			if !r.Triggered {
				r.Triggered = true
				fields = append(fields, "triggered")
			}
			res.Events = append(res.Events, Event{
				Message:  fmt.Sprintf("Sentinel Alert: Recurring charge %q is scheduled today.", r.Title),
				Severity: notify.SeverityInfo,
			})
		}

		if len(fields) > 0 {
			res.Updated = append(res.Updated, r)
			res.Changes = append(res.Changes, Change{ReminderID: r.ID, Fields: fields})
		}
	}

	return res
}
