package sentinel

import (
	"testing"
	"time"

	"smartbudgets/internal/core"
	"smartbudgets/internal/notify"
)

func thresholdState(spentCents, limitCents int64, threshold float64, triggered bool) *core.FinancialState {
	return &core.FinancialState{
		Expenses: []core.Expense{
			{ID: "e1", Amount: core.Money{Cents: spentCents}, Category: core.CategoryFood, Description: "x", Date: time.Now()},
		},
		Budgets: []core.Budget{
			{Category: core.CategoryFood, Limit: core.Money{Cents: limitCents}},
		},
		Reminders: []core.Reminder{
			{
				ID: "r1", Type: core.ReminderBudgetThreshold, Title: "food watch",
				Category: core.CategoryFood, Threshold: threshold,
				Triggered: triggered, CreatedAt: time.Now(),
			},
		},
	}
}

func TestThresholdFiresOnce(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	// First scan at 85% of an 80% threshold fires.
	st := thresholdState(8500, 10000, 80, false)
	res := Scan(st, now)
	if len(res.Updated) != 1 || !res.Updated[0].Triggered {
		t.Fatalf("expected one fired reminder, got %+v", res.Updated)
	}
	if len(res.Events) != 1 || res.Events[0].Severity != notify.SeverityWarning {
		t.Fatalf("expected one warning event, got %+v", res.Events)
	}

	// Second scan at higher spend with the latch set stays quiet.
	st = thresholdState(9000, 10000, 80, true)
	res = Scan(st, now)
	if len(res.Updated) != 0 || len(res.Events) != 0 {
		t.Fatalf("latched reminder fired again: %+v", res)
	}
}

func TestThresholdBelowLimitStaysArmed(t *testing.T) {
	st := thresholdState(5000, 10000, 80, false)
	res := Scan(st, time.Now())
	if len(res.Updated) != 0 {
		t.Fatalf("expected no change, got %+v", res.Updated)
	}
}

func TestZeroLimitNeverFires(t *testing.T) {
	// Huge spend against a zero limit: no percentage exists to evaluate.
	st := thresholdState(99999999, 0, 1, false)
	res := Scan(st, time.Now())
	if len(res.Updated) != 0 || len(res.Events) != 0 {
		t.Fatalf("zero-limit budget fired: %+v", res)
	}

	// Same without any budget at all.
	st.Budgets = nil
	res = Scan(st, time.Now())
	if len(res.Updated) != 0 {
		t.Fatalf("missing budget fired: %+v", res)
	}
}

func TestUpcomingExpenseDueness(t *testing.T) {
	now := time.Date(2026, 8, 28, 15, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		due   core.Date
		fires bool
	}{
		{"due today", core.NewDate(2026, 8, 28), true},
		{"overdue", core.NewDate(2026, 8, 1), true},
		{"due tomorrow", core.NewDate(2026, 8, 29), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := &core.FinancialState{
				Reminders: []core.Reminder{
					{
						ID: "r1", Type: core.ReminderUpcomingExpense, Title: "rent",
						DueDate: tt.due, CreatedAt: now,
					},
				},
			}
			res := Scan(st, now)
			fired := len(res.Updated) == 1
			if fired != tt.fires {
				t.Errorf("fired = %v, want %v", fired, tt.fires)
			}
			if fired && res.Events[0].Severity != notify.SeverityInfo {
				t.Errorf("severity = %s, want info", res.Events[0].Severity)
			}
		})
	}
}

func TestRecurringReArm(t *testing.T) {
	reminder := core.Reminder{
		ID: "r1", Type: core.ReminderRecurringDebit, Title: "gym",
		Category: core.CategoryHealth, Recurring: true, DayOfMonth: 15,
		CreatedAt: time.Now(),
	}
	st := &core.FinancialState{Reminders: []core.Reminder{reminder}}

	// Fires on the 15th.
	res := Scan(st, time.Date(2026, 8, 15, 9, 0, 0, 0, time.UTC))
	if len(res.Updated) != 1 {
		t.Fatalf("expected fire on the 15th, got %+v", res.Updated)
	}
	fired := res.Updated[0]
	if fired.LastTriggeredMonth != "2026-8" || !fired.Triggered {
		t.Fatalf("unexpected trigger state: %+v", fired)
	}

	// Later the same day: already keyed to this month, stays quiet.
	st.Reminders[0] = fired
	res = Scan(st, time.Date(2026, 8, 15, 22, 0, 0, 0, time.UTC))
	if len(res.Updated) != 0 {
		t.Fatalf("re-fired within the month: %+v", res.Updated)
	}

	// Wrong day next month: quiet.
	res = Scan(st, time.Date(2026, 9, 14, 9, 0, 0, 0, time.UTC))
	if len(res.Updated) != 0 {
		t.Fatalf("fired on wrong day: %+v", res.Updated)
	}

	// The 15th of the following month: fires again despite Triggered.
	res = Scan(st, time.Date(2026, 9, 15, 9, 0, 0, 0, time.UTC))
	if len(res.Updated) != 1 || res.Updated[0].LastTriggeredMonth != "2026-9" {
		t.Fatalf("expected re-arm in September, got %+v", res.Updated)
	}
}

func TestRecurringAndThresholdFireIndependently(t *testing.T) {
	st := thresholdState(9000, 10000, 80, false)
	st.Reminders[0].Recurring = true
	st.Reminders[0].DayOfMonth = 28

	res := Scan(st, time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC))
	if len(res.Updated) != 1 {
		t.Fatalf("expected one updated reminder, got %d", len(res.Updated))
	}
	if len(res.Events) != 2 {
		t.Fatalf("expected two events (threshold + recurrence), got %+v", res.Events)
	}
	got := res.Updated[0]
	if !got.Triggered || got.LastTriggeredMonth != "2026-8" {
		t.Fatalf("both fields should update: %+v", got)
	}
	if len(res.Changes) != 1 || len(res.Changes[0].Fields) != 2 {
		t.Fatalf("expected two field changes, got %+v", res.Changes)
	}
}

func TestMalformedReminderSkipped(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	st := &core.FinancialState{
		Budgets: []core.Budget{{Category: core.CategoryFood, Limit: core.Money{Cents: 100}}},
		Expenses: []core.Expense{
			{ID: "e1", Amount: core.Money{Cents: 99999}, Category: core.CategoryFood, Description: "x", Date: now},
		},
		Reminders: []core.Reminder{
			// Threshold reminder with no category: unevaluable, skipped.
			{ID: "bad", Type: core.ReminderBudgetThreshold, Threshold: 10, CreatedAt: now},
			// A healthy one right behind it still fires.
			{ID: "good", Type: core.ReminderBudgetThreshold, Category: core.CategoryFood, Threshold: 10, CreatedAt: now},
		},
	}

	res := Scan(st, now)
	if len(res.Updated) != 1 || res.Updated[0].ID != "good" {
		t.Fatalf("expected only the valid reminder to fire, got %+v", res.Updated)
	}
}

func TestScanDoesNotMutateSnapshot(t *testing.T) {
	st := thresholdState(9000, 10000, 80, false)
	Scan(st, time.Now())
	if st.Reminders[0].Triggered {
		t.Fatal("scan mutated the snapshot")
	}
}

func TestScanQuietWhenNothingChanges(t *testing.T) {
	st := &core.FinancialState{
		Reminders: []core.Reminder{
			{ID: "r1", Type: core.ReminderUpcomingExpense, Title: "later",
				DueDate: core.NewDate(2030, 1, 1), CreatedAt: time.Now()},
		},
	}
	res := Scan(st, time.Now())
	if len(res.Updated) != 0 || len(res.Changes) != 0 || len(res.Events) != 0 {
		t.Fatalf("expected empty result, got %+v", res)
	}
}
