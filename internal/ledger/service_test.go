package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"smartbudgets/internal/core"
	"smartbudgets/internal/notify"
	"smartbudgets/internal/store"
)

type recordingNotifier struct {
	events []notify.Event
}

func (r *recordingNotifier) Notify(_ context.Context, userID, message string, severity notify.Severity) {
	r.events = append(r.events, notify.Event{UserID: userID, Message: message, Severity: severity})
}

func newTestService(t *testing.T) (*Service, *recordingNotifier) {
	t.Helper()
	m := store.NewMemoryStore()
	st := core.NewState(core.Money{Cents: 450000}, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
	if err := m.SaveState(context.Background(), "u1", st); err != nil {
		t.Fatalf("seed state: %v", err)
	}
	rec := &recordingNotifier{}
	return NewService(m, rec, AutonomyPolicy{}), rec
}

func expense(id string, cents int64, cat core.Category) core.Expense {
	return core.Expense{
		ID: id, Amount: core.Money{Cents: cents}, Category: cat,
		Description: "test expense", Date: time.Now(),
	}
}

func TestAddExpenseRejectsDuplicateID(t *testing.T) {
	ctx := context.Background()
	svc, rec := newTestService(t)

	if err := svc.AddExpense(ctx, OriginUser, "u1", expense("e1", 100, core.CategoryFood)); err != nil {
		t.Fatalf("first add: %v", err)
	}
	err := svc.AddExpense(ctx, OriginUser, "u1", expense("e1", 200, core.CategoryFood))
	if !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}

	st, _ := svc.State(ctx, "u1")
	if len(st.Expenses) != 1 {
		t.Errorf("expected 1 expense, got %d", len(st.Expenses))
	}
	// The rejection emitted nothing.
	if len(rec.events) != 1 {
		t.Errorf("expected 1 notification, got %d", len(rec.events))
	}
}

func TestAddExpenseBudgetOverflowNotification(t *testing.T) {
	ctx := context.Background()
	svc, rec := newTestService(t)

	// Food seed budget is 500.00; a 600.00 expense overruns it.
	if err := svc.AddExpense(ctx, OriginUser, "u1", expense("e1", 60000, core.CategoryFood)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if len(rec.events) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(rec.events))
	}
	ev := rec.events[0]
	if ev.Severity != notify.SeverityWarning {
		t.Errorf("severity = %s, want warning", ev.Severity)
	}
	if !strings.Contains(ev.Message, "Budget exceeded for Food!") {
		t.Errorf("unexpected message %q", ev.Message)
	}
	if !strings.Contains(ev.Message, "$600.00") || !strings.Contains(ev.Message, "$500.00") {
		t.Errorf("message should carry totals: %q", ev.Message)
	}
	if !strings.Contains(ev.Message, "over by $100.00") {
		t.Errorf("message should carry the overage: %q", ev.Message)
	}

	// Overage is total minus limit, not the expense amount.
	rec.events = nil
	if err := svc.UpdateBudget(ctx, OriginUser, "u1", core.CategoryTransport, core.Money{Cents: 5000}); err != nil {
		t.Fatalf("budget: %v", err)
	}
	if err := svc.AddExpense(ctx, OriginUser, "u1", expense("e3", 6000, core.CategoryTransport)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if got := rec.events[len(rec.events)-1]; !strings.Contains(got.Message, "over by $10.00") {
		t.Errorf("overage missing from %q", got.Message)
	}

	// A category without a budget gets a plain success, never a warning.
	rec.events = nil
	if err := svc.AddExpense(ctx, OriginUser, "u1", expense("e2", 99999999, core.CategoryOthers)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if len(rec.events) != 1 || rec.events[0].Severity != notify.SeveritySuccess {
		t.Fatalf("expected a single success, got %+v", rec.events)
	}
}

func TestDeleteExpenseMissingIDIsSilentNoop(t *testing.T) {
	ctx := context.Background()
	svc, rec := newTestService(t)

	if err := svc.DeleteExpense(ctx, OriginUser, "u1", "ghost"); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(rec.events) != 0 {
		t.Errorf("expected no notifications, got %+v", rec.events)
	}
}

func TestUpdateBudgetUpsertsByCategory(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	if err := svc.UpdateBudget(ctx, OriginUser, "u1", core.CategoryFood, core.Money{Cents: 77700}); err != nil {
		t.Fatalf("update existing: %v", err)
	}
	if err := svc.UpdateBudget(ctx, OriginUser, "u1", core.CategoryHealth, core.Money{Cents: 10000}); err != nil {
		t.Fatalf("insert new: %v", err)
	}

	st, _ := svc.State(ctx, "u1")
	seen := map[core.Category]int{}
	for _, b := range st.Budgets {
		seen[b.Category]++
	}
	for cat, n := range seen {
		if n != 1 {
			t.Errorf("category %s appears %d times", cat, n)
		}
	}
	if b, _ := st.BudgetFor(core.CategoryFood); b.Limit.Cents != 77700 {
		t.Errorf("food limit = %d, want 77700", b.Limit.Cents)
	}
}

func TestIncomeSourceSumInvariant(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	check := func(step string) {
		t.Helper()
		st, _ := svc.State(ctx, "u1")
		if st.MonthlyIncome != st.IncomeSourceTotal() {
			t.Fatalf("%s: monthly income %d != source sum %d",
				step, st.MonthlyIncome.Cents, st.IncomeSourceTotal().Cents)
		}
	}

	if err := svc.AddIncomeSource(ctx, OriginUser, "u1", core.IncomeSource{ID: "s1", Name: "Consulting", Amount: core.Money{Cents: 50000}}); err != nil {
		t.Fatalf("add s1: %v", err)
	}
	check("after add s1")

	if err := svc.AddIncomeSource(ctx, OriginUser, "u1", core.IncomeSource{ID: "s2", Name: "Dividends", Amount: core.Money{Cents: 20000}}); err != nil {
		t.Fatalf("add s2: %v", err)
	}
	check("after add s2")

	if err := svc.DeleteIncomeSource(ctx, OriginUser, "u1", "s1"); err != nil {
		t.Fatalf("delete s1: %v", err)
	}
	check("after delete s1")
}

func TestUpdateIncomeCollapsesToPrimary(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	if err := svc.AddIncomeSource(ctx, OriginUser, "u1", core.IncomeSource{ID: "s1", Name: "Consulting", Amount: core.Money{Cents: 50000}}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := svc.UpdateIncome(ctx, OriginUser, "u1", core.Money{Cents: 600000}); err != nil {
		t.Fatalf("update income: %v", err)
	}

	st, _ := svc.State(ctx, "u1")
	if len(st.IncomeSources) != 1 || st.IncomeSources[0].Name != "Primary" {
		t.Fatalf("expected single Primary source, got %+v", st.IncomeSources)
	}
	if st.MonthlyIncome.Cents != 600000 {
		t.Errorf("income = %d, want 600000", st.MonthlyIncome.Cents)
	}
}

func TestIncomeHistoryCapFIFO(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	base := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 13; i++ {
		month := base.AddDate(0, i, 0)
		svc.SetClock(func() time.Time { return month })
		if err := svc.UpdateIncome(ctx, OriginUser, "u1", core.Money{Cents: int64(100000 + i)}); err != nil {
			t.Fatalf("update %d: %v", i, err)
		}
	}

	st, _ := svc.State(ctx, "u1")
	if len(st.IncomeHistory) != core.MaxIncomeHistory {
		t.Fatalf("history length = %d, want %d", len(st.IncomeHistory), core.MaxIncomeHistory)
	}
	// The account's seed entry and January 2025 were evicted; February
	// 2025 is now the oldest.
	if st.IncomeHistory[0].Month != "Feb 2025" {
		t.Errorf("oldest = %s, want Feb 2025", st.IncomeHistory[0].Month)
	}
	if st.IncomeHistory[len(st.IncomeHistory)-1].Month != "Jan 2026" {
		t.Errorf("newest = %s, want Jan 2026", st.IncomeHistory[len(st.IncomeHistory)-1].Month)
	}
}

func TestContributeToGoal(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	goal := core.Goal{
		ID: "g1", Name: "Emergency Fund", TargetAmount: core.Money{Cents: 100000},
		Category: core.CategorySavings, CreatedAt: time.Now(),
	}
	if err := svc.AddGoal(ctx, OriginUser, "u1", goal); err != nil {
		t.Fatalf("add goal: %v", err)
	}

	before, _ := svc.State(ctx, "u1")
	spentBefore := before.TotalSpent()

	if err := svc.ContributeToGoal(ctx, OriginUser, "u1", "g1", core.Money{Cents: 5000}, "exp-c1"); err != nil {
		t.Fatalf("contribute: %v", err)
	}

	st, _ := svc.State(ctx, "u1")
	g, ok := st.GoalByID("g1")
	if !ok || g.CurrentAmount.Cents != 5000 {
		t.Fatalf("current = %+v, want 5000", g.CurrentAmount)
	}
	if got := st.TotalSpent().Sub(spentBefore); got.Cents != 5000 {
		t.Errorf("total spent delta = %d, want 5000", got.Cents)
	}

	var savings []core.Expense
	for _, e := range st.Expenses {
		if e.Category == core.CategorySavings {
			savings = append(savings, e)
		}
	}
	if len(savings) != 1 || savings[0].Amount.Cents != 5000 {
		t.Fatalf("expected one synthetic Savings expense of 5000, got %+v", savings)
	}
	if !strings.Contains(savings[0].Description, "Emergency Fund") {
		t.Errorf("description should reference the goal: %q", savings[0].Description)
	}

	// Contribution to a nonexistent goal is a silent no-op.
	if err := svc.ContributeToGoal(ctx, OriginUser, "u1", "ghost", core.Money{Cents: 100}, "exp-c2"); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

func TestAgentMutationsGatedByAutonomy(t *testing.T) {
	ctx := context.Background()
	svc, rec := newTestService(t)

	err := svc.AddExpense(ctx, OriginAgent, "u1", expense("e1", 100, core.CategoryFood))
	if !errors.Is(err, ErrHeldByPolicy) {
		t.Fatalf("expected ErrHeldByPolicy, got %v", err)
	}
	st, _ := svc.State(ctx, "u1")
	if len(st.Expenses) != 0 {
		t.Fatal("held mutation must not touch the document")
	}
	if len(rec.events) != 0 {
		t.Fatal("held mutation must not notify")
	}

	if err := svc.SetAutonomy(ctx, "u1", true); err != nil {
		t.Fatalf("set autonomy: %v", err)
	}
	if err := svc.AddExpense(ctx, OriginAgent, "u1", expense("e1", 100, core.CategoryFood)); err != nil {
		t.Fatalf("agent add with autonomy: %v", err)
	}
}

func TestAddReminderAlwaysStartsArmed(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	r := core.Reminder{
		ID: "r1", Type: core.ReminderBudgetThreshold, Title: "food watch",
		Category: core.CategoryFood, Threshold: 80,
		Triggered: true, LastTriggeredMonth: "2026-7",
		CreatedAt: time.Now(),
	}
	if err := svc.AddReminder(ctx, OriginUser, "u1", r); err != nil {
		t.Fatalf("add: %v", err)
	}

	st, _ := svc.State(ctx, "u1")
	got, ok := st.ReminderByID("r1")
	if !ok {
		t.Fatal("reminder not stored")
	}
	if got.Triggered || got.LastTriggeredMonth != "" {
		t.Errorf("reminder must start armed: %+v", got)
	}
}

func TestApplyReminderUpdatesSkipsDeleted(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	r := core.Reminder{
		ID: "r1", Type: core.ReminderUpcomingExpense, Title: "rent",
		DueDate: core.NewDate(2026, 8, 1), CreatedAt: time.Now(),
	}
	if err := svc.AddReminder(ctx, OriginUser, "u1", r); err != nil {
		t.Fatalf("add: %v", err)
	}

	r.Triggered = true
	ghost := core.Reminder{ID: "ghost", Triggered: true}
	if err := svc.ApplyReminderUpdates(ctx, "u1", []core.Reminder{r, ghost}); err != nil {
		t.Fatalf("apply: %v", err)
	}

	st, _ := svc.State(ctx, "u1")
	got, _ := st.ReminderByID("r1")
	if !got.Triggered {
		t.Error("update not applied")
	}
	if _, ok := st.ReminderByID("ghost"); ok {
		t.Error("batch write resurrected a deleted reminder")
	}
}

func TestOnChangeFiresAfterAcceptedMutation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	var kicked []string
	svc.OnChange(func(userID string) { kicked = append(kicked, userID) })

	if err := svc.AddExpense(ctx, OriginUser, "u1", expense("e1", 100, core.CategoryFood)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := svc.DeleteExpense(ctx, OriginUser, "u1", "ghost"); err != nil {
		t.Fatalf("noop delete: %v", err)
	}

	if len(kicked) != 1 || kicked[0] != "u1" {
		t.Errorf("expected one kick for u1, got %v", kicked)
	}
}

func TestValidationRejectionEmitsNothing(t *testing.T) {
	ctx := context.Background()
	svc, rec := newTestService(t)

	bad := core.Expense{ID: "e1", Amount: core.Money{Cents: -5}, Category: core.CategoryFood, Description: "x"}
	if err := svc.AddExpense(ctx, OriginUser, "u1", bad); err == nil {
		t.Fatal("expected validation error")
	}
	if len(rec.events) != 0 {
		t.Errorf("expected no notifications, got %+v", rec.events)
	}

	st, _ := svc.State(ctx, "u1")
	if len(st.Expenses) != 0 {
		t.Error("rejected mutation must not touch the document")
	}
}

func TestUniquenessAcrossCollections(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("e%d", i)
		if err := svc.AddExpense(ctx, OriginUser, "u1", expense(id, 100, core.CategoryFood)); err != nil {
			t.Fatalf("add %s: %v", id, err)
		}
	}
	if err := svc.AddGoal(ctx, OriginUser, "u1", core.Goal{
		ID: "g1", Name: "Trip", TargetAmount: core.Money{Cents: 1000},
		Category: core.CategorySavings, CreatedAt: time.Now(),
	}); err != nil {
		t.Fatalf("add goal: %v", err)
	}
	if err := svc.AddGoal(ctx, OriginUser, "u1", core.Goal{
		ID: "g1", Name: "Trip again", TargetAmount: core.Money{Cents: 1000},
		Category: core.CategorySavings, CreatedAt: time.Now(),
	}); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}

	st, _ := svc.State(ctx, "u1")
	ids := map[string]bool{}
	for _, e := range st.Expenses {
		if ids[e.ID] {
			t.Fatalf("duplicate expense id %s", e.ID)
		}
		ids[e.ID] = true
	}
}
