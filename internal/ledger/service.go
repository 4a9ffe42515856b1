// Package ledger implements the mutation API over per-user financial state
// documents. Every operation loads the document, applies a validated change
// and replaces the document wholesale; a single writer per user is enforced
// so no partial write is ever observable.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"smartbudgets/internal/core"
	"smartbudgets/internal/notify"
	"smartbudgets/internal/store"
)

// ErrDuplicateID rejects a record whose id already exists in its collection.
var ErrDuplicateID = errors.New("duplicate id")

type event struct {
	message  string
	severity notify.Severity
}

// Service is the single mutation path into the ledger. The UI, the advisor
// bridge and the sentinel engine all go through it; nothing mutates a stored
// document directly.
type Service struct {
	store    store.DocumentStore
	notifier notify.Notifier
	policy   Policy
	now      func() time.Time

	mu       sync.Mutex
	locks    map[string]*sync.Mutex
	onChange func(userID string)
}

func NewService(st store.DocumentStore, notifier notify.Notifier, policy Policy) *Service {
	if notifier == nil {
		notifier = notify.Discard{}
	}
	if policy == nil {
		policy = AutonomyPolicy{}
	}
	return &Service{
		store:    st,
		notifier: notifier,
		policy:   policy,
		now:      time.Now,
		locks:    make(map[string]*sync.Mutex),
	}
}

// OnChange registers a callback invoked after every accepted mutation, used
// to kick the sentinel engine into an immediate re-scan. Must be called
// before the service handles traffic.
func (s *Service) OnChange(fn func(userID string)) {
	s.onChange = fn
}

// SetClock overrides the time source. Tests only.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Service) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	return l
}

// mutate runs one operation under the user's write lock. fn reports whether
// it changed the document; an unchanged document is never written back, and
// a validation error leaves the store untouched with no notification.
func (s *Service) mutate(ctx context.Context, origin Origin, userID, op string, fn func(st *core.FinancialState) (bool, []event, error)) error {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	st, err := s.store.LoadState(ctx, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.policy.CanApply(origin, st); err != nil {
		slog.InfoContext(ctx, "Mutation held",
			"operation", op,
			"origin", string(origin),
			"user_id", userID)
		return err
	}

	changed, events, err := fn(st)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	if err := s.store.SaveState(ctx, userID, st); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	slog.DebugContext(ctx, "Mutation applied",
		"operation", op,
		"origin", string(origin),
		"user_id", userID)

	for _, ev := range events {
		s.notifier.Notify(ctx, userID, ev.message, ev.severity)
	}
	if s.onChange != nil {
		s.onChange(userID)
	}
	return nil
}

// State returns a point-in-time copy of the user's document.
func (s *Service) State(ctx context.Context, userID string) (*core.FinancialState, error) {
	st, err := s.store.LoadState(ctx, userID)
	if err != nil {
		return nil, err
	}
	return st.Clone(), nil
}

// AddExpense validates and prepends an expense. When the category carries a
// budget and the new total exceeds its limit, the notification is a warning
// naming the overage; otherwise it is a plain success.
func (s *Service) AddExpense(ctx context.Context, origin Origin, userID string, e core.Expense) error {
	return s.mutate(ctx, origin, userID, "add expense", func(st *core.FinancialState) (bool, []event, error) {
		if err := e.Validate(); err != nil {
			return false, nil, err
		}
		for _, existing := range st.Expenses {
			if existing.ID == e.ID {
				return false, nil, ErrDuplicateID
			}
		}

		var ev event
		if b, ok := st.BudgetFor(e.Category); ok {
			totalNew := st.SpentInCategory(e.Category).Add(e.Amount)
			if totalNew.Cents > b.Limit.Cents {
				overage := totalNew.Sub(b.Limit)
				ev = event{
					message: fmt.Sprintf("Budget exceeded for %s! (%s > %s, over by %s)",
						e.Category, totalNew.Format(st.Currency), b.Limit.Format(st.Currency), overage.Format(st.Currency)),
					severity: notify.SeverityWarning,
				}
			} else {
				ev = event{
					message:  fmt.Sprintf("Logged: %s (%s)", e.Description, e.Amount.Format(st.Currency)),
					severity: notify.SeveritySuccess,
				}
			}
		} else {
			ev = event{
				message:  fmt.Sprintf("Expense added to %s", e.Category),
				severity: notify.SeveritySuccess,
			}
		}

		st.Expenses = append([]core.Expense{e}, st.Expenses...)
		return true, []event{ev}, nil
	})
}

// DeleteExpense removes an expense by id. A missing id is a silent no-op.
func (s *Service) DeleteExpense(ctx context.Context, origin Origin, userID, id string) error {
	return s.mutate(ctx, origin, userID, "delete expense", func(st *core.FinancialState) (bool, []event, error) {
		for i, e := range st.Expenses {
			if e.ID == id {
				st.Expenses = append(st.Expenses[:i], st.Expenses[i+1:]...)
				return true, []event{{"Expense record deleted", notify.SeverityInfo}}, nil
			}
		}
		return false, nil, nil
	})
}

// UpdateBudget upserts the budget for a category. Category is the natural
// key; the collection never holds two entries for the same category.
func (s *Service) UpdateBudget(ctx context.Context, origin Origin, userID string, category core.Category, limit core.Money) error {
	return s.mutate(ctx, origin, userID, "update budget", func(st *core.FinancialState) (bool, []event, error) {
		b := core.Budget{Category: category, Limit: limit}
		if err := b.Validate(); err != nil {
			return false, nil, err
		}

		replaced := false
		for i := range st.Budgets {
			if st.Budgets[i].Category == category {
				st.Budgets[i].Limit = limit
				replaced = true
				break
			}
		}
		if !replaced {
			st.Budgets = append(st.Budgets, b)
		}

		ev := event{
			message:  fmt.Sprintf("%s budget set to %s", category, limit.Format(st.Currency)),
			severity: notify.SeveritySuccess,
		}
		return true, []event{ev}, nil
	})
}

// AddIncomeSource appends a source and re-derives the monthly total so that
// the sum-of-sources invariant holds, then upserts the current month's
// history entry.
func (s *Service) AddIncomeSource(ctx context.Context, origin Origin, userID string, src core.IncomeSource) error {
	return s.mutate(ctx, origin, userID, "add income source", func(st *core.FinancialState) (bool, []event, error) {
		if err := src.Validate(); err != nil {
			return false, nil, err
		}
		for _, existing := range st.IncomeSources {
			if existing.ID == src.ID {
				return false, nil, ErrDuplicateID
			}
		}

		st.IncomeSources = append(st.IncomeSources, src)
		st.MonthlyIncome = st.IncomeSourceTotal()
		st.RecordIncomeMonth(s.now())

		ev := event{
			message:  fmt.Sprintf("Yield stream %q deployed", src.Name),
			severity: notify.SeveritySuccess,
		}
		return true, []event{ev}, nil
	})
}

// DeleteIncomeSource removes a source by id and re-derives the monthly
// total. A missing id is a silent no-op.
func (s *Service) DeleteIncomeSource(ctx context.Context, origin Origin, userID, id string) error {
	return s.mutate(ctx, origin, userID, "delete income source", func(st *core.FinancialState) (bool, []event, error) {
		for i, src := range st.IncomeSources {
			if src.ID == id {
				st.IncomeSources = append(st.IncomeSources[:i], st.IncomeSources[i+1:]...)
				st.MonthlyIncome = st.IncomeSourceTotal()
				st.RecordIncomeMonth(s.now())
				return true, []event{{"Yield stream removed", notify.SeverityInfo}}, nil
			}
		}
		return false, nil, nil
	})
}

// UpdateIncome sets the monthly total directly, collapsing every income
// source into a single "Primary" source carrying the new amount.
func (s *Service) UpdateIncome(ctx context.Context, origin Origin, userID string, amount core.Money) error {
	return s.mutate(ctx, origin, userID, "update income", func(st *core.FinancialState) (bool, []event, error) {
		if amount.Cents < 0 {
			return false, nil, core.ErrInvalidAmount
		}

		st.MonthlyIncome = amount
		st.IncomeSources = []core.IncomeSource{
			{ID: "primary", Name: "Primary", Amount: amount},
		}
		st.RecordIncomeMonth(s.now())

		return true, []event{{"Monthly yield projections updated", notify.SeveritySuccess}}, nil
	})
}

// AddGoal prepends a goal with zero progress.
func (s *Service) AddGoal(ctx context.Context, origin Origin, userID string, g core.Goal) error {
	return s.mutate(ctx, origin, userID, "add goal", func(st *core.FinancialState) (bool, []event, error) {
		g.CurrentAmount = core.Money{}
		if err := g.Validate(); err != nil {
			return false, nil, err
		}
		for _, existing := range st.Goals {
			if existing.ID == g.ID {
				return false, nil, ErrDuplicateID
			}
		}

		st.Goals = append([]core.Goal{g}, st.Goals...)
		ev := event{
			message:  fmt.Sprintf("Objective %q created", g.Name),
			severity: notify.SeveritySuccess,
		}
		return true, []event{ev}, nil
	})
}

// ContributeToGoal increases a goal's progress and records a synthetic
// Savings expense for the same amount, so goal funding shows up in spend
// accounting. A missing goal is a silent no-op.
func (s *Service) ContributeToGoal(ctx context.Context, origin Origin, userID, goalID string, amount core.Money, expenseID string) error {
	return s.mutate(ctx, origin, userID, "contribute to goal", func(st *core.FinancialState) (bool, []event, error) {
		if amount.Cents <= 0 {
			return false, nil, core.ErrInvalidAmount
		}

		for i := range st.Goals {
			if st.Goals[i].ID != goalID {
				continue
			}
			st.Goals[i].CurrentAmount = st.Goals[i].CurrentAmount.Add(amount)

			st.Expenses = append([]core.Expense{{
				ID:          expenseID,
				Amount:      amount,
				Category:    core.CategorySavings,
				Description: fmt.Sprintf("Contribution to %s", st.Goals[i].Name),
				Date:        s.now(),
			}}, st.Expenses...)

			ev := event{
				message:  fmt.Sprintf("Funded %q with %s", st.Goals[i].Name, amount.Format(st.Currency)),
				severity: notify.SeveritySuccess,
			}
			return true, []event{ev}, nil
		}
		return false, nil, nil
	})
}

// DeleteGoal removes a goal by id. A missing id is a silent no-op.
func (s *Service) DeleteGoal(ctx context.Context, origin Origin, userID, id string) error {
	return s.mutate(ctx, origin, userID, "delete goal", func(st *core.FinancialState) (bool, []event, error) {
		for i, g := range st.Goals {
			if g.ID == id {
				st.Goals = append(st.Goals[:i], st.Goals[i+1:]...)
				return true, []event{{"Objective removed", notify.SeverityInfo}}, nil
			}
		}
		return false, nil, nil
	})
}

// AddReminder validates per the reminder's type and prepends it, armed.
func (s *Service) AddReminder(ctx context.Context, origin Origin, userID string, r core.Reminder) error {
	return s.mutate(ctx, origin, userID, "add reminder", func(st *core.FinancialState) (bool, []event, error) {
		r.Triggered = false
		r.LastTriggeredMonth = ""
		if err := r.Validate(); err != nil {
			return false, nil, err
		}
		for _, existing := range st.Reminders {
			if existing.ID == r.ID {
				return false, nil, ErrDuplicateID
			}
		}

		st.Reminders = append([]core.Reminder{r}, st.Reminders...)
		ev := event{
			message:  fmt.Sprintf("Sentinel %q deployed", r.Title),
			severity: notify.SeveritySuccess,
		}
		return true, []event{ev}, nil
	})
}

// DeleteReminder removes a reminder by id. A missing id is a silent no-op.
func (s *Service) DeleteReminder(ctx context.Context, origin Origin, userID, id string) error {
	return s.mutate(ctx, origin, userID, "delete reminder", func(st *core.FinancialState) (bool, []event, error) {
		for i, r := range st.Reminders {
			if r.ID == id {
				st.Reminders = append(st.Reminders[:i], st.Reminders[i+1:]...)
				return true, []event{{"Sentinel decommissioned", notify.SeverityInfo}}, nil
			}
		}
		return false, nil, nil
	})
}

// ApplyReminderUpdates writes back the batched trigger-state changes from a
// sentinel scan. Only reminders still present in the document are touched;
// a reminder deleted mid-scan is simply dropped from the batch.
func (s *Service) ApplyReminderUpdates(ctx context.Context, userID string, updated []core.Reminder) error {
	if len(updated) == 0 {
		return nil
	}
	byID := make(map[string]core.Reminder, len(updated))
	for _, r := range updated {
		byID[r.ID] = r
	}

	return s.mutate(ctx, OriginSystem, userID, "apply reminder updates", func(st *core.FinancialState) (bool, []event, error) {
		changed := false
		for i := range st.Reminders {
			r, ok := byID[st.Reminders[i].ID]
			if !ok {
				continue
			}
			if st.Reminders[i].Triggered != r.Triggered ||
				st.Reminders[i].LastTriggeredMonth != r.LastTriggeredMonth {
				st.Reminders[i].Triggered = r.Triggered
				st.Reminders[i].LastTriggeredMonth = r.LastTriggeredMonth
				changed = true
			}
		}
		return changed, nil, nil
	})
}

// UpdateCurrency switches the document's display currency.
func (s *Service) UpdateCurrency(ctx context.Context, origin Origin, userID string, c core.Currency) error {
	return s.mutate(ctx, origin, userID, "update currency", func(st *core.FinancialState) (bool, []event, error) {
		if !c.IsValid() {
			return false, nil, fmt.Errorf("unknown currency %q", c)
		}
		if st.Currency == c {
			return false, nil, nil
		}
		st.Currency = c
		ev := event{
			message:  fmt.Sprintf("Base currency initialized: %s", c),
			severity: notify.SeverityInfo,
		}
		return true, []event{ev}, nil
	})
}

// UpdateTheme switches the interface theme.
func (s *Service) UpdateTheme(ctx context.Context, origin Origin, userID string, t core.Theme) error {
	return s.mutate(ctx, origin, userID, "update theme", func(st *core.FinancialState) (bool, []event, error) {
		if t != core.ThemeLight && t != core.ThemeDark {
			return false, nil, fmt.Errorf("unknown theme %q", t)
		}
		if st.Theme == t {
			return false, nil, nil
		}
		st.Theme = t
		ev := event{
			message:  fmt.Sprintf("Interface adjusted to %s mode", t),
			severity: notify.SeverityInfo,
		}
		return true, []event{ev}, nil
	})
}

// UpdatePreferences replaces the notification preference set.
func (s *Service) UpdatePreferences(ctx context.Context, origin Origin, userID string, p core.NotificationPreferences) error {
	return s.mutate(ctx, origin, userID, "update preferences", func(st *core.FinancialState) (bool, []event, error) {
		st.Preferences = p
		return true, []event{{"Notification preferences synchronized", notify.SeveritySuccess}}, nil
	})
}

// SetAutonomy flips the advisor autonomy flag. Always user-originated; the
// agent cannot grant itself autonomy.
func (s *Service) SetAutonomy(ctx context.Context, userID string, enabled bool) error {
	return s.mutate(ctx, OriginUser, userID, "set autonomy", func(st *core.FinancialState) (bool, []event, error) {
		if st.AdvisorAutonomy == enabled {
			return false, nil, nil
		}
		st.AdvisorAutonomy = enabled
		msg := "Advisor autonomy revoked"
		if enabled {
			msg = "Advisor autonomy granted"
		}
		return true, []event{{msg, notify.SeverityInfo}}, nil
	})
}
