package advisor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"smartbudgets/internal/core"
	"smartbudgets/internal/ledger"
)

// Outcome reports what happened to one directive.
type Outcome struct {
	Directive Directive `json:"directive"`
	Status    string    `json:"status"` // applied, held, rejected, skipped
	Detail    string    `json:"detail"`
}

// ChatResult is the full response to one advisor exchange.
type ChatResult struct {
	Text     string    `json:"text"`
	Outcomes []Outcome `json:"outcomes,omitempty"`
}

// Bridge connects the advisor to the mutation API. Every directive goes
// through the ledger as an agent-originated call; the bridge never touches
// a document directly, so the autonomy gate is enforced in exactly one
// place.
type Bridge struct {
	ledger  *ledger.Service
	advisor Advisor
	now     func() time.Time
}

func NewBridge(l *ledger.Service, a Advisor) *Bridge {
	return &Bridge{ledger: l, advisor: a, now: time.Now}
}

// Chat runs one advisor exchange: snapshot the document, ask the model, and
// execute any directives it attached.
func (b *Bridge) Chat(ctx context.Context, userID, query string) (ChatResult, error) {
	st, err := b.ledger.State(ctx, userID)
	if err != nil {
		return ChatResult{}, err
	}

	reply, err := b.advisor.Advise(ctx, st, query)
	if err != nil {
		return ChatResult{}, err
	}

	result := ChatResult{Text: reply.Text}
	if len(reply.Directives) > 0 {
		result.Outcomes = b.Execute(ctx, userID, st, reply.Directives)
		for _, o := range result.Outcomes {
			if o.Status == "held" {
				result.Text += "\n\n**PROTOCOL HOLD**: Autonomy disabled. Enable advisor autonomy to allow automated execution."
				break
			}
		}
	}
	return result, nil
}

// Execute applies each directive through the mutation API. The snapshot is
// only used for name-based lookups; the ledger re-validates everything under
// its own lock.
func (b *Bridge) Execute(ctx context.Context, userID string, st *core.FinancialState, directives []Directive) []Outcome {
	outcomes := make([]Outcome, 0, len(directives))
	for _, d := range directives {
		outcomes = append(outcomes, b.execute(ctx, userID, st, d))
	}
	return outcomes
}

func (b *Bridge) execute(ctx context.Context, userID string, st *core.FinancialState, d Directive) Outcome {
	var err error
	var detail string

	switch d.Op {
	case OpSetIncome:
		detail = fmt.Sprintf("Synchronize total yield -> %.2f", d.Amount)
		err = b.ledger.UpdateIncome(ctx, ledger.OriginAgent, userID, majorToCents(d.Amount))

	case OpAddIncomeSource:
		detail = fmt.Sprintf("Deploy yield stream [%s]", d.Name)
		err = b.ledger.AddIncomeSource(ctx, ledger.OriginAgent, userID, core.IncomeSource{
			ID:     uuid.NewString(),
			Name:   d.Name,
			Amount: majorToCents(d.Amount),
		})

	case OpDeleteIncomeSource:
		detail = fmt.Sprintf("Neutralize yield stream [%s]", d.Name)
		src, ok := findIncomeSource(st, d.Name)
		if !ok {
			return Outcome{Directive: d, Status: "skipped", Detail: fmt.Sprintf("Stream [%s] not found", d.Name)}
		}
		err = b.ledger.DeleteIncomeSource(ctx, ledger.OriginAgent, userID, src.ID)

	case OpSetBudget:
		detail = fmt.Sprintf("Adjust %s -> %.2f", d.Category, d.Limit)
		err = b.ledger.UpdateBudget(ctx, ledger.OriginAgent, userID, core.Category(d.Category), majorToCents(d.Limit))

	case OpAddGoal:
		detail = fmt.Sprintf("Create objective [%s]", d.Name)
		category := core.Category(d.Category)
		if !category.IsValid() {
			category = core.CategorySavings
		}
		err = b.ledger.AddGoal(ctx, ledger.OriginAgent, userID, core.Goal{
			ID:           uuid.NewString(),
			Name:         d.Name,
			TargetAmount: majorToCents(d.TargetAmount),
			Category:     category,
			CreatedAt:    b.now(),
		})

	case OpDeleteGoal:
		detail = fmt.Sprintf("Neutralize objective [%s]", d.Name)
		g, ok := findGoal(st, d.Name)
		if !ok {
			return Outcome{Directive: d, Status: "skipped", Detail: fmt.Sprintf("Objective [%s] not found", d.Name)}
		}
		err = b.ledger.DeleteGoal(ctx, ledger.OriginAgent, userID, g.ID)

	case OpAddReminder:
		detail = fmt.Sprintf("Deploy sentinel [%s]", d.Title)
		r := core.Reminder{
			ID:         uuid.NewString(),
			Type:       core.ReminderType(d.Type),
			Title:      d.Title,
			Category:   core.Category(d.Category),
			Threshold:  d.Threshold,
			Recurring:  d.Recurring || d.Type == string(core.ReminderRecurringDebit),
			DayOfMonth: d.DayOfMonth,
			Amount:     majorToCents(d.Amount),
			CreatedAt:  b.now(),
		}
		if d.DueDate != "" {
			if due, perr := time.Parse("2006-01-02", d.DueDate); perr == nil {
				r.DueDate = core.Date{Time: due}
			}
		}
		err = b.ledger.AddReminder(ctx, ledger.OriginAgent, userID, r)

	case OpDeleteReminder:
		detail = fmt.Sprintf("Neutralize sentinel [%s]", d.Title)
		r, ok := findReminder(st, d.Title)
		if !ok {
			return Outcome{Directive: d, Status: "skipped", Detail: fmt.Sprintf("Sentinel [%s] not found", d.Title)}
		}
		err = b.ledger.DeleteReminder(ctx, ledger.OriginAgent, userID, r.ID)

	default:
		return Outcome{Directive: d, Status: "skipped", Detail: fmt.Sprintf("Unknown directive %q", d.Op)}
	}

	switch {
	case err == nil:
		return Outcome{Directive: d, Status: "applied", Detail: detail}
	case errors.Is(err, ledger.ErrHeldByPolicy):
		return Outcome{Directive: d, Status: "held", Detail: detail}
	default:
		return Outcome{Directive: d, Status: "rejected", Detail: err.Error()}
	}
}

func majorToCents(v float64) core.Money {
	cents := decimal.NewFromFloat(v).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	return core.Money{Cents: cents}
}

func findIncomeSource(st *core.FinancialState, name string) (core.IncomeSource, bool) {
	for _, s := range st.IncomeSources {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return core.IncomeSource{}, false
}

func findGoal(st *core.FinancialState, name string) (core.Goal, bool) {
	for _, g := range st.Goals {
		if strings.EqualFold(g.Name, name) {
			return g, true
		}
	}
	return core.Goal{}, false
}

func findReminder(st *core.FinancialState, title string) (core.Reminder, bool) {
	for _, r := range st.Reminders {
		if strings.EqualFold(r.Title, title) {
			return r, true
		}
	}
	return core.Reminder{}, false
}
