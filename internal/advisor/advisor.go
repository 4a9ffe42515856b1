// Package advisor integrates the generative-AI financial advisor. The model
// answers in plain text and may attach structured directives; the bridge
// routes every directive through the ordinary mutation API, where the
// autonomy policy decides whether it is applied or held.
package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"smartbudgets/internal/core"
)

// Directive operation names the model may emit.
const (
	OpSetIncome          = "set_income"
	OpAddIncomeSource    = "add_income_source"
	OpDeleteIncomeSource = "delete_income_source"
	OpSetBudget          = "set_budget"
	OpAddGoal            = "add_goal"
	OpDeleteGoal         = "delete_goal"
	OpAddReminder        = "add_reminder"
	OpDeleteReminder     = "delete_reminder"
)

// Directive is one structured mutation proposed by the model. Amounts are in
// major currency units; the bridge converts to cents. Deletes reference
// records by name or title, matched case-insensitively against the user's
// document.
type Directive struct {
	Op           string  `json:"op"`
	Name         string  `json:"name,omitempty"`
	Amount       float64 `json:"amount,omitempty"`
	Category     string  `json:"category,omitempty"`
	Limit        float64 `json:"limit,omitempty"`
	TargetAmount float64 `json:"target_amount,omitempty"`
	Title        string  `json:"title,omitempty"`
	Type         string  `json:"type,omitempty"`
	Threshold    float64 `json:"threshold,omitempty"`
	DueDate      string  `json:"due_date,omitempty"`
	Recurring    bool    `json:"recurring,omitempty"`
	DayOfMonth   int     `json:"day_of_month,omitempty"`
}

// Reply is one advisor answer: prose plus zero or more directives.
type Reply struct {
	Text       string      `json:"reply"`
	Directives []Directive `json:"directives,omitempty"`
}

// Advisor produces a reply for a user query over a snapshot of their
// document. Implementations call an external model; failures surface as
// errors and never touch the ledger.
type Advisor interface {
	Advise(ctx context.Context, st *core.FinancialState, query string) (Reply, error)
}

// ParseReply decodes a model response body. Models occasionally wrap JSON in
// markdown fences; those are stripped before decoding.
func ParseReply(text string) (Reply, error) {
	trimmed := strings.TrimSpace(text)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")

	var reply Reply
	if err := json.Unmarshal([]byte(strings.TrimSpace(trimmed)), &reply); err != nil {
		return Reply{}, fmt.Errorf("parse advisor reply: %w", err)
	}
	return reply, nil
}

// Summarize renders the financial profile handed to the model: totals,
// per-budget utilization and the most recent expenses.
func Summarize(st *core.FinancialState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Currency: %s\n", st.Currency)
	fmt.Fprintf(&b, "Monthly Income: %s\n", st.MonthlyIncome.Format(st.Currency))
	fmt.Fprintf(&b, "Total Expenses: %s\n", st.TotalSpent().Format(st.Currency))
	fmt.Fprintf(&b, "Current Savings/Surplus: %s\n", st.Balance().Format(st.Currency))

	b.WriteString("\nDetailed Budget Utilization:\n")
	for _, budget := range st.Budgets {
		spent := st.SpentInCategory(budget.Category)
		fmt.Fprintf(&b, "- %s: Spent %s of %s (%.1f%% used)\n",
			budget.Category,
			spent.Format(st.Currency),
			budget.Limit.Format(st.Currency),
			st.BudgetUtilization(budget.Category))
	}

	b.WriteString("\nRecent Expenses:\n")
	recent := st.Expenses
	if len(recent) > 10 {
		recent = recent[:10]
	}
	for _, e := range recent {
		fmt.Fprintf(&b, "- %s: %s (%s)\n", e.Description, e.Amount.Format(st.Currency), e.Category)
	}

	return b.String()
}
