package core

// Derived queries over a state document. Every query recomputes from the
// record collections on each call; nothing here is cached, because callers
// may mutate the document between calls.

// SpentInCategory sums all expense amounts recorded against the category.
func (st *FinancialState) SpentInCategory(c Category) Money {
	var total int64
	for _, e := range st.Expenses {
		if e.Category == c {
			total += e.Amount.Cents
		}
	}
	return Money{Cents: total}
}

// BudgetFor returns the budget for the category, if one is configured.
func (st *FinancialState) BudgetFor(c Category) (Budget, bool) {
	for _, b := range st.Budgets {
		if b.Category == c {
			return b, true
		}
	}
	return Budget{}, false
}

// BudgetUtilization reports spend as a percentage of the category's limit.
// A missing budget or a zero limit yields 0, never NaN or Inf.
func (st *FinancialState) BudgetUtilization(c Category) float64 {
	b, ok := st.BudgetFor(c)
	if !ok || b.Limit.Cents <= 0 {
		return 0
	}
	return float64(st.SpentInCategory(c).Cents) / float64(b.Limit.Cents) * 100
}

// TotalSpent sums every expense on the ledger.
func (st *FinancialState) TotalSpent() Money {
	var total int64
	for _, e := range st.Expenses {
		total += e.Amount.Cents
	}
	return Money{Cents: total}
}

// Balance is monthly income minus total spend. Negative means deficit.
func (st *FinancialState) Balance() Money {
	return st.MonthlyIncome.Sub(st.TotalSpent())
}

// NetSavings reports the monthly surplus, clamped at zero. Deficits are a
// separate signal: callers that care use Balance and treat negative as
// overspend.
func (st *FinancialState) NetSavings() Money {
	b := st.Balance()
	if b.Cents < 0 {
		return Money{}
	}
	return b
}

// IncomeSourceTotal sums all income sources. After any income-source
// mutation this must equal MonthlyIncome.
func (st *FinancialState) IncomeSourceTotal() Money {
	var total int64
	for _, s := range st.IncomeSources {
		total += s.Amount.Cents
	}
	return Money{Cents: total}
}

// GoalByID finds a goal by id.
func (st *FinancialState) GoalByID(id string) (Goal, bool) {
	for _, g := range st.Goals {
		if g.ID == id {
			return g, true
		}
	}
	return Goal{}, false
}

// ReminderByID finds a reminder by id.
func (st *FinancialState) ReminderByID(id string) (Reminder, bool) {
	for _, r := range st.Reminders {
		if r.ID == id {
			return r, true
		}
	}
	return Reminder{}, false
}
