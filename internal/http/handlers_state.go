package http

import (
	"net/http"

	"smartbudgets/internal/core"
)

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	st, err := s.ledger.State(r.Context(), userID(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type summaryResponse struct {
	Currency       core.Currency   `json:"currency"`
	MonthlyIncome  string          `json:"monthly_income"`
	TotalSpent     string          `json:"total_spent"`
	Balance        string          `json:"balance"`
	NetSavings     string          `json:"net_savings"`
	Budgets        []budgetSummary `json:"budgets"`
	GoalCount      int             `json:"goal_count"`
	ReminderCount  int             `json:"reminder_count"`
	ArmedReminders int             `json:"armed_reminders"`
}

type budgetSummary struct {
	Category    core.Category `json:"category"`
	Spent       string        `json:"spent"`
	Limit       string        `json:"limit"`
	Utilization float64       `json:"utilization"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if cached, ok := s.summaries.Get(uid); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	st, err := s.ledger.State(r.Context(), uid)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := buildSummary(st)
	s.summaries.Set(uid, resp)
	writeJSON(w, http.StatusOK, resp)
}

func buildSummary(st *core.FinancialState) summaryResponse {
	resp := summaryResponse{
		Currency:      st.Currency,
		MonthlyIncome: st.MonthlyIncome.Format(st.Currency),
		TotalSpent:    st.TotalSpent().Format(st.Currency),
		Balance:       st.Balance().Format(st.Currency),
		NetSavings:    st.NetSavings().Format(st.Currency),
		GoalCount:     len(st.Goals),
		ReminderCount: len(st.Reminders),
	}
	for _, b := range st.Budgets {
		resp.Budgets = append(resp.Budgets, budgetSummary{
			Category:    b.Category,
			Spent:       st.SpentInCategory(b.Category).Format(st.Currency),
			Limit:       b.Limit.Format(st.Currency),
			Utilization: st.BudgetUtilization(b.Category),
		})
	}
	for _, rem := range st.Reminders {
		if !rem.Triggered {
			resp.ArmedReminders++
		}
	}
	return resp
}
