package http

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"smartbudgets/internal/core"
	"smartbudgets/internal/ledger"
)

type idResponse struct {
	ID string `json:"id"`
}

type addExpenseRequest struct {
	ID          string `json:"id,omitempty"`
	Amount      string `json:"amount"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Date        string `json:"date,omitempty"`
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	var req addExpenseRequest
	if !decodeBody(w, r, &req) {
		return
	}

	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	e := core.Expense{
		ID:          req.ID,
		Amount:      amount,
		Category:    core.Category(req.Category),
		Description: req.Description,
		Date:        time.Now(),
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if req.Date != "" {
		d, perr := time.Parse("2006-01-02", req.Date)
		if perr != nil {
			writeError(w, http.StatusBadRequest, "invalid date")
			return
		}
		e.Date = d
	}

	if err := s.ledger.AddExpense(r.Context(), ledger.OriginUser, userID(r), e); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, idResponse{ID: e.ID})
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteExpense(r.Context(), ledger.OriginUser, userID(r), r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type updateBudgetRequest struct {
	Limit string `json:"limit"`
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	var req updateBudgetRequest
	if !decodeBody(w, r, &req) {
		return
	}

	limit, err := core.ParseLimit(req.Limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	category := core.Category(r.PathValue("category"))
	if err := s.ledger.UpdateBudget(r.Context(), ledger.OriginUser, userID(r), category, limit); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type updateIncomeRequest struct {
	Amount string `json:"amount"`
}

func (s *Server) handleUpdateIncome(w http.ResponseWriter, r *http.Request) {
	var req updateIncomeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	amount, err := core.ParseLimit(req.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if err := s.ledger.UpdateIncome(r.Context(), ledger.OriginUser, userID(r), amount); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type addIncomeSourceRequest struct {
	ID     string `json:"id,omitempty"`
	Name   string `json:"name"`
	Amount string `json:"amount"`
}

func (s *Server) handleAddIncomeSource(w http.ResponseWriter, r *http.Request) {
	var req addIncomeSourceRequest
	if !decodeBody(w, r, &req) {
		return
	}

	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	src := core.IncomeSource{ID: req.ID, Name: req.Name, Amount: amount}
	if src.ID == "" {
		src.ID = uuid.NewString()
	}

	if err := s.ledger.AddIncomeSource(r.Context(), ledger.OriginUser, userID(r), src); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, idResponse{ID: src.ID})
}

func (s *Server) handleDeleteIncomeSource(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteIncomeSource(r.Context(), ledger.OriginUser, userID(r), r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type addGoalRequest struct {
	ID           string `json:"id,omitempty"`
	Name         string `json:"name"`
	TargetAmount string `json:"target_amount"`
	Category     string `json:"category"`
}

func (s *Server) handleAddGoal(w http.ResponseWriter, r *http.Request) {
	var req addGoalRequest
	if !decodeBody(w, r, &req) {
		return
	}

	target, err := core.ParseAmount(req.TargetAmount)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	g := core.Goal{
		ID:           req.ID,
		Name:         req.Name,
		TargetAmount: target,
		Category:     core.Category(req.Category),
		CreatedAt:    time.Now(),
	}
	if g.ID == "" {
		g.ID = uuid.NewString()
	}

	if err := s.ledger.AddGoal(r.Context(), ledger.OriginUser, userID(r), g); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, idResponse{ID: g.ID})
}

type contributeRequest struct {
	Amount string `json:"amount"`
}

func (s *Server) handleContributeToGoal(w http.ResponseWriter, r *http.Request) {
	var req contributeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	expenseID := uuid.NewString()
	if err := s.ledger.ContributeToGoal(r.Context(), ledger.OriginUser, userID(r), r.PathValue("id"), amount, expenseID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, idResponse{ID: expenseID})
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteGoal(r.Context(), ledger.OriginUser, userID(r), r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type addReminderRequest struct {
	ID         string  `json:"id,omitempty"`
	Type       string  `json:"type"`
	Title      string  `json:"title"`
	Category   string  `json:"category,omitempty"`
	Threshold  float64 `json:"threshold,omitempty"`
	DueDate    string  `json:"due_date,omitempty"`
	Amount     string  `json:"amount,omitempty"`
	Recurring  bool    `json:"recurring,omitempty"`
	DayOfMonth int     `json:"day_of_month,omitempty"`
}

func (s *Server) handleAddReminder(w http.ResponseWriter, r *http.Request) {
	var req addReminderRequest
	if !decodeBody(w, r, &req) {
		return
	}

	rem := core.Reminder{
		ID:         req.ID,
		Type:       core.ReminderType(req.Type),
		Title:      req.Title,
		Category:   core.Category(req.Category),
		Threshold:  req.Threshold,
		Recurring:  req.Recurring,
		DayOfMonth: req.DayOfMonth,
		CreatedAt:  time.Now(),
	}
	if rem.ID == "" {
		rem.ID = uuid.NewString()
	}
	if req.DueDate != "" {
		d, perr := time.Parse("2006-01-02", req.DueDate)
		if perr != nil {
			writeError(w, http.StatusBadRequest, "invalid due date")
			return
		}
		rem.DueDate = core.Date{Time: d}
	}
	if req.Amount != "" {
		amount, perr := core.ParseAmount(req.Amount)
		if perr != nil {
			writeDomainError(w, perr)
			return
		}
		rem.Amount = amount
	}

	if err := s.ledger.AddReminder(r.Context(), ledger.OriginUser, userID(r), rem); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, idResponse{ID: rem.ID})
}

func (s *Server) handleDeleteReminder(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteReminder(r.Context(), ledger.OriginUser, userID(r), r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type updateCurrencyRequest struct {
	Currency string `json:"currency"`
}

func (s *Server) handleUpdateCurrency(w http.ResponseWriter, r *http.Request) {
	var req updateCurrencyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	c := core.Currency(req.Currency)
	if !c.IsValid() {
		writeError(w, http.StatusUnprocessableEntity, "unknown currency")
		return
	}
	if err := s.ledger.UpdateCurrency(r.Context(), ledger.OriginUser, userID(r), c); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type updateThemeRequest struct {
	Theme string `json:"theme"`
}

func (s *Server) handleUpdateTheme(w http.ResponseWriter, r *http.Request) {
	var req updateThemeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	th := core.Theme(req.Theme)
	if th != core.ThemeLight && th != core.ThemeDark {
		writeError(w, http.StatusUnprocessableEntity, "unknown theme")
		return
	}
	if err := s.ledger.UpdateTheme(r.Context(), ledger.OriginUser, userID(r), th); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var req core.NotificationPreferences
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.ledger.UpdatePreferences(r.Context(), ledger.OriginUser, userID(r), req); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type setAutonomyRequest struct {
	Enabled bool `json:"enabled"`
}

func (s *Server) handleSetAutonomy(w http.ResponseWriter, r *http.Request) {
	var req setAutonomyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.ledger.SetAutonomy(r.Context(), userID(r), req.Enabled); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
