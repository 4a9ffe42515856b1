package core

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

const (
	CategoryFood          Category = "Food"
	CategoryRent          Category = "Rent"
	CategoryTransport     Category = "Transport"
	CategoryEntertainment Category = "Entertainment"
	CategoryUtilities     Category = "Utilities"
	CategorySavings       Category = "Savings"
	CategoryHealth        Category = "Health"
	CategoryShopping      Category = "Shopping"
	CategoryOthers        Category = "Others"
)

const (
	ReminderBudgetThreshold ReminderType = "budget_threshold"
	ReminderUpcomingExpense ReminderType = "upcoming_expense"
	ReminderRecurringDebit  ReminderType = "recurring_debit"
	ReminderGoalMilestone   ReminderType = "goal_milestone"
)

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

type (
	Category     string
	ReminderType string
	Theme        string

	// Date is a calendar date with no meaningful time-of-day component.
	Date struct {
		time.Time
	}

	Expense struct {
		ID          string    `json:"id"`
		Amount      Money     `json:"amount_cents"`
		Category    Category  `json:"category"`
		Description string    `json:"description"`
		Date        time.Time `json:"date"`
	}

	// Budget caps monthly spend for one category. Category is the natural
	// key: a state document never holds two budgets for the same category.
	Budget struct {
		Category Category `json:"category"`
		Limit    Money    `json:"limit_cents"`
	}

	IncomeSource struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Amount Money  `json:"amount_cents"`
	}

	// IncomeRecord is one month's entry in the income history.
	IncomeRecord struct {
		Month  string `json:"month"`
		Amount Money  `json:"amount_cents"`
	}

	Goal struct {
		ID            string    `json:"id"`
		Name          string    `json:"name"`
		TargetAmount  Money     `json:"target_amount_cents"`
		CurrentAmount Money     `json:"current_amount_cents"`
		Category      Category  `json:"category"`
		CreatedAt     time.Time `json:"created_at"`
	}

	// Reminder is a user-authored watch rule. Non-recurring reminders fire
	// once and latch via Triggered; recurring ones re-arm each calendar
	// month, with LastTriggeredMonth as the idempotence key. Triggered is
	// still maintained for recurring reminders because callers display it
	// as the fired/watching status.
	Reminder struct {
		ID                 string       `json:"id"`
		Type               ReminderType `json:"type"`
		Title              string       `json:"title"`
		Category           Category     `json:"category,omitempty"`
		Threshold          float64      `json:"threshold,omitempty"`
		DueDate            Date         `json:"due_date,omitempty"`
		Amount             Money        `json:"amount_cents,omitempty"`
		Recurring          bool         `json:"recurring,omitempty"`
		DayOfMonth         int          `json:"day_of_month,omitempty"`
		LastTriggeredMonth string       `json:"last_triggered_month,omitempty"`
		Triggered          bool         `json:"triggered"`
		CreatedAt          time.Time    `json:"created_at"`
	}

	NotificationPreferences struct {
		WeeklyReports    bool `json:"weekly_reports"`
		BudgetThresholds bool `json:"budget_thresholds"`
		AIInsights       bool `json:"ai_insights"`
		SecurityAlerts   bool `json:"security_alerts"`
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidCategory  = errors.New("invalid category")
	ErrInvalidThreshold = errors.New("invalid threshold")
	ErrEmptyID          = errors.New("empty id")
	ErrEmptyName        = errors.New("empty name")
	ErrEmptyDescription = errors.New("empty description")
	ErrMissingDueDate   = errors.New("missing due date")
	ErrInvalidDay       = errors.New("invalid day of month")
	ErrInvalidType      = errors.New("invalid reminder type")
)

// Categories lists every known spending category in display order.
func Categories() []Category {
	return []Category{
		CategoryFood, CategoryRent, CategoryTransport, CategoryEntertainment,
		CategoryUtilities, CategorySavings, CategoryHealth, CategoryShopping,
		CategoryOthers,
	}
}

func (c Category) IsValid() bool {
	switch c {
	case CategoryFood, CategoryRent, CategoryTransport, CategoryEntertainment,
		CategoryUtilities, CategorySavings, CategoryHealth, CategoryShopping,
		CategoryOthers:
		return true
	}
	return false
}

func (t ReminderType) IsValid() bool {
	switch t {
	case ReminderBudgetThreshold, ReminderUpcomingExpense,
		ReminderRecurringDebit, ReminderGoalMilestone:
		return true
	}
	return false
}

// NewDate creates a Date at midnight UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// SameDay reports whether d falls on the same calendar date as t.
func (d Date) SameDay(t time.Time) bool {
	return d.Year() == t.Year() && d.YearDay() == t.YearDay()
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return []byte(`"` + d.Format("2006-01-02") + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		// Tolerate full timestamps written by older documents.
		t, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return err
		}
	}
	d.Time = t
	return nil
}

func (e Expense) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return ErrEmptyID
	}
	if e.Amount.Cents <= 0 {
		return ErrInvalidAmount
	}
	if !e.Category.IsValid() {
		return ErrInvalidCategory
	}
	if strings.TrimSpace(e.Description) == "" {
		return ErrEmptyDescription
	}
	return nil
}

func (b Budget) Validate() error {
	if !b.Category.IsValid() {
		return ErrInvalidCategory
	}
	if b.Limit.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (s IncomeSource) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return ErrEmptyID
	}
	if strings.TrimSpace(s.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

func (g Goal) Validate() error {
	if strings.TrimSpace(g.ID) == "" {
		return ErrEmptyID
	}
	if strings.TrimSpace(g.Name) == "" {
		return ErrEmptyName
	}
	if g.TargetAmount.Cents <= 0 {
		return ErrInvalidAmount
	}
	if g.CurrentAmount.Cents < 0 {
		return ErrInvalidAmount
	}
	if !g.Category.IsValid() {
		return ErrInvalidCategory
	}
	return nil
}

// Validate checks the type-specific required fields. A reminder failing
// validation is never accepted by the mutation API; one that decays into an
// invalid shape inside a stored document is skipped by the evaluator instead.
func (r Reminder) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return ErrEmptyID
	}
	if !r.Type.IsValid() {
		return ErrInvalidType
	}
	switch r.Type {
	case ReminderBudgetThreshold:
		if !r.Category.IsValid() {
			return ErrInvalidCategory
		}
		if r.Threshold < 0 || r.Threshold > 100 {
			return ErrInvalidThreshold
		}
	case ReminderUpcomingExpense:
		if r.DueDate.IsZero() {
			return ErrMissingDueDate
		}
	case ReminderRecurringDebit:
		if !r.Category.IsValid() {
			return ErrInvalidCategory
		}
	}
	if r.Recurring {
		if r.DayOfMonth < 1 || r.DayOfMonth > 31 {
			return ErrInvalidDay
		}
	}
	return nil
}

// MonthKey identifies a calendar month for recurring re-arm bookkeeping.
// The format is "YYYY-M" with an unpadded month, e.g. "2026-8".
func MonthKey(t time.Time) string {
	y, m, _ := t.Date()
	return strconv.Itoa(y) + "-" + strconv.Itoa(int(m))
}

// MonthLabel is the display label used in the income history, e.g. "Aug 2026".
func MonthLabel(t time.Time) string {
	return t.Format("Jan 2006")
}
