package core

import (
	"encoding/json"
	"fmt"
	"time"
)

// MaxIncomeHistory caps the income history at one year of monthly entries.
const MaxIncomeHistory = 12

// DefaultMonthlyIncome seeds new accounts that skip income setup.
var DefaultMonthlyIncome = Money{Cents: 4500_00}

// FinancialState is the full ledger document for one user. It is persisted
// as a single JSON blob and replaced wholesale on every accepted mutation.
type FinancialState struct {
	Expenses        []Expense               `json:"expenses"`
	Budgets         []Budget                `json:"budgets"`
	Goals           []Goal                  `json:"goals"`
	Reminders       []Reminder              `json:"reminders"`
	MonthlyIncome   Money                   `json:"monthly_income_cents"`
	IncomeSources   []IncomeSource          `json:"income_sources"`
	Currency        Currency                `json:"currency"`
	Theme           Theme                   `json:"theme"`
	IncomeHistory   []IncomeRecord          `json:"income_history"`
	Preferences     NotificationPreferences `json:"notification_preferences"`
	AdvisorAutonomy bool                    `json:"advisor_autonomy"`
}

// DefaultPreferences enables every notification class, matching the
// defaults a fresh account starts with.
func DefaultPreferences() NotificationPreferences {
	return NotificationPreferences{
		WeeklyReports:    true,
		BudgetThresholds: true,
		AIInsights:       true,
		SecurityAlerts:   true,
	}
}

// NewState builds the seed document for a fresh account: starter budgets
// for Food, Rent and Transport, no expenses, and a current-month income
// history entry. A zero monthlyIncome falls back to DefaultMonthlyIncome.
func NewState(monthlyIncome Money, now time.Time) *FinancialState {
	if monthlyIncome.Cents <= 0 {
		monthlyIncome = DefaultMonthlyIncome
	}
	return &FinancialState{
		Expenses: []Expense{},
		Budgets: []Budget{
			{Category: CategoryFood, Limit: Money{Cents: 500_00}},
			{Category: CategoryRent, Limit: Money{Cents: 1200_00}},
			{Category: CategoryTransport, Limit: Money{Cents: 200_00}},
		},
		Goals:     []Goal{},
		Reminders: []Reminder{},
		IncomeSources: []IncomeSource{
			{ID: "primary", Name: "Primary", Amount: monthlyIncome},
		},
		MonthlyIncome: monthlyIncome,
		Currency:      CurrencyUSD,
		Theme:         ThemeLight,
		IncomeHistory: []IncomeRecord{
			{Month: MonthLabel(now), Amount: monthlyIncome},
		},
		Preferences: DefaultPreferences(),
	}
}

// Migrate patches a document loaded from storage so that every field added
// after the document was written carries its default. It runs exactly once,
// at load time, before the document enters the store. The function is pure
// apart from mutating its argument.
func Migrate(st *FinancialState) *FinancialState {
	if st.Expenses == nil {
		st.Expenses = []Expense{}
	}
	if st.Budgets == nil {
		st.Budgets = []Budget{}
	}
	if st.Goals == nil {
		st.Goals = []Goal{}
	}
	if st.Reminders == nil {
		st.Reminders = []Reminder{}
	}
	if st.IncomeHistory == nil {
		st.IncomeHistory = []IncomeRecord{}
	}
	if len(st.IncomeHistory) > MaxIncomeHistory {
		st.IncomeHistory = st.IncomeHistory[len(st.IncomeHistory)-MaxIncomeHistory:]
	}
	if st.IncomeSources == nil {
		st.IncomeSources = []IncomeSource{}
	}
	// Documents written before income sources existed carry only the
	// monthly total; rebuild the single Primary source from it.
	if len(st.IncomeSources) == 0 && st.MonthlyIncome.Cents > 0 {
		st.IncomeSources = []IncomeSource{
			{ID: "primary", Name: "Primary", Amount: st.MonthlyIncome},
		}
	}
	if !st.Currency.IsValid() {
		st.Currency = CurrencyUSD
	}
	if st.Theme != ThemeDark {
		st.Theme = ThemeLight
	}
	if st.Preferences == (NotificationPreferences{}) {
		st.Preferences = DefaultPreferences()
	}
	return st
}

// RecordIncomeMonth upserts the current month's history entry to the
// present MonthlyIncome. The history holds one entry per month label,
// insertion-ordered, oldest evicted beyond MaxIncomeHistory.
func (st *FinancialState) RecordIncomeMonth(now time.Time) {
	label := MonthLabel(now)
	for i := range st.IncomeHistory {
		if st.IncomeHistory[i].Month == label {
			st.IncomeHistory[i].Amount = st.MonthlyIncome
			return
		}
	}
	st.IncomeHistory = append(st.IncomeHistory, IncomeRecord{Month: label, Amount: st.MonthlyIncome})
	if len(st.IncomeHistory) > MaxIncomeHistory {
		st.IncomeHistory = st.IncomeHistory[len(st.IncomeHistory)-MaxIncomeHistory:]
	}
}

// Clone deep-copies the document so that snapshot readers never observe a
// concurrent replacement.
func (st *FinancialState) Clone() *FinancialState {
	out := *st
	out.Expenses = append([]Expense(nil), st.Expenses...)
	out.Budgets = append([]Budget(nil), st.Budgets...)
	out.Goals = append([]Goal(nil), st.Goals...)
	out.Reminders = append([]Reminder(nil), st.Reminders...)
	out.IncomeSources = append([]IncomeSource(nil), st.IncomeSources...)
	out.IncomeHistory = append([]IncomeRecord(nil), st.IncomeHistory...)
	return &out
}

// EncodeState serializes the document for persistence.
func EncodeState(st *FinancialState) ([]byte, error) {
	data, err := json.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("encode financial state: %w", err)
	}
	return data, nil
}

// DecodeState parses a persisted document and applies Migrate.
func DecodeState(data []byte) (*FinancialState, error) {
	var st FinancialState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("decode financial state: %w", err)
	}
	return Migrate(&st), nil
}
