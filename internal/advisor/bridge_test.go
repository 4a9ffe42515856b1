package advisor

import (
	"context"
	"strings"
	"testing"
	"time"

	"smartbudgets/internal/core"
	"smartbudgets/internal/ledger"
	"smartbudgets/internal/notify"
	"smartbudgets/internal/store"
)

type fakeAdvisor struct {
	reply Reply
}

func (f fakeAdvisor) Advise(context.Context, *core.FinancialState, string) (Reply, error) {
	return f.reply, nil
}

func newTestBridge(t *testing.T, reply Reply) (*Bridge, *ledger.Service) {
	t.Helper()
	m := store.NewMemoryStore()
	st := core.NewState(core.Money{Cents: 450000}, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
	if err := m.SaveState(context.Background(), "u1", st); err != nil {
		t.Fatalf("seed: %v", err)
	}
	svc := ledger.NewService(m, notify.Discard{}, ledger.AutonomyPolicy{})
	return NewBridge(svc, fakeAdvisor{reply: reply}), svc
}

func TestChatHoldsDirectivesWithoutAutonomy(t *testing.T) {
	ctx := context.Background()
	reply := Reply{
		Text: "I'll set that budget for you.",
		Directives: []Directive{
			{Op: OpSetBudget, Category: "Food", Limit: 650},
		},
	}
	bridge, svc := newTestBridge(t, reply)

	res, err := bridge.Chat(ctx, "u1", "set my food budget to 650")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if len(res.Outcomes) != 1 || res.Outcomes[0].Status != "held" {
		t.Fatalf("expected held outcome, got %+v", res.Outcomes)
	}
	if !strings.Contains(res.Text, "PROTOCOL HOLD") {
		t.Errorf("held reply should carry the hold note: %q", res.Text)
	}

	st, _ := svc.State(ctx, "u1")
	if b, _ := st.BudgetFor(core.CategoryFood); b.Limit.Cents != 50000 {
		t.Errorf("held directive changed the document: %d", b.Limit.Cents)
	}
}

func TestChatAppliesDirectivesWithAutonomy(t *testing.T) {
	ctx := context.Background()
	reply := Reply{
		Text: "Done.",
		Directives: []Directive{
			{Op: OpSetBudget, Category: "Food", Limit: 650},
			{Op: OpAddGoal, Name: "New Car", TargetAmount: 15000, Category: "Savings"},
		},
	}
	bridge, svc := newTestBridge(t, reply)

	if err := svc.SetAutonomy(ctx, "u1", true); err != nil {
		t.Fatalf("set autonomy: %v", err)
	}
	res, err := bridge.Chat(ctx, "u1", "set food to 650 and add a car goal")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	for _, o := range res.Outcomes {
		if o.Status != "applied" {
			t.Fatalf("expected applied, got %+v", o)
		}
	}

	st, _ := svc.State(ctx, "u1")
	if b, _ := st.BudgetFor(core.CategoryFood); b.Limit.Cents != 65000 {
		t.Errorf("food limit = %d, want 65000", b.Limit.Cents)
	}
	if len(st.Goals) != 1 || st.Goals[0].TargetAmount.Cents != 1500000 {
		t.Errorf("goal not applied: %+v", st.Goals)
	}
}

func TestExecuteSkipsUnknownReferences(t *testing.T) {
	ctx := context.Background()
	bridge, svc := newTestBridge(t, Reply{})
	if err := svc.SetAutonomy(ctx, "u1", true); err != nil {
		t.Fatalf("set autonomy: %v", err)
	}

	st, _ := svc.State(ctx, "u1")
	outcomes := bridge.Execute(ctx, "u1", st, []Directive{
		{Op: OpDeleteGoal, Name: "No Such Goal"},
		{Op: "reticulate_splines"},
	})
	if outcomes[0].Status != "skipped" || !strings.Contains(outcomes[0].Detail, "not found") {
		t.Errorf("unexpected outcome %+v", outcomes[0])
	}
	if outcomes[1].Status != "skipped" {
		t.Errorf("unknown op should be skipped, got %+v", outcomes[1])
	}
}

func TestExecuteDeleteByNameCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	bridge, svc := newTestBridge(t, Reply{})
	if err := svc.SetAutonomy(ctx, "u1", true); err != nil {
		t.Fatalf("set autonomy: %v", err)
	}
	if err := svc.AddGoal(ctx, ledger.OriginUser, "u1", core.Goal{
		ID: "g1", Name: "Emergency Fund", TargetAmount: core.Money{Cents: 1000},
		Category: core.CategorySavings, CreatedAt: time.Now(),
	}); err != nil {
		t.Fatalf("add goal: %v", err)
	}

	st, _ := svc.State(ctx, "u1")
	outcomes := bridge.Execute(ctx, "u1", st, []Directive{
		{Op: OpDeleteGoal, Name: "emergency fund"},
	})
	if outcomes[0].Status != "applied" {
		t.Fatalf("expected applied, got %+v", outcomes[0])
	}

	after, _ := svc.State(ctx, "u1")
	if len(after.Goals) != 0 {
		t.Errorf("goal not deleted: %+v", after.Goals)
	}
}

func TestParseReply(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr bool
		text    string
		nDirs   int
	}{
		{
			name:  "plain json",
			in:    `{"reply":"ok","directives":[{"op":"set_income","amount":5000}]}`,
			text:  "ok",
			nDirs: 1,
		},
		{
			name:  "fenced json",
			in:    "```json\n{\"reply\":\"hi\"}\n```",
			text:  "hi",
			nDirs: 0,
		},
		{
			name:    "prose",
			in:      "You should save more.",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply, err := ParseReply(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if reply.Text != tt.text || len(reply.Directives) != tt.nDirs {
				t.Errorf("got %+v", reply)
			}
		})
	}
}

func TestSummarizeCarriesUtilization(t *testing.T) {
	st := core.NewState(core.Money{Cents: 450000}, time.Now())
	st.Expenses = []core.Expense{
		{ID: "e1", Amount: core.Money{Cents: 25000}, Category: core.CategoryFood, Description: "groceries", Date: time.Now()},
	}

	s := Summarize(st)
	for _, want := range []string{"Monthly Income: $4500.00", "Food", "50.0% used", "groceries"} {
		if !strings.Contains(s, want) {
			t.Errorf("summary missing %q:\n%s", want, s)
		}
	}
}
