package advisor

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/api/generativelanguage/v1beta"
	"google.golang.org/api/option"

	"smartbudgets/internal/core"
)

const systemPrompt = `You are a professional financial advisor for a personal budgeting service.
Based on the user's financial profile, answer their query.

Guidelines:
- Be concise, actionable, and encouraging.
- Reference specific budget categories and their utilization percentages.
- If savings are negative or budgets are exceeded, provide specific prioritization advice.

When the user asks you to change their finances, attach directives. Respond
with a single JSON object of the form:
{"reply": "<markdown answer>", "directives": [<zero or more directive objects>]}

Directive operations and their fields:
- {"op":"set_income","amount":<number>}
- {"op":"add_income_source","name":<string>,"amount":<number>}
- {"op":"delete_income_source","name":<string>}
- {"op":"set_budget","category":<string>,"limit":<number>}
- {"op":"add_goal","name":<string>,"target_amount":<number>,"category":<string>}
- {"op":"delete_goal","name":<string>}
- {"op":"add_reminder","title":<string>,"type":"budget_threshold"|"upcoming_expense"|"recurring_debit","category":<string>,"threshold":<number>,"due_date":"YYYY-MM-DD","recurring":<bool>,"day_of_month":<number>}
- {"op":"delete_reminder","title":<string>}

Categories must be one of: Food, Rent, Transport, Entertainment, Utilities, Savings, Health, Shopping, Others.
Only attach directives the user explicitly asked for.`

// GeminiAdvisor calls the Generative Language API. The model is asked for a
// JSON document carrying prose plus directives.
type GeminiAdvisor struct {
	service *generativelanguage.Service
	model   string
}

func NewGeminiAdvisor(ctx context.Context, apiKey, model string) (*GeminiAdvisor, error) {
	svc, err := generativelanguage.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create generative language service: %w", err)
	}
	return &GeminiAdvisor{service: svc, model: model}, nil
}

func (g *GeminiAdvisor) Advise(ctx context.Context, st *core.FinancialState, query string) (Reply, error) {
	prompt := fmt.Sprintf("%s\n\nFinancial Profile:\n%s\nUser Query: %s",
		systemPrompt, Summarize(st), query)

	req := &generativelanguage.GenerateContentRequest{
		Contents: []*generativelanguage.Content{
			{
				Role:  "user",
				Parts: []*generativelanguage.Part{{Text: prompt}},
			},
		},
		GenerationConfig: &generativelanguage.GenerationConfig{
			Temperature:      0.7,
			TopK:             40,
			TopP:             0.95,
			ResponseMimeType: "application/json",
		},
	}

	resp, err := g.service.Models.GenerateContent("models/"+g.model, req).Context(ctx).Do()
	if err != nil {
		return Reply{}, fmt.Errorf("generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return Reply{}, fmt.Errorf("empty model response")
	}

	text := resp.Candidates[0].Content.Parts[0].Text
	reply, err := ParseReply(text)
	if err != nil {
		// Prose that failed to arrive as JSON is still an answer; return it
		// without directives rather than failing the chat.
		slog.WarnContext(ctx, "Advisor reply was not valid JSON, returning raw text", "error", err)
		return Reply{Text: text}, nil
	}

	slog.DebugContext(ctx, "Advisor reply generated",
		"model", g.model,
		"directives", len(reply.Directives))
	return reply, nil
}
