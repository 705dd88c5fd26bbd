// Package assistant is the boundary to the external language-model service.
// It turns free-text questions into structured query intents and phrases
// follow-up suggestions. The analytics engine itself never talks to the
// model; it only ever receives the structured intent produced here.
package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/claimlens/claimlens/internal/catalog"
	"github.com/claimlens/claimlens/internal/conversation"
	"github.com/claimlens/claimlens/internal/intent"
	"github.com/claimlens/claimlens/internal/llm"
)

const systemPrompt = `You translate questions from claims-operations users into a JSON query intent for an analytics engine.
Respond with a single JSON object and nothing else. Schema:
{
  "intent_type": "query" | "refine" | "drill_down" | "compare" | "new_topic",
  "metric": {"slug": "<metric slug>"},
  "dimensions": ["<dimension>", ...],
  "filters": [{"field": "<field>", "operator": "eq|neq|gt|gte|lt|lte|in|not_in|between", "value": <scalar or list>}],
  "time_range": {"type": "relative|absolute", "value": "<token>", "start": "YYYY-MM-DD", "end": "YYYY-MM-DD"},
  "comparison": {"type": "period", "offset": "previous_period|prior_month|prior_year|N_unit"} or null,
  "chart_type": "bar|line|pie|doughnut|table" or "",
  "confidence": 0.0-1.0
}
Use "refine" when the user narrows the previous question, "compare" when they ask how it stacks up against an earlier period, "new_topic" when they change subject.
Only use metrics, dimensions, and filter fields from the lists provided.`

// Parser turns user messages into query intents via the completion service.
type Parser struct {
	provider llm.Provider
	model    string
	catalog  *catalog.Cached

	// now anchors relative date defaults; swappable in tests.
	now func() time.Time
}

// NewParser creates an intent parser.
func NewParser(provider llm.Provider, model string, cat *catalog.Cached) *Parser {
	return &Parser{provider: provider, model: model, catalog: cat, now: time.Now}
}

// ParseIntent asks the model for a structured intent for one user message,
// then normalizes the result: defaults the intent type, clamps confidence,
// and fills a missing time range with the last 30 days (recorded as an
// assumption so the UI can surface it).
func (p *Parser) ParseIntent(ctx context.Context, message string, history []conversation.TurnRecord) (intent.QueryIntent, error) {
	defs, err := p.catalog.ListActive(ctx)
	if err != nil {
		return intent.QueryIntent{}, fmt.Errorf("loading metric catalog: %w", err)
	}

	resp, err := p.provider.Complete(ctx, llm.CompletionRequest{
		Model: p.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: systemPrompt},
			{Role: llm.RoleUser, Content: buildParsePrompt(message, defs, history, p.now().UTC())},
		},
		MaxTokens:   1024,
		Temperature: 0.1,
		JSONMode:    true,
	})
	if err != nil {
		return intent.QueryIntent{}, fmt.Errorf("intent completion: %w", err)
	}

	qi, err := decodeIntent(resp.Content)
	if err != nil {
		return intent.QueryIntent{}, err
	}
	return p.normalize(qi), nil
}

func buildParsePrompt(message string, defs []catalog.MetricDefinition, history []conversation.TurnRecord, now time.Time) string {
	var b strings.Builder

	b.WriteString("Available metrics:\n")
	for _, def := range defs {
		fmt.Fprintf(&b, "- %s (%s, unit %s): dimensions %s\n",
			def.Slug, def.DisplayName, def.Unit, strings.Join(def.AllowedDimensions, ", "))
	}

	b.WriteString("\nFilter fields: ")
	fields := make([]string, 0, len(intent.KnownFilterFields))
	for f := range intent.KnownFilterFields {
		fields = append(fields, f)
	}
	b.WriteString(strings.Join(fields, ", "))

	fmt.Fprintf(&b, "\nToday is %s.\n", now.Format(intent.DateLayout))

	if len(history) > 0 {
		b.WriteString("\nConversation so far:\n")
		start := 0
		if len(history) > 6 {
			start = len(history) - 6
		}
		for _, turn := range history[start:] {
			fmt.Fprintf(&b, "- [%s] %s\n", turn.IntentType, turn.UserMessage)
		}
	}

	b.WriteString("\nUser question: ")
	b.WriteString(message)
	return b.String()
}

// decodeIntent extracts the JSON object from the model response, which may
// be wrapped in markdown code fences or prose.
func decodeIntent(content string) (intent.QueryIntent, error) {
	jsonStr := content
	if idx := strings.Index(content, "{"); idx >= 0 {
		jsonStr = content[idx:]
	}
	if idx := strings.LastIndex(jsonStr, "}"); idx >= 0 {
		jsonStr = jsonStr[:idx+1]
	}

	var qi intent.QueryIntent
	if err := json.Unmarshal([]byte(jsonStr), &qi); err != nil {
		return intent.QueryIntent{}, fmt.Errorf("parsing intent response: %w", err)
	}
	return qi, nil
}

func (p *Parser) normalize(qi intent.QueryIntent) intent.QueryIntent {
	if qi.IntentType == "" {
		qi.IntentType = intent.TypeQuery
	}
	if qi.Confidence < 0 {
		qi.Confidence = 0
	}
	if qi.Confidence > 1 {
		qi.Confidence = 1
	}

	needsRange := qi.TimeRange == nil || qi.TimeRange.Start == "" || qi.TimeRange.End == ""
	refining := qi.IntentType == intent.TypeRefine || qi.IntentType == intent.TypeDrillDown || qi.IntentType == intent.TypeCompare
	if needsRange && !refining {
		end := p.now().UTC()
		start := end.AddDate(0, 0, -29)
		qi.TimeRange = &intent.TimeRange{
			Type:  "relative",
			Value: "last_30_days",
			Start: start.Format(intent.DateLayout),
			End:   end.Format(intent.DateLayout),
		}
		qi.Assumptions = append(qi.Assumptions, intent.Assumption{
			Key:          "time_range",
			AssumedValue: "last_30_days",
			Label:        "Showing the last 30 days",
		})
	}
	return qi
}
