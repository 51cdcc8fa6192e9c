package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/feedbackloop/actionflow/pkg/domain/model"
	"github.com/feedbackloop/actionflow/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
)

// ErrMalformedResponse is returned when the LLM output cannot be used
var ErrMalformedResponse = goerr.New("malformed LLM response")

const defaultMaxSuggestions = 3

// client implements Service interface
type client struct {
	llmClient      gollem.LLMClient
	maxSuggestions int
	prompt         string
}

// Option is a functional option for client configuration
type Option func(*client)

// WithMaxSuggestions caps the number of actions kept per feedback
func WithMaxSuggestions(n int) Option {
	return func(c *client) {
		c.maxSuggestions = n
	}
}

// WithPrompt replaces the default instruction placed before the feedback
func WithPrompt(prompt string) Option {
	return func(c *client) {
		c.prompt = prompt
	}
}

// New creates a new insight service with the provided LLM client
func New(llmClient gollem.LLMClient, opts ...Option) (Service, error) {
	if llmClient == nil {
		return nil, goerr.New("LLM client is required")
	}

	c := &client{
		llmClient:      llmClient,
		maxSuggestions: defaultMaxSuggestions,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

func (c *client) Suggest(ctx context.Context, feedback *model.FeedbackAnalysis) ([]Suggestion, error) {
	session, err := c.llmClient.NewSession(ctx,
		gollem.WithSessionContentType(gollem.ContentTypeJSON),
		gollem.WithSessionResponseSchema(buildResponseSchema()),
		gollem.WithSessionSystemPrompt(buildSystemPrompt()),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create LLM session")
	}

	resp, err := session.Generate(ctx, []gollem.Input{gollem.Text(c.buildUserPrompt(feedback))})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate content from LLM", goerr.V("feedback_id", feedback.ID))
	}
	if resp == nil || len(resp.Texts) == 0 {
		return nil, goerr.Wrap(ErrMalformedResponse, "empty LLM response", goerr.V("feedback_id", feedback.ID))
	}

	var llmResp llmResponse
	if err := json.Unmarshal([]byte(strings.Join(resp.Texts, "")), &llmResp); err != nil {
		return nil, goerr.Wrap(ErrMalformedResponse, "failed to parse LLM response",
			goerr.V("feedback_id", feedback.ID),
			goerr.V("response", resp.Texts[0]),
			goerr.V("cause", err.Error()))
	}

	suggestions := make([]Suggestion, 0, len(llmResp.Actions))
	for _, a := range llmResp.Actions {
		if strings.TrimSpace(a.Description) == "" {
			continue
		}
		priority, err := types.ParsePriority(strings.ToLower(strings.TrimSpace(a.Priority)))
		if err != nil {
			priority = types.PriorityMedium
		}
		suggestions = append(suggestions, Suggestion{
			Title:            strings.TrimSpace(a.Title),
			Description:      strings.TrimSpace(a.Description),
			Priority:         priority,
			PriorityReason:   a.PriorityReason,
			Category:         strings.TrimSpace(a.Category),
			Team:             strings.TrimSpace(a.Team),
			RootCauseSummary: a.RootCauseSummary,
		})
		if len(suggestions) >= c.maxSuggestions {
			break
		}
	}

	if len(llmResp.Actions) > 0 && len(suggestions) == 0 {
		return nil, goerr.Wrap(ErrMalformedResponse, "LLM returned no usable action", goerr.V("feedback_id", feedback.ID))
	}

	return suggestions, nil
}

const defaultPrompt = "Propose concrete follow-up actions for the feedback below. Return an empty list when no action is warranted."

// buildSystemPrompt creates the fixed system prompt for LLM analysis
func buildSystemPrompt() string {
	var sb strings.Builder

	sb.WriteString("You are an assistant that turns customer and employee feedback into follow-up actions.\n\n")
	sb.WriteString("## Instructions:\n\n")
	sb.WriteString("1. Read the feedback analysis, including sentiment, categories and summary.\n")
	sb.WriteString("2. For each action provide:\n")
	sb.WriteString("   - title: a short imperative title\n")
	sb.WriteString("   - description: what should be done and why\n")
	sb.WriteString("   - priority: one of high, medium, low, long-term\n")
	sb.WriteString("   - priority_reason: one sentence explaining the priority\n")
	sb.WriteString("   - category: the feedback category the action addresses\n")
	sb.WriteString("   - team: the team best placed to own the action\n")
	sb.WriteString("   - root_cause_summary: the likely underlying cause\n")
	sb.WriteString("3. Write in the same language as the feedback.\n")

	return sb.String()
}

func (c *client) buildUserPrompt(f *model.FeedbackAnalysis) string {
	var sb strings.Builder

	prompt := c.prompt
	if prompt == "" {
		prompt = defaultPrompt
	}
	sb.WriteString(prompt)
	sb.WriteString("\n\n## Feedback\n\n")
	fmt.Fprintf(&sb, "**Sentiment:** %s\n", f.Sentiment)
	if len(f.Categories) > 0 {
		fmt.Fprintf(&sb, "**Categories:** %s\n", strings.Join(f.Categories, ", "))
	}
	if f.Summary != "" {
		fmt.Fprintf(&sb, "**Summary:** %s\n", f.Summary)
	}
	if f.Comment != "" {
		fmt.Fprintf(&sb, "**Comment:** %s\n", f.Comment)
	}

	return sb.String()
}

// buildResponseSchema creates the JSON schema for structured output
func buildResponseSchema() *gollem.Parameter {
	return &gollem.Parameter{
		Title:       "ActionSuggestionResponse",
		Description: "Follow-up actions proposed for a piece of feedback",
		Type:        gollem.TypeObject,
		Properties: map[string]*gollem.Parameter{
			"actions": {
				Type:        gollem.TypeArray,
				Description: "Proposed actions, possibly empty",
				Items: &gollem.Parameter{
					Type: gollem.TypeObject,
					Properties: map[string]*gollem.Parameter{
						"title":              {Type: gollem.TypeString, Description: "Short imperative title", Required: true},
						"description":        {Type: gollem.TypeString, Description: "What should be done", Required: true},
						"priority":           {Type: gollem.TypeString, Description: "Priority", Enum: []string{"high", "medium", "low", "long-term"}, Required: true},
						"priority_reason":    {Type: gollem.TypeString, Description: "Why this priority"},
						"category":           {Type: gollem.TypeString, Description: "Feedback category addressed"},
						"team":               {Type: gollem.TypeString, Description: "Owning team"},
						"root_cause_summary": {Type: gollem.TypeString, Description: "Likely underlying cause"},
					},
				},
				Required: true,
			},
		},
	}
}
