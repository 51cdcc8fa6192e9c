package config

import (
	"context"
	"log/slog"

	"github.com/feedbackloop/actionflow/pkg/service/insight"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem/llm/gemini"
	"github.com/urfave/cli/v3"
)

// Gemini holds the Vertex AI settings of the insight service that drafts actions from feedback
type Gemini struct {
	projectID      string
	location       string
	model          string
	maxSuggestions int
	prompt         string
}

func (g *Gemini) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project for Gemini (enables AI action generation)",
			Category:    "Gemini",
			Sources:     cli.EnvVars("ACTIONFLOW_GEMINI_PROJECT"),
			Destination: &g.projectID,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Vertex AI region",
			Category:    "Gemini",
			Value:       "us-central1",
			Sources:     cli.EnvVars("ACTIONFLOW_GEMINI_LOCATION"),
			Destination: &g.location,
		},
		&cli.StringFlag{
			Name:        "gemini-model",
			Usage:       "Model name; empty uses the client default",
			Category:    "Gemini",
			Sources:     cli.EnvVars("ACTIONFLOW_GEMINI_MODEL"),
			Destination: &g.model,
		},
		&cli.IntFlag{
			Name:        "max-suggestions",
			Usage:       "Maximum actions drafted per feedback",
			Category:    "Gemini",
			Value:       3,
			Sources:     cli.EnvVars("ACTIONFLOW_MAX_SUGGESTIONS"),
			Destination: &g.maxSuggestions,
		},
		&cli.StringFlag{
			Name:        "insight-prompt",
			Usage:       "Instruction placed before each feedback; empty uses the built-in one",
			Category:    "Gemini",
			Sources:     cli.EnvVars("ACTIONFLOW_INSIGHT_PROMPT"),
			Destination: &g.prompt,
		},
	}
}

func (g Gemini) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("project_id", g.projectID),
		slog.String("location", g.location),
		slog.String("model", g.model),
		slog.Int("max_suggestions", g.maxSuggestions),
		slog.Bool("custom_prompt", g.prompt != ""),
	)
}

// Configure builds the insight service. Returns nil when no project is set, in
// which case action generation falls back to the sentiment rule.
func (g *Gemini) Configure(ctx context.Context) (insight.Service, error) {
	if g.projectID == "" {
		return nil, nil
	}

	var opts []gemini.Option
	if g.model != "" {
		opts = append(opts, gemini.WithModel(g.model))
	}

	llmClient, err := gemini.New(ctx, g.projectID, g.location, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create Gemini client",
			goerr.V("project_id", g.projectID), goerr.V("location", g.location))
	}

	var insightOpts []insight.Option
	if g.maxSuggestions > 0 {
		insightOpts = append(insightOpts, insight.WithMaxSuggestions(g.maxSuggestions))
	}
	if g.prompt != "" {
		insightOpts = append(insightOpts, insight.WithPrompt(g.prompt))
	}

	svc, err := insight.New(llmClient, insightOpts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to initialize insight service")
	}
	return svc, nil
}
