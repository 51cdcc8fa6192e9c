package config

import (
	"log/slog"
	"strings"

	"github.com/feedbackloop/actionflow/pkg/domain/interfaces"
	"github.com/feedbackloop/actionflow/pkg/usecase"
	"github.com/feedbackloop/actionflow/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// Auth holds CLI flags for bearer token verification
type Auth struct {
	secret   string
	jwksURL  string
	audience string
	noAuth   string
}

func (x *Auth) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "jwt-secret",
			Usage:       "HMAC secret for HS256 signed tokens",
			Category:    "Authentication",
			Destination: &x.secret,
			Sources:     cli.EnvVars("ACTIONFLOW_JWT_SECRET"),
		},
		&cli.StringFlag{
			Name:        "jwks-url",
			Usage:       "JWKS endpoint for verifying asymmetric tokens",
			Category:    "Authentication",
			Destination: &x.jwksURL,
			Sources:     cli.EnvVars("ACTIONFLOW_JWKS_URL"),
		},
		&cli.StringFlag{
			Name:        "jwt-audience",
			Usage:       "Required audience claim",
			Category:    "Authentication",
			Destination: &x.audience,
			Sources:     cli.EnvVars("ACTIONFLOW_JWT_AUDIENCE"),
		},
		&cli.StringFlag{
			Name:        "no-auth",
			Usage:       "Skip authentication and act as the given user (development only). Format: <tenant>:<user>",
			Category:    "Authentication",
			Destination: &x.noAuth,
			Sources:     cli.EnvVars("ACTIONFLOW_NO_AUTH"),
		},
	}
}

func (x Auth) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("secret.len", len(x.secret)),
		slog.String("jwks-url", x.jwksURL),
		slog.String("audience", x.audience),
		slog.String("no-auth", x.noAuth),
	)
}

// IsNoAuthMode returns true if no-auth mode is enabled
func (x *Auth) IsNoAuthMode() bool {
	return x.noAuth != ""
}

// Configure creates the authenticator. --no-auth takes precedence over token settings.
func (x *Auth) Configure(repo interfaces.Repository) (usecase.AuthUseCaseInterface, error) {
	if x.noAuth != "" {
		tenantID, userID, ok := strings.Cut(x.noAuth, ":")
		if !ok || tenantID == "" || userID == "" {
			return nil, goerr.New("--no-auth must be <tenant>:<user>", goerr.V("no_auth", x.noAuth))
		}
		if x.secret != "" || x.jwksURL != "" {
			logging.Default().Warn("--no-auth is set, ignoring --jwt-secret/--jwks-url")
		}
		return usecase.NewNoAuthnUseCase(repo, tenantID, userID), nil
	}

	var opts []usecase.AuthOption
	if x.secret != "" {
		opts = append(opts, usecase.WithHMACSecret(x.secret))
	}
	if x.jwksURL != "" {
		opts = append(opts, usecase.WithJWKSURL(x.jwksURL))
	}
	if x.audience != "" {
		opts = append(opts, usecase.WithAudience(x.audience))
	}

	uc, err := usecase.NewAuthUseCase(repo, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "authentication is required: set --jwt-secret or --jwks-url, or use --no-auth")
	}
	return uc, nil
}
