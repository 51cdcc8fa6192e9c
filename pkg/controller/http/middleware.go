package http

import (
	"net/http"
	"strings"

	"github.com/feedbackloop/actionflow/pkg/domain/model/auth"
	"github.com/feedbackloop/actionflow/pkg/usecase"
	"github.com/feedbackloop/actionflow/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// authMiddleware resolves the bearer token to an actor and stores it in the request context
func authMiddleware(authUC AuthUseCase) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if authUC == nil {
				writeError(ctx, w, goerr.Wrap(usecase.ErrUnauthenticated, "authentication is not configured"))
				return
			}

			token := bearerToken(r)
			if token == "" && !authUC.IsNoAuthn() {
				writeError(ctx, w, goerr.Wrap(usecase.ErrUnauthenticated, "bearer token required"))
				return
			}

			actor, err := authUC.Authenticate(ctx, token)
			if err != nil {
				writeError(ctx, w, err)
				return
			}

			ctx = auth.ContextWithActor(ctx, actor)
			ctx = logging.With(ctx, logging.From(ctx).With("user_id", actor.UserID, "tenant_id", actor.TenantID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken extracts the token from "Authorization: Bearer <token>"
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
