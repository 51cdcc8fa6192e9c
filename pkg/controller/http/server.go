package http

import (
	"net/http"
	"time"

	"github.com/feedbackloop/actionflow/pkg/usecase"
	"github.com/feedbackloop/actionflow/pkg/utils/logging"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type AuthUseCase = usecase.AuthUseCaseInterface

type Server struct {
	router *chi.Mux
	authUC AuthUseCase
}

type Options func(*Server)

func WithAuth(authUC AuthUseCase) Options {
	return func(s *Server) {
		s.authUC = authUC
	}
}

func New(uc *usecase.UseCases, opts ...Options) *Server {
	r := chi.NewRouter()

	s := &Server{
		router: r,
		authUC: uc.Auth,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler)

	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware(s.authUC))

		r.Route("/actions", func(r chi.Router) {
			r.Post("/", createActionHandler(uc.Action))
			r.Get("/", listActionsHandler(uc.Action))
			r.Get("/analytics", analyticsHandler(uc.Action))
			r.Post("/generate", generateActionsHandler(uc.Action))
			r.Post("/bulk/assign", bulkAssignHandler(uc.Action))
			r.Post("/bulk/update", bulkUpdateHandler(uc.Action))

			r.Route("/{actionID}", func(r chi.Router) {
				r.Get("/", getActionHandler(uc.Action))
				r.Patch("/", updateActionHandler(uc.Action))
				r.Delete("/", deleteActionHandler(uc.Action))
				r.Post("/assign", assignActionHandler(uc.Action))
			})
		})

		r.Route("/escalation-rules", func(r chi.Router) {
			r.Get("/", listRulesHandler(uc.EscalationRule))
			r.Post("/", createRuleHandler(uc.EscalationRule))
			r.Get("/{ruleID}", getRuleHandler(uc.EscalationRule))
			r.Put("/{ruleID}", updateRuleHandler(uc.EscalationRule))
			r.Delete("/{ruleID}", deleteRuleHandler(uc.EscalationRule))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", listNotificationsHandler(uc.Notification))
			r.Get("/unread-count", unreadCountHandler(uc.Notification))
			r.Post("/{notificationID}/read", markReadHandler(uc.Notification))
			r.Post("/{notificationID}/archive", archiveHandler(uc.Notification))
		})
	})

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// accessLogger is a middleware that logs HTTP requests
func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			logging.Default().Info("access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
				"request_id", middleware.GetReqID(r.Context()),
				"user_agent", r.UserAgent(),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
}
