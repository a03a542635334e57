package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

func newRouter(logger *zap.Logger, svc Service) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &handler{
		svc:    svc,
		logger: logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(zapRequestLogger(logger))

	r.Get("/health", h.handleHealth)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", h.handleSignup)
		r.Post("/login", h.handleLogin)
		r.Post("/logout", h.handleLogout)
		r.Get("/session", h.handleSession)
	})

	r.Get("/dashboard", h.handleDashboard)
	r.Get("/activity", h.handleActivity)

	r.Route("/members", func(r chi.Router) {
		r.Get("/", h.handleMembersList)
		r.Post("/", h.handleMemberAdd)
		r.Put("/{id}", h.handleMemberUpdate)
		r.Delete("/{id}", h.handleMemberDelete)
	})

	r.Route("/teams", func(r chi.Router) {
		r.Get("/", h.handleTeamsList)
		r.Post("/", h.handleTeamAdd)
		r.Delete("/{name}", h.handleTeamDelete)
	})

	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", h.handleTasksList)
		r.Get("/export", h.handleTasksExport)
		r.Post("/", h.handleTaskAdd)
		r.Put("/{id}", h.handleTaskUpdate)
		r.Delete("/{id}", h.handleTaskDelete)
	})

	r.Route("/retro", func(r chi.Router) {
		r.Get("/", h.handleRetroBoard)
		r.Post("/", h.handleRetroAdd)
		r.Put("/{id}", h.handleRetroUpdate)
		r.Delete("/{id}", h.handleRetroDelete)
	})

	r.Route("/integrations", func(r chi.Router) {
		r.Get("/", h.handleIntegrationsGet)
		r.Put("/tracker", h.handleTrackerUpdate)
		r.Post("/tracker/test", h.handleTrackerTest)
		r.Post("/tracker/import", h.handleTrackerImport)
		r.Put("/email", h.handleEmailUpdate)
	})

	r.Get("/settings", h.handleSettingsGet)
	r.Put("/settings", h.handleSettingsUpdate)

	return r
}

func zapRequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info(
				"http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
