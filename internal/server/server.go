package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"promise-harness/internal/logging"
	"promise-harness/internal/promise"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	httpServer *http.Server
	handler    *Handler
}

func NewServer(port string, harness *promise.Harness, serviceName string) *Server {
	handler := NewHandler(harness, serviceName)

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      NewRouter(handler, serviceName),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 45 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		handler:    handler,
	}
}

func NewRouter(handler *Handler, serviceName string) http.Handler {
	r := chi.NewRouter()

	r.Use(RecoveryMiddleware)
	r.Use(RequestIDMiddleware)
	r.Use(TracingMiddleware(serviceName))
	r.Use(LoggingMiddleware)
	r.Use(MetricsMiddleware)
	r.Use(CORSMiddleware)

	r.Get("/health", handler.HealthCheck)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Get("/", handler.Page)
	r.Post("/ui/panel", handler.PageUpdate)
	r.Post("/ui/fetch", handler.PageFetch)

	r.Route("/api", func(r chi.Router) {
		r.Get("/widget", handler.GetWidget)
		r.Route("/panel", func(r chi.Router) {
			r.Get("/", handler.GetPanel)
			r.Patch("/", handler.UpdatePanel)
			r.Post("/fetch", handler.FetchPanel)
			r.Get("/url", handler.GetPanelURL)
		})
	})

	return r
}

func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) Start() error {
	logging.Info(context.Background()).Str("addr", s.httpServer.Addr).Msg("starting HTTP server")
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info(ctx).Msg("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) GetAddress() string {
	return fmt.Sprintf("http://localhost%s", s.httpServer.Addr)
}
