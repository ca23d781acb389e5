package apiserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	handlers "github.com/roomstudio/asset-forge/internal/handlers/v1alpha1"
	"github.com/roomstudio/asset-forge/pkg/log"
	"github.com/roomstudio/asset-forge/pkg/metrics"
)

const (
	gracefulShutdownTimeout = 5 * time.Second
)

type Server struct {
	handler  *handlers.ServiceHandler
	listener net.Listener
}

// New returns a new instance of the asset-forge API server.
func New(handler *handlers.ServiceHandler, listener net.Listener) *Server {
	return &Server{
		handler:  handler,
		listener: listener,
	}
}

func (s *Server) Run(ctx context.Context) error {
	zap.S().Named("api_server").Info("Initializing API server")

	router := chi.NewRouter()

	metricMiddleware := metrics.NewMiddleware("api_server")
	metricMiddleware.MustRegisterDefault()

	router.Use(
		metricMiddleware.Handler,
		cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "PUT", "POST", "DELETE", "HEAD", "OPTIONS"},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: false,
			MaxAge:           300,
		}),
		chiMiddleware.RequestID,
		log.Logger(zap.L(), "api_server"),
		chiMiddleware.Recoverer,
	)

	router.Get("/health", s.handler.Health)
	router.Route("/api/v1alpha1", func(r chi.Router) {
		r.Post("/items", s.handler.CreateItem)
		r.Get("/items/{id}", s.handler.GetItem)
		r.Post("/jobs", s.handler.SubmitJob)
		r.Get("/jobs/{id}", s.handler.GetJob)
		r.Delete("/jobs/{id}", s.handler.CancelJob)
		r.Post("/webhooks/jobs", s.handler.JobWebhook)
	})

	httpServer := &http.Server{
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		ctxTimeout, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
		defer cancel()

		httpServer.SetKeepAlivesEnabled(false)
		_ = httpServer.Shutdown(ctxTimeout)
		zap.S().Named("api_server").Info("api server terminated")
	}()

	zap.S().Named("api_server").Infof("serving api: %s", s.listener.Addr())
	if err := httpServer.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}
