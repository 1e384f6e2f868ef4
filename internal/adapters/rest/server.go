package rest

import (
	"context"
	"fmt"
	"net/http"

	core_port "catalog-view-service/internal/core/port"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Server - наш REST API сервер.
type Server struct {
	httpServer *http.Server
	logger     core_port.LoggerPort
}

// NewServer создает новый экземпляр сервера.
func NewServer(
	port string,
	viewHandler *ViewHandler,
	listingHandler *ListingHandler,
	authMiddleware *AuthMiddleware,
	baseLogger core_port.LoggerPort,
) *Server {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RealIP)
	r.Use(LoggerMiddleware(baseLogger))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Trace-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Identity извлекается для всех маршрутов: чтение доступно анониму,
	// но аннотация capability зависит от того, кто спрашивает.
	r.Use(authMiddleware.Identify)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/views", func(r chi.Router) {
			r.Post("/", viewHandler.CreateView)
			r.Route("/{viewID}", func(r chi.Router) {
				r.Get("/", viewHandler.GetView)
				r.Get("/stream", viewHandler.StreamView)
				r.Post("/load-more", viewHandler.LoadMore)
				r.Put("/filters", viewHandler.UpdateFilters)
				r.Put("/identity", viewHandler.UpdateIdentity)
				r.Delete("/", viewHandler.CloseView)
			})
		})

		// Мутации каталога. Все приватные: анонимный запрос не имеет
		// шансов пройти авторитетную проверку хранилища, так что
		// отклоняем его сразу.
		r.Route("/listings", func(r chi.Router) {
			r.Use(RequireIdentity)

			r.Post("/", listingHandler.PublishListing)
			r.Route("/{listingID}", func(r chi.Router) {
				r.Put("/", listingHandler.EditListing)
				r.Patch("/status", listingHandler.ChangeStatus)
				r.Delete("/", listingHandler.DeleteListing)
				r.Post("/collaborators", listingHandler.GrantAccess)
				r.Delete("/collaborators/{userID}", listingHandler.RevokeAccess)
			})
		})
	})

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	return &Server{
		httpServer: srv,
		logger:     baseLogger,
	}
}

// Start запускает HTTP-сервер.
func (s *Server) Start() error {
	s.logger.Info("Starting REST API server", core_port.Fields{"address": s.httpServer.Addr})
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.logger.Error("Could not start server", err, nil)
		return fmt.Errorf("could not start server: %w", err)
	}
	return nil
}

// Stop корректно останавливает сервер.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping REST API server...", nil)
	return s.httpServer.Shutdown(ctx)
}
