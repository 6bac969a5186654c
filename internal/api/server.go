package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"daily-tracker/internal/service"
)

// Server is the REST backend of the web client.
type Server struct {
	entries *service.EntryService
	users   *service.UserService
	admin   *service.AdminService
	router  *gin.Engine
}

// NewServer creates the router with CORS, bearer auth and all routes.
func NewServer(entries *service.EntryService, users *service.UserService, admin *service.AdminService, origins []string) *Server {
	router := gin.Default()

	s := &Server{
		entries: entries,
		users:   users,
		admin:   admin,
		router:  router,
	}

	if h := corsMiddleware(origins); h != nil {
		router.Use(h)
	}

	router.GET("/", s.handleRoot)
	router.GET("/health", s.handleHealth)

	api := router.Group("/api", s.authenticate)
	{
		api.GET("/users/me", s.handleMe)

		entries := api.Group("/entries")
		entries.POST("", s.handleCreateEntry)
		entries.GET("", s.handleListEntries)
		entries.DELETE("", s.handleDeleteTask)
		entries.GET("/summary", s.handleSummary)
		entries.GET("/day/:date", s.handleEntriesOn)
		entries.POST("/toggle", s.handleToggle)
		entries.PUT("/:id", s.handleUpdateEntry)
		entries.DELETE("/:id", s.handleDeleteEntry)

		admin := api.Group("/admin", requireAdmin)
		admin.GET("/users", s.handleListUsers)
		admin.PUT("/users/:id", s.handleUpdateUser)
		admin.DELETE("/users/:id", s.handleDeleteUser)
		admin.GET("/users/entries/:userId", s.handleUserEntries)
		admin.GET("/logs", s.handleLogs)
	}

	return s
}

// Handler exposes the router for tests and custom listeners.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[info] HTTP API listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
