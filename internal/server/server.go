package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"portfolio-api/internal/blog"
	"portfolio-api/internal/config"
	"portfolio-api/internal/mailer"
	"portfolio-api/internal/models"
)

const (
	maxBodyBytes        = 1 << 20 // 1 MiB
	shutdownGracePeriod = 10 * time.Second
	readTimeout         = 30 * time.Second
	writeTimeout        = 120 * time.Second
	idleTimeout         = 120 * time.Second
)

// ChatGateway obtains a completion for a conversation.
type ChatGateway interface {
	Complete(ctx context.Context, conversation []models.Message) (string, error)
}

// Store persists newsletter subscriptions and contact messages.
type Store interface {
	Subscribe(ctx context.Context, email, name, ipAddress string) (models.Subscriber, bool, error)
	Unsubscribe(ctx context.Context, email string) error
	ListSubscribers(ctx context.Context, status string, limit int) ([]models.Subscriber, error)
	SaveContact(ctx context.Context, msg models.ContactMessage) (models.ContactMessage, error)
	ListContacts(ctx context.Context) ([]models.ContactMessage, error)
}

// Server is the portfolio HTTP API.
type Server struct {
	cfg     config.Config
	gateway ChatGateway
	store   Store
	library *blog.Library
	mail    *mailer.Mailer
	app     *echo.Echo
	address string
}

// New constructs an HTTP server wired with routing and middleware.
func New(cfg config.Config, gw ChatGateway, st Store, library *blog.Library, mail *mailer.Mailer) (*Server, error) {
	if gw == nil {
		return nil, errors.New("gateway must not be nil")
	}
	if st == nil {
		return nil, errors.New("store must not be nil")
	}
	if library == nil {
		return nil, errors.New("blog library must not be nil")
	}
	if mail == nil {
		return nil, errors.New("mailer must not be nil")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogLatency: true,
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			slog.Info("request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
				"error", v.Error,
			)
			return nil
		},
	}))
	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		HSTSMaxAge:         31536000,
	}))

	srv := &Server{
		cfg:     cfg,
		gateway: gw,
		store:   st,
		library: library,
		mail:    mail,
		app:     e,
		address: fmt.Sprintf(":%d", cfg.Server.Port),
	}

	srv.registerRoutes()

	return srv, nil
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	slog.Info("starting server", "addr", s.address)

	httpServer := &http.Server{
		Addr:         s.address,
		Handler:      s.app,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.app.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()
		if err := s.app.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		slog.Info("server shutdown complete")
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) registerRoutes() {
	s.app.GET("/health", s.handleHealth)
	s.app.POST("/api/chat", s.handleChat)
	s.app.POST("/api/newsletter", s.handleSubscribe)
	s.app.POST("/api/newsletter/unsubscribe", s.handleUnsubscribe)
	s.app.POST("/api/contact", s.handleContact)
	s.app.GET("/api/blog", s.handleListPosts)
	s.app.GET("/api/blog/:slug", s.handleGetPost)

	// The record-listing endpoints stay off entirely unless a token is set;
	// exposing subscriber emails without auth is not an option.
	if s.cfg.Admin.Token == "" {
		slog.Warn("admin.token not configured, admin endpoints disabled")
		return
	}
	admin := s.app.Group("/api", s.requireAdmin)
	admin.GET("/newsletter", s.handleListSubscribers)
	admin.GET("/contact", s.handleListContacts)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if c.Request().Header.Get(echo.HeaderAuthorization) != "Bearer "+s.cfg.Admin.Token {
			return requestError{Status: http.StatusUnauthorized, Message: "unauthorized"}
		}
		return next(c)
	}
}

type requestError struct {
	Status  int
	Message string
}

func (e requestError) Error() string {
	return e.Message
}

func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var reqErr requestError
	if errors.As(err, &reqErr) {
		_ = c.JSON(reqErr.Status, map[string]string{"error": reqErr.Message})
		return
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		_ = c.JSON(httpErr.Code, map[string]string{"error": fmt.Sprintf("%v", httpErr.Message)})
		return
	}

	_ = c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal server error"})
}
