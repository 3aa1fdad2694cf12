package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	handlers "github.com/wekeepgrowing/portal-billing/internal/adapter/handler/http"
	"github.com/wekeepgrowing/portal-billing/internal/config"
	"github.com/wekeepgrowing/portal-billing/internal/middleware/auth"
	"github.com/wekeepgrowing/portal-billing/pkg/logger"
)

// Services are the use cases the routes delegate to.
type Services struct {
	Payments      handlers.PaymentService
	Invoices      handlers.InvoiceService
	Notifications handlers.NotificationService
	Verifier      handlers.EventVerifier
	Webhooks      handlers.WebhookProcessor
	HealthChecks  []handlers.HealthCheck
}

type Server struct {
	config   *config.Config
	logger   *zap.Logger
	echo     *echo.Echo
	services Services
}

func NewServer(cfg *config.Config, log *zap.Logger, services Services) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handlers.NewRequestValidator()
	e.HTTPErrorHandler = handlers.NewHTTPErrorHandler(log)
	logger.WithEchoLogger(e, log)

	// Middleware
	e.Use(middleware.RequestID())
	e.Use(logger.NewEchoRequestLogger(log))
	e.Use(middleware.Recover())
	if cfg.Service.ClientURL != "" {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: []string{cfg.Service.ClientURL},
			AllowMethods: []string{echo.GET, echo.POST, echo.PUT, echo.DELETE},
		}))
	}

	s := &Server{
		config:   cfg,
		logger:   log,
		echo:     e,
		services: services,
	}
	s.setupRoutes()
	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.HTTP.Host, s.config.Server.HTTP.Port)
	s.logger.Info("Starting HTTP server", zap.String("address", addr))

	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	healthHandler := handlers.NewHealthHandler(s.config.Service.Name, s.services.Verifier.Enabled(), s.logger, s.services.HealthChecks...)
	webhookHandler := handlers.NewWebhookHandler(s.services.Verifier, s.services.Webhooks, s.logger)
	paymentHandler := handlers.NewPaymentHandler(s.services.Payments, s.logger)
	invoiceHandler := handlers.NewInvoiceHandler(s.services.Invoices, s.logger)
	notificationHandler := handlers.NewNotificationHandler(s.services.Notifications, s.logger)

	s.echo.GET("/health", healthHandler.Health)

	// Webhook route (outside API versioning, authenticated by signature)
	s.echo.POST("/webhook/stripe", webhookHandler.HandleStripeWebhook)

	jwtConfig := auth.JWTConfig{
		Secret: s.config.JWT.Secret,
		Issuer: s.config.JWT.Issuer,
		Logger: s.logger,
	}
	adminOnly := auth.RequireRole(s.logger, auth.RoleAdmin)

	v1 := s.echo.Group("/api/v1", auth.JWTMiddleware(jwtConfig))

	payments := v1.Group("/payments")
	payments.POST("", paymentHandler.CreatePayment)
	payments.GET("", paymentHandler.GetUserPayments)
	payments.GET("/status/:intentId", paymentHandler.GetPaymentStatus)
	payments.GET("/admin/all", paymentHandler.GetAllPayments, adminOnly)
	payments.GET("/:id", paymentHandler.GetPayment)

	invoices := v1.Group("/invoices")
	invoices.GET("", invoiceHandler.GetUserInvoices)
	invoices.GET("/admin/all", invoiceHandler.GetAllInvoices, adminOnly)
	invoices.GET("/:id", invoiceHandler.GetInvoice)
	invoices.POST("", invoiceHandler.CreateInvoice, adminOnly)
	invoices.PUT("/:id/status", invoiceHandler.UpdateInvoiceStatus, adminOnly)
	invoices.DELETE("/:id", invoiceHandler.DeleteInvoice, adminOnly)

	notifications := v1.Group("/notifications")
	notifications.GET("", notificationHandler.GetNotifications)
	notifications.GET("/stream", notificationHandler.StreamNotifications)
	notifications.PUT("/read-all", notificationHandler.MarkAllRead)
	notifications.PUT("/:id/read", notificationHandler.MarkRead)
	notifications.DELETE("/:id", notificationHandler.DeleteNotification)
}
