package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/meteo-burkina/internal/domain/auth"
	"github.com/yanqian/meteo-burkina/internal/infra/config"
	"github.com/yanqian/meteo-burkina/pkg/metrics"
)

// NewRouter wires up the HTTP handlers and returns a configured server.
func NewRouter(cfg *config.Config, handler *Handler, authSvc auth.Service, collectors *metrics.Collectors, logger *slog.Logger) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	logger = logger.With("component", "http.router")

	router := gin.New()
	router.Use(
		gin.Recovery(),
		requestIDMiddleware(),
		requestLogger(logger),
		metricsMiddleware(collectors),
		corsMiddleware(cfg.HTTP.AllowedOrigins),
		errorHandlingMiddleware(logger),
	)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if collectors != nil {
		router.GET("/metrics", gin.WrapH(collectors.Handler()))
	}
	router.POST("/api/payment/webhook", handler.PaymentWebhook)

	requireAuth := authMiddleware(authSvc)

	api := router.Group("/api/v1")
	api.Use(rateLimitMiddleware(cfg.HTTP.RateLimit, logger))
	{
		api.GET("/cities", handler.Cities)
		api.GET("/plans", handler.Plans)

		weatherGroup := api.Group("/weather")
		weatherGroup.GET("/current", handler.CurrentWeather)
		weatherGroup.GET("/by-coords", handler.WeatherByCoords)
		weatherGroup.GET("/forecast", handler.Forecast)
		weatherGroup.GET("/dashboard", handler.Dashboard)

		api.POST("/advice", optionalAuthMiddleware(authSvc), handler.Advice)

		authGroup := api.Group("/auth")
		authGroup.POST("/register", handler.Register)
		authGroup.GET("/verify", handler.VerifyEmail)
		authGroup.POST("/verify/resend", handler.ResendVerification)
		authGroup.POST("/login", handler.Login)
		authGroup.POST("/refresh", handler.Refresh)
		authGroup.GET("/google/login", handler.GoogleLogin)
		authGroup.GET("/google/callback", handler.GoogleCallback)
		authGroup.GET("/me", requireAuth, handler.Me)
		authGroup.POST("/logout", requireAuth, handler.Logout)

		paymentGroup := api.Group("/payments", requireAuth)
		paymentGroup.POST("/invoices", handler.CreateInvoice)
		paymentGroup.POST("/confirm", handler.ConfirmPayment)

		api.GET("/subscription", requireAuth, handler.Subscription)
	}

	return &http.Server{
		Addr:           cfg.HTTP.Address,
		Handler:        router,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}
