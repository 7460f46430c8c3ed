package http

import (
	"log/slog"

	"github.com/yanqian/meteo-burkina/internal/domain/advice"
	"github.com/yanqian/meteo-burkina/internal/domain/auth"
	"github.com/yanqian/meteo-burkina/internal/domain/payment"
	"github.com/yanqian/meteo-burkina/internal/domain/weather"
	"github.com/yanqian/meteo-burkina/internal/infra/config"
)

// Handler wires the HTTP transport to domain services.
type Handler struct {
	weatherSvc        weather.Service
	adviceSvc         advice.Service
	authSvc           auth.Service
	paymentSvc        payment.Service
	allowedOrigins    []string
	postLoginRedirect string
	logger            *slog.Logger
}

// NewHandler constructs the root HTTP handler.
func NewHandler(
	cfg *config.Config,
	weatherSvc weather.Service,
	adviceSvc advice.Service,
	authSvc auth.Service,
	paymentSvc payment.Service,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		weatherSvc:        weatherSvc,
		adviceSvc:         adviceSvc,
		authSvc:           authSvc,
		paymentSvc:        paymentSvc,
		allowedOrigins:    cfg.HTTP.AllowedOrigins,
		postLoginRedirect: cfg.Auth.Google.PostLoginRedirectURL,
		logger:            logger.With("component", "http.handler"),
	}
}
