//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/yanqian/meteo-burkina/internal/bootstrap"
	"github.com/yanqian/meteo-burkina/internal/domain/advice"
	"github.com/yanqian/meteo-burkina/internal/domain/auth"
	"github.com/yanqian/meteo-burkina/internal/domain/payment"
	"github.com/yanqian/meteo-burkina/internal/domain/weather"
	"github.com/yanqian/meteo-burkina/internal/infra/config"
	httpiface "github.com/yanqian/meteo-burkina/internal/interface/http"
	"github.com/yanqian/meteo-burkina/pkg/logger"
	"github.com/yanqian/meteo-burkina/pkg/metrics"
)

func initializeApp() (*bootstrap.App, error) {
	wire.Build(
		config.Load,
		logger.New,
		metrics.NewCollectors,
		provideTokenCounter,
		provideWeatherConfig,
		provideWeatherProvider,
		provideWeatherCache,
		provideGenerator,
		provideAuthConfig,
		provideMailer,
		providePostgresPool,
		provideAuthRepository,
		provideSubscriptionRepository,
		providePaymentConfig,
		providePaymentGateway,
		weather.NewService,
		advice.NewService,
		auth.NewService,
		payment.NewService,
		httpiface.NewHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil
}
