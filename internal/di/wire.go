//go:build wireinject
// +build wireinject

package di

import (
	"ChartServer/pkg/config"
	"ChartServer/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		ProvideCache,
		ProvideHub,
		ProvidePublisher,

		ProvideScheduler,
		ProvideChartsUseCase,

		ProvideHTTPHandler,
		ProvideHTTPServer,

		ProvideApp,
	)
	return &server.App{}, nil
}
