//go:build wireinject
// +build wireinject

package di

import (
	"MacroPull/pkg/config"
	"MacroPull/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,
		ProvideHTTPClient,

		// Cache
		ProvideCacheStore,
		ProvideCodec,
		ProvideSeriesCaches,

		// Sources
		ProvidePacer,
		ProvideYahoo,
		ProvideTradingView,
		ProvideBarChain,
		ProvideMacroFetcher,
		ProvideAggregator,
		ProvideMacroProvider,

		// Sinks
		ProvidePublisher,
		ProvideArchive,

		// Use cases
		ProvideAcquisition,
		ProvideScheduler,

		// Ops surface
		ProvideHealthHandler,
		ProvideHTTPServer,

		ProvideApp,
	)
	return &server.App{}, nil
}
