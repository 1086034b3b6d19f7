//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"humaneval/application/ports"
	"humaneval/infrastructure/catalog"
	"humaneval/infrastructure/config"

	"github.com/google/wire"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideEventBridgeClient,
	ProvideMetrics,
	ProvideTracer,
	ProvideRubric,
	ProvideCatalog,
	wire.Bind(new(ports.ItemCatalog), new(*catalog.CSVCatalog)),
	ProvideCatalogWatcher,
	ProvideRowLayout,
	ProvideSessionStore,
	ProvideRatingSink,
	ProvideEventPublisher,
	ProvideShuffler,
	ProvideSessionAssigner,
	ProvideResultRecorder,
	ProvideCommandBus,
	ProvideQueryBus,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil // Wire will replace this
}
