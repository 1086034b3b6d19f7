package di

import (
	"errors"
	"io"

	"humaneval/application/commands/bus"
	"humaneval/application/ports"
	querybus "humaneval/application/queries/bus"
	"humaneval/application/services"
	"humaneval/infrastructure/catalog"
	"humaneval/infrastructure/config"
	"humaneval/pkg/observability"

	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config         *config.Config
	Logger         *zap.Logger
	Catalog        *catalog.CSVCatalog
	CatalogWatcher *catalog.Watcher
	SessionStore   ports.SessionStore
	Sink           ports.RatingSink
	Publisher      ports.EventPublisher
	Assigner       *services.SessionAssigner
	Recorder       *services.ResultRecorder
	CommandBus     *bus.CommandBus
	QueryBus       *querybus.QueryBus
	Metrics        *observability.Collector
	Tracer         *observability.Tracer
}

// Close releases the sink, the watcher and any store goroutines
func (c *Container) Close() error {
	var errs []error
	if c.CatalogWatcher != nil {
		errs = append(errs, c.CatalogWatcher.Close())
	}
	if c.Sink != nil {
		errs = append(errs, c.Sink.Close())
	}
	if closer, ok := c.SessionStore.(io.Closer); ok {
		errs = append(errs, closer.Close())
	}
	_ = c.Logger.Sync()
	return errors.Join(errs...)
}
