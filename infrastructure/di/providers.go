package di

import (
	"context"
	"fmt"

	"humaneval/application/commands/bus"
	commandhandlers "humaneval/application/commands/handlers"
	"humaneval/application/ports"
	querybus "humaneval/application/queries/bus"
	queryhandlers "humaneval/application/queries/handlers"
	"humaneval/application/services"
	"humaneval/domain/core/aggregates"
	"humaneval/domain/core/entities"
	"humaneval/domain/core/valueobjects"
	"humaneval/infrastructure/catalog"
	"humaneval/infrastructure/config"
	"humaneval/infrastructure/messaging"
	"humaneval/infrastructure/messaging/eventbridge"
	"humaneval/infrastructure/persistence/csvfile"
	"humaneval/infrastructure/persistence/dynamodb"
	"humaneval/infrastructure/persistence/memory"
	"humaneval/infrastructure/persistence/sheets"
	"humaneval/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const serviceName = "humaneval"

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.IsProduction() {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)

	return zcfg.Build()
}

// ProvideAWSConfig creates AWS configuration. Without an AWS backend it
// returns a region-only config and never reads shared profiles.
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	if !cfg.NeedsAWS() {
		return aws.Config{Region: cfg.AWSRegion}, nil
	}
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideMetrics returns nil when metrics are disabled
func ProvideMetrics(cfg *config.Config) *observability.Collector {
	if !cfg.EnableMetrics {
		return nil
	}
	return observability.NewCollector(serviceName)
}

// ProvideTracer returns nil when tracing is disabled
func ProvideTracer(cfg *config.Config) *observability.Tracer {
	if !cfg.EnableTracing {
		return nil
	}
	return observability.NewTracer(serviceName)
}

// ProvideRubric builds the scoring rubric from configuration
func ProvideRubric(cfg *config.Config) (valueobjects.Rubric, error) {
	return valueobjects.NewRubric(cfg.ScoreDimensions, cfg.ScoreMin, cfg.ScoreMax)
}

// ProvideCatalog loads the item catalog
func ProvideCatalog(cfg *config.Config, metrics *observability.Collector, logger *zap.Logger) (*catalog.CSVCatalog, error) {
	c, err := catalog.NewCSVCatalog(cfg.CatalogPath, cfg.CatalogIDColumn, cfg.CatalogAttributeColumns, logger)
	if err != nil {
		metrics.CatalogLoaded(0, err)
		return nil, err
	}
	metrics.CatalogLoaded(c.Len(), nil)
	return c, nil
}

// ProvideCatalogWatcher returns nil unless WATCH_CATALOG is set
func ProvideCatalogWatcher(cfg *config.Config, c *catalog.CSVCatalog, metrics *observability.Collector, logger *zap.Logger) (*catalog.Watcher, error) {
	if !cfg.WatchCatalog {
		return nil, nil
	}
	return catalog.NewWatcher(c, metrics, logger)
}

// ProvideRowLayout fixes the column order of the results table
func ProvideRowLayout(c ports.ItemCatalog, rubric valueobjects.Rubric) entities.RowLayout {
	return entities.NewRowLayout(c.IDColumn(), c.AttributeColumns(), rubric)
}

// ProvideSessionStore selects the session store backend
func ProvideSessionStore(cfg *config.Config, client *awsdynamodb.Client, logger *zap.Logger) ports.SessionStore {
	if cfg.SessionStore == config.StoreDynamoDB {
		return dynamodb.NewSessionStore(client, cfg.DynamoDBTable, cfg.SessionTTL, logger)
	}
	return memory.NewSessionStore(cfg.SessionTTL)
}

// ProvideRatingSink selects the rating sink backend
func ProvideRatingSink(
	ctx context.Context,
	cfg *config.Config,
	layout entities.RowLayout,
	client *awsdynamodb.Client,
	logger *zap.Logger,
) (ports.RatingSink, error) {
	switch cfg.Sink {
	case config.SinkSheets:
		sink, err := sheets.NewRatingSink(ctx, sheets.Config{
			SpreadsheetID:   cfg.SheetsSpreadsheetID,
			SheetName:       cfg.SheetsSheetName,
			CredentialsFile: cfg.SheetsCredentialsFile,
		}, layout, logger)
		if err != nil {
			return nil, err
		}
		if err := sink.EnsureHeader(ctx); err != nil {
			logger.Warn("Could not write sheet header", zap.Error(err))
		}
		return sink, nil
	case config.SinkDynamoDB:
		return dynamodb.NewRatingSink(client, cfg.DynamoDBTable, layout, logger), nil
	default:
		return csvfile.NewRatingSink(cfg.ResultsPath, layout, logger)
	}
}

// ProvideEventPublisher publishes to EventBridge when a bus is configured and
// logs events otherwise
func ProvideEventPublisher(cfg *config.Config, client *awseventbridge.Client, logger *zap.Logger) ports.EventPublisher {
	if cfg.EventBusName == "" {
		return messaging.NewLogPublisher(logger)
	}
	return eventbridge.NewPublisher(client, cfg.EventBusName, logger)
}

// ProvideShuffler returns the process-wide random source
func ProvideShuffler() aggregates.Shuffler {
	return aggregates.DefaultShuffler
}

// ProvideSessionAssigner creates the session assigner
func ProvideSessionAssigner(
	store ports.SessionStore,
	shuffler aggregates.Shuffler,
	metrics *observability.Collector,
	logger *zap.Logger,
) *services.SessionAssigner {
	return services.NewSessionAssigner(store, shuffler, metrics, logger)
}

// ProvideResultRecorder wraps the sink with a timeout and circuit breaker
func ProvideResultRecorder(
	cfg *config.Config,
	sink ports.RatingSink,
	metrics *observability.Collector,
	tracer *observability.Tracer,
	logger *zap.Logger,
) *services.ResultRecorder {
	return services.NewResultRecorder(sink, services.RecorderConfig{
		Timeout:                 cfg.SinkTimeout,
		BreakerMaxRequests:      cfg.BreakerMaxRequests,
		BreakerInterval:         cfg.BreakerInterval,
		BreakerTimeout:          cfg.BreakerTimeout,
		BreakerFailureThreshold: cfg.BreakerFailureThreshold,
		BreakerMinRequests:      cfg.BreakerMinRequests,
	}, metrics, tracer, logger)
}

// ProvideCommandBus creates a command bus with registered handlers
func ProvideCommandBus(
	cfg *config.Config,
	assigner *services.SessionAssigner,
	recorder *services.ResultRecorder,
	itemCatalog ports.ItemCatalog,
	rubric valueobjects.Rubric,
	publisher ports.EventPublisher,
	metrics *observability.Collector,
	logger *zap.Logger,
) (*bus.CommandBus, error) {
	commandBus := bus.NewCommandBus(
		bus.LoggingMiddleware(logger),
		bus.MetricsMiddleware(metrics),
	)

	startHandler := commandhandlers.NewStartSessionHandler(assigner, itemCatalog, publisher, cfg.SampleSize, logger)
	if err := bus.Register(commandBus, startHandler.Handle); err != nil {
		return nil, err
	}

	submitHandler := commandhandlers.NewSubmitRatingHandler(assigner, recorder, itemCatalog, rubric, publisher, metrics, logger)
	if err := bus.Register(commandBus, submitHandler.Handle); err != nil {
		return nil, err
	}

	return commandBus, nil
}

// ProvideQueryBus creates a query bus with registered handlers
func ProvideQueryBus(
	assigner *services.SessionAssigner,
	itemCatalog ports.ItemCatalog,
	logger *zap.Logger,
) (*querybus.QueryBus, error) {
	queryBus := querybus.NewQueryBus()

	statusHandler := queryhandlers.NewGetSessionStatusHandler(assigner, itemCatalog, logger)
	if err := querybus.Register(queryBus, statusHandler.Handle); err != nil {
		return nil, err
	}

	itemHandler := queryhandlers.NewGetItemHandler(itemCatalog)
	if err := querybus.Register(queryBus, itemHandler.Handle); err != nil {
		return nil, err
	}

	return queryBus, nil
}
