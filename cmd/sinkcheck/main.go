// Command sinkcheck appends one clearly marked test row through the
// configured rating sink, to confirm credentials and permissions before
// raters start.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"humaneval/domain/core/entities"
	"humaneval/domain/core/valueobjects"
	"humaneval/infrastructure/config"
	"humaneval/infrastructure/di"
	"humaneval/pkg/utils"

	"go.uber.org/zap"
)

func main() {
	rater := flag.String("rater", "sinkcheck", "rater name written in the test row")
	item := flag.String("item", "test_image.png", "item identifier written in the test row")
	timeout := flag.Duration("timeout", 30*time.Second, "overall deadline")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	container, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	defer container.Close()
	logger := container.Logger

	raterID, err := valueobjects.NewRaterID(*rater)
	if err != nil {
		logger.Fatal("Invalid rater name", zap.Error(err))
	}

	rubric, err := valueobjects.NewRubric(cfg.ScoreDimensions, cfg.ScoreMin, cfg.ScoreMax)
	if err != nil {
		logger.Fatal("Invalid rubric", zap.Error(err))
	}
	scores := make(map[string]int, len(rubric.Dimensions()))
	for _, dim := range rubric.Dimensions() {
		scores[dim] = rubric.Max()
	}

	attrs := make([]entities.Attribute, 0, len(container.Catalog.AttributeColumns()))
	for _, name := range container.Catalog.AttributeColumns() {
		attrs = append(attrs, entities.Attribute{Name: name, Value: "test"})
	}

	rating, err := entities.NewRating(raterID, entities.Item{ID: *item, Attributes: attrs}, scores, rubric, utils.NowUTC())
	if err != nil {
		logger.Fatal("Failed to build test rating", zap.Error(err))
	}

	if err := container.Recorder.Record(ctx, rating); err != nil {
		logger.Error("Sink check failed", zap.String("sink", container.Sink.Name()), zap.Error(err))
		container.Close()
		os.Exit(1)
	}

	logger.Info("Test row appended",
		zap.String("sink", container.Sink.Name()),
		zap.String("ratingID", rating.ID()),
	)
}
