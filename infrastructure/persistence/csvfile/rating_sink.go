// Package csvfile appends ratings to a flat CSV table on local disk.
package csvfile

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"humaneval/domain/core/entities"

	"go.uber.org/zap"
)

// RatingSink appends one CSV row per rating. The file is created with a
// header row on first write.
//
// Each row is encoded in memory and handed to a single write on a file
// opened with O_APPEND, then fsynced, so rows from concurrent raters never
// interleave within a line. The mutex additionally orders writers inside
// this process so the header is written exactly once.
type RatingSink struct {
	path   string
	layout entities.RowLayout
	mu     sync.Mutex
	logger *zap.Logger
}

// NewRatingSink creates a sink writing to path
func NewRatingSink(path string, layout entities.RowLayout, logger *zap.Logger) (*RatingSink, error) {
	if path == "" {
		return nil, fmt.Errorf("results path cannot be empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create results directory: %w", err)
		}
	}
	return &RatingSink{
		path:   path,
		layout: layout,
		logger: logger,
	}, nil
}

// Name implements ports.RatingSink
func (s *RatingSink) Name() string { return "csv" }

// Path returns the table location
func (s *RatingSink) Path() string { return s.path }

// Append implements ports.RatingSink
func (s *RatingSink) Append(ctx context.Context, rating *entities.Rating) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open results file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat results file: %w", err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if info.Size() == 0 {
		if err := w.Write(s.layout.Header()); err != nil {
			return fmt.Errorf("failed to encode header: %w", err)
		}
	}
	if err := w.Write(s.layout.Row(rating)); err != nil {
		return fmt.Errorf("failed to encode row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to encode row: %w", err)
	}

	if _, err := f.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to append row: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync results file: %w", err)
	}

	if info.Size() == 0 {
		s.logger.Info("Created results table", zap.String("path", s.path))
	}
	return nil
}

// Close implements ports.RatingSink
func (s *RatingSink) Close() error { return nil }
