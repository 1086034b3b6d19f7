// Package sheets appends ratings as rows of a Google Sheets spreadsheet.
package sheets

import (
	"context"
	"fmt"
	"strings"

	"humaneval/domain/core/entities"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Config identifies the target sheet and the service account used to reach it
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsFile string
}

// RatingSink appends one row per rating through the Sheets values.append
// API. The API inserts each call as a whole new row, so concurrent appends
// never share a row.
type RatingSink struct {
	service       *sheets.Service
	spreadsheetID string
	sheetRange    string
	layout        entities.RowLayout
	logger        *zap.Logger
}

// NewRatingSink builds the Sheets client once. Extra options are appended
// after the credential options, which lets tests point the client at a fake
// endpoint.
func NewRatingSink(ctx context.Context, cfg Config, layout entities.RowLayout, logger *zap.Logger, opts ...option.ClientOption) (*RatingSink, error) {
	if cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet ID cannot be empty")
	}
	if cfg.SheetName == "" {
		cfg.SheetName = "Sheet1"
	}

	clientOpts := []option.ClientOption{option.WithScopes(sheets.SpreadsheetsScope)}
	if cfg.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	clientOpts = append(clientOpts, opts...)

	service, err := sheets.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}

	return &RatingSink{
		service:       service,
		spreadsheetID: cfg.SpreadsheetID,
		sheetRange:    quoteSheetName(cfg.SheetName),
		layout:        layout,
		logger:        logger,
	}, nil
}

// Name implements ports.RatingSink
func (s *RatingSink) Name() string { return "sheets" }

// Append implements ports.RatingSink
func (s *RatingSink) Append(ctx context.Context, rating *entities.Rating) error {
	return s.appendValues(ctx, s.layout.Values(rating))
}

// EnsureHeader writes the header row when the sheet's first row is empty.
// It runs once at startup; Append never reads the sheet.
func (s *RatingSink) EnsureHeader(ctx context.Context) error {
	resp, err := s.service.Spreadsheets.Values.
		Get(s.spreadsheetID, s.sheetRange+"!1:1").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to read header row: %w", err)
	}
	if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
		return nil
	}

	header := s.layout.Header()
	row := make([]interface{}, len(header))
	for i, h := range header {
		row[i] = h
	}
	if err := s.appendValues(ctx, row); err != nil {
		return fmt.Errorf("failed to write header row: %w", err)
	}

	s.logger.Info("Wrote header row to sheet",
		zap.String("spreadsheetID", s.spreadsheetID),
		zap.String("range", s.sheetRange),
	)
	return nil
}

func (s *RatingSink) appendValues(ctx context.Context, row []interface{}) error {
	vr := &sheets.ValueRange{Values: [][]interface{}{row}}

	resp, err := s.service.Spreadsheets.Values.
		Append(s.spreadsheetID, s.sheetRange, vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to append row: %w", err)
	}
	if resp.Updates != nil && resp.Updates.UpdatedRows != 1 {
		return fmt.Errorf("append reported %d updated rows, expected 1", resp.Updates.UpdatedRows)
	}
	return nil
}

// Close implements ports.RatingSink
func (s *RatingSink) Close() error { return nil }

func quoteSheetName(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}
