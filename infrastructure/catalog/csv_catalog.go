// Package catalog loads the table of items raters can be assigned.
package catalog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"humaneval/domain/core/entities"
	pkgerrors "humaneval/pkg/errors"

	"go.uber.org/zap"
)

// CSVCatalog reads items from a CSV file with a header row. One column holds
// the item identifier; a configured list of columns become item attributes.
//
// Reload swaps the table atomically. Items dropped by a reload stay
// resolvable so sessions drawn before the reload can still be completed.
type CSVCatalog struct {
	path       string
	idColumn   string
	attributes []string
	logger     *zap.Logger

	mu      sync.RWMutex
	pool    []string
	items   map[string]entities.Item
	retired map[string]entities.Item
}

// NewCSVCatalog loads the catalog at path
func NewCSVCatalog(path, idColumn string, attributes []string, logger *zap.Logger) (*CSVCatalog, error) {
	if idColumn == "" {
		return nil, fmt.Errorf("catalog ID column cannot be empty")
	}

	c := &CSVCatalog{
		path:       path,
		idColumn:   idColumn,
		attributes: append([]string(nil), attributes...),
		logger:     logger,
		retired:    make(map[string]entities.Item),
	}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// Path returns the backing file
func (c *CSVCatalog) Path() string { return c.path }

// Pool implements ports.ItemCatalog
func (c *CSVCatalog) Pool(ctx context.Context) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]string, len(c.pool))
	copy(out, c.pool)
	return out, nil
}

// Item implements ports.ItemCatalog
func (c *CSVCatalog) Item(ctx context.Context, id string) (entities.Item, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if item, ok := c.items[id]; ok {
		return item, nil
	}
	if item, ok := c.retired[id]; ok {
		return item, nil
	}
	return entities.Item{}, pkgerrors.NewItemNotFoundError(id)
}

// AttributeColumns implements ports.ItemCatalog
func (c *CSVCatalog) AttributeColumns() []string {
	return append([]string(nil), c.attributes...)
}

// IDColumn implements ports.ItemCatalog
func (c *CSVCatalog) IDColumn() string { return c.idColumn }

// Len returns the number of rows in the current table
func (c *CSVCatalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.pool)
}

// Reload re-reads the file. On error the current table is kept.
func (c *CSVCatalog) Reload() error {
	f, err := os.Open(c.path)
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()

	pool, items, err := c.parse(f)
	if err != nil {
		return fmt.Errorf("failed to parse catalog %s: %w", c.path, err)
	}

	c.mu.Lock()
	for id, item := range c.items {
		if _, still := items[id]; !still {
			c.retired[id] = item
		}
	}
	for id := range items {
		delete(c.retired, id)
	}
	c.pool = pool
	c.items = items
	c.mu.Unlock()

	c.logger.Info("Catalog loaded",
		zap.String("path", c.path),
		zap.Int("items", len(pool)),
	)
	return nil
}

func (c *CSVCatalog) parse(r io.Reader) ([]string, map[string]entities.Item, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, fmt.Errorf("catalog is empty")
	}
	if err != nil {
		return nil, nil, err
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}

	idIdx, ok := index[c.idColumn]
	if !ok {
		return nil, nil, fmt.Errorf("missing ID column %q", c.idColumn)
	}
	attrIdx := make([]int, len(c.attributes))
	for i, name := range c.attributes {
		idx, ok := index[name]
		if !ok {
			return nil, nil, fmt.Errorf("missing attribute column %q", name)
		}
		attrIdx[i] = idx
	}

	var pool []string
	items := make(map[string]entities.Item)
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, err
		}

		id := strings.TrimSpace(field(record, idIdx))
		if id == "" {
			c.logger.Warn("Skipping catalog row without ID", zap.Int("line", line))
			continue
		}
		if _, dup := items[id]; dup {
			// first row wins; the pool keeps the duplicate for the assigner to collapse
			pool = append(pool, id)
			continue
		}

		attrs := make([]entities.Attribute, len(c.attributes))
		for i, name := range c.attributes {
			attrs[i] = entities.Attribute{Name: name, Value: field(record, attrIdx[i])}
		}
		items[id] = entities.Item{ID: id, Attributes: attrs}
		pool = append(pool, id)
	}

	return pool, items, nil
}

func field(record []string, i int) string {
	if i < len(record) {
		return record[i]
	}
	return ""
}
