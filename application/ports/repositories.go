package ports

import (
	"context"

	"humaneval/domain/core/aggregates"
	"humaneval/domain/core/entities"
	"humaneval/domain/core/valueobjects"
	"humaneval/domain/events"
)

// SessionStore keeps each rater's assigned subset and cursor.
// This is a port in hexagonal architecture - the domain doesn't know about the implementation
type SessionStore interface {
	// Get returns the stored session, or a SESSION_NOT_FOUND error
	Get(ctx context.Context, raterID valueobjects.RaterID) (*aggregates.Session, error)

	// Create stores a new session unless one already exists for the rater.
	// It returns whichever session is stored after the call, so two racing
	// first contacts converge on one draw.
	Create(ctx context.Context, session *aggregates.Session) (stored *aggregates.Session, created bool, err error)

	// SaveCursor persists the session's cursor if the stored cursor still
	// equals expectedCursor. A lost race returns a CURSOR_CONFLICT error.
	SaveCursor(ctx context.Context, session *aggregates.Session, expectedCursor int) error
}

// RatingSink is the durable, append-only destination for ratings.
// Append must be individually atomic: concurrent calls never tear a row.
type RatingSink interface {
	// Append writes exactly one row for the rating
	Append(ctx context.Context, rating *entities.Rating) error

	// Name identifies the backend in logs, metrics and errors
	Name() string

	// Close releases file handles or clients
	Close() error
}

// ItemCatalog is the read-only table of items that can be assigned
type ItemCatalog interface {
	// Pool returns every item identifier in catalog order
	Pool(ctx context.Context) ([]string, error)

	// Item returns one item with its descriptive attributes
	Item(ctx context.Context, id string) (entities.Item, error)

	// AttributeColumns returns the attribute names in column order
	AttributeColumns() []string

	// IDColumn names the column that holds item identifiers
	IDColumn() string
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	// Publish sends a single event
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch sends multiple events
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}
