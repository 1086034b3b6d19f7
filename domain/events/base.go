package events

import (
	"time"
)

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

// SourceService is the event source name on the bus
const SourceService = "humaneval.sessions"

const (
	TypeSessionStarted   = "session.started"
	TypeRatingRecorded   = "rating.recorded"
	TypeSessionCompleted = "session.completed"
)

// SessionStarted is raised when a rater is assigned a fresh subset
type SessionStarted struct {
	BaseEvent
	RaterID    string `json:"rater_id"`
	SampleSize int    `json:"sample_size"`
}

// NewSessionStarted creates a SessionStarted event
func NewSessionStarted(raterID string, sampleSize int, timestamp time.Time) SessionStarted {
	return SessionStarted{
		BaseEvent: BaseEvent{
			AggregateID: raterID,
			EventType:   TypeSessionStarted,
			Timestamp:   timestamp,
			Version:     1,
		},
		RaterID:    raterID,
		SampleSize: sampleSize,
	}
}

// RatingRecorded is raised after a rating has been durably appended and the
// cursor moved past its item
type RatingRecorded struct {
	BaseEvent
	RaterID  string `json:"rater_id"`
	RatingID string `json:"rating_id"`
	ItemID   string `json:"item_id"`
	Position int    `json:"position"`
}

// NewRatingRecorded creates a RatingRecorded event
func NewRatingRecorded(raterID, ratingID, itemID string, position, version int, timestamp time.Time) RatingRecorded {
	return RatingRecorded{
		BaseEvent: BaseEvent{
			AggregateID: raterID,
			EventType:   TypeRatingRecorded,
			Timestamp:   timestamp,
			Version:     version,
		},
		RaterID:  raterID,
		RatingID: ratingID,
		ItemID:   itemID,
		Position: position,
	}
}

// SessionCompleted is raised when the cursor reaches the end of the subset
type SessionCompleted struct {
	BaseEvent
	RaterID    string `json:"rater_id"`
	ItemsRated int    `json:"items_rated"`
}

// NewSessionCompleted creates a SessionCompleted event
func NewSessionCompleted(raterID string, itemsRated, version int, timestamp time.Time) SessionCompleted {
	return SessionCompleted{
		BaseEvent: BaseEvent{
			AggregateID: raterID,
			EventType:   TypeSessionCompleted,
			Timestamp:   timestamp,
			Version:     version,
		},
		RaterID:    raterID,
		ItemsRated: itemsRated,
	}
}
