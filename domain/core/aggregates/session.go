package aggregates

import (
	"fmt"
	"math/rand"
	"time"

	"humaneval/domain/core/valueobjects"
	"humaneval/domain/events"
	pkgerrors "humaneval/pkg/errors"
)

// SessionState is derived from the cursor position
type SessionState string

const (
	StateInProgress SessionState = "in_progress"
	StateComplete   SessionState = "complete"
)

// Shuffler permutes n elements in place. *rand.Rand satisfies it.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

type globalShuffler struct{}

func (globalShuffler) Shuffle(n int, swap func(i, j int)) { rand.Shuffle(n, swap) }

// DefaultShuffler uses the auto-seeded package-level source.
var DefaultShuffler Shuffler = globalShuffler{}

// Session is one rater's fixed random subset of items plus a cursor to the
// next unrated item.
//
// The subset never changes after creation. The cursor only moves forward,
// one step per durably recorded rating, and stops at len(subset).
type Session struct {
	raterID   valueobjects.RaterID
	subset    []string
	cursor    int
	createdAt time.Time
	updatedAt time.Time
	version   int

	events []events.DomainEvent
}

// NewSession draws sampleSize distinct items from pool, uniformly at random.
// Duplicate identifiers in pool are collapsed before drawing.
func NewSession(raterID valueobjects.RaterID, pool []string, sampleSize int, shuffler Shuffler) (*Session, error) {
	if raterID.IsZero() {
		return nil, pkgerrors.NewInvalidIdentityError("rater ID cannot be empty")
	}
	if sampleSize < 0 {
		return nil, pkgerrors.NewValidationError(fmt.Sprintf("sample size cannot be negative: %d", sampleSize))
	}
	if shuffler == nil {
		shuffler = DefaultShuffler
	}

	distinct := dedupe(pool)
	if len(distinct) < sampleSize {
		return nil, pkgerrors.NewInsufficientPoolError(len(distinct), sampleSize)
	}

	shuffler.Shuffle(len(distinct), func(i, j int) {
		distinct[i], distinct[j] = distinct[j], distinct[i]
	})

	subset := make([]string, sampleSize)
	copy(subset, distinct[:sampleSize])

	now := time.Now().UTC()
	s := &Session{
		raterID:   raterID,
		subset:    subset,
		cursor:    0,
		createdAt: now,
		updatedAt: now,
		version:   1,
	}
	s.addEvent(events.NewSessionStarted(raterID.String(), sampleSize, now))
	return s, nil
}

// ReconstructSession rebuilds a session loaded from a store. It re-checks
// the invariants a corrupted record could break.
func ReconstructSession(
	raterID valueobjects.RaterID,
	subset []string,
	cursor int,
	createdAt, updatedAt time.Time,
	version int,
) (*Session, error) {
	if raterID.IsZero() {
		return nil, pkgerrors.NewInvalidIdentityError("rater ID cannot be empty")
	}
	if cursor < 0 || cursor > len(subset) {
		return nil, pkgerrors.NewInternalError(fmt.Sprintf("stored cursor %d outside [0, %d]", cursor, len(subset)))
	}
	if len(dedupe(subset)) != len(subset) {
		return nil, pkgerrors.NewInternalError("stored subset contains duplicate items")
	}

	sub := make([]string, len(subset))
	copy(sub, subset)

	return &Session{
		raterID:   raterID,
		subset:    sub,
		cursor:    cursor,
		createdAt: createdAt,
		updatedAt: updatedAt,
		version:   version,
	}, nil
}

// RaterID returns the identity that owns the session
func (s *Session) RaterID() valueobjects.RaterID { return s.raterID }

// Subset returns a copy of the assigned items in presentation order
func (s *Session) Subset() []string {
	out := make([]string, len(s.subset))
	copy(out, s.subset)
	return out
}

// Cursor returns the index of the next unrated item
func (s *Session) Cursor() int { return s.cursor }

// Size returns the number of assigned items
func (s *Session) Size() int { return len(s.subset) }

// CreatedAt returns when the subset was drawn
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// UpdatedAt returns when the cursor last moved
func (s *Session) UpdatedAt() time.Time { return s.updatedAt }

// Version increases by one on every advance
func (s *Session) Version() int { return s.version }

// State reports whether items remain
func (s *Session) State() SessionState {
	if s.cursor >= len(s.subset) {
		return StateComplete
	}
	return StateInProgress
}

// IsComplete reports whether every assigned item has been rated
func (s *Session) IsComplete() bool {
	return s.State() == StateComplete
}

// CurrentItem returns the item at the cursor. ok is false once the session
// is complete.
func (s *Session) CurrentItem() (itemID string, ok bool) {
	if s.cursor >= len(s.subset) {
		return "", false
	}
	return s.subset[s.cursor], true
}

// Advance moves the cursor past the current item. Call it only after the
// item's rating has been durably recorded.
func (s *Session) Advance() error {
	if s.IsComplete() {
		return pkgerrors.NewAlreadyCompleteError(s.raterID.String())
	}

	s.cursor++
	s.version++
	s.updatedAt = time.Now().UTC()

	if s.IsComplete() {
		s.addEvent(events.NewSessionCompleted(s.raterID.String(), len(s.subset), s.version, s.updatedAt))
	}
	return nil
}

// Progress returns how many items are done and how many were assigned
func (s *Session) Progress() (done, total int) {
	return s.cursor, len(s.subset)
}

// Clone returns an independent copy, used by stores that hand out snapshots
func (s *Session) Clone() *Session {
	c := *s
	c.subset = s.Subset()
	c.events = nil
	return &c
}

// GetUncommittedEvents returns events raised since the last commit
func (s *Session) GetUncommittedEvents() []events.DomainEvent {
	out := make([]events.DomainEvent, len(s.events))
	copy(out, s.events)
	return out
}

// MarkEventsAsCommitted clears the pending events
func (s *Session) MarkEventsAsCommitted() {
	s.events = nil
}

func (s *Session) addEvent(event events.DomainEvent) {
	s.events = append(s.events, event)
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
