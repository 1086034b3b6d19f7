package services

import (
	"context"
	"fmt"

	"humaneval/application/ports"
	"humaneval/domain/core/aggregates"
	"humaneval/domain/core/valueobjects"
	pkgerrors "humaneval/pkg/errors"
	"humaneval/pkg/observability"

	"go.uber.org/zap"
)

// SessionAssigner owns each rater's random subset and cursor.
//
// StartSession is an idempotent lookup: a rater who already has a session
// gets it back unchanged, so a UI re-render can never re-randomize the
// subset. Work for one rater is serialized through WithRaterLock; different
// raters never wait on each other.
type SessionAssigner struct {
	store    ports.SessionStore
	shuffler aggregates.Shuffler
	locks    *keyedMutex
	metrics  *observability.Collector
	logger   *zap.Logger
}

// NewSessionAssigner creates a new session assigner. A nil shuffler uses the
// package-level random source; a nil metrics collector disables metrics.
func NewSessionAssigner(
	store ports.SessionStore,
	shuffler aggregates.Shuffler,
	metrics *observability.Collector,
	logger *zap.Logger,
) *SessionAssigner {
	if shuffler == nil {
		shuffler = aggregates.DefaultShuffler
	}
	return &SessionAssigner{
		store:    store,
		shuffler: shuffler,
		locks:    newKeyedMutex(),
		metrics:  metrics,
		logger:   logger,
	}
}

// StartSession returns the rater's existing session, or draws sampleSize
// distinct items from pool and stores a new one with the cursor at zero.
func (a *SessionAssigner) StartSession(ctx context.Context, identity string, pool []string, sampleSize int) (*aggregates.Session, error) {
	raterID, err := valueobjects.NewRaterID(identity)
	if err != nil {
		return nil, err
	}

	var session *aggregates.Session
	err = a.WithRaterLock(raterID, func() error {
		var startErr error
		session, startErr = a.start(ctx, raterID, pool, sampleSize)
		return startErr
	})
	return session, err
}

func (a *SessionAssigner) start(ctx context.Context, raterID valueobjects.RaterID, pool []string, sampleSize int) (*aggregates.Session, error) {
	existing, err := a.store.Get(ctx, raterID)
	if err == nil {
		a.logger.Debug("Resuming existing session",
			zap.String("raterID", raterID.String()),
			zap.Int("cursor", existing.Cursor()),
			zap.Int("size", existing.Size()),
		)
		return existing, nil
	}
	if !pkgerrors.HasCode(err, pkgerrors.CodeSessionNotFound) {
		return nil, fmt.Errorf("failed to look up session: %w", err)
	}

	fresh, err := aggregates.NewSession(raterID, pool, sampleSize, a.shuffler)
	if err != nil {
		a.logger.Warn("Failed to start session",
			zap.String("raterID", raterID.String()),
			zap.Int("poolSize", len(pool)),
			zap.Int("sampleSize", sampleSize),
			zap.Error(err),
		)
		return nil, err
	}

	stored, created, err := a.store.Create(ctx, fresh)
	if err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	if created {
		a.metrics.SessionStarted()
		a.logger.Info("Session started",
			zap.String("raterID", raterID.String()),
			zap.Int("sampleSize", stored.Size()),
		)
		if stored.IsComplete() {
			a.metrics.SessionCompleted()
		}
	}

	return stored, nil
}

// Lookup returns the rater's session without creating one
func (a *SessionAssigner) Lookup(ctx context.Context, identity string) (*aggregates.Session, error) {
	raterID, err := valueobjects.NewRaterID(identity)
	if err != nil {
		return nil, err
	}
	return a.store.Get(ctx, raterID)
}

// CurrentItem returns the item at the cursor; ok is false once the session is done
func (a *SessionAssigner) CurrentItem(session *aggregates.Session) (itemID string, ok bool) {
	return session.CurrentItem()
}

// Advance moves the cursor one step and persists it. Callers must hold the
// rater lock and must only call this after the current item's rating has
// been durably recorded.
func (a *SessionAssigner) Advance(ctx context.Context, session *aggregates.Session) error {
	expected := session.Cursor()

	if err := session.Advance(); err != nil {
		// the submit flow checks completion before recording, so this is a bug
		a.logger.Error("Advance called on completed session",
			zap.String("raterID", session.RaterID().String()),
			zap.Int("cursor", expected),
			zap.Error(err),
		)
		return err
	}

	if err := a.store.SaveCursor(ctx, session, expected); err != nil {
		return fmt.Errorf("failed to persist cursor: %w", err)
	}

	if session.IsComplete() {
		a.metrics.SessionCompleted()
		a.logger.Info("Session completed",
			zap.String("raterID", session.RaterID().String()),
			zap.Int("itemsRated", session.Size()),
		)
	}
	return nil
}

// WithRaterLock runs fn while holding the rater's lock
func (a *SessionAssigner) WithRaterLock(raterID valueobjects.RaterID, fn func() error) error {
	unlock := a.locks.Lock(raterID.String())
	defer unlock()
	return fn()
}
