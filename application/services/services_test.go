package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"humaneval/domain/core/aggregates"
	"humaneval/domain/core/entities"
	"humaneval/domain/core/valueobjects"
	"humaneval/infrastructure/persistence/memory"
	pkgerrors "humaneval/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockSink struct {
	mock.Mock
}

func (m *mockSink) Append(ctx context.Context, rating *entities.Rating) error {
	return m.Called(ctx, rating).Error(0)
}

func (m *mockSink) Name() string { return "mock" }

func (m *mockSink) Close() error { return nil }

func testRating(t *testing.T) *entities.Rating {
	t.Helper()
	raterID, err := valueobjects.NewRaterID("alice")
	require.NoError(t, err)
	rating, err := entities.NewRating(raterID, entities.Item{ID: "A"}, map[string]int{
		"realism": 3, "age_appropriateness": 3, "ethnic_consistency": 3,
	}, valueobjects.DefaultRubric(), time.Now())
	require.NoError(t, err)
	return rating
}

func newAssigner(seed int64) *SessionAssigner {
	return NewSessionAssigner(memory.NewSessionStore(0), rand.New(rand.NewSource(seed)), nil, zap.NewNop())
}

func TestSessionAssigner_StartSessionIsIdempotent(t *testing.T) {
	// Arrange
	ctx := context.Background()
	assigner := newAssigner(1)
	pool := []string{"A", "B", "C", "D", "E"}

	// Act
	first, err := assigner.StartSession(ctx, "alice", pool, 3)
	require.NoError(t, err)
	second, err := assigner.StartSession(ctx, "  alice ", pool, 3)
	require.NoError(t, err)

	// Assert
	assert.Equal(t, first.Subset(), second.Subset())
	assert.Equal(t, 0, second.Cursor())
}

func TestSessionAssigner_StartSessionIgnoresLaterPoolChanges(t *testing.T) {
	ctx := context.Background()
	assigner := newAssigner(2)

	first, err := assigner.StartSession(ctx, "alice", []string{"A", "B", "C"}, 2)
	require.NoError(t, err)
	second, err := assigner.StartSession(ctx, "alice", []string{"X", "Y", "Z"}, 2)
	require.NoError(t, err)

	assert.Equal(t, first.Subset(), second.Subset())
}

func TestSessionAssigner_StartSessionErrors(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		identity string
		pool     []string
		size     int
		code     string
	}{
		{"empty identity", "   ", []string{"A"}, 1, pkgerrors.CodeInvalidIdentity},
		{"pool too small", "bob", []string{"A", "B"}, 3, pkgerrors.CodeInsufficientPool},
		{"duplicates do not count", "bob", []string{"A", "A", "A"}, 2, pkgerrors.CodeInsufficientPool},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newAssigner(3).StartSession(ctx, tt.identity, tt.pool, tt.size)
			assert.True(t, pkgerrors.HasCode(err, tt.code), "got %v", err)
		})
	}
}

func TestSessionAssigner_ConcurrentFirstContactConverges(t *testing.T) {
	ctx := context.Background()
	assigner := NewSessionAssigner(memory.NewSessionStore(0), nil, nil, zap.NewNop())
	pool := make([]string, 100)
	for i := range pool {
		pool[i] = fmt.Sprintf("img%03d", i)
	}

	var wg sync.WaitGroup
	subsets := make([][]string, 10)
	for i := range subsets {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := assigner.StartSession(ctx, "carol", pool, 30)
			if assert.NoError(t, err) {
				subsets[i] = s.Subset()
			}
		}(i)
	}
	wg.Wait()

	for _, s := range subsets[1:] {
		assert.Equal(t, subsets[0], s)
	}
}

func TestSessionAssigner_AdvancePersistsCursor(t *testing.T) {
	ctx := context.Background()
	assigner := newAssigner(4)

	session, err := assigner.StartSession(ctx, "alice", []string{"A", "B"}, 2)
	require.NoError(t, err)
	require.NoError(t, assigner.Advance(ctx, session))

	reloaded, err := assigner.Lookup(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.Cursor())

	require.NoError(t, assigner.Advance(ctx, reloaded))
	final, err := assigner.Lookup(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, final.IsComplete())

	err = assigner.Advance(ctx, final)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeAlreadyComplete))
}

func TestSessionAssigner_AdvanceWithStaleSnapshotConflicts(t *testing.T) {
	ctx := context.Background()
	assigner := newAssigner(5)

	_, err := assigner.StartSession(ctx, "alice", []string{"A", "B", "C"}, 3)
	require.NoError(t, err)

	a, _ := assigner.Lookup(ctx, "alice")
	b, _ := assigner.Lookup(ctx, "alice")

	require.NoError(t, assigner.Advance(ctx, a))
	err = assigner.Advance(ctx, b)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeCursorConflict))
}

func TestResultRecorder_RecordSuccess(t *testing.T) {
	ctx := context.Background()
	sink := new(mockSink)
	recorder := NewResultRecorder(sink, DefaultRecorderConfig(), nil, nil, zap.NewNop())
	rating := testRating(t)

	sink.On("Append", mock.Anything, rating).Return(nil).Once()

	require.NoError(t, recorder.Record(ctx, rating))
	sink.AssertExpectations(t)
}

func TestResultRecorder_SinkFailureIsRetryable(t *testing.T) {
	ctx := context.Background()
	sink := new(mockSink)
	recorder := NewResultRecorder(sink, DefaultRecorderConfig(), nil, nil, zap.NewNop())
	boom := errors.New("disk full")

	sink.On("Append", mock.Anything, mock.Anything).Return(boom)

	err := recorder.Record(ctx, testRating(t))

	require.Error(t, err)
	assert.True(t, pkgerrors.IsSinkUnavailable(err))
	assert.ErrorIs(t, err, boom)
	appErr := pkgerrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.True(t, appErr.Retryable)
}

func TestResultRecorder_TimesOutSlowSink(t *testing.T) {
	ctx := context.Background()
	sink := new(mockSink)
	cfg := DefaultRecorderConfig()
	cfg.Timeout = 50 * time.Millisecond
	recorder := NewResultRecorder(sink, cfg, nil, nil, zap.NewNop())

	release := make(chan struct{})
	defer close(release)
	sink.On("Append", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		<-release
	}).Return(nil)

	start := time.Now()
	err := recorder.Record(ctx, testRating(t))

	assert.True(t, pkgerrors.IsSinkUnavailable(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestResultRecorder_BreakerOpensAfterRepeatedFailures(t *testing.T) {
	ctx := context.Background()
	sink := new(mockSink)
	cfg := DefaultRecorderConfig()
	cfg.BreakerMinRequests = 2
	cfg.BreakerFailureThreshold = 0.5
	cfg.BreakerTimeout = time.Minute
	recorder := NewResultRecorder(sink, cfg, nil, nil, zap.NewNop())

	sink.On("Append", mock.Anything, mock.Anything).Return(errors.New("unreachable"))

	for i := 0; i < 2; i++ {
		assert.Error(t, recorder.Record(ctx, testRating(t)))
	}
	err := recorder.Record(ctx, testRating(t))

	assert.True(t, pkgerrors.IsSinkUnavailable(err))
	sink.AssertNumberOfCalls(t, "Append", 2)
}

func TestResultRecorder_RejectsNil(t *testing.T) {
	recorder := NewResultRecorder(new(mockSink), DefaultRecorderConfig(), nil, nil, zap.NewNop())
	assert.True(t, pkgerrors.IsValidation(recorder.Record(context.Background(), nil)))
}

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	km := newKeyedMutex()
	var (
		wg      sync.WaitGroup
		inside  int
		maxSeen int
		mu      sync.Mutex
	)

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.Lock("alice")
			defer unlock()

			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
	assert.Equal(t, 0, km.size())
}

func TestKeyedMutex_DifferentKeysDoNotBlock(t *testing.T) {
	km := newKeyedMutex()
	unlockA := km.Lock("alice")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlock := km.Lock("bob")
		unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock for bob waited on alice")
	}
}

var _ aggregates.Shuffler = (*rand.Rand)(nil)
