package eventbridge

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"humaneval/domain/events"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockEventBridge struct {
	mock.Mock
}

func (m *mockEventBridge) PutEvents(ctx context.Context, params *eventbridge.PutEventsInput, _ ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*eventbridge.PutEventsOutput)
	return out, args.Error(1)
}

func TestPublisher_ChunksBatchesOfTen(t *testing.T) {
	// Arrange
	ctx := context.Background()
	client := new(mockEventBridge)
	publisher := NewPublisher(client, "evals-bus", zap.NewNop())

	batch := make([]events.DomainEvent, 23)
	for i := range batch {
		batch[i] = events.NewSessionStarted(fmt.Sprintf("rater-%d", i), 30, time.Now())
	}

	var sizes []int
	client.On("PutEvents", ctx, mock.Anything).Run(func(args mock.Arguments) {
		in := args.Get(1).(*eventbridge.PutEventsInput)
		sizes = append(sizes, len(in.Entries))
		for _, e := range in.Entries {
			assert.Equal(t, "evals-bus", aws.ToString(e.EventBusName))
			assert.Equal(t, events.SourceService, aws.ToString(e.Source))
			assert.Equal(t, events.TypeSessionStarted, aws.ToString(e.DetailType))
		}
	}).Return(&eventbridge.PutEventsOutput{}, nil)

	// Act
	err := publisher.PublishBatch(ctx, batch)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []int{10, 10, 3}, sizes)
}

func TestPublisher_ReportsFailedEntries(t *testing.T) {
	ctx := context.Background()
	client := new(mockEventBridge)
	publisher := NewPublisher(client, "evals-bus", zap.NewNop())

	client.On("PutEvents", ctx, mock.Anything).Return(&eventbridge.PutEventsOutput{
		FailedEntryCount: 1,
		Entries: []types.PutEventsResultEntry{
			{ErrorCode: aws.String("InternalFailure"), ErrorMessage: aws.String("boom")},
		},
	}, nil)

	err := publisher.Publish(ctx, events.NewSessionCompleted("alice", 30, 31, time.Now()))

	assert.Error(t, err)
}

func TestPublisher_PropagatesClientError(t *testing.T) {
	ctx := context.Background()
	client := new(mockEventBridge)
	publisher := NewPublisher(client, "evals-bus", zap.NewNop())
	boom := errors.New("throttled")

	client.On("PutEvents", ctx, mock.Anything).Return(nil, boom)

	err := publisher.Publish(ctx, events.NewSessionStarted("alice", 30, time.Now()))

	assert.ErrorIs(t, err, boom)
}

func TestPublisher_EmptyBatchIsNoop(t *testing.T) {
	client := new(mockEventBridge)
	publisher := NewPublisher(client, "evals-bus", zap.NewNop())

	assert.NoError(t, publisher.PublishBatch(context.Background(), nil))
	client.AssertNotCalled(t, "PutEvents", mock.Anything, mock.Anything)
}
