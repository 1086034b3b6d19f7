package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"humaneval/domain/core/aggregates"
	"humaneval/domain/core/valueobjects"
	pkgerrors "humaneval/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

const sessionSK = "SESSION"

// SessionStore persists sessions so a rater who returns after a restart
// resumes the same subset instead of getting a new draw.
type SessionStore struct {
	client    API
	tableName string
	ttl       time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// sessionItem represents the DynamoDB item structure for a session
type sessionItem struct {
	PK         string   `dynamodbav:"PK"` // RATER#<rater_id>
	SK         string   `dynamodbav:"SK"` // SESSION
	EntityType string   `dynamodbav:"EntityType"`
	RaterID    string   `dynamodbav:"RaterID"`
	Subset     []string `dynamodbav:"Subset"`
	Cursor     int      `dynamodbav:"Cursor"`
	CreatedAt  string   `dynamodbav:"CreatedAt"`
	UpdatedAt  string   `dynamodbav:"UpdatedAt"`
	Version    int      `dynamodbav:"Version"`
	TTL        int64    `dynamodbav:"TTL,omitempty"`
}

// NewSessionStore creates a new DynamoDB session store. A ttl of zero keeps
// sessions forever.
func NewSessionStore(client API, tableName string, ttl time.Duration, logger *zap.Logger) *SessionStore {
	return &SessionStore{
		client:    client,
		tableName: tableName,
		ttl:       ttl,
		logger:    logger,
		now:       time.Now,
	}
}

func sessionKey(raterID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: "RATER#" + raterID},
		"SK": &types.AttributeValueMemberS{Value: sessionSK},
	}
}

// Get implements ports.SessionStore
func (s *SessionStore) Get(ctx context.Context, raterID valueobjects.RaterID) (*aggregates.Session, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            sessionKey(raterID.String()),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		s.logger.Error("Failed to read session", errorFields(err)...)
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, pkgerrors.NewSessionNotFoundError(raterID.String())
	}

	var item sessionItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	// TTL deletion is lazy on the DynamoDB side
	if item.TTL > 0 && s.now().Unix() > item.TTL {
		return nil, pkgerrors.NewSessionNotFoundError(raterID.String())
	}

	return toSession(raterID, item)
}

// Create implements ports.SessionStore. The conditional put lets the first
// writer win; a loser reads back the winner's session.
func (s *SessionStore) Create(ctx context.Context, session *aggregates.Session) (*aggregates.Session, bool, error) {
	item := sessionItem{
		PK:         "RATER#" + session.RaterID().String(),
		SK:         sessionSK,
		EntityType: "SESSION",
		RaterID:    session.RaterID().String(),
		Subset:     session.Subset(),
		Cursor:     session.Cursor(),
		CreatedAt:  session.CreatedAt().Format(time.RFC3339Nano),
		UpdatedAt:  session.UpdatedAt().Format(time.RFC3339Nano),
		Version:    session.Version(),
		TTL:        s.expiry(),
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return nil, false, fmt.Errorf("failed to marshal session: %w", err)
	}

	cond := expression.Name("PK").AttributeNotExists()
	if item.TTL > 0 {
		// an expired but not yet reaped item may be replaced
		cond = cond.Or(expression.Name("TTL").LessThan(expression.Value(s.now().Unix())))
	}
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return nil, false, fmt.Errorf("failed to build condition: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(s.tableName),
		Item:                      av,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var conditionalCheckFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionalCheckFailed) {
			s.logger.Debug("Session already exists, returning stored one",
				zap.String("raterID", session.RaterID().String()),
			)
			existing, getErr := s.Get(ctx, session.RaterID())
			if getErr != nil {
				return nil, false, getErr
			}
			return existing, false, nil
		}
		s.logger.Error("Failed to create session", errorFields(err)...)
		return nil, false, fmt.Errorf("failed to create session: %w", err)
	}

	return session, true, nil
}

// SaveCursor implements ports.SessionStore with an update conditioned on the
// stored cursor
func (s *SessionStore) SaveCursor(ctx context.Context, session *aggregates.Session, expectedCursor int) error {
	update := expression.
		Set(expression.Name("Cursor"), expression.Value(session.Cursor())).
		Set(expression.Name("Version"), expression.Value(session.Version())).
		Set(expression.Name("UpdatedAt"), expression.Value(session.UpdatedAt().Format(time.RFC3339Nano)))
	if ttl := s.expiry(); ttl > 0 {
		update = update.Set(expression.Name("TTL"), expression.Value(ttl))
	}
	cond := expression.Name("Cursor").Equal(expression.Value(expectedCursor))

	expr, err := expression.NewBuilder().WithUpdate(update).WithCondition(cond).Build()
	if err != nil {
		return fmt.Errorf("failed to build update: %w", err)
	}

	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.tableName),
		Key:                       sessionKey(session.RaterID().String()),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var conditionalCheckFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionalCheckFailed) {
			return pkgerrors.NewCursorConflictError(session.RaterID().String(), expectedCursor)
		}
		s.logger.Error("Failed to save session cursor", errorFields(err)...)
		return fmt.Errorf("failed to save cursor: %w", err)
	}
	return nil
}

func (s *SessionStore) expiry() int64 {
	if s.ttl <= 0 {
		return 0
	}
	return s.now().Add(s.ttl).Unix()
}

func toSession(raterID valueobjects.RaterID, item sessionItem) (*aggregates.Session, error) {
	createdAt, err := time.Parse(time.RFC3339Nano, item.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid CreatedAt on stored session: %w", err)
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, item.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid UpdatedAt on stored session: %w", err)
	}
	return aggregates.ReconstructSession(raterID, item.Subset, item.Cursor, createdAt, updatedAt, item.Version)
}
