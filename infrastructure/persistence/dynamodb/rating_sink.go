package dynamodb

import (
	"context"
	"fmt"
	"time"

	"humaneval/domain/core/entities"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"
)

// RatingSink appends one item per rating under the rater's partition.
// Items are never overwritten.
type RatingSink struct {
	client    API
	tableName string
	layout    entities.RowLayout
	logger    *zap.Logger
}

// ratingItem represents the DynamoDB item structure for a rating
type ratingItem struct {
	PK         string            `dynamodbav:"PK"` // RATER#<rater_id>
	SK         string            `dynamodbav:"SK"` // RATING#<timestamp>#<rating_id>
	EntityType string            `dynamodbav:"EntityType"`
	RatingID   string            `dynamodbav:"RatingID"`
	RaterID    string            `dynamodbav:"RaterID"`
	ItemID     string            `dynamodbav:"ItemID"`
	Attributes map[string]string `dynamodbav:"Attributes"`
	Scores     map[string]int    `dynamodbav:"Scores"`
	Row        []string          `dynamodbav:"Row"`
	CreatedAt  string            `dynamodbav:"CreatedAt"`
}

// NewRatingSink creates a DynamoDB rating sink
func NewRatingSink(client API, tableName string, layout entities.RowLayout, logger *zap.Logger) *RatingSink {
	return &RatingSink{
		client:    client,
		tableName: tableName,
		layout:    layout,
		logger:    logger,
	}
}

// Name implements ports.RatingSink
func (s *RatingSink) Name() string { return "dynamodb" }

// Append implements ports.RatingSink
func (s *RatingSink) Append(ctx context.Context, rating *entities.Rating) error {
	createdAt := rating.CreatedAt().Format(time.RFC3339Nano)
	attrs := make(map[string]string, len(rating.Attributes()))
	for _, a := range rating.Attributes() {
		attrs[a.Name] = a.Value
	}

	item := ratingItem{
		PK:         "RATER#" + rating.RaterID().String(),
		SK:         fmt.Sprintf("RATING#%s#%s", createdAt, rating.ID()),
		EntityType: "RATING",
		RatingID:   rating.ID(),
		RaterID:    rating.RaterID().String(),
		ItemID:     rating.ItemID(),
		Attributes: attrs,
		Scores:     rating.Scores(),
		Row:        s.layout.Row(rating),
		CreatedAt:  createdAt,
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal rating: %w", err)
	}

	expr, err := expression.NewBuilder().
		WithCondition(expression.Name("SK").AttributeNotExists()).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build condition: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(s.tableName),
		Item:                      av,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		s.logger.Error("Failed to append rating", append(errorFields(err),
			zap.String("raterID", item.RaterID),
			zap.String("itemID", item.ItemID),
		)...)
		return fmt.Errorf("failed to put rating: %w", err)
	}

	s.logger.Debug("Rating appended",
		zap.String("raterID", item.RaterID),
		zap.String("itemID", item.ItemID),
		zap.String("sk", item.SK),
	)
	return nil
}

// Close implements ports.RatingSink
func (s *RatingSink) Close() error { return nil }
