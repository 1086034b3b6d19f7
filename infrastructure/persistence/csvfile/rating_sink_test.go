package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"humaneval/domain/core/entities"
	"humaneval/domain/core/valueobjects"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRating(t *testing.T, rater, itemID string) *entities.Rating {
	t.Helper()
	raterID, err := valueobjects.NewRaterID(rater)
	require.NoError(t, err)
	item := entities.Item{ID: itemID, Attributes: []entities.Attribute{
		{Name: "ethnicity", Value: "asian"},
		{Name: "age_group", Value: "adult, young"},
	}}
	rating, err := entities.NewRating(raterID, item, map[string]int{
		"realism": 5, "age_appropriateness": 4, "ethnic_consistency": 3,
	}, valueobjects.DefaultRubric(), time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return rating
}

func testLayout() entities.RowLayout {
	return entities.NewRowLayout("filename", []string{"ethnicity", "age_group"}, valueobjects.DefaultRubric())
}

func readAll(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestRatingSink_WritesHeaderOnce(t *testing.T) {
	// Arrange
	path := filepath.Join(t.TempDir(), "results", "evaluation_results.csv")
	sink, err := NewRatingSink(path, testLayout(), zap.NewNop())
	require.NoError(t, err)
	ctx := context.Background()

	// Act
	require.NoError(t, sink.Append(ctx, newRating(t, "alice", "a.png")))
	require.NoError(t, sink.Append(ctx, newRating(t, "alice", "b.png")))

	// Assert
	records := readAll(t, path)
	require.Len(t, records, 3)
	assert.Equal(t, []string{
		"user_id", "filename", "ethnicity", "age_group",
		"realism", "age_appropriateness", "ethnic_consistency", "timestamp",
	}, records[0])
	assert.Equal(t, []string{
		"alice", "a.png", "asian", "adult, young", "5", "4", "3", "2024-05-01T12:00:00Z",
	}, records[1])
	assert.Equal(t, "b.png", records[2][1])
}

func TestRatingSink_AppendsToExistingFileWithoutHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "evaluation_results.csv")
	first, err := NewRatingSink(path, testLayout(), zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, first.Append(context.Background(), newRating(t, "alice", "a.png")))

	// a restarted process opens the same table
	second, err := NewRatingSink(path, testLayout(), zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, second.Append(context.Background(), newRating(t, "bob", "b.png")))

	records := readAll(t, path)
	require.Len(t, records, 3)
	assert.Equal(t, "bob", records[2][0])
}

func TestRatingSink_ConcurrentAppendsNeverTear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "evaluation_results.csv")
	sink, err := NewRatingSink(path, testLayout(), zap.NewNop())
	require.NoError(t, err)

	const raters, each = 8, 25
	var wg sync.WaitGroup
	for r := 0; r < raters; r++ {
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			for i := 0; i < each; i++ {
				rating := newRating(t, fmt.Sprintf("rater%d", r), fmt.Sprintf("img%d.png", i))
				assert.NoError(t, sink.Append(context.Background(), rating))
			}
		}(r)
	}
	wg.Wait()

	records := readAll(t, path)
	require.Len(t, records, 1+raters*each)
	for _, rec := range records[1:] {
		assert.Len(t, rec, testLayout().Width())
	}
}

func TestRatingSink_CancelledContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "evaluation_results.csv")
	sink, err := NewRatingSink(path, testLayout(), zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, sink.Append(ctx, newRating(t, "alice", "a.png")), context.Canceled)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestNewRatingSink_RejectsEmptyPath(t *testing.T) {
	_, err := NewRatingSink("", testLayout(), zap.NewNop())
	assert.Error(t, err)
}
