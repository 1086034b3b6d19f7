package entities

import (
	"testing"
	"time"

	"humaneval/domain/core/valueobjects"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testItem() Item {
	return Item{
		ID: "img001.png",
		Attributes: []Attribute{
			{Name: "ethnicity", Value: "African"},
			{Name: "age_group", Value: "20-29"},
		},
	}
}

func TestNewRating_CopiesInputs(t *testing.T) {
	rater, err := valueobjects.NewRaterID("test_user")
	require.NoError(t, err)

	item := testItem()
	scores := map[string]int{"realism": 4, "age_appropriateness": 5, "ethnic_consistency": 4}
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("CEST", 2*3600))

	r, err := NewRating(rater, item, scores, valueobjects.DefaultRubric(), at)
	require.NoError(t, err)

	item.Attributes[0].Value = "changed"
	scores["realism"] = 1

	v, _ := r.Attribute("ethnicity")
	assert.Equal(t, "African", v)
	s, _ := r.Score("realism")
	assert.Equal(t, 4, s)
	assert.Equal(t, time.UTC, r.CreatedAt().Location())
	assert.NotEmpty(t, r.ID())
}

func TestNewRating_RejectsInvalidScores(t *testing.T) {
	rater, _ := valueobjects.NewRaterID("u")

	_, err := NewRating(rater, testItem(), map[string]int{"realism": 9}, valueobjects.DefaultRubric(), time.Now())
	assert.Error(t, err)

	_, err = NewRating(valueobjects.RaterID{}, testItem(), nil, valueobjects.DefaultRubric(), time.Now())
	assert.Error(t, err)
}

func TestRowLayout_HeaderAndRow(t *testing.T) {
	layout := NewRowLayout("filename", []string{"ethnicity", "age_group"}, valueobjects.DefaultRubric())
	rater, _ := valueobjects.NewRaterID("test_user")
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	r, err := NewRating(rater, testItem(), map[string]int{
		"realism": 4, "age_appropriateness": 5, "ethnic_consistency": 4,
	}, valueobjects.DefaultRubric(), at)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"user_id", "filename", "ethnicity", "age_group",
		"realism", "age_appropriateness", "ethnic_consistency", "timestamp",
	}, layout.Header())
	assert.Equal(t, []string{
		"test_user", "img001.png", "African", "20-29", "4", "5", "4", "2024-05-01T10:00:00Z",
	}, layout.Row(r))
	assert.Equal(t, []interface{}{
		"test_user", "img001.png", "African", "20-29", 4, 5, 4, "2024-05-01T10:00:00Z",
	}, layout.Values(r))
	assert.Equal(t, len(layout.Header()), layout.Width())
}

func TestRowLayout_MissingAttributeIsEmptyCell(t *testing.T) {
	layout := NewRowLayout("", []string{"ethnicity", "skin_tone"}, valueobjects.DefaultRubric())
	rater, _ := valueobjects.NewRaterID("u")
	r, err := NewRating(rater, testItem(), map[string]int{
		"realism": 1, "age_appropriateness": 1, "ethnic_consistency": 1,
	}, valueobjects.DefaultRubric(), time.Now())
	require.NoError(t, err)

	row := layout.Row(r)
	assert.Equal(t, "item_id", layout.Header()[1])
	assert.Equal(t, "", row[3])
}
