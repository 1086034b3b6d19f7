package valueobjects

import (
	"strings"
	"testing"

	pkgerrors "humaneval/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRaterID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"plain name", "alice", "alice", false},
		{"trims whitespace", "  bob  ", "bob", false},
		{"empty", "", "", true},
		{"only spaces", "   ", "", true},
		{"too long", strings.Repeat("x", MaxRaterIDLength+1), "", true},
		{"max length", strings.Repeat("é", MaxRaterIDLength), strings.Repeat("é", MaxRaterIDLength), false},
		{"newline", "ali\nce", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := NewRaterID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidIdentity))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, id.String())
		})
	}
}

func TestRubric_Validate(t *testing.T) {
	r := DefaultRubric()

	tests := []struct {
		name    string
		scores  map[string]int
		wantErr string
	}{
		{
			name:   "all dimensions in range",
			scores: map[string]int{"realism": 1, "age_appropriateness": 5, "ethnic_consistency": 3},
		},
		{
			name:    "missing dimension",
			scores:  map[string]int{"realism": 1, "age_appropriateness": 5},
			wantErr: "ethnic_consistency is required",
		},
		{
			name:    "out of range",
			scores:  map[string]int{"realism": 0, "age_appropriateness": 5, "ethnic_consistency": 6},
			wantErr: "realism must be between 1 and 5",
		},
		{
			name:    "unknown dimension",
			scores:  map[string]int{"realism": 1, "age_appropriateness": 5, "ethnic_consistency": 3, "beauty": 2},
			wantErr: "beauty is not a rated dimension",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.Validate(tt.scores)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidScores))
		})
	}
}

func TestNewRubric_RejectsBadDefinitions(t *testing.T) {
	_, err := NewRubric(nil, 1, 5)
	assert.Error(t, err)

	_, err = NewRubric([]string{"a", "a"}, 1, 5)
	assert.Error(t, err)

	_, err = NewRubric([]string{"a"}, 5, 1)
	assert.Error(t, err)

	r, err := NewRubric([]string{" a ", "b"}, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, r.Dimensions())
	assert.Equal(t, 0, r.Min())
	assert.Equal(t, 10, r.Max())
}
