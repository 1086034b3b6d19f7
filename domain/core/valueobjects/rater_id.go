package valueobjects

import (
	"encoding/json"
	"strings"
	"unicode/utf8"

	pkgerrors "humaneval/pkg/errors"
)

// MaxRaterIDLength caps the free-text name a rater may enter.
const MaxRaterIDLength = 30

// RaterID is the free-text identity a rater enters before starting.
// It keys the rater's session for the lifetime of that session; it is not
// an authenticated principal.
type RaterID struct {
	value string
}

// NewRaterID trims surrounding whitespace and validates the result
func NewRaterID(raw string) (RaterID, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return RaterID{}, pkgerrors.NewInvalidIdentityError("rater ID cannot be empty")
	}
	if utf8.RuneCountInString(value) > MaxRaterIDLength {
		return RaterID{}, pkgerrors.NewInvalidIdentityError("rater ID is too long").
			WithDetail("max_length", MaxRaterIDLength)
	}
	if strings.ContainsAny(value, "\r\n\t") {
		return RaterID{}, pkgerrors.NewInvalidIdentityError("rater ID cannot contain control characters")
	}
	return RaterID{value: value}, nil
}

// String returns the string representation of the RaterID
func (id RaterID) String() string {
	return id.value
}

// Equals checks if two RaterIDs are equal
func (id RaterID) Equals(other RaterID) bool {
	return id.value == other.value
}

// IsZero checks if the RaterID is the zero value
func (id RaterID) IsZero() bool {
	return id.value == ""
}

// MarshalJSON implements json.Marshaler
func (id RaterID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.value)
}
