package entities

import (
	"strconv"
	"time"

	"humaneval/domain/core/valueobjects"
)

const (
	raterColumn     = "user_id"
	timestampColumn = "timestamp"
)

// RowLayout fixes the column order every sink writes:
// rater, item, attributes..., scores..., timestamp.
type RowLayout struct {
	itemColumn string
	attributes []string
	scores     []string
}

// NewRowLayout creates the layout for a catalog's attribute columns and a rubric
func NewRowLayout(itemColumn string, attributes []string, rubric valueobjects.Rubric) RowLayout {
	if itemColumn == "" {
		itemColumn = "item_id"
	}
	attrs := make([]string, len(attributes))
	copy(attrs, attributes)
	return RowLayout{
		itemColumn: itemColumn,
		attributes: attrs,
		scores:     rubric.Dimensions(),
	}
}

// Header returns the column names
func (l RowLayout) Header() []string {
	h := make([]string, 0, l.Width())
	h = append(h, raterColumn, l.itemColumn)
	h = append(h, l.attributes...)
	h = append(h, l.scores...)
	return append(h, timestampColumn)
}

// Width is the number of columns in a row
func (l RowLayout) Width() int {
	return 3 + len(l.attributes) + len(l.scores)
}

// ScoreColumns returns the score column names in order
func (l RowLayout) ScoreColumns() []string {
	out := make([]string, len(l.scores))
	copy(out, l.scores)
	return out
}

// Row renders a rating as string cells in header order. Missing attributes
// render as empty cells.
func (l RowLayout) Row(r *Rating) []string {
	row := make([]string, 0, l.Width())
	row = append(row, r.RaterID().String(), r.ItemID())
	for _, name := range l.attributes {
		v, _ := r.Attribute(name)
		row = append(row, v)
	}
	for _, dim := range l.scores {
		v, _ := r.Score(dim)
		row = append(row, strconv.Itoa(v))
	}
	return append(row, r.CreatedAt().Format(time.RFC3339))
}

// Values renders a rating like Row but keeps scores numeric, for sinks that
// store typed cells.
func (l RowLayout) Values(r *Rating) []interface{} {
	values := make([]interface{}, 0, l.Width())
	values = append(values, r.RaterID().String(), r.ItemID())
	for _, name := range l.attributes {
		v, _ := r.Attribute(name)
		values = append(values, v)
	}
	for _, dim := range l.scores {
		v, _ := r.Score(dim)
		values = append(values, v)
	}
	return append(values, r.CreatedAt().Format(time.RFC3339))
}
