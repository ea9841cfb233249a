// Package dataset holds the fully materialized event table loaded from the
// simulator's CSV output.
package dataset

import (
	"slices"

	"github.com/signalsfoundry/comms-inspector/model"
)

// Dataset is an ordered, immutable collection of event rows.
type Dataset struct {
	rows       []*model.EventRow
	timestamps []float64
}

// New wraps rows in a Dataset. The slice is owned by the Dataset afterwards.
func New(rows []*model.EventRow) *Dataset {
	return &Dataset{rows: rows, timestamps: Timestamps(rows)}
}

// Rows returns the rows in load order. Callers must not modify them.
func (d *Dataset) Rows() []*model.EventRow {
	if d == nil {
		return nil
	}
	return d.rows
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.rows)
}

// Timestamps returns the sorted distinct timestamps of the whole dataset.
func (d *Dataset) Timestamps() []float64 {
	if d == nil {
		return nil
	}
	return slices.Clone(d.timestamps)
}

// Timestamps returns the sorted distinct timestamps of rows.
func Timestamps(rows []*model.EventRow) []float64 {
	out := make([]float64, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Timestamp)
	}
	slices.Sort(out)
	return slices.Compact(out)
}
