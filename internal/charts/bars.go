// Package charts aggregates event frames into the auxiliary 2-D charts:
// stacked-bar subplot grids and sender/receiver network graphs.
package charts

import (
	"errors"
	"fmt"
	"slices"

	"github.com/signalsfoundry/comms-inspector/model"
)

// ErrUnknownField is returned when a chart selector names an unknown column.
var ErrUnknownField = errors.New("unknown chart field")

const (
	gridCols    = 2
	minGridRows = 3
)

// BarTrace is one stack segment series inside a subplot: the counts of each
// category value among rows sharing a stack value.
type BarTrace struct {
	Stack       string   `json:"stack"`
	Categories  []string `json:"categories"`
	Counts      []int    `json:"counts"`
	Hover       string   `json:"hover"`
	OffsetGroup int      `json:"offset_group"`
}

// Subplot is one cell of the bar grid. Row and Col are zero-based.
type Subplot struct {
	Title  string     `json:"title"`
	Row    int        `json:"row"`
	Col    int        `json:"col"`
	Traces []BarTrace `json:"traces"`
}

// BarChart is a stacked-bar subplot grid.
type BarChart struct {
	SubplotField  string    `json:"subplot_field"`
	CategoryField string    `json:"category_field"`
	StackField    string    `json:"stack_field"`
	Rows          int       `json:"rows"`
	Cols          int       `json:"cols"`
	Subplots      []Subplot `json:"subplots"`
}

// GridRows returns the row count for n subplots on the two-column grid.
func GridRows(n int) int {
	return max(minGridRows, (n+gridCols-1)/gridCols)
}

// BuildBars partitions rows by the subplot field, then by the stack field,
// and counts category values within each stack. Subplots and stacks keep
// first-appearance order; categories are ordered by descending count.
func BuildBars(rows []*model.EventRow, subplotField, categoryField, stackField string) (BarChart, error) {
	var fields [3]model.Field
	for i, name := range []string{subplotField, categoryField, stackField} {
		f, ok := model.LookupField(name)
		if !ok {
			return BarChart{}, fmt.Errorf("%w: %q", ErrUnknownField, name)
		}
		fields[i] = f
	}
	subF, catF, stackF := fields[0], fields[1], fields[2]

	chart := BarChart{
		SubplotField:  subplotField,
		CategoryField: categoryField,
		StackField:    stackField,
		Cols:          gridCols,
		Subplots:      []Subplot{},
	}

	for idx, part := range partition(rows, subF) {
		sp := Subplot{Title: part.key, Row: idx / gridCols, Col: idx % gridCols}
		for _, stack := range partition(part.rows, stackF) {
			cats, counts := valueCounts(stack.rows, catF)
			sp.Traces = append(sp.Traces, BarTrace{
				Stack:       stack.key,
				Categories:  cats,
				Counts:      counts,
				Hover:       stack.key + " - %{customdata}<extra></extra>",
				OffsetGroup: idx + 1,
			})
		}
		chart.Subplots = append(chart.Subplots, sp)
	}
	chart.Rows = GridRows(len(chart.Subplots))
	return chart, nil
}

type bucket struct {
	key  string
	rows []*model.EventRow
}

// partition groups rows by field value in first-appearance order.
func partition(rows []*model.EventRow, f model.Field) []bucket {
	index := make(map[string]int)
	var out []bucket
	for _, r := range rows {
		k := f.Value(r)
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, bucket{key: k})
		}
		out[i].rows = append(out[i].rows, r)
	}
	return out
}

func valueCounts(rows []*model.EventRow, f model.Field) ([]string, []int) {
	type vc struct {
		value string
		count int
	}
	var counts []vc
	for _, b := range partition(rows, f) {
		counts = append(counts, vc{value: b.key, count: len(b.rows)})
	}
	slices.SortStableFunc(counts, func(a, b vc) int { return b.count - a.count })

	values := make([]string, len(counts))
	n := make([]int, len(counts))
	for i, c := range counts {
		values[i], n[i] = c.value, c.count
	}
	return values, n
}
