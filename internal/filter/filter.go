// Package filter implements categorical row filtering over the event table:
// AND across fields, OR within the values selected for one field.
package filter

import (
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/signalsfoundry/comms-inspector/model"
)

// ErrUnknownField is returned when a selection names a column that is not
// filterable.
var ErrUnknownField = errors.New("unknown filter field")

// Selection maps a field name to the values permitted for it. A field that is
// absent or has no values places no restriction on rows.
type Selection struct {
	values map[string][]string
}

// NewSelection builds a selection from a field→values map.
func NewSelection(m map[string][]string) (Selection, error) {
	var s Selection
	for field, vals := range m {
		if err := s.Set(field, vals); err != nil {
			return Selection{}, err
		}
	}
	return s, nil
}

// Set replaces the permitted values for field. Duplicate values are dropped;
// an empty list clears the restriction.
func (s *Selection) Set(field string, vals []string) error {
	f, ok := model.LookupField(field)
	if !ok || !f.Filterable {
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	if len(vals) == 0 {
		delete(s.values, field)
		return nil
	}
	if s.values == nil {
		s.values = make(map[string][]string)
	}
	uniq := make([]string, 0, len(vals))
	for _, v := range vals {
		if !slices.Contains(uniq, v) {
			uniq = append(uniq, v)
		}
	}
	s.values[field] = uniq
	return nil
}

// Clear removes every restriction.
func (s *Selection) Clear() {
	s.values = nil
}

// Values returns the permitted values for field.
func (s Selection) Values(field string) []string {
	return slices.Clone(s.values[field])
}

// IsEmpty reports whether the selection restricts nothing.
func (s Selection) IsEmpty() bool {
	return len(s.values) == 0
}

// Fields returns the restricted fields in name order.
func (s Selection) Fields() []string {
	out := make([]string, 0, len(s.values))
	for f := range s.values {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Clone returns an independent copy.
func (s Selection) Clone() Selection {
	return Selection{values: s.Map()}
}

// Map returns the selection as a plain map.
func (s Selection) Map() map[string][]string {
	out := make(map[string][]string, len(s.values))
	for f, v := range s.values {
		out[f] = slices.Clone(v)
	}
	return out
}

type predicate struct {
	field   model.Field
	allowed map[string]struct{}
}

// Apply returns the rows satisfying every field restriction, in input order.
// It is idempotent: Apply(Apply(rows, s), s) equals Apply(rows, s).
func Apply(rows []*model.EventRow, sel Selection) []*model.EventRow {
	if sel.IsEmpty() {
		return slices.Clone(rows)
	}

	preds := make([]predicate, 0, len(sel.values))
	for _, name := range sel.Fields() {
		f, _ := model.LookupField(name)
		allowed := make(map[string]struct{}, len(sel.values[name]))
		for _, v := range sel.values[name] {
			allowed[v] = struct{}{}
		}
		preds = append(preds, predicate{field: f, allowed: allowed})
	}

	out := make([]*model.EventRow, 0, len(rows))
	for _, r := range rows {
		if matches(r, preds) {
			out = append(out, r)
		}
	}
	return out
}

func matches(r *model.EventRow, preds []predicate) bool {
	for _, p := range preds {
		if _, ok := p.allowed[p.field.Value(r)]; !ok {
			return false
		}
	}
	return true
}

// TimeSlice returns the rows stamped exactly at ts.
func TimeSlice(rows []*model.EventRow, ts float64) []*model.EventRow {
	var out []*model.EventRow
	for _, r := range rows {
		if r.Timestamp == ts {
			out = append(out, r)
		}
	}
	return out
}

// Options returns the distinct values of field in rows, in first-appearance
// order. Pass the current filtered view so compound filters narrow choices.
func Options(rows []*model.EventRow, field string) ([]string, error) {
	f, ok := model.LookupField(field)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return distinct(rows, f), nil
}

// AllOptions returns Options for every filterable field.
func AllOptions(rows []*model.EventRow) map[string][]string {
	fields := model.FilterFields()
	out := make(map[string][]string, len(fields))
	for _, f := range fields {
		out[f.Name] = distinct(rows, f)
	}
	return out
}

func distinct(rows []*model.EventRow, f model.Field) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, r := range rows {
		v := f.Value(r)
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
