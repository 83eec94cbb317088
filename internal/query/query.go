// Package query derives filtered, searched and sorted views of a collection.
// Every function is pure: inputs are never mutated and results are new slices.
package query

import (
	"cmp"
	"math"
	"slices"
	"strconv"
	"strings"

	"deskcore/pkg/domain"

	"github.com/samber/lo"
	"github.com/samber/mo"
)

// Equals matches records whose field equals Value. An empty Value matches everything.
type Equals struct {
	Field string
	Value string
}

// Range matches records whose numeric field lies within the inclusive bounds.
type Range struct {
	Field string
	Min   mo.Option[float64]
	Max   mo.Option[float64]
}

// Between builds a range with both bounds set.
func Between(field string, lower, upper float64) Range {
	return Range{Field: field, Min: mo.Some(lower), Max: mo.Some(upper)}
}

// SortState is the active sort column and direction.
type SortState struct {
	Field string
	Desc  bool
}

// Toggle returns the state after a click on field: the same field flips the
// direction, a different field sorts ascending.
func (s SortState) Toggle(field string) SortState {
	if s.Field == field {
		return SortState{Field: field, Desc: !s.Desc}
	}
	return SortState{Field: field}
}

// Query bundles search, filters and sort for one collection view.
type Query struct {
	Search string
	Equals []Equals
	Ranges []Range
	Sort   SortState
}

// Validate checks every referenced field against the schema.
func (q Query) Validate(d domain.Descriptor) error {
	for _, eq := range q.Equals {
		if _, ok := d.FieldKind(eq.Field); !ok {
			return domain.NewValidationError(d.Entity(), eq.Field, "unknown filter field")
		}
	}
	for _, r := range q.Ranges {
		kind, ok := d.FieldKind(r.Field)
		if !ok {
			return domain.NewValidationError(d.Entity(), r.Field, "unknown range field")
		}
		if !kind.Numeric() {
			return domain.NewValidationError(d.Entity(), r.Field, "range needs a numeric field")
		}
	}
	if q.Sort.Field != "" {
		if _, ok := d.FieldKind(q.Sort.Field); !ok {
			return domain.NewValidationError(d.Entity(), q.Sort.Field, "unknown sort field")
		}
	}
	return nil
}

// Run filters and sorts records according to q.
func Run[R domain.Record](records []R, d domain.Descriptor, q Query) ([]R, error) {
	if err := q.Validate(d); err != nil {
		return nil, err
	}
	term := strings.ToLower(strings.TrimSpace(q.Search))
	searchFields := d.SearchFields()

	out := lo.Filter(records, func(rec R, _ int) bool {
		return matchesSearch(d, rec, searchFields, term) &&
			lo.EveryBy(q.Equals, func(eq Equals) bool { return matchesEquals(d, rec, eq) }) &&
			lo.EveryBy(q.Ranges, func(r Range) bool { return matchesRange(d, rec, r) })
	})
	if q.Sort.Field != "" {
		Sort(out, d, q.Sort)
	}
	return out, nil
}

// Sort orders records in place by the sort state. The sort is stable.
func Sort[R domain.Record](records []R, d domain.Descriptor, s SortState) {
	kind, _ := d.FieldKind(s.Field)
	compare := func(a, b R) int {
		if kind.Numeric() {
			av, _ := d.Number(a, s.Field)
			bv, _ := d.Number(b, s.Field)
			return cmp.Compare(av, bv)
		}
		return strings.Compare(d.Text(a, s.Field), d.Text(b, s.Field))
	}
	if s.Desc {
		slices.SortStableFunc(records, func(a, b R) int { return compare(b, a) })
		return
	}
	slices.SortStableFunc(records, compare)
}

func matchesSearch(d domain.Descriptor, rec domain.Record, fields []string, term string) bool {
	if term == "" {
		return true
	}
	return lo.SomeBy(fields, func(name string) bool {
		return strings.Contains(strings.ToLower(d.Text(rec, name)), term)
	})
}

func matchesEquals(d domain.Descriptor, rec domain.Record, eq Equals) bool {
	if eq.Value == "" {
		return true
	}
	if kind, _ := d.FieldKind(eq.Field); kind == domain.KindRefs {
		return slices.Contains(strings.Split(d.Text(rec, eq.Field), ","), eq.Value)
	}
	return d.Text(rec, eq.Field) == eq.Value
}

func matchesRange(d domain.Descriptor, rec domain.Record, r Range) bool {
	v, ok := d.Number(rec, r.Field)
	if !ok {
		return false
	}
	if lower, ok := r.Min.Get(); ok && v < lower {
		return false
	}
	if upper, ok := r.Max.Get(); ok && v > upper {
		return false
	}
	return true
}

// ParseRange converts raw form input into a Range. Empty input leaves a bound
// unset. Collections flagged ZeroMaxUnbounded keep their legacy conventions:
// a missing minimum means 0 and a maximum of 0 means no upper bound.
func ParseRange(d domain.Descriptor, field, minRaw, maxRaw string) (Range, error) {
	kind, ok := d.FieldKind(field)
	if !ok {
		return Range{}, domain.NewValidationError(d.Entity(), field, "unknown range field")
	}
	if !kind.Numeric() {
		return Range{}, domain.NewValidationError(d.Entity(), field, "range needs a numeric field")
	}
	r := Range{Field: field}
	lower, err := parseBound(d, field, minRaw)
	if err != nil {
		return Range{}, err
	}
	upper, err := parseBound(d, field, maxRaw)
	if err != nil {
		return Range{}, err
	}
	r.Min, r.Max = lower, upper
	if d.ZeroMaxUnbounded() {
		if r.Min.IsAbsent() {
			r.Min = mo.Some(0.0)
		}
		if v, ok := r.Max.Get(); ok && v == 0 {
			r.Max = mo.None[float64]()
		}
	}
	return r, nil
}

func parseBound(d domain.Descriptor, field, raw string) (mo.Option[float64], error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return mo.None[float64](), nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) {
		return mo.None[float64](), domain.NewValidationError(d.Entity(), field, "bound must be a number")
	}
	return mo.Some(v), nil
}
