// Package aggregate computes the fixed-shape summaries consumed by dashboard
// widgets. Every function is a single pass over its input.
package aggregate

import (
	"fmt"
	"math"
	"slices"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// Count is one bucket of a distribution or histogram.
type Count struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Distribution counts records per enum option. Every option is present, in
// option order, including zero counts. Values outside options are ignored.
func Distribution[T any](items []T, options []string, key func(T) string) []Count {
	index := make(map[string]int, len(options))
	out := make([]Count, len(options))
	for i, opt := range options {
		index[opt] = i
		out[i] = Count{Label: opt}
	}
	for _, item := range items {
		if i, ok := index[key(item)]; ok {
			out[i].Count++
		}
	}
	return out
}

// Stats summarises a numeric series.
type Stats struct {
	Count int     `json:"count"`
	Sum   float64 `json:"sum"`
	Mean  float64 `json:"mean"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// Summarize computes count, sum, mean, min and max. Empty input yields zeros.
func Summarize(values []float64) Stats {
	if len(values) == 0 {
		return Stats{}
	}
	s := Stats{Count: len(values), Min: math.Inf(1), Max: math.Inf(-1)}
	for _, v := range values {
		s.Sum += v
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
	}
	s.Mean = s.Sum / float64(s.Count)
	return s
}

// SummarizeBy extracts values with fn before summarising.
func SummarizeBy[T any](items []T, fn func(T) float64) Stats {
	return Summarize(lo.Map(items, func(item T, _ int) float64 { return fn(item) }))
}

// Ratio divides a by b, returning 0 when b is 0.
func Ratio(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

// RatioDecimal divides a by b, returning 0 when b is 0.
func RatioDecimal(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return decimal.Zero
	}
	return a.Div(b)
}

// SumMoney adds decimal amounts.
func SumMoney(values []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// SumMoneyBy adds the amounts extracted by fn.
func SumMoneyBy[T any](items []T, fn func(T) decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(fn(item))
	}
	return total
}

// SumMoneyGrouped sums amounts per option, keeping every option.
func SumMoneyGrouped[T any](items []T, options []string, key func(T) string, fn func(T) decimal.Decimal) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(options))
	for _, opt := range options {
		out[opt] = decimal.Zero
	}
	for _, item := range items {
		k := key(item)
		if cur, ok := out[k]; ok {
			out[k] = cur.Add(fn(item))
		}
	}
	return out
}

// Bucketer assigns values to fixed ascending boundaries. A value v falls into
// the first bucket whose bound satisfies v < bound; the last bucket is
// unbounded above, so there is one more label than bound. Build one with
// NewBucketer; the zero value has no buckets.
type Bucketer struct {
	bounds []float64
	labels []string
}

// NewBucketer validates that bounds ascend and labels fit.
func NewBucketer(bounds []float64, labels []string) (Bucketer, error) {
	if len(labels) != len(bounds)+1 {
		return Bucketer{}, fmt.Errorf("bucketer: %d bounds need %d labels, got %d", len(bounds), len(bounds)+1, len(labels))
	}
	for i := 1; i < len(bounds); i++ {
		if bounds[i] <= bounds[i-1] {
			return Bucketer{}, fmt.Errorf("bucketer: bounds must ascend at index %d", i)
		}
	}
	return Bucketer{bounds: slices.Clone(bounds), labels: slices.Clone(labels)}, nil
}

// MustBucketer is NewBucketer for package-level tables.
func MustBucketer(bounds []float64, labels []string) Bucketer {
	b, err := NewBucketer(bounds, labels)
	if err != nil {
		panic(err)
	}
	return b
}

// Labels returns the bucket labels in order.
func (b Bucketer) Labels() []string { return slices.Clone(b.labels) }

// Index returns the bucket index of v.
func (b Bucketer) Index(v float64) int {
	for i, bound := range b.bounds {
		if v < bound {
			return i
		}
	}
	return len(b.bounds)
}

// Histogram counts values per bucket. A zero Bucketer yields no buckets.
func (b Bucketer) Histogram(values []float64) []Count {
	if len(b.labels) != len(b.bounds)+1 {
		return nil
	}
	out := make([]Count, len(b.labels))
	for i, label := range b.labels {
		out[i] = Count{Label: label}
	}
	for _, v := range values {
		out[b.Index(v)].Count++
	}
	return out
}

// PriceBuckets are the listing price ranges shown on the real estate dashboard.
var PriceBuckets = MustBucketer(
	[]float64{100_000, 200_000, 300_000, 400_000, 500_000},
	[]string{"<100k", "100-200k", "200-300k", "300-400k", "400-500k", ">500k"},
)

// Counts flattens buckets into their counts.
func Counts(buckets []Count) []int {
	return lo.Map(buckets, func(c Count, _ int) int { return c.Count })
}
