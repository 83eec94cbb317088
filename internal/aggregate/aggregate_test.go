package aggregate

import (
	"math"
	"testing"

	"deskcore/pkg/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriceHistogram(t *testing.T) {
	got := PriceBuckets.Histogram([]float64{50000, 150000, 550000})
	assert.Equal(t, []int{1, 1, 0, 0, 0, 1}, Counts(got))
	assert.Equal(t, "<100k", got[0].Label)
	assert.Equal(t, ">500k", got[5].Label)
}

func TestBucketBoundaries(t *testing.T) {
	assert.Equal(t, 1, PriceBuckets.Index(100000))
	assert.Equal(t, 0, PriceBuckets.Index(99999.99))
	assert.Equal(t, 5, PriceBuckets.Index(500000))
	assert.Equal(t, 0, PriceBuckets.Index(-1))

	empty := PriceBuckets.Histogram(nil)
	assert.Equal(t, []int{0, 0, 0, 0, 0, 0}, Counts(empty))
}

func TestNewBucketerValidates(t *testing.T) {
	_, err := NewBucketer([]float64{1, 2}, []string{"a", "b"})
	assert.Error(t, err)
	_, err = NewBucketer([]float64{2, 1}, []string{"a", "b", "c"})
	assert.Error(t, err)
	b, err := NewBucketer([]float64{10}, []string{"low", "high"})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, Counts(b.Histogram([]float64{1, 10, 99})))
}

func TestZeroBucketerHasNoBuckets(t *testing.T) {
	var b Bucketer
	assert.Nil(t, b.Histogram([]float64{1, 2}))
	assert.Empty(t, b.Labels())
	assert.Panics(t, func() { MustBucketer([]float64{1}, []string{"only"}) })

	bounds, labels := []float64{5}, []string{"lo", "hi"}
	c := MustBucketer(bounds, labels)
	labels[0] = "changed"
	bounds[0] = 100
	assert.Equal(t, []string{"lo", "hi"}, c.Labels())
	assert.Equal(t, 1, c.Index(6))
}

func TestDistributionKeepsEveryOption(t *testing.T) {
	none := Distribution([]*domain.Property(nil), domain.PropertyTypes, func(p *domain.Property) string { return string(p.Type) })
	require.Len(t, none, len(domain.PropertyTypes))
	for i, c := range none {
		assert.Equal(t, domain.PropertyTypes[i], c.Label)
		assert.Zero(t, c.Count)
	}

	props := []*domain.Property{
		{Type: domain.PropertyHouse},
		{Type: domain.PropertyCondo},
		{Type: domain.PropertyHouse},
		{Type: "castle"},
	}
	got := Distribution(props, domain.PropertyTypes, func(p *domain.Property) string { return string(p.Type) })
	assert.Equal(t, []int{2, 0, 1, 0, 0}, Counts(got))
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, Stats{}, Summarize(nil))

	s := Summarize([]float64{4, -2, 10})
	assert.Equal(t, 3, s.Count)
	assert.Equal(t, 12.0, s.Sum)
	assert.Equal(t, 4.0, s.Mean)
	assert.Equal(t, -2.0, s.Min)
	assert.Equal(t, 10.0, s.Max)
	assert.False(t, math.IsNaN(SummarizeBy([]int{}, func(int) float64 { return 1 }).Mean))
}

func TestRatioAndMoney(t *testing.T) {
	assert.Zero(t, Ratio(5, 0))
	assert.Equal(t, 2.5, Ratio(5, 2))
	assert.True(t, RatioDecimal(decimal.NewFromInt(1), decimal.Zero).IsZero())
	assert.True(t, RatioDecimal(decimal.NewFromInt(3), decimal.NewFromInt(2)).Equal(decimal.RequireFromString("1.5")))

	amounts := []decimal.Decimal{decimal.RequireFromString("0.1"), decimal.RequireFromString("0.2")}
	assert.True(t, SumMoney(amounts).Equal(decimal.RequireFromString("0.3")))
	assert.True(t, SumMoney(nil).IsZero())

	invoices := []*domain.Invoice{
		{Amount: decimal.NewFromInt(100), Status: domain.InvoicePaid},
		{Amount: decimal.NewFromInt(50), Status: domain.InvoiceOverdue},
		{Amount: decimal.NewFromInt(25), Status: domain.InvoicePaid},
	}
	total := SumMoneyBy(invoices, func(i *domain.Invoice) decimal.Decimal { return i.Amount })
	assert.True(t, total.Equal(decimal.NewFromInt(175)))

	grouped := SumMoneyGrouped(invoices, domain.InvoiceStatuses,
		func(i *domain.Invoice) string { return string(i.Status) },
		func(i *domain.Invoice) decimal.Decimal { return i.Amount })
	assert.Len(t, grouped, len(domain.InvoiceStatuses))
	assert.True(t, grouped["paid"].Equal(decimal.NewFromInt(125)))
	assert.True(t, grouped["draft"].IsZero())
}
