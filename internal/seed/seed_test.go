package seed

import (
	"testing"
	"time"

	"deskcore/pkg/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEverySeedLoads(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	for _, app := range domain.AppNames() {
		t.Run(app, func(t *testing.T) {
			catalog, err := domain.CatalogFor(app)
			require.NoError(t, err)
			snapshot, err := Load(catalog, now)
			require.NoError(t, err)
			for _, entity := range catalog.Entities() {
				records, ok := snapshot[entity]
				require.True(t, ok, "missing %s", entity)
				for _, rec := range records {
					assert.Equal(t, now, rec.Meta().CreatedAt)
					assert.NotEmpty(t, rec.Meta().ID)
				}
			}
		})
	}
}

func TestRealEstateSeedPrices(t *testing.T) {
	catalog, err := domain.CatalogFor(domain.AppRealEstate)
	require.NoError(t, err)
	snapshot, err := Load(catalog, time.Now())
	require.NoError(t, err)

	props := domain.Typed[*domain.Property](snapshot[domain.EntityProperty])
	prices := make([]float64, len(props))
	for i, p := range props {
		prices[i] = p.Price
	}
	assert.Equal(t, []float64{450000, 850000, 1200000, 375000, 320000}, prices)
}

func TestParseRejectsUnknownCollection(t *testing.T) {
	catalog, err := domain.CatalogFor(domain.AppLab)
	require.NoError(t, err)
	_, err = Parse(catalog, []byte("widgets:\n  - id: w1\n"), time.Now())
	require.ErrorIs(t, err, domain.ErrUnknownEntity)
}

func TestParseKeepsExplicitTimestamps(t *testing.T) {
	catalog, err := domain.CatalogFor(domain.AppCFO)
	require.NoError(t, err)
	doc := []byte(`transactions:
  - id: tx9
    description: Grant
    category: other
    kind: income
    amount: "10"
    date: "2024-01-02"
    created_at: "2023-12-31T00:00:00Z"
`)
	snapshot, err := Parse(catalog, doc, time.Now())
	require.NoError(t, err)
	tx := snapshot[domain.EntityTransaction][0].Meta()
	assert.Equal(t, 2023, tx.CreatedAt.Year())
	assert.Equal(t, tx.CreatedAt, tx.UpdatedAt)
	assert.Empty(t, snapshot[domain.EntityInsight])
}
