package dashboard

import (
	"testing"
	"time"

	"deskcore/internal/aggregate"
	"deskcore/internal/seed"
	"deskcore/pkg/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestRealEstateHistogram(t *testing.T) {
	snap := domain.Snapshot{
		domain.EntityProperty: {
			&domain.Property{Base: domain.Base{ID: "a"}, Price: 50_000, Status: domain.ListingAvailable, Type: domain.PropertyHouse},
			&domain.Property{Base: domain.Base{ID: "b"}, Price: 150_000, Status: domain.ListingSold, Type: domain.PropertyCondo},
			&domain.Property{Base: domain.Base{ID: "c"}, Price: 550_000, Status: domain.ListingAvailable, Type: domain.PropertyHouse},
		},
	}
	got := SummarizeRealEstate(snap)
	assert.Equal(t, []int{1, 1, 0, 0, 0, 1}, aggregate.Counts(got.PriceHistogram))
	assert.Equal(t, 3, got.Listings)
	assert.InDelta(t, 2.0/3.0, got.AvailableRatio, 1e-9)
	assert.Equal(t, 2, countOf(got.ByType, string(domain.PropertyHouse)))
	assert.Equal(t, 0, countOf(got.ByType, string(domain.PropertyLand)))
	assert.Equal(t, 550_000.0, got.Prices.Max)
}

func TestEmptySnapshotKeepsEveryOption(t *testing.T) {
	got := SummarizeRealEstate(domain.Snapshot{})
	require.Len(t, got.ByStatus, len(domain.ListingStatuses))
	require.Len(t, got.AppointmentsByStatus, len(domain.AppointmentStatuses))
	for _, c := range got.ByStatus {
		assert.Zero(t, c.Count, c.Label)
	}
	assert.Zero(t, got.AvailableRatio)

	lab := SummarizeLab(domain.Snapshot{})
	assert.Zero(t, lab.SuccessRate)
	assert.Len(t, lab.ExperimentsByStatus, len(domain.ExperimentStatuses))

	suite := SummarizeSuite(domain.Snapshot{})
	assert.True(t, suite.CollectionRate.IsZero())
	assert.Len(t, suite.InvoicesByStatus, len(domain.InvoiceStatuses))
}

func TestSuiteReceivables(t *testing.T) {
	snap := domain.Snapshot{
		domain.EntityInvoice: {
			&domain.Invoice{Base: domain.Base{ID: "i1"}, Amount: dec("100.10"), Status: domain.InvoicePaid},
			&domain.Invoice{Base: domain.Base{ID: "i2"}, Amount: dec("0.20"), Status: domain.InvoiceSent},
			&domain.Invoice{Base: domain.Base{ID: "i3"}, Amount: dec("99.70"), Status: domain.InvoicePaid},
		},
		domain.EntityTicket: {
			&domain.Ticket{Base: domain.Base{ID: "t1"}, Status: domain.TicketOpen, Priority: domain.PriorityHigh},
			&domain.Ticket{Base: domain.Base{ID: "t2"}, Status: domain.TicketInProgress, Priority: domain.PriorityLow},
			&domain.Ticket{Base: domain.Base{ID: "t3"}, Status: domain.TicketClosed, Priority: domain.PriorityHigh},
		},
	}
	got := SummarizeSuite(snap)
	assert.True(t, dec("200").Equal(got.Invoiced), got.Invoiced.String())
	assert.True(t, dec("199.8").Equal(got.Paid), got.Paid.String())
	assert.True(t, dec("0.2").Equal(got.Outstanding), got.Outstanding.String())
	assert.Equal(t, "99.9%", percentDecimal(got.CollectionRate))
	assert.Equal(t, 2, got.OpenTickets)
	assert.Equal(t, 2, countOf(got.ByPriority, string(domain.PriorityHigh)))
	assert.Equal(t, "199.80", money(got.InvoicesByStatus[2].Amount))
}

func TestCFONet(t *testing.T) {
	snap := domain.Snapshot{
		domain.EntityTransaction: {
			&domain.LedgerEntry{Base: domain.Base{ID: "1"}, Kind: domain.TransactionIncome, Amount: dec("1000")},
			&domain.LedgerEntry{Base: domain.Base{ID: "2"}, Kind: domain.TransactionExpense, Amount: dec("250.50")},
		},
		domain.EntityInsight: {&domain.Insight{Base: domain.Base{ID: "x"}}},
	}
	got := SummarizeCFO(snap)
	assert.Equal(t, "749.50", money(got.Net))
	assert.Equal(t, "250.50", money(got.Expenses))
	assert.Equal(t, 1, got.Insights)
	assert.Len(t, got.ByCategory, len(domain.TransactionCategories))
}

func TestFundMultiples(t *testing.T) {
	snap := domain.Snapshot{
		domain.EntityFund: {
			&domain.Fund{Base: domain.Base{ID: "f"}, Commitment: dec("100"), Called: dec("50"), Distributed: dec("25")},
		},
		domain.EntityCompany: {
			&domain.PortfolioCompany{Base: domain.Base{ID: "c"}, Invested: dec("40"), Valuation: dec("100")},
		},
	}
	got := SummarizeFund(snap)
	assert.Equal(t, "50.0%", percentDecimal(got.CalledRatio))
	assert.Equal(t, "0.50", got.DPI.StringFixed(2))
	assert.Equal(t, "2.50", got.MOIC.StringFixed(2))
}

func TestLabSuccessRate(t *testing.T) {
	snap := domain.Snapshot{
		domain.EntityExperiment: {
			&domain.Experiment{Base: domain.Base{ID: "1"}, Status: domain.ExperimentCompleted, Result: 80},
			&domain.Experiment{Base: domain.Base{ID: "2"}, Status: domain.ExperimentFailed, Result: 10},
			&domain.Experiment{Base: domain.Base{ID: "3"}, Status: domain.ExperimentCompleted, Result: 90},
			&domain.Experiment{Base: domain.Base{ID: "4"}, Status: domain.ExperimentPlanned},
		},
	}
	got := SummarizeLab(snap)
	assert.InDelta(t, 2.0/3.0, got.SuccessRate, 1e-9)
	assert.Equal(t, 4, got.Results.Count)
	assert.Equal(t, 90.0, got.Results.Max)
}

func TestBuildEverySeed(t *testing.T) {
	for _, app := range domain.AppNames() {
		t.Run(app, func(t *testing.T) {
			catalog, err := domain.CatalogFor(app)
			require.NoError(t, err)
			snap, err := seed.Load(catalog, time.Now())
			require.NoError(t, err)
			summary, err := Build(app, snap)
			require.NoError(t, err)
			assert.Equal(t, app, summary.App)
			assert.NotEmpty(t, summary.Panels())
		})
	}
	_, err := Build("nope", domain.Snapshot{})
	assert.Error(t, err)
}
