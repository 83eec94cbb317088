package dashboard

import (
	"deskcore/internal/aggregate"
	"deskcore/pkg/domain"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// RealEstate summarises listings and viewings.
type RealEstate struct {
	Listings             int               `json:"listings"`
	ByStatus             []aggregate.Count `json:"by_status"`
	ByType               []aggregate.Count `json:"by_type"`
	Prices               aggregate.Stats   `json:"prices"`
	PriceHistogram       []aggregate.Count `json:"price_histogram"`
	AvailableRatio       float64           `json:"available_ratio"`
	Appointments         int               `json:"appointments"`
	AppointmentsByStatus []aggregate.Count `json:"appointments_by_status"`
}

// SummarizeRealEstate computes the real estate dashboard.
func SummarizeRealEstate(s domain.Snapshot) RealEstate {
	props := domain.Typed[*domain.Property](s[domain.EntityProperty])
	appts := domain.Typed[*domain.Appointment](s[domain.EntityAppointment])
	prices := lo.Map(props, func(p *domain.Property, _ int) float64 { return p.Price })
	byStatus := aggregate.Distribution(props, domain.ListingStatuses, func(p *domain.Property) string { return string(p.Status) })
	return RealEstate{
		Listings:             len(props),
		ByStatus:             byStatus,
		ByType:               aggregate.Distribution(props, domain.PropertyTypes, func(p *domain.Property) string { return string(p.Type) }),
		Prices:               aggregate.Summarize(prices),
		PriceHistogram:       aggregate.PriceBuckets.Histogram(prices),
		AvailableRatio:       aggregate.Ratio(float64(countOf(byStatus, string(domain.ListingAvailable))), float64(len(props))),
		Appointments:         len(appts),
		AppointmentsByStatus: aggregate.Distribution(appts, domain.AppointmentStatuses, func(a *domain.Appointment) string { return string(a.Status) }),
	}
}

// Panels implements the display layout.
func (r RealEstate) Panels() []Panel {
	return []Panel{
		{Title: "Listings", Metrics: []Metric{
			{Label: "total", Value: count(r.Listings)},
			{Label: "available", Value: percent(r.AvailableRatio)},
			{Label: "avg price", Value: decimal.NewFromFloat(r.Prices.Mean).StringFixed(0)},
		}, Counts: r.ByStatus},
		{Title: "Types", Counts: r.ByType},
		{Title: "Price ranges", Counts: r.PriceHistogram},
		{Title: "Appointments", Metrics: []Metric{{Label: "total", Value: count(r.Appointments)}}, Counts: r.AppointmentsByStatus},
	}
}

// Suite summarises the CRM pipeline, support queue and receivables.
type Suite struct {
	Contacts         int               `json:"contacts"`
	ContactsByStatus []aggregate.Count `json:"contacts_by_status"`
	Tickets          int               `json:"tickets"`
	OpenTickets      int               `json:"open_tickets"`
	ByPriority       []aggregate.Count `json:"tickets_by_priority"`
	TicketsByStatus  []aggregate.Count `json:"tickets_by_status"`
	Invoiced         decimal.Decimal   `json:"invoiced"`
	Paid             decimal.Decimal   `json:"paid"`
	Outstanding      decimal.Decimal   `json:"outstanding"`
	CollectionRate   decimal.Decimal   `json:"collection_rate"`
	InvoicesByStatus []Amount          `json:"invoices_by_status"`
}

// SummarizeSuite computes the business suite dashboard.
func SummarizeSuite(s domain.Snapshot) Suite {
	contacts := domain.Typed[*domain.Contact](s[domain.EntityContact])
	tickets := domain.Typed[*domain.Ticket](s[domain.EntityTicket])
	invoices := domain.Typed[*domain.Invoice](s[domain.EntityInvoice])

	byStatus := aggregate.Distribution(tickets, domain.TicketStatuses, func(t *domain.Ticket) string { return string(t.Status) })
	invoiceAmounts := grouped(invoices, domain.InvoiceStatuses,
		func(i *domain.Invoice) string { return string(i.Status) },
		func(i *domain.Invoice) decimal.Decimal { return i.Amount },
	)
	invoiced := aggregate.SumMoneyBy(invoices, func(i *domain.Invoice) decimal.Decimal { return i.Amount })
	paid := aggregate.SumMoneyBy(
		lo.Filter(invoices, func(i *domain.Invoice, _ int) bool { return i.Status == domain.InvoicePaid }),
		func(i *domain.Invoice) decimal.Decimal { return i.Amount },
	)
	return Suite{
		Contacts:         len(contacts),
		ContactsByStatus: aggregate.Distribution(contacts, domain.ContactStatuses, func(c *domain.Contact) string { return string(c.Status) }),
		Tickets:          len(tickets),
		OpenTickets:      countOf(byStatus, string(domain.TicketOpen)) + countOf(byStatus, string(domain.TicketInProgress)),
		ByPriority:       aggregate.Distribution(tickets, domain.TicketPriorities, func(t *domain.Ticket) string { return string(t.Priority) }),
		TicketsByStatus:  byStatus,
		Invoiced:         invoiced,
		Paid:             paid,
		Outstanding:      invoiced.Sub(paid),
		CollectionRate:   aggregate.RatioDecimal(paid, invoiced),
		InvoicesByStatus: invoiceAmounts,
	}
}

// Panels implements the display layout.
func (s Suite) Panels() []Panel {
	return []Panel{
		{Title: "Contacts", Metrics: []Metric{{Label: "total", Value: count(s.Contacts)}}, Counts: s.ContactsByStatus},
		{Title: "Tickets", Metrics: []Metric{
			{Label: "total", Value: count(s.Tickets)},
			{Label: "open", Value: count(s.OpenTickets)},
		}, Counts: s.ByPriority},
		{Title: "Invoices", Metrics: []Metric{
			{Label: "invoiced", Value: money(s.Invoiced)},
			{Label: "paid", Value: money(s.Paid)},
			{Label: "outstanding", Value: money(s.Outstanding)},
			{Label: "collected", Value: percentDecimal(s.CollectionRate)},
		}},
	}
}

// CFO summarises the ledger.
type CFO struct {
	Transactions int             `json:"transactions"`
	Income       decimal.Decimal `json:"income"`
	Expenses     decimal.Decimal `json:"expenses"`
	Net          decimal.Decimal `json:"net"`
	Margin       decimal.Decimal `json:"margin"`
	ByCategory   []Amount        `json:"by_category"`
	Insights     int             `json:"insights"`
}

// SummarizeCFO computes the CFO dashboard.
func SummarizeCFO(s domain.Snapshot) CFO {
	txs := domain.Typed[*domain.LedgerEntry](s[domain.EntityTransaction])
	income := aggregate.SumMoneyBy(
		lo.Filter(txs, func(t *domain.LedgerEntry, _ int) bool { return t.Kind == domain.TransactionIncome }),
		func(t *domain.LedgerEntry) decimal.Decimal { return t.Amount },
	)
	expenses := aggregate.SumMoneyBy(
		lo.Filter(txs, func(t *domain.LedgerEntry, _ int) bool { return t.Kind == domain.TransactionExpense }),
		func(t *domain.LedgerEntry) decimal.Decimal { return t.Amount },
	)
	net := aggregate.SumMoneyBy(txs, func(t *domain.LedgerEntry) decimal.Decimal { return t.Signed() })
	return CFO{
		Transactions: len(txs),
		Income:       income,
		Expenses:     expenses,
		Net:          net,
		Margin:       aggregate.RatioDecimal(net, income),
		ByCategory: grouped(txs, domain.TransactionCategories,
			func(t *domain.LedgerEntry) string { return string(t.Category) },
			func(t *domain.LedgerEntry) decimal.Decimal { return t.Amount },
		),
		Insights: len(s[domain.EntityInsight]),
	}
}

// Panels implements the display layout.
func (c CFO) Panels() []Panel {
	metrics := lo.Map(c.ByCategory, func(a Amount, _ int) Metric { return Metric{Label: a.Label, Value: money(a.Amount)} })
	return []Panel{
		{Title: "Cash", Metrics: []Metric{
			{Label: "income", Value: money(c.Income)},
			{Label: "expenses", Value: money(c.Expenses)},
			{Label: "net", Value: money(c.Net)},
			{Label: "margin", Value: percentDecimal(c.Margin)},
		}},
		{Title: "By category", Metrics: metrics},
		{Title: "Insights", Metrics: []Metric{{Label: "stored", Value: count(c.Insights)}}},
	}
}

// Fund summarises commitments and the portfolio.
type Fund struct {
	Funds           int               `json:"funds"`
	ByStrategy      []aggregate.Count `json:"by_strategy"`
	ByStatus        []aggregate.Count `json:"by_status"`
	Commitment      decimal.Decimal   `json:"commitment"`
	Called          decimal.Decimal   `json:"called"`
	Distributed     decimal.Decimal   `json:"distributed"`
	CalledRatio     decimal.Decimal   `json:"called_ratio"`
	DPI             decimal.Decimal   `json:"dpi"`
	Companies       int               `json:"companies"`
	BySector        []aggregate.Count `json:"by_sector"`
	CompanyByStatus []aggregate.Count `json:"company_by_status"`
	Invested        decimal.Decimal   `json:"invested"`
	Valuation       decimal.Decimal   `json:"valuation"`
	MOIC            decimal.Decimal   `json:"moic"`
}

// SummarizeFund computes the private-equity dashboard.
func SummarizeFund(s domain.Snapshot) Fund {
	funds := domain.Typed[*domain.Fund](s[domain.EntityFund])
	companies := domain.Typed[*domain.PortfolioCompany](s[domain.EntityCompany])
	commitment := aggregate.SumMoneyBy(funds, func(f *domain.Fund) decimal.Decimal { return f.Commitment })
	called := aggregate.SumMoneyBy(funds, func(f *domain.Fund) decimal.Decimal { return f.Called })
	distributed := aggregate.SumMoneyBy(funds, func(f *domain.Fund) decimal.Decimal { return f.Distributed })
	invested := aggregate.SumMoneyBy(companies, func(c *domain.PortfolioCompany) decimal.Decimal { return c.Invested })
	valuation := aggregate.SumMoneyBy(companies, func(c *domain.PortfolioCompany) decimal.Decimal { return c.Valuation })
	return Fund{
		Funds:           len(funds),
		ByStrategy:      aggregate.Distribution(funds, domain.FundStrategies, func(f *domain.Fund) string { return string(f.Strategy) }),
		ByStatus:        aggregate.Distribution(funds, domain.FundStatuses, func(f *domain.Fund) string { return string(f.Status) }),
		Commitment:      commitment,
		Called:          called,
		Distributed:     distributed,
		CalledRatio:     aggregate.RatioDecimal(called, commitment),
		DPI:             aggregate.RatioDecimal(distributed, called),
		Companies:       len(companies),
		BySector:        aggregate.Distribution(companies, domain.Sectors, func(c *domain.PortfolioCompany) string { return string(c.Sector) }),
		CompanyByStatus: aggregate.Distribution(companies, domain.CompanyStatuses, func(c *domain.PortfolioCompany) string { return string(c.Status) }),
		Invested:        invested,
		Valuation:       valuation,
		MOIC:            aggregate.RatioDecimal(valuation, invested),
	}
}

// Panels implements the display layout.
func (f Fund) Panels() []Panel {
	return []Panel{
		{Title: "Funds", Metrics: []Metric{
			{Label: "total", Value: count(f.Funds)},
			{Label: "committed", Value: money(f.Commitment)},
			{Label: "called", Value: percentDecimal(f.CalledRatio)},
			{Label: "DPI", Value: f.DPI.StringFixed(2) + "x"},
		}, Counts: f.ByStrategy},
		{Title: "Portfolio", Metrics: []Metric{
			{Label: "companies", Value: count(f.Companies)},
			{Label: "invested", Value: money(f.Invested)},
			{Label: "valuation", Value: money(f.Valuation)},
			{Label: "MOIC", Value: f.MOIC.StringFixed(2) + "x"},
		}, Counts: f.BySector},
		{Title: "Holdings", Counts: f.CompanyByStatus},
	}
}

// Lab summarises compounds and experiments.
type Lab struct {
	Compounds           int               `json:"compounds"`
	CompoundsByStatus   []aggregate.Count `json:"compounds_by_status"`
	MolecularWeight     aggregate.Stats   `json:"molecular_weight"`
	Experiments         int               `json:"experiments"`
	ExperimentsByStatus []aggregate.Count `json:"experiments_by_status"`
	Results             aggregate.Stats   `json:"results"`
	SuccessRate         float64           `json:"success_rate"`
}

// SummarizeLab computes the lab dashboard. The success rate counts completed
// experiments against finished ones (completed or failed).
func SummarizeLab(s domain.Snapshot) Lab {
	compounds := domain.Typed[*domain.Compound](s[domain.EntityCompound])
	experiments := domain.Typed[*domain.Experiment](s[domain.EntityExperiment])
	byStatus := aggregate.Distribution(experiments, domain.ExperimentStatuses, func(e *domain.Experiment) string { return string(e.Status) })
	completed := countOf(byStatus, string(domain.ExperimentCompleted))
	failed := countOf(byStatus, string(domain.ExperimentFailed))
	return Lab{
		Compounds:           len(compounds),
		CompoundsByStatus:   aggregate.Distribution(compounds, domain.CompoundStatuses, func(c *domain.Compound) string { return string(c.Status) }),
		MolecularWeight:     aggregate.SummarizeBy(compounds, func(c *domain.Compound) float64 { return c.MolecularWeight }),
		Experiments:         len(experiments),
		ExperimentsByStatus: byStatus,
		Results:             aggregate.SummarizeBy(experiments, func(e *domain.Experiment) float64 { return e.Result }),
		SuccessRate:         aggregate.Ratio(float64(completed), float64(completed+failed)),
	}
}

// Panels implements the display layout.
func (l Lab) Panels() []Panel {
	return []Panel{
		{Title: "Compounds", Metrics: []Metric{
			{Label: "total", Value: count(l.Compounds)},
			{Label: "avg MW", Value: decimal.NewFromFloat(l.MolecularWeight.Mean).StringFixed(2)},
		}, Counts: l.CompoundsByStatus},
		{Title: "Experiments", Metrics: []Metric{
			{Label: "total", Value: count(l.Experiments)},
			{Label: "success", Value: percent(l.SuccessRate)},
		}, Counts: l.ExperimentsByStatus},
	}
}
