// Package dashboard derives the per-application summary widgets from the live
// collections. Summaries are recomputed on every call.
package dashboard

import (
	"fmt"
	"strconv"

	"deskcore/internal/aggregate"
	"deskcore/pkg/domain"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// Amount is a labelled money total.
type Amount struct {
	Label  string          `json:"label"`
	Amount decimal.Decimal `json:"amount"`
}

// Metric is a single headline figure.
type Metric struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Panel groups headline metrics with an optional bar series.
type Panel struct {
	Title   string            `json:"title"`
	Metrics []Metric          `json:"metrics,omitempty"`
	Counts  []aggregate.Count `json:"counts,omitempty"`
}

// Summary holds the summary of exactly one application.
type Summary struct {
	App        string      `json:"app"`
	RealEstate *RealEstate `json:"realestate,omitempty"`
	Suite      *Suite      `json:"suite,omitempty"`
	CFO        *CFO        `json:"cfo,omitempty"`
	Fund       *Fund       `json:"pefund,omitempty"`
	Lab        *Lab        `json:"lab,omitempty"`
}

// Build computes the summary of app from snapshot.
func Build(app string, snapshot domain.Snapshot) (Summary, error) {
	out := Summary{App: app}
	switch app {
	case domain.AppRealEstate:
		s := SummarizeRealEstate(snapshot)
		out.RealEstate = &s
	case domain.AppSuite:
		s := SummarizeSuite(snapshot)
		out.Suite = &s
	case domain.AppCFO:
		s := SummarizeCFO(snapshot)
		out.CFO = &s
	case domain.AppPEFund:
		s := SummarizeFund(snapshot)
		out.Fund = &s
	case domain.AppLab:
		s := SummarizeLab(snapshot)
		out.Lab = &s
	default:
		return Summary{}, fmt.Errorf("dashboard: unknown app %q", app)
	}
	return out, nil
}

// Panels renders the summary as display panels.
func (s Summary) Panels() []Panel {
	switch {
	case s.RealEstate != nil:
		return s.RealEstate.Panels()
	case s.Suite != nil:
		return s.Suite.Panels()
	case s.CFO != nil:
		return s.CFO.Panels()
	case s.Fund != nil:
		return s.Fund.Panels()
	case s.Lab != nil:
		return s.Lab.Panels()
	}
	return nil
}

func money(d decimal.Decimal) string { return d.StringFixed(2) }

func percent(ratio float64) string { return strconv.FormatFloat(ratio*100, 'f', 1, 64) + "%" }

func percentDecimal(ratio decimal.Decimal) string {
	return ratio.Mul(decimal.NewFromInt(100)).StringFixed(1) + "%"
}

func count(n int) string { return strconv.Itoa(n) }

func grouped[T any](items []T, options []string, key func(T) string, fn func(T) decimal.Decimal) []Amount {
	sums := aggregate.SumMoneyGrouped(items, options, key, fn)
	return lo.Map(options, func(opt string, _ int) Amount { return Amount{Label: opt, Amount: sums[opt]} })
}

func countOf(counts []aggregate.Count, label string) int {
	c, _ := lo.Find(counts, func(c aggregate.Count) bool { return c.Label == label })
	return c.Count
}
