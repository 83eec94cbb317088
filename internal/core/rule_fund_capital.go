package core

import (
	"context"
	"fmt"

	"deskcore/pkg/domain"
)

// NewFundCapitalRule warns when a fund has called more capital than was committed.
func NewFundCapitalRule() domain.Rule {
	return fundCapitalRule{}
}

type fundCapitalRule struct{}

func (fundCapitalRule) Name() string { return "fund_capital" }

func (fundCapitalRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.Entity != domain.EntityFund || change.After == nil {
			continue
		}
		fund, ok := change.After.(*domain.Fund)
		if !ok {
			continue
		}
		if fund.Called.GreaterThan(fund.Commitment) {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "fund_capital",
				Severity: domain.SeverityWarn,
				Message:  fmt.Sprintf("fund %s called %s exceeds commitment %s", fund.Name, fund.Called.StringFixed(2), fund.Commitment.StringFixed(2)),
				Entity:   domain.EntityFund,
				EntityID: fund.ID,
			})
		}
	}
	return res, nil
}
