package domain

import (
	"slices"

	"github.com/shopspring/decimal"
)

// FundStrategy is the investment strategy of a fund.
type FundStrategy string

// Fund strategies.
const (
	StrategyBuyout     FundStrategy = "buyout"
	StrategyGrowth     FundStrategy = "growth"
	StrategyVenture    FundStrategy = "venture"
	StrategyCredit     FundStrategy = "credit"
	StrategyRealAssets FundStrategy = "real_assets"
)

// FundStatus is the lifecycle stage of a fund.
type FundStatus string

// Fund lifecycle stages.
const (
	FundFundraising FundStatus = "fundraising"
	FundInvesting   FundStatus = "investing"
	FundHarvesting  FundStatus = "harvesting"
	FundClosed      FundStatus = "closed"
)

// Sector classifies a portfolio company.
type Sector string

// Portfolio sectors.
const (
	SectorTechnology  Sector = "technology"
	SectorHealthcare  Sector = "healthcare"
	SectorIndustrials Sector = "industrials"
	SectorConsumer    Sector = "consumer"
	SectorFinancials  Sector = "financials"
	SectorEnergy      Sector = "energy"
)

// CompanyStatus tracks a holding.
type CompanyStatus string

// Holding statuses.
const (
	CompanyActive     CompanyStatus = "active"
	CompanyExited     CompanyStatus = "exited"
	CompanyWrittenOff CompanyStatus = "written_off"
)

var (
	FundStrategies = []string{string(StrategyBuyout), string(StrategyGrowth), string(StrategyVenture), string(StrategyCredit), string(StrategyRealAssets)}
	FundStatuses   = []string{string(FundFundraising), string(FundInvesting), string(FundHarvesting), string(FundClosed)}
	Sectors        = []string{
		string(SectorTechnology), string(SectorHealthcare), string(SectorIndustrials),
		string(SectorConsumer), string(SectorFinancials), string(SectorEnergy),
	}
	CompanyStatuses = []string{string(CompanyActive), string(CompanyExited), string(CompanyWrittenOff)}
)

// Fund is a private-equity fund. CompanyIDs lists its holdings.
type Fund struct {
	Base        `yaml:",inline"`
	Name        string          `json:"name" yaml:"name"`
	Vintage     int             `json:"vintage" yaml:"vintage"`
	Strategy    FundStrategy    `json:"strategy" yaml:"strategy"`
	Status      FundStatus      `json:"status" yaml:"status"`
	Commitment  decimal.Decimal `json:"commitment" yaml:"commitment"`
	Called      decimal.Decimal `json:"called" yaml:"called"`
	Distributed decimal.Decimal `json:"distributed" yaml:"distributed"`
	CompanyIDs  []string        `json:"company_ids" yaml:"company_ids"`
}

// EntityType implements Record.
func (Fund) EntityType() EntityType { return EntityFund }

// Clone implements Record.
func (f *Fund) Clone() Record {
	cp := *f
	cp.CompanyIDs = slices.Clone(f.CompanyIDs)
	return &cp
}

// PortfolioCompany is a holding of a fund.
type PortfolioCompany struct {
	Base      `yaml:",inline"`
	Name      string          `json:"name" yaml:"name"`
	FundID    string          `json:"fund_id" yaml:"fund_id"`
	Sector    Sector          `json:"sector" yaml:"sector"`
	Status    CompanyStatus   `json:"status" yaml:"status"`
	Invested  decimal.Decimal `json:"invested" yaml:"invested"`
	Valuation decimal.Decimal `json:"valuation" yaml:"valuation"`
}

// EntityType implements Record.
func (PortfolioCompany) EntityType() EntityType { return EntityCompany }

// Clone implements Record.
func (c *PortfolioCompany) Clone() Record {
	cp := *c
	return &cp
}

// FundSchema describes the funds collection.
var FundSchema = NewSchema(EntityFund, "funds", func() *Fund { return &Fund{} },
	TextField("name", func(f *Fund) string { return f.Name }, func(f *Fund, v string) { f.Name = v }).Require(),
	IntField("vintage", func(f *Fund) int { return f.Vintage }, func(f *Fund, v int) { f.Vintage = v }),
	EnumField("strategy", FundStrategies, func(f *Fund) string { return string(f.Strategy) }, func(f *Fund, v string) { f.Strategy = FundStrategy(v) }).Require(),
	EnumField("status", FundStatuses, func(f *Fund) string { return string(f.Status) }, func(f *Fund, v string) { f.Status = FundStatus(v) }).Require(),
	MoneyField("commitment", func(f *Fund) decimal.Decimal { return f.Commitment }, func(f *Fund, v decimal.Decimal) { f.Commitment = v }),
	MoneyField("called", func(f *Fund) decimal.Decimal { return f.Called }, func(f *Fund, v decimal.Decimal) { f.Called = v }),
	MoneyField("distributed", func(f *Fund) decimal.Decimal { return f.Distributed }, func(f *Fund, v decimal.Decimal) { f.Distributed = v }),
	RefsField("company_ids", EntityCompany, func(f *Fund) []string { return f.CompanyIDs }, func(f *Fund, v []string) { f.CompanyIDs = v }),
).WithSearch("name")

// CompanySchema describes the companies collection.
var CompanySchema = NewSchema(EntityCompany, "companies", func() *PortfolioCompany { return &PortfolioCompany{} },
	TextField("name", func(c *PortfolioCompany) string { return c.Name }, func(c *PortfolioCompany, v string) { c.Name = v }).Require(),
	RefField("fund_id", EntityFund, func(c *PortfolioCompany) string { return c.FundID }, func(c *PortfolioCompany, v string) { c.FundID = v }),
	EnumField("sector", Sectors, func(c *PortfolioCompany) string { return string(c.Sector) }, func(c *PortfolioCompany, v string) { c.Sector = Sector(v) }).Require(),
	EnumField("status", CompanyStatuses, func(c *PortfolioCompany) string { return string(c.Status) }, func(c *PortfolioCompany, v string) { c.Status = CompanyStatus(v) }).Require(),
	MoneyField("invested", func(c *PortfolioCompany) decimal.Decimal { return c.Invested }, func(c *PortfolioCompany, v decimal.Decimal) { c.Invested = v }),
	MoneyField("valuation", func(c *PortfolioCompany) decimal.Decimal { return c.Valuation }, func(c *PortfolioCompany, v decimal.Decimal) { c.Valuation = v }),
).WithSearch("name")
