package domain

import "github.com/shopspring/decimal"

// TransactionCategory groups ledger lines for the CFO dashboard.
type TransactionCategory string

// Ledger categories.
const (
	CategoryRevenue    TransactionCategory = "revenue"
	CategoryPayroll    TransactionCategory = "payroll"
	CategoryOperations TransactionCategory = "operations"
	CategoryMarketing  TransactionCategory = "marketing"
	CategoryRnD        TransactionCategory = "rnd"
	CategoryTax        TransactionCategory = "tax"
	CategoryOther      TransactionCategory = "other"
)

// TransactionKind separates income from expenses.
type TransactionKind string

const (
	TransactionIncome  TransactionKind = "income"
	TransactionExpense TransactionKind = "expense"
)

var (
	TransactionCategories = []string{
		string(CategoryRevenue), string(CategoryPayroll), string(CategoryOperations),
		string(CategoryMarketing), string(CategoryRnD), string(CategoryTax), string(CategoryOther),
	}
	TransactionKinds = []string{string(TransactionIncome), string(TransactionExpense)}
)

// LedgerEntry is a single ledger line. Amounts are positive; Kind carries the sign.
type LedgerEntry struct {
	Base        `yaml:",inline"`
	Description string              `json:"description" yaml:"description"`
	Category    TransactionCategory `json:"category" yaml:"category"`
	Kind        TransactionKind     `json:"kind" yaml:"kind"`
	Amount      decimal.Decimal     `json:"amount" yaml:"amount"`
	Date        string              `json:"date" yaml:"date"`
}

// EntityType implements Record.
func (LedgerEntry) EntityType() EntityType { return EntityTransaction }

// Clone implements Record.
func (t *LedgerEntry) Clone() Record {
	cp := *t
	return &cp
}

// Signed returns the amount, negated for expenses.
func (t *LedgerEntry) Signed() decimal.Decimal {
	if t.Kind == TransactionExpense {
		return t.Amount.Neg()
	}
	return t.Amount
}

// Insight stores the outcome of an AI analysis request.
type Insight struct {
	Base       `yaml:",inline"`
	Prompt     string `json:"prompt" yaml:"prompt"`
	Result     string `json:"result" yaml:"result"`
	Attachment string `json:"attachment,omitempty" yaml:"attachment,omitempty"`
	Model      string `json:"model" yaml:"model"`
}

// EntityType implements Record.
func (Insight) EntityType() EntityType { return EntityInsight }

// Clone implements Record.
func (i *Insight) Clone() Record {
	cp := *i
	return &cp
}

// TransactionSchema describes the transactions collection.
var TransactionSchema = NewSchema(EntityTransaction, "transactions", func() *LedgerEntry { return &LedgerEntry{} },
	TextField("description", func(t *LedgerEntry) string { return t.Description }, func(t *LedgerEntry, v string) { t.Description = v }).Require(),
	EnumField("category", TransactionCategories, func(t *LedgerEntry) string { return string(t.Category) }, func(t *LedgerEntry, v string) { t.Category = TransactionCategory(v) }).Require(),
	EnumField("kind", TransactionKinds, func(t *LedgerEntry) string { return string(t.Kind) }, func(t *LedgerEntry, v string) { t.Kind = TransactionKind(v) }).Require(),
	MoneyField("amount", func(t *LedgerEntry) decimal.Decimal { return t.Amount }, func(t *LedgerEntry, v decimal.Decimal) { t.Amount = v }),
	DateField("date", func(t *LedgerEntry) string { return t.Date }, func(t *LedgerEntry, v string) { t.Date = v }).Require(),
).WithSearch("description")

// InsightSchema describes the insights collection.
var InsightSchema = NewSchema(EntityInsight, "insights", func() *Insight { return &Insight{} },
	TextField("prompt", func(i *Insight) string { return i.Prompt }, func(i *Insight, v string) { i.Prompt = v }).Require(),
	TextField("result", func(i *Insight) string { return i.Result }, func(i *Insight, v string) { i.Result = v }),
	TextField("attachment", func(i *Insight) string { return i.Attachment }, func(i *Insight, v string) { i.Attachment = v }),
	TextField("model", func(i *Insight) string { return i.Model }, func(i *Insight, v string) { i.Model = v }),
).WithSearch("prompt", "result")
