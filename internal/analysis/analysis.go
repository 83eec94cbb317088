// Package analysis sends ledger questions, optionally with a document
// attached, to a generative model and stores the answers as insights.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"deskcore/internal/dashboard"
	"deskcore/pkg/domain"
)

// ErrEmptyPrompt is returned when a request has no prompt.
var ErrEmptyPrompt = fmt.Errorf("%w: prompt is required", domain.ErrValidation)

// ErrNoAnswer is returned when the model produced no text.
var ErrNoAnswer = errors.New("analysis: model returned no text")

// Attachment is an optional document sent alongside the prompt.
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

// Request is one analysis question.
type Request struct {
	Prompt string
	// Context is prepended to the prompt, typically LedgerContext output.
	Context    string
	Attachment *Attachment
}

func (r Request) validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return ErrEmptyPrompt
	}
	return nil
}

// Analyzer answers a Request. Implementations are opaque to the rest of the
// system.
type Analyzer interface {
	Analyze(ctx context.Context, req Request) (string, error)
	Model() string
}

// AnalyzerFunc adapts a function to Analyzer.
type AnalyzerFunc func(ctx context.Context, req Request) (string, error)

// Analyze calls f.
func (f AnalyzerFunc) Analyze(ctx context.Context, req Request) (string, error) { return f(ctx, req) }

// Model reports a fixed name.
func (AnalyzerFunc) Model() string { return "func" }

// LedgerContext renders the CFO headline figures as plain text for the model.
func LedgerContext(snapshot domain.Snapshot) string {
	s := dashboard.SummarizeCFO(snapshot)
	var b strings.Builder
	fmt.Fprintf(&b, "Transactions: %d\n", s.Transactions)
	fmt.Fprintf(&b, "Income: %s\nExpenses: %s\nNet: %s\n", s.Income.StringFixed(2), s.Expenses.StringFixed(2), s.Net.StringFixed(2))
	for _, c := range s.ByCategory {
		if c.Amount.IsZero() {
			continue
		}
		fmt.Fprintf(&b, "Category %s: %s\n", c.Label, c.Amount.StringFixed(2))
	}
	return b.String()
}
