package analysis

import (
	"context"
	"fmt"
	"strings"

	"deskcore/internal/config"

	"google.golang.org/genai"
)

const systemInstruction = "You are a financial analyst. Answer concisely using the ledger figures provided. " +
	"If a document is attached, ground the answer in it."

// GenAI answers requests with a Gemini model.
type GenAI struct {
	client *genai.Client
	model  string
}

// NewGenAI creates a Gemini-backed analyzer.
func NewGenAI(ctx context.Context, cfg config.AnalysisConfig) (*GenAI, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("genai api key is required")
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GenAI{client: client, model: model}, nil
}

// Model returns the configured model name.
func (g *GenAI) Model() string { return g.model }

// Analyze sends the prompt, the ledger context and any attachment as one
// user turn.
func (g *GenAI) Analyze(ctx context.Context, req Request) (string, error) {
	if err := req.validate(); err != nil {
		return "", err
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, buildContents(req), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
	})
	if err != nil {
		return "", fmt.Errorf("genai generate: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrNoAnswer
	}
	return text, nil
}

func buildContents(req Request) []*genai.Content {
	prompt := req.Prompt
	if req.Context != "" {
		prompt = req.Context + "\n" + prompt
	}
	parts := []*genai.Part{genai.NewPartFromText(prompt)}
	if a := req.Attachment; a != nil && len(a.Data) > 0 {
		parts = append(parts, genai.NewPartFromBytes(a.Data, a.ContentType))
	}
	return []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
}
