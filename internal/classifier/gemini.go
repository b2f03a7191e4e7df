// Package classifier provides category classifiers for inferred-mode
// ingestion.
package classifier

import (
	"context"
	"fmt"

	"github.com/dvloznov/budget-tracker/internal/domain"
	"github.com/shopspring/decimal"
	"google.golang.org/genai"
)

// DefaultModelName is used when no model is configured.
const DefaultModelName = "gemini-2.5-flash"

// generator is the part of *genai.Models used here.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini classifies transactions with a Gemini model.
type Gemini struct {
	models generator
	model  string
}

// NewGemini creates a Gemini-backed classifier. An empty model selects
// DefaultModelName.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("NewGemini: create genai client: %w", err)
	}
	return newGeminiWithGenerator(client.Models, model), nil
}

func newGeminiWithGenerator(models generator, model string) *Gemini {
	if model == "" {
		model = DefaultModelName
	}
	return &Gemini{models: models, model: model}
}

// Classify returns the model's label for the transaction. Any failure is
// reported as domain.ErrClassificationUnavailable.
func (g *Gemini) Classify(ctx context.Context, description string, amount decimal.Decimal, labels []string) (string, error) {
	if len(labels) == 0 {
		return "", fmt.Errorf("Gemini.Classify: no labels: %w", domain.ErrClassificationUnavailable)
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: buildPrompt(description, amount, labels)},
			},
		},
	}
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0),
	}

	resp, err := g.models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("Gemini.Classify: generate content: %w: %w", domain.ErrClassificationUnavailable, err)
	}

	label := cleanModelLabel(resp.Text())
	if label == "" {
		return "", fmt.Errorf("Gemini.Classify: empty response from model: %w", domain.ErrClassificationUnavailable)
	}
	return label, nil
}
