package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"google.golang.org/genai"

	"autom8/domain"
)

const (
	DefaultModel   = "gemini-2.0-flash"
	DefaultTimeout = 60 * time.Second
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini turns briefs into task lists using the Gemini API with a JSON
// response schema.
type Gemini struct {
	models  contentGenerator
	model   string
	timeout time.Duration
}

// NewGemini creates a Gemini gateway. Empty model and non-positive timeout
// fall back to DefaultModel and DefaultTimeout.
func NewGemini(ctx context.Context, apiKey, model string, timeout time.Duration) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return newGemini(client.Models, model, timeout), nil
}

func newGemini(models contentGenerator, model string, timeout time.Duration) *Gemini {
	if model == "" {
		model = DefaultModel
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Gemini{models: models, model: model, timeout: timeout}
}

// Prompt is the instruction sent along with the brief. The brief is quoted
// verbatim, without escaping.
func Prompt(brief string) string {
	return fmt.Sprintf("You are a Technical PM. Convert this brief into technical tasks: \"%s\"", brief)
}

// Generate returns the raw JSON text produced for brief. An empty model
// answer is reported as an empty array.
func (g *Gemini) Generate(ctx context.Context, brief string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(Prompt(brief)), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   taskSchema(),
	})
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	log.WithFields(log.Fields{
		"model":      g.model,
		"brief_len":  len(brief),
		"answer_len": len(text),
		"elapsed_ms": time.Since(start).Milliseconds(),
	}).Debug("gemini.generate")
	if text == "" {
		return "[]", nil
	}
	return text, nil
}

// taskSchema asks for an array of {id, name, type, priority}. The model is
// not bound to honour it.
func taskSchema() *genai.Schema {
	categories := make([]string, len(domain.Categories))
	for i, c := range domain.Categories {
		categories[i] = string(c)
	}
	priorities := make([]string, len(domain.Priorities))
	for i, p := range domain.Priorities {
		priorities[i] = string(p)
	}
	return &genai.Schema{
		Type: genai.TypeArray,
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"id":       {Type: genai.TypeString},
				"name":     {Type: genai.TypeString},
				"type":     {Type: genai.TypeString, Enum: categories},
				"priority": {Type: genai.TypeString, Enum: priorities},
			},
			Required: []string{"name", "type", "priority"},
		},
	}
}
