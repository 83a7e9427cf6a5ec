package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fwojciec/starcat"
	"google.golang.org/genai"
)

// DefaultModel is the model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

// MaxOutputTokens bounds the size of a single enrichment response.
const MaxOutputTokens = 2500

// TaxonomyExemplars steer the model towards consistent, specific paths.
var TaxonomyExemplars = []string{
	"AI > GenAI > LLM > Chatbot",
	"AI > GenAI > LLM > Code Assistant",
	"AI > GenAI > Voice > TTS",
	"AI > GenAI > Voice > STT",
	"AI > GenAI > Image > Generation",
	"AI > Computer Vision > OCR",
	"AI > ML > Training",
	"AI > ML > Inference",
	"Security > Offensive > Web > Scanner",
	"Security > Offensive > Red Team",
	"Security > Defensive > Hardening",
	"Security > Defensive > Forensics",
	"DevOps > CI/CD > Pipelines",
	"DevOps > Containers > Kubernetes",
	"DevOps > IaC > Terraform",
	"DevOps > Monitoring > Logging",
	"Development > Web > Frontend > React",
	"Development > Web > Backend > API",
	"Development > CLI > Productivity",
	"Development > Libraries > Go",
	"Development > Testing > E2E",
	"Data > Processing > ETL",
	"Data > Databases > SQL",
	"Data > Scraping",
	"Automation > Workflow",
	"Automation > Bots > Discord",
	"Self-Hosted > Media",
	"Self-Hosted > Productivity",
	"Documentation > Knowledge Base",
	"Learning > Tutorials",
	"Learning > Cheatsheets",
}

var _ starcat.Enricher = (*Enricher)(nil)

// Enricher implements starcat.Enricher using Google Gemini.
type Enricher struct {
	client *genai.Client
	model  string

	// Now returns the analysis timestamp. Defaults to time.Now.
	Now func() time.Time
}

// NewEnricher creates a new Enricher. An empty model selects DefaultModel.
func NewEnricher(client *genai.Client, model string) *Enricher {
	if model == "" {
		model = DefaultModel
	}
	return &Enricher{client: client, model: model, Now: time.Now}
}

// Model returns the model name recorded on produced enrichments.
func (e *Enricher) Model() string {
	return e.model
}

// Enrich asks the model for structured metadata about the entry and decodes
// the response. The caller is responsible for truncating content.
func (e *Enricher) Enrich(ctx context.Context, entry *starcat.Entry, content string) (*starcat.Enrichment, error) {
	if entry == nil || entry.ID == "" {
		return nil, starcat.Errorf(starcat.EINVALID, "entry required")
	}

	result, err := e.client.Models.GenerateContent(ctx, e.model,
		[]*genai.Content{{
			Role:  "user",
			Parts: []*genai.Part{{Text: BuildUserPrompt(entry, content)}},
		}},
		BuildConfig(),
	)
	if err != nil {
		return nil, classify(ctx, err)
	}
	if result == nil {
		return nil, starcat.Errorf(starcat.EMALFORMED, "gemini returned nil result")
	}

	text := result.Text()
	if strings.TrimSpace(text) == "" {
		return nil, starcat.Errorf(starcat.EMALFORMED, "gemini returned empty response")
	}

	enrichment, err := starcat.ParseEnrichment(text)
	if err != nil {
		return nil, err
	}
	enrichment.Model = e.model
	enrichment.AnalyzedAt = e.Now().UTC()
	return enrichment, nil
}

// classify maps a GenerateContent failure onto an application error code.
// Rejected requests are permanent; everything else is treated as the
// service being unavailable.
func classify(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("generate content: %w", ctx.Err())
	}

	code := 0
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErr) {
		code = apiErr.Code
	} else if errors.As(err, &apiErrPtr) {
		code = apiErrPtr.Code
	}

	if code >= 400 && code < 500 && code != http.StatusTooManyRequests && code != http.StatusRequestTimeout {
		return starcat.Errorf(starcat.EINVALID, "gemini rejected request: %v", err)
	}
	return starcat.Errorf(starcat.EUNAVAILABLE, "gemini unavailable: %v", err)
}

// BuildConfig returns the GenerateContentConfig for enrichment calls.
func BuildConfig() *genai.GenerateContentConfig {
	temp := float32(0.2)
	return &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{
				Text: "You catalog GitHub repositories for a personal starred-repository manager. " +
					"Describe only what the README supports. Respond with a single JSON object and nothing else.",
			}},
		},
		Temperature:      &temp,
		MaxOutputTokens:  MaxOutputTokens,
		ResponseMIMEType: "application/json",
	}
}

// BuildUserPrompt builds the prompt describing one entry and its content.
func BuildUserPrompt(entry *starcat.Entry, content string) string {
	language := entry.Language
	if language == "" {
		language = "Unknown"
	}

	var sb strings.Builder
	sb.WriteString("Analyze this GitHub repository and provide structured metadata.\n\n")
	fmt.Fprintf(&sb, "Repository: %s\n", entry.ID)
	fmt.Fprintf(&sb, "Primary Language: %s\n", language)
	fmt.Fprintf(&sb, "Stars: %d\n\n", entry.Stars)
	sb.WriteString("<readme>\n")
	sb.WriteString(content)
	sb.WriteString("\n</readme>\n\n")

	sb.WriteString("Taxonomy examples (use \" > \" between levels, be specific):\n")
	for _, path := range TaxonomyExemplars {
		fmt.Fprintf(&sb, "- %s\n", path)
	}

	sb.WriteString(`
Respond with this JSON structure:
{
  "summary": "2-3 sentence description of what this project does",
  "purpose": "what specific problem it solves",
  "targetAudience": "who it is for",
  "taxonomy": ["Primary > Category > Subcategory > Specific"],
  "tags": ["flat", "lowercase", "searchable", "tags"],
  "techStack": ["go", "docker"],
  "useCases": ["specific use case"],
  "maturity": "alpha|beta|stable|mature",
  "complexity": "beginner|intermediate|advanced|expert",
  "documentationQuality": "poor|basic|good|excellent",
  "activityStatus": "active|maintained|stale",
  "similarTo": ["well-known-project"],
  "keywords": ["discovery", "keywords"],
  "standoutFeatures": ["notable capability"],
  "potentialValue": "why someone would star this"
}

Rules:
1. Every taxonomy path has between 2 and 4 levels.
2. A repository may have several taxonomy paths.
3. Tags are lowercase.
4. Be specific: name the kind of tool, not just "Tools".
`)
	return sb.String()
}
