package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"reviewcat/internal/domain"
)

const systemPrompt = "You are a helpful assistant that categorizes app reviews."

// OpenAIDiscovery proposes categories for unmatched reviews via a chat
// completion in JSON mode. The prompt pushes the model to reuse an existing
// category whenever one fits and to invent a new name only for a genuinely
// unaddressed theme.
type OpenAIDiscovery struct {
	client      *openai.Client
	model       string
	temperature float32
}

func NewOpenAIDiscovery(apiKeyEnv, model, baseURL string, temperature float32) (*OpenAIDiscovery, error) {
	apiKey := os.Getenv(apiKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("API key not found in environment variable: %s", apiKeyEnv)
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &OpenAIDiscovery{
		client:      openai.NewClientWithConfig(cfg),
		model:       model,
		temperature: temperature,
	}, nil
}

type proposalPayload struct {
	Category  string `json:"category"`
	IsNew     bool   `json:"is_new"`
	Sentiment string `json:"sentiment"`
	Rationale string `json:"rationale"`
}

func (d *OpenAIDiscovery) Propose(ctx context.Context, reviewText string, existing []domain.Category) (domain.ProposedCategory, error) {
	resp, err := d.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       d.model,
		Temperature: d.temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(reviewText, existing)},
		},
	})
	if err != nil {
		return domain.ProposedCategory{}, fmt.Errorf("%w: %v", domain.ErrServiceUnavailable, err)
	}

	if len(resp.Choices) == 0 {
		return domain.ProposedCategory{}, fmt.Errorf("%w: no choices returned", domain.ErrAmbiguousResponse)
	}

	return parseProposal(resp.Choices[0].Message.Content, existing)
}

func (d *OpenAIDiscovery) ModelName() string {
	return d.model
}

func buildPrompt(reviewText string, existing []domain.Category) string {
	var b strings.Builder

	b.WriteString("I have a customer review from a food delivery app that did not match any known category by semantic similarity.\n\n")
	b.WriteString("Existing categories:\n")
	for _, cat := range existing {
		fmt.Fprintf(&b, "- %s (%s)\n", cat.Name, cat.Sentiment)
	}

	b.WriteString("\nReview:\n")
	fmt.Fprintf(&b, "%s\n\n", reviewText)

	b.WriteString(`Assign the review to a category:
1. Prefer one of the existing categories listed above whenever the review is semantically equivalent to it.
2. Only create a NEW specific category name when the review describes a genuinely unaddressed theme.
3. Any review with positive sentiment belongs in "Positive Feedback".
4. Use "Other" only as an absolute last resort.

Respond with a JSON object:
{
  "category": "Category Name",
  "is_new": true or false,
  "sentiment": "positive" or "negative" or "neutral",
  "rationale": "one short sentence"
}`)

	return b.String()
}

// parseProposal decodes the model answer. Unparseable or empty answers are
// ErrAmbiguousResponse; a proposal naming an existing category (after fuzzy
// normalization) is coerced to a reuse of the stored name.
func parseProposal(content string, existing []domain.Category) (domain.ProposedCategory, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return domain.ProposedCategory{}, fmt.Errorf("%w: empty completion", domain.ErrAmbiguousResponse)
	}

	var payload proposalPayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		preview := content
		if len(preview) > 200 {
			preview = preview[:200]
		}
		return domain.ProposedCategory{}, fmt.Errorf("%w: %v (body: %s)", domain.ErrAmbiguousResponse, err, preview)
	}

	name := strings.TrimSpace(payload.Category)
	if name == "" {
		return domain.ProposedCategory{}, fmt.Errorf("%w: empty category name", domain.ErrAmbiguousResponse)
	}

	proposed := domain.ProposedCategory{
		Name:      name,
		Sentiment: domain.ParseSentiment(payload.Sentiment),
		IsNew:     payload.IsNew,
		Rationale: strings.TrimSpace(payload.Rationale),
	}

	// The model sometimes claims is_new for a name we already track.
	normalized := domain.NormalizeName(name)
	for _, cat := range existing {
		if domain.NormalizeName(cat.Name) == normalized {
			proposed.Name = cat.Name
			proposed.IsNew = false
			break
		}
	}

	return proposed, nil
}

// Disabled is a CategoryDiscovery that always reports the service as
// unavailable, used when no language model is configured.
type Disabled struct {
	Reason string
}

func (d *Disabled) Propose(context.Context, string, []domain.Category) (domain.ProposedCategory, error) {
	return domain.ProposedCategory{}, fmt.Errorf("%w: %s", domain.ErrServiceUnavailable, d.Reason)
}

func (d *Disabled) ModelName() string {
	return "disabled"
}
