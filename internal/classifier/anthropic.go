package classifier

import (
	"context"
	"encoding/json"
	"math"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/m-mizutani/goerr/v2"
	"github.com/pbaille/mindspace/internal/domain"
)

// DefaultAnthropicModel is used when no model name is configured
const DefaultAnthropicModel = "claude-sonnet-4-20250514"

// Anthropic classifies journal text with a hosted LLM
type Anthropic struct {
	client anthropic.Client
	model  string
	labels []string
}

// AnthropicOption configures the Anthropic classifier
type AnthropicOption func(*anthropicConfig)

type anthropicConfig struct {
	model   string
	baseURL string
	labels  []string
}

// WithModel overrides the LLM model name
func WithModel(model string) AnthropicOption {
	return func(c *anthropicConfig) {
		if model != "" {
			c.model = model
		}
	}
}

// WithBaseURL points the client at another API endpoint
func WithBaseURL(url string) AnthropicOption {
	return func(c *anthropicConfig) {
		c.baseURL = url
	}
}

// WithLabels restricts answers to the given vocabulary
func WithLabels(labels []string) AnthropicOption {
	return func(c *anthropicConfig) {
		if len(labels) > 0 {
			c.labels = labels
		}
	}
}

// NewAnthropic creates an LLM classifier. Retries are disabled: a failed call
// is reported as a single failed prediction.
func NewAnthropic(apiKey string, opts ...AnthropicOption) (*Anthropic, error) {
	if apiKey == "" {
		return nil, goerr.New("anthropic api key is required")
	}

	cfg := anthropicConfig{model: DefaultAnthropicModel, labels: domain.Labels}
	for _, opt := range opts {
		opt(&cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}

	return &Anthropic{
		client: anthropic.NewClient(reqOpts...),
		model:  cfg.model,
		labels: cfg.labels,
	}, nil
}

// Predict asks the model for one label and its confidence
func (a *Anthropic) Predict(ctx context.Context, text string) (domain.Prediction, error) {
	message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: 256,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildPrompt(text, a.labels))),
		},
	})
	if err != nil {
		return domain.Prediction{}, goerr.Wrap(err, "failed to call anthropic", goerr.V("model", a.model))
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			return parseResponse(block.Text, a.labels)
		}
	}
	return domain.Prediction{}, goerr.New("no text content in anthropic response")
}

func buildPrompt(text string, labels []string) string {
	var sb strings.Builder

	sb.WriteString("Classify the mood of this journal entry. Return JSON only.\n\n")
	sb.WriteString("Entry:\n")
	sb.WriteString(text)
	sb.WriteString("\n\nAllowed labels:\n")
	for _, l := range labels {
		sb.WriteString("- ")
		sb.WriteString(l)
		sb.WriteString("\n")
	}

	sb.WriteString(`
Return a JSON object with this structure:
{"label": "one-of-the-allowed-labels", "confidence": 0.9}

Rules:
- Pick exactly one label from the allowed list, spelled as shown
- Confidence is 0.0-1.0, the probability that the label is correct

Return ONLY the JSON, no other text.`)

	return sb.String()
}

func parseResponse(resp string, labels []string) (domain.Prediction, error) {
	resp = strings.TrimSpace(resp)
	resp = strings.TrimPrefix(resp, "```json")
	resp = strings.TrimPrefix(resp, "```")
	resp = strings.TrimSuffix(resp, "```")
	resp = strings.TrimSpace(resp)

	var p domain.Prediction
	if err := json.Unmarshal([]byte(resp), &p); err != nil {
		return domain.Prediction{}, goerr.Wrap(err, "failed to parse classifier response", goerr.V("response", resp))
	}

	label := matchLabel(p.Label, labels)
	if label == "" {
		return domain.UnknownPrediction(), nil
	}

	conf := p.Confidence
	if math.IsNaN(conf) {
		conf = 0
	}
	return domain.Prediction{Label: label, Confidence: math.Min(1, math.Max(0, conf))}, nil
}

func matchLabel(label string, labels []string) string {
	label = strings.TrimSpace(label)
	for _, l := range labels {
		if strings.EqualFold(l, label) {
			return l
		}
	}
	return ""
}
