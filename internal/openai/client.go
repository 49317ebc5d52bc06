package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"mandi/internal/extract"
	"mandi/internal/locale"
	"mandi/internal/orchestrator"
)

const defaultTemperature = 0.7

type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

// Client talks to the Responses API. It implements orchestrator.Negotiator
// together with the optional Moderator and ListingExtractor.
type Client struct {
	apiKey     string
	endpoint   string
	model      string
	timeout    time.Duration
	maxRetries int
	httpClient httpDoer
	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration) error
}

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

var (
	_ orchestrator.Negotiator       = (*Client)(nil)
	_ orchestrator.Moderator        = (*Client)(nil)
	_ orchestrator.ListingExtractor = (*Client)(nil)
)

func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("api key is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.New("model is required")
	}
	if cfg.Timeout <= 0 {
		return nil, errors.New("timeout must be > 0")
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	return &Client{
		apiKey:     strings.TrimSpace(cfg.APIKey),
		endpoint:   normalizeEndpoint(cfg.BaseURL),
		model:      strings.TrimSpace(cfg.Model),
		timeout:    cfg.Timeout,
		maxRetries: cfg.MaxRetries,
		httpClient: &http.Client{},
		now:        time.Now,
		sleep:      sleepWithContext,
	}, nil
}

// Negotiate asks the model for the counterpart's next line as a JSON reply.
func (c *Client) Negotiate(ctx context.Context, input orchestrator.NegotiateInput) (orchestrator.NegotiateOutput, error) {
	var out orchestrator.NegotiateOutput
	usage, err := c.generateJSON(ctx, buildNegotiateSystemPrompt(input), buildNegotiateUserPrompt(input), func(raw string) error {
		parsed, err := parseNegotiation(raw)
		if err != nil {
			return err
		}
		out = enforcePriceBounds(parsed, input)
		return nil
	})
	if err != nil {
		return orchestrator.NegotiateOutput{}, fmt.Errorf("negotiate: %w", err)
	}
	out.Usage = usage
	return out, nil
}

// Moderate screens one human message for abuse and scam patterns.
func (c *Client) Moderate(ctx context.Context, input orchestrator.ModerateInput) (orchestrator.ModerateOutput, error) {
	var out orchestrator.ModerateOutput
	usage, err := c.generateJSON(ctx, buildModerateSystemPrompt(), buildModerateUserPrompt(input), func(raw string) error {
		parsed, err := parseModeration(raw)
		if err != nil {
			return err
		}
		out = parsed
		return nil
	})
	if err != nil {
		return orchestrator.ModerateOutput{}, fmt.Errorf("moderate: %w", err)
	}
	out.Usage = usage
	return out, nil
}

// ExtractListing reads a free-text listing description.
func (c *Client) ExtractListing(ctx context.Context, text string, code locale.Code) (extract.ListingDraft, error) {
	var out extract.ListingDraft
	_, err := c.generateJSON(ctx, buildListingSystemPrompt(), buildListingUserPrompt(text, code), func(raw string) error {
		parsed, err := parseListingDraft(raw)
		if err != nil {
			return err
		}
		out = parsed
		return nil
	})
	if err != nil {
		return extract.ListingDraft{}, fmt.Errorf("extract listing: %w", err)
	}
	if out.Description == "" {
		out.Description = strings.TrimSpace(text)
	}
	return out, nil
}

// generateJSON runs one prompt and hands the text to parse. A reply that
// does not parse is asked for once more before giving up.
func (c *Client) generateJSON(ctx context.Context, systemPrompt, userPrompt string, parse func(string) error) (orchestrator.Usage, error) {
	var aggregated orchestrator.Usage
	for attempt := 0; attempt < 2; attempt++ {
		resp, err := c.callResponses(ctx, []inputMsg{
			makeMessage("system", systemPrompt),
			makeMessage("user", userPrompt),
		})
		if err != nil {
			return orchestrator.Usage{}, err
		}

		usage := toUsage(resp.Usage)
		aggregated.PromptTokens += usage.PromptTokens
		aggregated.CompletionTokens += usage.CompletionTokens
		aggregated.TotalTokens += usage.TotalTokens

		parseErr := parse(strings.TrimSpace(extractOutputText(resp)))
		if parseErr == nil {
			return aggregated, nil
		}
		if attempt == 1 {
			return orchestrator.Usage{}, fmt.Errorf("parse model json: %w", parseErr)
		}
	}

	return orchestrator.Usage{}, errors.New("unreachable json parser state")
}
