// Package openai implements [llm.Provider] on the OpenAI chat completions
// API. Any OpenAI-compatible endpoint works through [WithBaseURL]; the
// original grading setup used Moonshot at https://api.moonshot.cn/v1.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/MrWong99/glyphfix/pkg/provider/llm"
)

var _ llm.Provider = (*Provider)(nil)

// Provider sends completion requests to one model.
type Provider struct {
	client oai.Client
	model  string
}

type settings struct {
	baseURL      string
	organization string
	timeout      time.Duration
	retries      int
	httpClient   *http.Client
}

// Option configures a [Provider].
type Option func(*settings)

// WithBaseURL targets an OpenAI-compatible endpoint instead of OpenAI.
func WithBaseURL(url string) Option {
	return func(s *settings) { s.baseURL = url }
}

// WithOrganization sends the OpenAI organization header.
func WithOrganization(org string) Option {
	return func(s *settings) { s.organization = org }
}

// WithTimeout bounds each HTTP request.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) { s.timeout = d }
}

// WithSDKRetries sets how often the SDK itself retries a failed request.
// Default: 0, leaving retries to the caller.
func WithSDKRetries(n int) Option {
	return func(s *settings) { s.retries = n }
}

// WithHTTPClient replaces the HTTP client; [WithTimeout] then applies to it.
func WithHTTPClient(c *http.Client) Option {
	return func(s *settings) { s.httpClient = c }
}

// New returns a provider for model authenticated with apiKey.
func New(apiKey, model string, opts ...Option) (*Provider, error) {
	switch {
	case apiKey == "":
		return nil, errors.New("openai: api key is required")
	case model == "":
		return nil, errors.New("openai: model is required")
	}

	var s settings
	for _, o := range opts {
		o(&s)
	}

	hc := s.httpClient
	if hc == nil {
		hc = &http.Client{}
	}
	if s.timeout > 0 {
		c := *hc
		c.Timeout = s.timeout
		hc = &c
	}

	ro := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(hc),
		option.WithMaxRetries(s.retries),
	}
	if s.baseURL != "" {
		ro = append(ro, option.WithBaseURL(s.baseURL))
	}
	if s.organization != "" {
		ro = append(ro, option.WithOrganization(s.organization))
	}
	return &Provider{client: oai.NewClient(ro...), model: model}, nil
}

// Model returns the model name requests are sent to.
func (p *Provider) Model() string { return p.model }

// Complete sends req and returns the first choice. Rejections that cannot
// succeed on retry wrap [llm.ErrInvalidRequest].
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	params, err := p.params(req)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, classify(err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai: %s returned no choices", p.model)
	}

	c := resp.Choices[0]
	return &llm.CompletionResponse{
		Content:      c.Message.Content,
		FinishReason: string(c.FinishReason),
		Usage: llm.Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}, nil
}

// classify marks client errors other than timeouts and rate limits as
// permanent.
func classify(err error) error {
	var apiErr *oai.Error
	if errors.As(err, &apiErr) {
		code := apiErr.StatusCode
		if code >= 400 && code < 500 && code != http.StatusRequestTimeout && code != http.StatusTooManyRequests {
			return fmt.Errorf("openai: status %d: %w: %w", code, llm.ErrInvalidRequest, err)
		}
		return fmt.Errorf("openai: status %d: %w", code, err)
	}
	return fmt.Errorf("openai: %w", err)
}

func (p *Provider) params(req llm.CompletionRequest) (oai.ChatCompletionNewParams, error) {
	msgs := make([]oai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		msgs = append(msgs, oai.SystemMessage(req.SystemPrompt))
	}
	for i, m := range req.Messages {
		switch m.Role {
		case llm.RoleSystem:
			msgs = append(msgs, oai.SystemMessage(m.Content))
		case llm.RoleUser:
			msgs = append(msgs, oai.UserMessage(m.Content))
		case llm.RoleAssistant:
			msgs = append(msgs, oai.AssistantMessage(m.Content))
		default:
			return oai.ChatCompletionNewParams{}, fmt.Errorf("openai: message %d: %w: role %q", i, llm.ErrInvalidRequest, m.Role)
		}
	}
	if len(msgs) == 0 {
		return oai.ChatCompletionNewParams{}, fmt.Errorf("openai: %w: no messages", llm.ErrInvalidRequest)
	}

	params := oai.ChatCompletionNewParams{
		Model:    shared.ChatModel(p.model),
		Messages: msgs,
	}
	if req.Temperature != 0 {
		params.Temperature = param.NewOpt(req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(int64(req.MaxTokens))
	}
	if req.JSON {
		params.ResponseFormat = oai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}
	return params, nil
}
