package analysis

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/visita-intel/newsintel/pkg/anthropic"
	"github.com/visita-intel/newsintel/pkg/chat"
)

// Provider names used in the model chain.
const (
	ProviderOpenRouter = "openrouter"
	ProviderGitHub     = "github"
	ProviderAnthropic  = "anthropic"
)

// Request is one completion call.
type Request struct {
	Model     string
	System    string
	User      string
	MaxTokens int
}

// Completion is a provider's answer plus the tokens it billed.
type Completion struct {
	Text         string
	InputTokens  int64
	OutputTokens int64
}

// Provider sends a single completion to one LLM backend. Errors should carry
// the upstream HTTP status (resilience.StatusCoder) so the engine can tell
// rate limits and dead models apart from transient faults.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (*Completion, error)
}

// ChatProvider adapts an OpenAI-compatible chat client (OpenRouter, GitHub Models).
type ChatProvider struct {
	name   string
	client chat.Client
}

// NewChatProvider wraps client under the given provider name.
func NewChatProvider(name string, client chat.Client) *ChatProvider {
	return &ChatProvider{name: name, client: client}
}

func (p *ChatProvider) Name() string { return p.name }

// Complete sends a system + user message pair and asks for a JSON object.
func (p *ChatProvider) Complete(ctx context.Context, req Request) (*Completion, error) {
	chatReq := chat.ChatCompletionRequest{
		Model: req.Model,
		Messages: []chat.Message{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.User},
		},
		ResponseFormat: chat.JSONObject,
	}
	if req.MaxTokens > 0 {
		maxTokens := req.MaxTokens
		chatReq.MaxTokens = &maxTokens
	}

	resp, err := p.client.ChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, eris.Wrapf(err, "analysis: %s completion", p.name)
	}
	return &Completion{
		Text:         resp.Content(),
		InputTokens:  int64(resp.Usage.PromptTokens),
		OutputTokens: int64(resp.Usage.CompletionTokens),
	}, nil
}

// AnthropicProvider adapts the Messages API. The system block is marked for
// prompt caching since it only varies by niche.
type AnthropicProvider struct {
	client anthropic.Client
}

// NewAnthropicProvider wraps client.
func NewAnthropicProvider(client anthropic.Client) *AnthropicProvider {
	return &AnthropicProvider{client: client}
}

func (p *AnthropicProvider) Name() string { return ProviderAnthropic }

// Complete sends the prompt as a cached system block and one user turn.
func (p *AnthropicProvider) Complete(ctx context.Context, req Request) (*Completion, error) {
	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	resp, err := p.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     req.Model,
		MaxTokens: maxTokens,
		System: []anthropic.SystemBlock{{
			Text:         req.System,
			CacheControl: &anthropic.CacheControl{TTL: "5m"},
		}},
		Messages: []anthropic.Message{{Role: "user", Content: req.User}},
	})
	if err != nil {
		return nil, eris.Wrap(err, "analysis: anthropic completion")
	}
	return &Completion{
		Text:         resp.Text(),
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}, nil
}
