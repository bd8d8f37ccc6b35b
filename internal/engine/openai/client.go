package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pocketomega/axon/internal/engine"
	"github.com/pocketomega/axon/internal/xlog"
	openailib "github.com/sashabaranov/go-openai"
)

var clientLog = xlog.New("Engine/OpenAI")

// Client implements engine.ModelEngine against any OpenAI-compatible chat
// completions endpoint.
type Client struct {
	client *openailib.Client
	config *Config
}

// NewClient builds a Client, wiring LLM_HTTP_TIMEOUT into the HTTP client so
// slow reasoning back-ends don't hang indefinitely.
func NewClient(config *Config) (*Client, error) {
	if config == nil {
		return nil, fmt.Errorf("engine/openai: config cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("engine/openai: invalid config: %w", err)
	}

	clientConfig := openailib.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	httpTimeout := time.Duration(config.HTTPTimeout) * time.Second
	clientConfig.HTTPClient = &http.Client{Timeout: httpTimeout}

	return &Client{
		client: openailib.NewClientWithConfig(clientConfig),
		config: config,
	}, nil
}

// NewClientFromEnv builds a Client using environment variables.
func NewClientFromEnv() (*Client, error) {
	config, err := NewConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("engine/openai: loading config from env: %w", err)
	}
	return NewClient(config)
}

func (c *Client) Name() string { return fmt.Sprintf("openai-compatible (%s)", c.config.Model) }

func (c *Client) Capability() engine.Capability { return c.config.ResolveCapability() }

func toOpenAIMessages(msgs []engine.Message) []openailib.ChatCompletionMessage {
	out := make([]openailib.ChatCompletionMessage, len(msgs))
	for i, m := range msgs {
		out[i] = openailib.ChatCompletionMessage{Role: string(m.Role), Content: m.Content}
	}
	return out
}

func (c *Client) buildRequest(req engine.Request, stream bool) openailib.ChatCompletionRequest {
	r := openailib.ChatCompletionRequest{
		Model:    c.config.Model,
		Messages: toOpenAIMessages(req.Messages),
		Stream:   stream,
	}
	if c.config.Temperature != nil {
		r.Temperature = *c.config.Temperature
	} else if req.Temperature > 0 {
		r.Temperature = req.Temperature
	}
	if c.config.MaxTokens > 0 {
		r.MaxTokens = c.config.MaxTokens
	} else if req.MaxTokens > 0 {
		r.MaxTokens = req.MaxTokens
	}
	if c.Capability().ReasoningEffortParam {
		effort := c.config.ReasoningEffort
		if req.ReasoningEffort != "" {
			effort = req.ReasoningEffort
		}
		r.ReasoningEffort = effort
	}
	return r
}

// Execute sends one synchronous chat-completion call with up to
// config.MaxRetries retries after any error, waiting one second longer
// before each successive retry.
func (c *Client) Execute(ctx context.Context, req engine.Request) (engine.Response, error) {
	if len(req.Messages) == 0 {
		return engine.Response{}, fmt.Errorf("engine/openai: no messages to send")
	}
	r := c.buildRequest(req, false)

	var resp openailib.ChatCompletionResponse
	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		resp, lastErr = c.client.CreateChatCompletion(ctx, r)
		if lastErr == nil {
			break
		}
		if attempt < c.config.MaxRetries {
			wait := time.Duration(attempt+1) * time.Second
			clientLog.Printf("retry %d/%d after %v, error: %v", attempt+1, c.config.MaxRetries, wait, lastErr)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return engine.Response{}, ctx.Err()
			}
		}
	}
	if lastErr != nil {
		return engine.Response{}, fmt.Errorf("engine/openai: call failed after %d retries: %w", c.config.MaxRetries, lastErr)
	}
	if len(resp.Choices) == 0 {
		return engine.Response{}, fmt.Errorf("engine/openai: no choices returned")
	}

	return engine.Response{
		Content:          resp.Choices[0].Message.Content,
		ReasoningContent: resp.Choices[0].Message.ReasoningContent,
		TokensUsed:       resp.Usage.TotalTokens,
	}, nil
}

// ExecuteStream streams the completion, invoking cb per delta chunk and
// falling back to a synchronous call when streaming cannot start.
func (c *Client) ExecuteStream(ctx context.Context, req engine.Request, cb engine.StreamCallback) (engine.Response, error) {
	if cb == nil {
		return c.Execute(ctx, req)
	}
	if len(req.Messages) == 0 {
		return engine.Response{}, fmt.Errorf("engine/openai: no messages to send")
	}
	r := c.buildRequest(req, true)

	stream, err := c.client.CreateChatCompletionStream(ctx, r)
	if err != nil {
		clientLog.Printf("stream creation failed, falling back to sync: %v", err)
		return c.Execute(ctx, req)
	}
	defer stream.Close()

	var sb, reasoningSB strings.Builder
	for {
		chunkResp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if sb.Len() > 0 {
				clientLog.Printf("stream interrupted after %d chars: %v", sb.Len(), err)
				break
			}
			return engine.Response{}, fmt.Errorf("engine/openai: stream recv: %w", err)
		}
		if len(chunkResp.Choices) == 0 {
			continue
		}
		if rc := chunkResp.Choices[0].Delta.ReasoningContent; rc != "" {
			reasoningSB.WriteString(rc)
			cb(engine.StreamChunk{ReasoningDelta: rc})
		}
		if delta := chunkResp.Choices[0].Delta.Content; delta != "" {
			sb.WriteString(delta)
			cb(engine.StreamChunk{Delta: delta})
		}
	}
	cb(engine.StreamChunk{Done: true})

	return engine.Response{Content: sb.String(), ReasoningContent: reasoningSB.String()}, nil
}
