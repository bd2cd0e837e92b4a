package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/railcar-dev/railcar/pkg/schema"
)

const (
	defaultRequestTimeout = 5 * time.Minute
	defaultMaxBodySize    = 32 * 1024 * 1024
)

// HTTPClient streams completions from an OpenAI-compatible chat endpoint
// (POST {BaseURL}/chat/completions with "stream": true, server-sent-event
// framing). Model selection: the request's hint wins, then DefaultModel.
type HTTPClient struct {
	BaseURL      string
	APIKey       string
	DefaultModel string
	HTTP         *http.Client
}

// NewHTTPClient creates an HTTPClient with a sane default transport.
func NewHTTPClient(baseURL, apiKey, defaultModel string) *HTTPClient {
	return &HTTPClient{
		BaseURL:      strings.TrimRight(baseURL, "/"),
		APIKey:       apiKey,
		DefaultModel: defaultModel,
		HTTP:         &http.Client{Timeout: defaultRequestTimeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatStreamEvent struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// Stream implements Client.
func (c *HTTPClient) Stream(ctx context.Context, req Request) (<-chan Chunk, error) {
	model := req.ModelHint
	if model == "" {
		model = c.DefaultModel
	}
	if model == "" || c.BaseURL == "" {
		return nil, ErrNoModel
	}

	messages := make([]chatMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.User})

	body, err := json.Marshal(chatRequest{Model: model, Messages: messages, Stream: true})
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeExecution, "marshal chat request").WithCause(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeExecution, "build chat request").WithCause(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if c.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.httpClient().Do(httpReq)
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeExecution, "chat request failed").WithCause(err)
	}
	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		return nil, ErrNoModel
	}
	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		resp.Body.Close()
		return nil, schema.NewErrorf(schema.ErrCodeExecution,
			"chat endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	out := make(chan Chunk, 16)
	go c.consume(resp.Body, out)
	return out, nil
}

// consume parses SSE "data: {...}" lines into chunks until [DONE] or EOF.
func (c *HTTPClient) consume(body io.ReadCloser, out chan<- Chunk) {
	defer close(out)
	defer body.Close()

	scanner := bufio.NewScanner(io.LimitReader(body, defaultMaxBodySize))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" || payload == "[DONE]" {
			if payload == "[DONE]" {
				return
			}
			continue
		}

		var event chatStreamEvent
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			continue // tolerate unknown event shapes
		}
		for _, choice := range event.Choices {
			if choice.Delta.Content != "" {
				out <- Chunk{Text: choice.Delta.Content}
			}
		}
	}

	if err := scanner.Err(); err != nil {
		out <- Chunk{Err: schema.NewError(schema.ErrCodeExecution, "chat stream interrupted").WithCause(err)}
	}
}

func (c *HTTPClient) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return &http.Client{Timeout: defaultRequestTimeout}
}
