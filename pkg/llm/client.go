package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"time"

	"github.com/meditrack-ai/platform/pkg/common/config"
	"github.com/meditrack-ai/platform/pkg/common/logger"
	"golang.org/x/oauth2/clientcredentials"
)

// FallbackResponse is the sentinel returned when all attempts are exhausted
// without a terminal decision. Callers treat it as "no answer", not an error.
const FallbackResponse = "Unable to generate response"

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client issues chat-completion requests against an OpenAI-shaped inference
// endpoint. Batch calls retry per failure class; streams are never retried
// once started.
type Client struct {
	baseURL    string
	model      string
	apiKey     string
	httpClient *http.Client
	maxRetries int
	sleep      func(time.Duration)
}

type Option func(*Client)

// WithHTTPClient replaces the underlying transport, used by tests and by
// callers that need custom TLS or proxy settings.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithSleep replaces the backoff sleeper so tests can record delays instead
// of waiting them out.
func WithSleep(fn func(time.Duration)) Option {
	return func(c *Client) { c.sleep = fn }
}

func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxRetries = n
		}
	}
}

// New builds a client from configuration. When an OAuth2 token URL is set the
// underlying transport obtains bearer tokens via the client-credentials flow
// (enterprise inference gateways); otherwise the static API key is used.
func New(cfg *config.Config, opts ...Option) *Client {
	c := &Client{
		baseURL:    cfg.LLMBaseURL,
		model:      cfg.LLMModelName,
		apiKey:     cfg.LLMAPIKey,
		maxRetries: cfg.LLMMaxRetries,
		sleep:      time.Sleep,
	}
	if c.maxRetries <= 0 {
		c.maxRetries = 3
	}

	if cfg.LLMOAuthTokenURL != "" {
		cc := clientcredentials.Config{
			TokenURL:     cfg.LLMOAuthTokenURL,
			ClientID:     cfg.LLMOAuthClientID,
			ClientSecret: cfg.LLMOAuthClientSec,
		}
		c.httpClient = cc.Client(context.Background())
		c.httpClient.Timeout = cfg.LLMTimeout
		c.apiKey = ""
	} else {
		c.httpClient = newHTTPClient(cfg.LLMTimeout)
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// newHTTPClient tunes the transport for outbound service-to-service calls.
func newHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}

// Complete generates a non-streaming completion.
//
// Retry policy: 429 backs off 2^attempt seconds, 503 backs off a fixed 5s,
// generic transport failures back off a fixed 1s; all share the same attempt
// ceiling. 403 is surfaced immediately.
func (c *Client) Complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	payload := map[string]interface{}{
		"model":       c.model,
		"messages":    []Message{{Role: "user", Content: prompt}},
		"max_tokens":  maxTokens,
		"temperature": temperature,
		"stream":      false,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal completion request: %w", err)
	}

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		resp, err := c.post(ctx, body)
		if err != nil {
			if attempt == c.maxRetries-1 {
				return "", &TransportError{Err: err}
			}
			c.sleep(time.Second)
			continue
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusTooManyRequests:
			if attempt == c.maxRetries-1 {
				return "", ErrRateLimited
			}
			c.sleep(time.Duration(1<<attempt) * time.Second)
			continue
		case http.StatusServiceUnavailable:
			if attempt == c.maxRetries-1 {
				return "", ErrUnavailable
			}
			c.sleep(5 * time.Second)
			continue
		case http.StatusForbidden:
			return "", ErrAuthFailed
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			if attempt == c.maxRetries-1 {
				return "", &TransportError{Status: resp.StatusCode}
			}
			c.sleep(time.Second)
			continue
		}

		if readErr != nil {
			if attempt == c.maxRetries-1 {
				return "", &TransportError{Err: readErr}
			}
			c.sleep(time.Second)
			continue
		}

		return extractCompletionText(respBody)
	}

	logger.WithComponent("llm").Warn("completion attempts exhausted without terminal decision, returning fallback")
	return FallbackResponse, nil
}

func (c *Client) post(ctx context.Context, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return c.httpClient.Do(req)
}

// ResponseFieldOrder is the fixed priority in which alternate provider
// response shapes are attempted. The order mirrors upstream behavior and is
// pinned by tests; changing it can silently mis-parse providers whose
// payloads carry more than one of these fields.
var ResponseFieldOrder = []string{"choices", "generated_text", "text", "response", "content"}

func extractCompletionText(body []byte) (string, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", &MalformedResponseError{}
	}

	for _, field := range ResponseFieldOrder {
		value, ok := raw[field]
		if !ok {
			continue
		}
		if field == "choices" {
			var choices []struct {
				Message struct {
					Content string `json:"content"`
				} `json:"message"`
			}
			if err := json.Unmarshal(value, &choices); err == nil && len(choices) > 0 && choices[0].Message.Content != "" {
				return choices[0].Message.Content, nil
			}
			continue
		}
		var text string
		if err := json.Unmarshal(value, &text); err == nil && text != "" {
			return text, nil
		}
	}

	fields := make([]string, 0, len(raw))
	for k := range raw {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	return "", &MalformedResponseError{Fields: fields}
}
