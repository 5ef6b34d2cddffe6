package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/meditrack-ai/platform/pkg/common/logger"
)

// Fragment is one incremental piece of generated text. A Fragment with Err
// set is terminal: the channel closes immediately after it.
type Fragment struct {
	Text string
	Err  error
}

// Stream opens a token stream. Errors before the first fragment are returned
// directly; failures after that are delivered in-band as a terminal Fragment
// so the consumer's range loop ends cleanly. Cancelling ctx closes the
// upstream connection.
func (c *Client) Stream(ctx context.Context, messages []Message, temperature float64) (<-chan Fragment, error) {
	payload := map[string]interface{}{
		"model":       c.model,
		"messages":    messages,
		"temperature": temperature,
		"stream":      true,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal stream request: %w", err)
	}

	resp, err := c.post(ctx, body)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		resp.Body.Close()
		return nil, ErrRateLimited
	case http.StatusServiceUnavailable:
		resp.Body.Close()
		return nil, ErrUnavailable
	case http.StatusForbidden:
		resp.Body.Close()
		return nil, ErrAuthFailed
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, &TransportError{Status: resp.StatusCode}
	}

	fragments := make(chan Fragment)
	go func() {
		defer close(fragments)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			chunk := strings.TrimPrefix(line, "data: ")
			if chunk == "[DONE]" {
				return
			}

			text, ok := parseStreamChunk([]byte(chunk))
			if !ok {
				continue
			}
			if text == "" {
				continue
			}

			select {
			case fragments <- Fragment{Text: text}:
			case <-ctx.Done():
				return
			}
		}

		if err := scanner.Err(); err != nil && ctx.Err() == nil {
			logger.WithComponent("llm").WithError(err).Warn("stream terminated early")
			select {
			case fragments <- Fragment{Err: &TransportError{Err: err}}:
			case <-ctx.Done():
			}
		}
	}()

	return fragments, nil
}

// parseStreamChunk extracts delta content from one SSE payload. Payloads
// without a choices array are provider metadata and are skipped, not errors.
func parseStreamChunk(chunk []byte) (string, bool) {
	if !bytes.Contains(chunk, []byte(`"choices"`)) {
		return "", false
	}
	var parsed struct {
		Choices []struct {
			Delta struct {
				Content string `json:"content"`
			} `json:"delta"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(chunk, &parsed); err != nil {
		return "", false
	}
	if len(parsed.Choices) == 0 {
		return "", false
	}
	return parsed.Choices[0].Delta.Content, true
}
