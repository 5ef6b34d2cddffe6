// Package streaming turns an LLM fragment sequence into a server-push event
// stream: sanitized token events, a single terminal done event, and optional
// heartbeat and progress decoration.
package streaming

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/meditrack-ai/platform/pkg/analysis"
	"github.com/meditrack-ai/platform/pkg/llm"
)

// DefaultHeartbeatInterval keeps intermediary proxies from closing an idle
// connection.
const DefaultHeartbeatInterval = 15 * time.Second

// tokenMaxLen bounds a single sanitized stream fragment.
const tokenMaxLen = 1000

// Event is one server-push message. A comment-only event (heartbeat) carries
// no data payload and never counts toward stream completion.
type Event struct {
	Token      string `json:"token,omitempty"`
	Error      string `json:"error,omitempty"`
	Done       bool   `json:"done"`
	Progress   int    `json:"progress,omitempty"`
	Step       int    `json:"step,omitempty"`
	TotalSteps int    `json:"total_steps,omitempty"`

	comment string
}

// Heartbeat builds a comment-only keep-alive event.
func Heartbeat() Event {
	return Event{comment: "heartbeat"}
}

func (e Event) IsHeartbeat() bool { return e.comment != "" }

// Encode renders the event in SSE wire format: "data: {json}\n\n" for data
// events, ": <comment>\n\n" for heartbeats.
func (e Event) Encode() []byte {
	if e.comment != "" {
		return []byte(fmt.Sprintf(": %s\n\n", e.comment))
	}
	payload, err := json.Marshal(e)
	if err != nil {
		payload = []byte(`{"error":"encoding failure","done":true}`)
	}
	return []byte(fmt.Sprintf("data: %s\n\n", payload))
}

// Pipeline consumes fragments and emits the per-fragment event contract:
// {token, done:false} per fragment, then exactly one {done:true}. An in-stream
// failure becomes {error, done:true}; nothing propagates as a fault.
func Pipeline(ctx context.Context, fragments <-chan llm.Fragment) <-chan Event {
	events := make(chan Event)

	go func() {
		defer close(events)

		for fragment := range fragments {
			if fragment.Err != nil {
				emit(ctx, events, Event{Error: fragment.Err.Error(), Done: true})
				return
			}

			token := analysis.Sanitize(fragment.Text, tokenMaxLen)
			if token == "" {
				continue
			}
			if !emit(ctx, events, Event{Token: token}) {
				return
			}
		}

		emit(ctx, events, Event{Done: true})
	}()

	return events
}

func emit(ctx context.Context, events chan<- Event, ev Event) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// WithHeartbeat interleaves a comment-only event whenever no data event has
// been emitted for the given interval. Cancelling ctx releases the decorator
// even when the consumer has stopped reading.
func WithHeartbeat(ctx context.Context, events <-chan Event, interval time.Duration) <-chan Event {
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}

	out := make(chan Event)
	go func() {
		defer close(out)

		timer := time.NewTimer(interval)
		defer timer.Stop()

		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				if !emit(ctx, out, ev) {
					return
				}
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(interval)
			case <-timer.C:
				if !emit(ctx, out, Heartbeat()) {
					return
				}
				timer.Reset(interval)
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// WithProgress attaches a monotone step counter and a percentage to data
// events. The percentage is capped at 99 until the terminal event, which is
// forced to 100. Cancelling ctx releases the decorator even when the consumer
// has stopped reading.
func WithProgress(ctx context.Context, events <-chan Event, totalSteps int) <-chan Event {
	if totalSteps <= 0 {
		totalSteps = 5
	}

	out := make(chan Event)
	go func() {
		defer close(out)

		step := 0
		for ev := range events {
			if ev.IsHeartbeat() {
				if !emit(ctx, out, ev) {
					return
				}
				continue
			}

			if ev.Done {
				ev.Progress = 100
			} else {
				step++
				progress := step * 100 / totalSteps
				if progress > 99 {
					progress = 99
				}
				ev.Progress = progress
				ev.Step = step
				ev.TotalSteps = totalSteps
			}
			if !emit(ctx, out, ev) {
				return
			}
		}
	}()
	return out
}
