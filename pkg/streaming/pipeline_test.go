package streaming

import (
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/meditrack-ai/platform/pkg/common/logger"
	"github.com/meditrack-ai/platform/pkg/llm"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

func collect(t *testing.T, events <-chan Event) []Event {
	t.Helper()
	var out []Event
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev, open := <-events:
			if !open {
				return out
			}
			out = append(out, ev)
		case <-deadline:
			t.Fatalf("timed out waiting for events, got %d so far", len(out))
		}
	}
}

func TestPipelineTokensThenDone(t *testing.T) {
	fragments := make(chan llm.Fragment, 2)
	fragments <- llm.Fragment{Text: "Hel"}
	fragments <- llm.Fragment{Text: "lo"}
	close(fragments)

	events := collect(t, Pipeline(context.Background(), fragments))

	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d: %+v", len(events), events)
	}
	if events[0].Token != "Hel" || events[0].Done {
		t.Fatalf("unexpected first event: %+v", events[0])
	}
	if events[1].Token != "lo" || events[1].Done {
		t.Fatalf("unexpected second event: %+v", events[1])
	}
	if !events[2].Done || events[2].Token != "" || events[2].Error != "" {
		t.Fatalf("unexpected terminal event: %+v", events[2])
	}
}

func TestPipelineSkipsEmptyAndSanitizes(t *testing.T) {
	fragments := make(chan llm.Fragment, 3)
	fragments <- llm.Fragment{Text: "   "}
	fragments <- llm.Fragment{Text: "<b>bold</b> text"}
	fragments <- llm.Fragment{Text: ""}
	close(fragments)

	events := collect(t, Pipeline(context.Background(), fragments))

	if len(events) != 2 {
		t.Fatalf("expected token + done, got %+v", events)
	}
	if events[0].Token != "bold text" {
		t.Fatalf("expected sanitized token, got %q", events[0].Token)
	}
}

func TestPipelineErrorBecomesTerminalEvent(t *testing.T) {
	fragments := make(chan llm.Fragment, 2)
	fragments <- llm.Fragment{Text: "partial"}
	fragments <- llm.Fragment{Err: errors.New("upstream reset")}
	close(fragments)

	events := collect(t, Pipeline(context.Background(), fragments))

	if len(events) != 2 {
		t.Fatalf("expected token + error event, got %+v", events)
	}
	last := events[len(events)-1]
	if !last.Done || last.Error != "upstream reset" {
		t.Fatalf("unexpected terminal event: %+v", last)
	}
}

func TestPipelineContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	fragments := make(chan llm.Fragment)
	events := Pipeline(ctx, fragments)

	cancel()
	close(fragments)

	select {
	case _, open := <-events:
		if open {
			// A terminal event raced the cancellation; the channel must still
			// close afterwards.
			collect(t, events)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("events channel not closed after cancellation")
	}
}

func TestWithHeartbeatInterleavesOnIdle(t *testing.T) {
	source := make(chan Event)
	decorated := WithHeartbeat(context.Background(), source, 20*time.Millisecond)

	// No data for a while: a heartbeat must arrive.
	select {
	case ev := <-decorated:
		if !ev.IsHeartbeat() {
			t.Fatalf("expected heartbeat, got %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no heartbeat on idle stream")
	}

	source <- Event{Token: "hi"}
	ev := <-decorated
	if ev.IsHeartbeat() || ev.Token != "hi" {
		t.Fatalf("data event not forwarded: %+v", ev)
	}

	close(source)
	if _, open := <-decorated; open {
		t.Fatal("decorated channel must close with the source")
	}
}

func TestWithProgressCapsAndCompletes(t *testing.T) {
	source := make(chan Event, 8)
	for i := 0; i < 6; i++ {
		source <- Event{Token: "t"}
	}
	source <- Event{Done: true}
	close(source)

	events := collect(t, WithProgress(context.Background(), source, 5))

	if len(events) != 7 {
		t.Fatalf("expected 7 events, got %d", len(events))
	}
	for i, ev := range events[:6] {
		if ev.Step != i+1 {
			t.Fatalf("event %d: step %d", i, ev.Step)
		}
		if ev.Progress > 99 {
			t.Fatalf("event %d: progress %d exceeds pre-completion cap", i, ev.Progress)
		}
	}
	if events[5].Progress != 99 {
		t.Fatalf("step past totalSteps must hold at 99, got %d", events[5].Progress)
	}
	terminal := events[6]
	if !terminal.Done || terminal.Progress != 100 {
		t.Fatalf("terminal event must carry progress 100: %+v", terminal)
	}
}

// drainUntilClosed verifies the decorated channel closes even though the
// consumer stopped reading before cancellation, as happens when a client
// disconnects mid-stream.
func drainUntilClosed(t *testing.T, events <-chan Event) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, open := <-events:
			if !open {
				return
			}
		case <-deadline:
			t.Fatal("decorator did not release after cancellation")
		}
	}
}

func TestWithHeartbeatReleasesAbandonedConsumer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	source := make(chan Event, 1)
	source <- Event{Token: "pending"}
	decorated := WithHeartbeat(ctx, source, time.Minute)

	// Let the forward block on the unread send, then cancel as a disconnect
	// teardown would.
	time.Sleep(10 * time.Millisecond)
	cancel()

	drainUntilClosed(t, decorated)
}

func TestWithProgressReleasesAbandonedConsumer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	source := make(chan Event, 1)
	source <- Event{Token: "pending"}
	decorated := WithProgress(ctx, source, 5)

	time.Sleep(10 * time.Millisecond)
	cancel()

	drainUntilClosed(t, decorated)
}

func TestEventEncode(t *testing.T) {
	data := string(Event{Token: "hi"}.Encode())
	if !strings.HasPrefix(data, "data: ") || !strings.HasSuffix(data, "\n\n") {
		t.Fatalf("bad data framing: %q", data)
	}
	if !strings.Contains(data, `"token":"hi"`) || !strings.Contains(data, `"done":false`) {
		t.Fatalf("bad payload: %q", data)
	}

	hb := string(Heartbeat().Encode())
	if hb != ": heartbeat\n\n" {
		t.Fatalf("bad heartbeat framing: %q", hb)
	}
}

func TestServeSSE(t *testing.T) {
	events := make(chan Event, 3)
	events <- Event{Token: "Hel"}
	events <- Heartbeat()
	events <- Event{Done: true}
	close(events)

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/stream", nil)

	ServeSSE(w, r, events)

	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}
	body := w.Body.String()
	if !strings.Contains(body, `data: {"token":"Hel","done":false}`) {
		t.Fatalf("token event missing: %q", body)
	}
	if !strings.Contains(body, ": heartbeat\n\n") {
		t.Fatalf("heartbeat missing: %q", body)
	}
	if !strings.Contains(body, `"done":true`) {
		t.Fatalf("terminal event missing: %q", body)
	}
}
