package llm

import (
	"context"
	"errors"
	"net/http"
	"testing"
)

func TestStreamDeliversFragments(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte("data: {\"id\":\"meta-only\"}\n"))
		w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n"))
		w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n"))
		w.Write([]byte("data: [DONE]\n"))
	}, nil)

	fragments, err := client.Stream(context.Background(), []Message{{Role: "user", Content: "hi"}}, 0.7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got []string
	for fragment := range fragments {
		if fragment.Err != nil {
			t.Fatalf("unexpected in-band error: %v", fragment.Err)
		}
		got = append(got, fragment.Text)
	}

	if len(got) != 2 || got[0] != "Hel" || got[1] != "lo" {
		t.Fatalf("expected [Hel lo], got %v", got)
	}
}

func TestStreamSkipsEmptyDeltas(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("data: {\"choices\":[{\"delta\":{\"role\":\"assistant\"}}]}\n"))
		w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"only\"}}]}\n"))
		w.Write([]byte("data: [DONE]\n"))
	}, nil)

	fragments, err := client.Stream(context.Background(), []Message{{Role: "user", Content: "hi"}}, 0.7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got []string
	for fragment := range fragments {
		got = append(got, fragment.Text)
	}
	if len(got) != 1 || got[0] != "only" {
		t.Fatalf("expected single fragment, got %v", got)
	}
}

func TestStreamPreStreamFailure(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}, nil)

	_, err := client.Stream(context.Background(), []Message{{Role: "user", Content: "hi"}}, 0.7)
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited before first fragment, got %v", err)
	}
}

func TestStreamCancellationStopsConsumption(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"first\"}}]}\n"))
		w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"second\"}}]}\n"))
		w.Write([]byte("data: [DONE]\n"))
	}, nil)

	fragments, err := client.Stream(ctx, []Message{{Role: "user", Content: "hi"}}, 0.7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	first := <-fragments
	if first.Text != "first" {
		t.Fatalf("expected first fragment, got %+v", first)
	}
	cancel()

	// The channel must close promptly after cancellation.
	for range fragments {
	}
}
