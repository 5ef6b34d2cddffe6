package streaming

import (
	"net/http"

	"github.com/meditrack-ai/platform/pkg/common/logger"
)

// ServeSSE writes an event sequence to the response as Server-Sent Events,
// flushing per event. It returns when the event channel closes or the client
// disconnects; the caller's context cancellation is what tears down the
// upstream stream.
func ServeSSE(w http.ResponseWriter, r *http.Request, events <-chan Event) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	for {
		select {
		case ev, open := <-events:
			if !open {
				return
			}
			if _, err := w.Write(ev.Encode()); err != nil {
				logger.WithComponent("streaming").WithError(err).Debug("client write failed")
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}
