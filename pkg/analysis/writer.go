package analysis

import (
	"context"
	"time"

	"github.com/meditrack-ai/platform/pkg/common/logger"
)

// ReportStore is the durable sink for finished reports.
type ReportStore interface {
	Save(ctx context.Context, report Report) error
}

// EventPublisher pushes best-effort platform events.
type EventPublisher interface {
	PublishEvent(ctx context.Context, eventType, source string, data map[string]interface{}) error
}

// Writer persists finished reports off the response path. Each write uses its
// own bounded context so a slow store can never hold a request transaction
// open; failures are logged and swallowed because the caller already holds a
// valid report.
type Writer struct {
	store    ReportStore
	producer EventPublisher
	queue    chan Report
	done     chan struct{}
}

func NewWriter(store ReportStore, producer EventPublisher, queueSize int) *Writer {
	if queueSize <= 0 {
		queueSize = 64
	}
	w := &Writer{
		store:    store,
		producer: producer,
		queue:    make(chan Report, queueSize),
		done:     make(chan struct{}),
	}
	go w.run()
	return w
}

// Enqueue hands a report to the background worker without blocking. A full
// queue drops the write: the cache still holds the report and the next
// generation re-persists.
func (w *Writer) Enqueue(report Report) bool {
	select {
	case w.queue <- report:
		return true
	default:
		logger.WithComponent("report-writer").
			WithField("report_id", report.ReportID).
			Warn("persistence queue full, dropping report write")
		return false
	}
}

func (w *Writer) run() {
	defer close(w.done)

	for report := range w.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := w.store.Save(ctx, report); err != nil {
			logger.WithComponent("report-writer").WithError(err).
				WithField("report_id", report.ReportID).
				Error("failed to persist analysis report")
			cancel()
			continue
		}

		if w.producer != nil {
			if err := w.producer.PublishEvent(ctx, "analysis.report.generated", "analysis-service", map[string]interface{}{
				"report_id":  report.ReportID,
				"patient_id": report.Patient.ID,
			}); err != nil {
				logger.WithComponent("report-writer").WithError(err).
					Warn("failed to publish report event")
			}
		}
		cancel()
	}
}

// Close stops accepting reports and drains in-flight writes.
func (w *Writer) Close() {
	close(w.queue)
	<-w.done
}
