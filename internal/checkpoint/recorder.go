package checkpoint

import (
	"log/slog"
	"sync"
	"time"

	"github.com/IshaanNene/wikiscrape/internal/types"
)

// Recorder serializes outcome appends through a single goroutine so workers
// never contend on the log.
type Recorder struct {
	log    OutcomeLog
	runID  string
	logger *slog.Logger

	mu      sync.RWMutex
	closed  bool
	entries chan types.OutcomeEntry
	done    chan struct{}

	// written by the writer goroutine, read after done is closed
	appended int
	firstErr error
}

// NewRecorder starts the writer goroutine. buffer sizes the completion channel.
func NewRecorder(log OutcomeLog, runID string, buffer int, logger *slog.Logger) *Recorder {
	if buffer < 1 {
		buffer = 1
	}
	r := &Recorder{
		log:     log,
		runID:   runID,
		logger:  logger.With("component", "recorder"),
		entries: make(chan types.OutcomeEntry, buffer),
		done:    make(chan struct{}),
	}
	go r.run()
	return r
}

func (r *Recorder) run() {
	defer close(r.done)
	for e := range r.entries {
		if err := r.log.Append(e); err != nil {
			r.logger.Error("failed to record outcome", "url", e.URL, "outcome", e.Outcome, "error", err)
			if r.firstErr == nil {
				r.firstErr = err
			}
			continue
		}
		r.appended++
	}
}

// Record queues an outcome for url. cause, if non-nil, is stored as the
// entry's error text. Calls after Close are dropped.
func (r *Recorder) Record(url string, outcome types.Outcome, cause error) {
	e := types.OutcomeEntry{
		URL:       url,
		Outcome:   outcome,
		Timestamp: time.Now().UTC(),
		RunID:     r.runID,
	}
	if cause != nil {
		e.Error = cause.Error()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.logger.Warn("outcome dropped after recorder closed", "url", url, "outcome", outcome)
		return
	}
	r.entries <- e
}

// Close drains pending entries, closes the log and returns the first
// append error, if any.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		<-r.done
		return r.firstErr
	}
	r.closed = true
	close(r.entries)
	r.mu.Unlock()

	<-r.done
	if err := r.log.Close(); err != nil && r.firstErr == nil {
		r.firstErr = err
	}
	r.logger.Debug("recorder flushed", "appended", r.appended)
	return r.firstErr
}
