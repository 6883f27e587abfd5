package engine

import "github.com/IshaanNene/wikiscrape/internal/observability"

// RegisterMetrics exposes the runner's counters through m.
func (r *Runner) RegisterMetrics(m *observability.Metrics) {
	s := r.stats
	m.Register("runner_state", "Runner state: 0 idle, 1 discovering, 2 extracting, 3 done, 4 failed",
		observability.Gauge, func() int64 { return int64(r.state.Load()) })
	m.Register("articles_total", "Article URLs in the frontier", observability.Gauge, s.Total.Load)
	m.Register("articles_already_complete", "Articles completed by earlier runs", observability.Gauge, s.AlreadyComplete.Load)
	m.Register("articles_attempted_total", "Articles attempted this run", observability.Counter, s.Attempted.Load)
	m.Register("articles_saved_total", "Articles written to storage", observability.Counter, s.Succeeded.Load)
	m.Register("articles_skipped_total", "Articles without extractable content", observability.Counter, s.Skipped.Load)
	m.Register("articles_failed_total", "Articles that failed to fetch, parse or store", observability.Counter, s.Failed.Load)
	m.Register("storage_faults_total", "Storage write failures", observability.Counter, s.StorageFaults.Load)
}
