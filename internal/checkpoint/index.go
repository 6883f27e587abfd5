package checkpoint

import "github.com/IshaanNene/wikiscrape/internal/types"

// Index answers "does this URL still need work?" from the latest outcomes.
type Index struct {
	latest      map[string]types.OutcomeEntry
	retryFailed bool
}

// NewIndex builds an Index. With retryFailed, URLs whose latest outcome is
// a failure count as pending; otherwise every recorded URL is complete.
func NewIndex(latest map[string]types.OutcomeEntry, retryFailed bool) *Index {
	if latest == nil {
		latest = map[string]types.OutcomeEntry{}
	}
	return &Index{latest: latest, retryFailed: retryFailed}
}

// Complete reports whether url needs no further attempts.
func (x *Index) Complete(url string) bool {
	e, ok := x.latest[url]
	if !ok {
		return false
	}
	if e.Outcome == types.OutcomeFail {
		return !x.retryFailed
	}
	return e.Outcome.Complete()
}

// Pending filters urls down to those still needing work, preserving order.
func (x *Index) Pending(urls []string) []string {
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if !x.Complete(u) {
			out = append(out, u)
		}
	}
	return out
}

// Counts tallies the latest outcome of every recorded URL.
func (x *Index) Counts() map[types.Outcome]int {
	c := make(map[types.Outcome]int, 3)
	for _, e := range x.latest {
		c[e.Outcome]++
	}
	return c
}
