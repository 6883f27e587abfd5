package checkpoint

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/wikiscrape/internal/config"
	"github.com/IshaanNene/wikiscrape/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func newTestStore(t *testing.T, backend string) *Store {
	t.Helper()
	cfg := config.DefaultConfig().Checkpoint
	cfg.Dir = t.TempDir()
	cfg.Backend = backend
	s, err := NewStore(cfg, testLogger)
	require.NoError(t, err)
	return s
}

func entry(url string, o types.Outcome) types.OutcomeEntry {
	return types.OutcomeEntry{URL: url, Outcome: o, Timestamp: time.Now().UTC()}
}

func TestFrontierRoundTripSorted(t *testing.T) {
	s := newTestStore(t, "file")
	assert.False(t, s.HasFrontier())

	_, err := s.LoadFrontier()
	assert.ErrorIs(t, err, types.ErrNoFrontier)

	require.NoError(t, s.SaveFrontier([]string{
		"https://bg3.wiki/wiki/Shadowheart",
		"https://bg3.wiki/wiki/Astarion",
		"https://bg3.wiki/wiki/Shadowheart",
	}))
	assert.True(t, s.HasFrontier())

	raw, err := os.ReadFile(s.FrontierPath())
	require.NoError(t, err)
	assert.Equal(t, "https://bg3.wiki/wiki/Astarion\nhttps://bg3.wiki/wiki/Shadowheart\n", string(raw))

	urls, err := s.LoadFrontier()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://bg3.wiki/wiki/Astarion", "https://bg3.wiki/wiki/Shadowheart"}, urls)

	// no temp files are left next to the list
	matches, err := filepath.Glob(filepath.Join(filepath.Dir(s.FrontierPath()), "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestLoadFrontierSkipsBlankLines(t *testing.T) {
	s := newTestStore(t, "file")
	require.NoError(t, os.WriteFile(s.FrontierPath(), []byte("a\n\n  \nb\n"), 0o644))

	urls, err := s.LoadFrontier()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, urls)
}

func TestLogsKeepLatestOutcome(t *testing.T) {
	for _, backend := range []string{"file", "badger"} {
		t.Run(backend, func(t *testing.T) {
			s := newTestStore(t, backend)

			log, err := s.OpenLog()
			require.NoError(t, err)
			require.NoError(t, log.Append(entry("a", types.OutcomeFail)))
			require.NoError(t, log.Append(entry("b", types.OutcomeSkip)))
			require.NoError(t, log.Append(entry("a", types.OutcomeSuccess)))
			require.NoError(t, log.Close())

			// reopen: state survives and new appends land after the old ones
			log, err = s.OpenLog()
			require.NoError(t, err)
			defer log.Close()
			require.NoError(t, log.Append(entry("c", types.OutcomeFail)))

			latest, err := log.Load()
			require.NoError(t, err)
			require.Len(t, latest, 3)
			assert.Equal(t, types.OutcomeSuccess, latest["a"].Outcome)
			assert.Equal(t, types.OutcomeSkip, latest["b"].Outcome)
			assert.Equal(t, types.OutcomeFail, latest["c"].Outcome)
		})
	}
}

func TestFileLogToleratesTornLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "outcomes.jsonl")
	content := `{"url":"a","outcome":"success","timestamp":"2024-01-01T00:00:00Z"}
{"url":"b","outcome":"skip","timestamp":"2024-01-01T00:00:01Z"}
{"url":"c","outco`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	log, err := OpenFileLog(path, testLogger)
	require.NoError(t, err)
	defer log.Close()

	latest, err := log.Load()
	require.NoError(t, err)
	assert.Len(t, latest, 2)
	assert.NotContains(t, latest, "c")
}

func TestFileLogAppendAfterClose(t *testing.T) {
	log, err := OpenFileLog(filepath.Join(t.TempDir(), "outcomes.jsonl"), testLogger)
	require.NoError(t, err)
	require.NoError(t, log.Close())
	require.NoError(t, log.Close())

	err = log.Append(entry("a", types.OutcomeSuccess))
	var se *types.StorageError
	assert.ErrorAs(t, err, &se)
}

func TestResetRemovesState(t *testing.T) {
	s := newTestStore(t, "file")
	require.NoError(t, s.SaveFrontier([]string{"a"}))
	log, err := s.OpenLog()
	require.NoError(t, err)
	require.NoError(t, log.Append(entry("a", types.OutcomeSuccess)))
	require.NoError(t, log.Close())

	require.NoError(t, s.Reset())
	assert.False(t, s.HasFrontier())

	log, err = s.OpenLog()
	require.NoError(t, err)
	defer log.Close()
	latest, err := log.Load()
	require.NoError(t, err)
	assert.Empty(t, latest)
}

func TestRecorderSerializesConcurrentWriters(t *testing.T) {
	s := newTestStore(t, "file")
	log, err := s.OpenLog()
	require.NoError(t, err)

	rec := NewRecorder(log, "run-1", 4, testLogger)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				rec.Record(fmt.Sprintf("u-%d-%d", w, i), types.OutcomeSuccess, nil)
			}
		}(w)
	}
	wg.Wait()
	rec.Record("broken", types.OutcomeFail, errors.New("timeout"))
	require.NoError(t, rec.Close())

	// dropped, not a panic
	rec.Record("late", types.OutcomeSuccess, nil)
	require.NoError(t, rec.Close())

	log, err = s.OpenLog()
	require.NoError(t, err)
	defer log.Close()
	latest, err := log.Load()
	require.NoError(t, err)
	assert.Len(t, latest, 201)
	assert.Equal(t, "timeout", latest["broken"].Error)
	assert.Equal(t, "run-1", latest["broken"].RunID)
	assert.NotContains(t, latest, "late")
}

type failingLog struct{ closed bool }

func (f *failingLog) Append(types.OutcomeEntry) error { return errors.New("disk full") }
func (f *failingLog) Load() (map[string]types.OutcomeEntry, error) {
	return nil, nil
}
func (f *failingLog) Close() error { f.closed = true; return nil }

func TestRecorderReportsAppendFailure(t *testing.T) {
	fl := &failingLog{}
	rec := NewRecorder(fl, "", 1, testLogger)
	rec.Record("a", types.OutcomeSuccess, nil)

	err := rec.Close()
	assert.ErrorContains(t, err, "disk full")
	assert.True(t, fl.closed)
}

func TestIndex(t *testing.T) {
	latest := map[string]types.OutcomeEntry{
		"ok":   entry("ok", types.OutcomeSuccess),
		"skip": entry("skip", types.OutcomeSkip),
		"bad":  entry("bad", types.OutcomeFail),
	}
	urls := []string{"bad", "new", "ok", "skip"}

	retry := NewIndex(latest, true)
	assert.Equal(t, []string{"bad", "new"}, retry.Pending(urls))
	assert.True(t, retry.Complete("ok"))
	assert.True(t, retry.Complete("skip"))
	assert.False(t, retry.Complete("bad"))

	noRetry := NewIndex(latest, false)
	assert.Equal(t, []string{"new"}, noRetry.Pending(urls))

	assert.Equal(t, map[types.Outcome]int{
		types.OutcomeSuccess: 1,
		types.OutcomeSkip:    1,
		types.OutcomeFail:    1,
	}, retry.Counts())

	assert.Equal(t, urls, NewIndex(nil, true).Pending(urls))
}
