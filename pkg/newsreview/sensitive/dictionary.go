package sensitive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// ErrUnavailable is returned when no matcher has ever been built and the
// source cannot be read.
var ErrUnavailable = errors.New("sensitive dictionary unavailable")

// Source loads the current set of forbidden terms.
type Source interface {
	GetSensitiveDictionary(ctx context.Context) ([]string, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) ([]string, error)

func (f SourceFunc) GetSensitiveDictionary(ctx context.Context) ([]string, error) {
	return f(ctx)
}

// StaticSource serves a fixed term list.
type StaticSource []string

func (s StaticSource) GetSensitiveDictionary(context.Context) ([]string, error) {
	out := make([]string, len(s))
	copy(out, s)
	return out, nil
}

type snapshot struct {
	matcher  *Matcher
	loadedAt time.Time
}

// Dictionary owns the active Matcher and swaps it atomically on refresh.
type Dictionary struct {
	source Source
	maxAge time.Duration
	now    func() time.Time
	logger *slog.Logger

	current atomic.Pointer[snapshot]
	// refreshMu keeps concurrent refreshes from hammering the source.
	refreshMu sync.Mutex
}

// DictionaryOption configures a Dictionary.
type DictionaryOption func(*Dictionary)

// WithMaxAge makes Matcher reload the dictionary once the active matcher is
// older than d. Zero disables age-based reloads.
func WithMaxAge(d time.Duration) DictionaryOption {
	return func(dict *Dictionary) {
		dict.maxAge = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) DictionaryOption {
	return func(dict *Dictionary) {
		dict.logger = logger
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) DictionaryOption {
	return func(dict *Dictionary) {
		dict.now = now
	}
}

// NewDictionary creates a Dictionary backed by source. Nothing is loaded
// until the first call to Refresh or Matcher.
func NewDictionary(source Source, opts ...DictionaryOption) *Dictionary {
	d := &Dictionary{
		source: source,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With("component", "sensitive-dictionary")
	return d
}

// Refresh loads the terms from the source and replaces the active matcher.
// On failure the previous matcher stays active.
func (d *Dictionary) Refresh(ctx context.Context) (*Matcher, error) {
	d.refreshMu.Lock()
	defer d.refreshMu.Unlock()
	return d.refreshLocked(ctx)
}

func (d *Dictionary) refreshLocked(ctx context.Context) (*Matcher, error) {
	terms, err := d.source.GetSensitiveDictionary(ctx)
	if err != nil {
		return nil, fmt.Errorf("load sensitive dictionary: %w", err)
	}
	m := Build(terms)
	d.current.Store(&snapshot{matcher: m, loadedAt: d.now()})
	d.logger.Info("sensitive dictionary loaded", "terms", m.Len())
	return m, nil
}

// Replace installs a matcher built from terms without consulting the source.
func (d *Dictionary) Replace(terms []string) *Matcher {
	m := Build(terms)
	d.current.Store(&snapshot{matcher: m, loadedAt: d.now()})
	return m
}

// Matcher returns the active matcher, loading it on first use and reloading
// it when older than the configured max age. A stale matcher is served if a
// reload fails.
func (d *Dictionary) Matcher(ctx context.Context) (*Matcher, error) {
	if snap := d.current.Load(); snap != nil && !d.expired(snap) {
		return snap.matcher, nil
	}

	d.refreshMu.Lock()
	defer d.refreshMu.Unlock()

	snap := d.current.Load()
	if snap != nil && !d.expired(snap) {
		return snap.matcher, nil
	}

	m, err := d.refreshLocked(ctx)
	if err == nil {
		return m, nil
	}
	if snap != nil {
		d.logger.Warn("sensitive dictionary reload failed, serving stale matcher",
			"err", err, "loaded_at", snap.loadedAt)
		return snap.matcher, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// LoadedAt returns when the active matcher was built, or the zero time.
func (d *Dictionary) LoadedAt() time.Time {
	if snap := d.current.Load(); snap != nil {
		return snap.loadedAt
	}
	return time.Time{}
}

func (d *Dictionary) expired(snap *snapshot) bool {
	return d.maxAge > 0 && d.now().Sub(snap.loadedAt) >= d.maxAge
}
