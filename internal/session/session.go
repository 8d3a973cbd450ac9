// Package session owns the active dataset: it loads tables, runs the schema
// analyzer, policy provider and quality engine, and publishes the result as
// an immutable snapshot.
package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/KaramelBytes/insightdb-cli/internal/policy"
	"github.com/KaramelBytes/insightdb-cli/internal/quality"
	"github.com/KaramelBytes/insightdb-cli/internal/schema"
	"github.com/KaramelBytes/insightdb-cli/internal/tabular"
)

// ErrNotLoaded is returned before the first successful load or after Reset.
var ErrNotLoaded = errors.New("no dataset loaded")

type Options struct {
	Load          tabular.Options
	Matcher       schema.TargetMatcher
	Policy        policy.Provider
	PolicyTimeout time.Duration
	// Now overrides the engine clock; nil means time.Now.
	Now func() time.Time
}

// Session is safe for concurrent use. Readers always see either the previous
// or the next complete snapshot, never a partial one.
type Session struct {
	opts    Options
	logger  *zap.Logger
	current atomic.Pointer[Snapshot]
	// writeMu serialises Load/Append so an append always builds on the
	// latest published snapshot.
	writeMu sync.Mutex
}

func New(opts Options, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Load.NullTokens == nil {
		opts.Load.NullTokens = tabular.DefaultOptions().NullTokens
	}
	return &Session{opts: opts, logger: logger.Named("session")}
}

// Load replaces the current dataset with the tables in dir. On failure the
// previous snapshot stays in place.
func (s *Session) Load(ctx context.Context, dir string) (*Snapshot, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	store, err := tabular.LoadDir(dir, s.opts.Load, s.logger)
	if err != nil {
		return nil, err
	}
	snap := s.build(ctx, store, []string{dir})
	s.current.Store(snap)
	return snap, nil
}

// Append loads dir and merges it into the current dataset; tables with the
// same name are replaced. With nothing loaded it behaves like Load.
func (s *Session) Append(ctx context.Context, dir string) (*Snapshot, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	added, err := tabular.LoadDir(dir, s.opts.Load, s.logger)
	if err != nil {
		return nil, err
	}
	store := added
	sources := []string{dir}
	if prev := s.current.Load(); prev != nil {
		store = prev.Store.Merge(added)
		sources = append(append([]string{}, prev.Sources...), dir)
	}
	snap := s.build(ctx, store, sources)
	s.current.Store(snap)
	return snap, nil
}

// Reset drops the current snapshot.
func (s *Session) Reset() {
	s.current.Store(nil)
	s.logger.Debug("session reset")
}

// Current returns the published snapshot.
func (s *Session) Current() (*Snapshot, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, ErrNotLoaded
	}
	return snap, nil
}

// Dashboard aggregates the current snapshot on demand.
func (s *Session) Dashboard() (quality.Summary, error) {
	snap, err := s.Current()
	if err != nil {
		return quality.Summary{}, err
	}
	return snap.Summary(), nil
}

// build computes a complete snapshot off to the side. The policy provider
// is the only blocking step and is bounded by PolicyTimeout.
func (s *Session) build(ctx context.Context, store *tabular.Store, sources []string) *Snapshot {
	start := time.Now()
	schemas := schema.NewAnalyzer(s.opts.Matcher).Analyze(store)
	pol := policy.Resolve(ctx, s.opts.Policy, schemas, s.opts.PolicyTimeout, s.logger)

	engine := quality.NewEngine(s.logger)
	if s.opts.Now != nil {
		engine.Now = s.opts.Now
	}
	metrics := engine.Compute(store, schemas, pol)

	snap := &Snapshot{
		ID:       uuid.New(),
		LoadedAt: time.Now().UTC(),
		Sources:  sources,
		Store:    store,
		Schemas:  schemas,
		Policy:   pol,
		Metrics:  metrics,
	}
	s.logger.Info("dataset analyzed",
		zap.String("snapshot", snap.ID.String()),
		zap.Int("tables", store.Len()),
		zap.Int("rows", store.TotalRows()),
		zap.Duration("elapsed", time.Since(start)))
	return snap
}
