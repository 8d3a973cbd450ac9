// Package quality scores loaded tables for trustworthiness. The engine is
// synchronous and stateless: every call recomputes from its inputs.
package quality

import (
	"time"

	"go.uber.org/zap"

	"github.com/KaramelBytes/insightdb-cli/internal/policy"
	"github.com/KaramelBytes/insightdb-cli/internal/schema"
	"github.com/KaramelBytes/insightdb-cli/internal/tabular"
)

// Engine computes Metrics for a whole store in one pass.
type Engine struct {
	// Now is the reference time used for freshness when the dataset has no
	// timestamps at all. Defaults to time.Now.
	Now    func() time.Time
	Logger *zap.Logger
}

func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{Now: time.Now, Logger: logger.Named("quality")}
}

// tableCtx carries the inputs for scoring one table.
type tableCtx struct {
	table   *tabular.Table
	schema  *schema.TableSchema
	store   *tabular.Store
	schemas map[string]*schema.TableSchema
	policy  policy.Policy
	rows    int
	logger  *zap.Logger
}

// Compute returns metrics for every table in store. Missing schemas are
// treated as tables without classified columns; a nil policy means defaults.
func (e *Engine) Compute(store *tabular.Store, schemas map[string]*schema.TableSchema, pol policy.Policy) map[string]*Metrics {
	logger := e.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := e.Now
	if now == nil {
		now = time.Now
	}

	names := store.Names()
	out := make(map[string]*Metrics, len(names))
	globalMax, ok := globalMaxTimestamp(store, schemas)
	if !ok {
		globalMax = now()
	}
	for _, name := range names {
		t, _ := store.Table(name)
		ts := schemas[name]
		if ts == nil {
			ts = &schema.TableSchema{Name: name, RowCount: t.RowCount()}
		}
		tc := &tableCtx{
			table:   t,
			schema:  ts,
			store:   store,
			schemas: schemas,
			policy:  pol,
			rows:    t.RowCount(),
			logger:  logger.With(zap.String("table", name)),
		}
		out[name] = tc.compute(globalMax)
	}
	return out
}

func (tc *tableCtx) compute(globalMax time.Time) *Metrics {
	m := newMetrics()
	if tc.rows == 0 {
		return m
	}

	completeness := tc.completeness(m)
	ids := tc.identifierHealth(m)
	integrity := tc.referentialIntegrity(m)
	sanity := tc.numericSanity(m)
	tc.rareCategories(m)
	tc.patternChecks(m)
	freshness := tc.freshness(m, globalMax)
	penalty := tc.sequencePenalty(m)

	m.SubScores[ScoreCompleteness] = round2(completeness)
	m.SubScores[ScoreIdentifierHealth] = round2(ids)
	m.SubScores[ScoreReferentialIntegrity] = round2(integrity)
	m.SubScores[ScoreNumericSanity] = round2(sanity)
	m.SubScores[ScoreFreshness] = round2(freshness)

	trust := ids*weightIdentifiers +
		integrity*weightIntegrity +
		completeness*weightCompleteness +
		sanity*weightNumeric +
		freshness*weightFreshness
	m.TrustScore = round2(clamp(trust-penalty, 0, 100))
	if m.TrustScore < criticalTrustScore {
		m.issue("Critical: Low overall trust score.")
	}
	return m
}
