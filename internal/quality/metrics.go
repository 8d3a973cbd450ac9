package quality

import (
	"math"
	"strconv"
	"strings"

	"github.com/KaramelBytes/insightdb-cli/internal/tabular"
)

// Sub-score keys.
const (
	ScoreIdentifierHealth     = "identifier_health"
	ScoreReferentialIntegrity = "referential_integrity"
	ScoreNumericSanity        = "numeric_sanity"
	ScoreFreshness            = "freshness"
	ScoreCompleteness         = "completeness"
)

// Stage weights of the trust score.
const (
	weightCompleteness = 0.20
	weightIdentifiers  = 0.25
	weightIntegrity    = 0.25
	weightNumeric      = 0.15
	weightFreshness    = 0.15

	maxSequencePenalty = 20.0
	criticalTrustScore = 60.0
)

// Column stats kinds.
const (
	StatsNumeric   = "numeric"
	StatsTimestamp = "timestamp"
)

// ColumnStats summarises one column. Numeric columns always get an entry;
// timestamp columns only when some values could not be parsed.
type ColumnStats struct {
	Kind    string  `json:"kind" yaml:"kind"`
	Mean    float64 `json:"mean" yaml:"mean"`
	Std     float64 `json:"std" yaml:"std"`
	Count   int     `json:"count" yaml:"count"`
	Skipped int     `json:"skipped" yaml:"skipped"`
}

// Metrics is the quality report for one table. Rates and scores are in [0,100].
type Metrics struct {
	Completeness float64                `json:"completeness" yaml:"completeness"`
	Uniqueness   float64                `json:"uniqueness" yaml:"uniqueness"`
	Freshness    float64                `json:"freshness" yaml:"freshness"`
	OrphanRate   float64                `json:"orphan_rate" yaml:"orphan_rate"`
	OutlierRate  float64                `json:"outlier_rate" yaml:"outlier_rate"`
	NegativeRate float64                `json:"negative_rate" yaml:"negative_rate"`
	TrustScore   float64                `json:"trust_score" yaml:"trust_score"`
	SubScores    map[string]float64     `json:"sub_scores" yaml:"sub_scores"`
	Issues       []string               `json:"issues" yaml:"issues"`
	ColumnStats  map[string]ColumnStats `json:"column_stats" yaml:"column_stats"`
}

func newMetrics() *Metrics {
	return &Metrics{
		SubScores:   map[string]float64{},
		Issues:      []string{},
		ColumnStats: map[string]ColumnStats{},
	}
}

func (m *Metrics) issue(s string) { m.Issues = append(m.Issues, s) }

// Summary is the dataset-wide dashboard.
type Summary struct {
	AvgTrustScore float64 `json:"avg_trust_score" yaml:"avg_trust_score"`
	TotalTables   int     `json:"total_tables" yaml:"total_tables"`
	TotalRows     int     `json:"total_rows" yaml:"total_rows"`
}

// Summarize aggregates metrics on demand; nothing is cached.
func Summarize(metrics map[string]*Metrics, store *tabular.Store) Summary {
	var s Summary
	if store != nil {
		s.TotalTables = store.Len()
		s.TotalRows = store.TotalRows()
	}
	if len(metrics) == 0 {
		return s
	}
	sum := 0.0
	for _, m := range metrics {
		sum += m.TrustScore
	}
	s.AvgTrustScore = round2(sum / float64(len(metrics)))
	return s
}

func round2(f float64) float64 { return math.Round(f*100) / 100 }

func clamp(f, lo, hi float64) float64 { return math.Max(lo, math.Min(hi, f)) }

// pct renders a percentage the way issue strings show it: two decimals at
// most, always at least one ("10.0", "6.25").
func pct(f float64) string {
	s := strconv.FormatFloat(round2(f), 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// num renders a policy bound without a trailing ".0" for whole numbers.
func num(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
