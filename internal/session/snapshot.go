package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/insightdb-cli/internal/policy"
	"github.com/KaramelBytes/insightdb-cli/internal/quality"
	"github.com/KaramelBytes/insightdb-cli/internal/schema"
	"github.com/KaramelBytes/insightdb-cli/internal/tabular"
	"github.com/KaramelBytes/insightdb-cli/internal/utils"
)

// ErrUnknownTable is returned for lookups of a table that is not loaded.
var ErrUnknownTable = errors.New("table not found")

// Snapshot is one complete, consistent analysis of a set of tables. It is
// never modified after it is published.
type Snapshot struct {
	ID       uuid.UUID                      `json:"id"`
	LoadedAt time.Time                      `json:"loaded_at"`
	Sources  []string                       `json:"sources"`
	Store    *tabular.Store                 `json:"-"`
	Schemas  map[string]*schema.TableSchema `json:"schemas"`
	Policy   policy.Policy                  `json:"policy"`
	Metrics  map[string]*quality.Metrics    `json:"metrics"`
}

// Summary aggregates the dashboard numbers for this snapshot.
func (s *Snapshot) Summary() quality.Summary {
	return quality.Summarize(s.Metrics, s.Store)
}

// TableView is everything known about one table.
type TableView struct {
	Table   *tabular.Table
	Schema  *schema.TableSchema
	Metrics *quality.Metrics
}

func (s *Snapshot) Table(name string) (TableView, error) {
	t, ok := s.Store.Table(name)
	if !ok {
		return TableView{}, fmt.Errorf("%w: %s", ErrUnknownTable, name)
	}
	return TableView{Table: t, Schema: s.Schemas[name], Metrics: s.Metrics[name]}, nil
}

// TrustScores maps table name to trust score.
func (s *Snapshot) TrustScores() map[string]float64 {
	out := make(map[string]float64, len(s.Metrics))
	for n, m := range s.Metrics {
		out[n] = m.TrustScore
	}
	return out
}

type snapshotFile struct {
	*Snapshot
	Summary quality.Summary `json:"summary"`
}

// Save writes the snapshot, with its summary, as indented JSON. Table
// contents are not included.
func (s *Snapshot) Save(path string) error {
	if err := utils.WriteJSON(path, snapshotFile{Snapshot: s, Summary: s.Summary()}); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}
