package tabular

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"
)

// ErrNoData reports that a load produced no usable tables.
var ErrNoData = errors.New("no tables found")

// LoadDir reads every supported file in dir into a new Store. Files that fail
// to parse are skipped with a warning; the load fails only when nothing usable
// remains.
func LoadDir(dir string, opt Options, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("loader")

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: read directory %s: %v", ErrNoData, dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var tables []*Table
	for _, name := range names {
		r := readerFor(name)
		if r == nil {
			continue
		}
		path := filepath.Join(dir, name)
		t, err := r.Read(path, opt)
		if err != nil {
			logger.Warn("skipping malformed file", zap.String("file", path), zap.Error(err))
			continue
		}
		logger.Debug("loaded table",
			zap.String("table", t.Name),
			zap.Int("rows", t.RowCount()),
			zap.Int("columns", len(t.Columns)))
		tables = append(tables, t)
	}
	if len(tables) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoData, dir)
	}
	logger.Info("dataset loaded", zap.String("dir", dir), zap.Int("tables", len(tables)))
	return NewStore(tables...), nil
}
