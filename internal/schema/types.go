package schema

// Classification is the semantic role inferred for a column.
type Classification string

const (
	Identifier  Classification = "identifier"
	Timestamp   Classification = "timestamp"
	Numeric     Classification = "numeric"
	Categorical Classification = "categorical"
	Other       Classification = "other"
)

// CategoricalLimit is the exclusive upper bound on distinct text values for a
// column to count as categorical.
const CategoricalLimit = 50

// ColumnSchema describes one column of a loaded table.
type ColumnSchema struct {
	Name           string         `json:"name" yaml:"name"`
	RawType        string         `json:"type" yaml:"type"`
	Classification Classification `json:"classification" yaml:"classification"`
	UniqueCount    int            `json:"unique_count" yaml:"unique_count"`
	NullCount      int            `json:"null_count" yaml:"null_count"`
}

// ForeignKey is an identifier column that likely references other tables.
// SuggestedTables is ordered; the first entry is the default target.
type ForeignKey struct {
	Column          string   `json:"column" yaml:"column"`
	SuggestedTables []string `json:"suggested_tables" yaml:"suggested_tables"`
}

// TableSchema is the inferred structure of one table.
type TableSchema struct {
	Name                 string         `json:"name" yaml:"name"`
	RowCount             int            `json:"row_count" yaml:"row_count"`
	Columns              []ColumnSchema `json:"columns" yaml:"columns"`
	PotentialKeys        []string       `json:"potential_keys" yaml:"potential_keys"`
	PotentialForeignKeys []ForeignKey   `json:"potential_foreign_keys" yaml:"potential_foreign_keys"`
}

// ColumnsOf returns the columns with the given classification, in order.
func (s *TableSchema) ColumnsOf(c Classification) []ColumnSchema {
	var out []ColumnSchema
	for _, col := range s.Columns {
		if col.Classification == c {
			out = append(out, col)
		}
	}
	return out
}

// IsKey reports whether column is a potential key.
func (s *TableSchema) IsKey(column string) bool {
	for _, k := range s.PotentialKeys {
		if k == column {
			return true
		}
	}
	return false
}

// PrimaryKey returns the first potential key, if any.
func (s *TableSchema) PrimaryKey() (string, bool) {
	if len(s.PotentialKeys) == 0 {
		return "", false
	}
	return s.PotentialKeys[0], true
}
