package tabular

import (
	"fmt"
	"math"
	"strings"
)

// Native column types inferred at load time.
const (
	TypeInt      = "int64"
	TypeFloat    = "float64"
	TypeDatetime = "datetime"
	TypeText     = "text"
	TypeEmpty    = "empty"
)

// IsNumericType reports whether a native type holds numbers.
func IsNumericType(t string) bool { return t == TypeInt || t == TypeFloat }

// Options controls how raw cells become typed values.
type Options struct {
	// Delimiter for delimited files. If 0, chosen from the file extension.
	Delimiter rune
	// DecimalSeparator and ThousandsSeparator; 0 means auto-detect per value.
	DecimalSeparator   rune
	ThousandsSeparator rune
	// NullTokens are cell contents read as missing (compared after trimming).
	NullTokens []string
	// MaxRows limits rows read per file; 0 means unlimited.
	MaxRows int
}

// DefaultOptions mirrors the usual NA markers found in exported CSVs.
func DefaultOptions() Options {
	return Options{
		NullTokens: []string{"", "NA", "N/A", "n/a", "NaN", "nan", "null", "NULL", "None", "#N/A"},
	}
}

func (o Options) nullSet() map[string]struct{} {
	set := make(map[string]struct{}, len(o.NullTokens)+1)
	set[""] = struct{}{}
	for _, t := range o.NullTokens {
		set[strings.TrimSpace(t)] = struct{}{}
	}
	return set
}

// Column is a named, typed sequence of cells.
type Column struct {
	Name   string
	Type   string
	Values []Value
}

// NullCount returns the number of missing cells.
func (c *Column) NullCount() int {
	n := 0
	for _, v := range c.Values {
		if v.IsNull() {
			n++
		}
	}
	return n
}

// DistinctCount returns the number of distinct non-null values.
func (c *Column) DistinctCount() int {
	seen := make(map[any]struct{}, len(c.Values))
	for _, v := range c.Values {
		if v.IsNull() {
			continue
		}
		seen[v.Key()] = struct{}{}
	}
	return len(seen)
}

// Table is an immutable, named set of equally long columns.
type Table struct {
	Name    string
	Columns []*Column
	rows    int
}

// NewTable builds a table from typed columns. All columns must share a length.
func NewTable(name string, cols ...*Column) (*Table, error) {
	rows := -1
	for _, c := range cols {
		if rows >= 0 && len(c.Values) != rows {
			return nil, fmt.Errorf("table %s: column %s has %d rows, expected %d", name, c.Name, len(c.Values), rows)
		}
		rows = len(c.Values)
	}
	if rows < 0 {
		rows = 0
	}
	return &Table{Name: name, Columns: cols, rows: rows}, nil
}

// FromRecords builds a table from a header and raw string records, inferring
// each column's native type the same way file ingestion does.
func FromRecords(name string, header []string, records [][]string, opt Options) *Table {
	names := uniqueHeader(header)
	nulls := opt.nullSet()
	cols := make([]*Column, len(names))
	for j, n := range names {
		raw := make([]string, len(records))
		present := make([]bool, len(records))
		for i, rec := range records {
			if j < len(rec) {
				v := strings.TrimSpace(rec[j])
				if _, isNull := nulls[v]; !isNull {
					raw[i] = v
					present[i] = true
				}
			}
		}
		cols[j] = buildColumn(n, raw, present, opt)
	}
	return &Table{Name: name, Columns: cols, rows: len(records)}
}

// buildColumn infers the native type over present cells and converts them.
func buildColumn(name string, raw []string, present []bool, opt Options) *Column {
	var nonNull, numOK, intOK, timeOK int
	for i, s := range raw {
		if !present[i] {
			continue
		}
		nonNull++
		if f, ok := parseNumeric(s, opt); ok {
			numOK++
			if f == math.Trunc(f) {
				intOK++
			}
			continue
		}
		if _, ok := ParseTime(s); ok {
			timeOK++
		}
	}
	typ := TypeText
	switch {
	case nonNull == 0:
		typ = TypeEmpty
	case numOK == nonNull && intOK == nonNull:
		typ = TypeInt
	case numOK == nonNull:
		typ = TypeFloat
	case timeOK == nonNull:
		typ = TypeDatetime
	}
	vals := make([]Value, len(raw))
	for i, s := range raw {
		if !present[i] {
			continue
		}
		switch typ {
		case TypeInt, TypeFloat:
			f, _ := parseNumeric(s, opt)
			vals[i] = Number(f)
		case TypeDatetime:
			t, _ := ParseTime(s)
			vals[i] = Timestamp(t)
		default:
			vals[i] = Text(s)
		}
	}
	return &Column{Name: name, Type: typ, Values: vals}
}

// uniqueHeader trims names, fills blanks and suffixes duplicates.
func uniqueHeader(header []string) []string {
	out := make([]string, len(header))
	seen := map[string]int{}
	for i, h := range header {
		n := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if n == "" {
			n = fmt.Sprintf("unnamed_%d", i)
		}
		if c, dup := seen[n]; dup {
			seen[n] = c + 1
			n = fmt.Sprintf("%s.%d", n, c+1)
		} else {
			seen[n] = 0
		}
		out[i] = n
	}
	return out
}

// RowCount returns the number of rows.
func (t *Table) RowCount() int { return t.rows }

// CellCount returns rows × columns.
func (t *Table) CellCount() int { return t.rows * len(t.Columns) }

// Column looks up a column by exact name.
func (t *Table) Column(name string) (*Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// Row returns row i as column name → plain value.
func (t *Table) Row(i int) (map[string]any, error) {
	if i < 0 || i >= t.rows {
		return nil, fmt.Errorf("row %d out of range [0,%d)", i, t.rows)
	}
	row := make(map[string]any, len(t.Columns))
	for _, c := range t.Columns {
		row[c.Name] = c.Values[i].Interface()
	}
	return row, nil
}

// Store holds the tables of one dataset snapshot in discovery order.
type Store struct {
	names  []string
	tables map[string]*Table
}

// NewStore builds a store; a later table with the same name replaces an earlier one.
func NewStore(tables ...*Table) *Store {
	s := &Store{tables: make(map[string]*Table, len(tables))}
	for _, t := range tables {
		if _, ok := s.tables[t.Name]; !ok {
			s.names = append(s.names, t.Name)
		}
		s.tables[t.Name] = t
	}
	return s
}

// Merge returns a new store holding s's tables overlaid with other's.
func (s *Store) Merge(other *Store) *Store {
	all := make([]*Table, 0, s.Len()+other.Len())
	for _, n := range s.names {
		all = append(all, s.tables[n])
	}
	for _, n := range other.names {
		all = append(all, other.tables[n])
	}
	return NewStore(all...)
}

// Names returns table names in discovery order.
func (s *Store) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Table looks up a table by name.
func (s *Store) Table(name string) (*Table, bool) {
	t, ok := s.tables[name]
	return t, ok
}

func (s *Store) Len() int { return len(s.names) }

// TotalRows sums row counts over all tables.
func (s *Store) TotalRows() int {
	n := 0
	for _, t := range s.tables {
		n += t.rows
	}
	return n
}
