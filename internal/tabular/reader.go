package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Reader turns one file into one table.
type Reader interface {
	CanRead(filename string) bool
	Read(path string, opt Options) (*Table, error)
}

var readers []Reader

// RegisterReader adds a reader to the registry consulted by LoadDir.
func RegisterReader(r Reader) {
	readers = append(readers, r)
}

func readerFor(filename string) Reader {
	for _, r := range readers {
		if r.CanRead(filename) {
			return r
		}
	}
	return nil
}

func init() {
	RegisterReader(delimitedReader{})
}

// TableName derives a table name from a file path (extension stripped).
func TableName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

type delimitedReader struct{}

func (delimitedReader) CanRead(filename string) bool {
	name := strings.ToLower(filename)
	return strings.HasSuffix(name, ".csv") || strings.HasSuffix(name, ".tsv")
}

// Read parses a delimited file. Short rows are padded with nulls; a row wider
// than the header or a quoting error makes the whole file malformed.
func (delimitedReader) Read(path string, opt Options) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(path)
	}
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.Comma = delim

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty file: no header row")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	ncol := len(header)
	var records [][]string
	for {
		if opt.MaxRows > 0 && len(records) >= opt.MaxRows {
			break
		}
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", len(records)+1, err)
		}
		if len(rec) > ncol {
			return nil, fmt.Errorf("row %d: expected %d fields, saw %d", len(records)+1, ncol, len(rec))
		}
		records = append(records, rec)
	}
	return FromRecords(TableName(path), header, records, opt), nil
}

func sniffDelimiter(path string) rune {
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		return '\t'
	}
	return ','
}
