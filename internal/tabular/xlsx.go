package tabular

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// xlsxReader loads the first worksheet of an .xlsx workbook. The first row
// is the header. Dates stored as serial numbers stay numeric.
type xlsxReader struct{}

func init() {
	RegisterReader(xlsxReader{})
}

func (xlsxReader) CanRead(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".xlsx")
}

func (xlsxReader) Read(file string, opt Options) (*Table, error) {
	zr, err := zip.OpenReader(file)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer zr.Close()

	sheetPath := firstSheetPath(
		readZipFile(&zr.Reader, "xl/workbook.xml"),
		readZipFile(&zr.Reader, "xl/_rels/workbook.xml.rels"))
	sheetXML := readZipFile(&zr.Reader, sheetPath)
	if sheetXML == nil {
		return nil, fmt.Errorf("worksheet %s not found", sheetPath)
	}
	shared := parseSharedStrings(readZipFile(&zr.Reader, "xl/sharedStrings.xml"))

	rr := newSheetRowReader(sheetXML, shared)
	header, ok := rr.Next()
	if !ok || len(header) == 0 {
		return nil, errors.New("empty worksheet: no header row")
	}
	// trailing blank header cells are formatting, not columns
	for len(header) > 0 && strings.TrimSpace(header[len(header)-1]) == "" {
		header = header[:len(header)-1]
	}
	ncol := len(header)
	var records [][]string
	for {
		if opt.MaxRows > 0 && len(records) >= opt.MaxRows {
			break
		}
		row, ok := rr.Next()
		if !ok {
			break
		}
		for len(row) > ncol && strings.TrimSpace(row[len(row)-1]) == "" {
			row = row[:len(row)-1]
		}
		if len(row) > ncol {
			return nil, fmt.Errorf("row %d: expected %d fields, saw %d", len(records)+1, ncol, len(row))
		}
		records = append(records, row)
	}
	if err := rr.Err(); err != nil {
		return nil, fmt.Errorf("read worksheet: %w", err)
	}
	return FromRecords(TableName(file), header, records, opt), nil
}

// firstSheetPath resolves sheetId 1 (or the first listed sheet) through the
// workbook relationships, defaulting to xl/worksheets/sheet1.xml.
func firstSheetPath(workbookXML, relsXML []byte) string {
	const fallback = "xl/worksheets/sheet1.xml"
	sheets := parseWorkbook(workbookXML)
	if len(sheets) == 0 {
		return fallback
	}
	rid := sheets[0].RID
	for _, s := range sheets {
		if s.SheetID == 1 {
			rid = s.RID
			break
		}
	}
	if target, ok := parseRelationships(relsXML)[rid]; ok {
		return normalizeRelPath(target)
	}
	return fallback
}

type wbSheet struct {
	Name    string
	SheetID int
	RID     string
}

func parseWorkbook(data []byte) []wbSheet {
	var sheets []wbSheet
	eachStart(data, func(se xml.StartElement) {
		if se.Name.Local != "sheet" {
			return
		}
		var s wbSheet
		for _, a := range se.Attr {
			switch a.Name.Local {
			case "name":
				s.Name = a.Value
			case "sheetId":
				s.SheetID = atoiSafe(a.Value)
			case "id":
				s.RID = a.Value // r: namespace
			}
		}
		sheets = append(sheets, s)
	})
	return sheets
}

// parseRelationships returns r:id → Target.
func parseRelationships(data []byte) map[string]string {
	out := map[string]string{}
	eachStart(data, func(se xml.StartElement) {
		if se.Name.Local != "Relationship" {
			return
		}
		var id, target string
		for _, a := range se.Attr {
			switch a.Name.Local {
			case "Id":
				id = a.Value
			case "Target":
				target = a.Value
			}
		}
		if id != "" && target != "" {
			out[id] = target
		}
	})
	return out
}

func eachStart(data []byte, fn func(xml.StartElement)) {
	if len(data) == 0 {
		return
	}
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err != nil {
			return
		}
		if se, ok := tok.(xml.StartElement); ok {
			fn(se)
		}
	}
}

func readZipFile(zr *zip.Reader, name string) []byte {
	for _, f := range zr.File {
		if f.Name == name {
			rc, err := f.Open()
			if err != nil {
				return nil
			}
			defer rc.Close()
			b, _ := io.ReadAll(rc)
			return b
		}
	}
	return nil
}

func parseSharedStrings(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	dec := xml.NewDecoder(bytes.NewReader(data))
	var out []string
	var buf strings.Builder
	inT := false
	for {
		tok, err := dec.Token()
		if err != nil {
			return out
		}
		switch se := tok.(type) {
		case xml.StartElement:
			switch se.Name.Local {
			case "si":
				buf.Reset()
			case "t":
				inT = true
			}
		case xml.EndElement:
			switch se.Name.Local {
			case "t":
				inT = false
			case "si":
				out = append(out, buf.String())
				buf.Reset()
			}
		case xml.CharData:
			if inT {
				buf.Write(se)
			}
		}
	}
}

type sheetRowReader struct {
	dec    *xml.Decoder
	shared []string
	inRow  bool
	curRow []string
	maxCol int
	err    error
}

func newSheetRowReader(data []byte, shared []string) *sheetRowReader {
	return &sheetRowReader{dec: xml.NewDecoder(bytes.NewReader(data)), shared: shared}
}

// Err returns the first decode error other than end of input.
func (r *sheetRowReader) Err() error { return r.err }

// Next returns the next row, padded to its widest referenced cell.
func (r *sheetRowReader) Next() ([]string, bool) {
	for {
		tok, err := r.dec.Token()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				r.err = err
			}
			return nil, false
		}
		switch se := tok.(type) {
		case xml.StartElement:
			if se.Name.Local == "row" {
				r.inRow = true
				r.curRow = nil
				r.maxCol = 0
			}
			if r.inRow && se.Name.Local == "c" {
				var ref, typ string
				for _, a := range se.Attr {
					switch a.Name.Local {
					case "r":
						ref = a.Value
					case "t":
						typ = a.Value
					}
				}
				idx := colIndexFromRef(ref)
				if idx < 0 {
					idx = len(r.curRow)
				}
				if idx+1 > r.maxCol {
					r.maxCol = idx + 1
				}
				val := r.readCellValue(typ)
				if len(r.curRow) <= idx {
					tmp := make([]string, idx+1)
					copy(tmp, r.curRow)
					r.curRow = tmp
				}
				r.curRow[idx] = val
			}
		case xml.EndElement:
			if se.Name.Local == "row" {
				if len(r.curRow) < r.maxCol {
					tmp := make([]string, r.maxCol)
					copy(tmp, r.curRow)
					r.curRow = tmp
				}
				r.inRow = false
				return r.curRow, true
			}
		}
	}
}

// readCellValue consumes tokens up to </c>, capturing <v> or inline <is><t>.
func (r *sheetRowReader) readCellValue(typ string) string {
	var val string
	for {
		tok, err := r.dec.Token()
		if err != nil {
			return val
		}
		switch se := tok.(type) {
		case xml.StartElement:
			if se.Name.Local == "v" || se.Name.Local == "t" {
				var sb strings.Builder
				for {
					tk, er := r.dec.Token()
					if er != nil {
						break
					}
					if ed, ok := tk.(xml.EndElement); ok && (ed.Name.Local == "v" || ed.Name.Local == "t") {
						break
					}
					if ch, ok := tk.(xml.CharData); ok {
						sb.Write(ch)
					}
				}
				val = sb.String()
			}
		case xml.EndElement:
			if se.Name.Local == "c" {
				if typ == "s" {
					idx := atoiSafe(val)
					if idx >= 0 && idx < len(r.shared) {
						return r.shared[idx]
					}
					return ""
				}
				return val
			}
		}
	}
}

// colIndexFromRef maps a cell reference like "C12" to a 0-based column.
func colIndexFromRef(ref string) int {
	i := 0
	for i < len(ref) && (ref[i] >= 'A' && ref[i] <= 'Z' || ref[i] >= 'a' && ref[i] <= 'z') {
		i++
	}
	letters := strings.ToUpper(ref[:i])
	idx := 0
	for j := 0; j < len(letters); j++ {
		idx = idx*26 + int(letters[j]-'A'+1)
	}
	return idx - 1
}

func atoiSafe(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int(c-'0')
	}
	return n
}

// normalizeRelPath converts relationship targets to zip entry names, which
// never carry a leading slash.
func normalizeRelPath(rel string) string {
	rel = strings.TrimPrefix(rel, "/")
	if strings.HasPrefix(rel, "xl/") {
		return rel
	}
	return path.Join("xl", rel)
}
