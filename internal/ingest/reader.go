package ingest

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// ErrUnsupportedFormat indicates a file extension we cannot parse.
var ErrUnsupportedFormat = errors.New("ingest: unsupported file format")

// ErrLegacyExcel indicates a binary .xls upload, which excelize cannot read.
var ErrLegacyExcel = errors.New("ingest: legacy .xls is not supported, save the file as .xlsx and retry")

// RawRow is one parsed spreadsheet row keyed by canonical field name.
type RawRow struct {
	Line   int
	Fields map[string]string
}

// ParseFile decodes the uploaded file into rows mapped through the entity's
// header aliases. Supported formats: CSV (comma or semicolon), .xlsx and a
// JSON array of objects.
func ParseFile(entity, filename string, data []byte) ([]RawRow, error) {
	switch {
	case strings.HasSuffix(strings.ToLower(filename), ".csv"):
		return parseCSV(entity, data)
	case strings.HasSuffix(strings.ToLower(filename), ".xlsx"):
		return parseXLSX(entity, data)
	case strings.HasSuffix(strings.ToLower(filename), ".json"):
		return parseJSON(entity, data)
	case strings.HasSuffix(strings.ToLower(filename), ".xls"):
		return nil, fmt.Errorf("%w: %s", ErrLegacyExcel, filename)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filename)
	}
}

func parseCSV(entity string, data []byte) ([]RawRow, error) {
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	if !utf8.Valid(data) {
		// Legacy exports arrive as ISO-8859-1.
		decoded, _, err := transform.Bytes(charmap.ISO8859_1.NewDecoder(), data)
		if err != nil {
			return nil, fmt.Errorf("ingest: decode latin-1: %w", err)
		}
		data = decoded
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = sniffSeparator(data)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("ingest: read header: %w", err)
	}
	mapped := MapHeaders(entity, header)

	var rows []RawRow
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ingest: read row %d: %w", line+1, err)
		}
		line++
		fields := make(map[string]string)
		for i, cell := range record {
			if i >= len(mapped) || mapped[i] == "" {
				continue
			}
			fields[mapped[i]] = strings.TrimSpace(cell)
		}
		rows = append(rows, RawRow{Line: line, Fields: fields})
	}
	return rows, nil
}

// sniffSeparator picks the delimiter used most in the first line.
func sniffSeparator(data []byte) rune {
	firstLine := data
	if idx := bytes.IndexByte(data, '\n'); idx >= 0 {
		firstLine = data[:idx]
	}
	if bytes.Count(firstLine, []byte{';'}) > bytes.Count(firstLine, []byte{','}) {
		return ';'
	}
	return ','
}

func parseXLSX(entity string, data []byte) ([]RawRow, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("ingest: open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("ingest: workbook has no sheets")
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("ingest: read sheet: %w", err)
	}
	if len(records) == 0 {
		return nil, errors.New("ingest: sheet is empty")
	}

	mapped := MapHeaders(entity, records[0])
	var rows []RawRow
	for i, record := range records[1:] {
		fields := make(map[string]string)
		for j, cell := range record {
			if j >= len(mapped) || mapped[j] == "" {
				continue
			}
			fields[mapped[j]] = strings.TrimSpace(cell)
		}
		rows = append(rows, RawRow{Line: i + 2, Fields: fields})
	}
	return rows, nil
}

func parseJSON(entity string, data []byte) ([]RawRow, error) {
	var objects []map[string]any
	if err := json.Unmarshal(bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF}), &objects); err != nil {
		return nil, fmt.Errorf("ingest: parse JSON array: %w", err)
	}
	aliases := aliasTable(entity)
	var rows []RawRow
	for i, obj := range objects {
		fields := make(map[string]string)
		for key, value := range obj {
			canonical := aliases[NormalizeHeader(key)]
			if canonical == "" {
				continue
			}
			fields[canonical] = strings.TrimSpace(fmt.Sprintf("%v", value))
		}
		rows = append(rows, RawRow{Line: i + 1, Fields: fields})
	}
	return rows, nil
}
