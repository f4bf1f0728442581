package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Dan9191/spending-insights/internal/models"
)

// maxParseErrors is how many parser messages a ParseError keeps
const maxParseErrors = 3

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseError reports a structurally malformed CSV file
type ParseError struct {
	Details []string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("CSV parse error: %s", strings.Join(e.Details, "; "))
}

// record is a parsed data row together with its normalized field lookup
type record struct {
	raw    models.RawRow
	fields map[string]string
}

// parseCSV reads a header row followed by data rows. Blank lines are skipped.
// Every structural problem is collected so the caller sees more than the first one.
func parseCSV(data []byte) ([]record, error) {
	cr := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	cr.FieldsPerRecord = -1

	var (
		header []string
		keys   []string
		rows   []record
		errs   []string
	)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if !errors.As(err, &pe) {
				return nil, fmt.Errorf("reading CSV: %w", err)
			}
			errs = append(errs, pe.Error())
			continue
		}

		if header == nil {
			header = rec
			keys = make([]string, len(rec))
			for i, name := range rec {
				keys[i] = strings.ToLower(strings.TrimSpace(name))
			}
			continue
		}
		if len(rec) != len(header) {
			line, _ := cr.FieldPos(0)
			errs = append(errs, fmt.Sprintf("record on line %d: expected %d fields, got %d", line, len(header), len(rec)))
			continue
		}

		row := record{
			raw:    make(models.RawRow, len(header)),
			fields: make(map[string]string, len(header)),
		}
		for i, name := range header {
			row.raw[name] = rec[i]
			row.fields[keys[i]] = rec[i]
		}
		rows = append(rows, row)
	}

	if len(errs) > 0 {
		if len(errs) > maxParseErrors {
			errs = errs[:maxParseErrors]
		}
		return nil, &ParseError{Details: errs}
	}
	return rows, nil
}
