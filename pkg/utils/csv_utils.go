package utils

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// ParseCSV reads a comma-separated result set with a header row and returns
// the trimmed column names plus the data rows. Ragged rows are tolerated;
// the transformer skips missing cells.
func ParseCSV(r io.Reader) ([]string, [][]string, error) {
	csvReader := csv.NewReader(r)
	csvReader.FieldsPerRecord = -1
	csvReader.TrimLeadingSpace = true

	header, err := csvReader.Read()
	if err == io.EOF {
		return nil, nil, fmt.Errorf("empty dataset")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}

	columns := make([]string, len(header))
	for i, col := range header {
		columns[i] = strings.TrimSpace(col)
	}

	var rows [][]string
	for {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read row %d: %w", len(rows)+2, err)
		}
		rows = append(rows, record)
	}

	return columns, rows, nil
}
