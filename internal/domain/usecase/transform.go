package usecase

import (
	"strconv"
	"strings"
	"time"

	"github.com/Taverna-Hub/Projeto-AVD/internal/domain/entity"
)

// DefaultColumnMap renames the Brazilian column headers of the processed
// CSVs to the telemetry keys the platform dashboards use. Columns not
// listed here pass through lowercased with spaces turned into underscores.
var DefaultColumnMap = map[string]string{
	"temperatura":      "temperature",
	"umidade":          "humidity",
	"velocidade_vento": "wind_speed",
	"vento_velocidade": "wind_speed",
	"precipitacao":     "precipitation",
	"pressao":          "pressure",
	"radiacao":         "radiation",
}

// Columns consumed to build the record timestamp; they never appear as
// telemetry values.
const (
	colTimestamp = "timestamp"
	colDatetime  = "datetime"
	colDate      = "data"
	colHour      = "hora"
)

var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 1504",
}

// nullValues are sentinels the source data uses for missing measurements.
var nullValues = map[string]bool{
	"":      true,
	"null":  true,
	"NaN":   true,
	"nan":   true,
	"-9999": true,
}

// Transform converts a dataset into ordered telemetry records, one per row.
// The timestamp comes from a timestamp column, from the data+hora pair, or
// from the wall clock when the dataset has neither; rows whose timestamp
// columns fail to parse are dropped. Rows producing zero values are dropped.
func Transform(ds *entity.Dataset, columnMap map[string]string) []entity.TelemetryRecord {
	if ds == nil || len(ds.Rows) == 0 {
		return nil
	}
	if columnMap == nil {
		columnMap = DefaultColumnMap
	}

	tsIdx := ds.Index(colTimestamp)
	if tsIdx < 0 {
		tsIdx = ds.Index(colDatetime)
	}
	dateIdx := ds.Index(colDate)
	hourIdx := ds.Index(colHour)

	records := make([]entity.TelemetryRecord, 0, len(ds.Rows))
	for _, row := range ds.Rows {
		ts, ok := rowTimestamp(row, tsIdx, dateIdx, hourIdx)
		if !ok {
			continue
		}

		values := make(map[string]any)
		for i, col := range ds.Columns {
			if i == tsIdx || i == dateIdx || i == hourIdx || i >= len(row) {
				continue
			}
			raw := strings.TrimSpace(row[i])
			if nullValues[raw] {
				continue
			}
			values[telemetryKey(col, columnMap)] = coerceValue(raw)
		}

		if len(values) == 0 {
			continue
		}
		records = append(records, entity.TelemetryRecord{TS: ts, Values: values})
	}
	return records
}

func telemetryKey(column string, columnMap map[string]string) string {
	if mapped, ok := columnMap[column]; ok {
		return mapped
	}
	return strings.ToLower(strings.ReplaceAll(column, " ", "_"))
}

// coerceValue parses the field as a float, normalizing the Brazilian comma
// decimal separator first, and keeps the raw string when parsing fails.
func coerceValue(raw string) any {
	normalized := strings.ReplaceAll(raw, ",", ".")
	if f, err := strconv.ParseFloat(normalized, 64); err == nil {
		return f
	}
	return raw
}

func rowTimestamp(row []string, tsIdx, dateIdx, hourIdx int) (int64, bool) {
	if tsIdx >= 0 && tsIdx < len(row) {
		return parseTimestamp(strings.TrimSpace(row[tsIdx]))
	}
	if dateIdx >= 0 && dateIdx < len(row) {
		return parseDateHour(row, dateIdx, hourIdx)
	}
	// No timestamp columns at all: last resort is transformation time.
	return time.Now().UnixMilli(), true
}

func parseTimestamp(raw string) (int64, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UnixMilli(), true
		}
	}
	return 0, false
}

// parseDateHour builds a timestamp from the "data" column plus the "hora"
// column, which holds a bare hour ("14"), an HHMM block ("1400") or a
// clock string ("14:00").
func parseDateHour(row []string, dateIdx, hourIdx int) (int64, bool) {
	date := strings.TrimSpace(row[dateIdx])
	if date == "" {
		return 0, false
	}

	hour := 0
	if hourIdx >= 0 && hourIdx < len(row) {
		parsed, ok := parseHour(strings.TrimSpace(row[hourIdx]))
		if !ok {
			return 0, false
		}
		hour = parsed
	}

	t, err := time.Parse("2006-01-02", strings.ReplaceAll(date, "/", "-"))
	if err != nil {
		return 0, false
	}
	return t.Add(time.Duration(hour) * time.Hour).UnixMilli(), true
}

func parseHour(raw string) (int, bool) {
	if raw == "" {
		return 0, false
	}
	if i := strings.IndexByte(raw, ':'); i >= 0 {
		raw = raw[:i]
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	if n >= 100 {
		// HHMM blocks such as "1400".
		n /= 100
	}
	if n < 0 || n > 23 {
		return 0, false
	}
	return n, true
}
