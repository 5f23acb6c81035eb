package entity

// TelemetryRecord is one timestamped set of named measurements in the
// wire format the platform ingests: {"ts": <ms>, "values": {...}}.
// Values hold float64 for numeric fields and string for everything that
// failed numeric coercion.
type TelemetryRecord struct {
	TS     int64          `json:"ts"`
	Values map[string]any `json:"values"`
}

// BatchResult accumulates per-chunk delivery counters for one device.
type BatchResult struct {
	Success int `json:"success"`
	Failed  int `json:"failed"`
	Total   int `json:"total"`
}
