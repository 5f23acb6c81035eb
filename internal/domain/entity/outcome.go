package entity

import "time"

// RunOutcome is the per-run result of the sync pipeline. Success keeps the
// historical predicate RecordsSent > 0; Complete additionally requires that
// no chunk failed, so callers can tell partial deliveries apart.
type RunOutcome struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"-"`
	CycleID       string    `gorm:"index;type:uuid" json:"cycle_id"`
	RunID         string    `gorm:"index" json:"run_id"`
	RunName       string    `json:"run_name"`
	StationName   string    `json:"station_name,omitempty"`
	DeviceFound   bool      `json:"device_found"`
	DataFound     bool      `json:"data_found"`
	RecordsSent   int       `json:"records_sent"`
	RecordsFailed int       `json:"records_failed"`
	Success       bool      `json:"success"`
	Complete      bool      `json:"complete"`
	Error         string    `json:"error,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// CycleSummary aggregates the outcomes of one poll cycle across all
// configured experiments.
type CycleSummary struct {
	CycleID    string       `json:"cycle_id"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Outcomes   []RunOutcome `json:"outcomes"`
	Processed  int          `json:"processed"`
	Succeeded  int          `json:"succeeded"`
	Failed     int          `json:"failed"`
}
