package entity

// RunRecord is one recorded execution in the experiment store. It is
// immutable once fetched; the sync pipeline only reads it.
type RunRecord struct {
	RunID     string            `json:"run_id"`
	RunName   string            `json:"run_name"`
	StartTime int64             `json:"start_time"` // ms since epoch
	Tags      map[string]string `json:"tags"`
	Params    map[string]string `json:"params"`
}
