package domain

import "time"

// RunSummary describes one command run. It carries counts and file names only;
// aggregate rows are never serialized.
type RunSummary struct {
	RunID      string    `json:"run_id"`
	Command    string    `json:"command"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Stations       int   `json:"stations,omitempty"`
	Downloaded     int   `json:"downloaded,omitempty"`
	DownloadFailed int   `json:"download_failed,omitempty"`
	DownloadBytes  int64 `json:"download_bytes,omitempty"`

	FilesParsed  int `json:"files_parsed,omitempty"`
	FilesSkipped int `json:"files_skipped,omitempty"`
	RowsUnified  int `json:"rows_unified,omitempty"`
	RowsCleaned  int `json:"rows_cleaned,omitempty"`
	RowsDropped  int `json:"rows_dropped,omitempty"`

	Charts []string `json:"charts,omitempty"`

	// Error is set when the run failed.
	Error string `json:"error,omitempty"`
}

// SizeGB converts a byte count to binary gigabytes, the unit of the size thresholds.
func SizeGB(n int64) float64 {
	return float64(n) / (1 << 30)
}

// FetchResult is the outcome of one download batch.
type FetchResult struct {
	Paths  []string         // downloaded files, in station order
	Failed map[string]error // station ID -> reason
	Bytes  int64
}
