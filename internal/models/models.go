package models

import (
	"fmt"
	"time"
)

// PingRecord is the answer to a single ping request. DurationMS is nil when
// no reply was received.
type PingRecord struct {
	Address    string   `json:"address"`
	Size       int      `json:"size"`
	DurationMS *float64 `json:"duration_ms"`
	CapturedAt string   `json:"captured_at"`
}

// FormatCapturedAt renders t as HH:MM:SS:ffffff.
func FormatCapturedAt(t time.Time) string {
	return fmt.Sprintf("%s:%06d", t.Format("15:04:05"), t.Nanosecond()/1000)
}

// SweepTarget is one host to probe during a sweep.
type SweepTarget struct {
	Address string `json:"address"`
	Size    int    `json:"size"`
}

// SweepStatus is the outcome of probing one host.
type SweepStatus string

const (
	StatusReachable   SweepStatus = "REACHABLE"
	StatusUnreachable SweepStatus = "UNREACHABLE"
	StatusError       SweepStatus = "ERROR"
	StatusDryRun      SweepStatus = "DRYRUN"
)

// SweepResult holds the outcome of probing one sweep target.
type SweepResult struct {
	Timestamp time.Time
	Target    SweepTarget
	Status    SweepStatus
	RTT       time.Duration
	// Reason names the failure kind for unreachable hosts, e.g. "timeout".
	Reason string
	Error  error
}

// ToCSVRow converts a SweepResult into a slice of strings for CSV writing.
func (r *SweepResult) ToCSVRow() []string {
	rtt := ""
	if r.Status == StatusReachable {
		rtt = fmt.Sprintf("%.3f", r.RTT.Seconds()*1000)
	}
	detail := r.Reason
	if r.Error != nil {
		detail = r.Error.Error()
	}
	return []string{
		r.Timestamp.Format(time.RFC3339),
		r.Target.Address,
		fmt.Sprintf("%d", r.Target.Size),
		string(r.Status),
		rtt,
		detail,
	}
}

// CSVHeader returns the header row for the results CSV file.
func CSVHeader() []string {
	return []string{"timestamp", "address", "size", "status", "rtt_ms", "detail"}
}
