package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestFormatCapturedAt(t *testing.T) {
	ts := time.Date(2024, 5, 1, 9, 4, 7, 123456789, time.UTC)
	if got := FormatCapturedAt(ts); got != "09:04:07:123456" {
		t.Errorf("FormatCapturedAt() = %q, want %q", got, "09:04:07:123456")
	}
	ts = time.Date(2024, 5, 1, 23, 59, 59, 1000, time.UTC)
	if got := FormatCapturedAt(ts); got != "23:59:59:000001" {
		t.Errorf("FormatCapturedAt() = %q, want %q", got, "23:59:59:000001")
	}
}

func TestPingRecord_JSON(t *testing.T) {
	ms := 12.5
	tests := []struct {
		name   string
		record PingRecord
		want   string
	}{
		{
			name:   "With duration",
			record: PingRecord{Address: "10.0.0.1", Size: 64, DurationMS: &ms, CapturedAt: "10:00:00:000000"},
			want:   `{"address":"10.0.0.1","size":64,"duration_ms":12.5,"captured_at":"10:00:00:000000"}`,
		},
		{
			name:   "No reply is null",
			record: PingRecord{Address: "10.0.0.1", Size: 64, CapturedAt: "10:00:00:000000"},
			want:   `{"address":"10.0.0.1","size":64,"duration_ms":null,"captured_at":"10:00:00:000000"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(tt.record)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			if string(b) != tt.want {
				t.Errorf("Marshal() = %s, want %s", b, tt.want)
			}
		})
	}
}

func TestSweepResult_ToCSVRow(t *testing.T) {
	ts := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		result SweepResult
		want   []string
	}{
		{
			name:   "Reachable",
			result: SweepResult{Timestamp: ts, Target: SweepTarget{Address: "192.0.2.1", Size: 56}, Status: StatusReachable, RTT: 1500 * time.Microsecond},
			want:   []string{"2024-05-01T09:00:00Z", "192.0.2.1", "56", "REACHABLE", "1.500", ""},
		},
		{
			name:   "Unreachable keeps reason",
			result: SweepResult{Timestamp: ts, Target: SweepTarget{Address: "192.0.2.2", Size: 56}, Status: StatusUnreachable, Reason: "timeout"},
			want:   []string{"2024-05-01T09:00:00Z", "192.0.2.2", "56", "UNREACHABLE", "", "timeout"},
		},
		{
			name:   "Error message wins",
			result: SweepResult{Timestamp: ts, Target: SweepTarget{Address: "192.0.2.3", Size: 56}, Status: StatusError, Error: errors.New("socket closed")},
			want:   []string{"2024-05-01T09:00:00Z", "192.0.2.3", "56", "ERROR", "", "socket closed"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.result.ToCSVRow()
			if len(got) != len(CSVHeader()) {
				t.Fatalf("row has %d columns, header has %d", len(got), len(CSVHeader()))
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("column %s = %q, want %q", CSVHeader()[i], got[i], tt.want[i])
				}
			}
		})
	}
}
