package database

import (
	"time"
)

const (
	RunStatusSuccess = "success"
	RunStatusEmpty   = "empty"  // nothing kept, no output written
	RunStatusFailed  = "failed" // fetch or parse failure
)

type Run struct {
	ID                     int64     `json:"id"`
	StartedAt              time.Time `json:"started_at"`
	Status                 string    `json:"status"`
	Source                 string    `json:"source"`
	Origin                 string    `json:"origin"`
	Profile                string    `json:"profile"`
	Total                  int       `json:"total"`
	Kept                   int       `json:"kept"`
	Skipped                int       `json:"skipped"`
	Pages                  int       `json:"pages"`
	UnresolvedPlaceholders int       `json:"unresolved_placeholders"`
	Outputs                []string  `json:"outputs"`
	DurationMs             int64     `json:"duration_ms"`
	Error                  string    `json:"error,omitempty"`
	Skips                  []RunSkip `json:"skips,omitempty"`
}

type RunSkip struct {
	EntryIndex int    `json:"index"`
	ProductID  string `json:"id,omitempty"`
	Reason     string `json:"reason"`
}
