package catalog

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/lysyi3m/catalog-comb/app/database"
	"github.com/lysyi3m/catalog-comb/app/feed"
)

const summaryLineWidth = 160

// Report describes one pipeline run.
type Report struct {
	StartedAt  time.Time
	Duration   time.Duration
	Status     string
	Source     string
	Origin     string
	Profile    string
	Total      int
	Kept       int
	Skips      []feed.SkipReason
	Pages      int
	Unresolved int
	Outputs    []string
	Err        error
}

func (r *Report) Skipped() int {
	return len(r.Skips)
}

type reportSkip struct {
	Index   int      `json:"index"`
	ID      string   `json:"id,omitempty"`
	Missing []string `json:"missing"`
	Reason  string   `json:"reason"`
}

type reportJSON struct {
	StartedAt              time.Time    `json:"started_at"`
	DurationMs             int64        `json:"duration_ms"`
	Status                 string       `json:"status"`
	Source                 string       `json:"source"`
	Origin                 string       `json:"origin"`
	Profile                string       `json:"profile"`
	Total                  int          `json:"total"`
	Kept                   int          `json:"kept"`
	Skipped                int          `json:"skipped"`
	Pages                  int          `json:"pages"`
	UnresolvedPlaceholders int          `json:"unresolved_placeholders"`
	Outputs                []string     `json:"outputs"`
	Skips                  []reportSkip `json:"skips"`
}

// JSON renders the run-report.json document.
func (r *Report) JSON() ([]byte, error) {
	doc := reportJSON{
		StartedAt:              r.StartedAt.UTC(),
		DurationMs:             r.Duration.Milliseconds(),
		Status:                 r.Status,
		Source:                 r.Source,
		Origin:                 r.Origin,
		Profile:                r.Profile,
		Total:                  r.Total,
		Kept:                   r.Kept,
		Skipped:                r.Skipped(),
		Pages:                  r.Pages,
		UnresolvedPlaceholders: r.Unresolved,
		Outputs:                append([]string{}, r.Outputs...),
		Skips:                  make([]reportSkip, 0, len(r.Skips)),
	}

	for _, skip := range r.Skips {
		missing := make([]string, 0, len(skip.Missing))
		for _, field := range skip.Missing {
			missing = append(missing, string(field))
		}
		doc.Skips = append(doc.Skips, reportSkip{
			Index:   skip.Index,
			ID:      skip.ID,
			Missing: missing,
			Reason:  skip.Reason,
		})
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Run converts the report into a run history record.
func (r *Report) Run() database.Run {
	run := database.Run{
		StartedAt:              r.StartedAt,
		Status:                 r.Status,
		Source:                 r.Source,
		Origin:                 r.Origin,
		Profile:                r.Profile,
		Total:                  r.Total,
		Kept:                   r.Kept,
		Skipped:                r.Skipped(),
		Pages:                  r.Pages,
		UnresolvedPlaceholders: r.Unresolved,
		Outputs:                r.Outputs,
		DurationMs:             r.Duration.Milliseconds(),
	}

	if r.Err != nil {
		run.Error = r.Err.Error()
	}

	for _, skip := range r.Skips {
		run.Skips = append(run.Skips, database.RunSkip{
			EntryIndex: skip.Index,
			ProductID:  skip.ID,
			Reason:     skip.Reason,
		})
	}

	return run
}

// WriteSummary prints the human-readable run summary. At most limit skip
// reasons are listed.
func (r *Report) WriteSummary(w io.Writer, limit int) {
	rows := [][2]string{
		{"Source", r.Source},
		{"Profile", r.Profile},
		{"Total", strconv.Itoa(r.Total)},
		{"Kept", strconv.Itoa(r.Kept)},
		{"Skipped", strconv.Itoa(r.Skipped())},
	}
	if r.Pages > 0 {
		rows = append(rows, [2]string{"Pages", strconv.Itoa(r.Pages)})
	}
	if r.Unresolved > 0 {
		rows = append(rows, [2]string{"Unresolved placeholders", strconv.Itoa(r.Unresolved)})
	}

	labelWidth := 0
	for _, row := range rows {
		labelWidth = max(labelWidth, runewidth.StringWidth(row[0]))
	}
	for _, row := range rows {
		fmt.Fprintf(w, "%s  %s\n", runewidth.FillRight(row[0], labelWidth), row[1])
	}

	for i, skip := range r.Skips {
		if i == limit {
			fmt.Fprintf(w, "... and %d more skipped entries\n", len(r.Skips)-limit)
			break
		}
		fmt.Fprintln(w, runewidth.Truncate(skip.String(), summaryLineWidth, "…"))
	}

	switch {
	case r.Err != nil:
		fmt.Fprintf(w, "Run failed: %v\n", r.Err)
	case r.Kept == 0:
		fmt.Fprintf(w, "No valid products: kept 0/%d, nothing written\n", r.Total)
	default:
		fmt.Fprintf(w, "Kept %d/%d products\n", r.Kept, r.Total)
	}
}
