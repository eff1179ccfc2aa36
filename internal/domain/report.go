package domain

import "time"

// FetchFailure records one (pair, source) lookup that did not produce a quote.
type FetchFailure struct {
	Pair   Pair   `json:"pair"`
	Source string `json:"source"`
	Kind   string `json:"kind"`
	Reason string `json:"reason"`
}

// FetchDiagnostics summarizes the outcome of one fetch fan-out.
type FetchDiagnostics struct {
	Attempted int            `json:"attempted"`
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
	Failures  []FetchFailure `json:"failures,omitempty"`
	Duration  time.Duration  `json:"duration"`
}

// AllFailed reports whether every attempted lookup failed.
func (d FetchDiagnostics) AllFailed() bool {
	return d.Attempted > 0 && d.Succeeded == 0
}

// FailuresBySource counts failures per source.
func (d FetchDiagnostics) FailuresBySource() map[string]int {
	out := make(map[string]int)
	for _, f := range d.Failures {
		out[f.Source]++
	}
	return out
}

// ScanReport is what one completed cycle hands to collaborators. It is
// read-only once published.
type ScanReport struct {
	ID            string           `json:"id"`
	Cycle         int64            `json:"cycle"`
	StartedAt     time.Time        `json:"started_at"`
	FinishedAt    time.Time        `json:"finished_at"`
	Opportunities ScanResult       `json:"opportunities"`
	Diagnostics   FetchDiagnostics `json:"diagnostics"`
}

func (r ScanReport) Duration() time.Duration { return r.FinishedAt.Sub(r.StartedAt) }
