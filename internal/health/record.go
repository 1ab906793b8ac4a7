// SPDX-License-Identifier: MPL-2.0

package health

import (
	"time"
)

type (
	// Outcome classifies a single probe attempt.
	Outcome int

	// Record is the result of one probe attempt.
	Record struct {
		Time    time.Time
		Outcome Outcome
		Status  int // HTTP status, zero when the probe never got a response
		Latency time.Duration
		Detail  string // short human-readable cause, empty on success
	}

	// History is a fixed-capacity ring of the most recent probe records.
	// Not safe for concurrent use; the monitor owns it.
	History struct {
		records []Record
		next    int
		full    bool
	}
)

const (
	// OutcomeSuccess means the endpoint answered with a 2xx status.
	OutcomeSuccess Outcome = iota
	// OutcomeRefused means the TCP connection was refused or reset.
	OutcomeRefused
	// OutcomeTimeout means the probe exceeded its per-probe timeout.
	OutcomeTimeout
	// OutcomeBadStatus means the endpoint answered with a non-2xx status.
	OutcomeBadStatus
)

// String returns the string representation of the Outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeRefused:
		return "refused"
	case OutcomeTimeout:
		return "timeout"
	case OutcomeBadStatus:
		return "bad-status"
	default:
		return "unknown"
	}
}

// OK reports whether the probe counts as a success.
func (r Record) OK() bool {
	return r.Outcome == OutcomeSuccess
}

// NewHistory creates a History retaining the last capacity records.
// A non-positive capacity falls back to DefaultFailureThreshold.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultFailureThreshold
	}
	return &History{records: make([]Record, capacity)}
}

// Add appends a record, evicting the oldest when at capacity.
func (h *History) Add(r Record) {
	h.records[h.next] = r
	h.next = (h.next + 1) % len(h.records)
	if h.next == 0 {
		h.full = true
	}
}

// Len returns the number of retained records.
func (h *History) Len() int {
	if h.full {
		return len(h.records)
	}
	return h.next
}

// All returns the retained records, oldest first.
func (h *History) All() []Record {
	if !h.full {
		out := make([]Record, h.next)
		copy(out, h.records[:h.next])
		return out
	}
	out := make([]Record, 0, len(h.records))
	out = append(out, h.records[h.next:]...)
	out = append(out, h.records[:h.next]...)
	return out
}

// Last returns the most recent record and whether one exists.
func (h *History) Last() (Record, bool) {
	if h.Len() == 0 {
		return Record{}, false
	}
	idx := (h.next - 1 + len(h.records)) % len(h.records)
	return h.records[idx], true
}
