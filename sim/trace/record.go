// Package trace provides decision-trace recording for a kitchen run.
// This package has no dependencies on sim/; it stores pure data types.
package trace

import "time"

// AdmissionRecord captures a single admission decision for an item pulled from a line or
// promoted from a buffer.
type AdmissionRecord struct {
	ItemID   string
	LineID   int
	Seq      int64
	At       time.Time
	Admitted bool
	Target   string // "unit" or "buffer"; empty when rejected
	Index    int    // holder index; -1 when rejected
	Promoted bool   // true when the item moved from a buffer into a unit
	Reason   string // rejection reason; empty when admitted
}

// LineEvent names a change in a line's production state.
type LineEvent string

const (
	LinePaused  LineEvent = "paused"
	LineResumed LineEvent = "resumed"
	LineBlocked LineEvent = "blocked"
	LineStopped LineEvent = "stopped"
)

// LineEventRecord captures a pause, resume, block or stop of a line.
type LineEventRecord struct {
	LineID int
	Event  LineEvent
	At     time.Time
	Reason string
}

// CompletionRecord captures an item leaving a unit after its cook time.
type CompletionRecord struct {
	ItemID string
	LineID int
	Seq    int64
	Unit   int
	At     time.Time
}

// LossRecord captures an item whose completion never fired (hard kill).
type LossRecord struct {
	ItemID string
	LineID int
	Seq    int64
	At     time.Time
	Reason string
}
