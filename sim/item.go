package sim

import (
	"fmt"
	"time"
)

// Item is a unit of work produced by a Line.
// Items are created by their origin line and are read-only afterwards; the same *Item is
// passed through units, buffers and the scheduler until it is delivered back to its line.
type Item struct {
	Size     float64       `json:"size"`      // space the item occupies in a unit or buffer
	CookTime time.Duration `json:"cook_time"` // how long the item stays in a unit
	LineID   int           `json:"line_id"`   // id of the origin line
	Seq      int64         `json:"seq"`       // per-line sequence number, starting at 0
}

// ID returns a stable identifier used in logs and traces, e.g. "line2#14".
func (it *Item) ID() string {
	return fmt.Sprintf("line%d#%d", it.LineID, it.Seq)
}

func (it *Item) String() string {
	return fmt.Sprintf("%s(size=%g, cook=%s)", it.ID(), it.Size, it.CookTime)
}
