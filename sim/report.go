package sim

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/foodfactory/cookstage/sim/trace"
)

// WriteStatusReport renders lines and holders as two aligned tables.
func WriteStatusReport(w io.Writer, lines []LineStatus, holders []HolderStatus) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "=== Lines ===")
	fmt.Fprintln(tw, "LINE\tSTATE\tINBOUND\tOUTBOUND\tPRODUCED\tUNIT\tBUFFER\tFAILED\tPAUSES\tDELIVERED")
	for _, l := range lines {
		state := string(l.State)
		if l.Blocked != "" {
			state += " (blocked)"
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%s\n",
			l.ID, state, l.InboundDepth, l.OutboundDepth, l.Produced,
			l.AdmittedToUnit, l.AdmittedToBuffer, l.AdmissionFailures, l.Pauses,
			formatSeqs(l.Delivered))
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "=== Holders ===")
	fmt.Fprintln(tw, "KIND\tINDEX\tOCCUPIED\tCAPACITY\tITEMS")
	for _, h := range holders {
		items := "-"
		if len(h.Items) > 0 {
			items = strings.Join(h.Items, " ")
		}
		fmt.Fprintf(tw, "%s\t%d\t%g\t%g\t%s\n", h.Kind, h.Index, h.Occupied, h.Capacity, items)
	}
	return tw.Flush()
}

func formatSeqs(items []Item) string {
	if len(items) == 0 {
		return "-"
	}
	seqs := make([]string, len(items))
	for i, it := range items {
		seqs[i] = fmt.Sprintf("%d", it.Seq)
	}
	return strings.Join(seqs, ",")
}

// Results is the JSON document written at the end of a run.
type Results struct {
	RunID    string              `json:"run_id"`
	Seed     int64               `json:"seed"`
	Units    []float64           `json:"units"`
	Buffers  []float64           `json:"buffers"`
	Ordering OrderingMode        `json:"ordering"`
	Lines    []LineStatus        `json:"lines"`
	Holders  []HolderStatus      `json:"holders"`
	Trace    *trace.TraceSummary `json:"trace,omitempty"`
}

// CollectResults snapshots a server into a Results document.
func CollectResults(s *Server, seed int64) Results {
	cfg := s.Config()
	ordering := cfg.Ordering
	if ordering == "" {
		ordering = OrderingStrict
	}
	r := Results{
		RunID:    s.RunID(),
		Seed:     seed,
		Units:    cfg.UnitCapacities,
		Buffers:  cfg.BufferCapacities,
		Ordering: ordering,
		Lines:    s.StatusAll(),
		Holders:  s.Holders(),
	}
	if tr := s.Trace(); tr != nil {
		r.Trace = trace.Summarize(tr)
	}
	return r
}

// SaveResults writes r as indented JSON to path.
func SaveResults(r Results, path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write results %s: %w", path, err)
	}
	return nil
}
