package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalDecisions  int         `json:"total_decisions"`
	AdmittedToUnit  int         `json:"admitted_to_unit"`
	AdmittedToBuf   int         `json:"admitted_to_buffer"`
	Promoted        int         `json:"promoted"`
	RejectedCount   int         `json:"rejected"`
	Completed       int         `json:"completed"`
	Lost            int         `json:"lost"`
	EventsByLine    map[int]int `json:"events_by_line"` // line id → pause/resume/block/stop count
	RejectedPerLine map[int]int `json:"rejected_per_line"`
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		EventsByLine:    make(map[int]int),
		RejectedPerLine: make(map[int]int),
	}
	if st == nil {
		return summary
	}

	admissions := st.Admissions()
	summary.TotalDecisions = len(admissions)
	for _, a := range admissions {
		switch {
		case !a.Admitted:
			summary.RejectedCount++
			summary.RejectedPerLine[a.LineID]++
		case a.Promoted:
			summary.Promoted++
		case a.Target == "unit":
			summary.AdmittedToUnit++
		default:
			summary.AdmittedToBuf++
		}
	}
	for _, e := range st.LineEvents() {
		summary.EventsByLine[e.LineID]++
	}
	summary.Completed = len(st.Completions())
	summary.Lost = len(st.Losses())

	return summary
}
