package trace

import "sync"

// TraceLevel controls the verbosity of decision tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelDecisions captures admissions, line state changes, completions and losses.
	TraceLevelDecisions TraceLevel = "decisions"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:      true,
	TraceLevelDecisions: true,
	"":                  true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel
}

// SimulationTrace collects decision records during a kitchen run.
// Records arrive from the scheduler and from the completion goroutine, so every method is
// safe for concurrent use. A nil *SimulationTrace records nothing.
type SimulationTrace struct {
	Config TraceConfig

	mu          sync.Mutex
	admissions  []AdmissionRecord
	lineEvents  []LineEventRecord
	completions []CompletionRecord
	losses      []LossRecord
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
// Returns nil for TraceLevelNone (and the empty level), which turns recording into a no-op.
func NewSimulationTrace(config TraceConfig) *SimulationTrace {
	if config.Level == TraceLevelNone || config.Level == "" {
		return nil
	}
	return &SimulationTrace{
		Config:      config,
		admissions:  make([]AdmissionRecord, 0),
		lineEvents:  make([]LineEventRecord, 0),
		completions: make([]CompletionRecord, 0),
		losses:      make([]LossRecord, 0),
	}
}

// RecordAdmission appends an admission decision record.
func (st *SimulationTrace) RecordAdmission(record AdmissionRecord) {
	if st == nil {
		return
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	st.admissions = append(st.admissions, record)
}

// RecordLineEvent appends a line state change record.
func (st *SimulationTrace) RecordLineEvent(record LineEventRecord) {
	if st == nil {
		return
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	st.lineEvents = append(st.lineEvents, record)
}

// RecordCompletion appends a completion record.
func (st *SimulationTrace) RecordCompletion(record CompletionRecord) {
	if st == nil {
		return
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	st.completions = append(st.completions, record)
}

// RecordLoss appends a loss record.
func (st *SimulationTrace) RecordLoss(record LossRecord) {
	if st == nil {
		return
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	st.losses = append(st.losses, record)
}

// Admissions returns a copy of the admission records in recording order.
func (st *SimulationTrace) Admissions() []AdmissionRecord {
	if st == nil {
		return nil
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return append([]AdmissionRecord(nil), st.admissions...)
}

// LineEvents returns a copy of the line event records in recording order.
func (st *SimulationTrace) LineEvents() []LineEventRecord {
	if st == nil {
		return nil
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return append([]LineEventRecord(nil), st.lineEvents...)
}

// Completions returns a copy of the completion records in recording order.
func (st *SimulationTrace) Completions() []CompletionRecord {
	if st == nil {
		return nil
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return append([]CompletionRecord(nil), st.completions...)
}

// Losses returns a copy of the loss records in recording order.
func (st *SimulationTrace) Losses() []LossRecord {
	if st == nil {
		return nil
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return append([]LossRecord(nil), st.losses...)
}
