// Package jobs implements the asynchronous job orchestration core: job
// identity, the lifecycle state machine, a bounded worker pool, per-job log
// capture, and structured error surfacing.
//
// The actual sequence analysis is delegated to an Executor implementation
// (see pkg/executor); this package never inspects its internals beyond exit
// status, artifact locations, and log text.
package jobs

import (
	"strings"
	"time"
)

// Kind identifies which operation a job performs.
type Kind string

const (
	// KindPredict runs solubility prediction over a single FASTA file.
	KindPredict Kind = "predict"

	// KindBatch runs solubility prediction over many FASTA files, one
	// executor call per file.
	KindBatch Kind = "batch"

	// KindAnalyze runs composition and property analysis for a FASTA file
	// or a single inline sequence.
	KindAnalyze Kind = "analyze"
)

// ParseKind validates a kind string from an API caller.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.TrimSpace(s)) {
	case KindPredict:
		return KindPredict, nil
	case KindBatch:
		return KindBatch, nil
	case KindAnalyze:
		return KindAnalyze, nil
	default:
		return "", Errf(ErrInvalidInput, "unknown job kind %q (expected predict, batch, or analyze)", s)
	}
}

// State is the lifecycle state of a managed job.
//
// NOTE: These values are persisted in job.json and are part of the stable
// on-disk contract.
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// Terminal reports whether no further transitions can occur.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// ParseState validates a state filter string from an API caller.
func ParseState(s string) (State, error) {
	switch State(strings.TrimSpace(s)) {
	case StatePending, StateRunning, StateCompleted, StateFailed, StateCancelled:
		return State(strings.TrimSpace(s)), nil
	default:
		return "", Errf(ErrInvalidInput, "unknown job state %q", s)
	}
}

// InputSpec holds the validated parameters needed to invoke the executor.
// It is immutable once a job is created.
type InputSpec struct {
	// InputFile is a FASTA file path (predict, analyze).
	InputFile string `json:"input_file,omitempty"`

	// Files lists explicit FASTA files for a batch job.
	Files []string `json:"files,omitempty"`

	// InputDir is a directory to discover FASTA files in (batch,
	// alternative to Files).
	InputDir string `json:"input_dir,omitempty"`

	// Sequence is an inline protein sequence (analyze, alternative to
	// InputFile). SequenceID is required alongside it.
	Sequence   string `json:"sequence,omitempty"`
	SequenceID string `json:"sequence_id,omitempty"`

	// OutputPrefix overrides the prefix used for result artifact names.
	OutputPrefix string `json:"output_prefix,omitempty"`

	// OutputDir is where batch member artifacts are written. Defaults to
	// the job's working directory.
	OutputDir string `json:"output_dir,omitempty"`

	// BasicOnly restricts an analyze job to in-process composition
	// statistics, skipping the external pipeline.
	BasicOnly bool `json:"basic_only,omitempty"`
}

// Validate checks the spec shape for the requested kind.
// Violations are invalid_input errors; no job is created for them.
func (s *InputSpec) Validate(kind Kind) error {
	switch kind {
	case KindPredict:
		if strings.TrimSpace(s.InputFile) == "" {
			return Errf(ErrInvalidInput, "predict requires input_file")
		}
	case KindBatch:
		if len(s.Files) == 0 && strings.TrimSpace(s.InputDir) == "" {
			return Errf(ErrInvalidInput, "batch requires files or input_dir")
		}
	case KindAnalyze:
		hasFile := strings.TrimSpace(s.InputFile) != ""
		hasSeq := strings.TrimSpace(s.Sequence) != ""
		if !hasFile && !hasSeq {
			return Errf(ErrInvalidInput, "analyze requires input_file or sequence")
		}
		if hasSeq && strings.TrimSpace(s.SequenceID) == "" {
			return Errf(ErrInvalidInput, "sequence_id is required when using sequence")
		}
	default:
		return Errf(ErrInvalidInput, "unknown job kind %q", kind)
	}
	return nil
}

// ErrorInfo is the recorded failure of a job. Present iff state is failed.
type ErrorInfo struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// MemberResult records the outcome of one batch member.
type MemberResult struct {
	Input     string            `json:"input"`
	Status    string            `json:"status"` // success or error
	Artifacts map[string]string `json:"artifacts,omitempty"`
	Error     string            `json:"error,omitempty"`
	Seconds   float64           `json:"seconds"`
}

// ResultRef points at artifact locations for a completed job.
// Present iff state is completed.
type ResultRef struct {
	// Artifacts maps artifact label (csv, prediction, composition, log,
	// analysis) to its on-disk path.
	Artifacts map[string]string `json:"artifacts,omitempty"`

	// Analysis carries inline analysis output for analyze jobs that do
	// not produce files.
	Analysis map[string]any `json:"analysis,omitempty"`

	// Members holds per-file outcomes for batch jobs.
	Members []MemberResult `json:"members,omitempty"`
}

// Record is the persistent job record written to job.json.
//
// The schema is designed for backward-compatible extension (additive fields).
type Record struct {
	ID    string    `json:"job_id"`
	Name  string    `json:"name,omitempty"`
	Kind  Kind      `json:"kind"`
	Spec  InputSpec `json:"input_spec"`
	State State     `json:"state"`

	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	Error  *ErrorInfo `json:"error,omitempty"`
	Result *ResultRef `json:"result,omitempty"`

	// CancelRequested is set by a cancel call before the runner observes
	// it at a checkpoint. Distinct from State.
	CancelRequested bool `json:"cancel_requested,omitempty"`
}
