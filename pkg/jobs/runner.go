package jobs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/seqforge/prosol/pkg/analysis"
	"github.com/seqforge/prosol/pkg/fasta"
)

// ExecRequest is one unit of work handed to the pipeline executor.
type ExecRequest struct {
	// InputFile is the FASTA file to process.
	InputFile string

	// WorkDir is an exclusive scratch directory for this execution.
	WorkDir string

	// OutputPrefix determines the artifact file names the executor
	// produces.
	OutputPrefix string

	// CompositionOnly selects the composition/property stages instead of
	// the full prediction pipeline.
	CompositionOnly bool

	// Log receives the executor's combined output line by line as it
	// arrives.
	Log LineWriter
}

// ExecResult is the declared output of one executor call.
type ExecResult struct {
	// Artifacts maps artifact label to the produced file path.
	Artifacts map[string]string

	// ExitCode is the pipeline process exit status.
	ExitCode int
}

// Executor runs one unit of sequence analysis work. Implementations are
// opaque to this package: only exit status, artifact locations, and log text
// cross the boundary.
type Executor interface {
	Execute(ctx context.Context, req ExecRequest) (*ExecResult, error)
}

// runner executes exactly one job. It is bound to that job for its entire
// execution and reports every state transition back through the manager, so
// there is a single writer per record.
type runner struct {
	m    *Manager
	exec Executor

	jobID   string
	kind    Kind
	spec    InputSpec
	workDir string
	sink    *LogSink

	execTimeout time.Duration
}

// run drives the job to a terminal state. The returned error is already
// reported to the manager; it is surfaced only for logging.
func (r *runner) run(ctx context.Context) {
	defer func() { _ = r.sink.Close() }()

	var (
		res *ResultRef
		err error
	)
	switch r.kind {
	case KindPredict:
		res, err = r.runPredict(ctx)
	case KindAnalyze:
		res, err = r.runAnalyze(ctx)
	case KindBatch:
		res, err = r.runBatch(ctx)
	default:
		err = Errf(ErrInternalFault, "runner received unknown kind %q", r.kind)
	}

	switch {
	case err == nil:
		r.m.reportCompleted(r.jobID, res)
	case IsKind(err, errCancelled):
		r.m.reportCancelled(r.jobID)
	default:
		r.sink.WriteLine(fmt.Sprintf("job failed: %v", err))
		r.m.reportFailed(r.jobID, KindOf(err), err.Error())
	}
}

// errCancelled is an internal marker kind: a checkpoint observed the cancel
// flag. It never appears in a persisted record.
const errCancelled ErrorKind = "cancelled"

// execute invokes the executor once under the configured timeout and
// classifies its failure modes at this boundary, so callers upstream see
// structured kinds instead of raw process errors.
func (r *runner) execute(ctx context.Context, req ExecRequest) (*ExecResult, error) {
	execCtx := ctx
	if r.execTimeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, r.execTimeout)
		defer cancel()
	}

	res, err := r.exec.Execute(execCtx, req)
	if err == nil {
		return res, nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(execCtx.Err(), context.DeadlineExceeded) {
		return nil, Errf(ErrTimeout, "executor exceeded %s: %v", r.execTimeout, err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		return nil, Errf(ErrInterrupted, "shutdown while executing: %v", err)
	}
	var classified *Error
	if errors.As(err, &classified) {
		return nil, err
	}
	return nil, Errf(ErrExecutorFailure, "%v", err)
}

func (r *runner) runPredict(ctx context.Context) (*ResultRef, error) {
	prefix := r.spec.OutputPrefix
	if prefix == "" {
		prefix = stem(r.spec.InputFile)
	}

	r.sink.WriteLine(fmt.Sprintf("predicting solubility for %s", r.spec.InputFile))
	res, err := r.execute(ctx, ExecRequest{
		InputFile:    r.spec.InputFile,
		WorkDir:      r.workDir,
		OutputPrefix: filepath.Join(r.workDir, prefix),
		Log:          r.sink,
	})
	if err != nil {
		return nil, err
	}
	return &ResultRef{Artifacts: res.Artifacts}, nil
}

func (r *runner) runAnalyze(ctx context.Context) (*ResultRef, error) {
	inputFile := r.spec.InputFile
	seqID := r.spec.SequenceID

	// Inline sequences are written to a FASTA file in the job's working
	// directory first, same as the file-based path.
	if strings.TrimSpace(r.spec.Sequence) != "" {
		inputFile = filepath.Join(r.workDir, seqID+".fasta")
		if err := fasta.WriteFile(inputFile, seqID, r.spec.Sequence); err != nil {
			return nil, Errf(ErrInternalFault, "write sequence fasta: %v", err)
		}
	}

	seqs, err := fasta.ReadFile(inputFile)
	if err != nil {
		return nil, Errf(ErrInvalidInput, "read fasta: %v", err)
	}
	if len(seqs) == 0 {
		return nil, Errf(ErrInvalidInput, "no sequences in %s", inputFile)
	}

	stats := make(map[string]any, len(seqs))
	for _, sq := range seqs {
		stats[sq.ID] = analysis.BasicStats(sq.Sequence)
	}
	r.sink.WriteLine(fmt.Sprintf("computed basic statistics for %d sequence(s)", len(seqs)))

	if r.spec.BasicOnly {
		return &ResultRef{Analysis: stats}, nil
	}

	prefix := r.spec.OutputPrefix
	if prefix == "" {
		prefix = stem(inputFile)
	}
	r.sink.WriteLine(fmt.Sprintf("running full composition analysis for %s", inputFile))
	res, err := r.execute(ctx, ExecRequest{
		InputFile:       inputFile,
		WorkDir:         r.workDir,
		OutputPrefix:    filepath.Join(r.workDir, prefix),
		CompositionOnly: true,
		Log:             r.sink,
	})
	if err != nil {
		return nil, err
	}
	return &ResultRef{Artifacts: res.Artifacts, Analysis: stats}, nil
}

// runBatch processes each member with its own executor call. Cancellation is
// checked before every member: work already delegated to the executor runs
// to completion, members not yet started are skipped. Member failures do not
// stop the batch; any failure marks the whole job failed once all members
// have been attempted, with completed members' artifacts retained.
func (r *runner) runBatch(ctx context.Context) (*ResultRef, error) {
	members, err := r.batchMembers()
	if err != nil {
		return nil, err
	}
	r.sink.WriteLine(fmt.Sprintf("batch of %d file(s)", len(members)))

	outDir := r.spec.OutputDir
	if outDir == "" {
		outDir = r.workDir
	} else if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, Errf(ErrInternalFault, "create output dir: %v", err)
	}

	results := make([]MemberResult, 0, len(members))
	failed := 0
	for i, input := range members {
		if r.m.cancelRequested(r.jobID) {
			r.sink.WriteLine(fmt.Sprintf("cancellation observed after %d of %d member(s)", i, len(members)))
			return nil, Errf(errCancelled, "cancelled at member checkpoint")
		}
		if err := r.m.waitLaunch(ctx); err != nil {
			return nil, Errf(ErrInternalFault, "launch pacing: %v", err)
		}

		r.sink.WriteLine(fmt.Sprintf("[%d/%d] processing %s", i+1, len(members), input))
		start := time.Now()

		memberDir := filepath.Join(r.workDir, fmt.Sprintf("member-%03d", i+1))
		res, err := r.execute(ctx, ExecRequest{
			InputFile:    input,
			WorkDir:      memberDir,
			OutputPrefix: filepath.Join(outDir, stem(input)),
			Log:          r.sink,
		})

		mr := MemberResult{Input: input, Seconds: time.Since(start).Seconds()}
		if err != nil {
			failed++
			mr.Status = "error"
			mr.Error = err.Error()
			r.sink.WriteLine(fmt.Sprintf("[%d/%d] failed: %v", i+1, len(members), err))
		} else {
			mr.Status = "success"
			mr.Artifacts = res.Artifacts
			r.sink.WriteLine(fmt.Sprintf("[%d/%d] done in %.2fs", i+1, len(members), mr.Seconds))
		}
		results = append(results, mr)
	}

	if failed > 0 {
		// Partial artifacts stay on disk; the job itself is failed.
		return nil, Errf(ErrExecutorFailure, "%d of %d batch member(s) failed", failed, len(members))
	}
	return &ResultRef{Members: results}, nil
}

func (r *runner) batchMembers() ([]string, error) {
	if len(r.spec.Files) > 0 {
		return r.spec.Files, nil
	}
	found, err := fasta.FindFiles(r.spec.InputDir)
	if err != nil {
		return nil, Errf(ErrInvalidInput, "discover fasta files: %v", err)
	}
	if len(found) == 0 {
		return nil, Errf(ErrInvalidInput, "no fasta files found under %s", r.spec.InputDir)
	}
	return found, nil
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
