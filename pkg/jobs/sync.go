package jobs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RunSync executes one operation inline on the caller's goroutine, bypassing
// the worker pool entirely, so short work never competes for pool slots.
//
// Validation and the error taxonomy are identical to submit+result combined.
// No job id is issued and nothing is recorded in the job index; the run gets
// its own working directory under the data dir, with a run.log next to the
// artifacts.
func (m *Manager) RunSync(ctx context.Context, kind Kind, spec InputSpec) (*ResultRef, error) {
	if err := spec.Validate(kind); err != nil {
		return nil, err
	}

	runDir := filepath.Join(m.cfg.DataDir, "sync", uuid.New().String())
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return nil, fmt.Errorf("create sync run dir: %w", err)
	}
	sink, err := OpenLogSink(filepath.Join(runDir, "run.log"))
	if err != nil {
		return nil, err
	}
	defer func() { _ = sink.Close() }()

	r := &runner{
		m:           m,
		exec:        m.exec,
		kind:        kind,
		spec:        spec,
		workDir:     runDir,
		sink:        sink,
		execTimeout: m.cfg.ExecTimeout,
	}

	var res *ResultRef
	switch kind {
	case KindPredict:
		res, err = r.runPredict(ctx)
	case KindAnalyze:
		res, err = r.runAnalyze(ctx)
	case KindBatch:
		res, err = r.runBatch(ctx)
	default:
		err = Errf(ErrInvalidInput, "unknown job kind %q", kind)
	}
	if err != nil {
		m.log.Warn("sync run failed",
			zap.String("kind", string(kind)),
			zap.String("error_kind", string(KindOf(err))),
			zap.Error(err))
		return nil, err
	}
	return res, nil
}
