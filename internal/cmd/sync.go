package cmd

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/seqforge/prosol/internal/observability"
	"github.com/seqforge/prosol/pkg/executor"
	"github.com/seqforge/prosol/pkg/jobs"
)

// runSync runs one operation to completion in-process, bypassing the worker
// pool. The inline manager never reads or reconciles the job index, so these
// commands are safe to run while a server owns the same data dir. Ctrl-C
// cancels the underlying pipeline process.
func runSync(kind jobs.Kind, spec jobs.InputSpec) (*jobs.ResultRef, error) {
	exec, err := executor.New(cfg.Pipeline.Dir)
	if err != nil {
		return nil, err
	}

	mgr, err := jobs.NewSync(jobs.Config{
		DataDir:     cfg.Jobs.DataDir,
		ExecTimeout: cfg.Jobs.ExecTimeout,
		LaunchRate:  cfg.Jobs.LaunchRate,
	}, exec, observability.CLILogger)
	if err != nil {
		return nil, err
	}
	defer mgr.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return mgr.RunSync(ctx, kind, spec)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
