// Package executor runs the protein-sol analysis pipeline as an external
// subprocess. The pipeline is treated as opaque: only exit status, declared
// artifact locations, and log text cross the boundary back to the
// orchestration core.
package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/seqforge/prosol/pkg/jobs"
)

// Assets the pipeline stages need copied into the working directory.
var (
	predictionAssets = []string{
		"multiple_prediction_wrapper_export.sh",
		"fasta_seq_reformat_export.pl",
		"seq_compositions_perc_pipeline_export.pl",
		"server_prediction_seq_export.pl",
		"seq_props_ALL_export.pl",
		"profiles_gather_export.pl",
		"ss_propensities.txt",
		"seq_reference_data.txt",
	}
	compositionAssets = []string{
		"seq_compositions_perc_pipeline_export.pl",
		"seq_props_ALL_export.pl",
		"seq_reference_data.txt",
	}
)

// ProteinSol invokes the protein-sol shell/perl pipeline.
//
// Each Execute call stages the pipeline assets and the input into the
// request's working directory, runs the pipeline there, and renames the
// produced files to prefix-based artifact names. Working directories are
// exclusive to one execution, so concurrent calls never share files.
type ProteinSol struct {
	repoDir string
}

// New creates an executor backed by the pipeline checkout at repoDir.
// Existence of the checkout is not verified here; use Check for an early
// sanity probe, or let the first Execute surface the failure.
func New(repoDir string) (*ProteinSol, error) {
	repoDir = strings.TrimSpace(repoDir)
	if repoDir == "" {
		return nil, fmt.Errorf("executor: pipeline dir is required")
	}
	return &ProteinSol{repoDir: repoDir}, nil
}

// Check verifies the pipeline checkout is present.
func (e *ProteinSol) Check() error {
	if _, err := os.Stat(filepath.Join(e.repoDir, "multiple_prediction_wrapper_export.sh")); err != nil {
		return fmt.Errorf("executor: pipeline not found at %s: %w", e.repoDir, err)
	}
	return nil
}

// Execute implements jobs.Executor.
func (e *ProteinSol) Execute(ctx context.Context, req jobs.ExecRequest) (*jobs.ExecResult, error) {
	if err := os.MkdirAll(req.WorkDir, 0755); err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}

	assets := predictionAssets
	if req.CompositionOnly {
		assets = compositionAssets
	}
	for _, name := range assets {
		if err := copyFile(filepath.Join(e.repoDir, name), filepath.Join(req.WorkDir, name)); err != nil {
			return nil, fmt.Errorf("stage pipeline asset %s: %w", name, err)
		}
	}

	input := filepath.Join(req.WorkDir, "input.fasta")
	if err := copyFile(req.InputFile, input); err != nil {
		return nil, fmt.Errorf("stage input: %w", err)
	}

	if req.CompositionOnly {
		return e.runComposition(ctx, req)
	}
	return e.runPrediction(ctx, req)
}

func (e *ProteinSol) runPrediction(ctx context.Context, req jobs.ExecRequest) (*jobs.ExecResult, error) {
	wrapper := filepath.Join(req.WorkDir, "multiple_prediction_wrapper_export.sh")
	if err := os.Chmod(wrapper, 0755); err != nil {
		return nil, fmt.Errorf("chmod wrapper: %w", err)
	}

	code, err := e.runCommand(ctx, req, "bash", "multiple_prediction_wrapper_export.sh", "input.fasta")
	if err != nil {
		return nil, err
	}

	// Pipeline output names are fixed relative to the staged input name.
	artifacts, err := collectArtifacts(req.WorkDir, req.OutputPrefix, map[string]artifactSpec{
		"csv":         {src: "input.fasta-protein_sol.csv", suffix: "_solubility_results.csv"},
		"prediction":  {src: "input.fasta-protein_sol_prediction.txt", suffix: "_detailed_prediction.txt"},
		"composition": {src: "input.fasta-protein_sol_composition.txt", suffix: "_composition.txt"},
		"log":         {src: "input.fasta-protein_sol.log", suffix: "_prediction.log"},
	})
	if err != nil {
		return nil, err
	}
	if _, ok := artifacts["csv"]; !ok {
		return nil, fmt.Errorf("pipeline produced no results csv (exit code %d)", code)
	}
	return &jobs.ExecResult{Artifacts: artifacts, ExitCode: code}, nil
}

func (e *ProteinSol) runComposition(ctx context.Context, req jobs.ExecRequest) (*jobs.ExecResult, error) {
	code, err := e.runCommand(ctx, req, "perl", "seq_compositions_perc_pipeline_export.pl", "input.fasta")
	if err != nil {
		return nil, err
	}
	if code, err = e.runCommand(ctx, req, "perl", "seq_props_ALL_export.pl", "input.fasta"); err != nil {
		return nil, err
	}

	artifacts, err := collectArtifacts(req.WorkDir, req.OutputPrefix, map[string]artifactSpec{
		"composition": {src: "seq_composition.txt", suffix: "_composition_analysis.txt"},
		"properties":  {src: "seq_prediction.txt", suffix: "_properties_analysis.txt"},
	})
	if err != nil {
		return nil, err
	}
	return &jobs.ExecResult{Artifacts: artifacts, ExitCode: code}, nil
}

// runCommand runs one pipeline stage in the working directory, streaming its
// combined output line by line into the request's log. A nonzero exit is an
// error; a context deadline kills the process and surfaces the killed state.
func (e *ProteinSol) runCommand(ctx context.Context, req jobs.ExecRequest, name string, args ...string) (int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = req.WorkDir

	lw := newLineStream(req.Log)
	cmd.Stdout = lw
	cmd.Stderr = lw

	err := cmd.Run()
	lw.Flush()

	if ctx.Err() != nil {
		return -1, ctx.Err()
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), fmt.Errorf("%s exited with code %d", name, exitErr.ExitCode())
		}
		return -1, fmt.Errorf("run %s: %w", name, err)
	}
	return 0, nil
}

type artifactSpec struct {
	src    string
	suffix string
}

// collectArtifacts copies the files the pipeline is known to produce to
// their prefix-based final names. Missing optional outputs are skipped.
func collectArtifacts(workDir, prefix string, specs map[string]artifactSpec) (map[string]string, error) {
	out := make(map[string]string, len(specs))
	for label, spec := range specs {
		src := filepath.Join(workDir, spec.src)
		if _, err := os.Stat(src); err != nil {
			continue
		}
		dst := prefix + spec.suffix
		if err := copyFile(src, dst); err != nil {
			return nil, fmt.Errorf("collect %s artifact: %w", label, err)
		}
		out[label] = dst
	}
	return out, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
