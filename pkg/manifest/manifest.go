// Package manifest provides loading and validation of prosol job manifests.
//
// A job manifest is a YAML or JSON file describing one submission: the job
// kind, its input, and its output targets. Manifests let batch jobs be kept
// in version control and resubmitted verbatim.
//
// Example manifest (YAML):
//
//	version: "1.0"
//	kind: batch
//	name: nightly-proteins
//	input:
//	  dir: data/proteins
//	output:
//	  dir: results
package manifest

import (
	"fmt"
	"strings"

	"github.com/seqforge/prosol/pkg/jobs"
)

// Manifest represents a validated job manifest.
type Manifest struct {
	// Version is the manifest schema version. Must be "1.0".
	Version string `json:"version" yaml:"version"`

	// Kind is the job kind: predict, batch, or analyze.
	Kind string `json:"kind" yaml:"kind"`

	// Name is an optional human label for the job.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Input selects the sequences to process.
	Input InputConfig `json:"input" yaml:"input"`

	// Output configures artifact targets (optional).
	Output OutputConfig `json:"output,omitempty" yaml:"output,omitempty"`

	// BasicOnly restricts an analyze job to in-process statistics.
	BasicOnly bool `json:"basic_only,omitempty" yaml:"basic_only,omitempty"`
}

// InputConfig selects input sequences. Exactly one of File, Files, Dir, or
// Sequence is expected; which ones are legal depends on the kind.
type InputConfig struct {
	File       string   `json:"file,omitempty" yaml:"file,omitempty"`
	Files      []string `json:"files,omitempty" yaml:"files,omitempty"`
	Dir        string   `json:"dir,omitempty" yaml:"dir,omitempty"`
	Sequence   string   `json:"sequence,omitempty" yaml:"sequence,omitempty"`
	SequenceID string   `json:"sequence_id,omitempty" yaml:"sequence_id,omitempty"`
}

// OutputConfig configures artifact naming.
type OutputConfig struct {
	Dir    string `json:"dir,omitempty" yaml:"dir,omitempty"`
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
}

// ApplyDefaults fills optional fields.
func (m *Manifest) ApplyDefaults() {
	if strings.TrimSpace(m.Version) == "" {
		m.Version = "1.0"
	}
}

// Validate checks manifest shape beyond what the job layer validates.
func (m *Manifest) Validate() error {
	if m.Version != "1.0" {
		return fmt.Errorf("manifest: unsupported version %q (want \"1.0\")", m.Version)
	}
	if _, err := jobs.ParseKind(m.Kind); err != nil {
		return fmt.Errorf("manifest: %w", err)
	}
	return nil
}

// Spec converts the manifest into the job kind and input spec it describes.
func (m *Manifest) Spec() (jobs.Kind, jobs.InputSpec, error) {
	kind, err := jobs.ParseKind(m.Kind)
	if err != nil {
		return "", jobs.InputSpec{}, err
	}
	spec := jobs.InputSpec{
		InputFile:    m.Input.File,
		Files:        m.Input.Files,
		InputDir:     m.Input.Dir,
		Sequence:     m.Input.Sequence,
		SequenceID:   m.Input.SequenceID,
		OutputPrefix: m.Output.Prefix,
		OutputDir:    m.Output.Dir,
		BasicOnly:    m.BasicOnly,
	}
	if err := spec.Validate(kind); err != nil {
		return "", jobs.InputSpec{}, err
	}
	return kind, spec, nil
}
