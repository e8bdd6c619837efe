package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqforge/prosol/pkg/jobs"
)

// validBatchYAML returns a minimal valid batch manifest in YAML format.
func validBatchYAML() string {
	return `version: "1.0"
kind: batch
name: nightly-proteins
input:
  dir: data/proteins
output:
  dir: results
`
}

// validPredictJSON returns a minimal valid predict manifest in JSON format.
func validPredictJSON() string {
	return `{
  "version": "1.0",
  "kind": "predict",
  "input": {
    "file": "data/protein.fasta"
  }
}`
}

func writeManifest(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("yaml by extension", func(t *testing.T) {
		m, err := Load(writeManifest(t, "job.yaml", validBatchYAML()))
		require.NoError(t, err)
		assert.Equal(t, "batch", m.Kind)
		assert.Equal(t, "nightly-proteins", m.Name)
		assert.Equal(t, "data/proteins", m.Input.Dir)
		assert.Equal(t, "results", m.Output.Dir)
	})

	t.Run("json by extension", func(t *testing.T) {
		m, err := Load(writeManifest(t, "job.json", validPredictJSON()))
		require.NoError(t, err)
		assert.Equal(t, "predict", m.Kind)
		assert.Equal(t, "data/protein.fasta", m.Input.File)
	})

	t.Run("unknown extension falls back to yaml", func(t *testing.T) {
		m, err := Load(writeManifest(t, "job.manifest", validBatchYAML()))
		require.NoError(t, err)
		assert.Equal(t, "batch", m.Kind)
	})

	t.Run("unknown extension falls back to json", func(t *testing.T) {
		// Valid JSON is also valid YAML, so the YAML pass handles it.
		m, err := Load(writeManifest(t, "job.manifest", validPredictJSON()))
		require.NoError(t, err)
		assert.Equal(t, "predict", m.Kind)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})
}

func TestLoadFromBytes(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		_, err := LoadFromBytes(nil, "job.yaml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "empty")
	})

	t.Run("unknown fields rejected", func(t *testing.T) {
		_, err := LoadFromBytes([]byte("version: \"1.0\"\nkind: predict\nbogus: true\n"), "job.yaml")
		require.Error(t, err)
	})

	t.Run("version defaulted", func(t *testing.T) {
		m, err := LoadFromBytes([]byte("kind: predict\ninput:\n  file: a.fasta\n"), "job.yaml")
		require.NoError(t, err)
		assert.Equal(t, "1.0", m.Version)
	})

	t.Run("unsupported version", func(t *testing.T) {
		_, err := LoadFromBytes([]byte("version: \"2.0\"\nkind: predict\n"), "job.yaml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported version")
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := LoadFromBytes([]byte("version: \"1.0\"\nkind: guess\n"), "job.yaml")
		require.Error(t, err)
	})
}

func TestManifest_Spec(t *testing.T) {
	t.Run("batch", func(t *testing.T) {
		m, err := LoadFromBytes([]byte(validBatchYAML()), "job.yaml")
		require.NoError(t, err)

		kind, spec, err := m.Spec()
		require.NoError(t, err)
		assert.Equal(t, jobs.KindBatch, kind)
		assert.Equal(t, "data/proteins", spec.InputDir)
		assert.Equal(t, "results", spec.OutputDir)
	})

	t.Run("analyze inline sequence", func(t *testing.T) {
		m, err := LoadFromBytes([]byte(`version: "1.0"
kind: analyze
basic_only: true
input:
  sequence: MKTAYIAKQR
  sequence_id: p1
`), "job.yaml")
		require.NoError(t, err)

		kind, spec, err := m.Spec()
		require.NoError(t, err)
		assert.Equal(t, jobs.KindAnalyze, kind)
		assert.Equal(t, "MKTAYIAKQR", spec.Sequence)
		assert.Equal(t, "p1", spec.SequenceID)
		assert.True(t, spec.BasicOnly)
	})

	t.Run("spec shape validated", func(t *testing.T) {
		m, err := LoadFromBytes([]byte("version: \"1.0\"\nkind: predict\n"), "job.yaml")
		require.NoError(t, err)

		_, _, err = m.Spec()
		require.Error(t, err)
		assert.True(t, jobs.IsKind(err, jobs.ErrInvalidInput))
	})
}
