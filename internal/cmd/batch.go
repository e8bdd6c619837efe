package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/seqforge/prosol/pkg/manifest"
)

var batchCmd = &cobra.Command{
	Use:   "batch <manifest>",
	Short: "Run a batch described by a manifest file",
	Long: `Run the operation described by a YAML or JSON manifest and wait for
it to finish. Each batch member runs as its own pipeline invocation; a member
failure is recorded and the remaining members still run.

Example manifest:

  version: "1.0"
  kind: batch
  name: liter-screen
  input:
    dir: ./sequences
  output:
    dir: ./out`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().Bool("json", false, "Output as JSON")
}

func runBatch(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	m, err := manifest.Load(args[0])
	if err != nil {
		return err
	}
	kind, spec, err := m.Spec()
	if err != nil {
		return err
	}

	res, err := runSync(kind, spec)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(res)
	}

	if len(res.Members) > 0 {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "INPUT\tSTATUS\tSECONDS\tERROR")
		for _, mr := range res.Members {
			errMsg := mr.Error
			if errMsg == "" {
				errMsg = "-"
			}
			_, _ = fmt.Fprintf(w, "%s\t%s\t%.1f\t%s\n", mr.Input, mr.Status, mr.Seconds, errMsg)
		}
		_ = w.Flush()
	}
	for key, path := range res.Artifacts {
		_, _ = fmt.Fprintf(os.Stdout, "%s: %s\n", key, path)
	}

	return nil
}
