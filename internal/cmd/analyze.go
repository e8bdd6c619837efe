package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/seqforge/prosol/pkg/jobs"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [fasta-file]",
	Short: "Analyze sequence composition and properties",
	Long: `Compute composition statistics for protein sequences, from a FASTA
file or an inline sequence.

Basic statistics (length, composition percentages, hydrophobic/charged/polar
fractions) are computed in-process. Without --basic, the full composition and
property analysis of the external pipeline runs as well.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().String("sequence", "", "Inline protein sequence (alternative to a FASTA file)")
	analyzeCmd.Flags().String("id", "", "Sequence identifier for --sequence")
	analyzeCmd.Flags().Bool("basic", false, "Basic in-process statistics only; skip the external pipeline")
	analyzeCmd.Flags().Bool("json", false, "Output as JSON")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	sequence, _ := cmd.Flags().GetString("sequence")
	seqID, _ := cmd.Flags().GetString("id")
	basic, _ := cmd.Flags().GetBool("basic")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	spec := jobs.InputSpec{
		Sequence:   sequence,
		SequenceID: seqID,
		BasicOnly:  basic,
	}
	if len(args) == 1 {
		spec.InputFile = args[0]
	}

	res, err := runSync(jobs.KindAnalyze, spec)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(res)
	}

	for key, path := range res.Artifacts {
		_, _ = fmt.Fprintf(os.Stdout, "%s: %s\n", key, path)
	}
	if len(res.Analysis) > 0 {
		return printJSON(res.Analysis)
	}
	return nil
}
