package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/seqforge/prosol/pkg/jobs"
	"github.com/seqforge/prosol/pkg/results"
)

var predictCmd = &cobra.Command{
	Use:   "predict <fasta-file>",
	Short: "Predict solubility for sequences in a FASTA file",
	Long: `Run the solubility prediction pipeline over a single FASTA file and
wait for the result. For large inputs or many files, submit a batch job to a
running server instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runPredict,
}

func init() {
	rootCmd.AddCommand(predictCmd)

	predictCmd.Flags().String("prefix", "", "Prefix for result artifact names (default: input file stem)")
	predictCmd.Flags().Bool("show", false, "Print the per-sequence predictions table")
	predictCmd.Flags().Bool("json", false, "Output as JSON")
}

func runPredict(cmd *cobra.Command, args []string) error {
	prefix, _ := cmd.Flags().GetString("prefix")
	show, _ := cmd.Flags().GetBool("show")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	res, err := runSync(jobs.KindPredict, jobs.InputSpec{
		InputFile:    args[0],
		OutputPrefix: prefix,
	})
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(res)
	}

	for key, path := range res.Artifacts {
		_, _ = fmt.Fprintf(os.Stdout, "%s: %s\n", key, path)
	}

	if show {
		csvPath, ok := res.Artifacts["csv"]
		if !ok {
			return fmt.Errorf("no results csv in artifacts")
		}
		preds, err := results.ParseFile(csvPath)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(os.Stdout)
		printPredictions(preds)
	}

	return nil
}

func printPredictions(preds []results.Prediction) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer func() { _ = w.Flush() }()

	_, _ = fmt.Fprintln(w, "ID\tSCALED SOL\tPERCENT SOL\tPOPULATION SOL\tPI")
	for _, p := range preds {
		_, _ = fmt.Fprintf(w, "%s\t%.3f\t%.3f\t%.3f\t%.2f\n",
			p.ID, p.ScaledSol, p.PercentSol, p.PopulationSol, p.PI)
	}
}
