package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/deck-anonymizer/internal/app"
)

func newRunCmd(g *globalFlags) *cobra.Command {
	var out, report string
	cmd := &cobra.Command{
		Use:   "run <deck.pptx>",
		Short: "Anonymize one deck",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.AnonymizeFile(cmd.Context(), args[0], out, false)
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), res)
			if report != "" {
				if err := a.WriteReport(cmd.Context(), res, report); err != nil {
					return fmt.Errorf("report: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "report: %s\n", report)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output path (default <deck>.anon.pptx)")
	cmd.Flags().StringVar(&report, "report", "", "write an XLSX rewrite report")
	return cmd
}

func printResult(w io.Writer, res app.FileResult) {
	o := res.Outcome
	fmt.Fprintf(w, "%s: %s (fragments %d, local %d, remote %d, planned %d, applied %d",
		res.Input, o.Status, o.Fragments, o.LocalClassified, o.RemoteClassified, len(o.Planned), o.Applied)
	if o.Fallback {
		fmt.Fprint(w, ", fallback")
	}
	fmt.Fprintln(w, ")")
	if res.Output != "" {
		fmt.Fprintf(w, "  -> %s\n", res.Output)
	}
	fmt.Fprintf(w, "  run %s\n", o.RunID)
}
