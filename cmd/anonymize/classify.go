package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/deck-anonymizer/internal/fragment"
)

func newClassifyCmd(g *globalFlags) *cobra.Command {
	var report string
	cmd := &cobra.Command{
		Use:   "classify <deck.pptx>",
		Short: "Dry run: print the classification and planned rewrites without writing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.AnonymizeFile(cmd.Context(), args[0], "", true)
			if err != nil {
				return err
			}
			planned := make(map[fragment.Identity]fragment.Rewrite, len(res.Outcome.Planned))
			for _, rw := range res.Outcome.Planned {
				planned[rw.ID] = rw
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KEY\tCATEGORY\tLABEL\tREWRITE")
			for _, c := range res.Outcome.Classifications {
				rewrite := "-"
				if rw, ok := planned[c.ID]; ok {
					rewrite = oneLine(rw.Text)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.ID.Key(), c.Category, c.Label, rewrite)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d fragments, %d rewrites planned\n",
				res.Input, res.Outcome.Fragments, len(res.Outcome.Planned))

			if report != "" {
				if err := a.WriteReport(cmd.Context(), res, report); err != nil {
					return fmt.Errorf("report: %w", err)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&report, "report", "", "write the planned rewrites as XLSX")
	return cmd
}

func oneLine(s string) string {
	return strings.NewReplacer("\r", " / ", "\v", " ", "\n", " ").Replace(s)
}
