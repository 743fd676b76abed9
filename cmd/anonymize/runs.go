package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/deck-anonymizer/internal/common"
)

var errNoHistory = errors.New("run history is disabled: set DB_URL or --db")

func newRunsCmd(g *globalFlags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := g.newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			if a.Runs == nil {
				return errNoHistory
			}

			runs, err := a.Runs.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN\tSTARTED\tSTATUS\tFRAGMENTS\tPLANNED\tAPPLIED\tFALLBACK\tSOURCE")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%t\t%s\n",
					r.ID, r.StartedAt.Local().Format(time.DateTime), r.Status,
					r.Fragments, r.Planned, r.Applied, r.Fallback, r.Source)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum runs to list (0 for all)")
	return cmd
}

func newReportCmd(g *globalFlags) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "report <run-id>",
		Short: "Export the rewrites of a recorded run as XLSX",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := common.NewValidator().Field("run-id", args[0], common.UUID).Err(); err != nil {
				return err
			}
			runID := uuid.MustParse(args[0])

			a, err := g.newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			if a.Runs == nil {
				return errNoHistory
			}

			data, err := a.Export.ExportRunXLSX(cmd.Context(), runID)
			if err != nil {
				return err
			}
			if out == "" {
				out = fmt.Sprintf("run-%s.xlsx", runID.String()[:8])
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "report: %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output path (default run-<id>.xlsx)")
	return cmd
}
