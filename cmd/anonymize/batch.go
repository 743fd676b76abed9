package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/deck-anonymizer/internal/ingest"
	"github.com/joseph-ayodele/deck-anonymizer/internal/pptx"
)

func newBatchCmd(g *globalFlags) *cobra.Command {
	var (
		workers    int
		skipHidden bool
		dryRun     bool
	)
	cmd := &cobra.Command{
		Use:   "batch <dir>",
		Short: "Anonymize every deck under a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			paths, stats, err := ingest.ScanDirectory(args[0], ingest.ScanOptions{
				SkipHidden: skipHidden,
				Ignore:     pptx.IsOutput,
			})
			if err != nil {
				return err
			}
			a.Logger.Info("ingest.scan.done", "root", args[0], "scanned", stats.Scanned, "matched", stats.Matched, "skipped", stats.Skipped)
			if len(paths) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "no decks found under %s\n", args[0])
				return nil
			}

			if workers <= 0 {
				workers = a.Cfg.Anonymizer.Workers
			}
			out := cmd.OutOrStdout()
			results, bstats := ingest.Batch{Workers: workers, Logger: a.Logger}.Run(cmd.Context(), paths,
				func(ctx context.Context, path string) error {
					res, err := a.AnonymizeFile(ctx, path, "", dryRun)
					if err != nil {
						return err
					}
					a.Logger.Info("batch.file.done", "path", path, "status", res.Outcome.Status, "applied", res.Outcome.Applied)
					return nil
				})

			for _, r := range results {
				if r.Err != nil {
					fmt.Fprintf(out, "FAIL %s: %v\n", r.Path, r.Err)
				}
			}
			fmt.Fprintf(out, "%d decks: %d ok, %d failed, %d skipped\n",
				bstats.Total, bstats.Succeeded, bstats.Failed, bstats.Skipped)
			if bstats.Failed > 0 {
				return fmt.Errorf("%d of %d decks failed", bstats.Failed, bstats.Total)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "parallel decks (default WORKERS)")
	cmd.Flags().BoolVar(&skipHidden, "skip-hidden", true, "skip hidden files, hidden directories and Office lock files")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "plan only, write nothing")
	return cmd
}
