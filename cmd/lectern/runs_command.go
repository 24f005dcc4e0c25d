package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"lectern/internal/ledger"
)

const timeRounding = 10 * time.Millisecond

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded compilation runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.Ledger.Enabled {
				fmt.Fprintln(cmd.OutOrStdout(), "Run ledger is disabled (set ledger.enabled in the config).")
				return nil
			}

			store, err := ledger.Open(cfg.Ledger.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
				return nil
			}

			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					run.ID,
					run.Status,
					strconv.Itoa(run.Utterances),
					run.StartedAt.Local().Format("2006-01-02 15:04:05"),
					runDuration(run),
					run.ModelDir,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Run", "Status", "Utterances", "Started", "Duration", "Model"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum runs to list (0 shows all)")
	return cmd
}

func runDuration(run ledger.Run) string {
	if run.FinishedAt.IsZero() {
		return "-"
	}
	return run.FinishedAt.Sub(run.StartedAt).Round(timeRounding).String()
}
