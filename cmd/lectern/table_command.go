package main

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"lectern/internal/graphs"
)

func newTableCommand() *cobra.Command {
	tableCmd := &cobra.Command{
		Use:   "table",
		Short: "Inspect a published graph table",
	}
	tableCmd.AddCommand(newTableShowCommand())
	return tableCmd
}

func newTableShowCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "show <model-dir>",
		Short: "Show the graph table under a model directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := filepath.Join(args[0], graphs.TableDirName)
			tbl, err := graphs.ReadTable(dir)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Table: %s\n", tbl.Dir)
			fmt.Fprintf(out, "Graphs: %d  PDFs: %d\n\n", len(tbl.Entries), tbl.NumPDFs)

			entries := tbl.Entries
			truncated := 0
			if limit > 0 && len(entries) > limit {
				truncated = len(entries) - limit
				entries = entries[:limit]
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{e.ID, strconv.FormatInt(e.Offset, 10)})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Utterance", "Offset"},
				rows,
				[]columnAlignment{alignLeft, alignRight},
			))
			if truncated > 0 {
				fmt.Fprintf(out, "... and %d more (raise --limit to see them)\n", truncated)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum entries to list (0 shows all)")
	return cmd
}
