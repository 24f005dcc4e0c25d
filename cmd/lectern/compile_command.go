package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"lectern/internal/ledger"
	"lectern/internal/logging"
	"lectern/internal/pipeline"
)

func newCompileCommand(ctx *commandContext) *cobra.Command {
	var rubbishLabel string
	var workers int

	cmd := &cobra.Command{
		Use:   "compile <lexicon-dir> <model-dir> <data-dir> <work-dir>",
		Short: "Compile miscue-tolerant decoding graphs for a prompt corpus",
		Long: `Compile reads the prompt corpus at <data-dir>/text, extends the base
pronunciation dictionary in <lexicon-dir> to cover it, builds a language
directory, synthesizes one miscue-tolerant grammar per utterance, and batch
compiles the grammars into an indexed graph table under <model-dir>/graphs.

All intermediate state lives in a run-scoped directory under <work-dir> that
is removed when the run ends.`,
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if label := strings.TrimSpace(rubbishLabel); label != "" {
				cfg.Labels.Rubbish = label
			}
			if workers > 0 {
				cfg.Compile.Workers = workers
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var opts []pipeline.Option
			if cfg.Ledger.Enabled {
				store, ledgerErr := ledger.Open(cfg.Ledger.Path)
				if ledgerErr != nil {
					logger.Warn("run ledger unavailable", logging.Error(ledgerErr))
				} else {
					defer store.Close()
					opts = append(opts, pipeline.WithLedger(store))
				}
			}

			p, err := pipeline.New(cfg, logger, opts...)
			if err != nil {
				return err
			}
			result, err := p.Run(runCtx, pipeline.Request{
				LexiconDir: args[0],
				ModelDir:   args[1],
				CorpusPath: filepath.Join(args[2], "text"),
				WorkDir:    args[3],
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Compiled %d graphs into %s (run %s, %s)\n",
				result.Utterances, result.TableDir, result.RunID, result.Duration.Round(timeRounding))
			return nil
		},
	}

	cmd.Flags().StringVar(&rubbishLabel, "rubbish-label", "", "Override the catch-all label for unmodeled speech")
	cmd.Flags().IntVar(&workers, "workers", 0, "Synthesis worker count (0 uses the configured value)")
	return cmd
}
