package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"lectern/internal/grammar"
)

func newGrammarCommand(ctx *commandContext) *cobra.Command {
	var homophonesPath string
	var id string

	cmd := &cobra.Command{
		Use:   "grammar <word>...",
		Short: "Print the miscue-tolerant grammar for one prompt",
		Long: `Grammar synthesizes the miscue-tolerant FST for a single prompt and
prints it in OpenFST text form with symbolic labels, before integerization.
Useful for inspecting how the configured weights shape the miscue paths.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			var homophones grammar.Homophones
			if path := strings.TrimSpace(homophonesPath); path != "" {
				if homophones, err = grammar.ReadHomophonesFile(path); err != nil {
					return err
				}
			}

			w := cfg.Weights
			synth, err := grammar.NewBuiltin(grammar.Options{
				Weights: grammar.Weights{
					Correct:      w.Correct,
					Rubbish:      w.Rubbish,
					Skip:         w.Skip,
					Repeat:       w.Repeat,
					JumpForward:  w.JumpForward,
					JumpBackward: w.JumpBackward,
					Truncation:   w.Truncation,
					PrematureEnd: w.PrematureEnd,
					FinalState:   w.FinalState,
				},
				Homophones:       homophones,
				RubbishLabel:     cfg.Labels.Rubbish,
				SkipLabel:        cfg.Labels.Skip,
				TruncationSuffix: cfg.Labels.TruncationSuffix,
			})
			if err != nil {
				return err
			}

			g, err := synth.Synthesize(cmd.Context(), id, args)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), g.Text())
			return nil
		},
	}

	cmd.Flags().StringVar(&homophonesPath, "homophones", "", "Homophone class file (one class per line)")
	cmd.Flags().StringVar(&id, "id", "prompt", "Utterance ID for the emitted grammar")
	return cmd
}
