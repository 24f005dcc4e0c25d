package config

const (
	defaultLexiconExtender = "extend_reading_lexicon.sh"
	defaultLangBuilder     = "prepare_reading_lang.sh"
	defaultGraphCompiler   = "compile-train-graphs-fsts"
	defaultModelInfo       = "am-info"

	defaultTransitionScale = 1.0
	defaultSelfLoopScale   = 0.1

	defaultRubbishLabel = "<SPOKEN_NOISE>"
	defaultSkipLabel    = "[SKP]"

	defaultLogFormat = "console"
	defaultLogLevel  = "info"

	defaultLedgerPath = "~/.local/share/lectern/ledger.db"
)

// Default returns a Config populated with repository defaults. The miscue
// weight defaults are relative odds tuned for read-aloud decoding.
func Default() Config {
	return Config{
		Tools: Tools{
			LexiconExtender: defaultLexiconExtender,
			LangBuilder:     defaultLangBuilder,
			GraphCompiler:   defaultGraphCompiler,
			ModelInfo:       defaultModelInfo,
		},
		Compile: Compile{
			TransitionScale: defaultTransitionScale,
			SelfLoopScale:   defaultSelfLoopScale,
		},
		Weights: Weights{
			Correct:      100,
			Rubbish:      5,
			Skip:         10,
			Repeat:       30,
			JumpForward:  5,
			JumpBackward: 5,
			Truncation:   5,
			PrematureEnd: 3,
			FinalState:   0,
		},
		Labels: Labels{
			Rubbish: defaultRubbishLabel,
			Skip:    defaultSkipLabel,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Ledger: Ledger{
			Enabled: true,
			Path:    defaultLedgerPath,
		},
	}
}
