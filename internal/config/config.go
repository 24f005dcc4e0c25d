package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Tools names the external collaborator commands. Each entry is either a bare
// binary name resolved via PATH or an absolute path.
type Tools struct {
	// LexiconExtender receives <base-lexicon-dir> <corpus> <out-dir> and must
	// emit an extended pronunciation dictionary covering every prompt word
	// plus the rubbish token, alongside a homophones file.
	LexiconExtender string `toml:"lexicon_extender"`
	// LangBuilder receives <dict-dir> <rubbish-label> <tmp-dir> <lang-dir> and
	// must emit words.txt, phones.txt, L_disambig.fst, and the disambiguation
	// metadata under phones/.
	LangBuilder string `toml:"lang_builder"`
	// GraphCompiler consumes the normalized grammar stream on stdin and writes
	// the graph archive plus scp index.
	GraphCompiler string `toml:"graph_compiler"`
	// ModelInfo prints acoustic model statistics; the pipeline extracts the
	// pdf count from its output.
	ModelInfo string `toml:"model_info"`
	// GrammarSynthesizer optionally replaces the built-in miscue grammar
	// synthesizer with an external command invoked once per utterance. Empty
	// selects the built-in implementation.
	GrammarSynthesizer string `toml:"grammar_synthesizer"`
}

// Compile holds graph-compilation parameters.
type Compile struct {
	// TransitionScale scales transition probabilities. Must be positive.
	TransitionScale float64 `toml:"transition_scale"`
	// SelfLoopScale scales self-loop probabilities. Must be positive. The
	// default 0.1 mildly discourages spurious self-loops relative to true
	// transitions without eliminating them.
	SelfLoopScale float64 `toml:"self_loop_scale"`
	// Workers bounds the synthesis/normalization worker pool. Zero means one
	// worker per CPU.
	Workers int `toml:"workers"`
}

// Weights defines the relative odds of miscue transitions. They are
// normalized per state so outgoing probabilities sum to one, then converted
// to log-semiring costs. FinalState is an actual weight, not an odds value.
type Weights struct {
	Correct      float64 `toml:"correct"`
	Rubbish      float64 `toml:"rubbish"`
	Skip         float64 `toml:"skip"`
	Repeat       float64 `toml:"repeat"`
	JumpForward  float64 `toml:"jump_forward"`
	JumpBackward float64 `toml:"jump_backward"`
	Truncation   float64 `toml:"truncation"`
	PrematureEnd float64 `toml:"premature_end"`
	FinalState   float64 `toml:"final_state"`
}

// Labels names the special non-word labels used on miscue paths.
type Labels struct {
	// Rubbish is the catch-all label for unmodeled speech. The compile
	// command's --rubbish-label flag overrides it.
	Rubbish string `toml:"rubbish"`
	// Skip annotates skipped-word paths on the output side.
	Skip string `toml:"skip"`
	// TruncationSuffix, when set, enables truncated-pronunciation miscue
	// paths; it requires the lexicon extender to emit matching truncated
	// entries (word + suffix) for every prompt word. Empty disables them.
	TruncationSuffix string `toml:"truncation_suffix"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Ledger configures the SQLite run ledger. The ledger is observational: a
// ledger failure never fails a pipeline run.
type Ledger struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Config encapsulates all configuration values for the pipeline.
type Config struct {
	Tools   Tools   `toml:"tools"`
	Compile Compile `toml:"compile"`
	Weights Weights `toml:"weights"`
	Labels  Labels  `toml:"labels"`
	Logging Logging `toml:"logging"`
	Ledger  Ledger  `toml:"ledger"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return ExpandPath("~/.config/lectern/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The second return is
// the resolved path, the third whether a file existed there.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// CreateSample writes the embedded sample configuration to the given path.
func CreateSample(path string) error {
	return os.WriteFile(path, []byte(sampleConfig), 0o644)
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := ExpandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}

	projectPath, err := filepath.Abs("lectern.toml")
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

func (c *Config) normalize() error {
	var err error
	if c.Ledger.Path, err = ExpandPath(c.Ledger.Path); err != nil {
		return fmt.Errorf("ledger.path: %w", err)
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	return nil
}

// ExpandPath resolves a leading tilde and normalizes to an absolute path.
func ExpandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}
