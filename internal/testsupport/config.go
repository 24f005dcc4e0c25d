package testsupport

import (
	"path/filepath"
	"testing"

	"lectern/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config whose tools point at passthrough stub scripts
// and whose ledger lives in a per-test temp directory. Options apply last.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Tools.LexiconExtender = StubExtender(t, base)
	cfg.Tools.LangBuilder = StubLangBuilder(t, base)
	cfg.Tools.GraphCompiler = StubGraphCompiler(t, base)
	cfg.Tools.ModelInfo = StubModelInfo(t, base, 100)
	cfg.Tools.GrammarSynthesizer = ""
	cfg.Ledger.Enabled = false
	cfg.Ledger.Path = filepath.Join(base, "ledger.db")
	cfg.Compile.Workers = 2

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithLedger enables the run ledger on the test config.
func WithLedger() ConfigOption {
	return func(cfg *config.Config) {
		cfg.Ledger.Enabled = true
	}
}

// WithWorkers overrides the normalization worker count.
func WithWorkers(n int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Compile.Workers = n
	}
}
