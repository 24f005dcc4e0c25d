// Package deps checks the external tools the pipeline shells out to.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"lectern/internal/config"
	"lectern/internal/services"
)

// Requirement defines an external tool the pipeline relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a tool.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// FromConfig derives the tool requirements from configuration. The grammar
// synthesizer is optional; the pipeline falls back to the built-in recipes
// when it is not configured.
func FromConfig(cfg *config.Config) []Requirement {
	return []Requirement{
		{
			Name:        "Lexicon extender",
			Command:     cfg.Tools.LexiconExtender,
			Description: "extends the base pronunciation dictionary to cover the corpus",
		},
		{
			Name:        "Language builder",
			Command:     cfg.Tools.LangBuilder,
			Description: "builds the language directory from the extended dictionary",
		},
		{
			Name:        "Graph compiler",
			Command:     cfg.Tools.GraphCompiler,
			Description: "compiles normalized grammars into decoding graphs",
		},
		{
			Name:        "Model info",
			Command:     cfg.Tools.ModelInfo,
			Description: "reports the acoustic model's pdf count",
		},
		{
			Name:        "Grammar synthesizer",
			Command:     cfg.Tools.GrammarSynthesizer,
			Description: "external miscue grammar synthesizer",
			Optional:    true,
		},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// RequireAll fails when any non-optional requirement is unavailable. An
// optional requirement with no configured command passes; a configured but
// missing optional binary fails, since the operator asked for it.
func RequireAll(requirements []Requirement) error {
	var missing []string
	for _, status := range CheckBinaries(requirements) {
		if status.Available {
			continue
		}
		if status.Optional && strings.TrimSpace(status.Command) == "" {
			continue
		}
		missing = append(missing, fmt.Sprintf("%s (%s)", status.Name, status.Detail))
	}
	if len(missing) > 0 {
		return services.Wrap(services.ErrPreconditionMissing, "preflight", "tools",
			strings.Join(missing, "; "), nil)
	}
	return nil
}
