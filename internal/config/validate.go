package config

import (
	"errors"
	"fmt"
	"strings"

	"lectern/internal/services"
)

// Validate ensures the configuration is usable. Failures carry the
// configuration error marker so the CLI can classify them.
func (c *Config) Validate() error {
	checks := []func() error{
		c.validateTools,
		c.validateCompile,
		c.validateWeights,
		c.validateLabels,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return services.Wrap(services.ErrConfiguration, "config", "validate", "", err)
		}
	}
	return nil
}

func (c *Config) validateTools() error {
	required := []struct {
		key   string
		value string
	}{
		{"tools.lexicon_extender", c.Tools.LexiconExtender},
		{"tools.lang_builder", c.Tools.LangBuilder},
		{"tools.graph_compiler", c.Tools.GraphCompiler},
		{"tools.model_info", c.Tools.ModelInfo},
	}
	for _, tool := range required {
		if strings.TrimSpace(tool.value) == "" {
			return fmt.Errorf("%s must be set", tool.key)
		}
	}
	return nil
}

func (c *Config) validateCompile() error {
	if c.Compile.TransitionScale <= 0 {
		return errors.New("compile.transition_scale must be positive")
	}
	if c.Compile.SelfLoopScale <= 0 {
		return errors.New("compile.self_loop_scale must be positive")
	}
	if c.Compile.Workers < 0 {
		return errors.New("compile.workers must not be negative")
	}
	return nil
}

func (c *Config) validateWeights() error {
	odds := []struct {
		key   string
		value float64
	}{
		{"weights.correct", c.Weights.Correct},
		{"weights.rubbish", c.Weights.Rubbish},
		{"weights.skip", c.Weights.Skip},
		{"weights.repeat", c.Weights.Repeat},
		{"weights.jump_forward", c.Weights.JumpForward},
		{"weights.jump_backward", c.Weights.JumpBackward},
		{"weights.truncation", c.Weights.Truncation},
		{"weights.premature_end", c.Weights.PrematureEnd},
	}
	for _, w := range odds {
		if w.value <= 0 {
			return fmt.Errorf("%s must be positive", w.key)
		}
	}
	if c.Weights.FinalState < 0 {
		return errors.New("weights.final_state must not be negative")
	}
	return nil
}

func (c *Config) validateLabels() error {
	if strings.TrimSpace(c.Labels.Rubbish) == "" {
		return errors.New("labels.rubbish must be set")
	}
	if strings.ContainsAny(c.Labels.Rubbish, " \t") {
		return errors.New("labels.rubbish must not contain whitespace")
	}
	if strings.TrimSpace(c.Labels.Skip) == "" {
		return errors.New("labels.skip must be set")
	}
	if strings.ContainsAny(c.Labels.TruncationSuffix, " \t") {
		return errors.New("labels.truncation_suffix must not contain whitespace")
	}
	return nil
}
