package grammar

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"lectern/internal/services"
)

var commandContext = exec.CommandContext

// Command synthesizes grammars by invoking an external tool once per
// utterance. The tool receives the prompt on stdin and must write a
// text-form acceptor to stdout.
type Command struct {
	binary         string
	homophonesPath string
	rubbishLabel   string
}

// NewCommand constructs a command-backed synthesizer.
func NewCommand(binary, homophonesPath, rubbishLabel string) (*Command, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, fmt.Errorf("synthesizer command required")
	}
	return &Command{binary: binary, homophonesPath: homophonesPath, rubbishLabel: rubbishLabel}, nil
}

// Synthesize runs the external tool for one prompt. A non-zero exit or
// unparseable output is an external-tool failure; it is never retried.
func (c *Command) Synthesize(ctx context.Context, id string, prompt []string) (*Grammar, error) {
	args := []string{"--rubbish-label", c.rubbishLabel}
	if c.homophonesPath != "" {
		args = append(args, "--homophones", c.homophonesPath)
	}

	cmd := commandContext(ctx, c.binary, args...)
	cmd.Stdin = strings.NewReader(strings.Join(prompt, " ") + "\n")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return nil, services.Wrap(services.ErrExternalTool, "synthesize", c.binary,
			fmt.Sprintf("utterance %s: %s", id, detail), err)
	}

	g, err := ParseText(id, &stdout)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "synthesize", c.binary,
			fmt.Sprintf("utterance %s produced unparseable grammar", id), err)
	}
	return g, nil
}

var _ Synthesizer = (*Command)(nil)
