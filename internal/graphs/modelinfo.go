package graphs

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"lectern/internal/services"
)

// test seam
var modelInfoCommand = exec.CommandContext

// NumPDFs asks the model info tool how many probability density functions
// the acoustic model carries. Downstream decoders size their tables from
// this count, so it travels with the graph table as a sidecar.
func NumPDFs(ctx context.Context, binary, modelPath string) (int, error) {
	cmd := modelInfoCommand(ctx, binary, modelPath) //nolint:gosec
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			if detail := strings.TrimSpace(string(exitErr.Stderr)); detail != "" {
				err = fmt.Errorf("%w: %s", err, tail(detail, 512))
			}
		}
		return 0, services.Wrap(services.ErrExternalTool, "graphs", binary, "", err)
	}

	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "number of pdfs") {
			continue
		}
		fields := strings.Fields(line)
		n, convErr := strconv.Atoi(fields[len(fields)-1])
		if convErr != nil || n <= 0 {
			return 0, services.Wrap(services.ErrExternalTool, "graphs", binary,
				fmt.Sprintf("unparseable pdf count in %q", line), nil)
		}
		return n, nil
	}
	return 0, services.Wrap(services.ErrExternalTool, "graphs", binary,
		"output carried no pdf count", nil)
}
