package pdf

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

// Ensure ExecRunner implements the interface.
var _ driven.CommandRunner = (*ExecRunner)(nil)

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run executes name with args and returns stdout. Stderr is folded into
// the error on failure.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s", err, msg)
	}
	return stdout.Bytes(), nil
}
