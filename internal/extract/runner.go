package extract

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// CommandRunner executes an external tool and returns its stdout. Tests
// inject fakes through WithCommandRunner so no real binaries run.
type CommandRunner func(ctx context.Context, name string, args ...string) (string, error)

func runCommand(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = strings.TrimSpace(stdout.String())
		}
		if detail == "" {
			return "", fmt.Errorf("%s: %w", name, err)
		}
		return "", fmt.Errorf("%s: %w: %s", name, err, summarizeOutput(detail))
	}
	return stdout.String(), nil
}

// summarizeOutput collapses tool output onto one line and caps it so a
// chatty stderr does not flood the log.
func summarizeOutput(output string) string {
	collapsed := strings.Join(strings.Fields(output), " ")
	runes := []rune(collapsed)
	if len(runes) <= 200 {
		return collapsed
	}
	return string(runes[:200]) + "..."
}
