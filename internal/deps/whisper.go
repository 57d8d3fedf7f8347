package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Install names whisper.cpp has shipped its transcriber under. The project
// renamed the binary from "main" to "whisper-cli" in v1.7.2, and Homebrew
// packaged it as "whisper-cpp" before following suit.
var whisperFallbackNames = []string{"whisper-cli", "whisper-cpp"}

// CheckWhisper reports the transcription binary audio extraction will run.
// The configured command wins; when it does not resolve, the known
// whisper.cpp install names are tried so the status output points at a
// binary that would actually work.
func CheckWhisper(configured string) Status {
	result := Status{
		Name:        "Whisper",
		Description: "Required for local audio transcription",
	}

	candidates := make([]string, 0, len(whisperFallbackNames)+1)
	if trimmed := strings.TrimSpace(configured); trimmed != "" {
		candidates = append(candidates, trimmed)
	}
	for _, name := range whisperFallbackNames {
		if len(candidates) > 0 && candidates[0] == name {
			continue
		}
		candidates = append(candidates, name)
	}

	for _, name := range candidates {
		if resolved, err := exec.LookPath(name); err == nil {
			result.Command = resolved
			result.Available = true
			return result
		}
	}

	result.Command = candidates[0]
	result.Detail = fmt.Sprintf("binary %q not found", candidates[0])
	return result
}
