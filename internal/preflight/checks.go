package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"subjectsort/internal/classify"
	"subjectsort/internal/config"
	"subjectsort/internal/deps"
	"subjectsort/internal/extract"
)

// CheckAPI verifies the classification endpoint accepts the configured
// credentials and model. One request, a 30-second cap, no retries.
func CheckAPI(ctx context.Context, cfg *config.Config) Result {
	const name = "Classification API"

	if strings.TrimSpace(cfg.API.Key) == "" {
		return Result{Name: name, Detail: "API key missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client := classify.NewClient(classify.ConfigFrom(cfg), cfg.SubjectSet())
	if err := client.Ping(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeAPIError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckOCRLanguage verifies the tesseract language data for the configured
// recognition language is installed. Missing data makes every OCR call fail
// at run time, which the cascade would silently absorb as catch-all labels.
func CheckOCRLanguage(ctx context.Context, cfg *config.Config) Result {
	const name = "OCR language data"

	lang := extract.TesseractLang(cfg.OCR.Language)
	binary := cfg.TesseractBinary()
	if _, err := exec.LookPath(binary); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("cannot verify: binary %q not found", binary)}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	args := []string{"--list-langs"}
	if dir := strings.TrimSpace(cfg.OCR.TessdataDir); dir != "" {
		args = append(args, "--tessdata-dir", dir)
	}
	// tesseract prints the language list to stderr on some builds.
	output, err := exec.CommandContext(checkCtx, binary, args...).CombinedOutput()
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("cannot list languages: %v", err)}
	}
	for _, line := range strings.Split(string(output), "\n") {
		if strings.TrimSpace(line) == lang {
			return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%q installed", lang)}
		}
	}
	return Result{Name: name, Detail: fmt.Sprintf("language data %q not installed", lang)}
}

// CheckSystemDeps evaluates the external binaries the enabled features need.
// The run and check commands both use this so the requirements list exists
// once. Archive support needs no binaries; its readers are linked in.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	var statuses []deps.Status
	if cfg.Features.OCR {
		statuses = append(statuses, deps.CheckBinaries([]deps.Requirement{
			{
				Name:        "Tesseract",
				Command:     cfg.TesseractBinary(),
				Description: "Required for image and scanned-PDF recognition",
			},
			{
				Name:        "pdftoppm",
				Command:     cfg.PDFToPPMBinary(),
				Description: "Required for rendering PDF pages before recognition",
			},
		})...)
	}
	if cfg.Features.Audio {
		statuses = append(statuses, deps.CheckBinaries([]deps.Requirement{
			{
				Name:        "FFmpeg",
				Command:     cfg.FFmpegBinary(),
				Description: "Required for clipping audio before transcription",
			},
		})...)
		if strings.TrimSpace(cfg.Audio.WhisperModel) != "" {
			whisper := deps.CheckWhisper(cfg.Audio.WhisperBinary)
			whisper.Optional = cfg.Audio.RemoteFallback
			statuses = append(statuses, whisper)
		}
	}
	return statuses
}

// summarizeAPIError produces a short summary for endpoint check failures.
func summarizeAPIError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "check timed out (endpoint unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "check timed out (endpoint unreachable)"
	}
	return err.Error()
}
