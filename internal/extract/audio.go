package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"subjectsort/internal/logging"
	"subjectsort/internal/services"
)

// AudioTranscript clips the leading seconds of an audio file, transcribes
// the clip with the local whisper binary, and falls back to the remote
// transcription endpoint when no local model is configured or the local run
// fails.
func (e *Extractor) AudioTranscript(ctx context.Context, path string) (Outcome, error) {
	if e.cfg.WhisperModel == "" && !e.cfg.RemoteFallback {
		return Outcome{}, services.Wrap(services.ErrConfiguration, "extract", "transcribe",
			"no whisper model configured and remote fallback disabled", nil)
	}
	started := time.Now()

	scratch, cleanup, err := e.scratchDir(ScratchAudioPrefix)
	if err != nil {
		return Outcome{}, err
	}
	defer cleanup()

	clip := filepath.Join(scratch, "clip.wav")
	if err := e.clipAudio(ctx, path, clip); err != nil {
		return Outcome{}, err
	}

	var (
		text  string
		route string
	)
	if e.cfg.WhisperModel != "" {
		text, err = e.transcribeLocal(ctx, clip)
		route = RouteAudioLocal
		if err != nil && e.cfg.RemoteFallback {
			e.logger.Warn("local transcription failed",
				logging.String("path", filepath.Base(path)),
				logging.String(logging.FieldReason, "falling back to remote endpoint"),
				logging.Error(err))
			text, err = e.transcribeRemote(ctx, clip)
			route = RouteAudioRemote
		}
	} else {
		text, err = e.transcribeRemote(ctx, clip)
		route = RouteAudioRemote
	}
	if err != nil {
		return Outcome{}, err
	}

	e.logger.Debug("audio transcribed",
		logging.String("path", filepath.Base(path)),
		logging.String("route", route),
		logging.Duration("elapsed", time.Since(started)))
	return Outcome{Text: finishExcerpt(text), Route: route}, nil
}

func (e *Extractor) clipSeconds() int {
	if e.cfg.ClipSeconds <= 0 {
		return 30
	}
	return e.cfg.ClipSeconds
}

// clipAudio converts the leading seconds into 16 kHz mono PCM, the input
// whisper expects.
func (e *Extractor) clipAudio(ctx context.Context, source, destination string) error {
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-t", strconv.Itoa(e.clipSeconds()),
		"-i", source,
		"-vn", "-sn", "-dn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		destination,
	}
	if _, err := e.runner(ctx, ffmpegBinary, args...); err != nil {
		return services.Wrap(services.ErrExternalTool, "extract", "clip audio",
			"ffmpeg failed", err)
	}
	return nil
}

func (e *Extractor) whisperBinary() string {
	if e.cfg.WhisperBinary == "" {
		return "whisper-cli"
	}
	return e.cfg.WhisperBinary
}

func (e *Extractor) transcribeLocal(ctx context.Context, clip string) (string, error) {
	args := []string{
		"-m", e.cfg.WhisperModel,
		"-f", clip,
		"-l", WhisperLang(e.cfg.AudioLanguage),
		"-np",
		"-nt",
	}
	text, err := e.runner(ctx, e.whisperBinary(), args...)
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, "extract", "transcribe",
			"whisper failed", err)
	}
	return text, nil
}

// transcribeRemote posts the clip to the transcriptions endpoint next to
// the chat-completions API.
func (e *Extractor) transcribeRemote(ctx context.Context, clip string) (string, error) {
	if e.cfg.APIKey == "" {
		return "", services.Wrap(services.ErrConfiguration, "extract", "transcribe",
			"remote transcription needs an api key", nil)
	}

	file, err := os.Open(clip)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "extract", "transcribe",
			"cannot open clip", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(clip))
	if err == nil {
		_, err = io.Copy(part, file)
	}
	if err == nil {
		err = writer.WriteField("model", "whisper-1")
	}
	if err == nil {
		err = writer.WriteField("language", WhisperLang(e.cfg.AudioLanguage))
	}
	if err == nil {
		err = writer.Close()
	}
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "extract", "transcribe",
			"cannot build upload", err)
	}

	endpoint := strings.TrimRight(e.cfg.BaseURL, "/") + "/audio/transcriptions"
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "extract", "transcribe",
			"cannot build request", err)
	}
	request.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)
	request.Header.Set("Content-Type", writer.FormDataContentType())

	response, err := e.httpClient.Do(request)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "extract", "transcribe",
			"request failed", err)
	}
	defer response.Body.Close()

	payload, err := io.ReadAll(response.Body)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "extract", "transcribe",
			"cannot read reply", err)
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return "", services.Wrap(services.ErrExternalTool, "extract", "transcribe",
			fmt.Sprintf("endpoint returned http %d: %s", response.StatusCode, summarizeOutput(string(payload))), nil)
	}

	var reply struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(payload, &reply); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "extract", "transcribe",
			"cannot decode reply", err)
	}
	return reply.Text, nil
}
