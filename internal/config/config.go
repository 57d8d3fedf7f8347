package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"subjectsort/internal/subject"
)

//go:embed sample_config.toml
var sampleConfig string

// API contains connection settings for the classification endpoint.
type API struct {
	Key            string `toml:"key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Paths contains directory configuration.
type Paths struct {
	SourceDir string `toml:"source_dir"`
	TargetDir string `toml:"target_dir"`
	WorkDir   string `toml:"work_dir"`
	LogDir    string `toml:"log_dir"`
}

// Subjects contains the label set and prompt overrides.
type Subjects struct {
	Labels        []string `toml:"labels"`
	Fallback      string   `toml:"fallback"`
	SystemPrompt  string   `toml:"system_prompt"`
	ContentPrompt string   `toml:"content_prompt"`
}

// Scan contains source directory scanning rules.
type Scan struct {
	Extensions    []string `toml:"extensions"`
	IncludeHidden bool     `toml:"include_hidden"`
}

// Features toggles the content-heavy extraction families. Plain document
// extraction is always available.
type Features struct {
	OCR     bool `toml:"ocr"`
	Audio   bool `toml:"audio"`
	Archive bool `toml:"archive"`
}

// Workers contains pool sizing. A count of zero or below selects automatic
// sizing derived from the file total.
type Workers struct {
	Count int `toml:"count"`
}

// OCR contains settings for image text recognition and PDF page rendering.
type OCR struct {
	Language    string `toml:"language"`
	TessdataDir string `toml:"tessdata_dir"`
	RenderDPI   int    `toml:"render_dpi"`
	MaxPages    int    `toml:"max_pages"`
}

// Audio contains speech-to-text settings.
type Audio struct {
	Language       string `toml:"language"`
	WhisperBinary  string `toml:"whisper_binary"`
	WhisperModel   string `toml:"whisper_model"`
	ClipSeconds    int    `toml:"clip_seconds"`
	RemoteFallback bool   `toml:"remote_fallback"`
}

// Notifications contains ntfy push notification settings.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for subjectsort.
//
// Configuration sections by subsystem:
//   - API: chat-completion endpoint used for classification
//   - Paths: source/target/work/log directories
//   - Subjects: closed label set plus prompt overrides
//   - Scan: extension whitelist and hidden-file handling
//   - Features: OCR, audio, and archive family toggles
//   - Workers: pool sizing (fixed or automatic)
//   - OCR: tesseract language and PDF rendering knobs
//   - Audio: whisper transcription and remote fallback
//   - Notifications: ntfy push settings
//   - Logging: log format, level, and retention
type Config struct {
	API           API           `toml:"api"`
	Paths         Paths         `toml:"paths"`
	Subjects      Subjects      `toml:"subjects"`
	Scan          Scan          `toml:"scan"`
	Features      Features      `toml:"features"`
	Workers       Workers       `toml:"workers"`
	OCR           OCR           `toml:"ocr"`
	Audio         Audio         `toml:"audio"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/subjectsort/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("subjectsort.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the work and log directories. The target
// directory is created best-effort so config load keeps working when the
// destination volume is temporarily offline.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.TargetDir) != "" {
		_ = os.MkdirAll(c.Paths.TargetDir, 0o755)
	}
	return nil
}

// SubjectSet builds the closed label set from the configured labels.
func (c *Config) SubjectSet() subject.Set {
	return subject.New(c.Subjects.Labels, c.Subjects.Fallback)
}

// SystemPrompt returns the system message constraining answers to the label
// set. An explicit override wins; otherwise the prompt is derived from the
// configured labels.
func (c *Config) SystemPrompt() string {
	if prompt := strings.TrimSpace(c.Subjects.SystemPrompt); prompt != "" {
		return prompt
	}
	set := c.SubjectSet()
	return "你是一个文件分类助手。请从以下选项中选择一个：" + strings.Join(set.Labels(), "、")
}

// ContentPrompt returns the user-message prefix placed before each excerpt.
// An explicit override wins; otherwise the prompt is derived from the
// configured labels.
func (c *Config) ContentPrompt() string {
	if prompt := strings.TrimSpace(c.Subjects.ContentPrompt); prompt != "" {
		return prompt
	}
	set := c.SubjectSet()
	labels := set.Labels()
	named := labels[:len(labels)-1]
	return fmt.Sprintf("请判断以下内容属于哪个学科（%s）？如果无法判断，请回答\"%s\"。内容：",
		strings.Join(named, "、"), set.Fallback())
}

// TesseractBinary returns the OCR executable name.
func (c *Config) TesseractBinary() string {
	return "tesseract"
}

// FFmpegBinary returns the audio transcoder executable name.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// PDFToPPMBinary returns the PDF page renderer executable name.
func (c *Config) PDFToPPMBinary() string {
	return "pdftoppm"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
