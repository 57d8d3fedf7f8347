package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAPI()
	c.normalizeSubjects()
	c.normalizeScan()
	c.normalizeWorkers()
	c.normalizeOCR()
	c.normalizeAudio()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.SourceDir) != "" {
		if c.Paths.SourceDir, err = expandPath(c.Paths.SourceDir); err != nil {
			return fmt.Errorf("paths.source_dir: %w", err)
		}
	}
	if strings.TrimSpace(c.Paths.TargetDir) != "" {
		if c.Paths.TargetDir, err = expandPath(c.Paths.TargetDir); err != nil {
			return fmt.Errorf("paths.target_dir: %w", err)
		}
	}
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeAPI() {
	c.API.Key = strings.TrimSpace(c.API.Key)
	if c.API.Key == "" {
		if value, ok := os.LookupEnv("SUBJECTSORT_API_KEY"); ok {
			c.API.Key = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("OPENAI_API_KEY"); ok {
			c.API.Key = strings.TrimSpace(value)
		}
	}
	c.API.BaseURL = strings.TrimRight(strings.TrimSpace(c.API.BaseURL), "/")
	if c.API.BaseURL == "" {
		c.API.BaseURL = defaultBaseURL
	}
	c.API.Model = strings.TrimSpace(c.API.Model)
	if c.API.Model == "" {
		c.API.Model = defaultModel
	}
	c.API.Referer = strings.TrimSpace(c.API.Referer)
	c.API.Title = strings.TrimSpace(c.API.Title)
	if c.API.TimeoutSeconds <= 0 {
		c.API.TimeoutSeconds = defaultAPITimeout
	}
}

func (c *Config) normalizeSubjects() {
	labels := make([]string, 0, len(c.Subjects.Labels))
	for _, label := range c.Subjects.Labels {
		if trimmed := strings.TrimSpace(label); trimmed != "" {
			labels = append(labels, trimmed)
		}
	}
	c.Subjects.Labels = labels
	c.Subjects.Fallback = strings.TrimSpace(c.Subjects.Fallback)
}

func (c *Config) normalizeScan() {
	if len(c.Scan.Extensions) == 0 {
		return
	}
	exts := make([]string, 0, len(c.Scan.Extensions))
	seen := make(map[string]struct{}, len(c.Scan.Extensions))
	for _, ext := range c.Scan.Extensions {
		normalized := strings.ToLower(strings.TrimSpace(ext))
		normalized = strings.TrimPrefix(normalized, ".")
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		exts = append(exts, normalized)
	}
	c.Scan.Extensions = exts
}

func (c *Config) normalizeWorkers() {
	if c.Workers.Count < 0 {
		c.Workers.Count = 0
	}
}

func (c *Config) normalizeOCR() {
	c.OCR.Language = strings.TrimSpace(c.OCR.Language)
	if c.OCR.Language == "" {
		c.OCR.Language = defaultOCRLanguage
	}
	c.OCR.TessdataDir = strings.TrimSpace(c.OCR.TessdataDir)
	if c.OCR.RenderDPI <= 0 {
		c.OCR.RenderDPI = defaultRenderDPI
	}
	if c.OCR.MaxPages <= 0 {
		c.OCR.MaxPages = defaultPDFMaxPages
	}
}

func (c *Config) normalizeAudio() {
	c.Audio.Language = strings.TrimSpace(c.Audio.Language)
	if c.Audio.Language == "" {
		c.Audio.Language = defaultAudioLanguage
	}
	c.Audio.WhisperBinary = strings.TrimSpace(c.Audio.WhisperBinary)
	if c.Audio.WhisperBinary == "" {
		c.Audio.WhisperBinary = defaultWhisperBinary
	}
	c.Audio.WhisperModel = strings.TrimSpace(c.Audio.WhisperModel)
	if c.Audio.ClipSeconds <= 0 {
		c.Audio.ClipSeconds = defaultClipSeconds
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
