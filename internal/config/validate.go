package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateSubjects(); err != nil {
		return err
	}
	if err := c.validateTimings(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateAPI() error {
	if c.API.Key == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/subjectsort/config.toml"
		}
		return fmt.Errorf("api.key is required. Set SUBJECTSORT_API_KEY env var or edit %s (create with 'subjectsort config init')", defaultPath)
	}
	if c.API.BaseURL == "" {
		return errors.New("api.base_url must be set")
	}
	if c.API.Model == "" {
		return errors.New("api.model must be set")
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.SourceDir == "" {
		return errors.New("paths.source_dir must be set to the directory to sort")
	}
	if c.Paths.TargetDir == "" {
		return errors.New("paths.target_dir must be set to the destination root")
	}
	if c.Paths.SourceDir == c.Paths.TargetDir {
		return errors.New("paths.source_dir and paths.target_dir must differ")
	}
	return nil
}

func (c *Config) validateSubjects() error {
	set := c.SubjectSet()
	if set.Len() < 2 {
		return errors.New("subjects.labels must name at least one label besides the fallback")
	}
	return nil
}

func (c *Config) validateTimings() error {
	return ensurePositiveMap(map[string]int{
		"api.timeout_seconds":           c.API.TimeoutSeconds,
		"ocr.render_dpi":                c.OCR.RenderDPI,
		"ocr.max_pages":                 c.OCR.MaxPages,
		"audio.clip_seconds":            c.Audio.ClipSeconds,
		"notifications.request_timeout": c.Notifications.RequestTimeout,
	})
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
