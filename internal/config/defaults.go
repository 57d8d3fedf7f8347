package config

import "subjectsort/internal/subject"

const (
	defaultBaseURL        = "https://api.openai.com/v1"
	defaultModel          = "gpt-4o-mini"
	defaultAPITimeout     = 30
	defaultWorkDir        = "~/.local/share/subjectsort/work"
	defaultLogDir         = "~/.local/share/subjectsort/logs"
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
	defaultLogRetention   = 60
	defaultOCRLanguage    = "zh"
	defaultRenderDPI      = 200
	defaultPDFMaxPages    = 2
	defaultAudioLanguage  = "zh"
	defaultWhisperBinary  = "whisper-cli"
	defaultClipSeconds    = 30
	defaultNotifyTimeout  = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		API: API{
			BaseURL:        defaultBaseURL,
			Model:          defaultModel,
			TimeoutSeconds: defaultAPITimeout,
		},
		Paths: Paths{
			WorkDir: defaultWorkDir,
			LogDir:  defaultLogDir,
		},
		Subjects: Subjects{
			Labels:   append([]string(nil), subject.DefaultLabels...),
			Fallback: subject.DefaultFallback,
		},
		Features: Features{
			OCR:     true,
			Audio:   true,
			Archive: true,
		},
		OCR: OCR{
			Language:  defaultOCRLanguage,
			RenderDPI: defaultRenderDPI,
			MaxPages:  defaultPDFMaxPages,
		},
		Audio: Audio{
			Language:       defaultAudioLanguage,
			WhisperBinary:  defaultWhisperBinary,
			ClipSeconds:    defaultClipSeconds,
			RemoteFallback: true,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetention,
		},
	}
}
