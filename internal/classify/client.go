package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"subjectsort/internal/config"
	"subjectsort/internal/logging"
	"subjectsort/internal/services"
	"subjectsort/internal/subject"
)

const defaultHTTPTimeout = 30 * time.Second

// Config captures the runtime settings required to call the endpoint.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	TimeoutSeconds int
	SystemPrompt   string
	ContentPrompt  string
}

// Client wraps an OpenAI-compatible chat completion endpoint behind a
// closed subject label set.
type Client struct {
	cfg        Config
	subjects   subject.Set
	httpClient *http.Client
	logger     *slog.Logger
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger attaches a logger for request and reply tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// ConfigFrom flattens the relevant application settings into a client
// configuration.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		APIKey:         cfg.API.Key,
		BaseURL:        cfg.API.BaseURL,
		Model:          cfg.API.Model,
		Referer:        cfg.API.Referer,
		Title:          cfg.API.Title,
		TimeoutSeconds: cfg.API.TimeoutSeconds,
		SystemPrompt:   cfg.SystemPrompt(),
		ContentPrompt:  cfg.ContentPrompt(),
	}
}

// NewClient constructs a classification client from the supplied
// configuration and label set.
func NewClient(cfg Config, subjects subject.Set, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			Model:          strings.TrimSpace(cfg.Model),
			Referer:        strings.TrimSpace(cfg.Referer),
			Title:          strings.TrimSpace(cfg.Title),
			TimeoutSeconds: cfg.TimeoutSeconds,
			SystemPrompt:   strings.TrimSpace(cfg.SystemPrompt),
			ContentPrompt:  cfg.ContentPrompt,
		},
		subjects:   subjects,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = "https://api.openai.com/v1"
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return client
}

// Classify sends one chat completion request for the supplied content and
// scans the reply for the earliest label occurrence. A reply naming no
// label resolves to the fallback. The request is never retried; callers
// decide what a failure means.
func (c *Client) Classify(ctx context.Context, content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", services.Wrap(services.ErrValidation, "classify", "validate input",
			"classification content is empty", nil)
	}
	if c.cfg.APIKey == "" {
		return "", services.Wrap(services.ErrConfiguration, "classify", "validate credentials",
			"api key required", nil)
	}

	payload := chatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: c.cfg.SystemPrompt},
			{Role: "user", Content: c.cfg.ContentPrompt + content},
		},
		Temperature: 0,
	}

	requestID := uuid.NewString()
	logger := logging.WithContext(ctx, c.logger).With(
		logging.String(logging.FieldCorrelationID, requestID))
	started := time.Now()
	logger.Debug("classification request",
		logging.String("model", c.cfg.Model),
		logging.Int("content_runes", utf8.RuneCountInString(content)),
	)

	reply, err := c.sendChatRequest(ctx, payload)
	if err != nil {
		return "", err
	}

	label, matched := c.subjects.ScanFirst(reply)
	if !matched {
		label = c.subjects.Fallback()
		logger.Debug("reply named no label",
			logging.String(logging.FieldReason, "no_label_in_reply"),
			logging.String("reply_snippet", summarizeSnippet(reply)),
		)
	}
	logger.Debug("classification response",
		logging.String(logging.FieldSubject, label),
		logging.Duration("elapsed", time.Since(started)),
	)
	return label, nil
}

// Ping verifies the endpoint accepts the configured credentials and model.
// It sends a minimal completion request; the reply text is discarded.
func (c *Client) Ping(ctx context.Context) error {
	if c.cfg.APIKey == "" {
		return services.Wrap(services.ErrConfiguration, "classify", "validate credentials",
			"api key required", nil)
	}
	payload := chatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: c.cfg.SystemPrompt},
			{Role: "user", Content: "ping"},
		},
		Temperature: 0,
	}
	_, err := c.sendChatRequest(ctx, payload)
	return err
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatReplyMessage `json:"message"`
		// Some providers return the streaming schema (delta) even when
		// stream is off, so tolerate it as a fallback.
		Delta chatReplyMessage `json:"delta"`
		// Legacy completion-style responses carry a bare text field.
		Text string `json:"text"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type chatReplyMessage struct {
	Content string `json:"content"`
}

func (c *Client) sendChatRequest(ctx context.Context, payload chatCompletionRequest) (string, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}
	endpoint := c.cfg.BaseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.Referer != "" {
		req.Header.Set("HTTP-Referer", c.cfg.Referer)
		req.Header.Set("Referer", c.cfg.Referer)
	}
	if c.cfg.Title != "" {
		req.Header.Set("X-Title", c.cfg.Title)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeoutErr(err) {
			return "", services.Wrap(services.ErrTimeout, "classify", "chat completion",
				fmt.Sprintf("no reply within %s", c.timeoutDuration()), err)
		}
		return "", services.Wrap(services.ErrTransient, "classify", "chat completion",
			"request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "classify", "read reply", "", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", services.Wrap(services.ErrExternalTool, "classify", "chat completion",
			fmt.Sprintf("endpoint returned http %d: %s", resp.StatusCode, summarizeSnippet(string(body))), nil)
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "classify", "decode reply",
			summarizeSnippet(string(body)), err)
	}
	if completion.Error != nil && strings.TrimSpace(completion.Error.Message) != "" {
		return "", services.Wrap(services.ErrExternalTool, "classify", "chat completion",
			"api error: "+strings.TrimSpace(completion.Error.Message), nil)
	}

	reply := extractReply(completion)
	if reply == "" {
		return "", services.Wrap(services.ErrExternalTool, "classify", "chat completion",
			"reply contained no content", nil)
	}
	return reply, nil
}

func (c *Client) timeoutDuration() time.Duration {
	if c == nil || c.httpClient == nil || c.httpClient.Timeout <= 0 {
		return defaultHTTPTimeout
	}
	return c.httpClient.Timeout
}

func extractReply(completion chatCompletionResponse) string {
	for _, choice := range completion.Choices {
		if content := firstNonEmpty(choice.Message.Content, choice.Delta.Content, choice.Text); content != "" {
			return content
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func isTimeoutErr(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func summarizeSnippet(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "<empty>"
	}
	replacer := strings.NewReplacer("\r", " ", "\n", " ", "\t", " ")
	clean := replacer.Replace(trimmed)
	clean = strings.Join(strings.Fields(clean), " ")
	const limit = 160
	runes := []rune(clean)
	if len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	return clean
}
