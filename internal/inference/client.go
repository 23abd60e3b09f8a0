// Package inference is the credentialed client for the external AI service
// that turns text or whole documents into diagnosis text.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// defaultEngine is the hardcoded file-parser fallback when neither the call
// options nor the environment select one.
const defaultEngine = "pdf-text"

// Config for the inference client.
type Config struct {
	BaseURL string        // default https://openrouter.ai/api/v1
	Model   string        // default model for all submissions
	Engine  string        // environment default for the file-parser engine
	Referer string        // optional HTTP-Referer header
	Title   string        // optional X-Title header
	Timeout time.Duration // http client timeout
}

// Options customize a single submission.
type Options struct {
	Prompt   string
	Filename string
	Engine   string // explicit engine wins over Config.Engine and the default
	Model    string
	Context  string // prior diagnosis attached for the revalidation pass
}

// Client submits documents and text to the inference service.
type Client struct {
	cfg    Config
	cred   Credential
	http   *http.Client
	logger *slog.Logger
}

// NewClient resolves the credential variant once. A zero credential is
// accepted here but every Submit call fails fast with ErrMissingCredentials.
func NewClient(cfg Config, cred Credential, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://openrouter.ai/api/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "openai/gpt-4o-mini"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		cred:   cred,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// SubmitText sends extracted text plus the instruction prompt (the
// text-path call).
func (c *Client) SubmitText(ctx context.Context, text string, opts Options) (string, error) {
	msg := message{Role: "user", Content: []contentPart{
		textPart(opts.Prompt),
		textPart(text),
	}}
	return c.complete(ctx, chatRequest{
		Model:    c.model(opts),
		Messages: []message{msg},
	})
}

// SubmitDocumentInline sends a document as an inline base64 payload. A bare
// payload gets the canonical data-URL prefix exactly once.
func (c *Client) SubmitDocumentInline(ctx context.Context, encoded string, opts Options) (string, error) {
	return c.submitDocument(ctx, ensureDataURL(encoded), opts)
}

// SubmitDocumentBytes is SubmitDocumentInline over raw bytes.
func (c *Client) SubmitDocumentBytes(ctx context.Context, data []byte, opts Options) (string, error) {
	return c.SubmitDocumentInline(ctx, EncodeDocument(data), opts)
}

// SubmitDocumentURL sends a document by public reference instead of inline
// bytes.
func (c *Client) SubmitDocumentURL(ctx context.Context, url string, opts Options) (string, error) {
	return c.submitDocument(ctx, url, opts)
}

func (c *Client) submitDocument(ctx context.Context, fileData string, opts Options) (string, error) {
	filename := opts.Filename
	if filename == "" {
		filename = "document.pdf"
	}

	content := []contentPart{
		textPart(opts.Prompt),
		fileDataPart(filename, fileData),
	}
	if opts.Context != "" {
		// Revalidation attaches the prior diagnosis for cross-checking.
		content = append(content, textPart("Previous diagnosis under review:\n"+opts.Context))
	}

	return c.complete(ctx, chatRequest{
		Model:    c.model(opts),
		Messages: []message{{Role: "user", Content: content}},
		Plugins: []plugin{{
			ID:  "file-parser",
			PDF: pdfPlugin{Engine: c.engine(opts)},
		}},
	})
}

func (c *Client) model(opts Options) string {
	if opts.Model != "" {
		return opts.Model
	}
	return c.cfg.Model
}

func (c *Client) engine(opts Options) string {
	if opts.Engine != "" {
		return opts.Engine
	}
	if c.cfg.Engine != "" {
		return c.cfg.Engine
	}
	return defaultEngine
}

func (c *Client) complete(ctx context.Context, body chatRequest) (string, error) {
	if c.cred.IsZero() {
		return "", ErrMissingCredentials
	}

	rid := uuid.New().String()
	start := time.Now()
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"

	bs, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bs))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.cred.apply(req.Header)
	if c.cfg.Referer != "" {
		req.Header.Set("HTTP-Referer", c.cfg.Referer)
	}
	if c.cfg.Title != "" {
		req.Header.Set("X-Title", c.cfg.Title)
	}

	c.logger.Info("inference.request",
		"req_id", rid, "model", body.Model,
		"messages", len(body.Messages), "content_length", len(bs))

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("inference.send_error",
			"req_id", rid, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return "", fmt.Errorf("inference http error: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Warn("inference.body_close_error", "req_id", rid, "error", cerr)
		}
	}()

	raw, _ := io.ReadAll(resp.Body)

	c.logger.Info("inference.response",
		"req_id", rid, "status", resp.StatusCode,
		"bytes", len(raw), "elapsed_ms", time.Since(start).Milliseconds())

	if resp.StatusCode/100 != 2 {
		return "", normalizeUpstreamError(resp.StatusCode, raw)
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content json.RawMessage `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(cc.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	text := normalizeContent(cc.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// normalizeUpstreamError extracts error.message or a bare error string from
// the body, maps the known cookie-auth rejection to a stable message, and
// synthesizes one when nothing usable is present.
func normalizeUpstreamError(status int, raw []byte) *UpstreamError {
	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	msg := ""
	if err := json.Unmarshal(raw, &envelope); err == nil && len(envelope.Error) > 0 {
		var obj struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(envelope.Error, &obj); err == nil && obj.Message != "" {
			msg = obj.Message
		} else {
			var s string
			if err := json.Unmarshal(envelope.Error, &s); err == nil {
				msg = s
			}
		}
	}

	switch {
	case strings.Contains(msg, "No cookie auth credentials found"):
		msg = credentialsRejectedMsg
	case msg == "":
		msg = fmt.Sprintf("request failed, status=%d", status)
	}
	return &UpstreamError{Status: status, Message: msg}
}
