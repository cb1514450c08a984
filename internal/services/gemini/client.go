package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"deepcheck/internal/services/llm"
)

const (
	defaultBaseURL     = "https://generativelanguage.googleapis.com/v1beta"
	defaultUploadURL   = "https://generativelanguage.googleapis.com/upload/v1beta/files"
	defaultModel       = "gemini-2.5-flash"
	defaultHTTPTimeout = 120 * time.Second
	apiKeyHeader       = "x-goog-api-key"
)

// File states reported by the Files API.
const (
	StateProcessing = "PROCESSING"
	StateActive     = "ACTIVE"
	StateFailed     = "FAILED"
)

var (
	// ErrFileFailed reports that the service could not process an uploaded file.
	ErrFileFailed = errors.New("gemini: file processing failed")
	// ErrPollExhausted reports that a file never became ACTIVE within the poll bounds.
	ErrPollExhausted = errors.New("gemini: file not ready before poll limit")
	// ErrBlocked reports a prompt or candidate blocked by safety filters.
	ErrBlocked = errors.New("gemini: response blocked")
)

// Config captures the runtime settings required to talk to Gemini.
type Config struct {
	APIKey         string
	BaseURL        string
	UploadURL      string
	Model          string
	TimeoutSeconds int
}

// File mirrors the Files API resource.
type File struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	MimeType    string `json:"mimeType"`
	SizeBytes   string `json:"sizeBytes,omitempty"`
	URI         string `json:"uri"`
	State       string `json:"state"`
	Error       *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Client talks to the Gemini REST API.
type Client struct {
	cfg        Config
	httpClient *http.Client
	retry      llm.RetryPolicy
	sleep      func(context.Context, time.Duration) error
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

// WithRetryPolicy replaces the retry policy used for individual requests.
func WithRetryPolicy(policy llm.RetryPolicy) Option {
	return func(c *Client) { c.retry = policy }
}

// WithPollSleeper replaces the wait between readiness polls (tests).
func WithPollSleeper(sleep func(context.Context, time.Duration) error) Option {
	return func(c *Client) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// NewClient constructs a Gemini client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	c := &Client{
		cfg: Config{
			APIKey:    strings.TrimSpace(cfg.APIKey),
			BaseURL:   strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			UploadURL: strings.TrimSpace(cfg.UploadURL),
			Model:     strings.TrimSpace(cfg.Model),
		},
		httpClient: &http.Client{Timeout: timeout},
		retry:      llm.DefaultRetryPolicy(),
	}
	if c.cfg.BaseURL == "" {
		c.cfg.BaseURL = defaultBaseURL
	}
	if c.cfg.UploadURL == "" {
		c.cfg.UploadURL = defaultUploadURL
	}
	if c.cfg.Model == "" {
		c.cfg.Model = defaultModel
	}
	c.sleep = c.retry.Sleep
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model reports the configured model name.
func (c *Client) Model() string { return c.cfg.Model }

// Upload sends the file at path using the resumable upload protocol.
func (c *Client) Upload(ctx context.Context, path, mimeType, displayName string) (File, error) {
	if c.cfg.APIKey == "" {
		return File{}, errors.New("gemini upload: api key required")
	}
	info, err := os.Stat(path)
	if err != nil {
		return File{}, fmt.Errorf("gemini upload: stat: %w", err)
	}
	size := info.Size()

	meta, err := json.Marshal(map[string]any{"file": map[string]string{"display_name": displayName}})
	if err != nil {
		return File{}, fmt.Errorf("gemini upload: encode metadata: %w", err)
	}
	var sessionURL string
	err = c.retry.Do(ctx, "gemini upload start", func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.UploadURL, bytes.NewReader(meta))
		if err != nil {
			return err
		}
		req.Header.Set("X-Goog-Upload-Protocol", "resumable")
		req.Header.Set("X-Goog-Upload-Command", "start")
		req.Header.Set("X-Goog-Upload-Header-Content-Length", strconv.FormatInt(size, 10))
		req.Header.Set("X-Goog-Upload-Header-Content-Type", mimeType)
		req.Header.Set("Content-Type", "application/json")
		resp, body, err := c.do(req)
		if err != nil {
			return err
		}
		sessionURL = resp.Header.Get("X-Goog-Upload-URL")
		if sessionURL == "" {
			return fmt.Errorf("gemini upload start: missing upload url (body: %s)", llm.Snippet(string(body)))
		}
		return nil
	})
	if err != nil {
		return File{}, err
	}

	var out struct {
		File File `json:"file"`
	}
	err = c.retry.Do(ctx, "gemini upload finalize", func(ctx context.Context) error {
		handle, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("gemini upload: open: %w", err)
		}
		defer handle.Close()
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, sessionURL, handle)
		if err != nil {
			return err
		}
		req.ContentLength = size
		req.Header.Set("X-Goog-Upload-Offset", "0")
		req.Header.Set("X-Goog-Upload-Command", "upload, finalize")
		_, body, err := c.do(req)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(body, &out); err != nil {
			return fmt.Errorf("gemini upload finalize: decode: %w", err)
		}
		return nil
	})
	if err != nil {
		return File{}, err
	}
	if out.File.Name == "" {
		return File{}, errors.New("gemini upload: response missing file name")
	}
	return out.File, nil
}

// GetFile fetches the current state of an uploaded file.
func (c *Client) GetFile(ctx context.Context, name string) (File, error) {
	var file File
	endpoint, err := c.resourceURL(name)
	if err != nil {
		return file, err
	}
	err = c.retry.Do(ctx, "gemini get file", func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		_, body, err := c.do(req)
		if err != nil {
			return err
		}
		return json.Unmarshal(body, &file)
	})
	return file, err
}

// DeleteFile removes an uploaded file. A missing file is not an error.
func (c *Client) DeleteFile(ctx context.Context, name string) error {
	endpoint, err := c.resourceURL(name)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return err
	}
	if _, _, err := c.do(req); err != nil {
		var statusErr *llm.HTTPStatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return nil
		}
		return fmt.Errorf("gemini delete file: %w", err)
	}
	return nil
}

func (c *Client) resourceURL(name string) (string, error) {
	name = strings.TrimPrefix(strings.TrimSpace(name), "/")
	if name == "" {
		return "", errors.New("gemini: file name required")
	}
	return c.cfg.BaseURL + "/" + name, nil
}

// do executes req with the API key attached and returns the body of a 2xx response.
func (c *Client) do(req *http.Request) (*http.Response, []byte, error) {
	req.Header.Set(apiKeyHeader, c.cfg.APIKey)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp, nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return resp, body, llm.NewHTTPStatusError(resp, body)
	}
	return resp, body, nil
}
