// Package storyapi is the HTTP client for the story backend.
package storyapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/alkime/storytime/internal/story"
	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultBaseURL         = "http://localhost:8000"
	DefaultRequestTimeout  = 15 * time.Second
	DefaultGenerateTimeout = 3 * time.Minute

	detailTTL     = 30 * time.Minute
	detailCleanup = time.Hour
	maxBodyBytes  = 8 << 20
)

// Config configures a Client. Zero durations take the defaults.
type Config struct {
	BaseURL         string
	RequestTimeout  time.Duration
	GenerateTimeout time.Duration
	HTTPClient      *http.Client
}

// Upload is an encoded recording to submit.
type Upload struct {
	Data        []byte
	Filename    string
	ContentType string
}

// StatusError is a non-2xx response from the backend.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Code, e.Body)
}

// Client talks to the story backend. Story details are immutable, so fetched
// and created stories are cached by id.
type Client struct {
	baseURL         *url.URL
	httpClient      *http.Client
	requestTimeout  time.Duration
	generateTimeout time.Duration

	details *cache.Cache
	fetches singleflight.Group
}

// NewClient creates a client for the backend at conf.BaseURL.
func NewClient(conf Config) (*Client, error) {
	if conf.BaseURL == "" {
		conf.BaseURL = DefaultBaseURL
	}

	base, err := url.Parse(conf.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL %q: scheme must be http or https", conf.BaseURL)
	}

	if conf.RequestTimeout <= 0 {
		conf.RequestTimeout = DefaultRequestTimeout
	}

	if conf.GenerateTimeout <= 0 {
		conf.GenerateTimeout = DefaultGenerateTimeout
	}

	if conf.HTTPClient == nil {
		conf.HTTPClient = &http.Client{}
	}

	return &Client{
		baseURL:         base,
		httpClient:      conf.HTTPClient,
		requestTimeout:  conf.RequestTimeout,
		generateTimeout: conf.GenerateTimeout,
		details:         cache.New(detailTTL, detailCleanup),
	}, nil
}

// ListStories returns the story summaries in backend order. On any failure it
// returns an empty list along with an error wrapping story.ErrListUnavailable.
func (c *Client) ListStories(ctx context.Context) ([]story.Summary, error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	var summaries []story.Summary
	if err := c.getJSON(ctx, "/api/stories", &summaries); err != nil {
		return []story.Summary{}, fmt.Errorf("%w: %w", story.ErrListUnavailable, err)
	}

	if summaries == nil {
		summaries = []story.Summary{}
	}

	return summaries, nil
}

// GetStory fetches one story. A non-2xx response wraps story.ErrNotFound;
// transport and decode failures wrap story.ErrFetchFailed.
func (c *Client) GetStory(ctx context.Context, id story.ID) (story.Story, error) {
	if id == "" {
		return story.Story{}, fmt.Errorf("%w: empty id", story.ErrNotFound)
	}

	key := id.String()
	if cached, ok := c.details.Get(key); ok {
		if s, ok := cached.(story.Story); ok {
			return s.Clone(), nil
		}
	}

	val, err, shared := c.fetches.Do(key, func() (any, error) {
		reqCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
		defer cancel()

		var s story.Story
		if err := c.getJSON(reqCtx, "/api/stories/"+url.PathEscape(key), &s); err != nil {
			return nil, err
		}

		c.details.SetDefault(key, s.Clone())

		return s, nil
	})
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			return story.Story{}, fmt.Errorf("%w: %w", story.ErrNotFound, err)
		}

		return story.Story{}, fmt.Errorf("%w: %w", story.ErrFetchFailed, err)
	}

	s, ok := val.(story.Story)
	if !ok {
		return story.Story{}, fmt.Errorf("%w: unexpected return type from singleflight: %T", story.ErrFetchFailed, val)
	}

	if shared {
		slog.Debug("story fetch shared", "id", key)
	}

	return s.Clone(), nil
}

type createOptions struct {
	title string
}

// CreateOption customizes CreateStory.
type CreateOption func(*createOptions)

// WithTitle sends a title for the new story instead of letting the backend pick one.
func WithTitle(title string) CreateOption {
	return func(o *createOptions) {
		o.title = title
	}
}

// CreateStory uploads a recording and returns the generated story. Any
// failure wraps story.ErrGenerationFailed.
func (c *Client) CreateStory(ctx context.Context, upload Upload, opts ...CreateOption) (story.Story, error) {
	var o createOptions
	for _, opt := range opts {
		opt(&o)
	}

	body, contentType, err := encodeUpload(upload, o)
	if err != nil {
		return story.Story{}, fmt.Errorf("%w: %w", story.ErrGenerationFailed, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.generateTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/api/stories"), body)
	if err != nil {
		return story.Story{}, fmt.Errorf("%w: create request: %w", story.ErrGenerationFailed, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	var s story.Story
	if err := c.do(req, &s, http.StatusOK, http.StatusCreated); err != nil {
		return story.Story{}, fmt.Errorf("%w: %w", story.ErrGenerationFailed, err)
	}

	if s.ID != "" {
		c.details.SetDefault(s.ID.String(), s.Clone())
	}

	return s, nil
}

// ResolveURL resolves a possibly relative audio or image locator against the
// backend base URL. Absolute locators are returned unchanged.
func (c *Client) ResolveURL(ref string) string {
	if ref == "" {
		return ""
	}

	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}

	return c.baseURL.ResolveReference(u).String()
}

func (c *Client) endpoint(path string) string {
	return c.baseURL.JoinPath(path).String()
}

func (c *Client) getJSON(ctx context.Context, path string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	return c.do(req, result, http.StatusOK)
}

func (c *Client) do(req *http.Request, result any, accept ...int) error {
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	slog.Debug("story api request",
		"method", req.Method,
		"url", req.URL.String(),
		"status", resp.StatusCode,
		"duration", time.Since(start))

	if !accepted(resp.StatusCode, accept) {
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}

	return nil
}

func accepted(code int, accept []int) bool {
	for _, a := range accept {
		if code == a {
			return true
		}
	}

	return false
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func encodeUpload(upload Upload, o createOptions) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	filename := upload.Filename
	if filename == "" {
		filename = "story.mp3"
	}

	contentType := upload.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="audio"; filename="%s"`, quoteEscaper.Replace(filename)))
	h.Set("Content-Type", contentType)

	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("create audio part: %w", err)
	}

	if _, err := part.Write(upload.Data); err != nil {
		return nil, "", fmt.Errorf("write audio part: %w", err)
	}

	if o.title != "" {
		if err := mw.WriteField("title", o.title); err != nil {
			return nil, "", fmt.Errorf("write title field: %w", err)
		}
	}

	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart body: %w", err)
	}

	return &buf, mw.FormDataContentType(), nil
}
