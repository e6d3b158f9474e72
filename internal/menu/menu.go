package menu

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed menu.yaml
var defaultMenu []byte

const defaultTimeout = 5 * time.Second

// Link is a menu destination.
type Link struct {
	Title string `json:"title" yaml:"title"`
	Link  string `json:"link" yaml:"link"`
}

// Entry is a top-level header menu record.
type Entry struct {
	ID       string `json:"id" yaml:"id"`
	Title    string `json:"title" yaml:"title"`
	SubItems []Link `json:"subItems" yaml:"subItems"`
}

// Href returns the first sub item link, which the header uses as the entry's target.
func (e Entry) Href() string {
	for _, s := range e.SubItems {
		if s.Link != "" {
			return s.Link
		}
	}
	return ""
}

// Client fetches the header menu from the API, falling back to a YAML menu.
type Client struct {
	baseURL  string
	file     string
	http     *http.Client
	logger   *zap.Logger
	fallback []byte
}

// Option customises the Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithFile points the fallback at a YAML file instead of the embedded menu.
func WithFile(path string) Option {
	return func(c *Client) { c.file = strings.TrimSpace(path) }
}

// WithLogger sets the logger used to report remote failures.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient constructs a menu client. When baseURL is empty only the fallback is used.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:     &http.Client{Timeout: defaultTimeout},
		logger:   zap.NewNop(),
		fallback: defaultMenu,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch returns the menu entries. A failing remote is logged and the fallback served;
// an error is returned only when the fallback itself cannot be read.
func (c *Client) Fetch(ctx context.Context) ([]Entry, error) {
	if c.baseURL != "" {
		entries, err := c.fetchRemote(ctx)
		if err == nil {
			return entries, nil
		}
		c.logger.Warn("menu: remote fetch failed, using fallback", zap.Error(err))
	}
	return c.fetchFallback()
}

func (c *Client) fetchRemote(ctx context.Context) ([]Entry, error) {
	endpoint, err := url.JoinPath(c.baseURL, "menu")
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("menu: status %d: %s", resp.StatusCode, drainError(resp.Body))
	}

	var entries []Entry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("menu: decode: %w", err)
	}
	return normalize(entries), nil
}

func (c *Client) fetchFallback() ([]Entry, error) {
	raw := c.fallback
	if c.file != "" {
		b, err := os.ReadFile(c.file)
		if err != nil {
			return nil, fmt.Errorf("menu: read %s: %w", c.file, err)
		}
		raw = b
	}
	var entries []Entry
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("menu: decode fallback: %w", err)
	}
	return normalize(entries), nil
}

// normalize drops entries without a title and sub items without a link.
func normalize(entries []Entry) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		e.Title = strings.TrimSpace(e.Title)
		if e.Title == "" {
			continue
		}
		links := make([]Link, 0, len(e.SubItems))
		for _, s := range e.SubItems {
			s.Link = strings.TrimSpace(s.Link)
			if s.Link == "" {
				continue
			}
			links = append(links, s)
		}
		e.SubItems = links
		out = append(out, e)
	}
	return out
}

func drainError(r io.Reader) string {
	if r == nil {
		return ""
	}
	b, _ := io.ReadAll(io.LimitReader(r, 256))
	return strings.TrimSpace(string(b))
}
