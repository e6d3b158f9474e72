package content

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"path"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed pages
var embedded embed.FS

// ErrNotFound is returned when no language variant of a page exists.
var ErrNotFound = errors.New("content: page not found")

const defaultCacheTTL = 5 * time.Minute

// Page is a localized static page sourced from markdown with YAML front matter.
type Page struct {
	Slug        string
	Lang        string
	Title       string
	Summary     string
	Body        template.HTML
	UpdatedAt   time.Time
	Description string
	Image       string
}

type frontMatter struct {
	Title     string `yaml:"title"`
	Summary   string `yaml:"summary"`
	UpdatedAt string `yaml:"updated_at"`
	SEO       struct {
		Description string `yaml:"description"`
		OGImage     string `yaml:"og_image"`
	} `yaml:"seo"`
}

type cacheEntry struct {
	page    Page
	expires time.Time
}

// Pages reads pages laid out as <lang>/<slug>.md from an fs.FS and caches them for a TTL.
type Pages struct {
	fsys      fs.FS
	fallbacks []string
	ttl       time.Duration
	now       func() time.Time

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

// PagesOption customises Pages.
type PagesOption func(*Pages)

// WithTTL overrides the cache duration. Zero disables caching.
func WithTTL(d time.Duration) PagesOption {
	return func(p *Pages) { p.ttl = d }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) PagesOption {
	return func(p *Pages) {
		if now != nil {
			p.now = now
		}
	}
}

// WithFallbacks sets the languages tried after the requested one.
func WithFallbacks(langs ...string) PagesOption {
	return func(p *Pages) { p.fallbacks = langs }
}

// NewPages builds a page source over fsys. A nil fsys uses the pages shipped with the binary.
func NewPages(fsys fs.FS, opts ...PagesOption) *Pages {
	if fsys == nil {
		sub, err := fs.Sub(embedded, "pages")
		if err != nil {
			panic(err)
		}
		fsys = sub
	}
	p := &Pages{
		fsys:      fsys,
		fallbacks: []string{"es", "en"},
		ttl:       defaultCacheTTL,
		now:       time.Now,
		cache:     map[string]cacheEntry{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Get returns the page for slug in lang, trying the fallback languages in order.
func (p *Pages) Get(slug, lang string) (Page, error) {
	slug = sanitizeSlug(slug)
	if slug == "" {
		return Page{}, ErrNotFound
	}
	lang = strings.ToLower(strings.TrimSpace(lang))

	key := lang + "|" + slug
	if page, ok := p.cached(key); ok {
		return page, nil
	}

	seen := map[string]bool{}
	for _, candidate := range append([]string{lang}, p.fallbacks...) {
		if candidate == "" || seen[candidate] {
			continue
		}
		seen[candidate] = true
		page, err := p.read(slug, candidate)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return Page{}, err
		}
		p.store(key, page)
		return page, nil
	}
	return Page{}, ErrNotFound
}

func (p *Pages) read(slug, lang string) (Page, error) {
	file := path.Join(lang, slug+".md")
	data, err := fs.ReadFile(p.fsys, file)
	if err != nil {
		return Page{}, err
	}
	fm, body := splitFrontMatter(string(data))
	var front frontMatter
	if strings.TrimSpace(fm) != "" {
		if err := yaml.Unmarshal([]byte(fm), &front); err != nil {
			return Page{}, fmt.Errorf("content: parse front matter %s: %w", file, err)
		}
	}
	page := Page{
		Slug:        slug,
		Lang:        lang,
		Title:       strings.TrimSpace(front.Title),
		Summary:     strings.TrimSpace(front.Summary),
		Body:        Markdown(body),
		UpdatedAt:   parseDate(front.UpdatedAt),
		Description: strings.TrimSpace(front.SEO.Description),
		Image:       strings.TrimSpace(front.SEO.OGImage),
	}
	if page.Title == "" {
		page.Title = prettifySlug(slug)
	}
	if page.Description == "" {
		page.Description = page.Summary
	}
	return page, nil
}

func (p *Pages) cached(key string) (Page, bool) {
	if p.ttl <= 0 {
		return Page{}, false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	entry, ok := p.cache[key]
	if !ok || p.now().After(entry.expires) {
		return Page{}, false
	}
	return entry.page, true
}

func (p *Pages) store(key string, page Page) {
	if p.ttl <= 0 {
		return
	}
	p.mu.Lock()
	p.cache[key] = cacheEntry{page: page, expires: p.now().Add(p.ttl)}
	p.mu.Unlock()
}

func splitFrontMatter(input string) (string, string) {
	input = strings.TrimLeft(input, "\ufeff")
	lines := strings.Split(input, "\n")
	if strings.TrimSpace(lines[0]) != "---" {
		return "", input
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			fm := strings.Join(lines[1:i], "\n")
			body := strings.Join(lines[i+1:], "\n")
			return fm, strings.TrimLeft(body, "\n\r")
		}
	}
	return "", input
}

func sanitizeSlug(slug string) string {
	slug = strings.ToLower(strings.TrimSpace(slug))
	for _, r := range slug {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-') {
			return ""
		}
	}
	return slug
}

func parseDate(v string) time.Time {
	v = strings.TrimSpace(v)
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

func prettifySlug(slug string) string {
	parts := strings.Split(slug, "-")
	for i, part := range parts {
		if part == "" {
			continue
		}
		parts[i] = strings.ToUpper(part[:1]) + part[1:]
	}
	return strings.Join(parts, " ")
}
