package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/bright-bogota/storefront/internal/content"
	"github.com/bright-bogota/storefront/internal/format"
	"github.com/bright-bogota/storefront/internal/observability"
	"github.com/bright-bogota/storefront/internal/seo"
)

// views caches parsed templates. Each page gets its own clone of the shared
// layouts and partials so every page can define "content".
type views struct {
	fsys   fs.FS
	funcs  template.FuncMap
	logger *zap.Logger

	mu  sync.RWMutex
	set *viewSet
}

type viewSet struct {
	pages map[string]*template.Template
	frags *template.Template
}

func newViews(fsys fs.FS, funcs template.FuncMap, logger *zap.Logger) (*views, error) {
	v := &views{fsys: fsys, funcs: funcs, logger: logger}
	if _, err := v.load(); err != nil {
		return nil, err
	}
	return v, nil
}

func (v *views) load() (*viewSet, error) {
	v.mu.RLock()
	set := v.set
	v.mu.RUnlock()
	if set != nil {
		return set, nil
	}

	set, err := parseViews(v.fsys, v.funcs)
	if err != nil {
		return nil, err
	}
	v.mu.Lock()
	v.set = set
	v.mu.Unlock()
	return set, nil
}

func (v *views) invalidate() {
	v.mu.Lock()
	v.set = nil
	v.mu.Unlock()
}

func parseViews(fsys fs.FS, funcs template.FuncMap) (*viewSet, error) {
	shared, err := template.New("_root").Funcs(funcs).ParseFS(fsys, "layouts/*.tmpl", "partials/*.tmpl")
	if err != nil {
		return nil, err
	}
	files, err := fs.Glob(fsys, "pages/*.tmpl")
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, errors.New("no page templates found under pages/")
	}

	set := &viewSet{pages: make(map[string]*template.Template, len(files)), frags: shared}
	for _, file := range files {
		clone, err := shared.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := clone.ParseFS(fsys, file); err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
		set.pages[strings.TrimSuffix(path.Base(file), ".tmpl")] = clone
	}
	return set, nil
}

// watch drops the template cache whenever a .tmpl file under dir changes.
func (v *views) watch(ctx context.Context, dir string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("template watcher: %w", err)
	}
	defer w.Close()

	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(p)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	v.logger.Info("watching templates", zap.String("dir", dir))

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(ev.Name, ".tmpl") {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				v.invalidate()
				v.logger.Debug("templates invalidated", zap.String("file", ev.Name), zap.String("op", ev.Op.String()))
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			v.logger.Warn("template watcher error", zap.Error(err))
		}
	}
}

func (a *app) templateFuncs() template.FuncMap {
	return template.FuncMap{
		"t": func(lang, key string, args ...any) string {
			return a.bundle.T(lang, key, args...)
		},
		"currency": func(minor int64, lang string) string {
			return format.Currency(minor, a.catalog.Currency, lang)
		},
		"decode":   format.DecodeString,
		"markdown": content.Markdown,
		"jsonld": func(v any) template.JS {
			return template.JS(seo.JSON(v))
		},
		"year": func() int { return time.Now().Year() },
	}
}

// renderPage executes the base layout with the named page's content block.
func (a *app) renderPage(w http.ResponseWriter, r *http.Request, status int, name string, data PageData) {
	set, err := a.views.load()
	if err != nil {
		a.templateError(w, r, name, err)
		return
	}
	tmpl, ok := set.pages[name]
	if !ok {
		a.templateError(w, r, name, fmt.Errorf("unknown page %q", name))
		return
	}
	data.Page = name

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		a.templateError(w, r, name, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// renderTemplate executes a shared fragment, typically as an htmx swap target.
func (a *app) renderTemplate(w http.ResponseWriter, r *http.Request, name string, data any) {
	set, err := a.views.load()
	if err != nil {
		a.templateError(w, r, name, err)
		return
	}
	var buf bytes.Buffer
	if err := set.frags.ExecuteTemplate(&buf, name, data); err != nil {
		a.templateError(w, r, name, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (a *app) templateError(w http.ResponseWriter, r *http.Request, name string, err error) {
	observability.FromContext(r.Context()).Error("template render failed",
		zap.String("template", name),
		zap.Error(err),
	)
	msg := http.StatusText(http.StatusInternalServerError)
	if a.cfg.DevMode {
		msg = fmt.Sprintf("template %s: %v", name, err)
	}
	http.Error(w, msg, http.StatusInternalServerError)
}

// dirExists reports whether p is a readable directory.
func dirExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}
