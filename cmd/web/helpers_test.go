package main

import (
	"context"
	"html/template"
	"math"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/bright-bogota/storefront/internal/catalog"
	"github.com/bright-bogota/storefront/internal/menu"
	"github.com/bright-bogota/storefront/internal/nav"
)

func TestNavFromMenu(t *testing.T) {
	items := navFromMenu([]menu.Entry{
		{ID: "home", Title: "Home", SubItems: []menu.Link{{Title: "Inicio", Link: "/"}}},
		{ID: "sale", Title: "Sale", SubItems: []menu.Link{
			{Title: "Tacones", Link: "/sale/heels"},
			{Title: "Sandalias", Link: "/sale/sandals"},
		}},
		{ID: "broken", Title: "Broken"},
	})
	require.Len(t, items, 2)
	assert.Equal(t, nav.Item{Path: "/", LabelKey: "nav.home"}, items[0])
	assert.Equal(t, "/sale/heels", items[1].Path)
	assert.Equal(t, "Sale", items[1].Label)
	assert.Len(t, items[1].Children, 2)

	assert.Equal(t, nav.Main, navFromMenu(nil))
}

func TestSameOriginReferer(t *testing.T) {
	cases := map[string]string{
		"":                                "/cart",
		"http://shop.test/products/x?a=1": "/products/x?a=1",
		"http://evil.test/steal":          "/cart",
		"http://shop.test//evil.test/":    "/cart",
		"/about":                          "/about",
	}
	for ref, want := range cases {
		r := httptest.NewRequest("POST", "http://shop.test/cart/clear", nil)
		if ref != "" {
			r.Header.Set("Referer", ref)
		}
		assert.Equal(t, want, sameOriginReferer(r, "/cart"), "referer %q", ref)
	}
}

func TestFilterProducts(t *testing.T) {
	products := []catalog.Product{
		{SKU: "123456", Name: "Stiletto Essential 90"},
		{SKU: "123458", Name: "Mule Usaquén 40"},
	}
	assert.Len(t, filterProducts(products, ""), 2)
	assert.Len(t, filterProducts(products, "  MULE "), 1)
	assert.Len(t, filterProducts(products, "123456"), 1)
	assert.Empty(t, filterProducts(products, "bota"))
}

func TestParseQuantity(t *testing.T) {
	assert.Equal(t, 3.5, parseQuantity(" 3.5 "))
	assert.True(t, math.IsNaN(parseQuantity("three")))
	assert.True(t, math.IsNaN(parseQuantity("")))
}

func writeTemplate(t *testing.T, dir, name, body string) {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
}

func newTemplateDir(t *testing.T) string {
	dir := t.TempDir()
	writeTemplate(t, dir, "layouts/base.tmpl", `{{define "base"}}<main>{{template "content" .}}</main>{{end}}`)
	writeTemplate(t, dir, "partials/frag.tmpl", `{{define "frag"}}<p>{{.}}</p>{{end}}`)
	writeTemplate(t, dir, "pages/home.tmpl", `{{define "content"}}home{{end}}`)
	writeTemplate(t, dir, "pages/about.tmpl", `{{define "content"}}about{{end}}`)
	return dir
}

func TestParseViewsGivesEachPageItsOwnContent(t *testing.T) {
	dir := newTemplateDir(t)
	set, err := parseViews(os.DirFS(dir), template.FuncMap{})
	require.NoError(t, err)
	require.Len(t, set.pages, 2)

	for name, want := range map[string]string{"home": "<main>home</main>", "about": "<main>about</main>"} {
		rec := httptest.NewRecorder()
		require.NoError(t, set.pages[name].ExecuteTemplate(rec, "base", nil))
		assert.Equal(t, want, rec.Body.String())
	}

	_, err = parseViews(os.DirFS(t.TempDir()), template.FuncMap{})
	assert.Error(t, err, "an empty directory has no templates")
}

func TestViewsWatchInvalidatesOnChange(t *testing.T) {
	dir := newTemplateDir(t)
	v, err := newViews(os.DirFS(dir), template.FuncMap{}, zaptest.NewLogger(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- v.watch(ctx, dir) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	invalidated := func() bool {
		v.mu.RLock()
		defer v.mu.RUnlock()
		return v.set == nil
	}
	// keep touching the file until the watcher is registered and reacts
	require.Eventually(t, func() bool {
		if invalidated() {
			return true
		}
		_ = os.WriteFile(filepath.Join(dir, "pages", "home.tmpl"), []byte(`{{define "content"}}home v2{{end}}`), 0o644)
		return false
	}, 5*time.Second, 50*time.Millisecond)

	set, err := v.load()
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	require.NoError(t, set.pages["home"].ExecuteTemplate(rec, "base", nil))
	assert.Equal(t, "<main>home v2</main>", rec.Body.String())
}
