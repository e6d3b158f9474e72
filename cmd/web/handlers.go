package main

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bright-bogota/storefront/internal/catalog"
	"github.com/bright-bogota/storefront/internal/content"
	"github.com/bright-bogota/storefront/internal/format"
	"github.com/bright-bogota/storefront/internal/httpx"
	mw "github.com/bright-bogota/storefront/internal/middleware"
	"github.com/bright-bogota/storefront/internal/observability"
	"github.com/bright-bogota/storefront/internal/seo"
)

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// homeHandler renders the landing page: featured slideshow, product grid and contact form.
// A q parameter narrows the grid by product name or SKU.
func (a *app) homeHandler(w http.ResponseWriter, r *http.Request) {
	lang := mw.Lang(r)
	vm := a.page(r, a.bundle.T(lang, "home.title"), a.bundle.T(lang, "site.tagline"), "")
	vm.Featured = a.productViews(lang, a.catalog.Featured())
	vm.Products = a.productViews(lang, filterProducts(a.catalog.List(), vm.Query))
	vm.Contact = a.contactView(r, emptyContactState())
	vm.JSONLD = append(vm.JSONLD, seo.Organization(a.bundle.T(lang, "site.name"), baseURL(r), baseURL(r)+"/assets/images/logo.svg"))
	a.renderPage(w, r, http.StatusOK, "home", vm)
}

func filterProducts(products []catalog.Product, q string) []catalog.Product {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return products
	}
	out := make([]catalog.Product, 0, len(products))
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Name), q) || strings.Contains(p.SKU, q) {
			out = append(out, p)
		}
	}
	return out
}

// productHandler renders the product detail page.
func (a *app) productHandler(w http.ResponseWriter, r *http.Request) {
	lang := mw.Lang(r)
	p, err := a.catalog.BySlug(chi.URLParam(r, "slug"))
	if errors.Is(err, catalog.ErrNotFound) {
		a.notFound(w, r)
		return
	}
	if err != nil {
		a.serverError(w, r, err)
		return
	}

	view := a.productView(lang, p)
	description := format.DecodeString(string(view.DescriptionHTML))
	vm := a.page(r, p.Name, description, p.Name)
	vm.Product = &view

	image := ""
	if img := p.Image(); img != "" {
		image = baseURL(r) + img
	}
	vm.SEO.OG.Image = image
	vm.SEO.Twitter.Image = image
	vm.SEO.OG.Type = "product"
	if image != "" {
		vm.SEO.Twitter.Card = "summary_large_image"
	}
	vm.JSONLD = append(vm.JSONLD,
		seo.Product(p.Name, description, absoluteURL(r), image, p.SKU, &seo.Offer{
			Price:    format.MajorUnits(p.Price, a.catalog.Currency),
			Currency: a.catalog.Currency,
		}),
		seo.BreadcrumbList(a.breadcrumbItems(r, vm)),
	)
	a.renderPage(w, r, http.StatusOK, "product", vm)
}

func (a *app) breadcrumbItems(r *http.Request, vm PageData) []seo.BreadcrumbItem {
	items := make([]seo.BreadcrumbItem, 0, len(vm.Breadcrumbs))
	for _, c := range vm.Breadcrumbs {
		name := c.Label
		if c.LabelKey != "" {
			name = a.bundle.T(vm.Lang, c.LabelKey)
		}
		items = append(items, seo.BreadcrumbItem{Name: name, Item: baseURL(r) + c.Href})
	}
	return items
}

// aboutHandler renders the localized markdown page.
func (a *app) aboutHandler(w http.ResponseWriter, r *http.Request) {
	a.contentPage(w, r, "about")
}

func (a *app) contentPage(w http.ResponseWriter, r *http.Request, slug string) {
	lang := mw.Lang(r)
	page, err := a.pages.Get(slug, lang)
	if errors.Is(err, content.ErrNotFound) {
		a.notFound(w, r)
		return
	}
	if err != nil {
		a.serverError(w, r, err)
		return
	}
	description := page.Description
	if description == "" {
		description = page.Summary
	}
	vm := a.page(r, page.Title, description, "")
	if page.Image != "" {
		vm.SEO.OG.Image = baseURL(r) + page.Image
		vm.SEO.Twitter.Image = vm.SEO.OG.Image
		vm.SEO.Twitter.Card = "summary_large_image"
	}
	vm.Content = &page
	a.renderPage(w, r, http.StatusOK, slug, vm)
}

func (a *app) notFound(w http.ResponseWriter, r *http.Request) {
	a.statusPage(w, r, http.StatusNotFound, "error.not_found.title", "error.not_found.body")
}

func (a *app) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	if mw.IsHTMX(r.Context()) || wantsJSON(r) {
		httpx.WriteError(r.Context(), w, httpx.NewError("method_not_allowed", http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed))
		return
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}

func (a *app) serverError(w http.ResponseWriter, r *http.Request, err error) {
	observability.FromContext(r.Context()).Error("request failed", zap.Error(err))
	a.statusPage(w, r, http.StatusInternalServerError, "error.server.title", "error.server.body")
}

// panicPage is the Recovery fallback; the panic itself is already logged.
func (a *app) panicPage(w http.ResponseWriter, r *http.Request) {
	a.statusPage(w, r, http.StatusInternalServerError, "error.server.title", "error.server.body")
}

func (a *app) statusPage(w http.ResponseWriter, r *http.Request, status int, titleKey, bodyKey string) {
	lang := mw.Lang(r)
	if mw.IsHTMX(r.Context()) || wantsJSON(r) {
		httpx.WriteError(r.Context(), w, httpx.NewError(strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_")), a.bundle.T(lang, bodyKey), status))
		return
	}
	title := a.bundle.T(lang, titleKey)
	vm := a.page(r, title, "", title)
	vm.Error = &ErrorView{Status: status, Title: title, Body: a.bundle.T(lang, bodyKey)}
	a.renderPage(w, r, status, "error", vm)
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
