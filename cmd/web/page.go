package main

import (
	"html/template"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/bright-bogota/storefront/internal/cart"
	"github.com/bright-bogota/storefront/internal/catalog"
	"github.com/bright-bogota/storefront/internal/config"
	"github.com/bright-bogota/storefront/internal/content"
	"github.com/bright-bogota/storefront/internal/format"
	mw "github.com/bright-bogota/storefront/internal/middleware"
	"github.com/bright-bogota/storefront/internal/nav"
	"github.com/bright-bogota/storefront/internal/observability"
	"github.com/bright-bogota/storefront/internal/seo"
)

// PageData is the view model of every full page render.
type PageData struct {
	Page        string
	Title       string
	Lang        string
	Langs       []string
	Path        string
	Query       string
	Nav         []nav.RenderedItem
	Breadcrumbs []nav.Crumb
	SEO         seo.Meta
	JSONLD      []any
	CSRFToken   string
	Analytics   config.AnalyticsConfig
	Cart        CartView

	Featured []ProductView
	Products []ProductView
	Product  *ProductView
	Contact  ContactView
	Content  *content.Page
	Error    *ErrorView
}

// ProductView decorates a catalog product with localized display values.
type ProductView struct {
	catalog.Product
	Href            string
	PriceText       string
	DescriptionHTML template.HTML
}

// ErrorView feeds the status page.
type ErrorView struct {
	Status int
	Title  string
	Body   string
}

// page builds the data shared by all pages: language, navigation, meta tags,
// CSRF token and the visitor's cart. leaf names the last breadcrumb when set.
func (a *app) page(r *http.Request, title, description, leaf string) PageData {
	lang := mw.Lang(r)
	siteName := a.bundle.T(lang, "site.name")
	canonical := absoluteURL(r)

	meta := seo.Page(siteName, title, description, canonical, "")
	meta.Lang = lang

	return PageData{
		Title:       title,
		Lang:        lang,
		Langs:       a.bundle.Supported(),
		Path:        r.URL.Path,
		Query:       strings.TrimSpace(r.URL.Query().Get("q")),
		Nav:         nav.Build(r.URL.Path, a.menu),
		Breadcrumbs: nav.Breadcrumbs(r.URL.Path, a.menu, leaf),
		SEO:         meta,
		CSRFToken:   mw.CSRFToken(r),
		Analytics:   a.cfg.Analytics,
		Cart:        a.cartView(r, false),
	}
}

func (a *app) productView(lang string, p catalog.Product) ProductView {
	return ProductView{
		Product:         p,
		Href:            "/products/" + p.Slug,
		PriceText:       format.Currency(p.Price, a.catalog.Currency, lang),
		DescriptionHTML: content.Markdown(p.Description),
	}
}

func (a *app) productViews(lang string, products []catalog.Product) []ProductView {
	out := make([]ProductView, 0, len(products))
	for _, p := range products {
		out = append(out, a.productView(lang, p))
	}
	return out
}

// CartView is shared by the drawer and the cart page.
type CartView struct {
	Lang     string
	CSRF     string
	Lines    []CartLine
	Count    int
	Subtotal string
	Empty    bool
	Open     bool
	// Target is the element htmx swaps after a line mutation.
	Target string
	// OOB adds the out-of-band header counter to fragment responses.
	OOB bool
}

// CartLine is one rendered cart line; Index addresses it in mutation routes.
type CartLine struct {
	cart.Item
	Index     int
	Href      string
	PriceText string
	TotalText string
}

const (
	targetDrawer   = "#cart-drawer"
	targetCartPage = "#cart-page"
)

// cartView renders the visitor's session cart. A registry failure degrades to
// an empty cart rather than failing the page.
func (a *app) cartView(r *http.Request, oob bool) CartView {
	s, err := a.carts.Get(r.Context(), mw.GetSession(r).ID)
	if err != nil {
		observability.FromContext(r.Context()).Warn("cart unavailable", zap.Error(err))
		s = nil
	}
	return a.buildCartView(r, s, oob)
}

func (a *app) buildCartView(r *http.Request, s *cart.Session, oob bool) CartView {
	lang := mw.Lang(r)
	view := CartView{
		Lang:   lang,
		CSRF:   mw.CSRFToken(r),
		Target: targetDrawer,
		OOB:    oob,
		Empty:  true,
	}
	if r.Header.Get("HX-Target") == strings.TrimPrefix(targetCartPage, "#") || r.URL.Path == "/cart" {
		view.Target = targetCartPage
	}
	if s == nil {
		view.Subtotal = format.Currency(0, a.catalog.Currency, lang)
		return view
	}

	items := s.Cart.Items()
	view.Lines = make([]CartLine, 0, len(items))
	for i, it := range items {
		line := CartLine{
			Item:      it,
			Index:     i,
			PriceText: format.Currency(it.Price, a.catalog.Currency, lang),
			TotalText: format.Currency(it.LineTotal(), a.catalog.Currency, lang),
		}
		if p, err := a.catalog.BySKU(it.SKU); err == nil {
			line.Href = "/products/" + p.Slug
		}
		view.Lines = append(view.Lines, line)
	}
	view.Count = s.Cart.Count()
	view.Subtotal = format.Currency(cart.Subtotal(items), a.catalog.Currency, lang)
	view.Empty = len(items) == 0
	view.Open = s.Drawer.IsOpen()
	return view
}

// absoluteURL rebuilds the public URL of r, honouring X-Forwarded-Proto.
func absoluteURL(r *http.Request) string {
	return baseURL(r) + r.URL.Path
}

func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if p := r.Header.Get("X-Forwarded-Proto"); p == "https" || p == "http" {
		scheme = p
	}
	return scheme + "://" + r.Host
}
