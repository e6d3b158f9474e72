package main

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bright-bogota/storefront/internal/cart"
	"github.com/bright-bogota/storefront/internal/catalog"
	"github.com/bright-bogota/storefront/internal/format"
	"github.com/bright-bogota/storefront/internal/httpx"
	mw "github.com/bright-bogota/storefront/internal/middleware"
	"github.com/bright-bogota/storefront/internal/observability"
)

var (
	errUnknownProduct  = errors.New("unknown product")
	errUnavailableSize = errors.New("size not offered for product")
	errInvalidQuantity = errors.New("quantity must be a whole number of at least 1")
)

// cartPage renders the cart page.
func (a *app) cartPage(w http.ResponseWriter, r *http.Request) {
	lang := mw.Lang(r)
	title := a.bundle.T(lang, "cart.title")
	vm := a.page(r, title, "", "")
	a.renderPage(w, r, http.StatusOK, "cart", vm)
}

// cartDrawer renders the drawer fragment in its current visibility.
func (a *app) cartDrawer(w http.ResponseWriter, r *http.Request) {
	a.renderTemplate(w, r, "frag_cart_drawer", a.cartView(r, false))
}

// addItem validates the product, size and quantity, merges the line into the
// cart and opens the drawer.
func (a *app) addItem(w http.ResponseWriter, r *http.Request) {
	item, err := a.itemFromForm(r)
	if err != nil {
		a.badRequest(w, r, err)
		return
	}
	s, ok := a.mutateCart(w, r, func(s *cart.Session) {
		s.Cart.AddItem(item)
		s.Drawer.Open()
	})
	if !ok {
		return
	}
	observability.FromContext(r.Context()).Info("cart item added",
		zap.String("sku", item.SKU),
		zap.Int("size", item.Size),
		zap.Int("quantity", item.Quantity),
	)
	if !mw.IsHTMX(r.Context()) {
		http.Redirect(w, r, "/cart", http.StatusSeeOther)
		return
	}
	a.respondCart(w, r, s)
}

func (a *app) itemFromForm(r *http.Request) (cart.Item, error) {
	if err := r.ParseForm(); err != nil {
		return cart.Item{}, err
	}
	p, err := a.catalog.BySKU(strings.TrimSpace(r.PostFormValue("sku")))
	if errors.Is(err, catalog.ErrNotFound) {
		return cart.Item{}, errUnknownProduct
	}
	if err != nil {
		return cart.Item{}, err
	}
	size, err := strconv.Atoi(strings.TrimSpace(r.PostFormValue("size")))
	if err != nil || !p.HasSize(size) {
		return cart.Item{}, errUnavailableSize
	}
	qty := 1
	if raw := strings.TrimSpace(r.PostFormValue("quantity")); raw != "" {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 1 {
			return cart.Item{}, errInvalidQuantity
		}
		qty = int(math.Min(math.Floor(f), cart.MaxQuantity))
	}
	return cart.Item{
		SKU:      p.SKU,
		Name:     p.Name,
		Size:     size,
		Price:    p.Price,
		Quantity: qty,
		Image:    p.Image(),
	}, nil
}

// cartLine applies increase, decrease, quantity or remove to the line at
// {index} of the current list. An index outside the list changes nothing.
func (a *app) cartLine(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		a.notFound(w, r)
		return
	}
	action := chi.URLParam(r, "action")
	var quantity float64
	switch action {
	case "increase", "decrease", "remove":
	case "quantity":
		quantity = parseQuantity(r.PostFormValue("quantity"))
	default:
		a.notFound(w, r)
		return
	}

	s, ok := a.mutateCart(w, r, func(s *cart.Session) {
		items := s.Cart.Items()
		if index < 0 || index >= len(items) {
			return
		}
		line := items[index]
		switch action {
		case "increase":
			s.Cart.Increase(line)
		case "decrease":
			s.Cart.Decrease(line)
		case "quantity":
			s.Cart.UpdateQuantity(line, quantity)
		case "remove":
			s.Cart.Remove(line)
		}
	})
	if !ok {
		return
	}
	a.respondCart(w, r, s)
}

// parseQuantity returns NaN for unparsable input; the store turns it into 1.
func parseQuantity(raw string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

func (a *app) clearCart(w http.ResponseWriter, r *http.Request) {
	s, ok := a.mutateCart(w, r, func(s *cart.Session) { s.Cart.Clear() })
	if !ok {
		return
	}
	a.respondCart(w, r, s)
}

// drawerAction handles open, close and toggle.
func (a *app) drawerAction(w http.ResponseWriter, r *http.Request) {
	action := chi.URLParam(r, "action")
	var fn func(*cart.Drawer)
	switch action {
	case "open":
		fn = (*cart.Drawer).Open
	case "close":
		fn = (*cart.Drawer).Close
	case "toggle":
		fn = (*cart.Drawer).Toggle
	default:
		a.notFound(w, r)
		return
	}
	s, ok := a.mutateCart(w, r, func(s *cart.Session) { fn(s.Drawer) })
	if !ok {
		return
	}
	if !mw.IsHTMX(r.Context()) {
		fallback := "/"
		if s.Drawer.IsOpen() {
			fallback = "/cart"
		}
		http.Redirect(w, r, sameOriginReferer(r, fallback), http.StatusSeeOther)
		return
	}
	a.renderTemplate(w, r, "frag_cart_drawer", a.buildCartView(r, s, false))
}

type cartJSON struct {
	Items    []cart.Item `json:"items"`
	Count    int         `json:"count"`
	Subtotal int64       `json:"subtotal"`
	Currency string      `json:"currency"`
	Open     bool        `json:"open"`
}

// cartItemsJSON exposes the cart for client scripts.
func (a *app) cartItemsJSON(w http.ResponseWriter, r *http.Request) {
	s, err := a.carts.Get(r.Context(), mw.GetSession(r).ID)
	if err != nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("cart_unavailable", err.Error(), http.StatusInternalServerError))
		return
	}
	items := s.Cart.Items()
	httpx.WriteJSON(w, http.StatusOK, cartJSON{
		Items:    items,
		Count:    s.Cart.Count(),
		Subtotal: cart.Subtotal(items),
		Currency: a.catalog.Currency,
		Open:     s.Drawer.IsOpen(),
	})
}

// checkout logs the checkout payload and returns it. Payment is handled elsewhere.
func (a *app) checkout(w http.ResponseWriter, r *http.Request) {
	s, err := a.carts.Get(r.Context(), mw.GetSession(r).ID)
	if err != nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("cart_unavailable", err.Error(), http.StatusInternalServerError))
		return
	}
	payload := cart.BuildCheckout(s.Cart.Items())
	observability.FromContext(r.Context()).Info("checkout requested",
		zap.Int("lines", len(payload.Items)),
		zap.Int64("total", payload.Total),
		zap.Any("items", payload.Items),
	)
	if mw.IsHTMX(r.Context()) {
		lang := mw.Lang(r)
		total := format.Currency(payload.Total, a.catalog.Currency, lang)
		setTrigger(w, "cart:checkout", map[string]any{
			"message": a.bundle.T(lang, "cart.checkout.placed", total),
			"total":   payload.Total,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, payload)
}

// mutateCart runs fn on the visitor's cart session. A failed snapshot save is
// logged only; the in-memory cart has already changed.
func (a *app) mutateCart(w http.ResponseWriter, r *http.Request, fn func(*cart.Session)) (*cart.Session, bool) {
	s, err := a.carts.Mutate(r.Context(), mw.GetSession(r).ID, fn)
	if s == nil {
		a.serverError(w, r, err)
		return nil, false
	}
	if err != nil {
		observability.FromContext(r.Context()).Warn("cart snapshot not saved", zap.Error(err))
	}
	return s, true
}

// respondCart answers a cart mutation: htmx gets the swapped fragment plus an
// out-of-band counter, plain forms are sent back where they came from.
func (a *app) respondCart(w http.ResponseWriter, r *http.Request, s *cart.Session) {
	if !mw.IsHTMX(r.Context()) {
		http.Redirect(w, r, sameOriginReferer(r, "/cart"), http.StatusSeeOther)
		return
	}
	view := a.buildCartView(r, s, true)
	setTrigger(w, "cart:updated", map[string]any{"count": view.Count})
	name := "frag_cart_drawer"
	if view.Target == targetCartPage {
		name = "frag_cart_page"
	}
	a.renderTemplate(w, r, name, view)
}

func (a *app) badRequest(w http.ResponseWriter, r *http.Request, err error) {
	observability.FromContext(r.Context()).Debug("bad request", zap.Error(err))
	if mw.IsHTMX(r.Context()) || wantsJSON(r) {
		httpx.WriteError(r.Context(), w, httpx.NewError("bad_request", err.Error(), http.StatusBadRequest))
		return
	}
	a.statusPage(w, r, http.StatusBadRequest, "error.bad_request", "error.bad_request")
}

func setTrigger(w http.ResponseWriter, event string, detail any) {
	if raw, err := json.Marshal(map[string]any{event: detail}); err == nil {
		w.Header().Set("HX-Trigger", string(raw))
	}
}

// sameOriginReferer returns the Referer path when it points back at this host.
func sameOriginReferer(r *http.Request, fallback string) string {
	ref, err := url.Parse(r.Referer())
	if err != nil || !strings.HasPrefix(ref.Path, "/") || strings.HasPrefix(ref.Path, "//") {
		return fallback
	}
	if ref.Host != "" && ref.Host != r.Host {
		return fallback
	}
	if ref.RawQuery != "" {
		return ref.Path + "?" + ref.RawQuery
	}
	return ref.Path
}
