package main

import (
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	mw "github.com/bright-bogota/storefront/internal/middleware"
	"github.com/bright-bogota/storefront/internal/observability"
	"github.com/bright-bogota/storefront/public"
)

// routes builds the HTTP handler. Static assets and the health check sit outside
// the session, locale and CSRF stack.
func (a *app) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	// RealIP trusts X-Forwarded-For; the service runs behind the platform load balancer.
	r.Use(middleware.RealIP)
	r.Use(observability.TraceMiddleware())
	r.Use(observability.InjectLogger(a.logger))
	r.Use(observability.RequestLogger(a.sessionFields))
	r.Use(observability.Recovery(a.logger, http.HandlerFunc(a.panicPage)))
	r.Use(middleware.Compress(5))
	r.Use(middleware.Timeout(a.cfg.Server.RequestTimeout))

	r.Get("/healthz", healthz)
	r.Handle("/assets/*", mw.AssetsWithCache(assetsFS(), "/assets"))

	r.Group(func(r chi.Router) {
		r.Use(a.sessions.Middleware)
		r.Use(mw.HTMX)
		r.Use(mw.Locale(a.bundle))
		r.Use(mw.CSRF(a.cfg.Session.Secure))
		r.Use(mw.VaryLocale)

		r.NotFound(a.notFound)
		r.MethodNotAllowed(a.methodNotAllowed)

		r.Get("/", a.homeHandler)
		r.Get("/products/{slug}", a.productHandler)
		r.Get("/about", a.aboutHandler)
		r.Get("/contact", a.contactPage)
		r.Post("/contact", a.contactSubmit)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", a.cartPage)
			r.Get("/drawer", a.cartDrawer)
			r.Post("/drawer/{action}", a.drawerAction)
			r.Post("/items", a.addItem)
			r.Get("/items.json", a.cartItemsJSON)
			r.Post("/items/{index}/{action}", a.cartLine)
			r.Post("/clear", a.clearCart)
			r.Post("/checkout", a.checkout)
		})
	})
	return r
}

// sessionFields tags request logs with a shortened session id from the cookie.
func (a *app) sessionFields(r *http.Request) []zap.Field {
	if id := a.sessions.PeekID(r); id != "" {
		return []zap.Field{zap.String("session", observability.SanitizeSessionID(id))}
	}
	return nil
}

func assetsFS() fs.FS {
	sub, err := fs.Sub(public.FS, "assets")
	if err != nil {
		panic(err)
	}
	return sub
}
