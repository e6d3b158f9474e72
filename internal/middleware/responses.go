package middleware

import (
	"net/http"

	"github.com/bright-bogota/storefront/internal/httpx"
)

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	if IsHTMX(r.Context()) || r.Header.Get("Accept") == "application/json" {
		httpx.WriteError(r.Context(), w, httpx.NewError(http.StatusText(code), msg, code))
		return
	}
	http.Error(w, msg, code)
}
