package handlers

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/diagnosis/hotel-frontdesk/pkg/logger"
	"github.com/diagnosis/hotel-frontdesk/pkg/response"
	"github.com/diagnosis/hotel-frontdesk/services/gateway/internal/proxy"
)

type Handlers struct {
	authProxy     *proxy.ServiceProxy
	bookingsProxy *proxy.ServiceProxy
}

func New(authProxy, bookingsProxy *proxy.ServiceProxy) *Handlers {
	return &Handlers{
		authProxy:     authProxy,
		bookingsProxy: bookingsProxy,
	}
}

// Routes maps public prefixes onto upstream services. Paths are forwarded
// unchanged; the upstreams own authentication.
func (h *Handlers) Routes(r chi.Router) {
	r.Handle("/auth/*", h.forward(h.authProxy))

	bookings := h.forward(h.bookingsProxy)
	for _, prefix := range []string{"/bookings", "/rooms", "/guests"} {
		r.Handle(prefix, bookings)
		r.Handle(prefix+"/*", bookings)
	}
}

func (h *Handlers) forward(upstream *proxy.ServiceProxy) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.EscapedPath()
		if r.URL.RawQuery != "" {
			path += "?" + r.URL.RawQuery
		}

		resp, err := upstream.Forward(r.Context(), r.Method, path, r.Body, r.Header, r.RemoteAddr)
		if err != nil {
			logger.ErrorContext(r.Context(), "Service proxy error", "upstream", upstream.Name(), "error", err)
			response.WriteError(w, http.StatusBadGateway, "Service unavailable", "UPSTREAM_UNAVAILABLE")
			return
		}
		defer resp.Body.Close()

		proxy.CopyHeaders(w.Header(), resp.Header)
		w.WriteHeader(resp.StatusCode)

		if _, err := io.Copy(w, resp.Body); err != nil {
			logger.ErrorContext(r.Context(), "Failed to copy response body", "error", err)
		}
	})
}

// Recover turns a panic into a 500.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				if err == http.ErrAbortHandler {
					panic(err)
				}
				logger.ErrorContext(r.Context(), "Panic recovered", "error", err)
				response.InternalError(w)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
