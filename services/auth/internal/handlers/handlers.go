package handlers

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/diagnosis/hotel-frontdesk/pkg/logger"
	"github.com/diagnosis/hotel-frontdesk/pkg/response"
	"github.com/diagnosis/hotel-frontdesk/services/auth/internal/domain"
	"github.com/diagnosis/hotel-frontdesk/services/auth/internal/repository"
	"github.com/diagnosis/hotel-frontdesk/services/auth/internal/service"
)

const maxBodyBytes = 1 << 20

type Handlers struct {
	authService service.AuthService
	limiter     repository.RateLimitRepository
	ipLimit     int
	ipWindow    time.Duration
}

func New(authService service.AuthService, limiter repository.RateLimitRepository, ipLimit int, ipWindow time.Duration) *Handlers {
	return &Handlers{
		authService: authService,
		limiter:     limiter,
		ipLimit:     ipLimit,
		ipWindow:    ipWindow,
	}
}

// Routes mounts the account endpoints under /auth. requireUser guards the
// routes that act on the caller's own account.
func (h *Handlers) Routes(r chi.Router, requireUser func(http.Handler) http.Handler) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(h.RateLimitByIP("otp"))
			r.Post("/forgot-password", h.ForgotPassword)
			r.Post("/reset-password", h.ResetPassword)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireUser)
			r.Get("/me", h.Me)
			r.Put("/profile", h.UpdateProfile)
		})
	})
}

// RateLimitByIP caps requests per client address within the handler's window.
func (h *Handlers) RateLimitByIP(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if h.limiter == nil || h.ipLimit <= 0 {
				next.ServeHTTP(w, r)
				return
			}
			key := scope + ":ip:" + getClientIP(r)

			allowed, err := h.limiter.Allow(r.Context(), key, h.ipLimit, h.ipWindow)
			if err != nil {
				logger.ErrorContext(r.Context(), "Rate limit check failed", "error", err)
			} else if !allowed {
				response.RateLimit(w, domain.MsgTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// getClientIP returns the last X-Forwarded-For hop, which is the peer the
// gateway saw. Earlier entries are supplied by the client and ignored.
func getClientIP(r *http.Request) string {
	if values := r.Header.Values("X-Forwarded-For"); len(values) > 0 {
		hops := strings.Split(values[len(values)-1], ",")
		if last := strings.TrimSpace(hops[len(hops)-1]); last != "" {
			return last
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		response.InvalidJSON(w)
		return false
	}
	return true
}
