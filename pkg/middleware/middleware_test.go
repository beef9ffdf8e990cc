package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diagnosis/hotel-frontdesk/pkg/apperr"
	"github.com/diagnosis/hotel-frontdesk/pkg/auth"
)

type fakeUsers struct {
	ids map[int64]bool
	err error
}

func (f *fakeUsers) UserExists(_ context.Context, id int64) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.ids[id], nil
}

type memStore struct {
	mu   sync.Mutex
	data map[string]string
}

func (m *memStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key], nil
}

func (m *memStore) Set(_ context.Context, key, value string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func protected(issuer *auth.Issuer, users UserChecker) http.Handler {
	r := chi.NewRouter()
	r.Use(RequireUser(issuer, users))
	r.Get("/rooms", func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFrom(r.Context())
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(claims.Email))
	})
	return r
}

func TestRequireUser(t *testing.T) {
	issuer := auth.NewIssuer("secret", time.Hour)
	token, err := issuer.Issue(3, "desk@hotel.test")
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		users      *fakeUsers
		wantStatus int
		wantBody   string
	}{
		{"missing header", "", &fakeUsers{}, http.StatusUnauthorized, "No token provided"},
		{"wrong scheme", "Basic abc", &fakeUsers{}, http.StatusUnauthorized, "Invalid authorization header"},
		{"bad token", "Bearer nope", &fakeUsers{}, http.StatusUnauthorized, "Invalid or expired token"},
		{"deleted user", "Bearer " + token, &fakeUsers{ids: map[int64]bool{}}, http.StatusNotFound, "User not found"},
		{"store failure", "Bearer " + token, &fakeUsers{err: errors.New("db down")}, http.StatusInternalServerError, "Internal server error"},
		{"ok", "Bearer " + token, &fakeUsers{ids: map[int64]bool{3: true}}, http.StatusOK, "desk@hotel.test"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/rooms", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			protected(issuer, tt.users).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}

func TestIdempotency_ReplaysSuccess(t *testing.T) {
	store := &memStore{data: map[string]string{}}
	calls := 0

	r := chi.NewRouter()
	r.Use(Idempotency(store, time.Hour))
	r.Post("/bookings", func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"bookingId":1}`))
	})

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/bookings", strings.NewReader(`{}`))
		req.Header.Set("Idempotency-Key", "abc")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	first := send()
	second := send()

	assert.Equal(t, 1, calls)
	assert.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.JSONEq(t, `{"bookingId":1}`, second.Body.String())
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
}

func TestIdempotency_DoesNotCacheFailures(t *testing.T) {
	store := &memStore{data: map[string]string{}}
	calls := 0

	r := chi.NewRouter()
	r.Use(Idempotency(store, time.Hour))
	r.Post("/bookings", func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"message":"taken"}`))
	})

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/bookings", nil)
		req.Header.Set("Idempotency-Key", "abc")
		r.ServeHTTP(httptest.NewRecorder(), req)
	}
	assert.Equal(t, 2, calls)
	assert.Empty(t, store.data)
}

func idempotentEcho(t *testing.T) (http.Handler, *auth.Issuer, *int) {
	t.Helper()
	issuer := auth.NewIssuer("secret", time.Hour)
	calls := 0

	r := chi.NewRouter()
	r.Use(RequireUser(issuer, &fakeUsers{ids: map[int64]bool{3: true, 4: true}}))
	r.Use(Idempotency(&memStore{data: map[string]string{}}, time.Hour))
	r.Post("/bookings", func(w http.ResponseWriter, r *http.Request) {
		calls++
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write(body)
	})
	return r, issuer, &calls
}

func postAs(t *testing.T, h http.Handler, issuer *auth.Issuer, sub int64, body string) *httptest.ResponseRecorder {
	t.Helper()
	token, err := issuer.Issue(sub, "desk@hotel.test")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/bookings", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Idempotency-Key", "1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIdempotency_KeysAreScopedToCaller(t *testing.T) {
	h, issuer, calls := idempotentEcho(t)

	alice := postAs(t, h, issuer, 3, `{"guestName":"alice"}`)
	bob := postAs(t, h, issuer, 4, `{"guestName":"bob"}`)

	assert.Equal(t, http.StatusCreated, alice.Code)
	assert.Equal(t, http.StatusCreated, bob.Code)
	assert.JSONEq(t, `{"guestName":"bob"}`, bob.Body.String())
	assert.Empty(t, bob.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, 2, *calls)
}

func TestIdempotency_RejectsReusedKeyWithDifferentBody(t *testing.T) {
	h, issuer, calls := idempotentEcho(t)

	first := postAs(t, h, issuer, 3, `{"guestName":"alice"}`)
	require.Equal(t, http.StatusCreated, first.Code)

	changed := postAs(t, h, issuer, 3, `{"guestName":"carol"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, changed.Code)
	assert.Contains(t, changed.Body.String(), apperr.CodeIdempotencyMismatch)

	same := postAs(t, h, issuer, 3, `{"guestName":"alice"}`)
	assert.Equal(t, http.StatusCreated, same.Code)
	assert.Equal(t, "true", same.Header().Get("Idempotent-Replayed"))
	assert.JSONEq(t, `{"guestName":"alice"}`, same.Body.String())

	assert.Equal(t, 1, *calls)
}

func TestRequestID_EchoesHeader(t *testing.T) {
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "fixed")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "fixed", rec.Header().Get("X-Request-ID"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Metrics("test"))
	r.Use(Health)
	r.Get("/rooms/{id}", func(w http.ResponseWriter, r *http.Request) {})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rooms/5", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `route="/rooms/{id}"`)
}
