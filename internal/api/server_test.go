package api

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/mtlprog/walletview/internal/domain"
	"github.com/mtlprog/walletview/internal/history"
	"github.com/mtlprog/walletview/internal/selector"
)

func TestRequireAuthValidToken(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})

	handler := requireAuth("secret-key", next)
	req := httptest.NewRequest(http.MethodPost, "/test", nil)
	req.Header.Set("Authorization", "Bearer secret-key")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if !called {
		t.Error("next handler was not called")
	}
}

func TestRequireAuthMissingHeader(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler should not be called")
	})

	handler := requireAuth("secret-key", next)
	req := httptest.NewRequest(http.MethodPost, "/test", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestRequireAuthWrongToken(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler should not be called")
	})

	handler := requireAuth("secret-key", next)
	req := httptest.NewRequest(http.MethodPost, "/test", nil)
	req.Header.Set("Authorization", "Bearer wrong-key")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestRequireAuthMalformedHeader(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler should not be called")
	})

	handler := requireAuth("secret-key", next)
	req := httptest.NewRequest(http.MethodPost, "/test", nil)
	req.Header.Set("Authorization", "Basic secret-key")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestMuxRoutes(t *testing.T) {
	repo := &mockHistoryRepo{}
	st := newTestStore()
	sel := selector.New()
	mux := NewMux(Deps{
		Source:      st,
		Selectors:   sel,
		History:     history.NewService(st, sel, repo),
		Validators:  &mockValidatorService{},
		Metrics:     http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.Write([]byte("ok")) }),
		AdminAPIKey: "secret-key",
	})

	escapedATOM := url.PathEscape(domain.ATOMAssetID)
	account := "?accountId=" + url.QueryEscape(string(cosmosAcc))

	tests := []struct {
		method string
		path   string
		auth   string
		want   int
	}{
		{http.MethodGet, "/api/v1/portfolio", "", http.StatusOK},
		{http.MethodGet, "/api/v1/portfolio/assets", "", http.StatusOK},
		{http.MethodGet, "/api/v1/portfolio/accounts", "", http.StatusOK},
		{http.MethodGet, "/api/v1/staking/" + escapedATOM + account, "", http.StatusOK},
		{http.MethodGet, "/api/v1/staking/" + escapedATOM + "/validators/val1" + account, "", http.StatusOK},
		{http.MethodGet, "/api/v1/validators/val1", "", http.StatusOK},
		{http.MethodGet, "/api/v1/history/latest", "", http.StatusNotFound},
		{http.MethodGet, "/api/v1/history", "", http.StatusOK},
		{http.MethodPost, "/api/v1/history/generate", "", http.StatusUnauthorized},
		{http.MethodPost, "/api/v1/history/generate", "Bearer secret-key", http.StatusOK},
		{http.MethodGet, "/metrics", "", http.StatusOK},
		{http.MethodPost, "/api/v1/portfolio", "", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, nil)
		if tt.auth != "" {
			req.Header.Set("Authorization", tt.auth)
		}
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		if w.Code != tt.want {
			t.Errorf("%s %s: status = %d, want %d", tt.method, tt.path, w.Code, tt.want)
		}
	}
}

func TestMuxOptionalRoutes(t *testing.T) {
	mux := NewMux(Deps{Source: newTestStore(), Selectors: selector.New()})

	for _, path := range []string{"/api/v1/history", "/api/v1/validators/val1", "/metrics"} {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusNotFound {
			t.Errorf("%s: status = %d, want 404 when not configured", path, w.Code)
		}
	}
}
