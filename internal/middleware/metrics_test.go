package middleware

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
)

// =============================================================================
// Metrics Auth Middleware Tests
// =============================================================================

func scrapeRequest(auth func(r *http.Request)) (*httptest.ResponseRecorder, *http.Request) {
	req := httptest.NewRequest("GET", "/metrics", nil)
	if auth != nil {
		auth(req)
	}
	return httptest.NewRecorder(), req
}

func TestMetricsAuthMiddleware_AllowsValidCredentials(t *testing.T) {
	mw := NewMetricsAuthMiddleware("prometheus", "scrape-secret")

	wrapped := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("# HELP docketwatch_http_requests_total"))
	}))

	rec, req := scrapeRequest(func(r *http.Request) {
		r.SetBasicAuth("prometheus", "scrape-secret")
	})
	wrapped.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	if rec.Body.String() != "# HELP docketwatch_http_requests_total" {
		t.Errorf("body not passed through, got %q", rec.Body.String())
	}
}

func TestMetricsAuthMiddleware_RejectsBadCredentials(t *testing.T) {
	mw := NewMetricsAuthMiddleware("prometheus", "scrape-secret")
	wrapped := mw.Handler(okHandler())

	tests := []struct {
		name string
		auth func(r *http.Request)
	}{
		{"no credentials", nil},
		{"wrong username", func(r *http.Request) { r.SetBasicAuth("grafana", "scrape-secret") }},
		{"wrong password", func(r *http.Request) { r.SetBasicAuth("prometheus", "guess") }},
		{"both wrong", func(r *http.Request) { r.SetBasicAuth("grafana", "guess") }},
		{"empty credentials", func(r *http.Request) { r.SetBasicAuth("", "") }},
		{"malformed header", func(r *http.Request) {
			r.Header.Set("Authorization", "Basic notvalidbase64!!!")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, req := scrapeRequest(tt.auth)
			wrapped.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("expected status 401, got %d", rec.Code)
			}
		})
	}
}

func TestMetricsAuthMiddleware_ChallengeNamesRealm(t *testing.T) {
	mw := NewMetricsAuthMiddleware("prometheus", "scrape-secret")
	wrapped := mw.Handler(okHandler())

	rec, req := scrapeRequest(nil)
	wrapped.ServeHTTP(rec, req)

	if got := rec.Header().Get("WWW-Authenticate"); got != `Basic realm="docketwatch-metrics"` {
		t.Errorf("unexpected WWW-Authenticate header: %q", got)
	}
}

func TestMetricsAuthMiddleware_DisabledWhenNoCredentials(t *testing.T) {
	// Development runs without scrape credentials; the endpoint is open.
	mw := NewMetricsAuthMiddleware("", "")

	handlerCalled := false
	wrapped := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		w.WriteHeader(http.StatusOK)
	}))

	rec, req := scrapeRequest(nil)
	wrapped.ServeHTTP(rec, req)

	if !handlerCalled {
		t.Error("expected handler to be called when auth is disabled")
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200 when auth is disabled, got %d", rec.Code)
	}
}

func TestMetricsAuthMiddleware_HeaderInjection(t *testing.T) {
	mw := NewMetricsAuthMiddleware("prometheus", "scrape-secret")
	wrapped := mw.Handler(okHandler())

	// Credentials smuggling a CRLF must not match the real ones.
	malicious := base64.StdEncoding.EncodeToString([]byte("prometheus:scrape-secret\r\nX-Injected: header"))
	rec, req := scrapeRequest(func(r *http.Request) {
		r.Header.Set("Authorization", "Basic "+malicious)
	})
	wrapped.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401 for injection attempt, got %d", rec.Code)
	}
}
