package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bakiucartasarim/iletigo-mutabakat-sub000/cmd/internal/reconlink"
)

func TestRuntimeBaseURL(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "explicit localhost", in: "127.0.0.1:8080", want: "http://127.0.0.1:8080"},
		{name: "bind all v4", in: "0.0.0.0:8080", want: "http://127.0.0.1:8080"},
		{name: "bind all v6", in: "[::]:9090", want: "http://127.0.0.1:9090"},
		{name: "empty host", in: ":8080", want: "http://127.0.0.1:8080"},
		{name: "ipv6 host", in: "[2001:db8::1]:9090", want: "http://[2001:db8::1]:9090"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := runtimeBaseURL(tc.in)
			if got != tc.want {
				t.Fatalf("runtimeBaseURL(%q)=%q want=%q", tc.in, got, tc.want)
			}
		})
	}
}

func newTestApp(t *testing.T, cfg Config) *App {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := New(cfg, log)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(a.Close)
	return a
}

func TestApp_InMemoryRoutes(t *testing.T) {
	a := newTestApp(t, Config{HTTPAddr: "127.0.0.1:0", DevSeed: true})
	srv := httptest.NewServer(a.Handler())
	t.Cleanup(srv.Close)

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("GET %s status=%d", path, resp.StatusCode)
		}
		if resp.Header.Get("X-Request-ID") == "" {
			t.Fatalf("GET %s: missing X-Request-ID", path)
		}
	}

	// Seeded records accept further links.
	iss, err := a.Links().IssueLink(context.Background(), reconlink.IssueInput{RecordID: "row-dev-open"})
	if err != nil {
		t.Fatalf("IssueLink: %v", err)
	}
	if !strings.HasPrefix(iss.URL, "http://127.0.0.1:0/mutabakat/") {
		t.Fatalf("unexpected link url %q", iss.URL)
	}

	resp, err := http.Get(srv.URL + "/api/links/" + iss.Link.ReferenceCode)
	if err != nil {
		t.Fatalf("GET view: %v", err)
	}
	// Read to EOF so the keep-alive connection is reused and the request is fully logged
	// before /metrics is scraped.
	payload, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		t.Fatalf("read view: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("view status=%d body=%s", resp.StatusCode, payload)
	}
	var body map[string]any
	if err := json.Unmarshal(payload, &body); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if body["state"] != string(reconlink.StateVerified) {
		t.Fatalf("state=%v want %s", body["state"], reconlink.StateVerified)
	}

	mresp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer mresp.Body.Close()
	raw, _ := io.ReadAll(mresp.Body)
	text := string(raw)
	if !strings.Contains(text, `route="GET /api/links/{code}"`) {
		t.Fatalf("request histogram should use the mux pattern as route:\n%s", text)
	}
	if strings.Contains(text, iss.Link.ReferenceCode) {
		t.Fatalf("metrics must never contain reference codes")
	}
}

func TestApp_ReadyzRequiresDB(t *testing.T) {
	a := newTestApp(t, Config{HTTPAddr: "127.0.0.1:0", ReadinessRequireDB: true})

	rr := httptest.NewRecorder()
	a.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}

func TestApp_PublicBaseURLOverride(t *testing.T) {
	a := newTestApp(t, Config{HTTPAddr: "0.0.0.0:8080", PublicBaseURL: "https://mutabakat.example.com"})
	if got := a.Links().Config().PublicBaseURL; got != "https://mutabakat.example.com" {
		t.Fatalf("PublicBaseURL=%q", got)
	}
}

func TestValidateSecurityConfig(t *testing.T) {
	t.Setenv("MUTABAKAT_TOKEN_HMAC_KEY", "")
	if err := ValidateSecurityConfig(Config{}); err != nil {
		t.Fatalf("policy off: %v", err)
	}
	if err := ValidateSecurityConfig(Config{RequireTokenHMAC: true}); err == nil {
		t.Fatalf("expected error for missing key")
	}

	t.Setenv("MUTABAKAT_TOKEN_HMAC_KEY", "short")
	if err := ValidateSecurityConfig(Config{RequireTokenHMAC: true}); err == nil {
		t.Fatalf("expected error for short key")
	}

	t.Setenv("MUTABAKAT_TOKEN_HMAC_KEY", strings.Repeat("k", 32))
	if err := ValidateSecurityConfig(Config{RequireTokenHMAC: true}); err != nil {
		t.Fatalf("valid key: %v", err)
	}
}

func TestEnvList(t *testing.T) {
	t.Setenv("MUTABAKAT_TEST_LIST", " https://a.example.com, ,http://127.0.0.1:* ")
	got := EnvList("MUTABAKAT_TEST_LIST")
	if len(got) != 2 || got[0] != "https://a.example.com" || got[1] != "http://127.0.0.1:*" {
		t.Fatalf("EnvList=%q", got)
	}

	t.Setenv("MUTABAKAT_TEST_LIST", "")
	if got := EnvList("MUTABAKAT_TEST_LIST"); got != nil {
		t.Fatalf("expected nil, got %q", got)
	}
}
