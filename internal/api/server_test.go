package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"hammer-relay/internal/checker"
	"hammer-relay/internal/config"
	"hammer-relay/internal/monitor"
	"hammer-relay/internal/relay"
)

func newTestServer(t *testing.T, c checker.Checker) *httptest.Server {
	t.Helper()

	dir := t.TempDir()
	about := filepath.Join(dir, "coqhammer.txt")
	if err := os.WriteFile(about, []byte("hammer\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	wellKnown := filepath.Join(dir, ".well-known")
	if err := os.Mkdir(wellKnown, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(wellKnown, "ai-plugin.json"), []byte(`{"name_for_model":"coqhammer"}`), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := config.DefaultConfig()
	cfg.Static.AboutFile = about
	cfg.Static.WellKnownDir = wellKnown
	cfg.Security.AllowedKeys = []string{"secret"}

	metrics := monitor.NewMetrics()
	rl := relay.New(c, relay.NewFailureSet(), metrics, monitor.NewTracer())
	srv := NewServer(cfg, rl, relay.NewPrimer(cfg.Static.AboutFile), nil, nil, metrics)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestServer_Routes(t *testing.T) {
	ts := newTestServer(t, &mockChecker{result: &checker.Result{Status: 0}})

	tests := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{"root", http.MethodGet, "/", http.StatusOK},
		{"learnhammer", http.MethodGet, "/learnhammer/", http.StatusOK},
		{"learnhammer without slash", http.MethodGet, "/learnhammer", http.StatusOK},
		{"well-known", http.MethodGet, "/.well-known/ai-plugin.json", http.StatusOK},
		{"health", http.MethodGet, "/health", http.StatusOK},
		{"metrics", http.MethodGet, "/metrics", http.StatusOK},
		{"verify wrong method", http.MethodGet, "/verify/", http.StatusMethodNotAllowed},
		{"history requires key", http.MethodGet, "/verifications", http.StatusUnauthorized},
		{"unknown", http.MethodGet, "/nope", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(tt.method, ts.URL+tt.path, nil)
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Errorf("%s %s = %d, want %d", tt.method, tt.path, resp.StatusCode, tt.want)
			}
		})
	}
}

func TestServer_Verify(t *testing.T) {
	mc := &mockChecker{result: &checker.Result{Status: 0}}
	ts := newTestServer(t, mc)

	for _, path := range []string{"/verify/", "/verify"} {
		resp, err := http.PostForm(ts.URL+path, url.Values{"v": {"Qed."}})
		if err != nil {
			t.Fatal(err)
		}
		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Errorf("POST %s = %d, want 200", path, resp.StatusCode)
		}
		if body["status"] != "ok" {
			t.Errorf("POST %s body = %v", path, body)
		}
		if resp.Header.Get("X-Request-ID") == "" {
			t.Errorf("POST %s: missing X-Request-ID", path)
		}
	}
}

func TestServer_HistoryWithKeyButNoDatabase(t *testing.T) {
	ts := newTestServer(t, &mockChecker{})

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/verifications", nil)
	req.Header.Set("X-API-Key", "secret")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("got status %d, want 503", resp.StatusCode)
	}
}

func TestServer_Health(t *testing.T) {
	ts := newTestServer(t, &mockChecker{result: &checker.Result{Status: 1, Log: "Error: oops"}})

	resp, err := http.PostForm(ts.URL+"/verify/", url.Values{"v": {"auto."}})
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	resp, err = http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var health HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatal(err)
	}
	if health.Status != "ok" || !health.Database {
		t.Errorf("health = %+v", health)
	}
	if health.Failures != 1 {
		t.Errorf("seen_failures = %d, want 1", health.Failures)
	}
	if !strings.HasPrefix(health.CheckerURL, "https://") {
		t.Errorf("checker_url = %q", health.CheckerURL)
	}
}

func TestServer_CORSPreflight(t *testing.T) {
	ts := newTestServer(t, &mockChecker{})

	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/verify/", nil)
	req.Header.Set("Origin", "https://chat.openai.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("got status %d, want 200", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "https://chat.openai.com" {
		t.Errorf("Allow-Origin = %q", got)
	}
}
