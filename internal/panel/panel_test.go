package panel

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestHandlerServesIndex(t *testing.T) {
	w := get(t, Handler(""), "/")

	if w.Code != http.StatusOK {
		t.Fatalf("GET /: got status %d, want 200", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "<!DOCTYPE html>") {
		t.Error("GET /: response doesn't contain HTML doctype")
	}
	if !strings.Contains(body, `src="app.js"`) {
		t.Error("GET /: index.html doesn't load app.js")
	}
	if got := w.Header().Get("Cache-Control"); got != "no-cache, must-revalidate" {
		t.Errorf("Cache-Control = %q", got)
	}
}

func TestHandlerServesAssets(t *testing.T) {
	h := Handler("")

	for _, asset := range []string{"/app.js", "/style.css"} {
		w := get(t, h, asset)
		if w.Code != http.StatusOK {
			t.Errorf("GET %s: got status %d, want 200", asset, w.Code)
		}
		if w.Body.Len() == 0 {
			t.Errorf("GET %s: empty response body", asset)
		}
	}
}

func TestHandlerPageUsesRESTAPI(t *testing.T) {
	body := get(t, Handler(""), "/app.js").Body.String()

	for _, want := range []string{"/api/v1/state", "/api/v1/actions"} {
		if !strings.Contains(body, want) {
			t.Errorf("app.js does not reference %s", want)
		}
	}
}

func TestHandlerFallback(t *testing.T) {
	h := Handler("")

	w := get(t, h, "/lock/front-door")
	if w.Code != http.StatusOK {
		t.Errorf("GET /lock/front-door: got status %d, want 200 (index fallback)", w.Code)
	}
	if !strings.Contains(w.Body.String(), "<!DOCTYPE html>") {
		t.Error("fallback didn't serve index.html")
	}

	w = get(t, h, "/missing.js")
	if w.Code != http.StatusNotFound {
		t.Errorf("GET /missing.js: got status %d, want 404", w.Code)
	}
}

func TestHandlerFilesystemMode(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte(`<!DOCTYPE html><html><body>dev panel</body></html>`), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log('dev')"), 0644); err != nil {
		t.Fatal(err)
	}

	h := Handler(dir)

	if w := get(t, h, "/"); !strings.Contains(w.Body.String(), "dev panel") {
		t.Errorf("filesystem GET /: expected filesystem content, got %q", w.Body.String())
	}
	if w := get(t, h, "/app.js"); !strings.Contains(w.Body.String(), "console.log('dev')") {
		t.Errorf("filesystem GET /app.js: got %q", w.Body.String())
	}
	if w := get(t, h, "/style.css"); w.Code != http.StatusNotFound {
		t.Errorf("filesystem GET /style.css: got status %d, want 404", w.Code)
	}
}

func TestHandlerInvalidDirFallsBackToEmbed(t *testing.T) {
	w := get(t, Handler("/nonexistent/dir/that/does/not/exist"), "/")

	if w.Code != http.StatusOK {
		t.Errorf("invalid dir GET /: got status %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Nuki Control") {
		t.Error("invalid dir: didn't fall back to embedded index.html")
	}
}
