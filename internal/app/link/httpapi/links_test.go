package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"linkcut.local/internal/app/link"
	"linkcut.local/internal/app/link/httpapi"
	"linkcut.local/internal/app/link/memstore"
	"linkcut.local/internal/platform/auth"
)

func setupRouter(t *testing.T) (chi.Router, *link.Service, *memstore.Store, auth.TokenService) {
	t.Helper()

	store := memstore.New()
	v := link.NewValidator(0, nil)
	g := link.NewGenerator(store, 6)
	svc := link.NewService(store, v, g, "http://localhost:9999", 24)
	sweeper := link.NewSweeper(store, time.Hour)

	ts, err := auth.NewHS256Service("test-secret", "test-issuer", time.Hour)
	if err != nil {
		t.Fatalf("NewHS256Service: %v", err)
	}

	r := chi.NewRouter()
	httpapi.RegisterWebRoutes(r)
	httpapi.RegisterAPIRoutes(r, svc, sweeper, ts)
	httpapi.RegisterPublicRoutes(r, svc)
	return r, svc, store, ts
}

func postJSON(t *testing.T, r chi.Router, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateEndpoint(t *testing.T) {
	r, _, _, _ := setupRouter(t)

	w := postJSON(t, r, "/api/shorten", map[string]any{"url": "http://example.com/page"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var view link.View
	if err := json.Unmarshal(w.Body.Bytes(), &view); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !view.Active || view.ClickCount != 0 {
		t.Errorf("view = %+v", view)
	}
	if view.OriginalURL != "http://example.com/page" {
		t.Errorf("originalUrl = %q", view.OriginalURL)
	}
	if !strings.HasPrefix(view.ShortURL, "http://localhost:9999/") {
		t.Errorf("shortUrl = %q", view.ShortURL)
	}
	if got, want := view.ExpiresAt.Sub(view.CreatedAt), 24*time.Hour; got != want {
		t.Errorf("expiration window = %v, want %v", got, want)
	}
}

func TestCreateEndpoint_ValidationErrors(t *testing.T) {
	r, _, store, _ := setupRouter(t)

	tests := []struct {
		name string
		url  string
	}{
		{"dangerous scheme", "javascript:alert(1)"},
		{"private ip", "http://192.168.1.5/admin"},
		{"blocked host", "http://localhost:8080/x"},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(t, r, "/api/shorten", map[string]any{"url": tt.url})
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", w.Code)
			}
			var resp map[string]string
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if resp["error"] == "" {
				t.Fatal("missing error message")
			}
		})
	}

	if n, _ := store.CountAll(context.Background()); n != 0 {
		t.Fatalf("store has %d records after rejected creates", n)
	}
}

func TestRedirectEndpoint(t *testing.T) {
	r, svc, _, _ := setupRouter(t)

	view, err := svc.Create(context.Background(), "http://example.com/target", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/"+view.ShortCode, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "http://example.com/target" {
		t.Fatalf("Location = %q", loc)
	}
}

func TestRedirectEndpoint_MissGoesToErrorPage(t *testing.T) {
	r, _, _, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/ZZZZZZ", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	// 未知短码不解释原因，302 到通用错误页
	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/error.html" {
		t.Fatalf("Location = %q, want /error.html", loc)
	}

	// 错误页本身可访问
	req = httptest.NewRequest(http.MethodGet, "/error.html", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("error page status = %d", w.Code)
	}
}

func TestRedirectEndpoint_CodePatternEnforcedByRouter(t *testing.T) {
	r, _, _, _ := setupRouter(t)

	// 3 位不满足 4~10 的短码契约，路由直接不匹配
	req := httptest.NewRequest(http.MethodGet, "/abc", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 from router", w.Code)
	}
}

func TestStatsEndpoint(t *testing.T) {
	r, svc, _, _ := setupRouter(t)

	view, err := svc.Create(context.Background(), "http://example.com/x", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Resolve(context.Background(), view.ShortCode); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/stats/"+view.ShortCode, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var got link.View
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.ClickCount != 1 {
		t.Errorf("clickCount = %d, want 1", got.ClickCount)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/stats/nosuch", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown code status = %d, want 404", w.Code)
	}
}

func TestSystemStatsEndpoint(t *testing.T) {
	r, svc, _, _ := setupRouter(t)

	for _, u := range []string{"http://example.com/a", "http://example.com/b"} {
		if _, err := svc.Create(context.Background(), u, nil); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/system-stats", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var stats link.SystemStats
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if stats.TotalLinks != 2 || stats.ActiveLinks != 2 || stats.TotalClicks != 0 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestAdminRoutes_RequireToken(t *testing.T) {
	r, _, store, ts := setupRouter(t)

	// 无 token
	req := httptest.NewRequest(http.MethodPost, "/api/admin/cleanup", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("no token: status = %d, want 401", w.Code)
	}

	// 错 role
	badToken, err := ts.Sign("someone", "viewer")
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	req = httptest.NewRequest(http.MethodPost, "/api/admin/cleanup", nil)
	req.Header.Set("Authorization", "Bearer "+badToken)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("wrong role: status = %d, want 403", w.Code)
	}

	// 正确 token：先放一条过期记录进去
	err = store.Save(context.Background(), &link.Link{
		Code:      "dead99",
		TargetURL: "http://example.com/",
		CreatedAt: time.Now().Add(-48 * time.Hour),
		ExpiresAt: time.Now().Add(-24 * time.Hour),
		Active:    true,
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	token, err := ts.Sign("ops", "operator")
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	req = httptest.NewRequest(http.MethodPost, "/api/admin/cleanup", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("cleanup status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp map[string]int64
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp["deactivated"] != 1 {
		t.Fatalf("deactivated = %d, want 1", resp["deactivated"])
	}
}

func TestAdminDisableEndpoint(t *testing.T) {
	r, svc, _, ts := setupRouter(t)

	view, err := svc.Create(context.Background(), "http://example.com/x", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	token, err := ts.Sign("ops", "operator")
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/admin/links/"+view.ShortCode+"/disable", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("disable status = %d, body = %s", w.Code, w.Body.String())
	}

	if _, err := svc.Resolve(context.Background(), view.ShortCode); err == nil {
		t.Fatal("resolve succeeded after disable")
	}
}
