package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/arifmahmud/uptimebot/internal/domain"
	"github.com/arifmahmud/uptimebot/internal/engine"
	"github.com/arifmahmud/uptimebot/internal/httpapi/middleware"
	"github.com/arifmahmud/uptimebot/internal/repo/memory"
)

type noJobs struct{}

func (noJobs) Register(t domain.Target)  {}
func (noJobs) Cancel(id domain.TargetID) {}

func newTestServer(t *testing.T) (*Server, *engine.Service) {
	t.Helper()
	store := memory.New()
	eng := engine.NewService(store, noJobs{}, 999, zap.NewNop())
	srv := NewServer(zap.NewNop(), eng, 999, middleware.Keys{}, 0, 0)
	return srv, eng
}

func TestHealthz_AlwaysOK(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("want 200 ok, got %d %q", rec.Code, rec.Body.String())
	}
}

func TestListTargets_FiltersByOwner(t *testing.T) {
	srv, eng := newTestServer(t)
	ctx := context.Background()
	if _, err := eng.CreateTarget(ctx, 1, "https://a"); err != nil {
		t.Fatalf("CreateTarget: %v", err)
	}
	if _, err := eng.CreateTarget(ctx, 2, "https://b"); err != nil {
		t.Fatalf("CreateTarget: %v", err)
	}

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/targets?owner=1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}
	var items []targetItem
	if err := json.NewDecoder(rec.Body).Decode(&items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(items) != 1 || items[0].URL != "https://a" || items[0].Status != domain.StatusUnknown {
		t.Fatalf("unexpected items: %+v", items)
	}

	// missing owner param
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/targets", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("want 400 without owner, got %d", rec.Code)
	}
}

func TestViewTarget_NotFoundAndFound(t *testing.T) {
	srv, eng := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/targets/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("want 404, got %d", rec.Code)
	}

	tgt, err := eng.CreateTarget(context.Background(), 1, "https://a")
	if err != nil {
		t.Fatalf("CreateTarget: %v", err)
	}
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/targets/"+string(tgt.ID), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}
	var p targetViewPayload
	if err := json.NewDecoder(rec.Body).Decode(&p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.URL != "https://a" || p.Glyphs != "No data." {
		t.Fatalf("unexpected view: %+v", p)
	}
}

func TestGenerateCode_AdminEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/codes", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.HasPrefix(body["code"], "AC-") {
		t.Fatalf("unexpected code: %q", body["code"])
	}
}

func TestAdminEndpoint_RequiresAdminKeyWhenConfigured(t *testing.T) {
	store := memory.New()
	eng := engine.NewService(store, noJobs{}, 999, zap.NewNop())
	srv := NewServer(zap.NewNop(), eng, 999,
		middleware.Keys{Admin: []string{"adm"}}, 0, 0)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/codes", nil))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("want 403 without key, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/codes", nil)
	req.Header.Set("X-API-Key", "adm")
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200 with admin key, got %d", rec.Code)
	}
}
