package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/arifmahmud/uptimebot/internal/domain"
	"github.com/arifmahmud/uptimebot/internal/engine"
	"github.com/arifmahmud/uptimebot/internal/httpapi/middleware"
	"github.com/arifmahmud/uptimebot/internal/repo"
)

// Server is the HTTP surface: the hosting platform's liveness probe plus a
// small read-mostly JSON API. It never blocks on the monitoring engine.
type Server struct {
	Logger  *zap.Logger
	Engine  *engine.Service
	AdminID int64
	Keys    middleware.Keys
	RPM     int
	Burst   int
}

func NewServer(l *zap.Logger, e *engine.Service, adminID int64, keys middleware.Keys, rpm, burst int) *Server {
	return &Server{Logger: l, Engine: e, AdminID: adminID, Keys: keys, RPM: rpm, Burst: burst}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.AllowAll().Handler)

	// liveness for the hosting platform; no auth, no engine access
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(s.RPM, s.Burst))
		r.Use(middleware.RequirePublic(s.Keys))
		r.Get("/api/targets", s.handleListTargets)
		r.Get("/api/targets/{id}", s.handleViewTarget)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin(s.Keys))
		r.Post("/api/codes", s.handleGenerateCode)
	})

	return r
}

type targetItem struct {
	ID     string        `json:"id"`
	URL    string        `json:"url"`
	Status domain.Status `json:"status"`
}

func (s *Server) handleListTargets(w http.ResponseWriter, r *http.Request) {
	owner, err := strconv.ParseInt(r.URL.Query().Get("owner"), 10, 64)
	if err != nil {
		http.Error(w, "owner query parameter required", http.StatusBadRequest)
		return
	}
	ts, err := s.Engine.ListTargets(r.Context(), owner)
	if err != nil {
		s.Logger.Error("list_targets_error", zap.Error(err))
		http.Error(w, "list error", http.StatusInternalServerError)
		return
	}
	items := make([]targetItem, 0, len(ts))
	for _, t := range ts {
		items = append(items, targetItem{ID: string(t.ID), URL: t.URL, Status: t.Status})
	}
	writeJSON(w, items)
}

type targetViewPayload struct {
	URL             string        `json:"url"`
	IntervalMinutes int           `json:"interval_minutes"`
	Status          domain.Status `json:"status"`
	LastCheck       string        `json:"last_check,omitempty"`
	Glyphs          string        `json:"glyphs"`
	LogLines        []string      `json:"log_lines"`
}

func (s *Server) handleViewTarget(w http.ResponseWriter, r *http.Request) {
	id := domain.TargetID(chi.URLParam(r, "id"))
	v, err := s.Engine.ViewTarget(r.Context(), id)
	if errors.Is(err, repo.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.Logger.Error("view_target_error", zap.String("target_id", string(id)), zap.Error(err))
		http.Error(w, "view error", http.StatusInternalServerError)
		return
	}
	p := targetViewPayload{
		URL:             v.Target.URL,
		IntervalMinutes: v.Target.IntervalMinutes,
		Status:          v.Target.Status,
		Glyphs:          v.Glyphs,
		LogLines:        v.LogLines,
	}
	if !v.Target.LastCheck.IsZero() {
		p.LastCheck = v.Target.LastCheck.Format("2006-01-02 15:04:05")
	}
	writeJSON(w, p)
}

func (s *Server) handleGenerateCode(w http.ResponseWriter, r *http.Request) {
	code, err := s.Engine.GenerateAccessCode(r.Context(), s.AdminID)
	if err != nil {
		s.Logger.Error("generate_code_error", zap.Error(err))
		http.Error(w, "could not generate", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{"code": code})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
