package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hamed0406/sitemonitor/internal/aggregate"
	"github.com/hamed0406/sitemonitor/internal/domain"
	apimw "github.com/hamed0406/sitemonitor/internal/httpapi/middleware"
	"github.com/hamed0406/sitemonitor/internal/repo"
	"github.com/hamed0406/sitemonitor/internal/status"
)

// maxWindow bounds ?window= so a query never asks for more than is retained.
const maxWindow = 7 * 24 * time.Hour

// Server exposes the collected history read-only. Every request reads the current
// snapshot; aggregation happens per request.
type Server struct {
	Logger     *zap.Logger
	Store      repo.HistoryRepo
	StatusPath string
	Window     time.Duration
	Now        func() time.Time
}

func NewServer(l *zap.Logger, store repo.HistoryRepo, statusPath string, window time.Duration) *Server {
	if l == nil {
		l = zap.NewNop()
	}
	if window <= 0 {
		window = aggregate.DefaultWindow
	}
	return &Server{Logger: l, Store: store, StatusPath: statusPath, Window: window, Now: time.Now}
}

// Router builds the chi router. reqPerMin <= 0 disables rate limiting.
func (s *Server) Router(reqPerMin, burst int) http.Handler {
	r := chi.NewRouter()
	r.Use(apimw.RequestLog(s.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(apimw.RateLimit(reqPerMin, burst))
		r.Get("/status", s.handleStatus)
		r.Get("/sites", s.handleListSites)
		r.Get("/sites/{id}", s.handleSite)
	})
	return r
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	sum, ok, err := status.Read(s.StatusPath)
	if err != nil {
		s.Logger.Warn("status_read_error", zap.String("path", s.StatusPath), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "status unavailable")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "no completed cycle yet")
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

type sitesResponse struct {
	GeneratedAt int64                `json:"generated_at"`
	Window      string               `json:"window"`
	Sites       []aggregate.SiteView `json:"sites"`
}

func (s *Server) handleListSites(w http.ResponseWriter, r *http.Request) {
	window, ok := s.window(w, r)
	if !ok {
		return
	}
	store, ok := s.load(w, r)
	if !ok {
		return
	}
	now := s.Now()
	views := aggregate.Views(store, window, now)
	// the list stays small; per-check data is served by /api/sites/{id}
	for i := range views {
		views[i].Window = nil
	}
	writeJSON(w, http.StatusOK, sitesResponse{
		GeneratedAt: now.Unix(),
		Window:      window.String(),
		Sites:       views,
	})
}

type siteResponse struct {
	aggregate.SiteView
	Hourly []aggregate.HourlyPoint `json:"hourly"`
}

func (s *Server) handleSite(w http.ResponseWriter, r *http.Request) {
	window, ok := s.window(w, r)
	if !ok {
		return
	}
	store, ok := s.load(w, r)
	if !ok {
		return
	}
	id := domain.TargetID(chi.URLParam(r, "id"))
	now := s.Now()
	view, found := aggregate.View(id, store[id], window, now)
	if !found {
		writeError(w, http.StatusNotFound, "unknown site")
		return
	}
	writeJSON(w, http.StatusOK, siteResponse{
		SiteView: view,
		Hourly:   aggregate.HourlyLatency(view.Window, now, time.Local),
	})
}

func (s *Server) window(w http.ResponseWriter, r *http.Request) (time.Duration, bool) {
	raw := r.URL.Query().Get("window")
	if raw == "" {
		return s.Window, true
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 || d > maxWindow {
		writeError(w, http.StatusBadRequest, "window must be a duration between 1s and 168h")
		return 0, false
	}
	return d, true
}

func (s *Server) load(w http.ResponseWriter, r *http.Request) (domain.HistoricalStore, bool) {
	store, err := s.Store.Load(r.Context())
	if err != nil {
		s.Logger.Warn("history_load_error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "history unavailable")
		return nil, false
	}
	return store, true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
