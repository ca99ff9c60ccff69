package httpserver

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apppipeline "github.com/shieldhq/threatwatch/internal/application/pipeline"
	appthreats "github.com/shieldhq/threatwatch/internal/application/threats"
	"github.com/shieldhq/threatwatch/internal/domain/runs"
	domain "github.com/shieldhq/threatwatch/internal/domain/threats"
	"github.com/shieldhq/threatwatch/internal/middleware"
)

type Router struct {
	threatsSvc  *appthreats.Service
	pipelineSvc *apppipeline.Service
	runsRepo    runs.Repository
}

func NewRouter(threatsSvc *appthreats.Service, pipelineSvc *apppipeline.Service, runsRepo runs.Repository) http.Handler {
	r := &Router{threatsSvc: threatsSvc, pipelineSvc: pipelineSvc, runsRepo: runsRepo}
	mux := chi.NewRouter()

	mux.Get("/", r.wrap(r.handleRoot))

	mux.Route("/api/threats", func(rt chi.Router) {
		rt.Get("/", r.wrap(r.handleList))
		// literal subpaths registered ahead of the generic {id} pattern
		rt.Get("/count", r.wrap(r.handleCount))
		rt.Get("/recent", r.wrap(r.handleRecent))
		rt.Get("/search", r.wrap(r.handleSearch))
		rt.Get("/overview", r.wrap(r.handleOverview))
		rt.Get("/pending_review", r.wrap(r.handlePendingReview))
		rt.Get("/level/{min_level}", r.wrap(r.handleByLevel))
		rt.Get("/{id}", r.wrap(r.handleGet))
		rt.Put("/{id}/review", r.wrap(r.handleReview))
	})

	mux.Get("/api/runs", r.wrap(r.handleRuns))
	mux.Post("/api/pipeline/run", r.wrap(r.handleTriggerRun))

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// wrap maps domain sentinels to client statuses; only unexpected errors 500.
func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			switch {
			case errors.Is(err, domain.ErrNotFound):
				http.Error(w, "threat not found", http.StatusNotFound)
			case errors.Is(err, apppipeline.ErrRunInProgress):
				http.Error(w, "pipeline run already in progress", http.StatusConflict)
			default:
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) error {
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(v)
}

// GET /
func (r *Router) handleRoot(w http.ResponseWriter, _ *http.Request) error {
	return writeJSON(w, map[string]any{
		"message": "threatwatch threat analysis platform active",
		"status":  "operational",
	})
}

// GET /api/threats
func (r *Router) handleList(w http.ResponseWriter, req *http.Request) error {
	list, err := r.threatsSvc.ListAll(req.Context())
	if err != nil {
		return err
	}
	return writeJSON(w, list)
}

// GET /api/threats/count
func (r *Router) handleCount(w http.ResponseWriter, req *http.Request) error {
	total, err := r.threatsSvc.Count(req.Context())
	if err != nil {
		return err
	}
	return writeJSON(w, map[string]int64{"total_threats": total})
}

// GET /api/threats/recent?days=3
func (r *Router) handleRecent(w http.ResponseWriter, req *http.Request) error {
	days, _ := strconv.Atoi(req.URL.Query().Get("days"))
	days = middleware.ValidateDays(days)

	list, err := r.threatsSvc.Recent(req.Context(), days)
	if err != nil {
		return err
	}
	return writeJSON(w, list)
}

// GET /api/threats/search?q=
func (r *Router) handleSearch(w http.ResponseWriter, req *http.Request) error {
	q := req.URL.Query().Get("q")
	if err := middleware.ValidateSearchQuery(q); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil
	}

	list, err := r.threatsSvc.Search(req.Context(), q)
	if err != nil {
		return err
	}
	return writeJSON(w, list)
}

// GET /api/threats/overview
func (r *Router) handleOverview(w http.ResponseWriter, req *http.Request) error {
	text, err := r.threatsSvc.Overview(req.Context())
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, err = w.Write([]byte(text))
	return err
}

// GET /api/threats/pending_review
func (r *Router) handlePendingReview(w http.ResponseWriter, req *http.Request) error {
	list, err := r.threatsSvc.PendingReview(req.Context())
	if err != nil {
		return err
	}
	return writeJSON(w, list)
}

// GET /api/threats/level/{min_level}
func (r *Router) handleByLevel(w http.ResponseWriter, req *http.Request) error {
	minLevel, err := strconv.Atoi(chi.URLParam(req, "min_level"))
	if err != nil {
		http.Error(w, "min_level must be an integer", http.StatusBadRequest)
		return nil
	}

	list, err := r.threatsSvc.ByMinLevel(req.Context(), minLevel)
	if err != nil {
		return err
	}
	return writeJSON(w, list)
}

// GET /api/threats/{id}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
	id, err := strconv.ParseInt(chi.URLParam(req, "id"), 10, 64)
	if err != nil {
		http.Error(w, "id must be an integer", http.StatusBadRequest)
		return nil
	}

	threat, err := r.threatsSvc.Get(req.Context(), domain.ThreatID(id))
	if err != nil {
		return err
	}
	return writeJSON(w, threat)
}

// PUT /api/threats/{id}/review
// Body: {"human_level": 9, "human_category": "...", "human_notes": "...", "reviewer": "..."}
func (r *Router) handleReview(w http.ResponseWriter, req *http.Request) error {
	id, err := strconv.ParseInt(chi.URLParam(req, "id"), 10, 64)
	if err != nil {
		http.Error(w, "id must be an integer", http.StatusBadRequest)
		return nil
	}

	var body struct {
		HumanLevel    *int    `json:"human_level"`
		HumanCategory *string `json:"human_category"`
		HumanNotes    *string `json:"human_notes"`
		Reviewer      string  `json:"reviewer"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return nil
	}
	if err := middleware.ValidateReviewer(body.Reviewer); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil
	}
	if body.HumanLevel != nil {
		if err := middleware.ValidateThreatLevel(*body.HumanLevel); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return nil
		}
	}

	threat, err := r.threatsSvc.Review(req.Context(), domain.ThreatID(id), appthreats.ReviewCommand{
		HumanThreatLevel: body.HumanLevel,
		HumanCategory:    body.HumanCategory,
		HumanNotes:       body.HumanNotes,
		Reviewer:         body.Reviewer,
	})
	if err != nil {
		return err
	}
	return writeJSON(w, threat)
}

// GET /api/runs?limit=20
func (r *Router) handleRuns(w http.ResponseWriter, req *http.Request) error {
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))

	list, err := r.runsRepo.Latest(req.Context(), limit)
	if err != nil {
		return err
	}
	return writeJSON(w, list)
}

// POST /api/pipeline/run
// Fires a run in the background and answers immediately; an active run
// answers 409.
func (r *Router) handleTriggerRun(w http.ResponseWriter, _ *http.Request) error {
	err := r.pipelineSvc.StartAsync(func(sum apppipeline.Summary, err error) {
		if err != nil {
			middleware.IncrementRunsFailed()
			log.Printf("manual pipeline run error: %v", err)
			return
		}
		middleware.AddThreatsPersisted(sum.Persisted)
	})
	if err != nil {
		return err
	}
	middleware.IncrementRuns()

	w.WriteHeader(http.StatusAccepted)
	return writeJSON(w, map[string]string{
		"status":  "queued",
		"message": "pipeline run started in background",
	})
}
