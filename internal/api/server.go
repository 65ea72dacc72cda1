package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"lumia-router/internal/catalog"
	"lumia-router/internal/config"
	"lumia-router/internal/db"
	"lumia-router/internal/engine"
)

// Server is the HTTP API server that connects the item catalog, the route search engine, and the database.
type Server struct {
	cfg      *config.Config
	db       *db.DB
	mu       sync.RWMutex
	catalog  *catalog.Catalog
	searcher *engine.Searcher
	planner  *engine.Planner
	ready    bool

	// Admission control for route searches, rebuilt when config changes.
	searches *semaphore.Weighted
	limiter  *rate.Limiter

	reloads singleflight.Group
}

// NewServer creates a Server with the given config and database. The database may be nil,
// in which case history and catalog reloads are unavailable.
func NewServer(cfg *config.Config, database *db.DB) *Server {
	s := &Server{cfg: cfg, db: database}
	s.applyConfigLocked()
	return s
}

// SetCatalog is called when the item catalog finishes loading.
func (s *Server) SetCatalog(cat *catalog.Catalog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog = cat
	s.planner = engine.NewPlanner(cat)
	s.searcher = engine.NewSearcher(cat, s.searchOptionsLocked())
	s.ready = true
}

func (s *Server) searchOptionsLocked() engine.SearchOptions {
	return engine.SearchOptions{
		Workers:           s.cfg.SearchWorkers,
		ProgressSteps:     s.cfg.ProgressSteps,
		IncludeEmptyRoute: s.cfg.IncludeEmptyRoute,
		IgnoreCommonItems: s.cfg.IgnoreCommonItems,
		ValidateItemCodes: s.cfg.ValidateItemCodes,
	}
}

// applyConfigLocked rebuilds everything derived from cfg. Searches already
// running keep the semaphore they acquired.
func (s *Server) applyConfigLocked() {
	s.searches = semaphore.NewWeighted(int64(s.cfg.MaxConcurrentSearches))
	limit, burst := rate.Inf, 1
	if n := s.cfg.SearchesPerMinute; n > 0 {
		limit, burst = rate.Every(time.Minute/time.Duration(n)), n
	}
	s.limiter = rate.NewLimiter(limit, burst)
	if s.catalog != nil {
		s.searcher = engine.NewSearcher(s.catalog, s.searchOptionsLocked())
	}
}

func (s *Server) isReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Handler returns the HTTP handler with all API routes and CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/config", s.handleGetConfig)
	mux.HandleFunc("POST /api/config", s.handleSetConfig)
	// Catalog
	mux.HandleFunc("GET /api/areas", s.handleAreas)
	mux.HandleFunc("GET /api/items", s.handleItems)
	mux.HandleFunc("GET /api/items/search", s.handleItemSearch)
	mux.HandleFunc("GET /api/items/{code}", s.handleItem)
	mux.HandleFunc("GET /api/characters", s.handleCharacters)
	mux.HandleFunc("POST /api/catalog/reload", s.handleCatalogReload)
	// Routes
	mux.HandleFunc("POST /api/materials/plan", s.handleMaterialsPlan)
	mux.HandleFunc("POST /api/route/suggest", s.handleRouteSuggest)
	mux.HandleFunc("GET /api/search/history", s.handleGetHistory)
	mux.HandleFunc("GET /api/search/history/{id}", s.handleGetHistoryByID)
	mux.HandleFunc("DELETE /api/search/history/{id}", s.handleDeleteHistory)
	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(204)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// statusFor maps engine errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrMalformedRequest),
		errors.Is(err, engine.ErrInvalidItemCode),
		errors.Is(err, engine.ErrCyclicBuildGraph),
		errors.Is(err, engine.ErrUniverseTooLarge):
		return 400
	}
	return 500
}

// --- Handlers ---

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	loaded := s.ready
	var itemCount, areaCount, characterCount int
	if s.catalog != nil {
		itemCount = s.catalog.Len()
		areaCount = len(s.catalog.AreaCodes())
		characterCount = len(s.catalog.Characters())
	}
	s.mu.RUnlock()

	writeJSON(w, map[string]interface{}{
		"catalog_loaded":     loaded,
		"catalog_items":      itemCount,
		"catalog_areas":      areaCount,
		"catalog_characters": characterCount,
		"history_enabled":    s.db != nil,
	})
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	writeJSON(w, s.cfg)
}

func (s *Server) handleSetConfig(w http.ResponseWriter, r *http.Request) {
	var patch map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, 400, "invalid json")
		return
	}

	s.mu.Lock()
	if v, ok := patch["progress_steps"]; ok {
		json.Unmarshal(v, &s.cfg.ProgressSteps)
	}
	if v, ok := patch["search_workers"]; ok {
		json.Unmarshal(v, &s.cfg.SearchWorkers)
	}
	if v, ok := patch["include_empty_route"]; ok {
		json.Unmarshal(v, &s.cfg.IncludeEmptyRoute)
	}
	if v, ok := patch["ignore_common_items"]; ok {
		json.Unmarshal(v, &s.cfg.IgnoreCommonItems)
	}
	if v, ok := patch["validate_item_codes"]; ok {
		json.Unmarshal(v, &s.cfg.ValidateItemCodes)
	}
	if v, ok := patch["max_concurrent_searches"]; ok {
		json.Unmarshal(v, &s.cfg.MaxConcurrentSearches)
	}
	if v, ok := patch["searches_per_minute"]; ok {
		json.Unmarshal(v, &s.cfg.SearchesPerMinute)
	}
	if v, ok := patch["history_limit"]; ok {
		json.Unmarshal(v, &s.cfg.HistoryLimit)
	}

	// Validate bounds
	s.cfg.Normalize()
	if s.cfg.ProgressSteps > 10000 {
		s.cfg.ProgressSteps = 10000
	}
	if s.cfg.SearchWorkers > 64 {
		s.cfg.SearchWorkers = 64
	}
	s.applyConfigLocked()
	cfg := *s.cfg
	s.mu.Unlock()

	if s.db != nil {
		if err := s.db.SaveConfig(&cfg); err != nil {
			log.Printf("[API] SaveConfig: %v", err)
		}
	}
	writeJSON(w, cfg)
}

func (s *Server) handleRouteSuggest(w http.ResponseWriter, r *http.Request) {
	var req engine.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, 400, "invalid json")
		return
	}

	s.mu.RLock()
	searcher, searches, limiter := s.searcher, s.searches, s.limiter
	historyLimit := s.cfg.HistoryLimit
	s.mu.RUnlock()
	if searcher == nil {
		writeError(w, 503, "catalog not loaded")
		return
	}

	sreq, err := searcher.ResolveRequest(req)
	if err == nil {
		err = searcher.Validate(sreq)
	}
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	if !limiter.Allow() {
		writeError(w, 429, "too many searches, slow down")
		return
	}
	if !searches.TryAcquire(1) {
		writeError(w, 503, "search capacity exhausted")
		return
	}
	defer searches.Release(1)

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, 500, "streaming not supported")
		return
	}

	searchID := uuid.NewString()
	rec := &db.SearchRecord{ID: searchID, Status: db.SearchCancelled}
	rec.Params, _ = json.Marshal(req)
	log.Printf("[API] Route search %s starting: %d required items, %d users, %d areas",
		searchID, len(req.RequiredItemCounts), len(req.Users), len(sreq.Areas))
	startTime := time.Now()

	for msg := range searcher.Start(r.Context(), req) {
		msg.SearchID = searchID
		switch msg.Type {
		case engine.MessageStart:
			rec.Total = msg.Total
		case engine.MessageProgress:
			rec.Examined = msg.Current
		case engine.MessageFinish:
			rec.Routes = msg.Routes
			rec.Status = db.SearchNoRoute
			if len(msg.Routes) > 0 {
				rec.Status = db.SearchFound
				rec.RouteSize = len(msg.Routes[0])
			} else {
				rec.Examined = rec.Total
			}
		case engine.MessageError:
			rec.Status = db.SearchFailed
			if msg.Err != nil {
				rec.Error = msg.Err.Error()
			}
		}
		line, err := json.Marshal(msg)
		if err != nil {
			log.Printf("[API] Route search JSON marshal error: %v", err)
			continue
		}
		fmt.Fprintf(w, "%s\n", line)
		flusher.Flush()
	}

	rec.DurationMs = time.Since(startTime).Milliseconds()
	log.Printf("[API] Route search %s %s: %d routes of size %d, %s/%s candidates in %dms",
		searchID, rec.Status, len(rec.Routes), rec.RouteSize,
		humanize.Comma(int64(rec.Examined)), humanize.Comma(int64(rec.Total)), rec.DurationMs)

	if s.db == nil {
		return
	}
	if err := s.db.InsertSearch(rec); err != nil {
		log.Printf("[API] Route search %s history: %v", searchID, err)
		return
	}
	if n, err := s.db.PruneSearchHistory(historyLimit); err == nil && n > 0 {
		log.Printf("[API] Pruned %d old searches", n)
	}
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		writeJSON(w, []db.SearchRecord{})
		return
	}
	limitStr := r.URL.Query().Get("limit")
	limit := 50
	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}
	writeJSON(w, s.db.GetSearchHistory(limit))
}

func (s *Server) handleGetHistoryByID(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, 400, "invalid id")
		return
	}
	if s.db == nil {
		writeError(w, 404, "not found")
		return
	}
	record := s.db.GetSearchByID(id)
	if record == nil {
		writeError(w, 404, "not found")
		return
	}
	writeJSON(w, record)
}

func (s *Server) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, 400, "invalid id")
		return
	}
	if s.db == nil {
		writeError(w, 404, "not found")
		return
	}
	if err := s.db.DeleteSearch(id); err != nil {
		writeError(w, 500, "delete failed: "+err.Error())
		return
	}
	writeJSON(w, map[string]string{"status": "deleted"})
}
