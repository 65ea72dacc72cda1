package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"lumia-router/internal/catalog"
	"lumia-router/internal/engine"
)

type areaSummary struct {
	Code      int32 `json:"code"`
	ItemCount int   `json:"item_count"`
}

type itemDetail struct {
	*catalog.Item
	Final         bool               `json:"final"`
	RequiresRare  bool               `json:"requires_rare"`
	BaseMaterials catalog.ItemCounts `json:"base_materials"`
}

func (s *Server) currentCatalog(w http.ResponseWriter) *catalog.Catalog {
	s.mu.RLock()
	cat := s.catalog
	s.mu.RUnlock()
	if cat == nil {
		writeError(w, 503, "catalog not loaded")
	}
	return cat
}

func (s *Server) handleAreas(w http.ResponseWriter, r *http.Request) {
	cat := s.currentCatalog(w)
	if cat == nil {
		return
	}
	codes := cat.AreaCodes()
	out := make([]areaSummary, 0, len(codes))
	for _, code := range codes {
		out = append(out, areaSummary{Code: code, ItemCount: len(cat.ItemsInArea(code))})
	}
	writeJSON(w, out)
}

func (s *Server) handleItems(w http.ResponseWriter, r *http.Request) {
	cat := s.currentCatalog(w)
	if cat == nil {
		return
	}
	q := r.URL.Query()
	var f catalog.Filter
	if v := q.Get("area"); v != "" {
		area, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			writeError(w, 400, "invalid area")
			return
		}
		f.AreaCode = int32(area)
	}
	f.ItemType = q.Get("type")
	f.FinalOnly, _ = strconv.ParseBool(q.Get("final"))
	f.CraftableOnly, _ = strconv.ParseBool(q.Get("craftable"))
	f.ExcludeRare, _ = strconv.ParseBool(q.Get("exclude_rare"))

	items := cat.Where(f)
	if items == nil {
		items = []*catalog.Item{}
	}
	writeJSON(w, items)
}

func (s *Server) handleItem(w http.ResponseWriter, r *http.Request) {
	cat := s.currentCatalog(w)
	if cat == nil {
		return
	}
	code, err := strconv.ParseInt(r.PathValue("code"), 10, 32)
	if err != nil {
		writeError(w, 400, "invalid item code")
		return
	}
	it, ok := cat.FindByCode(int32(code))
	if !ok {
		writeError(w, 404, "not found")
		return
	}
	base, err := engine.NewResolver(cat).Resolve([]int32{it.Code}, nil)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, itemDetail{
		Item:          it,
		Final:         cat.IsFinal(it),
		RequiresRare:  cat.RequiresRareMaterial(it),
		BaseMaterials: base,
	})
}

func (s *Server) handleItemSearch(w http.ResponseWriter, r *http.Request) {
	cat := s.currentCatalog(w)
	if cat == nil {
		return
	}
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeJSON(w, []catalog.SearchResult{})
		return
	}
	limit := 20
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 && l <= 100 {
		limit = l
	}
	results := cat.Search(q, limit)
	if results == nil {
		results = []catalog.SearchResult{}
	}
	writeJSON(w, results)
}

func (s *Server) handleCharacters(w http.ResponseWriter, r *http.Request) {
	cat := s.currentCatalog(w)
	if cat == nil {
		return
	}
	writeJSON(w, cat.Characters())
}

type planRequest struct {
	Users []engine.PlanUser `json:"users"`
}

func (s *Server) handleMaterialsPlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, 400, "invalid json")
		return
	}
	s.mu.RLock()
	planner := s.planner
	s.mu.RUnlock()
	if planner == nil {
		writeError(w, 503, "catalog not loaded")
		return
	}
	plan, err := planner.Plan(req.Users)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, plan)
}

func (s *Server) handleCatalogReload(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		writeError(w, 503, "no database")
		return
	}
	v, err, shared := s.reloads.Do("catalog", func() (interface{}, error) {
		cat, err := s.db.LoadCatalog(r.Context())
		if err != nil {
			return nil, err
		}
		if cat.Len() == 0 {
			return nil, errEmptyCatalog
		}
		s.SetCatalog(cat)
		return cat, nil
	})
	if err != nil {
		log.Printf("[API] Catalog reload: %v", err)
		writeError(w, 500, "reload failed: "+err.Error())
		return
	}
	cat := v.(*catalog.Catalog)
	log.Printf("[API] Catalog reloaded: %d items, %d areas (shared=%v)", cat.Len(), len(cat.AreaCodes()), shared)
	writeJSON(w, map[string]interface{}{
		"items":  cat.Len(),
		"areas":  len(cat.AreaCodes()),
		"shared": shared,
	})
}

var errEmptyCatalog = errors.New("catalog tables are empty")
