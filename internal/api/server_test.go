package api

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"lumia-router/internal/catalog"
	"lumia-router/internal/config"
	"lumia-router/internal/db"
)

func testItems() []*catalog.Item {
	return []*catalog.Item{
		{Code: 1, Name: "Leather", ItemType: "Misc", InitialCount: 1, AreaItemCounts: map[int32]int{10: 1}},
		{Code: 2, Name: "Branch", ItemType: "Misc", InitialCount: 1, AreaItemCounts: map[int32]int{20: 1}},
		{Code: 3, Name: "Stone", ItemType: "Misc", InitialCount: 1, AreaItemCounts: map[int32]int{20: 1, 30: 2}},
		{Code: 100, Name: "Whip", ItemType: "Weapon", MakeMaterial1: 1, MakeMaterial2: 2, InitialCount: 1},
		{Code: 101, Name: "Bandage", ItemType: "Consume", MakeMaterial1: 1, MakeMaterial2: 3, InitialCount: 3},
	}
}

func testCharacters() []*catalog.Character {
	return []*catalog.Character{
		{Code: 1, Name: "Jackie", WeaponTypes: []string{"Axe", "DualSword"}, StartItems: map[string]catalog.ItemCounts{"Axe": {1: 1}}},
	}
}

func newTestServer(t *testing.T, cfg *config.Config, database *db.DB) *Server {
	t.Helper()
	if cfg == nil {
		cfg = config.Default()
	}
	srv := NewServer(cfg, database)
	srv.SetCatalog(catalog.New(testItems(), testCharacters()))
	return srv
}

func openTestDB(t *testing.T) *db.DB {
	t.Helper()
	d, err := db.Open(filepath.Join(t.TempDir(), "router.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// ndjson decodes every line of a streamed response.
func ndjson(t *testing.T, body *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	sc := bufio.NewScanner(body)
	for sc.Scan() {
		var m map[string]interface{}
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			t.Fatalf("bad line %q: %v", sc.Text(), err)
		}
		out = append(out, m)
	}
	return out
}

func TestHandleGetConfig_ReturnsConfig(t *testing.T) {
	cfg := config.Default()
	cfg.ProgressSteps = 42
	srv := NewServer(cfg, nil)

	rec := do(t, srv.Handler(), http.MethodGet, "/api/config", "")
	if rec.Code != http.StatusOK {
		t.Errorf("GET /api/config status = %d, want 200", rec.Code)
	}
	var out config.Config
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode config: %v", err)
	}
	if out.ProgressSteps != 42 || out.HistoryLimit != 50 {
		t.Errorf("config = %+v", out)
	}
}

func TestHandleSetConfig_PatchesAndClamps(t *testing.T) {
	srv := newTestServer(t, nil, nil)
	rec := do(t, srv.Handler(), http.MethodPost, "/api/config",
		`{"progress_steps": 50000, "search_workers": -3, "ignore_common_items": true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	if srv.cfg.ProgressSteps != 10000 {
		t.Errorf("ProgressSteps = %d, want clamp to 10000", srv.cfg.ProgressSteps)
	}
	if srv.cfg.SearchWorkers != 1 {
		t.Errorf("SearchWorkers = %d, want default 1", srv.cfg.SearchWorkers)
	}
	if !srv.searcher.Options.IgnoreCommonItems {
		t.Error("searcher was not rebuilt from the new config")
	}

	if rec := do(t, srv.Handler(), http.MethodPost, "/api/config", "{"); rec.Code != 400 {
		t.Errorf("invalid json status = %d, want 400", rec.Code)
	}
}

func TestHandleStatus(t *testing.T) {
	srv := NewServer(config.Default(), nil)
	var out map[string]interface{}
	json.NewDecoder(do(t, srv.Handler(), http.MethodGet, "/api/status", "").Body).Decode(&out)
	if out["catalog_loaded"] != false {
		t.Errorf("before load: %v", out)
	}

	srv.SetCatalog(catalog.New(testItems(), testCharacters()))
	json.NewDecoder(do(t, srv.Handler(), http.MethodGet, "/api/status", "").Body).Decode(&out)
	if out["catalog_loaded"] != true || out["catalog_items"] != float64(5) || out["catalog_areas"] != float64(3) {
		t.Errorf("after load: %v", out)
	}
}

func TestHandleRouteSuggest_StreamsAndRecordsHistory(t *testing.T) {
	database := openTestDB(t)
	srv := newTestServer(t, nil, database)
	h := srv.Handler()

	rec := do(t, h, http.MethodPost, "/api/route/suggest",
		`{"requiredItemCounts":{"1":1,"2":1},"users":[{"characterCode":1,"startWeaponType":"Axe"}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/x-ndjson" {
		t.Errorf("Content-Type = %q", ct)
	}

	lines := ndjson(t, rec.Body)
	if len(lines) < 2 {
		t.Fatalf("got %d lines", len(lines))
	}
	first, last := lines[0], lines[len(lines)-1]
	if first["type"] != "START" || first["total"] != float64(7) {
		t.Errorf("first = %v", first)
	}
	if last["type"] != "FINISH" {
		t.Fatalf("last = %v", last)
	}
	id, _ := first["searchId"].(string)
	for _, l := range lines {
		if l["searchId"] != id {
			t.Errorf("line %v has a different searchId than %q", l, id)
		}
	}
	routes, _ := json.Marshal(last["routes"])
	if string(routes) != "[[20]]" {
		t.Errorf("routes = %s, want [[20]]", routes)
	}

	got := do(t, h, http.MethodGet, "/api/search/history/"+id, "")
	if got.Code != http.StatusOK {
		t.Fatalf("history status = %d: %s", got.Code, got.Body)
	}
	var record db.SearchRecord
	json.NewDecoder(got.Body).Decode(&record)
	if record.Status != db.SearchFound || record.RouteSize != 1 || len(record.Routes) != 1 || record.Total != 7 {
		t.Errorf("history record = %+v", record)
	}

	if rec := do(t, h, http.MethodDelete, "/api/search/history/"+id, ""); rec.Code != http.StatusOK {
		t.Errorf("delete status = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/search/history/"+id, ""); rec.Code != http.StatusNotFound {
		t.Errorf("after delete status = %d, want 404", rec.Code)
	}
}

func TestHandleRouteSuggest_NoRouteFinishesEmpty(t *testing.T) {
	cfg := config.Default()
	cfg.ValidateItemCodes = false
	srv := newTestServer(t, cfg, nil)

	rec := do(t, srv.Handler(), http.MethodPost, "/api/route/suggest", `{"requiredItemCounts":{"999":1},"users":[]}`)
	lines := ndjson(t, rec.Body)
	last := lines[len(lines)-1]
	routes, _ := json.Marshal(last["routes"])
	if last["type"] != "FINISH" || string(routes) != "[]" {
		t.Errorf("last = %v", last)
	}
}

func TestHandleRouteSuggest_Rejections(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"invalid json", `{`, 400},
		{"missing requirement", `{"users":[]}`, 400},
		{"unknown character", `{"requiredItemCounts":{"1":1},"users":[{"characterCode":9,"startWeaponType":"Axe"}]}`, 400},
		{"weapon not allowed", `{"requiredItemCounts":{"1":1},"users":[{"characterCode":1,"startWeaponType":"Bow"}]}`, 400},
		{"unknown item", `{"requiredItemCounts":{"404":1},"users":[]}`, 400},
		{"negative count", `{"requiredItemCounts":{"1":-1},"users":[]}`, 400},
	}
	srv := newTestServer(t, nil, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv.Handler(), http.MethodPost, "/api/route/suggest", tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body)
			}
		})
	}
}

func TestHandleRouteSuggest_NotReady(t *testing.T) {
	srv := NewServer(config.Default(), nil)
	rec := do(t, srv.Handler(), http.MethodPost, "/api/route/suggest", `{"requiredItemCounts":{"1":1}}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestHandleRouteSuggest_RateLimited(t *testing.T) {
	cfg := config.Default()
	cfg.SearchesPerMinute = 1
	srv := newTestServer(t, cfg, nil)
	body := `{"requiredItemCounts":{"1":1},"users":[]}`

	if rec := do(t, srv.Handler(), http.MethodPost, "/api/route/suggest", body); rec.Code != http.StatusOK {
		t.Fatalf("first status = %d", rec.Code)
	}
	if rec := do(t, srv.Handler(), http.MethodPost, "/api/route/suggest", body); rec.Code != http.StatusTooManyRequests {
		t.Errorf("second status = %d, want 429", rec.Code)
	}
}

func TestHandleRouteSuggest_CapacityExhausted(t *testing.T) {
	cfg := config.Default()
	cfg.MaxConcurrentSearches = 1
	srv := newTestServer(t, cfg, nil)
	if !srv.searches.TryAcquire(1) {
		t.Fatal("could not take the only slot")
	}
	defer srv.searches.Release(1)

	rec := do(t, srv.Handler(), http.MethodPost, "/api/route/suggest", `{"requiredItemCounts":{"1":1},"users":[]}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestHandleHistory_InvalidIDAndEmpty(t *testing.T) {
	srv := newTestServer(t, nil, nil)
	if rec := do(t, srv.Handler(), http.MethodGet, "/api/search/history/not-a-uuid", ""); rec.Code != 400 {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	rec := do(t, srv.Handler(), http.MethodGet, "/api/search/history", "")
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("history without db = %s", rec.Body)
	}
}

func TestCorsMiddleware_Preflight(t *testing.T) {
	srv := NewServer(config.Default(), nil)
	rec := do(t, srv.Handler(), http.MethodOptions, "/api/route/suggest", "")
	if rec.Code != 204 || rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("preflight = %d %v", rec.Code, rec.Header())
	}
}
