package db

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

// Search outcome statuses stored in search_history.
const (
	SearchFound     = "found"
	SearchNoRoute   = "no_route"
	SearchCancelled = "cancelled"
	SearchFailed    = "error"
)

// SearchRecord is one route search as kept in history.
type SearchRecord struct {
	ID         string          `json:"id"`
	Timestamp  string          `json:"timestamp"`
	Status     string          `json:"status"`
	Total      uint64          `json:"total"`
	Examined   uint64          `json:"examined"`
	RouteSize  int             `json:"route_size"`
	RouteCount int             `json:"route_count"`
	DurationMs int64           `json:"duration_ms"`
	Params     json.RawMessage `json:"params"`
	Error      string          `json:"error,omitempty"`
	Routes     [][]int32       `json:"routes,omitempty"` // only filled by GetSearchByID
}

// InsertSearch stores a search and its routes. An empty ID is replaced by a new UUID.
func (d *DB) InsertSearch(rec *SearchRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp == "" {
		rec.Timestamp = time.Now().Format(time.RFC3339)
	}
	params := string(rec.Params)
	if params == "" {
		params = "{}"
	}
	rec.RouteCount = len(rec.Routes)

	tx, err := d.sql.Begin()
	if err != nil {
		return fmt.Errorf("insert search: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO search_history (
		id, timestamp, status, total, examined, route_size, route_count, duration_ms, params_json, error
	) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		rec.ID, rec.Timestamp, rec.Status, int64(rec.Total), int64(rec.Examined),
		rec.RouteSize, rec.RouteCount, rec.DurationMs, params, rec.Error,
	); err != nil {
		return fmt.Errorf("insert search: %w", err)
	}

	stmt, err := tx.Prepare("INSERT INTO search_routes (search_id, ord, areas) VALUES (?,?,?)")
	if err != nil {
		return fmt.Errorf("insert search routes: %w", err)
	}
	defer stmt.Close()
	for i, route := range rec.Routes {
		areas, _ := json.Marshal(route)
		if _, err := stmt.Exec(rec.ID, i, string(areas)); err != nil {
			return fmt.Errorf("insert search route %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// GetSearchHistory returns the last N searches (newest first), without routes.
func (d *DB) GetSearchHistory(limit int) []SearchRecord {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.sql.Query(`
		SELECT id, timestamp, status, total, examined, route_size, route_count, duration_ms, params_json, error
		FROM search_history ORDER BY timestamp DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return []SearchRecord{}
	}
	defer rows.Close()

	records := []SearchRecord{}
	for rows.Next() {
		r, err := scanSearch(rows)
		if err != nil {
			log.Printf("[DB] GetSearchHistory scan: %v", err)
			continue
		}
		records = append(records, *r)
	}
	return records
}

// GetSearchByID returns a single search with its routes, or nil.
func (d *DB) GetSearchByID(id string) *SearchRecord {
	row := d.sql.QueryRow(`
		SELECT id, timestamp, status, total, examined, route_size, route_count, duration_ms, params_json, error
		FROM search_history WHERE id = ?`,
		id,
	)
	r, err := scanSearch(row)
	if err != nil {
		return nil
	}

	rows, err := d.sql.Query("SELECT areas FROM search_routes WHERE search_id = ? ORDER BY ord", id)
	if err != nil {
		return r
	}
	defer rows.Close()
	r.Routes = [][]int32{}
	for rows.Next() {
		var s string
		var route []int32
		rows.Scan(&s)
		if err := json.Unmarshal([]byte(s), &route); err != nil {
			continue
		}
		r.Routes = append(r.Routes, route)
	}
	return r
}

// DeleteSearch removes a search and its routes.
func (d *DB) DeleteSearch(id string) error {
	tx, err := d.sql.Begin()
	if err != nil {
		return err
	}
	tx.Exec("DELETE FROM search_routes WHERE search_id = ?", id)
	tx.Exec("DELETE FROM search_history WHERE id = ?", id)
	return tx.Commit()
}

// PruneSearchHistory keeps only the newest keep searches and returns how many were removed.
func (d *DB) PruneSearchHistory(keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	tx, err := d.sql.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	const stale = `SELECT id FROM search_history ORDER BY timestamp DESC, rowid DESC LIMIT -1 OFFSET ?`
	if _, err := tx.Exec("DELETE FROM search_routes WHERE search_id IN ("+stale+")", keep); err != nil {
		return 0, err
	}
	res, err := tx.Exec("DELETE FROM search_history WHERE id IN ("+stale+")", keep)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSearch(s rowScanner) (*SearchRecord, error) {
	var r SearchRecord
	var total, examined int64
	var params string
	if err := s.Scan(&r.ID, &r.Timestamp, &r.Status, &total, &examined,
		&r.RouteSize, &r.RouteCount, &r.DurationMs, &params, &r.Error); err != nil {
		return nil, err
	}
	r.Total = uint64(total)
	r.Examined = uint64(examined)
	r.Params = json.RawMessage(params)
	return &r, nil
}
