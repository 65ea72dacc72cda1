package db

import (
	"strconv"

	"lumia-router/internal/config"
)

// LoadConfig reads config from SQLite. If empty, returns defaults.
func (d *DB) LoadConfig() *config.Config {
	cfg := config.Default()

	rows, err := d.sql.Query("SELECT key, value FROM config")
	if err != nil {
		return cfg
	}
	defer rows.Close()

	m := make(map[string]string)
	for rows.Next() {
		var k, v string
		rows.Scan(&k, &v)
		m[k] = v
	}

	if v, ok := m["progress_steps"]; ok {
		cfg.ProgressSteps, _ = strconv.Atoi(v)
	}
	if v, ok := m["search_workers"]; ok {
		cfg.SearchWorkers, _ = strconv.Atoi(v)
	}
	if v, ok := m["include_empty_route"]; ok {
		cfg.IncludeEmptyRoute, _ = strconv.ParseBool(v)
	}
	if v, ok := m["ignore_common_items"]; ok {
		cfg.IgnoreCommonItems, _ = strconv.ParseBool(v)
	}
	if v, ok := m["validate_item_codes"]; ok {
		cfg.ValidateItemCodes, _ = strconv.ParseBool(v)
	}
	if v, ok := m["max_concurrent_searches"]; ok {
		cfg.MaxConcurrentSearches, _ = strconv.Atoi(v)
	}
	if v, ok := m["searches_per_minute"]; ok {
		cfg.SearchesPerMinute, _ = strconv.Atoi(v)
	}
	if v, ok := m["history_limit"]; ok {
		cfg.HistoryLimit, _ = strconv.Atoi(v)
	}

	cfg.Normalize()
	return cfg
}

// SaveConfig writes config to SQLite (upsert all fields).
func (d *DB) SaveConfig(cfg *config.Config) error {
	pairs := map[string]string{
		"progress_steps":          strconv.Itoa(cfg.ProgressSteps),
		"search_workers":          strconv.Itoa(cfg.SearchWorkers),
		"include_empty_route":     strconv.FormatBool(cfg.IncludeEmptyRoute),
		"ignore_common_items":     strconv.FormatBool(cfg.IgnoreCommonItems),
		"validate_item_codes":     strconv.FormatBool(cfg.ValidateItemCodes),
		"max_concurrent_searches": strconv.Itoa(cfg.MaxConcurrentSearches),
		"searches_per_minute":     strconv.Itoa(cfg.SearchesPerMinute),
		"history_limit":           strconv.Itoa(cfg.HistoryLimit),
	}

	tx, err := d.sql.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare("INSERT OR REPLACE INTO config (key, value) VALUES (?, ?)")
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for k, v := range pairs {
		if _, err := stmt.Exec(k, v); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}
