package config

// Config holds application settings (in-memory representation).
// Persistence is handled by internal/db package.
type Config struct {
	// Route search tuning.
	ProgressSteps     int  `json:"progress_steps"`      // target number of PROGRESS messages per search
	SearchWorkers     int  `json:"search_workers"`      // goroutines evaluating candidates of one size
	IncludeEmptyRoute bool `json:"include_empty_route"` // test the zero-area route before size 1
	IgnoreCommonItems bool `json:"ignore_common_items"` // common items count as always obtainable
	ValidateItemCodes bool `json:"validate_item_codes"` // reject unknown item codes up front

	// Admission control for the HTTP surface.
	MaxConcurrentSearches int `json:"max_concurrent_searches"`
	SearchesPerMinute     int `json:"searches_per_minute"` // 0 = unlimited

	HistoryLimit int `json:"history_limit"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		ProgressSteps:         300,
		SearchWorkers:         1,
		ValidateItemCodes:     true,
		MaxConcurrentSearches: 4,
		SearchesPerMinute:     30,
		HistoryLimit:          50,
	}
}

// Normalize clamps out-of-range values back to their defaults.
func (c *Config) Normalize() {
	def := Default()
	if c.ProgressSteps <= 0 {
		c.ProgressSteps = def.ProgressSteps
	}
	if c.SearchWorkers <= 0 {
		c.SearchWorkers = def.SearchWorkers
	}
	if c.MaxConcurrentSearches <= 0 {
		c.MaxConcurrentSearches = def.MaxConcurrentSearches
	}
	if c.SearchesPerMinute < 0 {
		c.SearchesPerMinute = 0
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = def.HistoryLimit
	}
}
