package config

import (
	"sync"
	"time"
)

// Settings holds the tunable parameters of the dock watcher. Everything the
// refresh policy and the alternatives ranker treat as a threshold is
// injected from here rather than hard-coded, so a remote config push can
// retune the deployment without a restart.
type Settings struct {
	// FeedURL is the upstream dock feed endpoint.
	FeedURL string `json:"feed_url"`

	// PollIntervalSeconds governs the background refresh cadence.
	PollIntervalSeconds int `json:"poll_interval_seconds"`

	// StalenessSeconds is the maximum age of cached dock data before a
	// foreground request forces a refresh.
	StalenessSeconds int `json:"staleness_seconds"`

	// FailureThreshold is the number of consecutive refresh failures that
	// must accumulate before an error becomes user-visible.
	FailureThreshold int `json:"failure_threshold"`

	// FailureWindowSeconds is the rolling window within which consecutive
	// failures are counted.
	FailureWindowSeconds int `json:"failure_window_seconds"`

	// DebounceSeconds is the delay between crossing the failure threshold
	// and actually surfacing the error.
	DebounceSeconds int `json:"debounce_seconds"`

	// AlternativesRadiusMeters is the initial search radius for nearby
	// alternative docks.
	AlternativesRadiusMeters float64 `json:"alternatives_radius_meters"`

	// MaxAlternatives caps the number of alternative docks returned.
	MaxAlternatives int `json:"max_alternatives"`
}

// DefaultSettings mirror the behaviour observed in production surfaces.
func DefaultSettings() Settings {
	return Settings{
		PollIntervalSeconds:      30,
		StalenessSeconds:         60,
		FailureThreshold:         3,
		FailureWindowSeconds:     120,
		DebounceSeconds:          20,
		AlternativesRadiusMeters: 500,
		MaxAlternatives:          5,
	}
}

// PollInterval returns the poll cadence as a duration.
func (s Settings) PollInterval() time.Duration {
	return time.Duration(s.PollIntervalSeconds) * time.Second
}

// Staleness returns the staleness threshold as a duration.
func (s Settings) Staleness() time.Duration {
	return time.Duration(s.StalenessSeconds) * time.Second
}

// FailureWindow returns the failure-counting window as a duration.
func (s Settings) FailureWindow() time.Duration {
	return time.Duration(s.FailureWindowSeconds) * time.Second
}

// Debounce returns the error-surfacing delay as a duration.
func (s Settings) Debounce() time.Duration {
	return time.Duration(s.DebounceSeconds) * time.Second
}

// Config holds all the configuration settings for the application.
type Config struct {
	Port     int
	Env      string
	Mu       sync.RWMutex
	Settings Settings
}

// NewConfig creates a new instance of a Config struct.
func NewConfig(port int, env string, settings Settings) *Config {
	return &Config{
		Port:     port,
		Env:      env,
		Settings: settings,
	}
}

// UpdateSettings safely replaces the tunable settings.
func (cfg *Config) UpdateSettings(newSettings Settings) {
	cfg.Mu.Lock()
	defer cfg.Mu.Unlock()
	cfg.Settings = newSettings
}

// GetSettings safely returns a copy of the settings. This method should be
// used to access settings from other parts of the application.
func (cfg *Config) GetSettings() Settings {
	cfg.Mu.RLock()
	defer cfg.Mu.RUnlock()
	return cfg.Settings
}
