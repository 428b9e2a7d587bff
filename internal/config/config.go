package config

import "time"

// Config holds runtime settings for the journal client.
//
// Fields:
//   - RemoteBaseURL: root URL of the sync server; each user's database lives
//     under it as userdb-<hex(username)>.
//   - DataDir: per-device directory holding the store, keystore, and legacy
//     export. Empty means the platform default under the user config dir.
//   - LongpollTimeout: remote-side bound for one change-feed request.
//   - PushInterval: fallback cadence for draining dirty documents.
type Config struct {
	RemoteBaseURL   string
	DataDir         string
	LongpollTimeout time.Duration
	PushInterval    time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.RemoteBaseURL = "http://localhost:5984"
	c.DataDir = ""
	c.LongpollTimeout = 25 * time.Second
	c.PushInterval = 30 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
