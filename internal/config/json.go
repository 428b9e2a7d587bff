package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/gabrielpoca/journal/internal/flagx"
	"github.com/gabrielpoca/journal/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify intervals either as strings like "30s"
// or as integer nanoseconds.
type JsonConfig struct {
	RemoteBaseURL   string         `json:"remote_base_url"`
	DataDir         string         `json:"data_dir"`
	LongpollTimeout timex.Duration `json:"longpoll_timeout"`
	PushInterval    timex.Duration `json:"push_interval"`
}

// parseJson overlays cfg with values loaded from the JSON file named via the
// -c/-config flags. Without those flags nothing is loaded. Fields absent from
// the file keep their earlier values; read or unmarshal errors panic, since a
// named config file that cannot be used is a startup bug.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.RemoteBaseURL != "" {
		cfg.RemoteBaseURL = jc.RemoteBaseURL
	}
	if jc.DataDir != "" {
		cfg.DataDir = jc.DataDir
	}
	if jc.LongpollTimeout.Duration > 0 {
		cfg.LongpollTimeout = time.Duration(jc.LongpollTimeout.Duration)
	}
	if jc.PushInterval.Duration > 0 {
		cfg.PushInterval = time.Duration(jc.PushInterval.Duration)
	}
}
