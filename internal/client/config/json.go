package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/herdsync/internal/flagx"
	"github.com/dmitrijs2005/herdsync/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Intervals use
// timex.Duration so they can be written as "3s" or as integer nanoseconds.
type JsonConfig struct {
	ServerURL           string         `json:"server_url"`
	Transport           string         `json:"transport"`
	GRPCAddr            string         `json:"grpc_addr"`
	DBPath              string         `json:"db_path"`
	LogFile             string         `json:"log_file"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
	DebounceInterval    timex.Duration `json:"debounce_interval"`
	RequestTimeout      timex.Duration `json:"request_timeout"`
}

// parseJson overlays Config with the values present in the JSON file named
// by -c or -config. Absent keys keep their current value. Read or decode
// errors panic.
func parseJson(cfg *Config) {
	path := flagx.ConfigPath(os.Args[1:])
	if path == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	setString(&cfg.ServerURL, jc.ServerURL)
	setString(&cfg.Transport, jc.Transport)
	setString(&cfg.GRPCAddr, jc.GRPCAddr)
	setString(&cfg.DBPath, jc.DBPath)
	setString(&cfg.LogFile, jc.LogFile)
	setDuration(&cfg.OnlineCheckInterval, jc.OnlineCheckInterval)
	setDuration(&cfg.DebounceInterval, jc.DebounceInterval)
	setDuration(&cfg.RequestTimeout, jc.RequestTimeout)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
