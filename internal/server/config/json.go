package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/herdsync/internal/flagx"
	"github.com/dmitrijs2005/herdsync/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Durations use
// timex.Duration so they can be written as "1h" or as integer nanoseconds.
type JsonConfig struct {
	HTTPAddr       string         `json:"http_addr"`
	GRPCAddr       string         `json:"grpc_addr"`
	Storage        string         `json:"storage"`
	DatabaseDSN    string         `json:"database_dsn"`
	SecretKey      string         `json:"secret_key"`
	TokenValidity  timex.Duration `json:"token_validity"`
	TokenCacheSize int            `json:"token_cache_size"`
	TokenCacheTTL  timex.Duration `json:"token_cache_ttl"`
	LogLevel       string         `json:"log_level"`
}

// parseJson overlays cfg with the keys present in the file named by -c or
// -config. Read or decode errors panic.
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

	setString(&cfg.HTTPAddr, jc.HTTPAddr)
	setString(&cfg.GRPCAddr, jc.GRPCAddr)
	setString(&cfg.Storage, jc.Storage)
	setString(&cfg.DatabaseDSN, jc.DatabaseDSN)
	setString(&cfg.SecretKey, jc.SecretKey)
	setString(&cfg.LogLevel, jc.LogLevel)
	setDuration(&cfg.TokenValidity, jc.TokenValidity)
	setDuration(&cfg.TokenCacheTTL, jc.TokenCacheTTL)
	if jc.TokenCacheSize != 0 {
		cfg.TokenCacheSize = jc.TokenCacheSize
	}
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
