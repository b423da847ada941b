package config

import "time"

const (
	TransportHTTP = "http"
	TransportGRPC = "grpc"
)

// Config holds runtime settings for the herdsync CLI.
type Config struct {
	ServerURL           string
	Transport           string
	GRPCAddr            string
	DBPath              string
	LogFile             string
	OnlineCheckInterval time.Duration
	DebounceInterval    time.Duration
	RequestTimeout      time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.Transport = TransportHTTP
	c.GRPCAddr = "127.0.0.1:50051"
	c.DBPath = "herdsync.db"
	c.LogFile = "herdsync.log"
	c.OnlineCheckInterval = 5 * time.Second
	c.DebounceInterval = 500 * time.Millisecond
	c.RequestTimeout = 15 * time.Second
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
