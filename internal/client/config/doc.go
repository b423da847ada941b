// Package config loads runtime configuration for the herdsync CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// # JSON schema
//
// Intervals use timex.Duration, so values can be either strings like "3s" or
// integer nanoseconds:
//
//	{
//	  "server_url": "http://127.0.0.1:8080",
//	  "transport": "grpc",
//	  "grpc_addr": "127.0.0.1:50051",
//	  "db_path": "herdsync.db",
//	  "online_check_interval": "5s",
//	  "debounce_interval": "500ms"
//	}
package config
