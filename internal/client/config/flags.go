package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/herdsync/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-u string   base URL of the HTTP API
//	-t string   transport: http or grpc
//	-g string   address and port of the gRPC endpoint
//	-d string   path of the local database
//	-l string   path of the log file
//	-i int      online check interval in seconds
//	-w int      sync debounce window in milliseconds
//
// Only the flags listed above are passed to the flag set; everything else in
// os.Args is ignored.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-u", "-t", "-g", "-d", "-l", "-i", "-w"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerURL, "u", cfg.ServerURL, "base URL of the HTTP API")
	fs.StringVar(&cfg.Transport, "t", cfg.Transport, "transport: http or grpc")
	fs.StringVar(&cfg.GRPCAddr, "g", cfg.GRPCAddr, "address and port of the gRPC endpoint")
	fs.StringVar(&cfg.DBPath, "d", cfg.DBPath, "path of the local database")
	fs.StringVar(&cfg.LogFile, "l", cfg.LogFile, "path of the log file")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	debounce := fs.Int("w", int(cfg.DebounceInterval.Milliseconds()), "sync debounce window (in milliseconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
	cfg.DebounceInterval = time.Duration(*debounce) * time.Millisecond
}
