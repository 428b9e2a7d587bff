package config

import (
	"flag"
	"os"
	"time"

	"github.com/gabrielpoca/journal/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-r string   base URL of the sync server (default from Config)
//	-d string   data directory holding the store and keystore
//	-i int      push interval in seconds (default from Config)
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-r", "-d", "-i"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.RemoteBaseURL, "r", cfg.RemoteBaseURL, "base URL of the sync server")
	fs.StringVar(&cfg.DataDir, "d", cfg.DataDir, "data directory")
	pushInterval := fs.Int("i", int(cfg.PushInterval.Seconds()), "push interval (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.PushInterval = time.Duration(*pushInterval) * time.Second
}
