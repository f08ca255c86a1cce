package main

import (
	"fmt"
	"log"
	"os"

	"github.com/abelbrown/showroom/internal/app"
	"github.com/abelbrown/showroom/internal/config"
	"github.com/abelbrown/showroom/internal/logging"
)

// loadConfig loads the config file named by SHOWROOM_CONFIG, or the default
// one, or fatals. CLI logs go to stderr.
func loadConfig() *config.Config {
	cfg, err := config.Load(os.Getenv("SHOWROOM_CONFIG"))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logging.Use(os.Stderr, cfg.Logging.Level)
	return cfg
}

// openRuntime opens the store and event log or fatals.
func openRuntime(cfg *config.Config, opts app.Options) *app.Runtime {
	rt, err := app.Open(cfg, opts)
	if err != nil {
		log.Fatalf("failed to open runtime: %v", err)
	}
	return rt
}

// truncate shortens a string to max runes, appending "..." if truncated.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}

// fatalf prints to stderr and exits with status 1.
func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}
