// Package countdown parses countdown service flags and launches the service.
package countdown

import (
	"context"
	"flag"

	entrypoint "github.com/hubdash/hubdash/internal/platform/cmd"
	server "github.com/hubdash/hubdash/internal/services/countdown/app"
)

// Config holds countdown command configuration.
type Config struct {
	Port int `env:"HUBDASH_COUNTDOWN_PORT" envDefault:"8090"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The countdown HTTP server port")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the countdown HTTP API service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceCountdown, func(context.Context) error {
		return server.Run(ctx, cfg.Port)
	})
}
