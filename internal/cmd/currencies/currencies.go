// Package currencies parses currency service flags and launches the service.
package currencies

import (
	"context"
	"flag"

	entrypoint "github.com/ithrek/syncadapter-currencies/internal/platform/cmd"
	server "github.com/ithrek/syncadapter-currencies/internal/services/currency/app"
)

// Config holds currency command configuration.
type Config struct {
	Port int `env:"CURRENCIES_PORT" envDefault:"8095"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The currency gRPC server port")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the currency gRPC API service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceCurrencies, func(ctx context.Context) error {
		return server.Run(ctx, cfg.Port)
	})
}
