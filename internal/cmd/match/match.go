// Package match parses match command flags and launches the match runtime.
package match

import (
	"context"
	"flag"

	entrypoint "github.com/gammonhq/gammon.space/internal/platform/cmd"
	matchserver "github.com/gammonhq/gammon.space/internal/services/match/app"
)

// Config holds match command configuration.
type Config struct {
	Port                int    `env:"GAMMON_SPACE_MATCH_PORT" envDefault:"8090"`
	DBPath              string `env:"GAMMON_SPACE_MATCH_DB_PATH" envDefault:"data/match.db"`
	AIQueueSize         int    `env:"GAMMON_SPACE_MATCH_AI_QUEUE_SIZE" envDefault:"16"`
	InitialClockSeconds int64  `env:"GAMMON_SPACE_MATCH_CLOCK_SECONDS" envDefault:"600"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The match health gRPC server port")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The match SQLite database path")
	fs.IntVar(&cfg.AIQueueSize, "ai-queue-size", cfg.AIQueueSize, "AI turn queue capacity")
	fs.Int64Var(&cfg.InitialClockSeconds, "clock-seconds", cfg.InitialClockSeconds, "Per-side clock budget for new matches")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the match runtime.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceMatch, func(ctx context.Context) error {
		return matchserver.Run(ctx, matchserver.RuntimeConfig{
			Port:                cfg.Port,
			DBPath:              cfg.DBPath,
			AIQueueSize:         cfg.AIQueueSize,
			InitialClockSeconds: cfg.InitialClockSeconds,
		})
	})
}
