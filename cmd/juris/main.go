// Command juris answers questions about a legal case file.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/juris/internal/adapters/driving/cli"
	"github.com/custodia-labs/juris/internal/app"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// API keys may come from a .env file in the working directory.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	container, err := app.Open(os.Getenv("JURIS_HOME"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "juris: %v\n", err)
		return err
	}
	defer container.Close() //nolint:errcheck

	cli.SetServices(cli.Services{
		Settings: container.Settings,
		Status:   container.Status,
		Entities: container.Entities,
		OpenEngine: func(ctx context.Context) (*cli.Engine, error) {
			engine, err := container.Engine(ctx)
			if err != nil {
				return nil, err
			}
			e := &cli.Engine{
				Query:  engine.Query,
				Runner: engine.Runner,
				Close:  engine.Close,
			}
			if engine.Watcher != nil {
				e.Watcher = engine.Watcher
			}
			return e, nil
		},
		CheckProviders: func(ctx context.Context) ([]cli.ProviderCheck, error) {
			results, err := container.Check(ctx)
			if err != nil {
				return nil, err
			}
			checks := make([]cli.ProviderCheck, len(results))
			for i, r := range results {
				checks[i] = cli.ProviderCheck{Name: r.Name, Err: r.Err}
			}
			return checks, nil
		},
	})

	return cli.Execute(ctx, version)
}
