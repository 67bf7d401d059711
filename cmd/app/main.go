package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/myfview/internal"
	pkgconfig "github.com/starford/myfview/pkg/config"
)

var version = "dev"

func loadOptions(cmd *cli.Command) ([]internal.Option, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.Load(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if p := cmd.Int("port"); p > 0 {
		cfg.App.HTTP.Port = int(p)
	}

	return []internal.Option{
		internal.WithConfig(cfg),
		internal.WithVersion(version),
	}, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func mcp(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	if err := internal.RunMCP(ctx, opts...); err != nil {
		return fmt.Errorf("mcp run error: %w", err)
	}
	return nil
}

func main() {
	configFlag := &cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Usage:       "Path to config file",
		DefaultText: "config/config.yaml",
		Value:       "config/config.yaml",
		Sources:     cli.EnvVars("APP_CONFIG_FILE"),
	}
	portFlag := &cli.IntFlag{
		Name:    "port",
		Aliases: []string{"p"},
		Usage:   "HTTP port, overrides app.http.port",
		Sources: cli.EnvVars("PORT"),
	}

	cmd := &cli.Command{
		Name:    "myfview",
		Usage:   "Run a myfile viewer server",
		Version: version,
		Action:  serve,
		Flags:   []cli.Flag{configFlag, portFlag},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the viewer, the API and metrics over HTTP (default)",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the myfile tools over MCP stdio",
				Action: mcp,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
