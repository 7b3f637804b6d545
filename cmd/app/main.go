package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/eniileme/nuclinotion/internal"
	"github.com/eniileme/nuclinotion/internal/jobservice"
	"github.com/eniileme/nuclinotion/internal/jobstore"
	"github.com/eniileme/nuclinotion/internal/mcpserver"
	"github.com/eniileme/nuclinotion/internal/models"
	"github.com/eniileme/nuclinotion/internal/pipeline"
	"github.com/eniileme/nuclinotion/internal/spool"
	pkgconfig "github.com/eniileme/nuclinotion/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadIfExists(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

// process runs one job synchronously and writes the output archive to
// the path given by --out.
func process(ctx context.Context, cmd *cli.Command) error {
	notesZip := cmd.String("notes")
	if notesZip == "" {
		return fmt.Errorf("--notes is required")
	}

	workDir, err := os.MkdirTemp("", "nuclinotion-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(workDir)

	p := pipeline.New("cli", workDir, pipeline.WithStatusFunc(func(s models.JobStatus) {
		fmt.Fprintf(os.Stderr, "[%3d%%] %s\n", s.Progress, s.Message)
	}))

	result, err := p.Process(notesZip, cmd.String("assets"), models.ProcessingOptions{
		ClusteringK: int(cmd.Int("k")),
		Strategy:    cmd.String("strategy"),
	})
	if err != nil {
		return err
	}

	out := cmd.String("out")
	if err := copyFile(result.ZipPath, out); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "%d notes in %d sections, %d unresolved links, %d unresolved images\n",
		result.TotalNotes, len(result.Sections), result.UnresolvedLinks, result.UnresolvedImages)
	fmt.Println(out)
	return nil
}

// mcp starts the MCP stdio server against the configured spool and store.
func mcp(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ttl := time.Duration(cfg.Spool.TTLHours) * time.Hour
	sp, err := spool.New(cfg.Spool.Path, ttl)
	if err != nil {
		return err
	}
	db, err := jobstore.Open(cfg.SQLite.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	// Stdout carries the MCP protocol; logs go to stderr.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))

	svc := jobservice.NewService(sp, db, logger,
		jobservice.WithTTL(ttl),
		jobservice.WithDefaults(cfg.Processing.Options()))

	return mcpserver.New(svc).ServeStdio()
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
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

	cmd := &cli.Command{
		Name:   "nuclinotion",
		Usage:  "Reorganize Markdown note exports into import-ready archives",
		Action: serve,
		Flags:  []cli.Flag{configFlag},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP server",
				Action: serve,
				Flags:  []cli.Flag{configFlag},
			},
			{
				Name:   "process",
				Usage:  "Process one archive and exit",
				Action: process,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "notes", Usage: "Path to the notes zip archive"},
					&cli.StringFlag{Name: "assets", Usage: "Optional path to the assets zip archive"},
					&cli.StringFlag{Name: "out", Usage: "Output archive path", Value: "notion_ready.zip"},
					&cli.StringFlag{Name: "strategy", Usage: "Grouping strategy (cluster, headings, tags)", Value: "cluster"},
					&cli.IntFlag{Name: "k", Usage: "Section count for the cluster strategy (0 = auto)"},
				},
			},
			{
				Name:   "mcp",
				Usage:  "Run the MCP stdio server",
				Action: mcp,
				Flags:  []cli.Flag{configFlag},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
