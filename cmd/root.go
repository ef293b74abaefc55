package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/katori-hub/Cortex/internal/capture"
	"github.com/katori-hub/Cortex/internal/config"
	"github.com/katori-hub/Cortex/internal/db"
	"github.com/katori-hub/Cortex/internal/enrich"
	"github.com/katori-hub/Cortex/internal/graph"
	"github.com/katori-hub/Cortex/internal/llm"
	"github.com/katori-hub/Cortex/internal/synthesis"
)

var (
	dbPath     string
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "cortex",
	Short: "Cortex knowledge capture and enrichment pipeline",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to .cortex.db database")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to cortex.yaml config")
}

// DiscoverDB finds the database path using priority: env > flag > walk-up > XDG fallback.
// The env, flag and XDG paths are used even when the file does not exist yet;
// the walk-up only matches an existing database.
func DiscoverDB() (string, error) {
	// 1. Environment variable
	if envPath := os.Getenv("CORTEX_DB"); envPath != "" {
		return envPath, nil
	}

	// 2. CLI flag
	if dbPath != "" {
		return dbPath, nil
	}

	// 3. Walk up from CWD
	dir, err := os.Getwd()
	if err == nil {
		for {
			candidate := filepath.Join(dir, ".cortex.db")
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	// 4. XDG fallback
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("no database path (set CORTEX_DB or use --db): %w", err)
	}
	return filepath.Join(home, ".local", "share", "cortex", "cortex.db"), nil
}

// OpenDatabase discovers and opens the database, applying migrations.
func OpenDatabase() (*db.DB, error) {
	path, err := DiscoverDB()
	if err != nil {
		return nil, err
	}
	return db.OpenDB(path)
}

// LoadConfig reads the config file (if any) with env overrides applied.
func LoadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, ".config", "cortex", "cortex.yaml")
		}
	}
	return config.Load(path)
}

// pipeline bundles the wired components every pipeline command needs.
type pipeline struct {
	db     *db.DB
	cfg    *config.Config
	intake *capture.Intake
	queue  *enrich.Queue
	engine *graph.Engine
	embed  *llm.Embedder
	sched  *synthesis.Scheduler
}

// openPipeline opens the database and wires the service clients from config.
func openPipeline() (*pipeline, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}

	var d *db.DB
	if cfg.DBPath != "" {
		d, err = db.OpenDB(cfg.DBPath)
	} else {
		d, err = OpenDatabase()
	}
	if err != nil {
		return nil, err
	}

	logger := slog.Default()
	client := llm.NewClient(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model)
	embedder := llm.NewEmbedder(cfg.Embedding.Host, cfg.Embedding.Model)
	engine := graph.NewEngine(d, cfg.ConnectionThreshold, logger)
	queue := enrich.NewQueue(d, client, embedder, engine, enrich.Options{
		BatchSize: cfg.Enrich.BatchSize,
		ItemDelay: cfg.Enrich.ItemDelay,
		Cooldown:  cfg.Enrich.Cooldown,
	}, logger)

	return &pipeline{
		db:     d,
		cfg:    cfg,
		intake: capture.NewIntake(d, capture.NewFetcher(), logger),
		queue:  queue,
		engine: engine,
		embed:  embedder,
		sched:  synthesis.NewScheduler(d, client, logger),
	}, nil
}

func (p *pipeline) Close() {
	p.db.Close()
}
