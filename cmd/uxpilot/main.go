package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/TobiSchelling/UXPilot/internal/clarity"
	"github.com/TobiSchelling/UXPilot/internal/config"
	"github.com/TobiSchelling/UXPilot/internal/database"
	"github.com/TobiSchelling/UXPilot/internal/pipeline"
	"github.com/TobiSchelling/UXPilot/internal/server"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "uxpilot",
	Short:   "Automated UX issue investigations",
	Long:    "UXPilot turns Microsoft Clarity behavioral data into prioritized, source-aware UX investigation reports.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Secrets live in the environment; a local .env is a convenience.
		_ = godotenv.Load()

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("uxpilot", version)
		fmt.Println("pipeline", pipeline.Version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/uxpilot/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to set the Clarity project, target repo, and API key env vars.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database and system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Printf("Today: %s\n\n", database.Today())
		fmt.Println("Runs:")
		fmt.Printf("  Total: %d\n", stats.TotalRuns)
		fmt.Printf("  Issues found: %d (%d P0)\n", stats.TotalIssues, stats.P0Issues)
		fmt.Printf("  Pages affected: %d\n", stats.DistinctURLs)
		fmt.Printf("  Estimated spend: $%.2f\n", stats.TotalCost)

		latest, err := db.GetLatestRun()
		if err != nil {
			return err
		}
		if latest != nil {
			fmt.Println("\nLatest run:")
			fmt.Printf("  Date: %s\n", latest.RunDate)
			fmt.Printf("  Issues: %d\n", latest.IssueCount)
			if latest.ReportPath != nil {
				fmt.Printf("  Report: %s\n", *latest.ReportPath)
			}
		}

		fmt.Println("\nCredentials:")
		fmt.Printf("  %s: %s\n", cfg.Analytics.APIKeyEnv, presence(cfg.Analytics.APIKeyEnv))
		fmt.Printf("  %s: %s\n", cfg.Generation.APIKeyEnv, presence(cfg.Generation.APIKeyEnv))
		return nil
	},
}

func presence(env string) string {
	if os.Getenv(env) != "" {
		return "set"
	}
	return "NOT SET"
}

// --- fetch command ---

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch Clarity data into the local cache without analyzing it",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := clarity.NewClient(cfg.Analytics.APIKeyEnv, cfg.Analytics.NumDays, cfg.Analytics.MaxCallsPerDay)
		if !client.IsConfigured() {
			return fmt.Errorf("analytics API token not set: export %s", cfg.Analytics.APIKeyEnv)
		}

		date := database.Today()
		if cached, _ := clarity.LoadCached(cfg.GetDataDir(), date); cached != nil {
			fmt.Printf("Cache for %s already exists (%d API calls recorded). Nothing to do.\n", date, cached.APICallsUsed)
			return nil
		}

		dataset, err := client.FetchAll(cmd.Context())
		if err != nil {
			return fmt.Errorf("fetching analytics data: %w", err)
		}
		if err := clarity.SaveCached(cfg.GetDataDir(), date, dataset); err != nil {
			return fmt.Errorf("caching analytics data: %w", err)
		}

		fmt.Printf("Cached Clarity data for %s (%d API calls used, %d remaining today).\n",
			date, dataset.APICallsUsed, client.Remaining())
		return nil
	},
}

// --- run command ---

var runDate string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: fetch -> detect -> investigate -> prompts -> report",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.ValidateCredentials(); err != nil {
			// A missing analytics token alone is survivable: the run can
			// serve from the local cache.
			if os.Getenv(cfg.Generation.APIKeyEnv) == "" || cfg.Analytics.ProjectID == "" {
				return err
			}
			fmt.Printf("Warning: %v; run will rely on cached analytics data.\n", err)
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		date := runDate
		if date == "" {
			date = database.Today()
		}

		pipe := pipeline.New(cfg, db)
		result := pipe.Run(context.Background(), date)

		for i, step := range result.Steps {
			fmt.Printf("\nStep %d/%d: %s\n", i+1, len(result.Steps), step.Name)
			if step.Err != nil {
				fmt.Printf("  Error: %v\n", step.Err)
			} else {
				fmt.Printf("  %s\n", step.Summary)
			}
		}

		if result.Failed() {
			return fmt.Errorf("pipeline failed")
		}

		fmt.Printf("\nDone. Report: %s\n", result.ReportPath)
		fmt.Println("Run 'uxpilot serve' to browse past investigations.")
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runDate, "date", "", "Run date override (YYYY-MM-DD, defaults to today)")
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(db, port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (defaults to config)")
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "uxpilot.db")
	return database.Open(dbPath)
}
