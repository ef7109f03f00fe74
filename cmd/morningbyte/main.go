package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/morningbyte/morningbyte/internal/config"
	"github.com/morningbyte/morningbyte/internal/delivery"
	"github.com/morningbyte/morningbyte/internal/history"
	"github.com/morningbyte/morningbyte/internal/pipeline"
	"github.com/morningbyte/morningbyte/internal/sources"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	// SMTP credentials live in .env during local runs; absence is fine.
	godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "morningbyte",
	Short:   "Daily tech digest as an e-book",
	Long:    "Morning Byte fetches Hacker News, Reddit, Lobsters, Dev.to and RSS feeds and binds them into a daily EPUB digest.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for commands that work without one
		if cmd.Name() == "init" || cmd.Name() == "version" || cmd.Name() == "cron" {
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
		return cfg.Validate()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(sourcesCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(cronCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("morningbyte", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/morningbyte/",
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
		fmt.Println("Edit it to configure sources, feeds, and Kindle delivery.")
		return nil
	},
}

// --- generate command ---

var (
	outputDir string
	sendEmail bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate today's digest: fetch -> aggregate -> enrich -> render",
	RunE: func(cmd *cobra.Command, args []string) error {
		srcs := sources.FromConfig(cfg)
		pipe := pipeline.New(cfg, srcs)

		tmpDir, err := os.MkdirTemp("", "morningbyte-")
		if err != nil {
			return fmt.Errorf("creating temp directory: %w", err)
		}
		defer os.RemoveAll(tmpDir)

		now := time.Now()
		result, err := pipe.Run(context.Background(), filepath.Join(tmpDir, "digest.epub"))
		printSteps(result)
		if err != nil {
			return err
		}
		printFailures(result.Report)

		dir := cfg.Delivery.OutputDir
		if outputDir != "" {
			dir = outputDir
		}
		local := delivery.NewLocal(dir, cfg.Delivery.KeepDays)
		dst, err := local.Save(result.OutputPath, now)
		if err != nil {
			return err
		}
		fmt.Printf("\nDigest saved: %s\n", dst)

		if removed, err := local.CleanupOld(now); err != nil {
			log.Printf("cleanup: %v", err)
		} else if removed > 0 {
			fmt.Printf("Removed %d old digest(s)\n", removed)
		}

		if err := recordRun(result, dst, now); err != nil {
			log.Printf("recording run: %v", err)
		}

		if sendEmail {
			mailer := delivery.NewMailer(
				cfg.Delivery.SMTP.Host, cfg.Delivery.SMTP.Port,
				cfg.Delivery.SMTP.User, cfg.Delivery.SMTP.PasswordEnv,
				cfg.Delivery.SenderEmail, cfg.Delivery.KindleEmail,
			)
			if !mailer.Configured() {
				return fmt.Errorf("email delivery requested but not configured; check delivery settings and %s", cfg.Delivery.SMTP.PasswordEnv)
			}
			fmt.Printf("Sending to %s...\n", cfg.Delivery.KindleEmail)
			if err := mailer.Send(dst, now); err != nil {
				return err
			}
			fmt.Println("Sent.")
		}

		if result.EmptyDigest {
			fmt.Println("\nWarning: every source failed; the digest contains no articles.")
		}
		return nil
	},
}

func init() {
	generateCmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory (overrides config)")
	generateCmd.Flags().BoolVarP(&sendEmail, "send", "s", false, "Email the digest to the configured Kindle address")
}

// --- preview command ---

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Fetch and aggregate without rendering, and print the result",
	RunE: func(cmd *cobra.Command, args []string) error {
		srcs := sources.FromConfig(cfg)
		pipe := pipeline.New(cfg, srcs)

		result, err := pipe.Preview(context.Background())
		if err != nil {
			return err
		}
		printFailures(result.Report)

		d := result.Digest
		fmt.Printf("\n%s - %s (%d articles)\n", d.Title, d.Date.Format("2006-01-02"), d.TotalArticles())
		for _, sec := range d.Sections {
			fmt.Printf("\n%s (%d)\n", sec.Title, len(sec.Articles))
			for _, a := range sec.Articles {
				if a.Score != nil && *a.Score > 0 {
					fmt.Printf("  %5d  %s\n", *a.Score, a.Title)
				} else {
					fmt.Printf("         %s\n", a.Title)
				}
			}
		}
		return nil
	},
}

// --- sources command ---

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the enabled sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, s := range sources.FromConfig(cfg) {
			fmt.Printf("%-20s %-16s max %d\n", s.Name(), s.Kind(), s.MaxItems())
		}
		return nil
	},
}

// --- list command ---

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List previously generated digests",
	RunE: func(cmd *cobra.Command, args []string) error {
		local := delivery.NewLocal(cfg.Delivery.OutputDir, cfg.Delivery.KeepDays)
		files, err := local.List()
		if err != nil {
			return err
		}
		if len(files) == 0 {
			fmt.Println("No digests found.")
			return nil
		}

		for _, f := range files {
			fmt.Printf("%s  %8.1f KB  %s\n", f.Date.Format("2006-01-02"), float64(f.Size)/1024, f.Path)
		}
		return nil
	},
}

// --- history command ---

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent digest runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openHistory()
		if err != nil {
			return err
		}
		defer db.Close()

		runs, err := db.ListRuns(historyLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No runs recorded yet.")
			return nil
		}

		for _, r := range runs {
			fmt.Printf("%s  %3d articles  %d sections  %s\n",
				r.GeneratedAt.Local().Format("2006-01-02 15:04"),
				r.ArticleCount, r.SectionCount, r.OutputPath)
			if r.FailureCount > 0 {
				failures, err := db.Failures(r.ID)
				if err != nil {
					return err
				}
				for _, f := range failures {
					fmt.Printf("    failed: %s (%s): %s\n", f.Source, f.Kind, f.Message)
				}
			}
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "Number of runs to show")
}

// --- cron command ---

var cronCmd = &cobra.Command{
	Use:   "cron",
	Short: "Print a crontab line for a daily 6am run",
	Run: func(cmd *cobra.Command, args []string) {
		exe, err := os.Executable()
		if err != nil {
			exe = "morningbyte"
		}
		fmt.Println("# Generate and send the digest every morning at 6:00")
		fmt.Printf("0 6 * * * %s generate --send >> ~/.local/share/morningbyte/cron.log 2>&1\n", exe)
	},
}

// --- helpers ---

func openHistory() (*history.DB, error) {
	return history.Open(filepath.Join(cfg.GetDataDir(), "history.db"))
}

func recordRun(result *pipeline.Result, outputPath string, now time.Time) error {
	db, err := openHistory()
	if err != nil {
		return err
	}
	defer db.Close()

	failures := make([]history.RunFailure, 0, len(result.Report))
	for _, f := range result.Report {
		failures = append(failures, history.RunFailure{
			Source:  f.Source,
			Kind:    string(f.Kind),
			Message: f.Message,
		})
	}

	_, err = db.RecordRun(history.Run{
		GeneratedAt:  now,
		OutputPath:   outputPath,
		ArticleCount: result.Digest.TotalArticles(),
		SectionCount: len(result.Digest.Sections),
	}, failures)
	return err
}

func printSteps(result *pipeline.Result) {
	if result == nil {
		return
	}
	for _, step := range result.Steps {
		if step.Err != nil {
			fmt.Printf("%s: error: %v\n", step.Name, step.Err)
		} else {
			fmt.Printf("%s: %s\n", step.Name, step.Summary)
		}
	}
}

func printFailures(failures []sources.Failure) {
	if len(failures) == 0 {
		return
	}
	fmt.Println("\nSource failures:")
	for _, f := range failures {
		fmt.Printf("  %s (%s): %s\n", f.Source, f.Kind, f.Message)
	}
}
