package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"jsonnetdoc/internal/config"
	"jsonnetdoc/internal/crawler"
	"jsonnetdoc/internal/extractor"
	"jsonnetdoc/internal/filter"
	"jsonnetdoc/internal/generator"
	"jsonnetdoc/internal/git"
	"jsonnetdoc/internal/hook"
	"jsonnetdoc/internal/index"
	"jsonnetdoc/internal/storage"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:   "jsonnetdoc",
		Short: "Extract documentation comments from Jsonnet sources",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				logger.SetLevel(logrus.DebugLevel)
			}
		},
	}
	configPath string
	dbPath     string
	verbose    bool

	logger = logrus.New()
	fs     = afero.NewOsFs()
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to the YAML configuration file")
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Path to the local documentation database (SQLite); overrides storage.db")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	filterCmd.Flags().Bool("blocks", false, "List the preserved comment blocks instead of the rewritten source")
	scanCmd.Flags().String("export", "", "Also write all stored comments to this JSON file")
	updateCmd.Flags().String("base", "HEAD", "Git ref to diff against")
	generateCmd.Flags().StringP("out", "o", "", "Output directory; overrides output.dir")

	rootCmd.AddCommand(filterCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(generateCmd)
}

func loadConfig() *config.Config {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	if dbPath != "" {
		cfg.Storage.DB = dbPath
	}
	return cfg
}

// initStore initializes the SQLite store.
func initStore(cfg *config.Config) *storage.SQLiteStore {
	store, err := storage.NewSQLiteStore(cfg.Storage.DB)
	if err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}
	return store
}

func initCrawler(cfg *config.Config) *crawler.Crawler {
	ext, err := extractor.NewExtractor("jsdoc")
	if err != nil {
		logger.Fatalf("Failed to create extractor: %v", err)
	}
	hooks := hook.NewRegistry(hook.JsonnetPlugin{})
	return crawler.NewCrawler(fs, hooks, ext, logger, cfg.Project.Extensions, cfg.Project.Ignore)
}

var filterCmd = &cobra.Command{
	Use:   "filter [file]",
	Short: "Print a file with everything but documentation comments removed",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filename := "-"
		if len(args) > 0 {
			filename = args[0]
		}

		var raw []byte
		var err error
		if filename == "-" {
			raw, err = io.ReadAll(cmd.InOrStdin())
		} else {
			raw, err = afero.ReadFile(fs, filename)
		}
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", filename, err)
		}

		out := cmd.OutOrStdout()
		source := string(raw)
		if listBlocks, _ := cmd.Flags().GetBool("blocks"); listBlocks {
			for _, b := range filter.Blocks(source) {
				line := strings.Count(source[:b.Start], "\n") + 1
				fmt.Fprintf(out, "#%d line %d\n%s\n", b.Ordinal, line, b.Content)
			}
			return nil
		}

		_, err = io.WriteString(out, filter.Transform(filename, source))
		return err
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan [path]",
	Short: "Scan the project and update the documentation database",
	Long: `Scan the project and update the documentation database.

Files under the scanned path that no longer exist are removed from the
database. Scanning a subdirectory leaves stored files outside it untouched.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		cfg := loadConfig()
		root := cfg.Project.Root
		if len(args) > 0 {
			root = args[0]
		}

		fmt.Printf("📂 Scanning directory: %s\n", root)

		// 1. Initialize Store
		store := initStore(cfg)
		defer store.Close()

		// 2. Sync
		idx := index.NewIndexer(initCrawler(cfg), store, logger)
		start := time.Now()
		stats, err := idx.Sync(ctx, root)
		if err != nil {
			logger.Fatalf("Sync failed: %v", err)
		}

		color.Green("✅ Scan finished in %v: %d files, %d comments.", time.Since(start), stats.Files, stats.Units)
		fmt.Printf("💾 %d saved, %d unchanged, %d removed. Database: %s\n", stats.Saved, stats.Unchanged, stats.Removed, cfg.Storage.DB)

		// 3. Optional JSON export
		if export, _ := cmd.Flags().GetString("export"); export != "" {
			if err := idx.ExportJSON(ctx, fs, export); err != nil {
				logger.Fatalf("Failed to export: %v", err)
			}
			fmt.Printf("📦 Exported to %s\n", export)
		}
	},
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Incrementally update the documentation database based on git changes",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		cfg := loadConfig()
		base, _ := cmd.Flags().GetString("base")

		// 1. Get Local Git Changes
		changes, err := git.GetChangedFiles(base)
		if err != nil {
			logger.Fatalf("Failed to get git changes: %v", err)
		}
		if len(changes) == 0 {
			fmt.Println("✅ No changes detected.")
			return
		}

		fmt.Printf("📝 Detected %d changed files.\n", len(changes))

		// 2. Apply changes
		store := initStore(cfg)
		defer store.Close()

		idx := index.NewIndexer(initCrawler(cfg), store, logger)
		stats, err := idx.ApplyChanges(ctx, changes)
		if err != nil {
			logger.Fatalf("Update failed: %v", err)
		}
		if stats.Files == 0 {
			fmt.Println("✅ No Jsonnet changes detected.")
			return
		}

		color.Green("📊 Database update: %d files updated, %d files removed.", stats.Saved, stats.Removed)
	},
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate Markdown documentation from the documentation database",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		cfg := loadConfig()
		out, _ := cmd.Flags().GetString("out")
		if out == "" {
			out = cfg.Output.Dir
		}

		store := initStore(cfg)
		defer store.Close()

		fmt.Println("🔄 Loading documentation database...")
		records, err := store.LoadFiles(ctx)
		if err != nil {
			logger.Fatalf("Failed to load files: %v", err)
		}
		if len(records) == 0 {
			color.Yellow("⚠️  Database is empty. Run 'jsonnetdoc scan' first.")
		}

		fmt.Println("🚀 Generating documentation...")
		gen := generator.NewMarkdownGenerator(fs)
		if err := gen.GenerateDocs(records, out); err != nil {
			logger.Fatalf("Failed to generate docs: %v", err)
		}

		color.Green("✅ Documentation generated in '%s/'.", out)
	},
}
