package commands

import (
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"threadsmith-backend/lib/configutil"
	"threadsmith-backend/lib/restyutil"
	"threadsmith-backend/lib/scrapers/threads"
	"threadsmith-backend/lib/serviceutil"
	"threadsmith-backend/lib/sqliteutil"
	"threadsmith-backend/services/collector"
	"threadsmith-backend/services/collector/db"
)

var scrapeDb *string

func init() {
	scrapeDb = scrapeCmd.Flags().String("db", "", "The database to write scrape results to, overriding the config.")
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [--db <path/to/output.db>]",
	Short: "Scrapes every configured target and writes raw CSVs plus a database.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		configutil.LoadDotenv()

		cfg, err := loadConfig()
		if err != nil {
			serviceutil.Fatal("invalid config", err)
		}
		dbPath := cfg.Database
		if *scrapeDb != "" {
			dbPath = *scrapeDb
		}

		database, err := sqliteutil.OpenDB(db.Schema, dbPath)
		if err != nil {
			serviceutil.Fatal("failed to open database", err)
		}
		defer database.Close()

		service := collector.NewService(database, collector.Options{
			Accounts:          configutil.AccountsFromEnv(),
			Headless:          cfg.Scrape.Headless,
			MaxPosts:          cfg.Scrape.MaxPosts,
			MinLikes:          cfg.Scrape.MinLikes,
			ExcludeImagePosts: cfg.Scrape.ExcludeImagePosts,
			CookiesDir:        cfg.Scrape.CookiesDir,
			OutputRoot:        cfg.DataDir,
		})

		threads.SetRestyInstrumentOutput(restyutil.NewFilesystemOutput(".dev/resty/threads"))

		err = service.ProbeSite(ctx)
		if err != nil {
			serviceutil.Fatal("threads is unreachable", err)
		}

		failed := 0
		for _, target := range cfg.Targets {
			result, err := service.CollectTarget(ctx, target)
			if err != nil {
				slog.Error("target collection failed", "target", target.Name, "err", err)
				failed++
				continue
			}
			slog.Info("target scraped", "target", target.Name, "posts", len(result.Posts), "csv", result.CsvPath)
		}
		if failed == len(cfg.Targets) {
			serviceutil.Fatal("every target failed to scrape", nil)
		}

		retention := cfg.Retention
		if retention <= 0 {
			retention = 10
		}
		err = service.PruneBefore(ctx, time.Now().AddDate(0, 0, -retention))
		if err != nil {
			slog.Error("failed to prune old posts", "err", err)
		}
	},
}
