package commands

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"threadsmith-backend/lib/configutil"
	"threadsmith-backend/lib/serviceutil"
	"threadsmith-backend/lib/sqliteutil"
	"threadsmith-backend/lib/telemetry"
	"threadsmith-backend/services/collector"
	"threadsmith-backend/services/collector/db"
	"threadsmith-backend/services/composer"
	"threadsmith-backend/services/exporter"
)

func init() {
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run [path/to/raw.csv]",
	Short: "Runs the full pipeline: scrape, compose and export for every configured target.",
	Long: `Runs the full pipeline for every configured target. When a raw CSV
path is given the scrape phase is skipped and its posts are composed
for all targets instead.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		telemetry.InstrumentPerfStats(ctx)
		configutil.LoadDotenv()

		cfg, err := loadConfig()
		if err != nil {
			serviceutil.Fatal("invalid config", err)
		}
		openaiEnv := configutil.OpenAIFromEnv()
		if openaiEnv.APIKey == "" {
			serviceutil.Fatal("OPENAI_API_KEY is not set", nil)
		}

		composerSvc := composer.NewService(composer.Options{
			APIKey: openaiEnv.APIKey,
			Model:  openaiEnv.Model,
		})
		exporterSvc := exporter.NewService(exporter.Options{
			OutputRoot: cfg.OutputDir,
			Retention:  cfg.Retention,
		})

		var summaries []exporter.TargetSummary

		if len(args) == 1 {
			posts, err := collector.ReadRawCSV(args[0])
			if err != nil {
				serviceutil.Fatal("failed to read raw csv", err)
			}
			slog.Info("composing from csv", "file", args[0], "posts", len(posts))

			var targetNames []string
			for _, target := range cfg.Targets {
				targetNames = append(targetNames, target.Name)
			}
			finalPosts := composerSvc.ProcessPosts(ctx, posts, targetNames)
			outFile, err := exporterSvc.Export(ctx, "all_targets", finalPosts)
			if err != nil {
				serviceutil.Fatal("failed to export final posts", err)
			}
			summaries = append(summaries, exporter.TargetSummary{
				Target:     "all_targets",
				PostsIn:    len(posts),
				PostsFinal: len(finalPosts),
				OutputFile: outFile,
			})
		} else {
			database, err := sqliteutil.OpenDB(db.Schema, cfg.Database)
			if err != nil {
				serviceutil.Fatal("failed to open database", err)
			}
			defer database.Close()

			collectorSvc := collector.NewService(database, collector.Options{
				Accounts:          configutil.AccountsFromEnv(),
				Headless:          cfg.Scrape.Headless,
				MaxPosts:          cfg.Scrape.MaxPosts,
				MinLikes:          cfg.Scrape.MinLikes,
				ExcludeImagePosts: cfg.Scrape.ExcludeImagePosts,
				CookiesDir:        cfg.Scrape.CookiesDir,
				OutputRoot:        cfg.DataDir,
			})

			err = collectorSvc.ProbeSite(ctx)
			if err != nil {
				serviceutil.Fatal("threads is unreachable", err)
			}

			for _, target := range cfg.Targets {
				result, err := collectorSvc.CollectTarget(ctx, target)
				if err != nil {
					slog.Error("target collection failed", "target", target.Name, "err", err)
					continue
				}

				finalPosts := composerSvc.ProcessPosts(ctx, result.Posts, []string{target.Name})
				outFile, err := exporterSvc.Export(ctx, target.Name, finalPosts)
				if err != nil {
					slog.Error("target export failed", "target", target.Name, "err", err)
					continue
				}
				summaries = append(summaries, exporter.TargetSummary{
					Target:     target.Name,
					PostsIn:    len(result.Posts),
					PostsFinal: len(finalPosts),
					OutputFile: outFile,
				})
			}

			retention := cfg.Retention
			if retention <= 0 {
				retention = 10
			}
			err = collectorSvc.PruneBefore(ctx, time.Now().AddDate(0, 0, -retention))
			if err != nil {
				slog.Error("failed to prune old posts", "err", err)
			}
		}

		if len(summaries) == 0 {
			serviceutil.Fatal("no target produced any output", nil)
		}
		fmt.Println(exporter.RenderSummary(summaries))

		if cfg.Report != nil {
			err := exporterSvc.SendRunReport(ctx, *cfg.Report, summaries)
			if err != nil {
				slog.Error("failed to send run report", "err", err)
			}
		}
	},
}
