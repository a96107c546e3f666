package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"threadsmith-backend/lib/configutil"
	"threadsmith-backend/lib/serviceutil"
	"threadsmith-backend/services/collector"
	"threadsmith-backend/services/composer"
	"threadsmith-backend/services/exporter"
)

var composeTarget *string

func init() {
	composeTarget = composeCmd.Flags().String("target", "", "Compose for a single target instead of all configured ones.")
	rootCmd.AddCommand(composeCmd)
}

var composeCmd = &cobra.Command{
	Use:   "compose <path/to/raw.csv> [--target <name>]",
	Short: "Composes final posts from an existing raw CSV without scraping.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		configutil.LoadDotenv()

		cfg, err := loadConfig()
		if err != nil {
			serviceutil.Fatal("invalid config", err)
		}
		openaiEnv := configutil.OpenAIFromEnv()
		if openaiEnv.APIKey == "" {
			serviceutil.Fatal("OPENAI_API_KEY is not set", nil)
		}

		posts, err := collector.ReadRawCSV(args[0])
		if err != nil {
			serviceutil.Fatal("failed to read raw csv", err)
		}

		var targetNames []string
		outputName := "all_targets"
		if *composeTarget != "" {
			targetNames = []string{*composeTarget}
			outputName = *composeTarget
		} else {
			for _, target := range cfg.Targets {
				targetNames = append(targetNames, target.Name)
			}
		}

		service := composer.NewService(composer.Options{
			APIKey: openaiEnv.APIKey,
			Model:  openaiEnv.Model,
		})
		finalPosts := service.ProcessPosts(ctx, posts, targetNames)

		exporterSvc := exporter.NewService(exporter.Options{
			OutputRoot: cfg.OutputDir,
			Retention:  cfg.Retention,
		})
		outFile, err := exporterSvc.Export(ctx, outputName, finalPosts)
		if err != nil {
			serviceutil.Fatal("failed to export final posts", err)
		}

		fmt.Println(exporter.RenderSummary([]exporter.TargetSummary{{
			Target:     outputName,
			PostsIn:    len(posts),
			PostsFinal: len(finalPosts),
			OutputFile: outFile,
		}}))
	},
}
