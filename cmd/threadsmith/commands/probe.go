package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"threadsmith-backend/lib/configutil"
	"threadsmith-backend/lib/serviceutil"
	"threadsmith-backend/services/composer"
)

func init() {
	rootCmd.AddCommand(probeCmd)
}

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Sends a trivial completion request to verify OpenAI credentials and model access.",
	Run: func(cmd *cobra.Command, args []string) {
		configutil.LoadDotenv()

		openaiEnv := configutil.OpenAIFromEnv()
		if openaiEnv.APIKey == "" {
			serviceutil.Fatal("OPENAI_API_KEY is not set", nil)
		}
		slog.Info("probing model", "model", openaiEnv.Model)

		service := composer.NewService(composer.Options{
			APIKey: openaiEnv.APIKey,
			Model:  openaiEnv.Model,
		})
		response, err := service.Probe(cmd.Context())
		if err != nil {
			serviceutil.Fatal("probe failed", err)
		}

		slog.Info("probe succeeded")
		fmt.Println(response)
	},
}
