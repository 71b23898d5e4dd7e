package cmd

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X github.com/pmadusud/salesagent/cmd.Version=..."
var Version = "dev"

var envFile string

var rootCmd = &cobra.Command{
	Use:   "salesagent",
	Short: "Contoso sales agent backed by MongoDB Atlas hybrid search",
	Long: `salesagent runs a conversational sales analysis agent on the Azure AI Foundry agent
service. The agent answers product questions by calling a hybrid (vector + full-text)
search over a MongoDB Atlas collection, with embeddings from Azure AI.

The same search tool is available as a one-shot query and as an MCP server.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if err := godotenv.Load(envFile); err != nil {
			log.Printf("Warning: Error loading %s file: %v", envFile, err)
		}
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path to a dotenv file loaded before configuration")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(mcpServerCmd)
	rootCmd.AddCommand(authCheckCmd)
	rootCmd.AddCommand(statsCmd)
}
