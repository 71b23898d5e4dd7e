package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/pmadusud/salesagent/internal/console"
	"github.com/pmadusud/salesagent/internal/credentials"
)

var authCheckCmd = &cobra.Command{
	Use:   "auth-check",
	Short: "Diagnose Azure authentication for the agent and embeddings",
	Long: `
Check the required environment variables, then try DefaultAzureCredential,
AzureCliCredential and ManagedIdentityCredential in turn. Each credential that obtains
a token is used for a test embedding call. Exits non-zero with a troubleshooting guide
when no credential works.
`,
	RunE: runAuthCheck,
}

func runAuthCheck(cmd *cobra.Command, args []string) error {
	out := console.Stdio()
	diag := credentials.New(
		os.Getenv("PROJECT_ENDPOINT"),
		os.Getenv("AZURE_AI_EMBEDDINGS_ENDPOINT"),
		os.Getenv("AZURE_FOUNDRY_EMBEDDING_MODEL"),
		out,
	)

	if !diag.Run(context.Background()) {
		diag.PrintTroubleshooting()
		os.Exit(1)
	}
	return nil
}
