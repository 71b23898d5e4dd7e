package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pmadusud/salesagent/internal/agent"
	"github.com/pmadusud/salesagent/internal/azureauth"
	appconfig "github.com/pmadusud/salesagent/internal/config"
	"github.com/pmadusud/salesagent/internal/console"
	"github.com/pmadusud/salesagent/internal/metrics"
	"github.com/pmadusud/salesagent/internal/types"
)

var (
	chatCredential   string
	chatInstructions string
	chatPlain        bool
	chatCheck        bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive session with the sales agent",
	Long: `
Create a sales agent on the Azure AI Foundry agent service, open a conversation thread
and answer questions interactively. The agent calls the MongoDB Atlas hybrid search
tool to look up products and may return charts, which are saved under FILES_DIR.

Type "exit" to delete the agent and thread, or "save" to keep the agent so it can be
opened in the Azure AI Foundry playground.

Examples:
  salesagent chat
  salesagent chat --credential cli
  salesagent chat --instructions instructions/function_calling.txt
`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatCredential, "credential", azureauth.KindDefault, "Azure credential: default|cli|managed-identity")
	chatCmd.Flags().StringVar(&chatInstructions, "instructions", "", "Instructions file (overrides INSTRUCTIONS_FILE)")
	chatCmd.Flags().BoolVar(&chatPlain, "no-color", false, "Disable coloured output")
	chatCmd.Flags().BoolVar(&chatCheck, "check", true, "Check MongoDB Atlas and embedding connectivity before creating the agent")
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, cleanup, err := loadRuntime()
	if err != nil {
		return err
	}
	defer cleanup()

	if chatInstructions != "" {
		cfg.InstructionsFile = chatInstructions
	}

	out := console.Stdio()
	if chatPlain {
		out = console.New(os.Stdin, os.Stdout, true)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out.Plain("Starting async program...")
	defer out.Plain("Program finished.")

	stack, session, err := initializeChat(ctx, cfg, out)
	if err != nil {
		log.Printf("An error occurred initializing the agent: %v", err)
		log.Printf("Please ensure you've enabled an instructions file.")
		out.Alert("Initialization failed. Ensure you have uncommented the instructions file for the lab.")
		out.Plain("Exiting...")
		return nil
	}
	defer stack.Close()

	command, loopErr := session.Loop(ctx, func(ctx context.Context) {
		metrics.RecordInvocation(ctx, metrics.ModeChat)
	})
	if loopErr != nil {
		log.Printf("Conversation ended: %v", loopErr)
	}

	if command == agent.CommandSave {
		out.Plain("The agent has not been deleted, so you can continue experimenting with it in the Azure AI Foundry.")
		out.Plain("Navigate to https://ai.azure.com, select your project, then playgrounds, agents playgound, then select agent id: %s", session.AgentID())
		return nil
	}

	cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := session.Cleanup(cleanupCtx); err != nil {
		return fmt.Errorf("failed to clean up agent resources: %w", err)
	}
	out.Plain("The agent resources have been cleaned up.")
	return nil
}

// initializeChat connects the search stack and creates the agent and its thread.
func initializeChat(ctx context.Context, cfg *types.Config, out *console.Console) (*searchStack, *agent.Session, error) {
	if err := appconfig.ValidateAgent(cfg); err != nil {
		return nil, nil, err
	}

	instructions, err := agent.LoadInstructions(cfg.InstructionsFile, cfg.FontFileID)
	if err != nil {
		return nil, nil, err
	}

	cred, err := azureauth.NewCredential(chatCredential)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}

	api, err := agent.NewAPI(ctx, cfg, cred)
	if err != nil {
		return nil, nil, err
	}

	stack, err := newSearchStack(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	if chatCheck {
		if err := stack.Check(ctx, out); err != nil {
			stack.Close()
			return nil, nil, err
		}
	}

	session := agent.NewSession(api, agent.SessionConfigFromTypes(cfg), agent.NewToolSet(stack.service), out)
	if err := session.Start(ctx, instructions); err != nil {
		stack.Close()
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = session.Cleanup(cleanupCtx)
		return nil, nil, err
	}
	return stack, session, nil
}
