package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/pmadusud/salesagent/internal/console"
	"github.com/pmadusud/salesagent/internal/types"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var agentTracer = otel.Tracer("salesagent/agent")

// RunError reports a run that ended in a terminal state other than completed.
type RunError struct {
	RunID   string
	Status  openai.RunStatus
	Code    string
	Message string
}

func (e *RunError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("run %s ended with status %s", e.RunID, e.Status)
	}
	return fmt.Sprintf("run %s ended with status %s: %s (%s)", e.RunID, e.Status, e.Message, e.Code)
}

// SessionConfig holds the model settings applied to the agent and every run.
type SessionConfig struct {
	Model               string
	Name                string
	Temperature         float32
	TopP                float32
	MaxPromptTokens     int
	MaxCompletionTokens int
	PollInterval        time.Duration
	RunTimeout          time.Duration
	FilesDir            string
}

// SessionConfigFromTypes maps the application configuration.
func SessionConfigFromTypes(cfg *types.Config) SessionConfig {
	return SessionConfig{
		Model:               cfg.ModelDeploymentName,
		Name:                cfg.AgentName,
		Temperature:         float32(cfg.AgentTemperature),
		TopP:                float32(cfg.AgentTopP),
		MaxPromptTokens:     cfg.AgentMaxPromptTokens,
		MaxCompletionTokens: cfg.AgentMaxCompletionTokens,
		PollInterval:        cfg.AgentPollInterval,
		RunTimeout:          cfg.AgentRunTimeout,
		FilesDir:            cfg.FilesDir,
	}
}

// Session owns one agent and one conversation thread.
type Session struct {
	api          API
	config       SessionConfig
	tools        *ToolSet
	console      *console.Console
	files        *Downloader
	logger       *log.Logger
	agentID      string
	threadID     string
	instructions string
}

// NewSession creates a session; call Start before Send.
func NewSession(api API, config SessionConfig, tools *ToolSet, out *console.Console) *Session {
	if config.PollInterval <= 0 {
		config.PollInterval = 500 * time.Millisecond
	}
	if config.FilesDir == "" {
		config.FilesDir = "files"
	}
	return &Session{
		api:     api,
		config:  config,
		tools:   tools,
		console: out,
		files:   NewDownloader(api, config.FilesDir, out),
		logger:  log.New(log.Writer(), "[Agent] ", log.LstdFlags),
	}
}

// AgentID returns the created agent id.
func (s *Session) AgentID() string { return s.agentID }

// ThreadID returns the created thread id.
func (s *Session) ThreadID() string { return s.threadID }

// Start creates the agent with the given instructions and a new thread.
func (s *Session) Start(ctx context.Context, instructions string) error {
	s.console.Plain("Creating agent...")
	temperature := s.config.Temperature
	agent, err := s.api.CreateAssistant(ctx, openai.AssistantRequest{
		Model:        s.config.Model,
		Name:         &s.config.Name,
		Instructions: &instructions,
		Tools:        s.tools.Definitions(),
		Temperature:  &temperature,
	})
	if err != nil {
		return fmt.Errorf("failed to create agent: %w", err)
	}
	s.agentID = agent.ID
	s.instructions = instructions
	s.console.Plain("Created agent, ID: %s", agent.ID)

	s.console.Plain("Creating thread...")
	thread, err := s.api.CreateThread(ctx, openai.ThreadRequest{})
	if err != nil {
		return fmt.Errorf("failed to create thread: %w", err)
	}
	s.threadID = thread.ID
	s.console.Plain("Created thread, ID: %s", thread.ID)
	return nil
}

// Send posts prompt to the thread and drives the run to a terminal state, executing
// tool calls along the way. Assistant replies are printed in blue and generated files
// are saved locally.
func (s *Session) Send(ctx context.Context, prompt string) (err error) {
	if s.threadID == "" || s.agentID == "" {
		return fmt.Errorf("session not started")
	}

	ctx, span := agentTracer.Start(ctx, "agent.run")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "run_failed")
		}
		span.End()
	}()

	if _, err := s.api.CreateMessage(ctx, s.threadID, openai.MessageRequest{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	}); err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}

	temperature, topP := s.config.Temperature, s.config.TopP
	run, err := s.api.CreateRun(ctx, s.threadID, openai.RunRequest{
		AssistantID:         s.agentID,
		Instructions:        s.instructions,
		Temperature:         &temperature,
		TopP:                &topP,
		MaxPromptTokens:     s.config.MaxPromptTokens,
		MaxCompletionTokens: s.config.MaxCompletionTokens,
	})
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	span.SetAttributes(attribute.String("agent.run_id", run.ID))

	run, err = s.waitForRun(ctx, run)
	if err != nil {
		return err
	}
	span.SetAttributes(attribute.String("agent.run_status", string(run.Status)))

	if run.Status != openai.RunStatusCompleted {
		runErr := &RunError{RunID: run.ID, Status: run.Status}
		if run.LastError != nil {
			runErr.Code = string(run.LastError.Code)
			runErr.Message = run.LastError.Message
		}
		return runErr
	}
	return s.printReplies(ctx, run.ID)
}

func (s *Session) waitForRun(ctx context.Context, run openai.Run) (openai.Run, error) {
	if s.config.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.RunTimeout)
		defer cancel()
	}

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	for {
		switch run.Status {
		case openai.RunStatusCompleted, openai.RunStatusFailed, openai.RunStatusCancelled,
			openai.RunStatusExpired, openai.RunStatusIncomplete:
			return run, nil
		case openai.RunStatusRequiresAction:
			next, err := s.submitToolOutputs(ctx, run)
			if err != nil {
				return run, err
			}
			run = next
			continue
		}

		select {
		case <-ctx.Done():
			s.cancelRun(run.ID)
			return run, fmt.Errorf("run %s did not finish: %w", run.ID, ctx.Err())
		case <-ticker.C:
		}

		next, err := s.api.RetrieveRun(ctx, s.threadID, run.ID)
		if err != nil {
			return run, fmt.Errorf("failed to retrieve run %s: %w", run.ID, err)
		}
		run = next
	}
}

func (s *Session) submitToolOutputs(ctx context.Context, run openai.Run) (openai.Run, error) {
	if run.RequiredAction == nil || run.RequiredAction.SubmitToolOutputs == nil {
		return run, fmt.Errorf("run %s requires an unsupported action", run.ID)
	}

	calls := run.RequiredAction.SubmitToolOutputs.ToolCalls
	s.logger.Printf("Run %s requested %d tool call(s)", run.ID, len(calls))
	outputs := s.tools.Execute(ctx, calls)

	next, err := s.api.SubmitToolOutputs(ctx, s.threadID, run.ID, openai.SubmitToolOutputsRequest{ToolOutputs: outputs})
	if err != nil {
		return run, fmt.Errorf("failed to submit tool outputs for run %s: %w", run.ID, err)
	}
	return next, nil
}

func (s *Session) cancelRun(runID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := s.api.CancelRun(ctx, s.threadID, runID); err != nil {
		s.logger.Printf("Failed to cancel run %s: %v", runID, err)
	}
}

func (s *Session) printReplies(ctx context.Context, runID string) error {
	order := "asc"
	list, err := s.api.ListMessage(ctx, s.threadID, nil, &order, nil, nil, &runID)
	if err != nil {
		return fmt.Errorf("failed to list messages for run %s: %w", runID, err)
	}

	var refs []FileRef
	for _, msg := range list.Messages {
		if msg.Role != openai.ChatMessageRoleAssistant {
			continue
		}
		for _, content := range msg.Content {
			if content.Text != nil && content.Text.Value != "" {
				s.console.Blue(content.Text.Value)
			}
		}
		s.console.Blue("\n")
		refs = append(refs, FileRefs(msg)...)
	}

	if _, err := s.files.DownloadAll(ctx, refs); err != nil {
		return fmt.Errorf("failed to download files: %w", err)
	}
	return nil
}

// Cleanup deletes the thread and the agent.
func (s *Session) Cleanup(ctx context.Context) error {
	var errs []error
	if s.threadID != "" {
		if _, err := s.api.DeleteThread(ctx, s.threadID); err != nil {
			errs = append(errs, fmt.Errorf("failed to delete thread %s: %w", s.threadID, err))
		}
	}
	if s.agentID != "" {
		if _, err := s.api.DeleteAssistant(ctx, s.agentID); err != nil {
			errs = append(errs, fmt.Errorf("failed to delete agent %s: %w", s.agentID, err))
		}
	}
	return errors.Join(errs...)
}

// Command is how the interactive loop ended.
type Command string

const (
	CommandExit Command = "exit"
	CommandSave Command = "save"
)

// PromptLabel is shown before each user query.
const PromptLabel = "Enter your query (type exit or save to finish): "

// Loop reads prompts until the user types exit or save (case-insensitive) or input ends,
// which counts as exit. Empty lines are ignored; errors from a run are printed in purple
// and the loop continues.
func (s *Session) Loop(ctx context.Context, onPrompt func(context.Context)) (Command, error) {
	for {
		s.console.Plain("\n")
		prompt, err := s.console.Prompt(PromptLabel)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return CommandExit, nil
			}
			return CommandExit, fmt.Errorf("failed to read prompt: %w", err)
		}
		if prompt == "" {
			continue
		}

		switch Command(strings.ToLower(prompt)) {
		case CommandExit:
			return CommandExit, nil
		case CommandSave:
			return CommandSave, nil
		}

		if onPrompt != nil {
			onPrompt(ctx)
		}
		if err := s.Send(ctx, prompt); err != nil {
			s.console.Purple("An error occurred posting the message: %v", err)
		}
		if ctx.Err() != nil {
			return CommandExit, ctx.Err()
		}
	}
}
