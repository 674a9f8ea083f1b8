package main

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kamrul1157024/terminal-ai/agent"
	"github.com/kamrul1157024/terminal-ai/cli"
	"github.com/kamrul1157024/terminal-ai/config"
	"github.com/kamrul1157024/terminal-ai/history"
	"github.com/kamrul1157024/terminal-ai/internal/shellexec"
	"github.com/kamrul1157024/terminal-ai/internal/toolinit"
	"github.com/kamrul1157024/terminal-ai/llm"
	"github.com/kamrul1157024/terminal-ai/llm/anthropic"
	"github.com/kamrul1157024/terminal-ai/llm/ollama"
	"github.com/kamrul1157024/terminal-ai/llm/openai"
)

const basePrompt = "You are a terminal assistant. You help the user operate their machine: " +
	"answer questions, run commands through your tools when asked, and keep replies short. " +
	"When a command's output answers the question, summarize it instead of repeating it."

var (
	providerFlag string
	modelFlag    string
	autopilot    bool
	continueLast bool
	resumePicker bool

	rootCmd = &cobra.Command{
		Use:   "terminal-ai",
		Short: "AI assistant for the terminal",
		Long:  "terminal-ai - a terminal assistant that answers questions and runs commands through tool calls",
		RunE:  runREPL,
	}

	askCmd = &cobra.Command{
		Use:   "ask [message]",
		Short: "Send a one-shot question without entering the REPL",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runAsk,
	}

	threadsCmd = &cobra.Command{
		Use:   "threads",
		Short: "Manage saved conversations",
	}

	threadsListCmd = &cobra.Command{
		Use:   "list",
		Short: "List recent conversations",
		RunE:  runThreadsList,
	}

	threadsRenameCmd = &cobra.Command{
		Use:   "rename [id] [new name]",
		Short: "Rename a conversation",
		Args:  cobra.ExactArgs(2),
		RunE:  runThreadsRename,
	}

	threadsDeleteCmd = &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a conversation",
		Args:  cobra.ExactArgs(1),
		RunE:  runThreadsDelete,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&providerFlag, "provider", "", "LLM provider (openai, anthropic, ollama)")
	rootCmd.PersistentFlags().StringVar(&modelFlag, "model", "", "Model to use")
	rootCmd.PersistentFlags().BoolVar(&autopilot, "autopilot", false, "Run mutating commands without confirmation")

	rootCmd.Flags().BoolVarP(&continueLast, "continue", "c", false, "Continue the most recent conversation")
	rootCmd.Flags().BoolVarP(&resumePicker, "resume", "r", false, "Pick a conversation to resume")

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(threadsCmd)
	threadsCmd.AddCommand(threadsListCmd)
	threadsCmd.AddCommand(threadsRenameCmd)
	threadsCmd.AddCommand(threadsDeleteCmd)
}

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: could not load .env: %v\n", err)
	}
	setupLogging()

	if err := rootCmd.Execute(); err != nil {
		cli.RenderError(err)
		os.Exit(1)
	}
}

func setupLogging() {
	level := slog.LevelWarn
	if os.Getenv("TERMINAL_AI_DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// buildProvider constructs the adapter for the resolved profile.
func buildProvider(profile *config.Profile) (llm.Provider, error) {
	opts := []llm.ClientOption{
		llm.WithAPIKey(profile.APIKey),
		llm.WithBaseURL(profile.Endpoint),
		llm.WithModel(profile.Model),
	}

	switch profile.Provider {
	case "openai":
		return openai.NewClient(opts...)
	case "anthropic":
		return anthropic.NewClient(opts...)
	case "ollama":
		return ollama.NewClient(opts...)
	default:
		return nil, fmt.Errorf("unknown provider %q", profile.Provider)
	}
}

func openStore() (*history.Store, error) {
	path, err := config.HistoryPath()
	if err != nil {
		return nil, err
	}
	return history.Open(path)
}

// buildSession wires the provider, tools, and store into a session. A nil
// thread means an ephemeral session.
func buildSession(store *history.Store, thread *history.Thread, indicator *cli.ThinkingIndicator) (*agent.Session, error) {
	profile, err := config.Load(providerFlag, modelFlag)
	if err != nil {
		return nil, err
	}
	provider, err := buildProvider(profile)
	if err != nil {
		return nil, err
	}

	registry, err := toolinit.All(toolinit.Options{
		Runner:    &shellexec.ShellRunner{},
		Prompter:  cli.NewTerminalPrompter(),
		Autopilot: func() bool { return autopilot },
		Render:    cli.RenderToolCall,
	})
	if err != nil {
		return nil, err
	}

	systemPrompt := basePrompt
	if hints := registry.UsageHints(); len(hints) > 0 {
		systemPrompt += "\n\n" + strings.Join(hints, "\n")
	}

	cfg := agent.Config{
		Provider:     provider,
		Registry:     registry,
		SystemPrompt: systemPrompt,
		Model:        profile.Model,
		OnToken:      func(tok string) { fmt.Print(tok) },
		Autopilot:    autopilot,
	}
	if indicator != nil {
		cfg.OnSpinnerStop = indicator.Stop
	}
	if store != nil {
		cfg.Store = store
		if thread != nil {
			cfg.ThreadID = thread.ID
		}
	}

	session := agent.NewSession(cfg)
	if thread != nil && len(thread.Messages) > 0 {
		session.Resume(thread)
	}
	return session, nil
}

// pickThread resolves the --continue/--resume flags to a thread, creating a
// fresh one otherwise.
func pickThread(store *history.Store) (*history.Thread, error) {
	if continueLast {
		infos, err := store.List()
		if err != nil {
			return nil, err
		}
		if len(infos) > 0 {
			return store.Get(infos[0].ID)
		}
	}

	if resumePicker {
		infos, err := store.List()
		if err != nil {
			return nil, err
		}
		id, err := cli.PickThread(infos)
		if err != nil {
			return nil, err
		}
		if id != "" {
			return store.Get(id)
		}
	}

	return store.Create("")
}

func runREPL(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	thread, err := pickThread(store)
	if err != nil {
		return err
	}

	indicator := cli.NewThinkingIndicator()
	session, err := buildSession(store, thread, indicator)
	if err != nil {
		return err
	}

	cli.RenderInfo(fmt.Sprintf("thread: %s (exit with ctrl-d or /quit)", thread.Name))

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Fprint(os.Stderr, "\n> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "/quit" || input == "/exit" {
			break
		}

		indicator.Start()
		_, err := session.Run(cmd.Context(), input)
		indicator.Stop()
		if err != nil {
			var perr *llm.ProviderError
			if errors.As(err, &perr) {
				cli.RenderError(perr)
				continue
			}
			return err
		}
		fmt.Println()
	}

	totals := session.Cost()
	cli.RenderInfo(fmt.Sprintf("session: %d requests, %d in / %d out tokens",
		totals.Requests, totals.InputTokens, totals.OutputTokens))
	return scanner.Err()
}

func runAsk(cmd *cobra.Command, args []string) error {
	indicator := cli.NewThinkingIndicator()
	session, err := buildSession(nil, nil, indicator)
	if err != nil {
		return err
	}

	indicator.Start()
	_, err = session.Run(cmd.Context(), strings.Join(args, " "))
	indicator.Stop()
	if err != nil {
		return err
	}
	fmt.Println()
	return nil
}

func runThreadsList(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	infos, err := store.List()
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		cli.RenderInfo("no saved conversations")
		return nil
	}

	for _, info := range infos {
		fmt.Printf("%s  %s  %s (%d messages)\n",
			info.ID, info.UpdatedAt.Format("2006-01-02 15:04"), info.Name, info.MessageCount)
	}
	return nil
}

func runThreadsRename(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	thread, err := store.Rename(args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Printf("renamed %s to %q\n", thread.ID, thread.Name)
	return nil
}

func runThreadsDelete(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	deleted, err := store.Delete(args[0])
	if err != nil {
		return err
	}
	if !deleted {
		cli.RenderInfo("no such thread")
		return nil
	}
	fmt.Println("deleted")
	return nil
}
