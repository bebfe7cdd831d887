package app

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/providentiaww/jira-assistant-mcp/cmd/mcp-server/auth"
	"github.com/providentiaww/jira-assistant-mcp/internal/assistant"
	"github.com/providentiaww/jira-assistant-mcp/internal/storage"
)

var chatFlags struct {
	session        string
	historyFile    string
	defaultProject string
	timeout        time.Duration
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the Jira assistant",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		client, _, err := connect(ctx)
		if err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), err)
			return err
		}
		defer client.Close()

		var store storage.HistoryStore = storage.NewMemoryStore(assistant.DefaultHistoryLimit)
		if chatFlags.historyFile != "" {
			fileStore, err := storage.NewFileStore(chatFlags.historyFile, assistant.DefaultHistoryLimit)
			if err != nil {
				return err
			}
			store = fileStore
		}
		defer store.Close()

		sessionID := chatFlags.session
		if sessionID == "" {
			sessionID = uuid.NewString()
		}
		turns, err := store.Load(ctx, sessionID, assistant.DefaultHistoryLimit)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return err
		}

		dispatcher := assistant.NewDispatcher(client,
			assistant.WithTimeout(chatFlags.timeout),
			assistant.WithDefaultProject(chatFlags.defaultProject),
			assistant.WithLogger(logger))
		session := assistant.NewSession(sessionID, dispatcher, assistant.NewHistory(assistant.DefaultHistoryLimit, turns...))

		return chatLoop(cmd, session, store)
	},
}

// chatLoop reads one request per line until EOF, "exit" or "quit"
func chatLoop(cmd *cobra.Command, session *assistant.Session, store storage.HistoryStore) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if session.History().Len() == 0 {
		fmt.Fprintln(out, assistant.WelcomeMessage)
	}
	fmt.Fprintf(out, "\nSession %s. Type 'exit' to quit.\n", session.ID)

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "\n> ")
		if !scanner.Scan() {
			break
		}
		text := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(text) {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		reply := session.Respond(ctx, text)
		if err := store.Append(ctx, session.ID, reply.Turns...); err != nil {
			logger.Warn("failed to save history", slog.String("session", session.ID), slog.Any("error", err))
		}
		fmt.Fprintln(out, reply.Text)

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

var hashTokenCmd = &cobra.Command{
	Use:   "hash-token <token>",
	Short: "Print the bcrypt hash to use as MCP_SERVICE_TOKEN_HASH",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := auth.HashServiceToken(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

func init() {
	chatCmd.Flags().StringVarP(&chatFlags.session, "session", "s", "", "session ID to resume")
	chatCmd.Flags().StringVar(&chatFlags.historyFile, "history", "", "JSON file that keeps conversations between runs")
	chatCmd.Flags().StringVar(&chatFlags.defaultProject, "default-project", assistant.DefaultProject, "project for listings that name none")
	chatCmd.Flags().DurationVar(&chatFlags.timeout, "timeout", assistant.DefaultTimeout, "bound on each tool call")
}
