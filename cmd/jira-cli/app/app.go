package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/providentiaww/jira-assistant-mcp/internal/logging"
	"github.com/providentiaww/jira-assistant-mcp/pkg/mcp"
)

const (
	clientName    = "jira-cli"
	clientVersion = "1.0.0"
)

var requiredJiraEnv = []string{"JIRA_URL", "JIRA_EMAIL", "JIRA_API_TOKEN"}

var (
	serverCmd   string
	serverURL   string
	serverToken string
	logLevel    string
	logger      = slog.Default()
)

var rootCmd = &cobra.Command{
	Use:          "jira-cli",
	Short:        "Jira tools over MCP",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = logging.New("text", logLevel)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverCmd, "server-cmd", "mcp-stdio", "command that starts a stdio MCP server")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server-url", "", "HTTP MCP endpoint, e.g. http://localhost:8080/message (overrides --server-cmd)")
	rootCmd.PersistentFlags().StringVar(&serverToken, "token", os.Getenv("MCP_TOKEN"), "bearer token for --server-url")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "debug, info, warn or error")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(hashTokenCmd)
}

// Execute runs the CLI and exits non-zero on failure
func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// missingEnv returns the names in keys that are unset or blank
func missingEnv(keys []string, lookup func(string) (string, bool)) []string {
	var missing []string
	for _, key := range keys {
		if v, ok := lookup(key); !ok || strings.TrimSpace(v) == "" {
			missing = append(missing, key)
		}
	}
	return missing
}

// connect opens an initialized MCP client. The stdio server reads Jira
// credentials from the environment, so they are checked before spawning it.
func connect(ctx context.Context) (*mcp.Client, *mcp.InitializeResult, error) {
	var transport mcp.Transport
	if serverURL != "" {
		transport = mcp.NewHTTPTransport(serverURL, serverToken)
	} else {
		if missing := missingEnv(requiredJiraEnv, os.LookupEnv); len(missing) > 0 {
			return nil, nil, fmt.Errorf("missing Jira credentials in environment: %s", strings.Join(missing, ", "))
		}
		parts := strings.Fields(serverCmd)
		if len(parts) == 0 {
			return nil, nil, errors.New("--server-cmd is empty")
		}
		stdio, err := mcp.NewStdioTransport(ctx, parts[0], parts[1:], os.Environ())
		if err != nil {
			return nil, nil, err
		}
		transport = stdio
	}

	client := mcp.NewClient(transport)
	info, err := client.Initialize(ctx, clientName, clientVersion)
	if err != nil {
		client.Close()
		return nil, nil, errors.Join(errors.New("failed to connect to MCP server"), err)
	}
	logger.Debug("connected",
		slog.String("server", info.ServerInfo.Name),
		slog.String("version", info.ServerInfo.Version),
		slog.String("protocol", info.ProtocolVersion))
	return client, info, nil
}

// callTool connects, calls one tool and prints its text
func callTool(cmd *cobra.Command, name string, args map[string]any) error {
	ctx := cmd.Context()
	client, _, err := connect(ctx)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), err)
		return err
	}
	defer client.Close()

	text, err := client.CallTool(ctx, name, args)
	if err != nil {
		var toolErr *mcp.ToolError
		if errors.As(err, &toolErr) {
			fmt.Fprintln(cmd.ErrOrStderr(), "Error:", toolErr.Message)
			for _, d := range toolErr.Details {
				fmt.Fprintln(cmd.ErrOrStderr(), "  -", d)
			}
		} else {
			fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
		}
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), text)
	return nil
}
