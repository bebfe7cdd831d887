package app

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
)

// maxSearchResults is the backend's cap on search_tickets
const maxSearchResults = 10

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the tools the server offers",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		client, _, err := connect(ctx)
		if err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), err)
			return err
		}
		defer client.Close()

		tools, err := client.ListTools(ctx)
		if err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), "Error listing tools:", err)
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Found %d tools:\n", len(tools))
		for _, tool := range tools {
			fmt.Fprintf(cmd.OutOrStdout(), "  - %s: %s\n", tool.Name, tool.Description)
		}
		return nil
	},
}

var createFlags struct {
	project     string
	title       string
	description string
	issueType   string
	assignee    string
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a ticket",
	RunE: func(cmd *cobra.Command, args []string) error {
		toolArgs := map[string]any{
			"project_key": createFlags.project,
			"summary":     createFlags.title,
			"description": createFlags.description,
			"issue_type":  createFlags.issueType,
		}
		if createFlags.assignee != "" {
			toolArgs["assignee"] = createFlags.assignee
		}
		return callTool(cmd, "create_ticket", toolArgs)
	},
}

var searchFlags struct {
	query   string
	project string
	max     int
}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search tickets with JQL",
	RunE: func(cmd *cobra.Command, args []string) error {
		if searchFlags.max > maxSearchResults {
			logger.Info("the server returns at most 10 results",
				slog.Int("requested", searchFlags.max))
		}
		return callTool(cmd, "search_tickets", map[string]any{
			"query": scopeQuery(searchFlags.query, searchFlags.project),
		})
	},
}

var getFlags struct {
	id string
}

var getCmd = &cobra.Command{
	Use:   "get",
	Short: "Show one ticket",
	RunE: func(cmd *cobra.Command, args []string) error {
		return callTool(cmd, "get_ticket", map[string]any{"issue_key": getFlags.id})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check the connection to the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, info, err := connect(cmd.Context())
		if err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), "Connection failed:", err)
			return err
		}
		defer client.Close()

		fmt.Fprintln(cmd.OutOrStdout(), "Connection successful")
		fmt.Fprintf(cmd.OutOrStdout(), "Server Name: %s\n", info.ServerInfo.Name)
		fmt.Fprintf(cmd.OutOrStdout(), "Version: %s\n", info.ServerInfo.Version)
		fmt.Fprintf(cmd.OutOrStdout(), "Protocol: %s\n", info.ProtocolVersion)
		return nil
	},
}

func init() {
	createCmd.Flags().StringVarP(&createFlags.project, "project", "p", "", "project key, e.g. KAN")
	createCmd.Flags().StringVarP(&createFlags.title, "title", "t", "", "ticket summary")
	createCmd.Flags().StringVarP(&createFlags.description, "description", "d", "", "ticket description")
	createCmd.Flags().StringVarP(&createFlags.issueType, "type", "y", "Task", "issue type")
	createCmd.Flags().StringVarP(&createFlags.assignee, "assignee", "a", "", "assignee name or account ID")
	createCmd.MarkFlagRequired("project")
	createCmd.MarkFlagRequired("title")
	createCmd.MarkFlagRequired("description")

	searchCmd.Flags().StringVarP(&searchFlags.query, "query", "q", "", "JQL query")
	searchCmd.Flags().StringVarP(&searchFlags.project, "project", "p", "", "restrict to a project")
	searchCmd.Flags().IntVarP(&searchFlags.max, "max", "m", maxSearchResults, "maximum results")
	searchCmd.MarkFlagRequired("query")

	getCmd.Flags().StringVarP(&getFlags.id, "id", "i", "", "ticket key, e.g. KAN-123")
	getCmd.MarkFlagRequired("id")
}

// scopeQuery narrows query to project unless it already names a project
func scopeQuery(query, project string) string {
	query = strings.TrimSpace(query)
	if project == "" || strings.Contains(strings.ToLower(query), "project") {
		return query
	}
	return fmt.Sprintf("project = %s AND %s", project, query)
}
