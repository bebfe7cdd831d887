package app

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/providentiaww/jira-assistant-mcp/internal/assistant"
	"github.com/providentiaww/jira-assistant-mcp/internal/storage"
)

func TestScopeQuery(t *testing.T) {
	tests := []struct {
		query, project, want string
	}{
		{"status = Open", "KAN", "project = KAN AND status = Open"},
		{"  status = Open ", "", "status = Open"},
		{"project = OPS AND status = Open", "KAN", "project = OPS AND status = Open"},
		{"PROJECT in (A, B)", "KAN", "PROJECT in (A, B)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, scopeQuery(tt.query, tt.project), tt.query)
	}
}

func TestMissingEnv(t *testing.T) {
	env := map[string]string{"JIRA_URL": "https://x.atlassian.net", "JIRA_EMAIL": "  "}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
	assert.Equal(t, []string{"JIRA_EMAIL", "JIRA_API_TOKEN"}, missingEnv(requiredJiraEnv, lookup))

	env["JIRA_EMAIL"] = "me@example.com"
	env["JIRA_API_TOKEN"] = "tok"
	assert.Empty(t, missingEnv(requiredJiraEnv, lookup))
}

type cannedTools map[string]string

func (c cannedTools) CallTool(_ context.Context, name string, _ map[string]any) (string, error) {
	return c[name], nil
}

func TestChatLoopRecordsTurns(t *testing.T) {
	tools := cannedTools{"get_ticket": "KAN-7: Fix login [In Progress]"}
	session := assistant.NewSession("s1", assistant.NewDispatcher(tools), nil)
	store := storage.NewMemoryStore(10)

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	cmd.SetIn(strings.NewReader("show details for KAN-7\n\nexit\nhelp\n"))
	cmd.SetOut(&out)

	require.NoError(t, chatLoop(cmd, session, store))

	assert.Contains(t, out.String(), "Welcome to Jira Assistant")
	assert.Contains(t, out.String(), "KAN-7: Fix login")

	saved, err := store.Load(context.Background(), "s1", 10)
	require.NoError(t, err)
	require.Len(t, saved, 2)
	assert.Equal(t, assistant.RoleUser, saved[0].Role)
	assert.Equal(t, "show details for KAN-7", saved[0].Text)
}

func TestHashTokenCommand(t *testing.T) {
	var out bytes.Buffer
	hashTokenCmd.SetOut(&out)
	require.NoError(t, hashTokenCmd.RunE(hashTokenCmd, []string{"secret"}))
	assert.True(t, strings.HasPrefix(out.String(), "$2"))
}
