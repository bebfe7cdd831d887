package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"JIRA_URL", "JIRA_EMAIL", "JIRA_API_TOKEN", "JIRA_TIMEOUT", "JIRA_RATE_LIMIT", "JIRA_RATE_BURST",
		"ASSISTANT_HISTORY_LIMIT", "ASSISTANT_CALL_TIMEOUT", "ASSISTANT_DEFAULT_PROJECT",
		"PORT", "ALLOWED_ORIGINS", "JIRA_TRANSPORT", "AMQP_URL", "JIRA_QUEUE", "JIRA_TRANSPORT_TIMEOUT",
		"REDIS_URL", "DATABASE_URL", "HISTORY_FILE", "HISTORY_TTL", "CHAT_JWT_SECRET", "MCP_SERVICE_TOKEN_HASH",
		"LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 200, cfg.Assistant.HistoryLimit)
	assert.Equal(t, 30*time.Second, cfg.Assistant.CallTimeout)
	assert.Equal(t, "KAN", cfg.Assistant.DefaultProject)
	assert.Equal(t, TransportDirect, cfg.Transport.Mode)
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
jira:
  url: https://file.atlassian.net
  timeout: 5s
assistant:
  history_limit: 50
  default_project: OPS
transport:
  mode: AMQP
`), 0o600))

	t.Setenv("JIRA_URL", "https://env.atlassian.net")
	t.Setenv("ASSISTANT_CALL_TIMEOUT", "2s")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://env.atlassian.net", cfg.Jira.URL)
	assert.Equal(t, 5*time.Second, cfg.Jira.Timeout)
	assert.Equal(t, 50, cfg.Assistant.HistoryLimit)
	assert.Equal(t, "OPS", cfg.Assistant.DefaultProject)
	assert.Equal(t, 2*time.Second, cfg.Assistant.CallTimeout)
	assert.Equal(t, TransportAMQP, cfg.Transport.Mode)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "JiraRequests", cfg.Transport.Queue)
}

func TestLoadRejectsBadValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("ASSISTANT_HISTORY_LIMIT", "lots")
	t.Setenv("JIRA_TIMEOUT", "soon")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ASSISTANT_HISTORY_LIMIT")
	assert.Contains(t, err.Error(), "JIRA_TIMEOUT")
}

func TestRequireJira(t *testing.T) {
	cfg := Default()
	err := cfg.RequireJira()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JIRA_URL, JIRA_EMAIL, JIRA_API_TOKEN")

	cfg.Jira = JiraConfig{URL: "https://x.atlassian.net", Email: "a@b.c", APIToken: "t"}
	assert.NoError(t, cfg.RequireJira())
}
