package assistant

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractTicketFields(t *testing.T) {
	tests := []struct {
		name string
		text string
		want TicketDraft
	}{
		{
			name: "help example",
			text: "Create a bug in KAN titled 'Login page crashes' with description 'The login page crashes on Safari'",
			want: TicketDraft{ProjectKey: "KAN", Summary: "Login page crashes", Description: "The login page crashes on Safari", IssueType: "Bug"},
		},
		{
			name: "project marker and assignee",
			text: `Create a task in project OPS with title "Rotate keys" and description "Keys expire in June" and assign it to Pawan Kumar`,
			want: TicketDraft{ProjectKey: "OPS", Summary: "Rotate keys", Description: "Keys expire in June", IssueType: "Task", Assignee: "Pawan Kumar"},
		},
		{
			name: "explicit type marker wins over keywords",
			text: "project: KAN, summary: Export fails, description: CSV export times out, type: story",
			want: TicketDraft{ProjectKey: "KAN", Summary: "Export fails", Description: "CSV export times out", IssueType: "Story"},
		},
		{
			name: "apostrophe inside single quotes",
			text: "Add a bug in KAN titled 'Crash on save' with description 'Users can't save drafts'",
			want: TicketDraft{ProjectKey: "KAN", Summary: "Crash on save", Description: "Users can't save drafts", IssueType: "Bug"},
		},
		{
			name: "words inside the title are not markers",
			text: "Create a ticket titled 'Fix bug in IE' with description 'Rendering broken' in project KAN",
			want: TicketDraft{ProjectKey: "KAN", Summary: "Fix bug in IE", Description: "Rendering broken", IssueType: "Task"},
		},
		{
			name: "fallback description",
			text: "Create an epic in KAN titled 'Billing revamp'",
			want: TicketDraft{ProjectKey: "KAN", Summary: "Billing revamp", Description: "This epic requires attention. Please see the summary for details.", IssueType: "Epic"},
		},
		{
			name: "apostrophe in an unquoted description",
			text: "Create a bug in KAN with summary Login broken, description Users can't log in on Safari.",
			want: TicketDraft{ProjectKey: "KAN", Summary: "Login broken", Description: "Users can't log in on Safari", IssueType: "Bug"},
		},
		{
			name: "apostrophe inside a quoted title hides its markers",
			text: "Create a bug in KAN titled 'Don't assign to Bob yet' with description 'Waiting on legal'",
			want: TicketDraft{ProjectKey: "KAN", Summary: "Don't assign to Bob yet", Description: "Waiting on legal", IssueType: "Bug"},
		},
		{
			name: "nothing extractable",
			text: "Create a ticket",
			want: TicketDraft{IssueType: "Task"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractTicketFields(tt.text))
		})
	}
}

func TestProjectKANWithQuotedFields(t *testing.T) {
	texts := []string{
		"Create a task in project KAN titled 'A title' with description 'Some words here'",
		"In the sprint, add a story for project KAN titled 'Onboarding flow' with description 'New users get lost'",
		"project KAN: create a bug titled \"Null pointer in API\" with description \"Seen in the logs\"",
	}
	for _, text := range texts {
		d := ExtractTicketFields(text)
		assert.Equal(t, "KAN", d.ProjectKey, text)
		assert.NotEmpty(t, d.Summary, text)
		assert.NotEmpty(t, d.Description, text)
	}
}

func TestIssueTypeDefaultsToTask(t *testing.T) {
	for _, text := range []string{
		"Create a ticket in KAN titled 'Hello' with description 'World'",
		"please make something in OPS",
		"",
	} {
		assert.Equal(t, "Task", ExtractTicketFields(text).IssueType, text)
	}
}

func TestExtractionIsPure(t *testing.T) {
	text := "Show all open bugs assigned to Pawan Kumar in KAN containing 'timeout'"
	assert.Equal(t, ExtractSearchFields(text), ExtractSearchFields(text))

	text = "Create a bug in KAN titled 'X' with description 'Y'"
	assert.Equal(t, ExtractTicketFields(text), ExtractTicketFields(text))
}

func TestExtractSearchFields(t *testing.T) {
	tests := []struct {
		text    string
		wantJQL string
	}{
		{"Show all tasks assigned to Pawan Kumar in KAN", `project = KAN AND issuetype = Task AND assignee = "Pawan Kumar"`},
		{"Find open tickets containing 'authentication'", `text ~ "authentication" AND status != 'Done' AND status != 'Closed'`},
		{"Search for tickets in project KAN", "project = KAN"},
		{"Find all open tickets", "status != 'Done' AND status != 'Closed'"},
		{"list tickets", DefaultJQL},
		{"Show bugs about checkout in project SHOP", "project = SHOP AND issuetype = Bug AND text ~ \"checkout\""},
		{"Find tickets reported by Maria", `assignee = "Maria"`},
		{"search using query: project = KAN AND created >= -7d", "project = KAN AND created >= -7d"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.wantJQL, ExtractSearchFields(tt.text).JQL(), tt.text)
	}
}

func TestRawQueryBypassesExtraction(t *testing.T) {
	spec := ExtractSearchFields("query: project = KAN AND assignee = currentUser()")
	assert.Equal(t, SearchSpec{RawQuery: "project = KAN AND assignee = currentUser()"}, spec)

	spec = ExtractSearchFields("search using query: project = KAN\nAND status = Open")
	assert.Equal(t, "project = KAN\nAND status = Open", spec.JQL())
}

func TestSearchSpecJQLOrder(t *testing.T) {
	assert.Equal(t, "project = KAN AND issuetype = Bug", SearchSpec{Project: "KAN", IssueType: "Bug"}.JQL())

	full := SearchSpec{Project: "KAN", IssueType: "Bug", Assignee: "Ann Lee", FreeText: `say "hi"`, Status: StatusOpen}
	assert.Equal(t,
		`project = KAN AND issuetype = Bug AND assignee = "Ann Lee" AND text ~ "say \"hi\"" AND status != 'Done' AND status != 'Closed'`,
		full.JQL())
}
