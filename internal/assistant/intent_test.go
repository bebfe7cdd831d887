package assistant

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		text string
		want Intent
	}{
		{"Create a bug in KAN titled 'Login page crashes' with description 'The login page crashes on Safari'", IntentCreateTicket},
		{"create a ticket with details about the outage", IntentCreateTicket},
		{"Add a new story to project KAN", IntentCreateTicket},
		{"Show details for ticket KAN-123", IntentGetTicketDetails},
		{"Get info about KAN-123", IntentGetTicketDetails},
		{"KAN-7 status please", IntentGetTicketDetails},
		{"get details for the ticket we just created", IntentGetTicketDetails},
		{"What's the status of the authentication ticket?", IntentGetTicketDetails},
		{"Search for tickets in project KAN", IntentSearchTickets},
		{"Find all open tickets", IntentSearchTickets},
		{"Show all tasks assigned to Pawan Kumar in KAN", IntentSearchTickets},
		{"query: project = KAN AND issuetype = Task", IntentSearchTickets},
		{"Tickets assigned to Pawan", IntentListByFilter},
		{"bugs related to checkout", IntentListByFilter},
		{"hello there", IntentUnknown},
		{"", IntentUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.text), tt.text)
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	text := "Show details for ticket KAN-123"
	first := Classify(text)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Classify(text))
	}
}

func TestIntentString(t *testing.T) {
	assert.Equal(t, "create_ticket", IntentCreateTicket.String())
	assert.Equal(t, "search_tickets", IntentSearchTickets.String())
	assert.Equal(t, "get_ticket_details", IntentGetTicketDetails.String())
	assert.Equal(t, "list_by_filter", IntentListByFilter.String())
	assert.Equal(t, "unknown", IntentUnknown.String())
}
