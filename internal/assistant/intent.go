package assistant

import "regexp"

// Intent is the kind of request an utterance represents
type Intent int

const (
	IntentUnknown Intent = iota
	IntentCreateTicket
	IntentSearchTickets
	IntentGetTicketDetails
	IntentListByFilter
)

func (i Intent) String() string {
	switch i {
	case IntentCreateTicket:
		return "create_ticket"
	case IntentSearchTickets:
		return "search_tickets"
	case IntentGetTicketDetails:
		return "get_ticket_details"
	case IntentListByFilter:
		return "list_by_filter"
	default:
		return "unknown"
	}
}

type intentRule struct {
	intent   Intent
	patterns []*regexp.Regexp
}

// intentRules is evaluated top to bottom and the first hit wins. The order
// breaks ties between overlapping phrasings: a create request that mentions
// "details" is still a create.
var intentRules = []intentRule{
	{IntentCreateTicket, []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:create|add)\s+(?:a\s+|an\s+)?(?:new\s+)?(?:ticket|task|bug|story|epic|issue)s?\b`),
	}},
	{IntentSearchTickets, []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:find|search|list|show)\s+(?:me\s+)?(?:for\s+)?(?:(?:all|open|recent|the|my)\s+)*(?:tickets|issues|tasks|bugs|stories|epics)\b`),
		regexp.MustCompile(`(?i)\bquery:`),
	}},
	{IntentGetTicketDetails, []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:details|info|status|fetch|get|show|display|view|retrieve|describe)\b.*?\b[A-Z][A-Z0-9]*-\d+\b`),
		regexp.MustCompile(`(?i)\b[A-Z][A-Z0-9]*-\d+\b.*?\b(?:details|info|status)\b`),
		regexp.MustCompile(`(?i)\b(?:details|description|info|status|fetch|get|show|display|view|retrieve)\b.*?\b(?:just\s+)?(?:created|made)\b`),
		regexp.MustCompile(`(?i)\b(?:details|info|status)\b.*?\b(?:oauth2?|authentication|ticket|issue)\b`),
	}},
	{IntentListByFilter, []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:tickets|tasks|issues|bugs|stories)\b.*?\b(?:assigned\s+to|assign\s+to|by|from)\s+[A-Za-z]`),
		regexp.MustCompile(`(?i)\b(?:tickets|tasks|issues|bugs|stories)\b.*?\b(?:contain(?:s|ing)?|with|about|related\s+to)\s+\S`),
	}},
}

// Classify maps an utterance to an intent. It has no state: the same text
// always gives the same answer.
func Classify(text string) Intent {
	for _, r := range intentRules {
		for _, p := range r.patterns {
			if p.MatchString(text) {
				return r.intent
			}
		}
	}
	return IntentUnknown
}
