package assistant

// ErrorKind classifies a failed ToolResult
type ErrorKind string

const (
	KindNone               ErrorKind = ""
	KindValidation         ErrorKind = "validation"
	KindBackend            ErrorKind = "backend"
	KindTransport          ErrorKind = "transport"
	KindAmbiguousReference ErrorKind = "ambiguous_reference"
	KindTimeout            ErrorKind = "timeout"
)

// ToolResult is the outcome of handling one request. Kind is KindNone exactly
// when Success is true. TicketKey is set when the request concerned one
// specific ticket.
type ToolResult struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Kind      ErrorKind `json:"kind,omitempty"`
	TicketKey string    `json:"ticket_key,omitempty"`

	// details is the full error payload a backend failure carried
	details []string
}

func succeeded(message string) ToolResult {
	return ToolResult{Success: true, Message: message}
}

func failed(kind ErrorKind, message string) ToolResult {
	return ToolResult{Success: false, Message: message, Kind: kind}
}

// Outcome is a metrics label for the result
func (r ToolResult) Outcome() string {
	if r.Success {
		return "ok"
	}
	return string(r.Kind)
}
