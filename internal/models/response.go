package models

// Error codes carried in ErrorInfo.Code
const (
	ErrCodeInvalidRequest = "INVALID_REQUEST"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeAuthFailed     = "AUTH_FAILED"
	ErrCodeAPIError       = "API_ERROR"
	ErrCodeInvalidStatus  = "INVALID_STATUS"
	ErrCodeNoFields       = "NO_FIELDS"
	ErrCodeTimeout        = "TIMEOUT"
)

// ErrorInfo describes a failed request. Details holds the backend's own
// error messages (Jira errorMessages and field errors) when there are any.
type ErrorInfo struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

// SuccessResponse builds a successful JiraResponse
func SuccessResponse(data any, requestID string) JiraResponse {
	return JiraResponse{
		Success:   true,
		Data:      data,
		RequestID: requestID,
	}
}

// ErrorResponse builds a failed JiraResponse
func ErrorResponse(code, message, requestID string, details ...string) JiraResponse {
	return JiraResponse{
		Success: false,
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
			Details: details,
		},
		RequestID: requestID,
	}
}
