package atlassian

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/providentiaww/jira-assistant-mcp/internal/models"
)

var (
	// ErrInvalidCredentials means Jira rejected the email/token pair
	ErrInvalidCredentials = errors.New("invalid credentials: authentication failed")
	errEndpointNotFound   = errors.New("endpoint not found")
)

// Validator checks Jira credentials
type Validator struct {
	client *http.Client
}

// NewValidator creates a validator with its own short-timeout client
func NewValidator() *Validator {
	return &Validator{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// ValidateCredentials calls /myself and returns the authenticated user.
// Sites that do not serve REST v3 are retried on v2.
func (v *Validator) ValidateCredentials(ctx context.Context, siteURL, email, apiToken string) (*models.User, error) {
	siteURL = strings.TrimSuffix(siteURL, "/")

	user, err := v.myself(ctx, siteURL, "3", email, apiToken)
	if errors.Is(err, errEndpointNotFound) {
		user, err = v.myself(ctx, siteURL, "2", email, apiToken)
		if errors.Is(err, errEndpointNotFound) {
			return nil, fmt.Errorf("Jira API endpoint not found (tried v3 and v2). Check your site URL")
		}
	}
	if err != nil {
		return nil, err
	}

	// Privacy settings can hide the address; only a visible mismatch fails.
	if user.Email != "" && !strings.EqualFold(user.Email, email) {
		return nil, fmt.Errorf("email mismatch: expected %s, got %s", email, user.Email)
	}
	return user, nil
}

func (v *Validator) myself(ctx context.Context, siteURL, version, email, apiToken string) (*models.User, error) {
	apiURL := fmt.Sprintf("%s/rest/api/%s/myself", siteURL, version)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(email, apiToken)
	req.Header.Set("Accept", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Jira: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, errEndpointNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrInvalidCredentials
	default:
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var user models.User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &user, nil
}
