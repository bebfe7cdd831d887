package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	opts = append([]Option{WithHTTPClient(srv.Client())}, opts...)
	return NewClient(Credentials{Site: srv.URL + "/", Email: "bot@example.com", Token: "secret"}, 5*time.Second, opts...)
}

func TestRateLimitWithZeroBurstStillSends(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"id":"1","key":"KAN-1","fields":{"summary":"x","status":{"name":"To Do"}}}`))
	}, WithRateLimit(10, 0))

	_, err := client.GetIssue(context.Background(), "KAN-1")
	require.NoError(t, err)
	_, err = client.GetIssue(context.Background(), "KAN-1")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestCreateIssueSendsADFAndBasicAuth(t *testing.T) {
	var got map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/rest/api/3/issue", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "bot@example.com", user)
		assert.Equal(t, "secret", pass)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"10001","key":"KAN-5"}`))
	})

	created, err := client.CreateIssue(context.Background(), "KAN", "Bug", "Login broken", "Users cannot log in", "acc-1")
	require.NoError(t, err)
	assert.Equal(t, "KAN-5", created.Key)

	fields := got["fields"].(map[string]any)
	assert.Equal(t, "KAN", fields["project"].(map[string]any)["key"])
	assert.Equal(t, "Bug", fields["issuetype"].(map[string]any)["name"])
	assert.Equal(t, "acc-1", fields["assignee"].(map[string]any)["accountId"])
	desc := fields["description"].(map[string]any)
	assert.Equal(t, "doc", desc["type"])
	para := desc["content"].([]any)[0].(map[string]any)
	assert.Equal(t, "Users cannot log in", para["content"].([]any)[0].(map[string]any)["text"])
}

func TestAPIErrorCollectsMessages(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"errorMessages":["The value 'NOPE' does not exist for the field 'project'."],"errors":{"summary":"required"}}`))
	})

	_, err := client.SearchIssues(context.Background(), "project = NOPE", 50)
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, []string{
		"The value 'NOPE' does not exist for the field 'project'.",
		"summary: required",
	}, apiErr.Messages)
	assert.Contains(t, err.Error(), "failed to search issues")
}

func TestAPIErrorFallsBackToBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream unavailable"))
	})

	err := client.DeleteIssue(context.Background(), "KAN-1")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "upstream unavailable", apiErr.Detail())
}

func TestSearchIssuesCapsLimit(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/api/3/search/jql", r.URL.Path)
		var payload map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.EqualValues(t, SearchLimit, payload["maxResults"])
		w.Write([]byte(`{"issues":[{"key":"KAN-1"},{"key":"KAN-2"}]}`))
	})

	res, err := client.SearchIssues(context.Background(), "project = KAN", 100)
	require.NoError(t, err)
	require.Len(t, res.Issues, 2)
	assert.Equal(t, "KAN-2", res.Issues[1].Key)
}

func TestFindAccountIDCachesLookups(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "/rest/api/3/user/search", r.URL.Path)
		assert.Equal(t, "Pawan Kumar", r.URL.Query().Get("query"))
		w.Write([]byte(`[{"accountId":"acc-42","displayName":"Pawan Kumar"}]`))
	})

	for i := 0; i < 2; i++ {
		id, err := client.FindAccountID(context.Background(), "Pawan Kumar")
		require.NoError(t, err)
		assert.Equal(t, "acc-42", id)
	}
	assert.Equal(t, 1, calls)
}

func TestFindAccountIDNoMatch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	id, err := client.FindAccountID(context.Background(), "Nobody")
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestRequestHonoursContext(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := client.GetIssue(ctx, "KAN-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
