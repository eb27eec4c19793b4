package linear

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultAPIURL is Linear's GraphQL endpoint.
const DefaultAPIURL = "https://api.linear.app/graphql"

// ErrMalformedResponse marks a response body that is not the expected JSON.
var ErrMalformedResponse = errors.New("malformed response")

// Transport submits a GraphQL document and decodes the "data" member into out.
type Transport interface {
	Do(ctx context.Context, query string, variables map[string]any, out any) error
}

// StatusError is returned for non-2xx HTTP responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("graphql request failed: %d %s - %s", e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

// GraphQLError is one entry of a response's "errors" array.
type GraphQLError struct {
	Message    string         `json:"message"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// GraphQLErrors is returned when the response carries an "errors" array,
// including on HTTP 200.
type GraphQLErrors []GraphQLError

func (e GraphQLErrors) Error() string {
	messages := make([]string, 0, len(e))
	for _, err := range e {
		messages = append(messages, err.Message)
	}
	return "graphql errors: " + strings.Join(messages, "; ")
}

// IsNotFound reports whether every error is Linear's "Entity not found".
func (e GraphQLErrors) IsNotFound() bool {
	if len(e) == 0 {
		return false
	}
	for _, err := range e {
		if !strings.Contains(strings.ToLower(err.Message), "not found") {
			return false
		}
	}
	return true
}

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type gqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors GraphQLErrors   `json:"errors"`
}

// HTTPTransport talks to Linear over HTTPS.
type HTTPTransport struct {
	apiURL string
	token  string
	http   *http.Client
}

// NewHTTPTransport creates a transport for the given endpoint. An empty apiURL
// selects DefaultAPIURL.
func NewHTTPTransport(apiURL, token string, timeout time.Duration) *HTTPTransport {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	return &HTTPTransport{
		apiURL: apiURL,
		token:  strings.TrimSpace(token),
		http:   &http.Client{Timeout: timeout},
	}
}

// Do implements Transport.
func (t *HTTPTransport) Do(ctx context.Context, query string, variables map[string]any, out any) error {
	payload, err := json.Marshal(gqlRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.apiURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	// Personal API keys go in raw; OAuth tokens already carry "Bearer ".
	if t.token != "" {
		req.Header.Set("Authorization", t.token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var gqlResp gqlResponse
	if err := json.Unmarshal(body, &gqlResp); err != nil {
		return fmt.Errorf("decode response: %w: %w", ErrMalformedResponse, err)
	}
	if len(gqlResp.Errors) > 0 {
		return gqlResp.Errors
	}

	if out == nil || len(gqlResp.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(gqlResp.Data, out); err != nil {
		return fmt.Errorf("decode data: %w: %w", ErrMalformedResponse, err)
	}
	return nil
}
