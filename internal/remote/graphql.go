// Package remote implements the GraphQL transport and the typed API
// client for the social server. The transport is a plain HTTP POST
// carrying {query, variables, operationName}; a non-empty GraphQL error
// list in the response is surfaced as *APIError, transport failures as
// *NetworkError.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const defaultTimeout = 15 * time.Second

// TokenSource supplies the current bearer token, or "" when no session
// is active. Implemented by the session holder.
type TokenSource interface {
	Token() string
}

// GraphQLError is one entry of the server's error list.
type GraphQLError struct {
	Message    string         `json:"message"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// APIError means the server processed the request and rejected it: the
// response carried a non-empty GraphQL error list.
type APIError struct {
	Operation string
	Errors    []GraphQLError
}

func (e *APIError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("%s: rejected by server", e.Operation)
	}
	return fmt.Sprintf("%s: %s", e.Operation, e.Errors[0].Message)
}

// Message returns the first server-provided error message.
func (e *APIError) Message() string {
	if len(e.Errors) == 0 {
		return "rejected by server"
	}
	return e.Errors[0].Message
}

// RemoteError is an HTTP-level failure (the response never reached the
// GraphQL layer).
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote error (%d): %s", e.Status, e.Message)
}

// NetworkError is a transport-level failure: the request never got a
// usable response.
type NetworkError struct {
	Operation string
	Err       error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network failure: %v", e.Operation, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Client executes GraphQL operations against a single endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
	tokens     TokenSource
	limiter    *rate.Limiter
}

// NewClient creates a transport client for the given GraphQL endpoint.
// tokens may be nil for unauthenticated use.
func NewClient(endpoint string, tokens TokenSource) *Client {
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: defaultTimeout},
		tokens:     tokens,
		limiter:    rate.NewLimiter(rate.Limit(10), 20),
	}
}

// SetTimeout overrides the per-request timeout. A stalled call gives up
// after this long and surfaces as a NetworkError.
func (c *Client) SetTimeout(d time.Duration) {
	if d > 0 {
		c.httpClient.Timeout = d
	}
}

type graphqlRequest struct {
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables,omitempty"`
	OperationName string         `json:"operationName,omitempty"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []GraphQLError  `json:"errors"`
}

// Execute runs one operation and unmarshals the data envelope into out.
// out may be nil when the caller does not need the payload.
func (c *Client) Execute(ctx context.Context, operation, query string, variables map[string]any, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &NetworkError{Operation: operation, Err: err}
	}

	body, err := json.Marshal(graphqlRequest{
		Query:         query,
		Variables:     variables,
		OperationName: operation,
	})
	if err != nil {
		return fmt.Errorf("%s: marshal request: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: create request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Operation: operation, Err: err}
	}
	defer resp.Body.Close()

	var envelope graphqlResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		if resp.StatusCode >= 400 {
			return &RemoteError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return &NetworkError{Operation: operation, Err: fmt.Errorf("decode response: %w", err)}
	}

	if len(envelope.Errors) > 0 {
		return &APIError{Operation: operation, Errors: envelope.Errors}
	}
	if resp.StatusCode >= 400 {
		return &RemoteError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	if out != nil && envelope.Data != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("%s: decode data: %w", operation, err)
		}
	}
	return nil
}
