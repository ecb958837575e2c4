package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"order-adapter/internal/core/config"
	"order-adapter/internal/core/httpclient"
	"order-adapter/internal/core/logger"

	"go.uber.org/zap"
)

// maxLoggedBody caps the response body length recorded in diagnostics.
const maxLoggedBody = 512

// Client performs authenticated calls against the Shopify Admin API.
// It speaks both the REST and the GraphQL surface of the same store.
type Client struct {
	// client is the HTTP client used for API requests.
	client *http.Client
	// baseURL is the versioned Admin API root, e.g. https://acme.myshopify.com/admin/api/2024-01.
	baseURL string
	// token is the Admin API access token sent on every request.
	token string
}

// NewClient creates a Client for the configured store.
func NewClient(cfg config.ShopifyConfig) *Client {
	domain := cfg.Domain
	if !strings.Contains(domain, "://") {
		domain = "https://" + domain
	}

	return &Client{
		client:  httpclient.NewClient(30 * time.Second),
		baseURL: fmt.Sprintf("%s/admin/api/%s", strings.TrimSuffix(domain, "/"), cfg.APIVersion),
		token:   cfg.AccessToken,
	}
}

// REST performs one Admin REST call. The path is relative to the versioned API
// root (e.g. "/orders.json?name=1006&status=any"). A non-nil body is sent as
// JSON; the response is decoded into out when out is non-nil. No schema
// validation happens here, the caller owns optional-field access.
func (c *Client) REST(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-Shopify-Access-Token", c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.do(req, out)
}

// graphQLRequest is the envelope posted to the GraphQL endpoint.
type graphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

// graphQLEnvelope is the envelope returned by the GraphQL endpoint.
type graphQLEnvelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// GraphQL performs one Admin GraphQL call and decodes the "data" payload into
// out. Errors reported inside a 2xx envelope surface as *GraphQLErrors.
func (c *Client) GraphQL(ctx context.Context, query string, variables map[string]interface{}, out interface{}) error {
	data, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("failed to encode graphql request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/graphql.json", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-Shopify-Access-Token", c.token)
	req.Header.Set("Content-Type", "application/json")

	var envelope graphQLEnvelope
	if err := c.do(req, &envelope); err != nil {
		return err
	}

	if len(envelope.Errors) > 0 {
		messages := make([]string, 0, len(envelope.Errors))
		for _, e := range envelope.Errors {
			messages = append(messages, e.Message)
		}
		return &GraphQLErrors{Messages: messages}
	}

	if out == nil || len(envelope.Data) == 0 {
		return nil
	}

	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return &DecodeError{Err: err}
	}

	return nil
}

// HealthCheck verifies that the Admin API is reachable and the token is valid.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := c.REST(ctx, http.MethodGet, "/shop.json", nil, nil); err != nil {
		return fmt.Errorf("shopify health check failed: %w", err)
	}
	return nil
}

// do executes the request and applies the shared response contract:
// TransportError on network failure, UpstreamError outside 2xx, DecodeError
// on malformed JSON. Status and truncated body are logged for every call.
func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Err: err}
	}

	logger.Get().Debug("Shopify response",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status_code", resp.StatusCode),
		zap.String("body", truncate(data)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &UpstreamError{StatusCode: resp.StatusCode, Body: truncate(data)}
	}

	if out == nil || len(data) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, out); err != nil {
		return &DecodeError{Err: err}
	}

	return nil
}

// truncate shortens a response body for logging and error payloads.
func truncate(data []byte) string {
	if len(data) > maxLoggedBody {
		return string(data[:maxLoggedBody]) + "..."
	}
	return string(data)
}
