package grid

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/esports-bridge/internal/auth"
	"github.com/rickgao/esports-bridge/internal/version"
)

// graphQLRequest is the POST body of a GraphQL call.
type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// graphQLResponse is the response envelope of a GraphQL call.
type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []GraphQLError  `json:"errors"`
}

// doRequest performs one POST of a GraphQL request.
func (c *Client) doRequest(ctx context.Context, key string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	req.Header.Set("X-Request-Id", requestID)
	auth.SetHeaders(req.Header, key)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request %s: %w", requestID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response %s: %w", requestID, err)
	}

	if resp.StatusCode >= 400 {
		c.logger.Debug("grid api error",
			"request_id", requestID,
			"status", resp.StatusCode,
			"api_key", auth.Redact(key),
		)
		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
			Body:       body,
		}
	}

	return body, nil
}

// doWithRetry performs a request with exponential backoff retry on 429/5xx.
func (c *Client) doWithRetry(ctx context.Context, key string, payload []byte) ([]byte, error) {
	var lastErr error
	backoff := c.retryBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// Add jitter: backoff * (0.5 to 1.5)
			jitter := backoff/2 + time.Duration(rand.Int64N(int64(backoff)+1))
			c.logger.Debug("retrying request",
				"attempt", attempt,
				"backoff", jitter,
			)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(jitter):
			}

			backoff *= 2
		}

		body, err := c.doRequest(ctx, key, payload)
		if err == nil {
			return body, nil
		}

		lastErr = err

		var httpErr *HTTPError
		if !errors.As(err, &httpErr) || !httpErr.IsRetryable() {
			return nil, err
		}
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// query runs a GraphQL query and decodes "data" into result.
// A non-empty "errors" list is returned as *QueryError even when data is present.
func (c *Client) query(ctx context.Context, key, q string, vars map[string]any, result any) error {
	payload, err := json.Marshal(graphQLRequest{Query: q, Variables: vars})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	body, err := c.doWithRetry(ctx, key, payload)
	if err != nil {
		return err
	}

	var envelope graphQLResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}

	if len(envelope.Errors) > 0 {
		return &QueryError{Errors: envelope.Errors}
	}

	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return errors.New("response has no data")
	}

	if err := json.Unmarshal(envelope.Data, result); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}

	return nil
}
