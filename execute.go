package dali

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrInvalidURI is the cause of an ExecutionError when the target URI is not
// an absolute http or https URL.
var ErrInvalidURI = errors.New("invalid URI")

// ValidateURI reports whether uri can be used as a query endpoint: it must be
// an absolute http or https URL. The returned error wraps ErrInvalidURI.
func ValidateURI(uri string) error {
	u, err := url.Parse(uri)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURI, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: must be an absolute http(s) URL", ErrInvalidURI)
	}
	return nil
}

// maxErrorBody caps the response body kept on an ExecutionError.
const maxErrorBody = 4096

// Execute posts query to uri and returns the decoded JSON body.
// It is ExecuteContext with context.Background().
func (c *Client) Execute(uri, query string) (any, error) {
	return c.ExecuteContext(context.Background(), uri, query)
}

// ExecuteContext posts query verbatim to uri and decodes the JSON response
// into a generic value. Numbers are returned as json.Number. Any failure is
// returned as an *ExecutionError.
func (c *Client) ExecuteContext(ctx context.Context, uri, query string) (any, error) {
	body, err := c.do(ctx, uri, query)
	if err != nil {
		return nil, err
	}

	var v any
	if err := decodeJSON(body, &v); err != nil {
		return nil, c.fail(&ExecutionError{URI: uri, StatusCode: http.StatusOK, Body: truncateForLog(string(body), maxErrorBody), Err: err})
	}
	return v, nil
}

// Query sends the same request as ExecuteContext and decodes the body into
// one Response per statement.
func (c *Client) Query(ctx context.Context, uri, query string) ([]Response, error) {
	body, err := c.do(ctx, uri, query)
	if err != nil {
		return nil, err
	}

	var out []Response
	if err := decodeJSON(body, &out); err != nil {
		return nil, c.fail(&ExecutionError{URI: uri, StatusCode: http.StatusOK, Body: truncateForLog(string(body), maxErrorBody), Err: err})
	}
	return out, nil
}

// do performs one POST and returns the body of a 2xx response.
func (c *Client) do(ctx context.Context, uri, query string) ([]byte, error) {
	startTime := time.Now()
	c.metrics.IncQueryTotal()
	defer func() {
		c.metrics.ObserveQueryDuration(time.Since(startTime).Seconds())
	}()

	if err := ValidateURI(uri); err != nil {
		return nil, c.fail(&ExecutionError{URI: uri, Err: err})
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uri, strings.NewReader(query))
	if err != nil {
		return nil, c.fail(&ExecutionError{URI: uri, Err: fmt.Errorf("failed to create request: %w", err)})
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", c.authHeader())
	req.Header.Set("DB", c.config.Database)
	req.Header.Set("NS", c.config.Namespace)
	req.Header.Set("User-Agent", UserAgent())

	// A fresh client per call; nothing is shared between requests except
	// the RoundTripper.
	httpClient := &http.Client{Transport: c.transport, Timeout: c.timeout}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, c.fail(&ExecutionError{URI: uri, Err: err})
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.fail(&ExecutionError{URI: uri, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response body: %w", err)})
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.fail(&ExecutionError{
			URI:        uri,
			StatusCode: resp.StatusCode,
			Body:       truncateForLog(string(body), maxErrorBody),
			Err:        ErrUnexpectedStatus,
		})
	}

	c.logger.Debug().
		Str("uri", uri).
		Int("status", resp.StatusCode).
		Int("response_bytes", len(body)).
		Dur("duration", time.Since(startTime)).
		Msg("request executed")

	return body, nil
}

// fail records a failed request and returns err unchanged.
func (c *Client) fail(err *ExecutionError) *ExecutionError {
	c.metrics.IncQueryError()
	c.logger.Error().
		Err(err.Err).
		Str("uri", err.URI).
		Int("status", err.StatusCode).
		Msg("request failed")
	return err
}

// decodeJSON decodes exactly one JSON value from data, keeping numbers as
// json.Number.
func decodeJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return errors.New("failed to decode response body: unexpected data after JSON value")
	}
	return nil
}
