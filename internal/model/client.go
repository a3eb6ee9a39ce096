// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package model is a client for a locally hosted completion endpoint that
// speaks the Ollama generate protocol: POST {model, prompt, stream} and get
// back either one JSON object or newline-delimited JSON fragments.
//
// The client never retries. Connection failures and timeouts are reported as
// types.ErrEndpointUnavailable, non-success statuses as *types.ModelError.
package model

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pdiddy/pdf-cleanup-agent/pkg/types"
)

const (
	// DefaultEndpoint is the generate endpoint of a local Ollama server.
	DefaultEndpoint = "http://localhost:11434/api/generate"

	// DefaultTimeout bounds one request when the configuration leaves it unset.
	DefaultTimeout = 120 * time.Second

	// maxErrorBody caps how much of an error response is kept.
	maxErrorBody = 4 << 10
)

// Generator turns one prompt into generated text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Client calls the completion endpoint.
type Client struct {
	endpoint string
	model    string
	stream   bool
	timeout  time.Duration
	apiKey   string
	http     *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// NewClient builds a client from cfg. A missing model name or a malformed
// endpoint is a configuration error.
func NewClient(cfg types.ModelConfig, opts ...Option) (*Client, error) {
	if cfg.Name == "" {
		return nil, types.ConfigErrorf("model name is empty")
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, types.ConfigErrorf("model endpoint %q is not an http(s) URL", endpoint)
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	c := &Client{
		endpoint: endpoint,
		model:    cfg.Name,
		stream:   cfg.Stream,
		timeout:  timeout,
		apiKey:   cfg.APIKey,
		http:     &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Model returns the model identifier sent with each request.
func (c *Client) Model() string { return c.model }

// generateResponse is both the batch body and a single stream fragment.
type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// Generate returns the full generated text for prompt, using streaming when
// the client was configured for it.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if !c.stream {
		return c.GenerateBatch(ctx, prompt)
	}
	s, err := c.OpenStream(ctx, prompt)
	if err != nil {
		return "", err
	}
	return Collect(s)
}

// GenerateBatch sends a non-streaming request and blocks until the complete
// response is available.
func (c *Client) GenerateBatch(ctx context.Context, prompt string) (string, error) {
	resp, reqCtx, cancel, err := c.post(ctx, prompt, false)
	if err != nil {
		return "", err
	}
	defer cancel()
	defer resp.Body.Close()

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", transportError(ctx, reqCtx, fmt.Errorf("decoding model response: %w", err))
	}
	if out.Error != "" {
		return "", &types.ModelError{StatusCode: resp.StatusCode, Body: out.Error}
	}
	return out.Response, nil
}

// OpenStream sends a streaming request. The caller reads fragments with
// Recv and must Close the stream.
func (c *Client) OpenStream(ctx context.Context, prompt string) (*Stream, error) {
	resp, reqCtx, cancel, err := c.post(ctx, prompt, true)
	if err != nil {
		return nil, err
	}
	return newStream(ctx, reqCtx, cancel, resp), nil
}

// Ping checks that the server behind the endpoint answers at all.
func (c *Client) Ping(ctx context.Context) error {
	u, _ := url.Parse(c.endpoint)
	root := u.Scheme + "://" + u.Host + "/"

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, root, nil)
	if err != nil {
		return fmt.Errorf("creating ping request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return transportError(ctx, reqCtx, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return readModelError(resp)
	}
	return nil
}

// post issues the request. On success the caller owns resp.Body and must
// call cancel once the body has been consumed.
func (c *Client) post(ctx context.Context, prompt string, stream bool) (*http.Response, context.Context, context.CancelFunc, error) {
	body, err := json.Marshal(types.PromptRequest{Model: c.model, Prompt: prompt, Stream: stream})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshaling request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		cancel()
		return nil, nil, nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if stream {
		req.Header.Set("Accept", "application/x-ndjson")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		cancel()
		return nil, nil, nil, transportError(ctx, reqCtx, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer cancel()
		defer resp.Body.Close()
		return nil, nil, nil, readModelError(resp)
	}
	return resp, reqCtx, cancel, nil
}

// transportError classifies a failure to reach or read from the endpoint.
// Cancellation of the caller's context is reported as such; everything else,
// including the per-request deadline, means the endpoint is unavailable.
func transportError(parent, reqCtx context.Context, err error) error {
	if parent.Err() != nil {
		return fmt.Errorf("model request cancelled: %w", parent.Err())
	}
	if reqCtx != nil && errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: request timed out: %w", types.ErrEndpointUnavailable, err)
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return err
	}
	return fmt.Errorf("%w: %w", types.ErrEndpointUnavailable, err)
}

func readModelError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &types.ModelError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(data))}
}
