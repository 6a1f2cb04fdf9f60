// Package upstream provides the shared HTTP client used by every authed
// REST adapter (roster, progress, question bank): bearer auth from a token
// source, one reactive token refresh after a 401, and status-code mapping
// into the application error taxonomy.
package upstream

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

	"github.com/openlearn/adaptive-api/internal/core"
	apperrors "github.com/openlearn/adaptive-api/internal/errors"
)

// maxErrorBodyBytes caps how much of an upstream error body is carried into
// diagnostics.
const maxErrorBodyBytes = 512

// Options groups dependencies for a Client.
type Options struct {
	BaseURL    string           // Required: upstream service root
	Tokens     core.TokenSource // Optional: nil disables auth headers
	HTTPClient *http.Client     // Optional: defaults to a 60s-timeout client
}

// Client is a JSON-over-HTTP client for one upstream service.
type Client struct {
	baseURL    string
	tokens     core.TokenSource
	httpClient *http.Client
}

// New constructs a Client.
func New(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("base URL is required")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		tokens:     opts.Tokens,
		httpClient: httpClient,
	}, nil
}

// GetJSON performs a GET and decodes the JSON response into dst.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, dst any) error {
	return c.doJSON(ctx, http.MethodGet, path, query, nil, dst)
}

// PostJSON performs a POST with a JSON body and decodes the response into
// dst (which may be nil to discard it).
func (c *Client) PostJSON(ctx context.Context, path string, body, dst any) error {
	return c.doJSON(ctx, http.MethodPost, path, nil, body, dst)
}

// PutJSON performs a PUT with a JSON body and decodes the response into dst.
func (c *Client) PutJSON(ctx context.Context, path string, body, dst any) error {
	return c.doJSON(ctx, http.MethodPut, path, nil, body, dst)
}

// GetRaw performs a GET and returns the raw body plus its content type.
// Used by the question-bank adapter, which must tolerate XML payloads.
func (c *Client) GetRaw(ctx context.Context, path string, query url.Values) ([]byte, string, error) {
	resp, err := c.do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, "", err
	}
	defer closeQuietly(resp.Body)

	if err := c.checkStatus(resp); err != nil {
		return nil, "", err
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read %s response: %w", path, err)
	}
	return raw, resp.Header.Get("Content-Type"), nil
}

func (c *Client) doJSON(
	ctx context.Context,
	method, path string,
	query url.Values,
	body, dst any,
) error {
	resp, err := c.do(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	defer closeQuietly(resp.Body)

	if err := c.checkStatus(resp); err != nil {
		return err
	}
	if dst == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return apperrors.Wrapf(err, apperrors.ErrCodeUpstream, "decode %s response", path)
	}
	return nil
}

// do sends the request, attaching a bearer token when a token source is
// configured. On a 401 it invalidates the token and repeats the call exactly
// once; a second 401 is returned to the caller. No backoff, by decision.
func (c *Client) do(
	ctx context.Context,
	method, path string,
	query url.Values,
	body any,
) (*http.Response, error) {
	var encoded []byte
	if body != nil {
		var err error
		encoded, err = json.Marshal(body)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "encode request body")
		}
	}

	resp, err := c.send(ctx, method, path, query, encoded)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized || c.tokens == nil {
		return resp, nil
	}

	// Reactive refresh: drop the stale token and retry the call once.
	closeQuietly(resp.Body)
	c.tokens.Invalidate()
	return c.send(ctx, method, path, query, encoded)
}

func (c *Client) send(
	ctx context.Context,
	method, path string,
	query url.Values,
	body []byte,
) (*http.Response, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrCodeInternal, "build %s request", path)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeUpstream, "acquire bearer token")
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrCodeUpstream, "%s %s", method, path)
	}
	return resp, nil
}

// checkStatus maps non-2xx responses into the error taxonomy, carrying a
// truncated body for diagnostics. The response body is consumed on error.
func (c *Client) checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	snippet := readSnippet(resp.Body)
	path := resp.Request.URL.Path

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return apperrors.NotFoundf("%s returned 404: %s", path, snippet)
	case resp.StatusCode == http.StatusTooManyRequests:
		return apperrors.RateLimited(fmt.Sprintf("%s rate limited: %s", path, snippet))
	case resp.StatusCode >= 500:
		// Upstream 5xx surfaces as a 502 from this service.
		return apperrors.Upstreamf(http.StatusBadGateway,
			"%s returned %d: %s", path, resp.StatusCode, snippet)
	default:
		return apperrors.Upstreamf(resp.StatusCode,
			"%s returned %d: %s", path, resp.StatusCode, snippet)
	}
}

func readSnippet(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, maxErrorBodyBytes))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(raw))
}

func closeQuietly(c io.Closer) {
	_ = c.Close()
}
