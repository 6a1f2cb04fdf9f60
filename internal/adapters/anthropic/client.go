// Package anthropic implements the core.BatchClient and core.MessageClient
// ports against a Claude-style inference API: synchronous messages plus
// asynchronous message batches with JSONL results.
package anthropic

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/openlearn/adaptive-api/internal/domain/model"
	apperrors "github.com/openlearn/adaptive-api/internal/errors"
)

const (
	apiVersion        = "2023-06-01"
	maxErrorBodyBytes = 512

	// Batch result lines can carry long generations; the scanner buffer must
	// accommodate them.
	maxResultLineBytes = 10 * 1024 * 1024
)

// Config holds connection settings for the inference API.
type Config struct {
	APIKey     string
	BaseURL    string        // Optional, defaults to https://api.anthropic.com
	HTTPClient *http.Client  // Optional
	Timeout    time.Duration // Optional, default 120s; applies when HTTPClient is nil
}

// Client talks to the inference API. It is safe for concurrent use.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a Client.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("API key is required")
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 120 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}, nil
}

// wireBatch is the API's batch resource representation.
type wireBatch struct {
	ID               string `json:"id"`
	ProcessingStatus string `json:"processing_status"`
	RequestCounts    struct {
		Processing int `json:"processing"`
		Succeeded  int `json:"succeeded"`
		Errored    int `json:"errored"`
		Canceled   int `json:"canceled"`
		Expired    int `json:"expired"`
	} `json:"request_counts"`
}

func (wb *wireBatch) toModel() *model.Batch {
	return &model.Batch{
		ID:               wb.ID,
		ProcessingStatus: wb.ProcessingStatus,
		RequestCounts: model.RequestCounts{
			Processing: wb.RequestCounts.Processing,
			Succeeded:  wb.RequestCounts.Succeeded,
			Errored:    wb.RequestCounts.Errored,
			Canceled:   wb.RequestCounts.Canceled,
			Expired:    wb.RequestCounts.Expired,
		},
	}
}

// CreateBatch submits the requests as one asynchronous batch.
func (c *Client) CreateBatch(
	ctx context.Context,
	requests []model.BatchRequest,
) (*model.Batch, error) {
	if len(requests) == 0 {
		return nil, errors.New("batch requires at least one request")
	}

	body := map[string]any{"requests": requests}
	var wb wireBatch
	if err := c.postJSON(ctx, "/v1/messages/batches", body, &wb); err != nil {
		return nil, err
	}
	return wb.toModel(), nil
}

// GetBatch fetches the batch's processing status and request counts.
func (c *Client) GetBatch(ctx context.Context, batchID string) (*model.Batch, error) {
	var wb wireBatch
	if err := c.getJSON(ctx, "/v1/messages/batches/"+batchID, &wb); err != nil {
		return nil, err
	}
	return wb.toModel(), nil
}

// wireResult is one newline-delimited entry in the batch results stream.
type wireResult struct {
	CustomID string `json:"custom_id"`
	Result   struct {
		Type    string `json:"type"`
		Message *struct {
			Content []contentBlock `json:"content"`
		} `json:"message,omitempty"`
		Error *struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error,omitempty"`
	} `json:"result"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// BatchResults fetches and decodes the JSONL results of an ended batch.
func (c *Client) BatchResults(
	ctx context.Context,
	batchID string,
) ([]model.BatchResult, error) {
	resp, err := c.send(ctx, http.MethodGet, "/v1/messages/batches/"+batchID+"/results", nil)
	if err != nil {
		return nil, err
	}
	defer closeQuietly(resp.Body)

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var results []model.BatchResult
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), maxResultLineBytes)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var wr wireResult
		if err := json.Unmarshal(line, &wr); err != nil {
			return nil, apperrors.Wrapf(err, apperrors.ErrCodeUpstream,
				"decode batch %s result line", batchID)
		}
		results = append(results, wr.toModel())
	}
	if err := scanner.Err(); err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrCodeUpstream,
			"read batch %s results", batchID)
	}
	return results, nil
}

func (wr *wireResult) toModel() model.BatchResult {
	result := model.BatchResult{
		CustomID: wr.CustomID,
		Type:     wr.Result.Type,
	}
	if wr.Result.Message != nil {
		var text strings.Builder
		for _, block := range wr.Result.Message.Content {
			if block.Type == "text" {
				text.WriteString(block.Text)
			}
		}
		result.Text = text.String()
	}
	if wr.Result.Error != nil {
		result.Error = wr.Result.Error.Message
	}
	return result
}

// CreateMessage runs one synchronous generation request and returns the
// concatenated text output. Used by the background explanation worker.
func (c *Client) CreateMessage(ctx context.Context, params model.MessageParams) (string, error) {
	var resp struct {
		Content []contentBlock `json:"content"`
	}
	if err := c.postJSON(ctx, "/v1/messages", params, &resp); err != nil {
		return "", err
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return text.String(), nil
}

func (c *Client) getJSON(ctx context.Context, path string, dst any) error {
	resp, err := c.send(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer closeQuietly(resp.Body)

	if err := checkStatus(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return apperrors.Wrapf(err, apperrors.ErrCodeUpstream, "decode %s response", path)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, body, dst any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "encode request body")
	}

	resp, err := c.send(ctx, http.MethodPost, path, encoded)
	if err != nil {
		return err
	}
	defer closeQuietly(resp.Body)

	if err := checkStatus(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return apperrors.Wrapf(err, apperrors.ErrCodeUpstream, "decode %s response", path)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrCodeInternal, "build %s request", path)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrCodeUpstream, "%s %s", method, path)
	}
	return resp, nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	snippet := strings.TrimSpace(string(raw))
	path := resp.Request.URL.Path

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return apperrors.NotFoundf("%s returned 404: %s", path, snippet)
	case resp.StatusCode == http.StatusTooManyRequests:
		return apperrors.RateLimited(fmt.Sprintf("inference API rate limited: %s", snippet))
	case resp.StatusCode >= 500:
		return apperrors.Upstreamf(http.StatusBadGateway,
			"%s returned %d: %s", path, resp.StatusCode, snippet)
	default:
		return apperrors.Upstreamf(resp.StatusCode,
			"%s returned %d: %s", path, resp.StatusCode, snippet)
	}
}

func closeQuietly(c io.Closer) {
	_ = c.Close()
}
