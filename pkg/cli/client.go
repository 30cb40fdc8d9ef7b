package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// QueryResult mirrors the server's query response. Numbers are kept as
// json.Number so integers print without a float detour.
type QueryResult struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

// APIError is a non-2xx response from the server.
type APIError struct {
	HTTPStatus int
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (HTTP %d)", e.Detail, e.HTTPStatus)
}

// Client talks to the pipeterm HTTP API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a Client for host, e.g. http://localhost:8000.
func NewClient(host string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(host, "/"),
		HTTPClient: &http.Client{Timeout: 5 * time.Minute},
	}
}

// Do sends a request to BaseURL+path. A non-nil body is sent as JSON.
func (c *Client) Do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		rdr = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rdr)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

// CheckError turns a non-2xx response into an *APIError carrying the
// server's detail message. The body is consumed in that case.
func CheckError(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var body struct {
		Detail string `json:"detail"`
	}
	detail := strings.TrimSpace(string(data))
	if err := json.Unmarshal(data, &body); err == nil && body.Detail != "" {
		detail = body.Detail
	}
	if detail == "" {
		detail = http.StatusText(resp.StatusCode)
	}
	return &APIError{HTTPStatus: resp.StatusCode, Detail: detail}
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	resp, err := c.Do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck
	if err := CheckError(resp); err != nil {
		return err
	}
	return decodeJSON(resp.Body, out)
}

func decodeJSON(r io.Reader, out any) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// ListLakes returns the lakes the server knows about.
func (c *Client) ListLakes(ctx context.Context) ([]string, error) {
	var lakes []string
	if err := c.getJSON(ctx, "/api/v1/lakes", &lakes); err != nil {
		return nil, err
	}
	return lakes, nil
}

// ListFiles returns the CSV files of lake.
func (c *Client) ListFiles(ctx context.Context, lake string) ([]string, error) {
	var files []string
	if err := c.getJSON(ctx, "/api/v1/"+url.PathEscape(lake)+"/files", &files); err != nil {
		return nil, err
	}
	return files, nil
}

// ListTables returns the queryable tables of lake.
func (c *Client) ListTables(ctx context.Context, lake string) ([]string, error) {
	var tables []string
	if err := c.getJSON(ctx, "/api/v1/"+url.PathEscape(lake)+"/tables", &tables); err != nil {
		return nil, err
	}
	return tables, nil
}

// Query runs sql against lake.
func (c *Client) Query(ctx context.Context, lake, sql string) (*QueryResult, error) {
	resp, err := c.Do(ctx, http.MethodPost, "/api/v1/"+url.PathEscape(lake)+"/query", map[string]string{"sql": sql})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck
	if err := CheckError(resp); err != nil {
		return nil, err
	}
	var result QueryResult
	if err := decodeJSON(resp.Body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
