// Package store is the client for the spreadsheet-backed record store that
// holds parcel, history and message-log records. The backend is reached over
// HTTP; each collection is addressed by its own URL.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultTimeout bounds every call to the record store so an unresponsive
// backend cannot wedge a conversation.
const DefaultTimeout = 15 * time.Second

// Record is an untyped record. Values are normalized to strings on read.
type Record map[string]string

// Recorder is the CRUD surface the dialogue engines depend on. A collection
// is the URL (or, for MemoryStore, any name) of one record set.
type Recorder interface {
	List(ctx context.Context, collection string) ([]Record, error)
	Append(ctx context.Context, collection string, records ...Record) error
	Update(ctx context.Context, collection, key, value string, patch Record) error
	Delete(ctx context.Context, collection, key, value string) error
}

// Client implements Recorder against the HTTP record store.
type Client struct {
	http    *http.Client
	timeout time.Duration
}

// ClientOpts holds parameters for creating a Client.
type ClientOpts struct {
	HTTPClient *http.Client  // defaults to a new http.Client
	Timeout    time.Duration // defaults to DefaultTimeout
}

// NewClient creates a record store Client.
func NewClient(opts ClientOpts) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{http: hc, timeout: timeout}
}

// List fetches every record in a collection. The backend answers either with
// a bare JSON array or with an object wrapping the array under "data" (or
// "records"); both shapes are normalized here.
func (c *Client) List(ctx context.Context, collection string) ([]Record, error) {
	body, err := c.do(ctx, http.MethodGet, collection, nil)
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	records, err := decodeRecords(body)
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	return records, nil
}

// Append adds records to a collection. The body is always a JSON array.
func (c *Client) Append(ctx context.Context, collection string, records ...Record) error {
	if len(records) == 0 {
		return nil
	}
	if _, err := c.do(ctx, http.MethodPost, collection, records); err != nil {
		return fmt.Errorf("store: append: %w", err)
	}
	return nil
}

// Update patches the records whose key field equals value.
func (c *Client) Update(ctx context.Context, collection, key, value string, patch Record) error {
	if _, err := c.do(ctx, http.MethodPatch, recordURL(collection, key, value), patch); err != nil {
		return fmt.Errorf("store: update %s=%s: %w", key, value, err)
	}
	return nil
}

// Delete removes the records whose key field equals value.
func (c *Client) Delete(ctx context.Context, collection, key, value string) error {
	if _, err := c.do(ctx, http.MethodDelete, recordURL(collection, key, value), nil); err != nil {
		return fmt.Errorf("store: delete %s=%s: %w", key, value, err)
	}
	return nil
}

// recordURL builds "collection/key/value" with path escaping.
func recordURL(collection, key, value string) string {
	return strings.TrimRight(collection, "/") + "/" + url.PathEscape(key) + "/" + url.PathEscape(value)
}

// do performs one bounded request and returns the response body.
func (c *Client) do(ctx context.Context, method, target string, payload interface{}) ([]byte, error) {
	if target == "" {
		return nil, fmt.Errorf("collection url is empty")
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s %s: status %d: %s", method, target, resp.StatusCode, truncate(string(data), 200))
	}
	return data, nil
}

// decodeRecords normalizes a list response into records.
func decodeRecords(data []byte) ([]Record, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	var raw []map[string]interface{}
	if data[0] == '[' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("decode array: %w", err)
		}
	} else {
		var wrapped struct {
			Data    []map[string]interface{} `json:"data"`
			Records []map[string]interface{} `json:"records"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return nil, fmt.Errorf("decode object: %w", err)
		}
		raw = wrapped.Data
		if raw == nil {
			raw = wrapped.Records
		}
	}

	records := make([]Record, 0, len(raw))
	for _, m := range raw {
		r := make(Record, len(m))
		for k, v := range m {
			r[k] = stringify(v)
		}
		records = append(records, r)
	}
	return records, nil
}

// stringify renders a decoded JSON value the way a spreadsheet cell reads.
func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

// truncate returns s truncated to maxLen with "..." appended if needed.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
