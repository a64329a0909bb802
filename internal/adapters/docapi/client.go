// Package docapi implements the remote document-management platform client:
// collection search and per-record workflow history retrieval over HTTP.
package docapi

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

	"github.com/target/dms-export/internal/core"
	"github.com/target/dms-export/internal/domain/model"
	apperrors "github.com/target/dms-export/internal/errors"
)

const defaultRequestTimeout = 2 * time.Minute

// Client is the HTTP implementation of core.DocumentClient. It is safe for
// concurrent use.
type Client struct {
	http *http.Client
}

var _ core.DocumentClient = (*Client)(nil)

// NewClient creates a client whose requests are bounded by timeout. A zero
// timeout falls back to the 2 minute default.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Client{http: &http.Client{Timeout: timeout}}
}

// NewClientWithHTTP creates a client over a caller-supplied http.Client.
// Used by tests to point at an httptest server.
func NewClientWithHTTP(hc *http.Client) *Client {
	return &Client{http: hc}
}

type searchRequest struct {
	Filters []model.Filter `json:"filters,omitempty"`
	Limit   int            `json:"limit"`
}

type searchItem struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Fields json.RawMessage `json:"fields"`
}

type searchResponse struct {
	Items []json.RawMessage `json:"items"`
}

// Search queries a collection with the job's filter predicates, capped at
// p.Limit matches.
func (c *Client) Search(ctx context.Context, p core.SearchParams) ([]model.Record, error) {
	endpoint := joinURL(p.BaseURL, "api/v2/collections", p.CollectionID, "records/search")

	body, err := json.Marshal(searchRequest{Filters: p.Filters, Limit: p.Limit})
	if err != nil {
		return nil, fmt.Errorf("encode search request: %w", err)
	}

	data, err := c.do(ctx, requestParams{
		Method: http.MethodPost,
		URL:    endpoint,
		Token:  p.Token,
		Body:   body,
	})
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeRemote, "decode search response")
	}

	records := make([]model.Record, 0, len(resp.Items))
	for _, raw := range resp.Items {
		var item searchItem
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeRemote, "decode search item")
		}
		records = append(records, model.Record{
			ID:     item.ID,
			Name:   item.Name,
			Fields: stringifyFields(item.Fields),
			Raw:    raw,
		})
	}
	return records, nil
}

type detailResponse struct {
	Workflows []model.HistoryInstance `json:"workflows"`
}

// GetDetail retrieves the processing-history instances attached to a record.
func (c *Client) GetDetail(ctx context.Context, p core.DetailParams) ([]model.HistoryInstance, error) {
	endpoint := joinURL(p.BaseURL, "api/v2/collections", p.CollectionID, "records", p.RecordID, "workflows")

	data, err := c.do(ctx, requestParams{
		Method: http.MethodGet,
		URL:    endpoint,
		Token:  p.Token,
	})
	if err != nil {
		return nil, err
	}

	var resp detailResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeRemote, "decode workflow response")
	}
	return resp.Workflows, nil
}

type requestParams struct {
	Method string
	URL    string
	Token  string
	Body   []byte
}

func (c *Client) do(ctx context.Context, p requestParams) ([]byte, error) {
	var body io.Reader
	if p.Body != nil {
		body = bytes.NewReader(p.Body)
	}

	req, err := http.NewRequestWithContext(ctx, p.Method, p.URL, body)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeRemote, "build platform request")
	}
	req.Header.Set("Authorization", "Bearer "+p.Token)
	req.Header.Set("Accept", "application/json")
	if p.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeRemote, "platform request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeRemote, "read platform response")
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, apperrors.Unauthorized("platform rejected access token")
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, apperrors.Remotef("platform returned %d: %s", resp.StatusCode, truncate(string(data), 200))
	}
	return data, nil
}

// stringifyFields renders a record's loosely typed custom-field object into
// the verbatim string values carried onto output rows.
func stringifyFields(raw json.RawMessage) map[string]string {
	if len(raw) == 0 {
		return nil
	}
	var values map[string]any
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil
	}

	fields := make(map[string]string, len(values))
	for k, v := range values {
		fields[k] = stringifyValue(v)
	}
	return fields
}

func stringifyValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(data)
	}
}

func joinURL(base string, parts ...string) string {
	segments := make([]string, 0, len(parts))
	for _, part := range parts {
		for _, seg := range strings.Split(part, "/") {
			if seg != "" {
				segments = append(segments, url.PathEscape(seg))
			}
		}
	}
	return strings.TrimRight(base, "/") + "/" + strings.Join(segments, "/")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
