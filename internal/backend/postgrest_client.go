package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/valyala/fastjson"
	"go.uber.org/zap"
	"gorm.io/gorm/schema"

	"github.com/tanaka-0224/Iverse2/internal/metrics"
)

// APIError is a non-duplicate failure reported by the REST gateway.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("rest gateway error (status %d, code %s): %s", e.StatusCode, e.Code, e.Message)
}

// PostgRESTClient talks to the hosted backend's /rest/v1 gateway.
type PostgRESTClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	metrics    *metrics.Metrics
	logger     *zap.Logger
	parsers    fastjson.ParserPool
}

// NewPostgRESTClient creates a gateway client for baseURL authenticated with apiKey
func NewPostgRESTClient(baseURL, apiKey string, timeout time.Duration, m *metrics.Metrics, logger *zap.Logger) *PostgRESTClient {
	if !strings.HasPrefix(baseURL, "http") {
		baseURL = "https://" + baseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &PostgRESTClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		metrics: m,
		logger:  logger,
	}
}

// encodeQuery renders filters, ordering and limit as gateway query parameters
func encodeQuery(q *Query) string {
	params := url.Values{}
	params.Set("select", "*")

	for _, f := range q.Filters {
		switch f.Op {
		case OpEq, OpNeq, OpLt:
			params.Add(f.Column, string(f.Op)+"."+formatValue(f.Value))
		case OpIn:
			values := make([]string, len(f.Values))
			for i, v := range f.Values {
				values[i] = formatValue(v)
			}
			params.Add(f.Column, "in.("+strings.Join(values, ",")+")")
		}
	}

	if len(q.Orders) > 0 {
		orders := make([]string, len(q.Orders))
		for i, o := range q.Orders {
			dir := "asc"
			if o.Desc {
				dir = "desc"
			}
			orders[i] = o.Column + "." + dir
		}
		params.Set("order", strings.Join(orders, ","))
	}

	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}

	return params.Encode()
}

func formatValue(v interface{}) string {
	if t, ok := v.(time.Time); ok {
		return t.UTC().Format(time.RFC3339Nano)
	}
	return fmt.Sprint(v)
}

// makeRequest sends a request to /rest/v1 and returns the raw body
func (c *PostgRESTClient) makeRequest(ctx context.Context, method, endpoint string, body interface{}, headers map[string]string) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/rest/v1"+endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RecordExternalAPICall("/rest/v1"+endpoint, method, 0, time.Since(start), err)
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	c.metrics.RecordExternalAPICall("/rest/v1"+endpoint, method, resp.StatusCode, time.Since(start), nil)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, c.parseError(resp.StatusCode, respBody)
	}

	return respBody, nil
}

func (c *PostgRESTClient) parseError(status int, body []byte) error {
	apiErr := &APIError{StatusCode: status, Message: string(body)}

	p := c.parsers.Get()
	defer c.parsers.Put(p)

	if v, err := p.ParseBytes(body); err == nil {
		apiErr.Code = string(v.GetStringBytes("code"))
		if msg := v.GetStringBytes("message"); len(msg) > 0 {
			apiErr.Message = string(msg)
		}
	}

	c.logger.Debug("REST gateway returned error",
		zap.Int("status", status),
		zap.String("code", apiErr.Code),
		zap.String("message", apiErr.Message),
	)

	if apiErr.Code == pgerrcode.UniqueViolation || status == http.StatusConflict {
		return fmt.Errorf("%w: %s", ErrDuplicate, apiErr.Message)
	}
	return apiErr
}

// rows splits a representation array into raw JSON rows
func (c *PostgRESTClient) rows(body []byte) ([][]byte, error) {
	p := c.parsers.Get()
	defer c.parsers.Put(p)

	v, err := p.ParseBytes(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse response body: %w", err)
	}

	arr, err := v.Array()
	if err != nil {
		return nil, fmt.Errorf("expected array response: %w", err)
	}

	out := make([][]byte, len(arr))
	for i, item := range arr {
		out[i] = item.MarshalTo(nil)
	}
	return out, nil
}

func (c *PostgRESTClient) Select(ctx context.Context, q *Query, dest interface{}) error {
	body, err := c.makeRequest(ctx, http.MethodGet, "/"+q.Table+"?"+encodeQuery(q), nil, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("failed to decode %s rows: %w", q.Table, err)
	}
	return nil
}

func (c *PostgRESTClient) First(ctx context.Context, q *Query, dest interface{}) error {
	limited := *q
	limited.Limit = 1

	body, err := c.makeRequest(ctx, http.MethodGet, "/"+q.Table+"?"+encodeQuery(&limited), nil, nil)
	if err != nil {
		return err
	}

	rows, err := c.rows(body)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return ErrNotFound
	}
	if err := json.Unmarshal(rows[0], dest); err != nil {
		return fmt.Errorf("failed to decode %s row: %w", q.Table, err)
	}
	return nil
}

// Count asks the gateway for an exact count and reads it from Content-Range
// ("0-9/42" or "*/0").
func (c *PostgRESTClient) Count(ctx context.Context, q *Query) (int64, error) {
	unlimited := *q
	unlimited.Limit = 0
	unlimited.Orders = nil

	endpoint := "/rest/v1/" + q.Table + "?" + encodeQuery(&unlimited)
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL+endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Prefer", "count=exact")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RecordExternalAPICall(endpoint, http.MethodHead, 0, time.Since(start), err)
		return 0, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()
	c.metrics.RecordExternalAPICall(endpoint, http.MethodHead, resp.StatusCode, time.Since(start), nil)

	if resp.StatusCode >= 400 {
		return 0, &APIError{StatusCode: resp.StatusCode, Message: "count failed"}
	}

	contentRange := resp.Header.Get("Content-Range")
	slash := strings.LastIndexByte(contentRange, '/')
	if slash < 0 {
		return 0, fmt.Errorf("missing count in Content-Range %q", contentRange)
	}
	count, err := strconv.ParseInt(contentRange[slash+1:], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid count in Content-Range %q: %w", contentRange, err)
	}
	return count, nil
}

func (c *PostgRESTClient) Insert(ctx context.Context, row schema.Tabler) error {
	body, err := c.makeRequest(ctx, http.MethodPost, "/"+row.TableName(), row, nil)
	if err != nil {
		return err
	}

	rows, err := c.rows(body)
	if err != nil {
		return err
	}
	if len(rows) > 0 {
		if err := json.Unmarshal(rows[0], row); err != nil {
			return fmt.Errorf("failed to decode inserted %s row: %w", row.TableName(), err)
		}
	}
	return nil
}

func (c *PostgRESTClient) Update(ctx context.Context, q *Query, values map[string]interface{}) (int64, error) {
	if len(q.Filters) == 0 {
		return 0, fmt.Errorf("refusing to update %s without filters", q.Table)
	}

	body, err := c.makeRequest(ctx, http.MethodPatch, "/"+q.Table+"?"+encodeQuery(q), values, nil)
	if err != nil {
		return 0, err
	}

	rows, err := c.rows(body)
	if err != nil {
		return 0, err
	}
	return int64(len(rows)), nil
}

func (c *PostgRESTClient) Delete(ctx context.Context, q *Query) (int64, error) {
	if len(q.Filters) == 0 {
		return 0, fmt.Errorf("refusing to delete from %s without filters", q.Table)
	}

	body, err := c.makeRequest(ctx, http.MethodDelete, "/"+q.Table+"?"+encodeQuery(q), nil, nil)
	if err != nil {
		return 0, err
	}

	rows, err := c.rows(body)
	if err != nil {
		return 0, err
	}
	return int64(len(rows)), nil
}

// Upsert with no update columns is insert-or-ignore. Otherwise a conflicting
// insert is followed by a PATCH of updateColumns only, leaving the rest of the
// existing row untouched.
func (c *PostgRESTClient) Upsert(ctx context.Context, table string, values map[string]interface{}, conflictColumn string, updateColumns []string) error {
	if len(updateColumns) == 0 {
		_, err := c.makeRequest(ctx, http.MethodPost, "/"+table+"?on_conflict="+url.QueryEscape(conflictColumn), values, map[string]string{
			"Prefer": "return=representation,resolution=ignore-duplicates",
		})
		return err
	}

	_, err := c.makeRequest(ctx, http.MethodPost, "/"+table, values, nil)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrDuplicate) {
		return err
	}

	patch := make(map[string]interface{}, len(updateColumns))
	for _, col := range updateColumns {
		if v, ok := values[col]; ok {
			patch[col] = v
		}
	}

	_, err = c.Update(ctx, From(table).Eq(conflictColumn, values[conflictColumn]), patch)
	return err
}

func (c *PostgRESTClient) Ping(ctx context.Context) error {
	_, err := c.makeRequest(ctx, http.MethodGet, "/", nil, nil)
	return err
}

