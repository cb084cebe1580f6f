// Package client is the HTTP client of the POD tracker API used by the web UI.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"podtracker/internal/model"
	"podtracker/internal/report"
	"podtracker/internal/service"
)

const (
	apiKeyHeader = "X-API-Key"

	masterDataKey = "master_data"
	summaryKey    = "summary:"
)

// Config configures a Client.
type Config struct {
	BaseURL       string
	APIKey        string
	Timeout       time.Duration
	MasterDataTTL time.Duration
	SummaryTTL    time.Duration
}

// APIError is a non-2xx response. Message is the API's own error message when
// the body carried the standard error envelope.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("api returned status %d", e.StatusCode)
}

// Report is a downloaded Excel report.
type Report struct {
	Filename string
	Data     []byte
	URL      string
}

// Client calls the API with the configured key. Master data and summaries are
// cached; every successful write clears the cache.
type Client struct {
	baseURL       string
	apiKey        string
	http          *http.Client
	cache         *ttlCache
	masterDataTTL time.Duration
	summaryTTL    time.Duration
}

// New creates a Client from cfg.
func New(cfg Config) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		cache:         newTTLCache(time.Now),
		masterDataTTL: cfg.MasterDataTTL,
		summaryTTL:    cfg.SummaryTTL,
	}
}

// ClearCache drops every cached response.
func (c *Client) ClearCache() {
	c.cache.clear()
}

// MasterData returns the valid product and retailer names.
func (c *Client) MasterData(ctx context.Context) (*model.MasterData, error) {
	if v, ok := c.cache.get(masterDataKey); ok {
		return v.(*model.MasterData), nil
	}
	var md model.MasterData
	if err := c.getJSON(ctx, "/master_data", nil, &md); err != nil {
		return nil, err
	}
	c.cache.set(masterDataKey, &md, c.masterDataTTL)
	return &md, nil
}

// Summary returns the distribution matrix, optionally including future-dated transactions.
func (c *Client) Summary(ctx context.Context, includeFuture bool) (*report.Matrix, error) {
	key := summaryKey + strconv.FormatBool(includeFuture)
	if v, ok := c.cache.get(key); ok {
		return v.(*report.Matrix), nil
	}
	var m report.Matrix
	q := url.Values{"include_future": {strconv.FormatBool(includeFuture)}}
	if err := c.getJSON(ctx, "/summary", q, &m); err != nil {
		return nil, err
	}
	c.cache.set(key, &m, c.summaryTTL)
	return &m, nil
}

// LogTransaction submits a single transaction.
func (c *Client) LogTransaction(ctx context.Context, in model.TransactionInput, userID, source string) (*model.Transaction, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	if userID != "" {
		q.Set("user_id", userID)
	}
	if source != "" {
		q.Set("source", source)
	}

	var out struct {
		Status string             `json:"status"`
		Data   *model.Transaction `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/transactions", q, "application/json", bytes.NewReader(body), &out); err != nil {
		return nil, err
	}
	c.ClearCache()
	return out.Data, nil
}

// BulkUpload sends a CSV file as multipart form field "file".
func (c *Client) BulkUpload(ctx context.Context, filename string, r io.Reader, userID string) (*service.BulkResult, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	q := url.Values{}
	if userID != "" {
		q.Set("user_id", userID)
	}
	var res service.BulkResult
	if err := c.do(ctx, http.MethodPost, "/transactions/bulk_upload", q, w.FormDataContentType(), &buf, &res); err != nil {
		return nil, err
	}
	c.ClearCache()
	return &res, nil
}

// Ask sends a chat question and returns the answer.
func (c *Client) Ask(ctx context.Context, question string) (string, error) {
	body, err := json.Marshal(map[string]string{"question": question})
	if err != nil {
		return "", err
	}
	var out struct {
		Answer string `json:"answer"`
	}
	if err := c.do(ctx, http.MethodPost, "/chat", nil, "application/json", bytes.NewReader(body), &out); err != nil {
		return "", err
	}
	return out.Answer, nil
}

// ExportExcel downloads the current and future workbook.
func (c *Client) ExportExcel(ctx context.Context) (*Report, error) {
	resp, err := c.send(ctx, http.MethodGet, "/export/excel", nil, "", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	rep := &Report{Filename: "pod_report.xlsx", Data: data, URL: resp.Header.Get("X-Report-URL")}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
		rep.Filename = params["filename"]
	}
	return rep, nil
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, q, "", nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, contentType string, body io.Reader, out any) error {
	resp, err := c.send(ctx, method, path, q, contentType, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// send performs the request and returns the response only for 2xx statuses.
func (c *Client) send(ctx context.Context, method, path string, q url.Values, contentType string, body io.Reader) (*http.Response, error) {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()
	return nil, decodeAPIError(resp)
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if json.Unmarshal(raw, &envelope) == nil {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
	}
	return apiErr
}
