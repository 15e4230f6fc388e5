package goinflux

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
)

// WriteRequest is one line protocol write.
type WriteRequest struct {
	Database        string
	RetentionPolicy string
	Precision       Precision
	Consistency     string
	Body            []byte
}

// QueryRequest is one InfluxQL query, possibly with several statements.
type QueryRequest struct {
	Command         string
	Database        string
	RetentionPolicy string
	Epoch           Precision
	Chunked         bool
	ChunkSize       int
	Params          map[string]interface{}
}

// Transport carries writes and queries to the server. Query returns the raw
// response body, which the caller must close.
type Transport interface {
	Write(ctx context.Context, req *WriteRequest) error
	Query(ctx context.Context, req *QueryRequest) (io.ReadCloser, error)
}

// HTTPTransport implements Transport over the InfluxDB 1.x HTTP API.
type HTTPTransport struct {
	cfg    *Config
	base   *url.URL
	client *http.Client
}

// NewHTTPTransport returns a transport for cfg.URL.
func NewHTTPTransport(cfg *Config) (*HTTPTransport, error) {
	if err := cfg.fillMissingConfigParameters(); err != nil {
		return nil, err
	}
	base, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, errInvalidConfig(err)
	}
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &HTTPTransport{
		cfg:  cfg,
		base: base,
		client: &http.Client{
			// no overall timeout: chunked query bodies are read for as long
			// as the caller keeps the stream open
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				DialContext:           dialer.DialContext,
				MaxIdleConns:          10,
				IdleConnTimeout:       30 * time.Minute,
				ResponseHeaderTimeout: cfg.Timeout,
				DisableCompression:    true,
			},
		},
	}, nil
}

func (t *HTTPTransport) endpoint(p string, params url.Values) string {
	u := *t.base
	u.Path = strings.TrimSuffix(u.Path, "/") + p
	if params != nil {
		u.RawQuery = params.Encode()
	}
	return u.String()
}

func (t *HTTPTransport) newRequest(ctx context.Context, requestID, method, target string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", t.cfg.UserAgent)
	req.Header.Set("Request-Id", requestID)
	if t.cfg.Username != "" {
		req.SetBasicAuth(t.cfg.Username, t.cfg.Password)
	}
	return req, nil
}

// Write posts line protocol to /write. The body is gzip compressed when the
// config enables it.
func (t *HTTPTransport) Write(ctx context.Context, wr *WriteRequest) error {
	requestID := uuid.New().String()
	ctx = context.WithValue(ctx, RequestIDKey, requestID)
	ctx = context.WithValue(ctx, DatabaseKey, wr.Database)
	ctx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	defer cancel()

	params := url.Values{}
	params.Set("db", wr.Database)
	if wr.RetentionPolicy != "" {
		params.Set("rp", wr.RetentionPolicy)
	}
	if wr.Precision != "" {
		params.Set("precision", string(wr.Precision))
	}
	if wr.Consistency != "" {
		params.Set("consistency", wr.Consistency)
	}

	body := wr.Body
	if t.cfg.Gzip {
		var err error
		if body, err = gzipBytes(wr.Body); err != nil {
			return err
		}
	}
	req, err := t.newRequest(ctx, requestID, http.MethodPost, t.endpoint("/write", params), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if t.cfg.Gzip {
		req.Header.Set("Content-Encoding", "gzip")
	}

	logger.WithContext(ctx).Debugf("POST /write db=%q, %d bytes", wr.Database, len(wr.Body))
	resp, err := t.client.Do(req)
	if err != nil {
		logger.WithContext(ctx).Errorf("write failed: %v", err)
		return fmt.Errorf("write request %v: %w", requestID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return statusError(resp, requestID, wr.Database)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Query posts a query to /query and returns the response body. A gzip
// encoded body is decompressed transparently.
func (t *HTTPTransport) Query(ctx context.Context, qr *QueryRequest) (io.ReadCloser, error) {
	requestID := uuid.New().String()
	ctx = context.WithValue(ctx, RequestIDKey, requestID)
	ctx = context.WithValue(ctx, DatabaseKey, qr.Database)

	form := url.Values{}
	form.Set("q", qr.Command)
	if qr.Database != "" {
		form.Set("db", qr.Database)
	}
	if qr.RetentionPolicy != "" {
		form.Set("rp", qr.RetentionPolicy)
	}
	if qr.Epoch != "" {
		form.Set("epoch", string(qr.Epoch))
	}
	if qr.Chunked {
		form.Set("chunked", "true")
		if qr.ChunkSize > 0 {
			form.Set("chunk_size", strconv.Itoa(qr.ChunkSize))
		}
	}
	if len(qr.Params) > 0 {
		params, err := json.Marshal(qr.Params)
		if err != nil {
			return nil, err
		}
		form.Set("params", string(params))
	}

	req, err := t.newRequest(ctx, requestID, http.MethodPost, t.endpoint("/query", nil), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if t.cfg.Gzip {
		req.Header.Set("Accept-Encoding", "gzip")
	}

	logger.WithContext(ctx).Debugf("POST /query db=%q chunked=%v", qr.Database, qr.Chunked)
	resp, err := t.client.Do(req)
	if err != nil {
		logger.WithContext(ctx).Errorf("query failed: %v", err)
		return nil, fmt.Errorf("query request %v: %w", requestID, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, statusError(resp, requestID, qr.Database)
	}
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			resp.Body.Close()
			return nil, errMalformedResponse(err)
		}
		return &gzipReadCloser{Reader: gz, body: resp.Body}, nil
	}
	return resp.Body, nil
}

// CloseIdleConnections closes idle keep-alive connections.
func (t *HTTPTransport) CloseIdleConnections() {
	t.client.CloseIdleConnections()
}

type gzipReadCloser struct {
	*gzip.Reader
	body io.ReadCloser
}

func (g *gzipReadCloser) Close() error {
	gzErr := g.Reader.Close()
	if err := g.body.Close(); err != nil {
		return err
	}
	return gzErr
}

func gzipBytes(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

const maxErrorBodySize = 64 << 10

// statusError turns a non-success response into an InfluxError, using the
// "error" member of a JSON body when there is one.
func statusError(resp *http.Response, requestID, database string) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	reason := strings.TrimSpace(string(data))
	var body struct {
		Err string `json:"error"`
	}
	if json.Unmarshal(data, &body) == nil && body.Err != "" {
		reason = body.Err
	}
	if reason == "" {
		reason = http.StatusText(resp.StatusCode)
	}
	return &InfluxError{
		Number:      ErrCodeHTTPStatus,
		Message:     errMsgHTTPStatus,
		MessageArgs: []interface{}{resp.StatusCode, reason},
		Database:    database,
		RequestID:   requestID,
	}
}
