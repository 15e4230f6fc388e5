package goinflux

import (
	"bytes"
	"context"
)

// Client writes rows to and queries rows from one InfluxDB server. It owns
// the tag/field classification cache shared by all of its result streams.
// A Client is safe for concurrent use.
type Client struct {
	cfg        *Config
	transport  Transport
	classifier *Classifier
	dynamic    *DynamicSchema
}

// NewClient returns a client speaking HTTP to cfg.URL.
func NewClient(cfg *Config) (*Client, error) {
	transport, err := NewHTTPTransport(cfg)
	if err != nil {
		return nil, err
	}
	return NewClientWithTransport(cfg, transport)
}

// NewClientWithTransport returns a client using transport for every request,
// including the tag and field key lookups of the classifier.
func NewClientWithTransport(cfg *Config, transport Transport) (*Client, error) {
	if err := cfg.fillMissingConfigParameters(); err != nil {
		return nil, err
	}
	if cfg.LogLevel != "" {
		if err := logger.SetLogLevel(cfg.LogLevel); err != nil {
			return nil, errInvalidConfig(err)
		}
	}
	return &Client{
		cfg:        cfg,
		transport:  transport,
		classifier: NewClassifier(NewTransportSchemaFetcher(transport), cfg.SchemaCacheTTL),
		dynamic:    NewDynamicSchema(),
	}, nil
}

// Classifier returns the classification cache of the client.
func (c *Client) Classifier() *Classifier {
	return c.classifier
}

// Close releases idle connections.
func (c *Client) Close() error {
	if t, ok := c.transport.(interface{ CloseIdleConnections() }); ok {
		t.CloseIdleConnections()
	}
	return nil
}

// WriteOptions overrides the client defaults of one write.
type WriteOptions struct {
	Database        string
	RetentionPolicy string
	Precision       Precision
	Consistency     string
	// Measurement is used for rows without a measurement of their own.
	Measurement string
}

// QueryOptions overrides the client defaults of one query.
type QueryOptions struct {
	Database        string
	RetentionPolicy string
	Epoch           Precision
	Chunked         bool
	ChunkSize       int
	Params          map[string]interface{}
}

// WriteRows encodes rows and writes them in one request. Nothing is sent if
// any row fails to encode.
func WriteRows[T any](ctx context.Context, c *Client, md RowMetadata[T], rows []*T, opts *WriteOptions) error {
	wr := c.writeRequest(opts)
	measurement := ""
	if opts != nil {
		measurement = opts.Measurement
	}
	var buf bytes.Buffer
	if err := EncodeRows(&buf, md, rows, measurement, wr.Precision); err != nil {
		return err
	}
	if buf.Len() == 0 {
		return nil
	}
	wr.Body = buf.Bytes()
	return c.transport.Write(ctx, wr)
}

// WritePoints writes dynamic points.
func (c *Client) WritePoints(ctx context.Context, points []*DynamicPoint, opts *WriteOptions) error {
	return WriteRows(ctx, c, RowMetadata[DynamicPoint](c.dynamic), points, opts)
}

// QueryRows runs command and returns a stream decoding rows of type T. The
// caller must close the stream.
func QueryRows[T any](ctx context.Context, c *Client, md RowMetadata[T], command string, opts *QueryOptions) (*ResultStream[T], error) {
	qr := c.queryRequest(command, opts)
	body, err := c.transport.Query(ctx, qr)
	if err != nil {
		return nil, err
	}
	return NewResultStream(NewJSONObjectSource(body), md, StreamOptions{
		Database:   qr.Database,
		Epoch:      qr.Epoch,
		Classifier: c.classifier,
	}), nil
}

// QueryAll runs command and reads the whole response.
func QueryAll[T any](ctx context.Context, c *Client, md RowMetadata[T], command string, opts *QueryOptions) ([]*StatementResult[T], error) {
	rs, err := QueryRows(ctx, c, md, command, opts)
	if err != nil {
		return nil, err
	}
	defer rs.Close()
	return rs.ReadAll(ctx)
}

// QueryPoints runs command and streams dynamic points.
func (c *Client) QueryPoints(ctx context.Context, command string, opts *QueryOptions) (*ResultStream[DynamicPoint], error) {
	return QueryRows(ctx, c, RowMetadata[DynamicPoint](c.dynamic), command, opts)
}

func (c *Client) writeRequest(opts *WriteOptions) *WriteRequest {
	wr := &WriteRequest{
		Database:        c.cfg.Database,
		RetentionPolicy: c.cfg.RetentionPolicy,
		Precision:       c.cfg.Precision,
		Consistency:     c.cfg.Consistency,
	}
	if opts == nil {
		return wr
	}
	if opts.Database != "" {
		wr.Database = opts.Database
	}
	if opts.RetentionPolicy != "" {
		wr.RetentionPolicy = opts.RetentionPolicy
	}
	if opts.Precision != "" {
		wr.Precision = opts.Precision
	}
	if opts.Consistency != "" {
		wr.Consistency = opts.Consistency
	}
	return wr
}

func (c *Client) queryRequest(command string, opts *QueryOptions) *QueryRequest {
	qr := &QueryRequest{
		Command:         command,
		Database:        c.cfg.Database,
		RetentionPolicy: c.cfg.RetentionPolicy,
		Epoch:           c.cfg.Precision,
		Chunked:         c.cfg.Chunked,
		ChunkSize:       c.cfg.ChunkSize,
	}
	if opts == nil {
		return qr
	}
	if opts.Database != "" {
		qr.Database = opts.Database
	}
	if opts.RetentionPolicy != "" {
		qr.RetentionPolicy = opts.RetentionPolicy
	}
	if opts.Epoch != "" {
		qr.Epoch = opts.Epoch
	}
	if opts.Chunked {
		qr.Chunked = true
	}
	if opts.ChunkSize > 0 {
		qr.ChunkSize = opts.ChunkSize
	}
	qr.Params = opts.Params
	return qr
}
