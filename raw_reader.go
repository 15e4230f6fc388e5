package goinflux

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/goccy/go-json"
)

// Response is one top-level JSON object of a query response. A chunked
// response is a sequence of them.
type Response struct {
	Results []*StatementResponse `json:"results,omitempty"`
	Err     string               `json:"error,omitempty"`
}

// StatementResponse is the piece of one statement's result carried by a
// Response.
type StatementResponse struct {
	StatementID int               `json:"statement_id"`
	Series      []*SeriesResponse `json:"series,omitempty"`
	Messages    []*Message        `json:"messages,omitempty"`
	Partial     bool              `json:"partial,omitempty"`
	Err         string            `json:"error,omitempty"`
}

// SeriesResponse is one series fragment.
type SeriesResponse struct {
	Name    string            `json:"name,omitempty"`
	Tags    map[string]string `json:"tags,omitempty"`
	Columns []string          `json:"columns,omitempty"`
	Values  [][]interface{}   `json:"values,omitempty"`
	Partial bool              `json:"partial,omitempty"`
}

// Message is an informational message attached to a statement result.
type Message struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

// ObjectSource yields the raw response objects of one query. Next returns
// io.EOF after the last object. Close must be safe to call more than once.
type ObjectSource interface {
	Next(ctx context.Context) (*Response, error)
	Close() error
}

type jsonObjectSource struct {
	body      io.ReadCloser
	dec       *json.Decoder
	closeOnce sync.Once
	closeErr  error
}

// NewJSONObjectSource decodes a stream of JSON objects from body. Numbers are
// kept as json.Number. Cancelling the context passed to Next closes body.
func NewJSONObjectSource(body io.ReadCloser) ObjectSource {
	dec := json.NewDecoder(body)
	dec.UseNumber()
	return &jsonObjectSource{body: body, dec: dec}
}

func (s *jsonObjectSource) Next(ctx context.Context) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	stop := context.AfterFunc(ctx, func() { _ = s.Close() })
	defer stop()

	var resp Response
	if err := s.dec.Decode(&resp); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, errMalformedResponse(err)
	}
	if resp.Err != "" {
		return nil, &InfluxError{
			Number:      ErrCodeServerFailure,
			Message:     errMsgServerFailure,
			MessageArgs: []interface{}{resp.Err},
		}
	}
	return &resp, nil
}

func (s *jsonObjectSource) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.body.Close()
	})
	return s.closeErr
}

type sliceObjectSource struct {
	objects []*Response
	pos     int
}

// NewSliceObjectSource serves objects that were already decoded.
func NewSliceObjectSource(objects ...*Response) ObjectSource {
	return &sliceObjectSource{objects: objects}
}

func (s *sliceObjectSource) Next(ctx context.Context) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos >= len(s.objects) {
		return nil, io.EOF
	}
	resp := s.objects[s.pos]
	s.pos++
	if resp.Err != "" {
		return nil, &InfluxError{
			Number:      ErrCodeServerFailure,
			Message:     errMsgServerFailure,
			MessageArgs: []interface{}{resp.Err},
		}
	}
	return resp, nil
}

func (s *sliceObjectSource) Close() error {
	s.objects = nil
	s.pos = 0
	return nil
}
