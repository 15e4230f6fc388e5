package goinflux

import (
	"context"
	"errors"
	"io"
)

type resultState int

const (
	resultBeforeFirst resultState = iota
	resultOn
	resultAfterLast
)

type seriesState int

const (
	seriesBeforeFirst seriesState = iota
	seriesOn
	seriesAfterLast
)

type batchState int

const (
	batchPending batchState = iota
	batchDelivered
	batchExhausted
)

// StatementInfo describes the statement the stream is positioned on. Err is
// the error the server reported for this statement; such errors are not
// returned as Go errors.
type StatementInfo struct {
	StatementID int
	Err         string
	Messages    []*Message
}

// SeriesInfo describes the series the stream is positioned on. Tags holds
// the GROUP BY tags and is nil when the query was not grouped.
type SeriesInfo struct {
	Name    string
	Tags    map[string]string
	Columns []string
}

// StreamOptions configures how a ResultStream decodes rows.
type StreamOptions struct {
	// Database the query ran against; used as the classification scope.
	Database string
	// Epoch is the precision of integer timestamps. Empty means nanoseconds.
	Epoch Precision
	// Classifier resolves tag and field columns of dynamic rows. Without one
	// such columns are decoded as fields.
	Classifier *Classifier
}

// ResultStream walks a query response statement by statement, series by
// series and batch by batch, decoding rows of type T as it goes. Fragments
// of a series split over several response chunks are delivered as
// consecutive batches of one series. A ResultStream is not safe for
// concurrent use.
type ResultStream[T any] struct {
	frags fragmentReader
	md    RowMetadata[T]
	opts  StreamOptions
	plans map[string]*rowPlan

	// lookahead holds a fragment read past the boundary of the current
	// statement or series. It is consumed by the next cursor that owns it.
	lookahead *fragment
	eof       bool

	resultState resultState
	result      StatementInfo
	seriesState seriesState
	series      SeriesInfo
	batchState  batchState
	batch       []*T

	closed bool
}

// NewResultStream returns a stream over the objects of src. The stream owns
// src and closes it on Close.
func NewResultStream[T any](src ObjectSource, md RowMetadata[T], opts StreamOptions) *ResultStream[T] {
	return &ResultStream[T]{
		frags:       fragmentReader{src: src},
		md:          md,
		opts:        opts,
		plans:       make(map[string]*rowPlan),
		seriesState: seriesAfterLast,
		batchState:  batchExhausted,
	}
}

func (rs *ResultStream[T]) peek(ctx context.Context) (*fragment, error) {
	if rs.lookahead != nil {
		return rs.lookahead, nil
	}
	if rs.eof {
		return nil, nil
	}
	f, err := rs.frags.next(ctx)
	if errors.Is(err, io.EOF) {
		rs.eof = true
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rs.lookahead = f
	return f, nil
}

func (rs *ResultStream[T]) consume() {
	rs.lookahead = nil
}

// absorb records the statement level details of a fragment of the current
// statement once.
func (rs *ResultStream[T]) absorb(f *fragment) {
	if f.absorbed {
		return
	}
	f.absorbed = true
	if f.err != "" && rs.result.Err == "" {
		rs.result.Err = f.err
	}
	rs.result.Messages = append(rs.result.Messages, f.messages...)
}

// NextResult advances to the next statement, skipping whatever is left of
// the current one. It returns false after the last statement.
func (rs *ResultStream[T]) NextResult(ctx context.Context) (bool, error) {
	if rs.closed {
		return false, ErrStreamClosed
	}
	switch rs.resultState {
	case resultAfterLast:
		return false, nil
	case resultOn:
		for {
			f, err := rs.peek(ctx)
			if err != nil {
				return false, err
			}
			if f == nil || f.statementID != rs.result.StatementID {
				break
			}
			rs.consume()
		}
	}

	f, err := rs.peek(ctx)
	if err != nil {
		return false, err
	}
	rs.batch = nil
	rs.batchState = batchExhausted
	if f == nil {
		rs.resultState = resultAfterLast
		rs.seriesState = seriesAfterLast
		rs.result = StatementInfo{}
		return false, nil
	}
	rs.result = StatementInfo{StatementID: f.statementID}
	rs.absorb(f)
	rs.resultState = resultOn
	rs.seriesState = seriesBeforeFirst
	rs.series = SeriesInfo{}
	return true, nil
}

// Result returns the current statement.
func (rs *ResultStream[T]) Result() StatementInfo {
	return rs.result
}

// NextSeries advances to the next series of the current statement. It
// returns false when the statement has no more series, leaving any fragment
// of the next statement buffered for NextResult.
func (rs *ResultStream[T]) NextSeries(ctx context.Context) (bool, error) {
	if rs.closed {
		return false, ErrStreamClosed
	}
	if rs.resultState != resultOn || rs.seriesState == seriesAfterLast {
		return false, nil
	}
	if rs.seriesState == seriesOn {
		for {
			f, err := rs.peek(ctx)
			if err != nil {
				return false, err
			}
			if f == nil || !f.continues(rs.result.StatementID, rs.series.Name, rs.series.Tags) {
				break
			}
			rs.absorb(f)
			rs.consume()
		}
	}
	rs.batch = nil
	for {
		f, err := rs.peek(ctx)
		if err != nil {
			return false, err
		}
		if f == nil || f.statementID != rs.result.StatementID {
			rs.seriesState = seriesAfterLast
			rs.batchState = batchExhausted
			return false, nil
		}
		rs.absorb(f)
		if f.series == nil {
			rs.consume()
			continue
		}
		rs.series = SeriesInfo{
			Name:    f.series.Name,
			Tags:    f.series.Tags,
			Columns: f.series.Columns,
		}
		rs.seriesState = seriesOn
		rs.batchState = batchPending
		return true, nil
	}
}

// Series returns the current series.
func (rs *ResultStream[T]) Series() SeriesInfo {
	return rs.series
}

// NextBatch decodes the next fragment of the current series. It returns
// false when the series continues no further.
func (rs *ResultStream[T]) NextBatch(ctx context.Context) (bool, error) {
	if rs.closed {
		return false, ErrStreamClosed
	}
	if rs.seriesState != seriesOn || rs.batchState == batchExhausted {
		return false, nil
	}
	f, err := rs.peek(ctx)
	if err != nil {
		return false, err
	}
	if f == nil || !f.continues(rs.result.StatementID, rs.series.Name, rs.series.Tags) {
		rs.batch = nil
		rs.batchState = batchExhausted
		return false, nil
	}
	rs.absorb(f)
	rs.consume()
	rows, err := rs.decodeRows(ctx, f.series)
	if err != nil {
		return false, err
	}
	rs.batch = rows
	rs.batchState = batchDelivered
	return true, nil
}

// Batch returns the rows decoded by the last successful NextBatch.
func (rs *ResultStream[T]) Batch() []*T {
	return rs.batch
}

// Close releases the response. It is safe to call more than once.
func (rs *ResultStream[T]) Close() error {
	if rs.closed {
		return nil
	}
	rs.closed = true
	rs.lookahead = nil
	rs.batch = nil
	rs.frags.pending = nil
	return rs.frags.src.Close()
}

// StatementResult is a fully read statement.
type StatementResult[T any] struct {
	StatementID int
	Err         string
	Messages    []*Message
	Series      []*Series[T]
}

// Series is a fully read series.
type Series[T any] struct {
	Name    string
	Tags    map[string]string
	Columns []string
	Rows    []*T
}

// ReadAll reads the remainder of the stream into memory.
func (rs *ResultStream[T]) ReadAll(ctx context.Context) ([]*StatementResult[T], error) {
	var results []*StatementResult[T]
	for {
		ok, err := rs.NextResult(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return results, nil
		}
		sr := &StatementResult[T]{StatementID: rs.result.StatementID}
		for {
			ok, err := rs.NextSeries(ctx)
			if err != nil {
				return nil, err
			}
			if !ok {
				break
			}
			s := &Series[T]{Name: rs.series.Name, Tags: rs.series.Tags, Columns: rs.series.Columns}
			for {
				ok, err := rs.NextBatch(ctx)
				if err != nil {
					return nil, err
				}
				if !ok {
					break
				}
				s.Rows = append(s.Rows, rs.batch...)
			}
			sr.Series = append(sr.Series, s)
		}
		info := rs.Result()
		sr.Err = info.Err
		sr.Messages = info.Messages
		results = append(results, sr)
	}
}
