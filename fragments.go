package goinflux

import (
	"context"
	"maps"
)

// fragment is the unit the result stream walks over: one series of one
// statement piece, or a statement piece without series.
type fragment struct {
	statementID int
	err         string
	messages    []*Message
	series      *SeriesResponse
	absorbed    bool
}

// continues reports whether f belongs to the series identified by statement,
// name and grouped tags. A nil tag map and an empty one are different
// identities.
func (f *fragment) continues(statementID int, name string, tags map[string]string) bool {
	if f.series == nil || f.statementID != statementID || f.series.Name != name {
		return false
	}
	if (f.series.Tags == nil) != (tags == nil) {
		return false
	}
	return maps.Equal(f.series.Tags, tags)
}

// fragmentReader flattens the objects of an ObjectSource into fragments.
type fragmentReader struct {
	src     ObjectSource
	pending []*fragment
}

func (r *fragmentReader) next(ctx context.Context) (*fragment, error) {
	for len(r.pending) == 0 {
		resp, err := r.src.Next(ctx)
		if err != nil {
			return nil, err
		}
		r.pending = flatten(ctx, resp)
	}
	f := r.pending[0]
	r.pending[0] = nil
	r.pending = r.pending[1:]
	return f, nil
}

func flatten(ctx context.Context, resp *Response) []*fragment {
	var out []*fragment
	for _, st := range resp.Results {
		if st == nil {
			continue
		}
		for _, m := range st.Messages {
			logger.WithContext(ctx).Warnf("statement %d: %s: %s", st.StatementID, m.Level, m.Text)
		}
		emitted := false
		for _, s := range st.Series {
			if s == nil {
				continue
			}
			f := &fragment{statementID: st.StatementID, err: st.Err, series: s}
			if !emitted {
				f.messages = st.Messages
			}
			out = append(out, f)
			emitted = true
		}
		if !emitted {
			out = append(out, &fragment{statementID: st.StatementID, err: st.Err, messages: st.Messages})
		}
	}
	return out
}
