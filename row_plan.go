package goinflux

import (
	"context"
	"strings"
)

type binding struct {
	index int
	role  ColumnRole
	key   string
}

// rowPlan maps the columns of one series schema to row setters.
type rowPlan struct {
	timeIndex int
	bindings  []binding
}

func planKey(name string, columns []string) string {
	var b strings.Builder
	b.WriteString(name)
	for _, c := range columns {
		b.WriteByte(0)
		b.WriteString(c)
	}
	return b.String()
}

func (rs *ResultStream[T]) planFor(ctx context.Context, s *SeriesResponse) (*rowPlan, error) {
	key := planKey(s.Name, s.Columns)
	if p, ok := rs.plans[key]; ok {
		return p, nil
	}
	p := &rowPlan{timeIndex: -1}
	var ambiguous []int
	for i, c := range s.Columns {
		if c == TimeColumn {
			p.timeIndex = i
			continue
		}
		if col, ok := rs.md.Column(c); ok {
			p.bindings = append(p.bindings, binding{index: i, role: col.role, key: c})
			continue
		}
		// columns a static schema does not declare are not decoded
		if rs.md.IsDynamic() {
			ambiguous = append(ambiguous, i)
		}
	}
	if len(ambiguous) > 0 {
		if err := rs.classifyColumns(ctx, s, p, ambiguous); err != nil {
			return nil, err
		}
	}
	rs.plans[key] = p
	return p, nil
}

func (rs *ResultStream[T]) classifyColumns(ctx context.Context, s *SeriesResponse, p *rowPlan, ambiguous []int) error {
	if rs.opts.Classifier == nil {
		for _, i := range ambiguous {
			p.bindings = append(p.bindings, binding{index: i, role: RoleField, key: s.Columns[i]})
		}
		return nil
	}
	names := make([]string, len(ambiguous))
	for n, i := range ambiguous {
		names[n] = s.Columns[i]
	}
	classes, err := rs.opts.Classifier.Classify(ctx, rs.opts.Database, s.Name, names)
	if err != nil {
		return err
	}
	for _, n := range classes.Tags {
		i := ambiguous[n]
		p.bindings = append(p.bindings, binding{index: i, role: RoleTag, key: s.Columns[i]})
	}
	for _, n := range classes.Fields {
		i := ambiguous[n]
		p.bindings = append(p.bindings, binding{index: i, role: RoleField, key: s.Columns[i]})
	}
	return nil
}

func (rs *ResultStream[T]) decodeRows(ctx context.Context, s *SeriesResponse) ([]*T, error) {
	p, err := rs.planFor(ctx, s)
	if err != nil {
		return nil, err
	}
	rows := make([]*T, 0, len(s.Values))
	for n, values := range s.Values {
		if len(values) != len(s.Columns) {
			return nil, errUnexpectedShape("row %d of series %q has %d values for %d columns",
				n, s.Name, len(values), len(s.Columns))
		}
		row, err := rs.decodeRow(s, p, values)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (rs *ResultStream[T]) decodeRow(s *SeriesResponse, p *rowPlan, values []interface{}) (*T, error) {
	row := rs.md.New()
	rs.md.SetMeasurement(row, s.Name)
	for _, k := range sortedKeys(s.Tags) {
		if err := rs.md.SetTag(row, k, s.Tags[k]); err != nil {
			return nil, err
		}
	}
	if p.timeIndex >= 0 && values[p.timeIndex] != nil {
		t, err := toTimestamp(values[p.timeIndex], rs.epoch())
		if err != nil {
			return nil, errUnexpectedShape("time of series %q: %v", s.Name, err)
		}
		rs.md.SetTimestamp(row, t)
	}
	for _, b := range p.bindings {
		v := values[b.index]
		if v == nil {
			continue
		}
		var err error
		if b.role == RoleTag {
			var tag string
			if tag, err = toString(v); err != nil {
				return nil, errUnexpectedShape("tag %q of series %q: %v", b.key, s.Name, err)
			}
			err = rs.md.SetTag(row, b.key, tag)
		} else {
			err = rs.md.SetField(row, b.key, v)
		}
		if err != nil {
			return nil, err
		}
	}
	return row, nil
}

func (rs *ResultStream[T]) epoch() Precision {
	if rs.opts.Epoch == "" {
		return Nanosecond
	}
	return rs.opts.Epoch
}
