package goinflux

import (
	"context"
	"sync"
	"time"
)

// MeasurementSchema lists the tag and field keys of one measurement.
type MeasurementSchema struct {
	TagKeys   []string
	FieldKeys []string
}

// SchemaFetcher retrieves the tag and field keys of a measurement.
type SchemaFetcher interface {
	FetchSchema(ctx context.Context, database, measurement string) (*MeasurementSchema, error)
}

// SchemaFetcherFunc adapts a function to SchemaFetcher.
type SchemaFetcherFunc func(ctx context.Context, database, measurement string) (*MeasurementSchema, error)

// FetchSchema calls f.
func (f SchemaFetcherFunc) FetchSchema(ctx context.Context, database, measurement string) (*MeasurementSchema, error) {
	return f(ctx, database, measurement)
}

// ColumnClasses partitions the columns of a result series by position.
type ColumnClasses struct {
	// TimeIndex is the position of the time column, or -1.
	TimeIndex int
	Tags      []int
	Fields    []int
}

type classificationKey struct {
	database    string
	measurement string
}

type classificationEntry struct {
	tags       map[string]struct{}
	fields     map[string]struct{}
	capturedAt time.Time
}

func newClassificationEntry(schema *MeasurementSchema, now time.Time) *classificationEntry {
	e := &classificationEntry{
		tags:       make(map[string]struct{}, len(schema.TagKeys)),
		fields:     make(map[string]struct{}, len(schema.FieldKeys)),
		capturedAt: now,
	}
	for _, k := range schema.TagKeys {
		e.tags[k] = struct{}{}
	}
	for _, k := range schema.FieldKeys {
		e.fields[k] = struct{}{}
	}
	return e
}

// classify returns the classes of columns, or the first column the entry
// does not know.
func (e *classificationEntry) classify(columns []string) (*ColumnClasses, string) {
	classes := &ColumnClasses{TimeIndex: -1}
	for i, c := range columns {
		if c == TimeColumn {
			classes.TimeIndex = i
			continue
		}
		// a key that is both a field and a tag is returned as the field
		if _, ok := e.fields[c]; ok {
			classes.Fields = append(classes.Fields, i)
			continue
		}
		if _, ok := e.tags[c]; ok {
			classes.Tags = append(classes.Tags, i)
			continue
		}
		return nil, c
	}
	return classes, ""
}

// Classifier caches, per database and measurement, which column names are
// tags and which are fields. It is safe for concurrent use. The fetch of a
// missing or stale entry runs without holding the lock, so concurrent misses
// may fetch the same measurement more than once. Entries are not keyed by
// server, so one Classifier serves one server; each Client owns its own.
type Classifier struct {
	fetcher SchemaFetcher
	ttl     time.Duration
	now     func() time.Time

	mu      sync.Mutex
	entries map[classificationKey]*classificationEntry
}

// NewClassifier returns a classifier fetching through fetcher. Entries older
// than ttl are refreshed on their next use; a zero ttl keeps them until an
// unknown column shows up.
func NewClassifier(fetcher SchemaFetcher, ttl time.Duration) *Classifier {
	return &Classifier{
		fetcher: fetcher,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[classificationKey]*classificationEntry),
	}
}

// Classify splits columns into the time column, tags and fields. A missing
// or expired entry, or a column the entry does not know, triggers exactly
// one refresh; a column still unknown afterwards is an error.
func (c *Classifier) Classify(ctx context.Context, database, measurement string, columns []string) (*ColumnClasses, error) {
	key := classificationKey{database: database, measurement: measurement}
	if entry := c.lookup(key); entry != nil {
		if classes, unknown := entry.classify(columns); unknown == "" {
			return classes, nil
		}
	}

	logger.WithContext(ctx).Debugf("refreshing tag and field keys of %q in database %q", measurement, database)
	schema, err := c.fetcher.FetchSchema(ctx, database, measurement)
	if err != nil {
		return nil, &InfluxError{
			Number:      ErrCodeSchemaFetchFailed,
			Message:     errMsgSchemaFetchFailed,
			MessageArgs: []interface{}{measurement, database, err},
			Database:    database,
			Measurement: measurement,
		}
	}
	entry := newClassificationEntry(schema, c.now())
	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()

	classes, unknown := entry.classify(columns)
	if unknown != "" {
		return nil, &InfluxError{
			Number:      ErrCodeUnknownColumn,
			Message:     errMsgUnknownColumn,
			MessageArgs: []interface{}{unknown, measurement, database},
			Database:    database,
			Measurement: measurement,
		}
	}
	return classes, nil
}

func (c *Classifier) lookup(key classificationKey) *classificationEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil
	}
	if c.ttl > 0 && c.now().Sub(entry.capturedAt) > c.ttl {
		return nil
	}
	return entry
}

// Invalidate drops the entry of one measurement.
func (c *Classifier) Invalidate(database, measurement string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, classificationKey{database: database, measurement: measurement})
}

// InvalidateAll drops every entry.
func (c *Classifier) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[classificationKey]*classificationEntry)
}
