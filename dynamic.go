package goinflux

import (
	"sort"
	"sync"
	"time"
)

// DynamicPoint is a map-backed row whose tags and fields are only known at
// run time.
type DynamicPoint struct {
	Measurement string
	Tags        map[string]string
	Fields      map[string]any
	Time        time.Time
}

// DynamicSchema is the RowMetadata of DynamicPoint. Tags and fields are
// written sorted by key. It caches one Column per key so escaping happens
// once per distinct key.
type DynamicSchema struct {
	tags   sync.Map
	fields sync.Map
}

// NewDynamicSchema returns metadata for DynamicPoint rows.
func NewDynamicSchema() *DynamicSchema {
	return &DynamicSchema{}
}

func (d *DynamicSchema) column(cache *sync.Map, key string, role ColumnRole) *Column {
	if c, ok := cache.Load(key); ok {
		return c.(*Column)
	}
	c, _ := cache.LoadOrStore(key, newColumn(key, role, nil))
	return c.(*Column)
}

// New allocates an empty point.
func (d *DynamicSchema) New() *DynamicPoint {
	return &DynamicPoint{}
}

// Measurement returns the point measurement.
func (d *DynamicSchema) Measurement(row *DynamicPoint) string { return row.Measurement }

// SetMeasurement sets the point measurement.
func (d *DynamicSchema) SetMeasurement(row *DynamicPoint, name string) { row.Measurement = name }

// HasTimestamp is always true; a zero Time means none.
func (d *DynamicSchema) HasTimestamp() bool { return true }

// Timestamp returns the point time.
func (d *DynamicSchema) Timestamp(row *DynamicPoint) (time.Time, bool) {
	return row.Time, !row.Time.IsZero()
}

// SetTimestamp sets the point time.
func (d *DynamicSchema) SetTimestamp(row *DynamicPoint, t time.Time) { row.Time = t }

// VisitTags visits the non-empty tags sorted by key.
func (d *DynamicSchema) VisitTags(row *DynamicPoint, visit func(col *Column, value any) error) error {
	for _, k := range sortedKeys(row.Tags) {
		v := row.Tags[k]
		if v == "" {
			continue
		}
		if err := visit(d.column(&d.tags, k, RoleTag), v); err != nil {
			return err
		}
	}
	return nil
}

// VisitFields visits the non-nil fields sorted by key.
func (d *DynamicSchema) VisitFields(row *DynamicPoint, visit func(col *Column, value any) error) error {
	for _, k := range sortedKeys(row.Fields) {
		v := row.Fields[k]
		if v == nil {
			continue
		}
		if err := visit(d.column(&d.fields, k, RoleField), v); err != nil {
			return err
		}
	}
	return nil
}

// Column never resolves: whether a key is a tag or a field depends on the
// measurement.
func (d *DynamicSchema) Column(string) (*Column, bool) { return nil, false }

// SetTag stores a tag.
func (d *DynamicSchema) SetTag(row *DynamicPoint, key, value string) error {
	if row.Tags == nil {
		row.Tags = make(map[string]string)
	}
	row.Tags[key] = value
	return nil
}

// SetField stores a field. Numbers become int64 when they have no fraction
// and float64 otherwise.
func (d *DynamicSchema) SetField(row *DynamicPoint, key string, value any) error {
	if row.Fields == nil {
		row.Fields = make(map[string]any)
	}
	row.Fields[key] = dynamicValue(value)
	return nil
}

// IsDynamic is true.
func (d *DynamicSchema) IsDynamic() bool { return true }

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var _ RowMetadata[DynamicPoint] = (*DynamicSchema)(nil)
