package goinflux

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"
)

// ColumnRole tells how a column is carried on the wire.
type ColumnRole int

const (
	// RoleTag is an indexed string column.
	RoleTag ColumnRole = iota + 1
	// RoleField is a value column.
	RoleField
	// RoleTimestamp is the point timestamp, the reserved "time" column.
	RoleTimestamp
	// RoleMeasurement carries a per-row measurement name.
	RoleMeasurement
)

func (r ColumnRole) String() string {
	switch r {
	case RoleTag:
		return "tag"
	case RoleField:
		return "field"
	case RoleTimestamp:
		return "timestamp"
	case RoleMeasurement:
		return "measurement"
	}
	return "unknown"
}

// TimeColumn is the reserved name of the timestamp column in query results.
const TimeColumn = "time"

// Column describes one tag or field of a row type. The escaped key is
// computed once when the column is created.
type Column struct {
	key        string
	escapedKey string
	role       ColumnRole
	enum       enumCodec
}

func newColumn(key string, role ColumnRole, enum enumCodec) *Column {
	return &Column{
		key:        key,
		escapedKey: EscapeKey(key),
		role:       role,
		enum:       enum,
	}
}

// Key returns the column name as stored in InfluxDB.
func (c *Column) Key() string { return c.key }

// EscapedKey returns the key escaped for line protocol.
func (c *Column) EscapedKey() string { return c.escapedKey }

// Role returns whether the column is a tag or a field.
func (c *Column) Role() ColumnRole { return c.role }

// RowMetadata describes how rows of type T are written and read. Schema[T]
// implements it for statically described structs and DynamicSchema for
// DynamicPoint.
type RowMetadata[T any] interface {
	// New allocates an empty row.
	New() *T
	// Measurement returns the per-row measurement name, or "" when the row has none.
	Measurement(row *T) string
	// SetMeasurement stores the name of the series a row was read from.
	SetMeasurement(row *T, name string)
	// HasTimestamp reports whether rows carry a timestamp.
	HasTimestamp() bool
	// Timestamp returns the row timestamp and whether it is set.
	Timestamp(row *T) (time.Time, bool)
	// SetTimestamp stores a decoded timestamp.
	SetTimestamp(row *T, t time.Time)
	// VisitTags calls visit for every non-null tag in wire order.
	VisitTags(row *T, visit func(col *Column, value any) error) error
	// VisitFields calls visit for every non-null field in wire order.
	VisitFields(row *T, visit func(col *Column, value any) error) error
	// Column looks a tag or field up by key. Dynamic metadata never resolves
	// columns; their role comes from the classifier.
	Column(key string) (*Column, bool)
	// SetTag stores a decoded tag value.
	SetTag(row *T, key, value string) error
	// SetField stores a decoded field value.
	SetField(row *T, key string, value any) error
	// IsDynamic reports whether columns are only known per row.
	IsDynamic() bool
}

// Integer is the set of integer types accepted by IntField.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64
}

// Float is the set of floating point types accepted by FloatField.
type Float interface {
	~float32 | ~float64
}

// ColumnSpec binds one column of T to its accessors. Build it with the column
// constructors (StringTag, IntField, Timestamp, ...) and pass it to NewSchema.
type ColumnSpec[T any] struct {
	col *Column
	get func(row *T) (any, bool)
	set func(row *T, v any) error

	getTime func(row *T) (time.Time, bool)
	setTime func(row *T, t time.Time)

	getName func(row *T) string
	setName func(row *T, name string)
}

func valueSpec[T, V any](key string, role ColumnRole, enum enumCodec, ptr func(*T) *V,
	present func(V) bool, out func(V) any, in func(any) (V, error)) ColumnSpec[T] {
	spec := ColumnSpec[T]{col: newColumn(key, role, enum)}
	if ptr == nil {
		return spec
	}
	spec.get = func(row *T) (any, bool) {
		v := *ptr(row)
		if present != nil && !present(v) {
			return nil, false
		}
		return out(v), true
	}
	spec.set = func(row *T, raw any) error {
		v, err := in(raw)
		if err != nil {
			return err
		}
		*ptr(row) = v
		return nil
	}
	return spec
}

func nullableSpec[T, V any](key string, role ColumnRole, enum enumCodec, ptr func(*T) **V,
	out func(V) any, in func(any) (V, error)) ColumnSpec[T] {
	spec := ColumnSpec[T]{col: newColumn(key, role, enum)}
	if ptr == nil {
		return spec
	}
	spec.get = func(row *T) (any, bool) {
		p := *ptr(row)
		if p == nil {
			return nil, false
		}
		return out(*p), true
	}
	spec.set = func(row *T, raw any) error {
		v, err := in(raw)
		if err != nil {
			return err
		}
		*ptr(row) = &v
		return nil
	}
	return spec
}

func identity[V any](v V) any { return v }

func nonEmpty(s string) bool { return s != "" }

func nonZeroTime(t time.Time) bool { return !t.IsZero() }

func enumIn[E comparable](table *EnumTable[E]) func(any) (E, error) {
	return func(raw any) (E, error) {
		var zero E
		name, err := toString(raw)
		if err != nil {
			return zero, err
		}
		v, ok := table.Value(name)
		if !ok {
			return zero, errUnexpectedShape("no enum value is registered for %q", name)
		}
		return v, nil
	}
}

func intIn[I Integer](raw any) (I, error) {
	v, err := toInt64(raw)
	if err != nil {
		return 0, err
	}
	if int64(I(v)) != v {
		return 0, fmt.Errorf("integer %d overflows %T", v, I(0))
	}
	return I(v), nil
}

func floatIn[F Float](raw any) (F, error) {
	v, err := toFloat64(raw)
	return F(v), err
}

func enumTable[E comparable](table *EnumTable[E]) enumCodec {
	if table == nil {
		return nil
	}
	return table
}

// StringTag declares a string tag. Empty strings are not written.
func StringTag[T any](key string, ptr func(*T) *string) ColumnSpec[T] {
	return valueSpec(key, RoleTag, nil, ptr, nonEmpty, identity[string], toString)
}

// NullableStringTag declares a string tag that is absent when nil.
func NullableStringTag[T any](key string, ptr func(*T) **string) ColumnSpec[T] {
	return nullableSpec(key, RoleTag, nil, ptr, identity[string], toString)
}

// EnumTag declares a tag holding an enum written through table.
func EnumTag[T any, E comparable](key string, table *EnumTable[E], ptr func(*T) *E) ColumnSpec[T] {
	return valueSpec(key, RoleTag, enumTable(table), ptr, nil, identity[E], enumIn(table))
}

// NullableEnumTag declares an enum tag that is absent when nil.
func NullableEnumTag[T any, E comparable](key string, table *EnumTable[E], ptr func(*T) **E) ColumnSpec[T] {
	return nullableSpec(key, RoleTag, enumTable(table), ptr, identity[E], enumIn(table))
}

// StringField declares a string field. The empty string is written as "".
func StringField[T any](key string, ptr func(*T) *string) ColumnSpec[T] {
	return valueSpec(key, RoleField, nil, ptr, nil, identity[string], toString)
}

// NullableStringField declares a string field that is skipped when nil.
func NullableStringField[T any](key string, ptr func(*T) **string) ColumnSpec[T] {
	return nullableSpec(key, RoleField, nil, ptr, identity[string], toString)
}

// IntField declares an integer field.
func IntField[T any, I Integer](key string, ptr func(*T) *I) ColumnSpec[T] {
	return valueSpec(key, RoleField, nil, ptr, nil, func(v I) any { return int64(v) }, intIn[I])
}

// NullableIntField declares an integer field that is skipped when nil.
func NullableIntField[T any, I Integer](key string, ptr func(*T) **I) ColumnSpec[T] {
	return nullableSpec(key, RoleField, nil, ptr, func(v I) any { return int64(v) }, intIn[I])
}

// FloatField declares a floating point field.
func FloatField[T any, F Float](key string, ptr func(*T) *F) ColumnSpec[T] {
	return valueSpec(key, RoleField, nil, ptr, nil, func(v F) any { return float64(v) }, floatIn[F])
}

// NullableFloatField declares a floating point field that is skipped when nil.
func NullableFloatField[T any, F Float](key string, ptr func(*T) **F) ColumnSpec[T] {
	return nullableSpec(key, RoleField, nil, ptr, func(v F) any { return float64(v) }, floatIn[F])
}

// BoolField declares a boolean field.
func BoolField[T any](key string, ptr func(*T) *bool) ColumnSpec[T] {
	return valueSpec(key, RoleField, nil, ptr, nil, identity[bool], toBool)
}

// NullableBoolField declares a boolean field that is skipped when nil.
func NullableBoolField[T any](key string, ptr func(*T) **bool) ColumnSpec[T] {
	return nullableSpec(key, RoleField, nil, ptr, identity[bool], toBool)
}

// EnumField declares a field holding an enum written as a quoted string.
func EnumField[T any, E comparable](key string, table *EnumTable[E], ptr func(*T) *E) ColumnSpec[T] {
	return valueSpec(key, RoleField, enumTable(table), ptr, nil, identity[E], enumIn(table))
}

// NullableEnumField declares an enum field that is skipped when nil.
func NullableEnumField[T any, E comparable](key string, table *EnumTable[E], ptr func(*T) **E) ColumnSpec[T] {
	return nullableSpec(key, RoleField, enumTable(table), ptr, identity[E], enumIn(table))
}

// TimeField declares a field holding an instant, written as a quoted
// RFC3339 string. The zero time is skipped.
func TimeField[T any](key string, ptr func(*T) *time.Time) ColumnSpec[T] {
	return valueSpec(key, RoleField, nil, ptr, nonZeroTime, identity[time.Time], toTimeString)
}

// Timestamp declares the point timestamp. A zero time is not written and the
// server assigns its own.
func Timestamp[T any](ptr func(*T) *time.Time) ColumnSpec[T] {
	spec := ColumnSpec[T]{col: newColumn(TimeColumn, RoleTimestamp, nil)}
	if ptr == nil {
		return spec
	}
	spec.getTime = func(row *T) (time.Time, bool) {
		t := *ptr(row)
		return t, !t.IsZero()
	}
	spec.setTime = func(row *T, t time.Time) { *ptr(row) = t }
	return spec
}

// MeasurementName declares a per-row measurement name. Rows with an empty
// name use the measurement given to the schema or the encoder.
func MeasurementName[T any](ptr func(*T) *string) ColumnSpec[T] {
	spec := ColumnSpec[T]{col: newColumn("", RoleMeasurement, nil)}
	if ptr == nil {
		return spec
	}
	spec.getName = func(row *T) string { return *ptr(row) }
	spec.setName = func(row *T, name string) { *ptr(row) = name }
	return spec
}

// Schema is the registration-time description of row type T.
type Schema[T any] struct {
	measurement string
	name        *ColumnSpec[T]
	timestamp   *ColumnSpec[T]
	tags        []*ColumnSpec[T]
	fields      []*ColumnSpec[T]
	byKey       map[string]*ColumnSpec[T]
}

// NewSchema validates the column specs and builds the schema of T. Tags are
// written sorted by key and fields in the order given.
func NewSchema[T any](measurement string, columns ...ColumnSpec[T]) (*Schema[T], error) {
	s := &Schema[T]{
		measurement: measurement,
		byKey:       make(map[string]*ColumnSpec[T], len(columns)),
	}
	for i := range columns {
		spec := &columns[i]
		if spec.col == nil {
			return nil, errInvalidSchema("column %d is not initialized", i)
		}
		switch spec.col.role {
		case RoleMeasurement:
			if spec.getName == nil {
				return nil, errInvalidSchema("measurement column has no accessor")
			}
			if s.name != nil {
				return nil, errInvalidSchema("more than one measurement column")
			}
			s.name = spec
			continue
		case RoleTimestamp:
			if spec.getTime == nil {
				return nil, errInvalidSchema("timestamp column has no accessor")
			}
			if s.timestamp != nil {
				return nil, errInvalidSchema("more than one timestamp column")
			}
			s.timestamp = spec
			continue
		}
		key := spec.col.key
		switch {
		case key == "":
			return nil, errInvalidSchema("column %d has an empty key", i)
		case key == TimeColumn:
			return nil, errInvalidSchema("%q is reserved for the timestamp", key)
		case spec.get == nil:
			return nil, errInvalidSchema("column %q has no accessor", key)
		}
		if _, ok := s.byKey[key]; ok {
			return nil, errInvalidSchema("column %q is declared twice", key)
		}
		s.byKey[key] = spec
		if spec.col.role == RoleTag {
			s.tags = append(s.tags, spec)
		} else {
			s.fields = append(s.fields, spec)
		}
	}
	if len(s.fields) == 0 {
		return nil, errInvalidSchema("schema of measurement %q declares no fields", measurement)
	}
	sort.SliceStable(s.tags, func(i, j int) bool {
		return s.tags[i].col.key < s.tags[j].col.key
	})
	return s, nil
}

// MustSchema is like NewSchema but panics on an invalid schema.
func MustSchema[T any](measurement string, columns ...ColumnSpec[T]) *Schema[T] {
	s, err := NewSchema(measurement, columns...)
	if err != nil {
		panic(err)
	}
	return s
}

// New allocates an empty row.
func (s *Schema[T]) New() *T { return new(T) }

// Measurement returns the per-row name, falling back to the schema name.
func (s *Schema[T]) Measurement(row *T) string {
	if s.name != nil {
		if name := s.name.getName(row); name != "" {
			return name
		}
	}
	return s.measurement
}

// SetMeasurement stores name when the schema declares a measurement column.
func (s *Schema[T]) SetMeasurement(row *T, name string) {
	if s.name != nil {
		s.name.setName(row, name)
	}
}

// HasTimestamp reports whether a timestamp column is declared.
func (s *Schema[T]) HasTimestamp() bool { return s.timestamp != nil }

// Timestamp returns the row timestamp.
func (s *Schema[T]) Timestamp(row *T) (time.Time, bool) {
	if s.timestamp == nil {
		return time.Time{}, false
	}
	return s.timestamp.getTime(row)
}

// SetTimestamp stores t in the timestamp column, if any.
func (s *Schema[T]) SetTimestamp(row *T, t time.Time) {
	if s.timestamp != nil {
		s.timestamp.setTime(row, t)
	}
}

// VisitTags calls visit for every non-null tag, sorted by key.
func (s *Schema[T]) VisitTags(row *T, visit func(col *Column, value any) error) error {
	return visitSpecs(s.tags, row, visit)
}

// VisitFields calls visit for every non-null field in declared order.
func (s *Schema[T]) VisitFields(row *T, visit func(col *Column, value any) error) error {
	return visitSpecs(s.fields, row, visit)
}

func visitSpecs[T any](specs []*ColumnSpec[T], row *T, visit func(col *Column, value any) error) error {
	for _, spec := range specs {
		v, ok := spec.get(row)
		if !ok {
			continue
		}
		if err := visit(spec.col, v); err != nil {
			return err
		}
	}
	return nil
}

// Column looks up a declared tag or field.
func (s *Schema[T]) Column(key string) (*Column, bool) {
	spec, ok := s.byKey[key]
	if !ok {
		return nil, false
	}
	return spec.col, true
}

// SetTag stores a tag value. Undeclared keys are ignored.
func (s *Schema[T]) SetTag(row *T, key, value string) error {
	return s.set(row, key, value)
}

// SetField stores a field value converted to the declared type. Undeclared
// keys are ignored.
func (s *Schema[T]) SetField(row *T, key string, value any) error {
	return s.set(row, key, value)
}

func (s *Schema[T]) set(row *T, key string, value any) error {
	spec, ok := s.byKey[key]
	if !ok || spec.set == nil {
		return nil
	}
	if err := spec.set(row, value); err != nil {
		if ie, ok := err.(*InfluxError); ok {
			ie.Measurement = s.measurement
			return ie
		}
		return errUnexpectedShape("column %q: %v", key, err)
	}
	return nil
}

// IsDynamic is false for static schemas.
func (s *Schema[T]) IsDynamic() bool { return false }

var schemaRegistry sync.Map

func typeKey[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// RegisterSchema makes s the schema of T for LookupSchema. A later
// registration for the same type replaces the earlier one.
func RegisterSchema[T any](s *Schema[T]) {
	schemaRegistry.Store(typeKey[T](), s)
}

// LookupSchema returns the schema registered for T.
func LookupSchema[T any]() (*Schema[T], bool) {
	v, ok := schemaRegistry.Load(typeKey[T]())
	if !ok {
		return nil, false
	}
	return v.(*Schema[T]), true
}
