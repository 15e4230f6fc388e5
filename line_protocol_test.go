package goinflux

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"
)

type cpuState int

const (
	stateIdle cpuState = iota
	stateBusy
	stateUnmapped
)

var cpuStates = MustEnumTable(map[cpuState]string{
	stateIdle: "idle",
	stateBusy: "busy",
})

type cpuRow struct {
	Name    string
	Host    string
	Region  string
	Usage   float64
	Count   *int64
	Idle    *float64
	Running bool
	State   cpuState
	Time    time.Time
}

var cpuSchema = MustSchema("cpu",
	MeasurementName(func(r *cpuRow) *string { return &r.Name }),
	StringTag("region", func(r *cpuRow) *string { return &r.Region }),
	StringTag("host", func(r *cpuRow) *string { return &r.Host }),
	FloatField("usage", func(r *cpuRow) *float64 { return &r.Usage }),
	NullableIntField("count", func(r *cpuRow) **int64 { return &r.Count }),
	NullableFloatField("idle", func(r *cpuRow) **float64 { return &r.Idle }),
	BoolField("running", func(r *cpuRow) *bool { return &r.Running }),
	EnumField("state", cpuStates, func(r *cpuRow) *cpuState { return &r.State }),
	Timestamp(func(r *cpuRow) *time.Time { return &r.Time }),
)

type sparseRow struct {
	Host string
	A    *int64
	B    *string
	C    *bool
}

var sparseSchema = MustSchema("sparse",
	StringTag("host", func(r *sparseRow) *string { return &r.Host }),
	NullableIntField("a", func(r *sparseRow) **int64 { return &r.A }),
	NullableStringField("b", func(r *sparseRow) **string { return &r.B }),
	NullableBoolField("c", func(r *sparseRow) **bool { return &r.C }),
)

func ptr[V any](v V) *V {
	return &v
}

func encodeOne[T any](t *testing.T, md RowMetadata[T], row *T, measurement string, precision Precision) string {
	t.Helper()
	line, err := AppendRow(nil, md, row, measurement, precision)
	assertNilF(t, err, "encoding should succeed")
	return string(line)
}

func TestAppendRowStaticSchema(t *testing.T) {
	row := &cpuRow{
		Host:    "server01",
		Region:  "us-west",
		Usage:   0.64,
		Count:   ptr(int64(3)),
		Running: true,
		State:   stateBusy,
		Time:    time.Unix(1, 500_000_000),
	}
	line := encodeOne(t, RowMetadata[cpuRow](cpuSchema), row, "", Millisecond)
	assertEqualE(t, line, "cpu,host=server01,region=us-west usage=0.64,count=3i,running=true,state=\"busy\" 1500\n")
}

func TestAppendRowPerRowMeasurement(t *testing.T) {
	row := &cpuRow{Name: "cpu_total", Host: "a", Usage: 1}
	line := encodeOne(t, RowMetadata[cpuRow](cpuSchema), row, "ignored", Second)
	assertEqualE(t, line, "cpu_total,host=a usage=1,running=false,state=\"idle\"\n")
}

func TestAppendRowSkipsNullFields(t *testing.T) {
	testcases := []struct {
		name string
		row  *sparseRow
		line string
	}{
		{"first null", &sparseRow{Host: "x", B: ptr("v"), C: ptr(false)}, "sparse,host=x b=\"v\",c=false\n"},
		{"middle null", &sparseRow{Host: "x", A: ptr(int64(-7)), C: ptr(true)}, "sparse,host=x a=-7i,c=true\n"},
		{"last nulls", &sparseRow{Host: "x", A: ptr(int64(1))}, "sparse,host=x a=1i\n"},
		{"empty tag", &sparseRow{B: ptr("")}, "sparse b=\"\"\n"},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			assertEqualE(t, encodeOne(t, RowMetadata[sparseRow](sparseSchema), tc.row, "", Nanosecond), tc.line)
		})
	}
}

func TestAppendRowNoFields(t *testing.T) {
	dst := []byte("previous\n")
	out, err := AppendRow(dst, RowMetadata[sparseRow](sparseSchema), &sparseRow{Host: "x"}, "", Nanosecond)
	assertErrCodeE(t, err, ErrCodeNoFields)
	assertEqualE(t, string(out), "previous\n", "a failed row must not leave bytes behind")
	assertStringContainsE(t, err.Error(), "sparse")
}

func TestAppendRowEscaping(t *testing.T) {
	point := &DynamicPoint{
		Measurement: "disk_usage",
		Tags:        map[string]string{"path name": "/var/a b,c=d"},
		Fields:      map[string]any{"msg": `say "hi" \o/`, "free=bytes": int64(10)},
	}
	line := encodeOne(t, RowMetadata[DynamicPoint](NewDynamicSchema()), point, "", Nanosecond)
	assertEqualE(t, line, `disk_usage,path\ name=/var/a\ b\,c\=d free\=bytes=10i,msg="say \"hi\" \o/"`+"\n")
}

func TestAppendRowMeasurementIsBare(t *testing.T) {
	point := &DynamicPoint{Measurement: "a b,c", Fields: map[string]any{"v": int64(1)}}
	line := encodeOne(t, RowMetadata[DynamicPoint](NewDynamicSchema()), point, "", Nanosecond)
	assertEqualE(t, line, "a b,c v=1i\n")
}

func TestAppendRowTimestampPrecision(t *testing.T) {
	ts := time.Date(1970, 1, 1, 0, 0, 1, 999_999_999, time.UTC)
	testcases := []struct {
		precision Precision
		epoch     string
	}{
		{Nanosecond, "1999999999"},
		{Microsecond, "1999999"},
		{Millisecond, "1999"},
		{Second, "1"},
		{Minute, "0"},
		{Hour, "0"},
	}
	for _, tc := range testcases {
		t.Run(string(tc.precision), func(t *testing.T) {
			line := encodeOne(t, RowMetadata[cpuRow](cpuSchema), &cpuRow{Usage: 2, Time: ts}, "", tc.precision)
			assertTrueE(t, strings.HasSuffix(line, " "+tc.epoch+"\n"), line)
		})
	}
}

func TestAppendRowWithoutTimestamp(t *testing.T) {
	line := encodeOne(t, RowMetadata[cpuRow](cpuSchema), &cpuRow{Usage: 2}, "", Second)
	assertEqualE(t, line, "cpu usage=2,running=false,state=\"idle\"\n")
}

func TestAppendRowFailures(t *testing.T) {
	dynamic := RowMetadata[DynamicPoint](NewDynamicSchema())
	t.Run("before epoch", func(t *testing.T) {
		_, err := AppendRow(nil, RowMetadata[cpuRow](cpuSchema), &cpuRow{Usage: 1, Time: time.Unix(-1, 0)}, "", Second)
		assertErrCodeE(t, err, ErrCodeTimestampBeforeEpoch)
	})
	t.Run("epoch overflow", func(t *testing.T) {
		late := time.Date(2300, 1, 1, 0, 0, 0, 0, time.UTC)
		out, err := AppendRow([]byte("previous\n"), RowMetadata[cpuRow](cpuSchema), &cpuRow{Usage: 1, Time: late}, "", Nanosecond)
		assertErrCodeE(t, err, ErrCodeTimestampOutOfRange)
		assertEqualE(t, string(out), "previous\n")
		line := encodeOne(t, RowMetadata[cpuRow](cpuSchema), &cpuRow{Usage: 1, Time: late}, "", Second)
		assertHasPrefixE(t, line, "cpu usage=1,")
	})
	t.Run("unmapped enum", func(t *testing.T) {
		_, err := AppendRow(nil, RowMetadata[cpuRow](cpuSchema), &cpuRow{Usage: 1, State: stateUnmapped}, "", Second)
		assertErrCodeE(t, err, ErrCodeUnmappedEnum)
	})
	t.Run("empty measurement", func(t *testing.T) {
		_, err := AppendRow(nil, dynamic, &DynamicPoint{Fields: map[string]any{"v": 1.0}}, "", Second)
		assertErrCodeE(t, err, ErrCodeEmptyMeasurement)
	})
	t.Run("unsupported value", func(t *testing.T) {
		_, err := AppendRow(nil, dynamic, &DynamicPoint{Measurement: "m", Fields: map[string]any{"v": struct{}{}}}, "", Second)
		assertErrCodeE(t, err, ErrCodeUnsupportedValue)
	})
	t.Run("nan", func(t *testing.T) {
		_, err := AppendRow(nil, dynamic, &DynamicPoint{Measurement: "m", Fields: map[string]any{"v": math.NaN()}}, "", Second)
		assertErrCodeE(t, err, ErrCodeUnsupportedValue)
	})
	t.Run("nil fields only", func(t *testing.T) {
		_, err := AppendRow(nil, dynamic, &DynamicPoint{Measurement: "m", Fields: map[string]any{"v": nil}}, "", Second)
		assertErrCodeE(t, err, ErrCodeNoFields)
	})
}

func TestAppendRowDynamicValues(t *testing.T) {
	point := &DynamicPoint{
		Measurement: "weather",
		Tags:        map[string]string{"station": "s1", "city": "oslo", "empty": ""},
		Fields: map[string]any{
			"temp":     -3.25,
			"readings": 42,
			"ok":       true,
			"note":     "cold",
			"seen":     time.Date(2024, 2, 3, 4, 5, 6, 700, time.UTC),
			"ratio":    float32(0.5),
		},
		Time: time.Unix(100, 0),
	}
	line := encodeOne(t, RowMetadata[DynamicPoint](NewDynamicSchema()), point, "", Second)
	assertEqualE(t, line,
		`weather,city=oslo,station=s1 note="cold",ok=true,ratio=0.5,readings=42i,seen="2024-02-03T04:05:06.0000007Z",temp=-3.25 100`+"\n")
}

func TestEncodeRowsIsAllOrNothing(t *testing.T) {
	var buf bytes.Buffer
	rows := []*sparseRow{
		{Host: "a", A: ptr(int64(1))},
		{Host: "b"},
	}
	err := EncodeRows(&buf, RowMetadata[sparseRow](sparseSchema), rows, "", Second)
	assertErrCodeE(t, err, ErrCodeNoFields)
	assertEqualE(t, buf.Len(), 0, "nothing may be written when a row fails")

	rows[1].B = ptr("ok")
	err = EncodeRows(&buf, RowMetadata[sparseRow](sparseSchema), rows, "", Second)
	assertNilF(t, err)
	assertEqualE(t, buf.String(), "sparse,host=a a=1i\nsparse,host=b b=\"ok\"\n")
}

func TestEncodeRowsFloatFormatting(t *testing.T) {
	testcases := map[float64]string{
		0.1:      "0.1",
		100:      "100",
		-2.5e-7:  "-0.00000025",
		123456.5: "123456.5",
	}
	for f, expected := range testcases {
		line := encodeOne(t, RowMetadata[DynamicPoint](NewDynamicSchema()),
			&DynamicPoint{Measurement: "m", Fields: map[string]any{"v": f}}, "", Second)
		assertEqualE(t, line, "m v="+expected+"\n")
	}
}
