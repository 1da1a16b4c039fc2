package model

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleArray = `[
 {"CircuitID":1,"PowerProduction":1187.4,"PowerConsumed":1012.8,"PowerCapacity":1500,
  "PowerMaxConsumed":1340.5,"BatteryDifferential":174.6,"BatteryPercent":63.48,
  "BatteryCapacity":400,"BatteryTimeEmpty":"00:00:00","BatteryTimeFull":"00:04:41","FuseTriggered":false},
 {"CircuitID":7,"PowerProduction":0,"PowerConsumed":0,"PowerCapacity":0,
  "PowerMaxConsumed":120,"BatteryDifferential":0,"BatteryPercent":0,
  "BatteryCapacity":0,"BatteryTimeEmpty":"00:00:00","FuseTriggered":true}
]`

func recordJSON(id string) string {
	return `{"CircuitID":` + id + `,"PowerCapacity":1,"PowerProduction":2,"PowerConsumed":3,` +
		`"PowerMaxConsumed":4,"BatteryDifferential":5,"BatteryPercent":6,"BatteryCapacity":7,` +
		`"BatteryTimeEmpty":"00:01:00"}`
}

func TestParseDataset_Array(t *testing.T) {
	ds, err := ParseDataset([]byte(sampleArray))
	require.NoError(t, err)
	require.Len(t, ds, 2)

	assert.Equal(t, "0", ds[0].Key)
	assert.Equal(t, CircuitID("1"), ds[0].Record.CircuitID)
	assert.Equal(t, 1500.0, ds[0].Record.PowerCapacity)
	assert.Equal(t, DisplayText("00:04:41"), ds[0].Record.BatteryTimeFull)
	assert.Equal(t, CircuitID("7"), ds[1].Record.CircuitID)
	assert.True(t, ds[1].Record.FuseTriggered)
	assert.Equal(t, 1, ds.FuseCount())
}

func TestParseDataset_ObjectKeepsKeyOrder(t *testing.T) {
	body := `{"zeta":` + recordJSON(`"c"`) + `,"alpha":` + recordJSON(`"a"`) + `,"mid":` + recordJSON(`"b"`) + `}`
	ds, err := ParseDataset([]byte(body))
	require.NoError(t, err)

	var keys []string
	for _, e := range ds {
		keys = append(keys, e.Key)
	}
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, keys)
	assert.Equal(t, CircuitID("b"), ds[2].Record.CircuitID)
}

func TestParseDataset_EmptyArray(t *testing.T) {
	ds, err := ParseDataset([]byte(`[]`))
	require.NoError(t, err)
	assert.NotNil(t, ds)
	assert.Empty(t, ds)
}

func TestParseDataset_Malformed(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"empty body", ``},
		{"html error page", `<html>502</html>`},
		{"scalar", `42`},
		{"truncated", `[` + recordJSON("1")},
		{"trailing data", `[]{}`},
		{"record is string", `["nope"]`},
		{"record is null", `[null]`},
		{"missing field", `[{"CircuitID":1}]`},
		{"numeric field is string", `[` + replaceField(recordJSON("1"), `"PowerCapacity":1`, `"PowerCapacity":"1"`) + `]`},
		{"numeric field is null", `[` + replaceField(recordJSON("1"), `"BatteryPercent":6`, `"BatteryPercent":null`) + `]`},
		{"wrong case field", `[` + replaceField(recordJSON("1"), `"PowerCapacity"`, `"powercapacity"`) + `]`},
		{"circuit id is object", `[` + replaceField(recordJSON("1"), `"CircuitID":1`, `"CircuitID":{}`) + `]`},
		{"fuse not bool", `[` + replaceField(recordJSON("1"), `"BatteryTimeEmpty"`, `"FuseTriggered":"yes","BatteryTimeEmpty"`) + `]`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := ParseDataset([]byte(c.body))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedPayload), "want ErrMalformedPayload, got %v", err)
		})
	}
}

func TestParseDataset_MissingFieldIsDistinguishable(t *testing.T) {
	_, err := ParseDataset([]byte(`[{"CircuitID":1}]`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingField)
	assert.Contains(t, err.Error(), "PowerCapacity")
}

func TestCircuitID_KeepsLiteralText(t *testing.T) {
	var r struct {
		A CircuitID `json:"a"`
		B CircuitID `json:"b"`
		C CircuitID `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":12,"b":"north-grid","c":1.50}`), &r))
	assert.Equal(t, CircuitID("12"), r.A)
	assert.Equal(t, CircuitID("north-grid"), r.B)
	assert.Equal(t, CircuitID("1.50"), r.C)
}

func TestDatasetMarshalJSON_NumericIDsStayNumbers(t *testing.T) {
	ds := NewDataset(CircuitRecord{CircuitID: "3"}, CircuitRecord{CircuitID: "main"})
	b, err := json.Marshal(ds)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"CircuitID":3`)
	assert.Contains(t, string(b), `"CircuitID":"main"`)
}

func TestDatasetEqual(t *testing.T) {
	a, err := ParseDataset([]byte(sampleArray))
	require.NoError(t, err)
	b, err := ParseDataset([]byte(sampleArray))
	require.NoError(t, err)

	assert.True(t, a.Equal(b), "independent parses of the same body must compare equal")

	c := b.Clone()
	c[1].Record.BatteryPercent = 0.5
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(a[:1]))
	assert.True(t, Dataset{}.Equal(nil))

	swapped := Dataset{a[1], a[0]}
	assert.False(t, a.Equal(swapped), "order is part of the value")
}

func TestFallbackDataset_FreshAndValid(t *testing.T) {
	a := FallbackDataset()
	b := FallbackDataset()
	require.NotEmpty(t, a)
	assert.True(t, a.Equal(b))

	a[0].Record.PowerCapacity = -1
	assert.NotEqual(t, a[0].Record.PowerCapacity, b[0].Record.PowerCapacity)

	// The fallback must survive its own wire format.
	body, err := json.Marshal(FallbackDataset())
	require.NoError(t, err)
	round, err := ParseDataset(body)
	require.NoError(t, err)
	assert.True(t, round.Equal(FallbackDataset()))
}

func TestColumnLabels(t *testing.T) {
	cols := Columns()
	require.Len(t, cols, 10)
	assert.Equal(t, "Reset Circuit", cols[0].Label())
	assert.Equal(t, "Time Remaining", cols[9].Label())
	assert.Equal(t, "?", Column(42).Label())
	assert.Equal(t, "desc", Descending.String())
}

func replaceField(s, old, repl string) string {
	for i := 0; i+len(old) <= len(s); i++ {
		if s[i:i+len(old)] == old {
			return s[:i] + repl + s[i+len(old):]
		}
	}
	return s
}
