package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
)

var (
	// ErrMalformedPayload is returned when a poll body cannot be decoded
	// into a Dataset.
	ErrMalformedPayload = errors.New("malformed power payload")
	// ErrMissingField marks a record that lacks a required field.
	ErrMissingField = errors.New("missing field")
)

// Entry is one keyed record. For array payloads the key is the index.
type Entry struct {
	Key    string
	Record CircuitRecord
}

// Dataset is the full set of circuits returned by one poll, in the order
// the server sent them.
type Dataset []Entry

// NewDataset keys records by their position.
func NewDataset(records ...CircuitRecord) Dataset {
	ds := make(Dataset, len(records))
	for i, r := range records {
		ds[i] = Entry{Key: strconv.Itoa(i), Record: r}
	}
	return ds
}

// Records returns the records in dataset order.
func (d Dataset) Records() []CircuitRecord {
	out := make([]CircuitRecord, len(d))
	for i, e := range d {
		out[i] = e.Record
	}
	return out
}

// Equal reports whether d and other hold the same keys and records in the
// same order. NaN fields never compare equal, which errs towards re-rendering.
func (d Dataset) Equal(other Dataset) bool {
	if len(d) != len(other) {
		return false
	}
	for i := range d {
		if d[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns an independent copy.
func (d Dataset) Clone() Dataset {
	if d == nil {
		return nil
	}
	out := make(Dataset, len(d))
	copy(out, d)
	return out
}

// FuseCount returns how many circuits report a tripped fuse.
func (d Dataset) FuseCount() int {
	n := 0
	for _, e := range d {
		if e.Record.FuseTriggered {
			n++
		}
	}
	return n
}

// MarshalJSON writes the dataset as a JSON array of records.
func (d Dataset) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Records())
}

// ParseDataset decodes a poll body. The body is either a JSON array of
// records or a JSON object mapping keys to records; object key order is kept.
// Every record is validated, so a nil error means every field can be
// formatted.
func ParseDataset(body []byte) (Dataset, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	var ds Dataset
	switch tok {
	case json.Delim('['):
		for i := 0; dec.More(); i++ {
			key := strconv.Itoa(i)
			e, err := decodeEntry(dec, key)
			if err != nil {
				return nil, err
			}
			ds = append(ds, e)
		}
		if _, err := dec.Token(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
	case json.Delim('{'):
		for dec.More() {
			kt, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
			}
			key, _ := kt.(string)
			e, err := decodeEntry(dec, key)
			if err != nil {
				return nil, err
			}
			ds = append(ds, e)
		}
		if _, err := dec.Token(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
	default:
		return nil, fmt.Errorf("%w: expected array or object", ErrMalformedPayload)
	}

	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after payload", ErrMalformedPayload)
	}
	if ds == nil {
		ds = Dataset{}
	}
	return ds, nil
}

func decodeEntry(dec *json.Decoder, key string) (Entry, error) {
	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return Entry{}, fmt.Errorf("%w: record %q: %v", ErrMalformedPayload, key, err)
	}
	rec, err := DecodeRecord(raw)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: record %q: %w", ErrMalformedPayload, key, err)
	}
	return Entry{Key: key, Record: rec}, nil
}

// DecodeRecord decodes and validates a single record. Field names are
// matched case-sensitively. CircuitID, the seven numeric fields and
// BatteryTimeEmpty are required; BatteryTimeFull and FuseTriggered are optional.
func DecodeRecord(raw []byte) (CircuitRecord, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return CircuitRecord{}, err
	}
	if fields == nil {
		return CircuitRecord{}, fmt.Errorf("record is null")
	}

	var rec CircuitRecord
	if err := decodeScalarField(fields, "CircuitID", (*string)(&rec.CircuitID)); err != nil {
		return rec, err
	}

	numeric := []struct {
		name string
		dst  *float64
	}{
		{"PowerCapacity", &rec.PowerCapacity},
		{"PowerProduction", &rec.PowerProduction},
		{"PowerConsumed", &rec.PowerConsumed},
		{"PowerMaxConsumed", &rec.PowerMaxConsumed},
		{"BatteryDifferential", &rec.BatteryDifferential},
		{"BatteryPercent", &rec.BatteryPercent},
		{"BatteryCapacity", &rec.BatteryCapacity},
	}
	for _, f := range numeric {
		v, ok := fields[f.name]
		if !ok || isNull(v) {
			return rec, fmt.Errorf("%w: %s", ErrMissingField, f.name)
		}
		if err := json.Unmarshal(v, f.dst); err != nil {
			return rec, fmt.Errorf("%s: not a number: %s", f.name, truncateJSON(v))
		}
	}

	if err := decodeScalarField(fields, "BatteryTimeEmpty", (*string)(&rec.BatteryTimeEmpty)); err != nil {
		return rec, err
	}

	if v, ok := fields["BatteryTimeFull"]; ok && !isNull(v) {
		s, err := scalarText(v)
		if err != nil {
			return rec, fmt.Errorf("BatteryTimeFull: %w", err)
		}
		rec.BatteryTimeFull = DisplayText(s)
	}
	if v, ok := fields["FuseTriggered"]; ok && !isNull(v) {
		if err := json.Unmarshal(v, &rec.FuseTriggered); err != nil {
			return rec, fmt.Errorf("FuseTriggered: not a boolean: %s", truncateJSON(v))
		}
	}
	return rec, nil
}

func decodeScalarField(fields map[string]json.RawMessage, name string, dst *string) error {
	v, ok := fields[name]
	if !ok || isNull(v) {
		return fmt.Errorf("%w: %s", ErrMissingField, name)
	}
	s, err := scalarText(v)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = s
	return nil
}

func isNull(v json.RawMessage) bool {
	return string(bytes.TrimSpace(v)) == "null"
}
