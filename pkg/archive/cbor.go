package archive

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	cbor "github.com/fxamacker/cbor/v2"

	"github.com/insanj/TodoFast/pkg/codec"
)

// Each task level costs one map and one array of nesting; the slack covers
// the root map and scalars.
var cborBody = cborBackend{c: codec.MustCBOR(codec.CBOROptions{MaxNestedLevels: 2*MaxDepth + 8})}

type cborBackend struct{ c codec.Codec }

func (b cborBackend) marshal(fs fields) ([]byte, error) { return b.c.Marshal(cborMap(fs)) }

func cborMap(fs fields) map[uint64]any {
	m := make(map[uint64]any, len(fs))
	for _, f := range fs {
		switch f.kind {
		case kindString:
			m[f.key] = f.s
		case kindInt:
			m[f.key] = f.i
		case kindBool:
			m[f.key] = f.b
		case kindBytes:
			m[f.key] = f.raw
		case kindRecords:
			recs := make([]map[uint64]any, len(f.recs))
			for i, r := range f.recs {
				recs[i] = cborMap(r)
			}
			m[f.key] = recs
		}
	}
	return m
}

func (b cborBackend) parse(body []byte) (fieldReader, error) {
	return b.parseRecord(body)
}

func (b cborBackend) parseRecord(raw []byte) (cborRecord, error) {
	var m map[any]cbor.RawMessage
	if err := b.c.Unmarshal(raw, &m); err != nil {
		var nested *cbor.MaxNestedLevelError
		if errors.As(err, &nested) {
			return cborRecord{}, fmt.Errorf("%w: %v", ErrTooDeep, err)
		}
		return cborRecord{}, err
	}
	if m == nil {
		return cborRecord{}, errors.New("record is not a map")
	}
	r := cborRecord{b: b, m: make(map[uint64]cbor.RawMessage, len(m))}
	for k, v := range m {
		if u, ok := k.(uint64); ok {
			r.m[u] = v
			continue
		}
		r.foreign = append(r.foreign, fmt.Sprintf("%#v", k))
	}
	slices.Sort(r.foreign)
	return r, nil
}

// cborRecord holds the integer-keyed fields of one map. Keys of any other
// CBOR type are kept only by description so they can be reported.
type cborRecord struct {
	b       cborBackend
	m       map[uint64]cbor.RawMessage
	foreign []string
}

func cborField[T any](r cborRecord, key uint64) (T, bool, error) {
	var v T
	raw, ok := r.m[key]
	if !ok {
		return v, false, nil
	}
	if err := r.b.c.Unmarshal(raw, &v); err != nil {
		return v, true, err
	}
	return v, true, nil
}

func (r cborRecord) keys() []uint64      { return slices.Sorted(maps.Keys(r.m)) }
func (r cborRecord) otherKeys() []string { return r.foreign }

func (r cborRecord) str(key uint64) (string, bool, error)   { return cborField[string](r, key) }
func (r cborRecord) boolean(key uint64) (bool, bool, error) { return cborField[bool](r, key) }
func (r cborRecord) bytes(key uint64) ([]byte, bool, error) { return cborField[[]byte](r, key) }

// integer reads a signed 64-bit value. A CBOR integer that does not fit
// reports errIntRange rather than a type error.
func (r cborRecord) integer(key uint64) (int64, bool, error) {
	v, ok, err := cborField[int64](r, key)
	if err != nil && isCBORInt(r.m[key]) {
		return 0, true, fmt.Errorf("%w: %v", errIntRange, err)
	}
	return v, ok, err
}

// isCBORInt reports whether raw starts with major type 0 or 1.
func isCBORInt(raw []byte) bool { return len(raw) > 0 && raw[0]>>5 <= 1 }

func (r cborRecord) records(key uint64) ([]fieldReader, error) {
	raws, ok, err := cborField[[]cbor.RawMessage](r, key)
	if !ok || err != nil {
		return nil, err
	}
	out := make([]fieldReader, 0, len(raws))
	for i, raw := range raws {
		rec, err := r.b.parseRecord(raw)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		out = append(out, rec)
	}
	return out, nil
}
