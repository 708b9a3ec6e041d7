package archive

import (
	"bytes"
	"fmt"
	"maps"
	"slices"

	"google.golang.org/protobuf/encoding/protowire"
)

// protoBody writes records as protobuf wire messages: keys are field
// numbers, integers are zigzag varints, strings and bytes are
// length-delimited, and subtasks are repeated embedded messages.
type protoBody struct{}

func (protoBody) marshal(fs fields) ([]byte, error) { return appendProto(nil, fs), nil }

func appendProto(b []byte, fs fields) []byte {
	for _, f := range fs {
		num := protowire.Number(f.key)
		switch f.kind {
		case kindString:
			b = protowire.AppendTag(b, num, protowire.BytesType)
			b = protowire.AppendString(b, f.s)
		case kindInt:
			b = protowire.AppendTag(b, num, protowire.VarintType)
			b = protowire.AppendVarint(b, protowire.EncodeZigZag(f.i))
		case kindBool:
			b = protowire.AppendTag(b, num, protowire.VarintType)
			b = protowire.AppendVarint(b, protowire.EncodeBool(f.b))
		case kindBytes:
			b = protowire.AppendTag(b, num, protowire.BytesType)
			b = protowire.AppendBytes(b, f.raw)
		case kindRecords:
			for _, r := range f.recs {
				b = protowire.AppendTag(b, num, protowire.BytesType)
				b = protowire.AppendBytes(b, appendProto(nil, r))
			}
		}
	}
	return b
}

type protoValue struct {
	typ protowire.Type
	v   uint64
	b   []byte
}

type protoRecord struct {
	m map[uint64][]protoValue
}

func (protoBody) parse(body []byte) (fieldReader, error) { return parseProto(body) }

func parseProto(body []byte) (protoRecord, error) {
	r := protoRecord{m: make(map[uint64][]protoValue)}
	for len(body) > 0 {
		num, typ, n := protowire.ConsumeTag(body)
		if n < 0 {
			return r, protowire.ParseError(n)
		}
		body = body[n:]
		pv := protoValue{typ: typ}
		switch typ {
		case protowire.VarintType:
			v, m := protowire.ConsumeVarint(body)
			if m < 0 {
				return r, fmt.Errorf("field %d: %w", num, protowire.ParseError(m))
			}
			pv.v, body = v, body[m:]
		case protowire.BytesType:
			v, m := protowire.ConsumeBytes(body)
			if m < 0 {
				return r, fmt.Errorf("field %d: %w", num, protowire.ParseError(m))
			}
			pv.b, body = v, body[m:]
		default:
			// kept only so the key can be reported as unknown
			m := protowire.ConsumeFieldValue(num, typ, body)
			if m < 0 {
				return r, fmt.Errorf("field %d: %w", num, protowire.ParseError(m))
			}
			body = body[m:]
		}
		r.m[uint64(num)] = append(r.m[uint64(num)], pv)
	}
	return r, nil
}

func (r protoRecord) keys() []uint64 { return slices.Sorted(maps.Keys(r.m)) }

// otherKeys is always empty: every protobuf key is a field number.
func (protoRecord) otherKeys() []string { return nil }

// last returns the final occurrence of a scalar field, as proto3 does.
func (r protoRecord) last(key uint64, want protowire.Type) (protoValue, bool, error) {
	vals := r.m[key]
	if len(vals) == 0 {
		return protoValue{}, false, nil
	}
	v := vals[len(vals)-1]
	if v.typ != want {
		return v, true, fmt.Errorf("wire type %d, want %d", v.typ, want)
	}
	return v, true, nil
}

func (r protoRecord) str(key uint64) (string, bool, error) {
	v, ok, err := r.last(key, protowire.BytesType)
	return string(v.b), ok, err
}

func (r protoRecord) integer(key uint64) (int64, bool, error) {
	v, ok, err := r.last(key, protowire.VarintType)
	return protowire.DecodeZigZag(v.v), ok, err
}

func (r protoRecord) boolean(key uint64) (bool, bool, error) {
	v, ok, err := r.last(key, protowire.VarintType)
	return protowire.DecodeBool(v.v), ok, err
}

func (r protoRecord) bytes(key uint64) ([]byte, bool, error) {
	v, ok, err := r.last(key, protowire.BytesType)
	return bytes.Clone(v.b), ok, err
}

func (r protoRecord) records(key uint64) ([]fieldReader, error) {
	vals := r.m[key]
	out := make([]fieldReader, 0, len(vals))
	for i, v := range vals {
		if v.typ != protowire.BytesType {
			return nil, fmt.Errorf("item %d: wire type %d, want %d", i, v.typ, protowire.BytesType)
		}
		rec, err := parseProto(v.b)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		out = append(out, rec)
	}
	return out, nil
}
