package archive

import (
	"errors"
	"fmt"
)

type fieldKind uint8

const (
	kindString fieldKind = iota + 1
	kindInt
	kindBool
	kindBytes
	kindRecords
)

type field struct {
	key  uint64
	kind fieldKind
	s    string
	i    int64
	b    bool
	raw  []byte
	recs []fields
}

// fields is one keyed record in the order the encoder emits it. Backends turn
// it into body bytes.
type fields []field

func (f *fields) str(key uint64, v string) {
	*f = append(*f, field{key: key, kind: kindString, s: v})
}

func (f *fields) integer(key uint64, v int64) {
	*f = append(*f, field{key: key, kind: kindInt, i: v})
}

func (f *fields) boolean(key uint64, v bool) {
	*f = append(*f, field{key: key, kind: kindBool, b: v})
}

func (f *fields) bytes(key uint64, v []byte) {
	*f = append(*f, field{key: key, kind: kindBytes, raw: v})
}

func (f *fields) records(key uint64, v []fields) {
	*f = append(*f, field{key: key, kind: kindRecords, recs: v})
}

// errIntRange is returned by fieldReader.integer for an integer the body
// holds but that does not fit in an int64.
var errIntRange = errors.New("integer out of range")

// fieldReader looks up fields of one parsed record by key. The bool result
// reports presence; an error means the key is present with the wrong wire
// type or a broken value.
type fieldReader interface {
	keys() []uint64
	// otherKeys describes keys that are not field numbers at all.
	otherKeys() []string
	str(key uint64) (string, bool, error)
	integer(key uint64) (int64, bool, error)
	boolean(key uint64) (bool, bool, error)
	bytes(key uint64) ([]byte, bool, error)
	records(key uint64) ([]fieldReader, error)
}

type backend interface {
	marshal(fs fields) ([]byte, error)
	parse(body []byte) (fieldReader, error)
}

func backendFor(f Format) (backend, error) {
	switch f {
	case FormatCBOR:
		return cborBody, nil
	case FormatProto:
		return protoBody{}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported %s", ErrMalformed, f)
	}
}
