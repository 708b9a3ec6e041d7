package archive

import (
	"fmt"

	"github.com/insanj/TodoFast/pkg/codec"
	"github.com/insanj/TodoFast/pkg/record"
)

var typeDataCodec = codec.MustCBOR(codec.CBOROptions{})

// EncodeTypeData packs parallel type keys and values into the side-table
// stored under the task's type data key: a CBOR array of [key, value] pairs.
// Order and exact string content are kept.
func EncodeTypeData(keys, values []string) ([]byte, error) {
	if len(keys) != len(values) {
		return nil, fmt.Errorf("%w: %d keys, %d values", record.ErrTypeDataMismatch, len(keys), len(values))
	}
	pairs := make([][2]string, len(keys))
	for i := range keys {
		pairs[i] = [2]string{keys[i], values[i]}
	}
	return typeDataCodec.Marshal(pairs)
}

// DecodeTypeData reverses EncodeTypeData. Anything other than a list of
// two-string pairs is ErrMalformed.
func DecodeTypeData(b []byte) (keys, values []string, err error) {
	var pairs [][]string
	if err := typeDataCodec.Unmarshal(b, &pairs); err != nil {
		return nil, nil, fmt.Errorf("%w: type data: %v", ErrMalformed, err)
	}
	for i, p := range pairs {
		if len(p) != 2 {
			return nil, nil, fmt.Errorf("%w: type data pair %d has %d items", ErrMalformed, i, len(p))
		}
		keys = append(keys, p[0])
		values = append(values, p[1])
	}
	return keys, values, nil
}
