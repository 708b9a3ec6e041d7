package codec

import (
	cbor "github.com/fxamacker/cbor/v2"
)

// CBOROptions tunes the decoder limits. Zero values keep the library
// defaults.
type CBOROptions struct {
	// MaxNestedLevels bounds array/map nesting on decode (4..65535).
	MaxNestedLevels int
}

type cborCodec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

// CBOR returns a deterministic CBOR codec (RFC 7049/8949) with canonical
// key ordering. Duplicate map keys are rejected on decode.
func CBOR(o CBOROptions) (Codec, error) {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return nil, err
	}
	dm, err := cbor.DecOptions{
		MaxNestedLevels: o.MaxNestedLevels,
		DupMapKey:       cbor.DupMapKeyEnforcedAPF,
	}.DecMode()
	if err != nil {
		return nil, err
	}
	return cborCodec{enc: em, dec: dm}, nil
}

// MustCBOR is CBOR for options known to be valid.
func MustCBOR(o CBOROptions) Codec {
	c, err := CBOR(o)
	if err != nil {
		panic(err)
	}
	return c
}

func (c cborCodec) ContentType() string                { return ContentCBOR }
func (c cborCodec) Marshal(v any) ([]byte, error)      { return c.enc.Marshal(v) }
func (c cborCodec) Unmarshal(data []byte, v any) error { return c.dec.Unmarshal(data, v) }
