// Package codec provides the marshaling formats used for pasteboard archives
// and slot documents.
package codec

// Codec defines a simple interface for marshaling typed values.
// Implementations must be deterministic: the same value always yields the
// same bytes, so archives written by different producers compare equal.
type Codec interface {
	ContentType() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// Content types of the built-in codecs.
const (
	ContentJSON = "application/json"
	ContentCBOR = "application/cbor"
)
