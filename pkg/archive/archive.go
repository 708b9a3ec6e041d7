// Package archive implements the versioned, keyed byte format used to hand
// Task and Note records between independently built processes.
//
// Layout (5-byte header, then the body):
//
//	0..1  Magic   'A''P'
//	2     Version u8
//	3     Kind    u8 (1 task, 2 note)
//	4     Format  u8 (1 CBOR, 2 protobuf wire)
//	5..   Body    one keyed record
//
// Every body field carries a stable integer key. Decoders skip keys they do
// not know and substitute defaults for keys that are missing, so archives
// written by older or newer producers still decode.
package archive

import (
	"errors"
	"fmt"

	"github.com/insanj/TodoFast/pkg/record"
)

const (
	headerSize = 5
	magic0     = 'A'
	magic1     = 'P'

	// CurrentVersion is written by this package's encoder.
	CurrentVersion uint8 = 1

	// MaxDepth bounds subtask nesting; the root task is depth 1.
	MaxDepth = record.MaxDepth
)

// Kind tells what record an archive carries.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindTask
	KindNote
)

func (k Kind) String() string {
	switch k {
	case KindTask:
		return "task"
	case KindNote:
		return "note"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Format is the body encoding, carried in the header.
type Format uint8

const (
	FormatUnknown Format = iota
	FormatCBOR
	FormatProto
)

func (f Format) String() string {
	switch f {
	case FormatCBOR:
		return "cbor"
	case FormatProto:
		return "proto"
	default:
		return fmt.Sprintf("format(%d)", uint8(f))
	}
}

// ParseFormat maps "cbor" or "proto" to a Format.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "cbor", "":
		return FormatCBOR, nil
	case "proto", "protobuf":
		return FormatProto, nil
	default:
		return FormatUnknown, fmt.Errorf("archive: unknown format %q", s)
	}
}

// Task field keys. Keys are never reused.
const (
	taskName           uint64 = 1
	taskType           uint64 = 2
	taskTypeData       uint64 = 3
	taskPriority       uint64 = 4
	taskDueDate        uint64 = 5
	taskDueDateHasTime uint64 = 6
	taskStartDate      uint64 = 7
	taskCompletionDate uint64 = 8
	taskRepeat         uint64 = 9
	taskAdvancedRepeat uint64 = 10
	taskNote           uint64 = 11
	taskList           uint64 = 12
	taskContext        uint64 = 13
	taskTags           uint64 = 14
	taskActionImage    uint64 = 15
	taskSubtasks       uint64 = 16
)

// Note field keys.
const (
	noteName     uint64 = 1
	noteText     uint64 = 2
	noteNotebook uint64 = 3
)

func knownTaskKey(k uint64) bool { return k >= taskName && k <= taskSubtasks }
func knownNoteKey(k uint64) bool { return k >= noteName && k <= noteNotebook }

var (
	// ErrMalformed marks a structurally broken archive. Decoding fails as a
	// whole; no partial record is returned.
	ErrMalformed = errors.New("archive: malformed")
	// ErrTooDeep is returned when subtasks nest deeper than MaxDepth.
	ErrTooDeep = errors.New("archive: subtasks nested too deeply")
	// ErrWrongKind is returned when decoding a task archive as a note or the
	// other way round. It is a kind of ErrMalformed.
	ErrWrongKind = fmt.Errorf("%w: unexpected record kind", ErrMalformed)
	// ErrTimeRange is returned for dates that do not fit the wire form.
	ErrTimeRange = errors.New("archive: date out of encodable range")
)

// DecodeError describes where a structural decode failure happened.
type DecodeError struct {
	Path string // e.g. "task.subtasks[2]"
	Key  uint64 // field key, 0 when the failure is not field specific
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Key != 0 {
		return fmt.Sprintf("archive: decode %s (key %d): %v", e.Path, e.Key, e.Err)
	}
	return fmt.Sprintf("archive: decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Header is the fixed prefix of every archive.
type Header struct {
	Version uint8
	Kind    Kind
	Format  Format
}

func (h Header) marshal(body []byte) []byte {
	out := make([]byte, headerSize+len(body))
	out[0], out[1] = magic0, magic1
	out[2] = h.Version
	out[3] = byte(h.Kind)
	out[4] = byte(h.Format)
	copy(out[headerSize:], body)
	return out
}

// ReadHeader parses the archive header without touching the body.
func ReadHeader(data []byte) (Header, error) {
	if len(data) < headerSize {
		return Header{}, fmt.Errorf("%w: short header (%d bytes)", ErrMalformed, len(data))
	}
	if data[0] != magic0 || data[1] != magic1 {
		return Header{}, fmt.Errorf("%w: bad magic", ErrMalformed)
	}
	h := Header{Version: data[2], Kind: Kind(data[3]), Format: Format(data[4])}
	if h.Version == 0 {
		return Header{}, fmt.Errorf("%w: version 0", ErrMalformed)
	}
	if h.Kind != KindTask && h.Kind != KindNote {
		return Header{}, fmt.Errorf("%w: %s", ErrMalformed, h.Kind)
	}
	if h.Format != FormatCBOR && h.Format != FormatProto {
		return Header{}, fmt.Errorf("%w: unsupported %s", ErrMalformed, h.Format)
	}
	return h, nil
}
