package archive

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/insanj/TodoFast/pkg/record"
)

// WarningKind classifies a soft decode anomaly.
type WarningKind uint8

const (
	WarnUnknownKey WarningKind = iota + 1
	WarnBadEnum
	WarnBadImage
	WarnNewerVersion
)

func (k WarningKind) String() string {
	switch k {
	case WarnUnknownKey:
		return "unknown-key"
	case WarnBadEnum:
		return "bad-enum"
	case WarnBadImage:
		return "bad-image"
	case WarnNewerVersion:
		return "newer-version"
	default:
		return fmt.Sprintf("warning(%d)", uint8(k))
	}
}

// Warning is an anomaly the decoder recovered from by substituting a default
// or dropping a value.
type Warning struct {
	Kind   WarningKind
	Path   string
	Key    uint64
	Detail string
}

func (w Warning) String() string {
	s := fmt.Sprintf("%s at %s", w.Kind, w.Path)
	if w.Key != 0 {
		s += fmt.Sprintf(" key %d", w.Key)
	}
	if w.Detail != "" {
		s += ": " + w.Detail
	}
	return s
}

// Warnings collects the anomalies of one decode.
type Warnings []Warning

func (ws *Warnings) add(kind WarningKind, path string, key uint64, format string, args ...any) {
	*ws = append(*ws, Warning{Kind: kind, Path: path, Key: key, Detail: fmt.Sprintf(format, args...)})
}

// Has reports whether any warning is of kind k.
func (ws Warnings) Has(k WarningKind) bool {
	for _, w := range ws {
		if w.Kind == k {
			return true
		}
	}
	return false
}

// Decoder reads archives of any supported version and body format.
type Decoder struct {
	log *zap.Logger
}

// NewDecoder returns a decoder that logs warnings to log, or to the global
// zap logger when log is nil.
func NewDecoder(log *zap.Logger) *Decoder {
	if log == nil {
		log = zap.L()
	}
	return &Decoder{log: log.Named("archive")}
}

// DecodeTask rebuilds a task graph. Structural problems fail the whole
// decode with a *DecodeError; soft anomalies come back as warnings.
func (d *Decoder) DecodeTask(data []byte) (*record.Task, Warnings, error) {
	rd, warns, err := d.open(data, KindTask)
	if err != nil {
		return nil, nil, err
	}
	t, err := d.task(rd, 1, "task", &warns)
	if err != nil {
		return nil, nil, err
	}
	d.report(warns)
	return t, warns, nil
}

// DecodeNote rebuilds a note.
func (d *Decoder) DecodeNote(data []byte) (*record.Note, Warnings, error) {
	rd, warns, err := d.open(data, KindNote)
	if err != nil {
		return nil, nil, err
	}
	skipUnknown(rd, "note", knownNoteKey, &warns)
	sc := &scanner{r: rd, path: "note"}
	n := record.NewNote(sc.str(noteName))
	n.Text = sc.str(noteText)
	n.Notebook = sc.str(noteNotebook)
	if sc.err != nil {
		return nil, nil, sc.err
	}
	d.report(warns)
	return n, warns, nil
}

func (d *Decoder) open(data []byte, want Kind) (fieldReader, Warnings, error) {
	h, err := ReadHeader(data)
	if err != nil {
		return nil, nil, &DecodeError{Path: "header", Err: err}
	}
	if h.Kind != want {
		return nil, nil, &DecodeError{Path: "header", Err: fmt.Errorf("%w: have %s, want %s", ErrWrongKind, h.Kind, want)}
	}
	var warns Warnings
	if h.Version > CurrentVersion {
		warns.add(WarnNewerVersion, "header", 0, "version %d, reader knows %d", h.Version, CurrentVersion)
	}
	be, err := backendFor(h.Format)
	if err != nil {
		return nil, nil, &DecodeError{Path: "header", Err: err}
	}
	rd, err := be.parse(data[headerSize:])
	if err != nil {
		return nil, nil, structural(want.String(), 0, err)
	}
	return rd, warns, nil
}

func (d *Decoder) task(rd fieldReader, depth int, path string, warns *Warnings) (*record.Task, error) {
	if depth > MaxDepth {
		return nil, &DecodeError{Path: path, Err: fmt.Errorf("%w: depth %d", ErrTooDeep, depth)}
	}
	skipUnknown(rd, path, knownTaskKey, warns)

	sc := &scanner{r: rd, path: path}
	s := record.TaskState{
		Name:           sc.str(taskName),
		Type:           record.TypeNormal,
		Priority:       record.PriorityNone,
		DueDate:        sc.time(taskDueDate),
		DueDateHasTime: sc.boolean(taskDueDateHasTime),
		StartDate:      sc.time(taskStartDate),
		CompletionDate: sc.time(taskCompletionDate),
		AdvancedRepeat: sc.optString(taskAdvancedRepeat),
		Note:           sc.str(taskNote),
		List:           sc.str(taskList),
		Context:        sc.str(taskContext),
		Tags:           sc.str(taskTags),
	}
	if code, ok, fits := sc.code(taskType); ok {
		if fits && code >= 0 && code <= int64(record.TypeCustom) {
			s.Type = record.TaskType(code)
		} else {
			warns.add(WarnBadEnum, path, taskType, "task type %s, using %s", codeString(code, fits), record.TypeNormal)
		}
	}
	if code, ok, fits := sc.code(taskPriority); ok {
		if p := record.Priority(code); fits && code >= 0 && code <= int64(record.PriorityNone) && p.Valid() {
			s.Priority = p
		} else {
			warns.add(WarnBadEnum, path, taskPriority, "priority %s, using %s", codeString(code, fits), record.PriorityNone)
		}
	}
	if code, ok, fits := sc.code(taskRepeat); ok {
		if fits && int64(int(code)) == code {
			s.Repeat = record.RepeatCode(code)
		} else {
			warns.add(WarnBadEnum, path, taskRepeat, "repeat %s, using %s", codeString(code, fits), record.RepeatNone)
		}
	}
	if s.DueDate != nil && !s.DueDateHasTime {
		d := record.DateOnly(*s.DueDate)
		s.DueDate = &d
	}
	if raw, ok := sc.bytes(taskTypeData); ok {
		keys, values, err := DecodeTypeData(raw)
		sc.fail(taskTypeData, err)
		s.TypeKeys, s.TypeValues = keys, values
	}
	if raw, ok := sc.bytes(taskActionImage); ok {
		img := record.NewImage(raw)
		if err := img.Validate(); err != nil {
			warns.add(WarnBadImage, path, taskActionImage, "%v", err)
		} else {
			s.ActionImage = img
		}
	}
	if sc.err != nil {
		return nil, sc.err
	}

	subs, err := rd.records(taskSubtasks)
	if err != nil {
		return nil, structural(path, taskSubtasks, err)
	}
	for i, sub := range subs {
		child, err := d.task(sub, depth+1, fmt.Sprintf("%s.subtasks[%d]", path, i), warns)
		if err != nil {
			return nil, err
		}
		s.Subtasks = append(s.Subtasks, child)
	}

	t, err := record.FromState(s)
	if err != nil {
		return nil, structural(path, 0, err)
	}
	return t, nil
}

func skipUnknown(rd fieldReader, path string, known func(uint64) bool, warns *Warnings) {
	for _, k := range rd.keys() {
		if !known(k) {
			warns.add(WarnUnknownKey, path, k, "skipped")
		}
	}
	for _, k := range rd.otherKeys() {
		warns.add(WarnUnknownKey, path, 0, "skipped non-integer key %s", k)
	}
}

func codeString(code int64, fits bool) string {
	if !fits {
		return "out of range"
	}
	return strconv.FormatInt(code, 10)
}

func (d *Decoder) report(warns Warnings) {
	for _, w := range warns {
		d.log.Warn("archive decode anomaly",
			zap.Stringer("kind", w.Kind),
			zap.String("path", w.Path),
			zap.Uint64("key", w.Key),
			zap.String("detail", w.Detail))
	}
}

// structural wraps err as a DecodeError. Depth failures keep ErrTooDeep;
// everything else becomes ErrMalformed.
func structural(path string, key uint64, err error) *DecodeError {
	if !errors.Is(err, ErrTooDeep) && !errors.Is(err, ErrMalformed) {
		err = fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return &DecodeError{Path: path, Key: key, Err: err}
}

// scanner reads typed fields from one record and keeps the first failure,
// so a record can be read in straight-line code and checked once.
type scanner struct {
	r    fieldReader
	path string
	err  error
}

func (s *scanner) fail(key uint64, err error) {
	if err != nil && s.err == nil {
		s.err = structural(s.path, key, err)
	}
}

func (s *scanner) str(key uint64) string {
	v, _, err := s.r.str(key)
	s.fail(key, err)
	return v
}

func (s *scanner) optString(key uint64) *string {
	v, ok, err := s.r.str(key)
	s.fail(key, err)
	if !ok || err != nil {
		return nil
	}
	return &v
}

func (s *scanner) integer(key uint64) (int64, bool) {
	v, ok, err := s.r.integer(key)
	s.fail(key, err)
	return v, ok && err == nil
}

// code reads an enum or repeat code. An integer too wide for int64 is
// reported as present but not fitting instead of failing the record.
func (s *scanner) code(key uint64) (v int64, ok, fits bool) {
	v, present, err := s.r.integer(key)
	if errors.Is(err, errIntRange) {
		return 0, true, false
	}
	s.fail(key, err)
	return v, present && err == nil, true
}

func (s *scanner) boolean(key uint64) bool {
	v, _, err := s.r.boolean(key)
	s.fail(key, err)
	return v
}

func (s *scanner) bytes(key uint64) ([]byte, bool) {
	v, ok, err := s.r.bytes(key)
	s.fail(key, err)
	return v, ok && err == nil
}

func (s *scanner) time(key uint64) *time.Time {
	ns, ok := s.integer(key)
	if !ok {
		return nil
	}
	t := time.Unix(0, ns).UTC()
	return &t
}
