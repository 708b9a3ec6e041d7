package archive

import (
	"fmt"
	"time"

	"github.com/insanj/TodoFast/pkg/record"
)

// Encoder writes archives in one body format. It holds no state besides the
// format and is safe for concurrent use.
type Encoder struct {
	format Format
	body   backend
}

// NewEncoder returns an encoder for f.
func NewEncoder(f Format) (*Encoder, error) {
	be, err := backendFor(f)
	if err != nil {
		return nil, err
	}
	return &Encoder{format: f, body: be}, nil
}

// Format reports the body format written by e.
func (e *Encoder) Format() Format { return e.format }

// EncodeTask archives t and its subtasks. The result shares no memory with
// t, so later changes to t do not affect it.
func (e *Encoder) EncodeTask(t *record.Task) ([]byte, error) {
	fs, err := taskFields(t, 1)
	if err != nil {
		return nil, err
	}
	return e.finish(KindTask, fs)
}

// EncodeNote archives n.
func (e *Encoder) EncodeNote(n *record.Note) ([]byte, error) {
	var fs fields
	fs.str(noteName, n.Name())
	if n.Text != "" {
		fs.str(noteText, n.Text)
	}
	if n.Notebook != "" {
		fs.str(noteNotebook, n.Notebook)
	}
	return e.finish(KindNote, fs)
}

func (e *Encoder) finish(k Kind, fs fields) ([]byte, error) {
	body, err := e.body.marshal(fs)
	if err != nil {
		return nil, fmt.Errorf("archive: encode %s: %w", k, err)
	}
	return Header{Version: CurrentVersion, Kind: k, Format: e.format}.marshal(body), nil
}

// taskFields emits fields in key order. Zero strings, false flags and a zero
// repeat are left out; absent optional values are never written.
func taskFields(t *record.Task, depth int) (fields, error) {
	if depth > MaxDepth {
		return nil, fmt.Errorf("%w: depth %d", ErrTooDeep, depth)
	}
	s := t.State()
	var fs fields
	fs.str(taskName, s.Name)
	fs.integer(taskType, int64(s.Type))
	if len(s.TypeKeys) > 0 {
		td, err := EncodeTypeData(s.TypeKeys, s.TypeValues)
		if err != nil {
			return nil, err
		}
		fs.bytes(taskTypeData, td)
	}
	fs.integer(taskPriority, int64(s.Priority))
	due := s.DueDate
	if due != nil && !s.DueDateHasTime {
		d := record.DateOnly(*due)
		due = &d
	}
	if err := timeField(&fs, taskDueDate, due); err != nil {
		return nil, err
	}
	if s.DueDateHasTime {
		fs.boolean(taskDueDateHasTime, true)
	}
	if err := timeField(&fs, taskStartDate, s.StartDate); err != nil {
		return nil, err
	}
	if err := timeField(&fs, taskCompletionDate, s.CompletionDate); err != nil {
		return nil, err
	}
	if s.Repeat != record.RepeatNone {
		fs.integer(taskRepeat, int64(s.Repeat))
	}
	if s.AdvancedRepeat != nil {
		fs.str(taskAdvancedRepeat, *s.AdvancedRepeat)
	}
	for _, kv := range []struct {
		key uint64
		v   string
	}{{taskNote, s.Note}, {taskList, s.List}, {taskContext, s.Context}, {taskTags, s.Tags}} {
		if kv.v != "" {
			fs.str(kv.key, kv.v)
		}
	}
	if s.ActionImage != nil && len(s.ActionImage.PNG) > 0 {
		fs.bytes(taskActionImage, append([]byte(nil), s.ActionImage.PNG...))
	}
	if len(s.Subtasks) > 0 {
		subs := make([]fields, 0, len(s.Subtasks))
		for _, sub := range s.Subtasks {
			sf, err := taskFields(sub, depth+1)
			if err != nil {
				return nil, err
			}
			subs = append(subs, sf)
		}
		fs.records(taskSubtasks, subs)
	}
	return fs, nil
}

// timeField writes tm as unix nanoseconds. Dates outside roughly 1678..2262
// do not fit and are rejected.
func timeField(fs *fields, key uint64, tm *time.Time) error {
	if tm == nil {
		return nil
	}
	ns := tm.UnixNano()
	if !time.Unix(0, ns).Equal(*tm) {
		return fmt.Errorf("%w: %s", ErrTimeRange, tm.Format(time.RFC3339))
	}
	fs.integer(key, ns)
	return nil
}
