// Package record holds the Task and Note records handed to the Appigo host
// applications, their invariants, and their plain-text rendering.
package record

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// UnknownName replaces names that are empty after trimming.
const UnknownName = "Unknown"

// MaxDepth bounds subtask nesting; a task without subtasks has depth 1.
const MaxDepth = 64

func normalizeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return UnknownName
	}
	return s
}

// Task is an importable task. The name, type and type data are set through
// the constructor and setters so their invariants hold; the remaining fields
// are free to mutate until the task is published.
type Task struct {
	name       string
	taskType   TaskType
	typeKeys   []string
	typeValues []string
	repeat     RepeatCode
	advanced   *string
	subtasks   []*Task
	parent     *Task

	Priority       Priority
	DueDate        *time.Time
	DueDateHasTime bool
	StartDate      *time.Time
	CompletionDate *time.Time // nil while the task is active
	Note           string
	List           string // matched case-insensitively by the host
	Context        string // matched case-insensitively by the host
	Tags           string // comma separated
	ActionImage    *Image
}

// NewTask returns a Normal task with no priority.
func NewTask(name string) *Task {
	return &Task{name: normalizeName(name), taskType: TypeNormal, Priority: PriorityNone}
}

func (t *Task) Name() string       { return t.name }
func (t *Task) Type() TaskType     { return t.taskType }
func (t *Task) Repeat() RepeatCode { return t.repeat }

// TypeKeys returns a copy of the type data keys.
func (t *Task) TypeKeys() []string { return slices.Clone(t.typeKeys) }

// TypeValues returns a copy of the type data values.
func (t *Task) TypeValues() []string { return slices.Clone(t.typeValues) }

// AdvancedRepeat returns the advanced repeat phrase and whether one is set.
func (t *Task) AdvancedRepeat() (string, bool) {
	if t.advanced == nil {
		return "", false
	}
	return *t.advanced, true
}

// SetType replaces the type and its type data together. Keys and values are
// dropped for Normal, Project and Checklist. On error the task is unchanged.
func (t *Task) SetType(typ TaskType, keys, values []string) error {
	if !typ.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownTaskType, typ)
	}
	if !typ.UsesTypeData() {
		keys, values = nil, nil
	}
	if len(keys) != len(values) {
		return fmt.Errorf("%w: %d keys, %d values", ErrTypeDataMismatch, len(keys), len(values))
	}
	t.taskType = typ
	t.typeKeys = slices.Clone(keys)
	t.typeValues = slices.Clone(values)
	return nil
}

// TypeValue returns the first value stored under key.
func (t *Task) TypeValue(key string) (string, bool) {
	for i, k := range t.typeKeys {
		if k == key {
			return t.typeValues[i], true
		}
	}
	return "", false
}

// SetRepeat sets the recurrence. Advanced codes (50, 150) need a phrase that
// ParseAdvancedRepeat accepts; other codes clear any stored phrase.
func (t *Task) SetRepeat(code RepeatCode, phrase string) error {
	if code.IsAdvanced() {
		if _, err := ParseAdvancedRepeat(phrase); err != nil {
			return err
		}
		p := phrase
		t.repeat, t.advanced = code, &p
		return nil
	}
	t.repeat, t.advanced = code, nil
	return nil
}

// Subtasks returns the direct children in order. The slice is a copy; the
// tasks are not.
func (t *Task) Subtasks() []*Task { return slices.Clone(t.subtasks) }

// EffectiveSubtasks returns the subtasks a host would import: none unless
// the task is a Project or Checklist.
func (t *Task) EffectiveSubtasks() []*Task {
	if !t.taskType.HasSubtasks() {
		return nil
	}
	return t.Subtasks()
}

// AddSubtask appends sub. A task has at most one parent, so sub must not
// already be a subtask anywhere. It is refused if it is t or an ancestor of
// t, or if the tree would nest deeper than MaxDepth.
func (t *Task) AddSubtask(sub *Task) error {
	if err := t.checkChild(sub); err != nil {
		return err
	}
	if sub.parent != nil {
		return fmt.Errorf("%w: %q", ErrSubtaskOwned, sub.name)
	}
	sub.parent = t
	t.subtasks = append(t.subtasks, sub)
	return nil
}

// SetSubtasks replaces all children, applying the AddSubtask checks. Current
// children may be passed again; each task may appear once. On error the
// children are unchanged.
func (t *Task) SetSubtasks(subs []*Task) error {
	seen := make(map[*Task]bool, len(subs))
	for _, s := range subs {
		if err := t.checkChild(s); err != nil {
			return err
		}
		if seen[s] || (s.parent != nil && s.parent != t) {
			return fmt.Errorf("%w: %q", ErrSubtaskOwned, s.name)
		}
		seen[s] = true
	}
	for _, s := range t.subtasks {
		s.parent = nil
	}
	for _, s := range subs {
		s.parent = t
	}
	t.subtasks = slices.Clone(subs)
	return nil
}

func (t *Task) checkChild(sub *Task) error {
	if sub == nil {
		return ErrNilSubtask
	}
	level := 0
	for a := t; a != nil; a = a.parent {
		if a == sub {
			return fmt.Errorf("%w: %q", ErrSubtaskCycle, sub.name)
		}
		level++
	}
	if d := level + sub.Depth(); d > MaxDepth {
		return fmt.Errorf("%w: depth %d", ErrSubtaskDepth, d)
	}
	return nil
}

// Parent returns the task t is a subtask of, or nil for a root.
func (t *Task) Parent() *Task { return t.parent }

// Depth returns 1 for a leaf task, 2 for a task with leaf children, and so on.
func (t *Task) Depth() int {
	d := 0
	for _, s := range t.subtasks {
		d = max(d, s.Depth())
	}
	return d + 1
}

// TagList splits Tags on commas, trimming blanks.
func (t *Task) TagList() []string {
	var out []string
	for _, tag := range strings.Split(t.Tags, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

// Clone returns a deep copy of t and its subtasks. The copy is a root.
func (t *Task) Clone() *Task {
	c := *t
	c.typeKeys = slices.Clone(t.typeKeys)
	c.typeValues = slices.Clone(t.typeValues)
	c.advanced = cloneString(t.advanced)
	c.DueDate = cloneTime(t.DueDate)
	c.StartDate = cloneTime(t.StartDate)
	c.CompletionDate = cloneTime(t.CompletionDate)
	c.ActionImage = t.ActionImage.clone()
	c.parent = nil
	c.subtasks = nil
	for _, s := range t.subtasks {
		sc := s.Clone()
		sc.parent = &c
		c.subtasks = append(c.subtasks, sc)
	}
	return &c
}

// Equal compares two tasks field by field, recursing into subtasks. Nil and
// empty type data or subtask lists are considered equal.
func (t *Task) Equal(o *Task) bool {
	if t == nil || o == nil {
		return t == o
	}
	if t.name != o.name || t.taskType != o.taskType || t.Priority != o.Priority ||
		t.DueDateHasTime != o.DueDateHasTime || t.repeat != o.repeat ||
		t.Note != o.Note || t.List != o.List || t.Context != o.Context || t.Tags != o.Tags {
		return false
	}
	if !slices.Equal(t.typeKeys, o.typeKeys) || !slices.Equal(t.typeValues, o.typeValues) {
		return false
	}
	if !t.equalDue(o) || !equalTime(t.StartDate, o.StartDate) || !equalTime(t.CompletionDate, o.CompletionDate) {
		return false
	}
	if !equalString(t.advanced, o.advanced) || !t.ActionImage.equal(o.ActionImage) {
		return false
	}
	return slices.EqualFunc(t.subtasks, o.subtasks, (*Task).Equal)
}

// equalDue compares date-only due dates by calendar day, since the time of
// day and zone carry nothing there.
func (t *Task) equalDue(o *Task) bool {
	if t.DueDateHasTime || t.DueDate == nil || o.DueDate == nil {
		return equalTime(t.DueDate, o.DueDate)
	}
	return DateOnly(*t.DueDate).Equal(DateOnly(*o.DueDate))
}

// DateOnly returns midnight UTC of the calendar day tm shows in its own
// location. Date-only due dates travel in this form so every reader sees
// the producer's day.
func DateOnly(tm time.Time) time.Time {
	y, m, d := tm.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// TaskState carries every stored field of a Task. It is the form archive
// decoders and file loaders build tasks from; FromState applies no
// validation beyond the name rule, so decoded data survives untouched.
type TaskState struct {
	Name           string
	Type           TaskType
	TypeKeys       []string
	TypeValues     []string
	Priority       Priority
	DueDate        *time.Time
	DueDateHasTime bool
	StartDate      *time.Time
	CompletionDate *time.Time
	Repeat         RepeatCode
	AdvancedRepeat *string
	Note           string
	List           string
	Context        string
	Tags           string
	ActionImage    *Image
	Subtasks       []*Task
}

// State exports the stored fields of t. Subtasks are shared, not copied.
func (t *Task) State() TaskState {
	return TaskState{
		Name:           t.name,
		Type:           t.taskType,
		TypeKeys:       slices.Clone(t.typeKeys),
		TypeValues:     slices.Clone(t.typeValues),
		Priority:       t.Priority,
		DueDate:        t.DueDate,
		DueDateHasTime: t.DueDateHasTime,
		StartDate:      t.StartDate,
		CompletionDate: t.CompletionDate,
		Repeat:         t.repeat,
		AdvancedRepeat: t.advanced,
		Note:           t.Note,
		List:           t.List,
		Context:        t.Context,
		Tags:           t.Tags,
		ActionImage:    t.ActionImage,
		Subtasks:       slices.Clone(t.subtasks),
	}
}

// FromState rebuilds a task. Type keys and values must have equal length.
// Subtasks that already belong to another task are copied.
func FromState(s TaskState) (*Task, error) {
	if len(s.TypeKeys) != len(s.TypeValues) {
		return nil, fmt.Errorf("%w: %d keys, %d values", ErrTypeDataMismatch, len(s.TypeKeys), len(s.TypeValues))
	}
	t := &Task{
		name:           normalizeName(s.Name),
		taskType:       s.Type,
		typeKeys:       slices.Clone(s.TypeKeys),
		typeValues:     slices.Clone(s.TypeValues),
		repeat:         s.Repeat,
		advanced:       s.AdvancedRepeat,
		Priority:       s.Priority,
		DueDate:        s.DueDate,
		DueDateHasTime: s.DueDateHasTime,
		StartDate:      s.StartDate,
		CompletionDate: s.CompletionDate,
		Note:           s.Note,
		List:           s.List,
		Context:        s.Context,
		Tags:           s.Tags,
		ActionImage:    s.ActionImage,
	}
	subs := make([]*Task, len(s.Subtasks))
	for i, sub := range s.Subtasks {
		if sub != nil && sub.parent != nil {
			sub = sub.Clone()
		}
		subs[i] = sub
	}
	if err := t.SetSubtasks(subs); err != nil {
		return nil, err
	}
	return t, nil
}

func cloneTime(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func equalTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func equalString(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
