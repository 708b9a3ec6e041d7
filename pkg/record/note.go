package record

// Note is an importable note for Appigo Notebook.
type Note struct {
	name string

	Text     string // body, without the name
	Notebook string // matched case-insensitively, created if missing
}

// NewNote trims name and falls back to UnknownName when it is blank.
func NewNote(name string) *Note { return &Note{name: normalizeName(name)} }

func (n *Note) Name() string { return n.name }

// Clone returns a copy of n.
func (n *Note) Clone() *Note {
	c := *n
	return &c
}

// Equal compares notes by value.
func (n *Note) Equal(o *Note) bool {
	if n == nil || o == nil {
		return n == o
	}
	return *n == *o
}

// PlainText renders the note, optionally preceded by its name line.
func (n *Note) PlainText(includeName bool) string {
	if !includeName {
		return n.Text
	}
	if n.Text == "" {
		return n.name
	}
	return n.name + "\n" + n.Text
}

// TaskRepresentation builds a task for importing the note into Todo.
func (n *Note) TaskRepresentation() *Task { return TaskFromNote(n) }

// TaskFromNote copies the name and text of n into a Normal task. The
// notebook has no task equivalent and is dropped.
func TaskFromNote(n *Note) *Task {
	t := NewTask(n.name)
	t.Note = n.Text
	return t
}

// NoteFromTask builds a note whose text is the task rendered without its
// name. The notebook is left empty.
func NoteFromTask(t *Task) *Note {
	n := NewNote(t.name)
	n.Text = t.PlainText(false)
	return n
}

// NoteRepresentation builds a note for importing the task into Notebook.
func (t *Task) NoteRepresentation() *Note { return NoteFromTask(t) }
