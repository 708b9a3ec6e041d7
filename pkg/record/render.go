package record

import (
	"strings"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04"
	indentUnit     = "  "
)

// PlainText renders the task as text. The optional name line is followed by
// priority, due date, list, context, tags and note (each only when set), and
// then the subtasks, each as a checklist line with its own fields indented
// below it. Custom action data, type data, start date, repeat and images are
// not rendered.
func (t *Task) PlainText(includeName bool) string {
	var lines []string
	if includeName {
		lines = append(lines, t.name)
	}
	lines = t.appendFieldLines(lines, "")
	return strings.Join(lines, "\n")
}

func (t *Task) appendFieldLines(lines []string, indent string) []string {
	if t.Priority.Valid() && t.Priority != PriorityNone {
		lines = append(lines, indent+"Priority: "+t.Priority.String())
	}
	if t.DueDate != nil {
		layout := dateLayout
		if t.DueDateHasTime {
			layout = dateTimeLayout
		}
		lines = append(lines, indent+"Due: "+t.DueDate.Format(layout))
	}
	if t.List != "" {
		lines = append(lines, indent+"List: "+t.List)
	}
	if t.Context != "" {
		lines = append(lines, indent+"Context: "+t.Context)
	}
	if tags := t.TagList(); len(tags) > 0 {
		lines = append(lines, indent+"Tags: "+strings.Join(tags, ", "))
	}
	if t.Note != "" {
		note := strings.ReplaceAll(t.Note, "\n", "\n"+indent+indentUnit)
		lines = append(lines, indent+"Note: "+note)
	}
	for _, s := range t.subtasks {
		box := "[ ]"
		if s.CompletionDate != nil {
			box = "[x]"
		}
		lines = append(lines, indent+"- "+box+" "+s.name)
		lines = s.appendFieldLines(lines, indent+indentUnit)
	}
	return lines
}
