// Package recordfile reads and writes Task and Note records as YAML
// documents.
//
// A task document:
//
//	name: Call Bob
//	type: call-contact
//	type_data:
//	  mobile: 555-1111
//	priority: high
//	due: 2026-10-20T15:00:00Z
//	repeat: weekly from completion
//	tags: [home, phone]
//	subtasks:
//	  - name: Find number
//
// type_data keeps the order it is written in. Dates are RFC 3339, or a bare
// YYYY-MM-DD for date-only values. repeat takes either the code or its name.
package recordfile

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/insanj/TodoFast/pkg/record"
)

// ErrInvalid wraps every document error that is not a YAML syntax error.
var ErrInvalid = errors.New("recordfile: invalid document")

const dateOnly = "2006-01-02"

type taskDoc struct {
	Name           string     `yaml:"name"`
	Type           string     `yaml:"type,omitempty"`
	TypeData       yaml.Node  `yaml:"type_data,omitempty"`
	Priority       string     `yaml:"priority,omitempty"`
	Due            string     `yaml:"due,omitempty"`
	DueHasTime     *bool      `yaml:"due_has_time,omitempty"`
	Start          string     `yaml:"start,omitempty"`
	Completed      string     `yaml:"completed,omitempty"`
	Repeat         string     `yaml:"repeat,omitempty"`
	AdvancedRepeat string     `yaml:"advanced_repeat,omitempty"`
	Note           string     `yaml:"note,omitempty"`
	List           string     `yaml:"list,omitempty"`
	Context        string     `yaml:"context,omitempty"`
	Tags           tagList    `yaml:"tags,omitempty"`
	ActionImage    string     `yaml:"action_image,omitempty"`
	ActionImagePNG pngData    `yaml:"action_image_png,omitempty"`
	CustomAction   *customDoc `yaml:"custom_action,omitempty"`
	Subtasks       []taskDoc  `yaml:"subtasks,omitempty"`
}

type customDoc struct {
	AppID               string `yaml:"app_id"`
	DisplayName         string `yaml:"display_name"`
	CompletionNotifyURL string `yaml:"completion_notify_url"`
	CompletionLaunchURL string `yaml:"completion_launch_url"`
	ActionLaunchURL     string `yaml:"action_launch_url"`
	ActionImage         string `yaml:"action_image"`
}

type noteDoc struct {
	Name     string `yaml:"name"`
	Text     string `yaml:"text,omitempty"`
	Notebook string `yaml:"notebook,omitempty"`
}

// tagList accepts "a,b" or [a, b].
type tagList string

func (l *tagList) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		*l = tagList(n.Value)
	case yaml.SequenceNode:
		var items []string
		if err := n.Decode(&items); err != nil {
			return err
		}
		*l = tagList(strings.Join(items, ","))
	default:
		return fmt.Errorf("line %d: tags must be a string or a list", n.Line)
	}
	return nil
}

// pngData is written as a !!binary scalar; base64 text is accepted with or
// without the tag.
type pngData []byte

func (p pngData) MarshalYAML() (any, error) {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!binary", Value: base64.StdEncoding.EncodeToString(p)}, nil
}

func (p *pngData) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: action_image_png must be base64 text", n.Line)
	}
	b, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(n.Value), ""))
	if err != nil {
		return fmt.Errorf("line %d: action_image_png: %w", n.Line, err)
	}
	*p = b
	return nil
}

// LoadTask reads a task document. Image paths are relative to the file.
func LoadTask(path string) (*record.Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	t, err := ParseTask(bytes.NewReader(data), filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// LoadNote reads a note document.
func LoadNote(path string) (*record.Note, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	n, err := ParseNote(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return n, nil
}

// ParseTask decodes one task document from r. Relative image paths are
// resolved against dir. Unknown keys are rejected.
func ParseTask(r io.Reader, dir string) (*record.Task, error) {
	var doc taskDoc
	if err := decodeStrict(r, &doc); err != nil {
		return nil, err
	}
	b := builder{dir: dir}
	return b.task(&doc, "task")
}

// ParseNote decodes one note document from r.
func ParseNote(r io.Reader) (*record.Note, error) {
	var doc noteDoc
	if err := decodeStrict(r, &doc); err != nil {
		return nil, err
	}
	n := record.NewNote(doc.Name)
	n.Text = doc.Text
	n.Notebook = doc.Notebook
	return n, nil
}

func decodeStrict(r io.Reader, out any) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty document", ErrInvalid)
		}
		return err
	}
	return nil
}

type builder struct {
	dir string
}

func (b builder) fail(path, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalid, path, fmt.Sprintf(format, args...))
}

func (b builder) task(doc *taskDoc, path string) (*record.Task, error) {
	var s record.TaskState
	s.Name = doc.Name
	s.Priority = record.PriorityNone
	s.Note, s.List, s.Context, s.Tags = doc.Note, doc.List, doc.Context, string(doc.Tags)

	if doc.Type != "" {
		typ, err := record.ParseTaskType(strings.ToLower(strings.TrimSpace(doc.Type)))
		if err != nil {
			return nil, b.fail(path, "%v", err)
		}
		s.Type = typ
	}
	keys, values, err := b.typeData(&doc.TypeData, path)
	if err != nil {
		return nil, err
	}
	if s.Type.UsesTypeData() {
		s.TypeKeys, s.TypeValues = keys, values
	}
	if doc.Priority != "" {
		p, err := record.ParsePriority(doc.Priority)
		if err != nil {
			return nil, b.fail(path, "%v", err)
		}
		s.Priority = p
	}

	var hasTime bool
	if s.DueDate, hasTime, err = parseDate(doc.Due); err != nil {
		return nil, b.fail(path, "due: %v", err)
	}
	s.DueDateHasTime = s.DueDate != nil && hasTime
	if doc.DueHasTime != nil {
		s.DueDateHasTime = *doc.DueHasTime
	}
	if s.StartDate, _, err = parseDate(doc.Start); err != nil {
		return nil, b.fail(path, "start: %v", err)
	}
	if s.CompletionDate, _, err = parseDate(doc.Completed); err != nil {
		return nil, b.fail(path, "completed: %v", err)
	}

	if s.ActionImage, err = b.image(doc.ActionImage, doc.ActionImagePNG); err != nil {
		return nil, b.fail(path, "action_image: %v", err)
	}

	t, err := record.FromState(s)
	if err != nil {
		return nil, b.fail(path, "%v", err)
	}

	if doc.Repeat == "" && doc.AdvancedRepeat != "" {
		return nil, b.fail(path, "advanced_repeat needs an advanced repeat code")
	}
	if doc.Repeat != "" {
		code, err := parseRepeat(doc.Repeat)
		if err != nil {
			return nil, b.fail(path, "%v", err)
		}
		if err := t.SetRepeat(code, doc.AdvancedRepeat); err != nil {
			return nil, b.fail(path, "%v", err)
		}
	}

	if doc.CustomAction != nil {
		if err := b.custom(t, doc.CustomAction, path); err != nil {
			return nil, err
		}
	}

	for i := range doc.Subtasks {
		sub, err := b.task(&doc.Subtasks[i], fmt.Sprintf("%s.subtasks[%d]", path, i))
		if err != nil {
			return nil, err
		}
		if err := t.AddSubtask(sub); err != nil {
			return nil, b.fail(path, "%v", err)
		}
	}
	return t, nil
}

// typeData reads a mapping in document order.
func (b builder) typeData(n *yaml.Node, path string) (keys, values []string, err error) {
	if n.IsZero() {
		return nil, nil, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, nil, b.fail(path, "line %d: type_data must be a mapping", n.Line)
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if k.Kind != yaml.ScalarNode || v.Kind != yaml.ScalarNode {
			return nil, nil, b.fail(path, "line %d: type_data entries must be scalars", k.Line)
		}
		keys = append(keys, k.Value)
		values = append(values, v.Value)
	}
	return keys, values, nil
}

func (b builder) custom(t *record.Task, c *customDoc, path string) error {
	a := record.CustomAction{AppID: c.AppID, AppDisplayName: c.DisplayName}
	for _, f := range []struct {
		name string
		raw  string
		dst  **url.URL
	}{
		{"completion_notify_url", c.CompletionNotifyURL, &a.CompletionNotifyURL},
		{"completion_launch_url", c.CompletionLaunchURL, &a.CompletionLaunchURL},
		{"action_launch_url", c.ActionLaunchURL, &a.ActionLaunchURL},
	} {
		if f.raw == "" {
			continue
		}
		u, err := url.Parse(f.raw)
		if err != nil {
			return b.fail(path, "custom_action.%s: %v", f.name, err)
		}
		*f.dst = u
	}
	img, err := b.image(c.ActionImage, nil)
	if err != nil {
		return b.fail(path, "custom_action.action_image: %v", err)
	}
	a.ActionImage = img
	applied, err := t.SetCustomAction(a)
	if err != nil {
		return b.fail(path, "custom_action: %v", err)
	}
	if !applied {
		return b.fail(path, "custom_action: needs at least one URL")
	}
	return nil
}

func (b builder) image(file string, inline []byte) (*record.Image, error) {
	var data []byte
	switch {
	case file != "" && len(inline) > 0:
		return nil, errors.New("set a path or inline bytes, not both")
	case file != "":
		if !filepath.IsAbs(file) {
			file = filepath.Join(b.dir, file)
		}
		raw, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		data = raw
	case len(inline) > 0:
		data = inline
	default:
		return nil, nil
	}
	img := record.NewImage(data)
	if err := img.Validate(); err != nil {
		return nil, err
	}
	return img, nil
}

func parseDate(s string) (*time.Time, bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return &t, true, nil
	}
	t, err := time.Parse(dateOnly, s)
	if err != nil {
		return nil, false, fmt.Errorf("%q is neither RFC 3339 nor YYYY-MM-DD", s)
	}
	return &t, false, nil
}

var repeatCodes = func() map[string]record.RepeatCode {
	m := make(map[string]record.RepeatCode)
	bases := []record.RepeatCode{
		record.RepeatNone, record.RepeatWeekly, record.RepeatMonthly, record.RepeatYearly,
		record.RepeatDaily, record.RepeatBiweekly, record.RepeatBimonthly,
		record.RepeatSemiannually, record.RepeatQuarterly, record.RepeatWithParent,
		record.RepeatAdvanced,
	}
	for _, c := range bases {
		m[c.String()] = c
		if c != record.RepeatNone {
			m[(c + record.RepeatFromCompletion).String()] = c + record.RepeatFromCompletion
		}
	}
	return m
}()

func parseRepeat(s string) (record.RepeatCode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		return record.RepeatCode(n), nil
	}
	if c, ok := repeatCodes[s]; ok {
		return c, nil
	}
	return 0, fmt.Errorf("unknown repeat %q", s)
}

// MarshalTask renders t as a task document. Images are written inline.
func MarshalTask(t *record.Task) ([]byte, error) {
	return yaml.Marshal(taskToDoc(t))
}

// MarshalNote renders n as a note document.
func MarshalNote(n *record.Note) ([]byte, error) {
	return yaml.Marshal(noteDoc{Name: n.Name(), Text: n.Text, Notebook: n.Notebook})
}

func taskToDoc(t *record.Task) taskDoc {
	s := t.State()
	doc := taskDoc{
		Name:      s.Name,
		Note:      s.Note,
		List:      s.List,
		Context:   s.Context,
		Tags:      tagList(s.Tags),
		Start:     formatDate(s.StartDate),
		Completed: formatDate(s.CompletionDate),
		Due:       formatDate(s.DueDate),
	}
	if s.Type != record.TypeNormal {
		doc.Type = s.Type.String()
	}
	if s.Priority != record.PriorityNone {
		doc.Priority = strings.ToLower(s.Priority.String())
	}
	if s.DueDate != nil {
		hasTime := s.DueDateHasTime
		doc.DueHasTime = &hasTime
	}
	if s.Repeat != record.RepeatNone {
		doc.Repeat = strconv.Itoa(int(s.Repeat))
		if s.Repeat.Known() {
			doc.Repeat = s.Repeat.String()
		}
		if s.AdvancedRepeat != nil {
			doc.AdvancedRepeat = *s.AdvancedRepeat
		}
	}
	if len(s.TypeKeys) > 0 {
		doc.TypeData = yaml.Node{Kind: yaml.MappingNode}
		for i := range s.TypeKeys {
			doc.TypeData.Content = append(doc.TypeData.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s.TypeKeys[i]},
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s.TypeValues[i]})
		}
	}
	if s.ActionImage != nil {
		doc.ActionImagePNG = s.ActionImage.PNG
	}
	for _, sub := range s.Subtasks {
		doc.Subtasks = append(doc.Subtasks, taskToDoc(sub))
	}
	return doc
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}
