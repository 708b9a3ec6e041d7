package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insanj/TodoFast/pkg/exchange"
)

type cli struct {
	dir    string
	config string
}

func newCLI(t *testing.T, extra string) *cli {
	t.Helper()
	t.Setenv("PASTEBOARD_CONFIG", "")
	dir := t.TempDir()
	cfg := fmt.Sprintf(`
log:
  level: debug
  outputs: [%q]
producer:
  app_id: com.example.cli
store:
  kind: sqlite
  path: %q
%s`, filepath.Join(dir, "pasteboard.log"), filepath.Join(dir, "slots.db"), extra)
	path := filepath.Join(dir, "pasteboard.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return &cli{dir: dir, config: path}
}

func (c *cli) file(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(c.dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

// run executes one command as its own process would, so state only
// survives through the sqlite store.
func (c *cli) run(args ...string) (stdout, stderr string, err error) {
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--config", c.config}, args...))
	err = root.Execute()
	return out.String(), errOut.String(), err
}

const taskDoc = `
name: Call Bob
type: call-contact
type_data:
  mobile: 555-1111
priority: high
list: Errands
`

func TestPublishThenConsume(t *testing.T) {
	c := newCLI(t, "")
	f := c.file(t, "task.yaml", taskDoc)

	out, _, err := c.run("publish", "task", "-f", f)
	require.NoError(t, err)
	assert.Contains(t, out, "published task to "+exchange.DefaultTaskSlot)

	out, _, err = c.run("consume", "task", "--name")
	require.NoError(t, err)
	assert.Equal(t, "Call Bob\nPriority: High\nList: Errands\n", out)

	_, _, err = c.run("consume", "task")
	assert.ErrorIs(t, err, exchange.ErrNoRecord)
}

func TestConsumeAsYAML(t *testing.T) {
	c := newCLI(t, "exchange:\n  format: proto\n")
	f := c.file(t, "task.yaml", taskDoc)
	_, _, err := c.run("publish", "task", "-f", f, "--slot", "mine")
	require.NoError(t, err)

	out, _, err := c.run("consume", "task", "--slot", "mine", "--yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "name: Call Bob")
	assert.Contains(t, out, "mobile: 555-1111")
	assert.Contains(t, out, "priority: high")
}

func TestPublishNoteAndKindMismatch(t *testing.T) {
	c := newCLI(t, "")
	f := c.file(t, "note.yaml", "name: Shopping\ntext: milk\nnotebook: Home\n")
	_, _, err := c.run("publish", "note", "-f", f, "--slot", "shared")
	require.NoError(t, err)

	_, _, err = c.run("consume", "task", "--slot", "shared")
	assert.ErrorIs(t, err, exchange.ErrKindMismatch)

	out, _, err := c.run("consume", "note", "--slot", "shared")
	require.NoError(t, err)
	assert.Equal(t, "milk\n", out)
}

func TestProbe(t *testing.T) {
	c := newCLI(t, "launch:\n  handlers:\n    appigotodo: [\"true\"]\n")
	out, _, err := c.run("probe", "todo")
	require.NoError(t, err)
	assert.Equal(t, "Appigo Todo: available=true hi-res=false\n", out)

	out, _, err = c.run("probe", "notebook")
	require.NoError(t, err)
	assert.Equal(t, "Appigo Notebook: available=false hi-res=false\n", out)

	_, _, err = c.run("probe", "calendar")
	assert.Error(t, err)
}

func TestHandoff(t *testing.T) {
	c := newCLI(t, "launch:\n  handlers:\n    appigotodo: [\"true\"]\n")
	f := c.file(t, "task.yaml", taskDoc)

	out, _, err := c.run("handoff", "task", "-f", f)
	require.NoError(t, err)
	assert.Equal(t, "handed off to Appigo Todo\n", out)

	n := c.file(t, "note.yaml", "name: n\n")
	_, stderr, err := c.run("handoff", "note", "-f", n)
	require.Error(t, err)
	assert.Contains(t, err.Error(), exchange.DefaultNoteSlot)
	assert.Contains(t, stderr, exchange.Notebook.StoreURL)

	// the note stayed published for a later attempt
	out, _, err = c.run("consume", "note", "--name")
	require.NoError(t, err)
	assert.Equal(t, "n\n", out)
}

func TestRender(t *testing.T) {
	c := newCLI(t, "")
	f := c.file(t, "task.yaml", taskDoc)

	out, _, err := c.run("render", "-f", f)
	require.NoError(t, err)
	assert.Equal(t, "Priority: High\nList: Errands\n", out)

	out, _, err = c.run("render", "-f", f, "--convert", "--name")
	require.NoError(t, err)
	assert.Equal(t, "Call Bob\nPriority: High\nList: Errands\n", out)

	n := c.file(t, "note.yaml", "name: Shopping\ntext: milk\n")
	out, _, err = c.run("render", "--kind", "note", "-f", n, "--name")
	require.NoError(t, err)
	assert.Equal(t, "Shopping\nmilk\n", out)

	_, _, err = c.run("render", "--kind", "memo", "-f", n)
	assert.Error(t, err)
}

func TestBadConfig(t *testing.T) {
	c := newCLI(t, "exchange:\n  format: xml\n")
	_, _, err := c.run("probe", "todo")
	assert.Error(t, err)
}
