package archive

import (
	"bytes"
	"fmt"
	"image"
	"math"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/insanj/TodoFast/pkg/record"
)

var formats = []Format{FormatCBOR, FormatProto}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func encoder(t *testing.T, f Format) *Encoder {
	t.Helper()
	e, err := NewEncoder(f)
	require.NoError(t, err)
	return e
}

func sampleTask(t *testing.T) *record.Task {
	t.Helper()
	due := time.Date(2026, 10, 24, 17, 30, 0, 0, time.UTC)
	start := time.Date(1969, 7, 20, 20, 17, 0, 0, time.UTC)

	root := record.NewTask("Move house")
	require.NoError(t, root.SetType(record.TypeProject, nil, nil))
	root.Priority = record.PriorityHigh
	root.DueDate = &due
	root.DueDateHasTime = true
	root.StartDate = &start
	root.List = "Home"
	root.Context = "Errands"
	root.Tags = "boxes,van"
	root.Note = "call movers\nbook van"
	require.NoError(t, root.SetRepeat(record.RepeatAdvanced+record.RepeatFromCompletion, "Every 2 weeks"))

	call := record.NewTask("Call Bob")
	require.NoError(t, call.SetType(record.TypeCallContact, []string{"mobile", "home"}, []string{"555-1111", "555-2222"}))
	call.ActionImage = record.NewImage(testPNG(t, 58, 58))
	done := due.Add(-48 * time.Hour)
	call.CompletionDate = &done

	list := record.NewTask("Pack")
	require.NoError(t, list.SetType(record.TypeChecklist, nil, nil))
	require.NoError(t, list.AddSubtask(record.NewTask("Plates")))
	require.NoError(t, list.AddSubtask(record.NewTask("Cups")))

	require.NoError(t, root.AddSubtask(call))
	require.NoError(t, root.AddSubtask(list))
	return root
}

func TestTaskRoundTrip(t *testing.T) {
	for _, f := range formats {
		t.Run(f.String(), func(t *testing.T) {
			task := sampleTask(t)
			data, err := encoder(t, f).EncodeTask(task)
			require.NoError(t, err)

			h, err := ReadHeader(data)
			require.NoError(t, err)
			assert.Equal(t, Header{Version: CurrentVersion, Kind: KindTask, Format: f}, h)

			got, warns, err := NewDecoder(zap.NewNop()).DecodeTask(data)
			require.NoError(t, err)
			assert.Empty(t, warns)
			assert.True(t, got.Equal(task), "decoded task differs")
		})
	}
}

func TestNoteRoundTrip(t *testing.T) {
	for _, f := range formats {
		n := record.NewNote("Groceries")
		n.Text = "eggs\nmilk"
		n.Notebook = "Home"
		data, err := encoder(t, f).EncodeNote(n)
		require.NoError(t, err)
		got, warns, err := NewDecoder(zap.NewNop()).DecodeNote(data)
		require.NoError(t, err)
		assert.Empty(t, warns)
		assert.True(t, got.Equal(n), f.String())
	}
}

func TestCallContactKeepsPairOrder(t *testing.T) {
	task := record.NewTask("Call Bob")
	require.NoError(t, task.SetType(record.TypeCallContact, []string{"mobile", "home"}, []string{"555-1111", "555-2222"}))
	for _, f := range formats {
		data, err := encoder(t, f).EncodeTask(task)
		require.NoError(t, err)
		got, _, err := NewDecoder(zap.NewNop()).DecodeTask(data)
		require.NoError(t, err)
		assert.Equal(t, []string{"mobile", "home"}, got.TypeKeys())
		assert.Equal(t, []string{"555-1111", "555-2222"}, got.TypeValues())
	}
}

func TestProjectDropsTypeData(t *testing.T) {
	task := record.NewTask("p")
	require.NoError(t, task.SetType(record.TypeProject, []string{"a"}, []string{"b"}))
	data, err := encoder(t, FormatCBOR).EncodeTask(task)
	require.NoError(t, err)
	got, _, err := NewDecoder(zap.NewNop()).DecodeTask(data)
	require.NoError(t, err)
	assert.Equal(t, record.TypeProject, got.Type())
	assert.Empty(t, got.TypeKeys())
	assert.Empty(t, got.TypeValues())
}

func TestEncodeIsSnapshotAndDeterministic(t *testing.T) {
	task := sampleTask(t)
	want := task.Clone()
	enc := encoder(t, FormatCBOR)
	a, err := enc.EncodeTask(task)
	require.NoError(t, err)
	b, err := enc.EncodeTask(task)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	task.Note = "changed"
	task.ActionImage = record.NewImage(testPNG(t, 29, 29))
	got, _, err := NewDecoder(zap.NewNop()).DecodeTask(a)
	require.NoError(t, err)
	assert.True(t, got.Equal(want))
}

// bodyArchive frames hand-built fields so tests can write archives an
// encoder of this version would not produce.
func bodyArchive(t *testing.T, f Format, k Kind, version uint8, fs fields) []byte {
	t.Helper()
	be, err := backendFor(f)
	require.NoError(t, err)
	body, err := be.marshal(fs)
	require.NoError(t, err)
	return Header{Version: version, Kind: k, Format: f}.marshal(body)
}

func TestForwardCompatUnknownKey(t *testing.T) {
	for _, f := range formats {
		var sub fields
		sub.str(taskName, "child")
		sub.str(99, "from the future")

		var fs fields
		fs.str(taskName, "Buy milk")
		fs.integer(taskType, int64(record.TypeChecklist))
		fs.records(taskSubtasks, []fields{sub})
		fs.integer(40, 7)

		got, warns, err := NewDecoder(zap.NewNop()).DecodeTask(bodyArchive(t, f, KindTask, CurrentVersion, fs))
		require.NoError(t, err, f.String())
		assert.Equal(t, "Buy milk", got.Name())
		require.Len(t, got.Subtasks(), 1)
		assert.Equal(t, "child", got.Subtasks()[0].Name())
		require.Len(t, warns, 2)
		for _, w := range warns {
			assert.Equal(t, WarnUnknownKey, w.Kind)
		}
		assert.Equal(t, "task.subtasks[0]", warns[1].Path)
		assert.Equal(t, uint64(99), warns[1].Key)
	}
}

func TestBackwardCompatMissingKeys(t *testing.T) {
	for _, f := range formats {
		var fs fields
		fs.str(taskName, "Old task")
		got, warns, err := NewDecoder(zap.NewNop()).DecodeTask(bodyArchive(t, f, KindTask, CurrentVersion, fs))
		require.NoError(t, err)
		assert.Empty(t, warns)
		assert.True(t, got.Equal(record.NewTask("Old task")))
		assert.Nil(t, got.DueDate)
		_, ok := got.AdvancedRepeat()
		assert.False(t, ok)

		got, _, err = NewDecoder(zap.NewNop()).DecodeTask(bodyArchive(t, f, KindTask, CurrentVersion, nil))
		require.NoError(t, err)
		assert.Equal(t, record.UnknownName, got.Name())
	}
}

func TestNewerVersionWarns(t *testing.T) {
	var fs fields
	fs.str(noteName, "n")
	n, warns, err := NewDecoder(zap.NewNop()).DecodeNote(bodyArchive(t, FormatCBOR, KindNote, CurrentVersion+1, fs))
	require.NoError(t, err)
	assert.Equal(t, "n", n.Name())
	assert.True(t, warns.Has(WarnNewerVersion))
}

func TestBadEnumsFallBack(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	dec := NewDecoder(zap.New(core))
	for _, f := range formats {
		var fs fields
		fs.str(taskName, "x")
		fs.integer(taskType, 42)
		fs.integer(taskPriority, -1)
		got, warns, err := dec.DecodeTask(bodyArchive(t, f, KindTask, CurrentVersion, fs))
		require.NoError(t, err)
		assert.Equal(t, record.TypeNormal, got.Type())
		assert.Equal(t, record.PriorityNone, got.Priority)
		require.Len(t, warns, 2)
		assert.Equal(t, WarnBadEnum, warns[0].Kind)
		assert.Equal(t, WarnBadEnum, warns[1].Kind)
	}
	assert.Equal(t, 4, logs.FilterMessage("archive decode anomaly").Len())

	// codes wider than int64 only exist in CBOR bodies
	for name, m := range map[string]map[any]any{
		"type 2^63":       {uint64(taskName): "x", uint64(taskType): uint64(1) << 63},
		"priority max":    {uint64(taskName): "x", uint64(taskPriority): uint64(math.MaxUint64)},
		"repeat max":      {uint64(taskName): "x", uint64(taskRepeat): uint64(math.MaxUint64)},
		"priority 2^63+1": {uint64(taskName): "x", uint64(taskPriority): uint64(1)<<63 + 1},
	} {
		got, warns, err := NewDecoder(zap.NewNop()).DecodeTask(cborArchive(t, KindTask, m))
		require.NoError(t, err, name)
		assert.Equal(t, "x", got.Name(), name)
		assert.Equal(t, record.TypeNormal, got.Type(), name)
		assert.Equal(t, record.PriorityNone, got.Priority, name)
		assert.Equal(t, record.RepeatNone, got.Repeat(), name)
		require.Len(t, warns, 1, name)
		assert.Equal(t, WarnBadEnum, warns[0].Kind, name)
	}
}

// cborArchive frames a hand-built CBOR map, for keys and values the fields
// type cannot express.
func cborArchive(t *testing.T, k Kind, m map[any]any) []byte {
	t.Helper()
	body, err := cborBody.c.Marshal(m)
	require.NoError(t, err)
	return Header{Version: CurrentVersion, Kind: k, Format: FormatCBOR}.marshal(body)
}

func TestNonIntegerCBORKeysSkipped(t *testing.T) {
	got, warns, err := NewDecoder(zap.NewNop()).DecodeTask(cborArchive(t, KindTask, map[any]any{
		uint64(taskName):     "x",
		uint64(taskPriority): uint64(record.PriorityLow),
		"k":                  "v",
		int64(-3):            1,
	}))
	require.NoError(t, err)
	assert.Equal(t, "x", got.Name())
	assert.Equal(t, record.PriorityLow, got.Priority)
	require.Len(t, warns, 2)
	for _, w := range warns {
		assert.Equal(t, WarnUnknownKey, w.Kind)
		assert.Equal(t, "task", w.Path)
	}

	n, warns, err := NewDecoder(zap.NewNop()).DecodeNote(cborArchive(t, KindNote, map[any]any{
		uint64(noteName): "n",
		"extra":          true,
	}))
	require.NoError(t, err)
	assert.Equal(t, "n", n.Name())
	assert.True(t, warns.Has(WarnUnknownKey))
}

func TestBadImageDropped(t *testing.T) {
	for _, f := range formats {
		task := record.NewTask("x")
		task.ActionImage = record.NewImage(testPNG(t, 30, 30))
		data, err := encoder(t, f).EncodeTask(task)
		require.NoError(t, err)
		got, warns, err := NewDecoder(zap.NewNop()).DecodeTask(data)
		require.NoError(t, err)
		assert.Nil(t, got.ActionImage)
		assert.True(t, warns.Has(WarnBadImage))

		task.ActionImage = record.NewImage([]byte("garbage"))
		data, err = encoder(t, f).EncodeTask(task)
		require.NoError(t, err)
		got, _, err = NewDecoder(zap.NewNop()).DecodeTask(data)
		require.NoError(t, err)
		assert.Nil(t, got.ActionImage)
	}
}

func chain(n int) *record.Task {
	root := record.NewTask("level 1")
	cur := root
	for i := 2; i <= n; i++ {
		next := record.NewTask("level")
		_ = cur.AddSubtask(next)
		cur = next
	}
	return root
}

func chainFields(n int) fields {
	var fs fields
	fs.str(taskName, "leaf")
	for i := 1; i < n; i++ {
		var parent fields
		parent.str(taskName, "level")
		parent.records(taskSubtasks, []fields{fs})
		fs = parent
	}
	return fs
}

func TestDepthCeiling(t *testing.T) {
	for _, f := range formats {
		enc := encoder(t, f)
		data, err := enc.EncodeTask(chain(MaxDepth))
		require.NoError(t, err)
		got, _, err := NewDecoder(zap.NewNop()).DecodeTask(data)
		require.NoError(t, err)
		assert.Equal(t, MaxDepth, got.Depth())

		// the model refuses the 65th level, so only foreign bodies reach it
		assert.Equal(t, MaxDepth, chain(MaxDepth+1).Depth())

		for _, n := range []int{MaxDepth + 1, 4 * MaxDepth} {
			_, _, err = NewDecoder(zap.NewNop()).DecodeTask(bodyArchive(t, f, KindTask, CurrentVersion, chainFields(n)))
			assert.ErrorIs(t, err, ErrTooDeep, "%s depth %d", f, n)
			var de *DecodeError
			assert.ErrorAs(t, err, &de)
		}
	}
}

func TestMalformed(t *testing.T) {
	good, err := encoder(t, FormatCBOR).EncodeTask(record.NewTask("x"))
	require.NoError(t, err)
	goodProto, err := encoder(t, FormatProto).EncodeTask(record.NewTask("x"))
	require.NoError(t, err)

	var wrongType fields
	wrongType.integer(taskName, 5)

	var badTypeData fields
	badTypeData.str(taskName, "x")
	badTypeData.bytes(taskTypeData, []byte{0xff, 0x00})

	cases := map[string][]byte{
		"empty":           nil,
		"short":           good[:3],
		"bad magic":       append([]byte("XP"), good[2:]...),
		"version zero":    append([]byte{'A', 'P', 0}, good[3:]...),
		"unknown format":  append([]byte{'A', 'P', 1, 1, 9}, good[5:]...),
		"truncated cbor":  good[:len(good)-2],
		"truncated proto": goodProto[:len(goodProto)-1],
		"trailing cbor":   append(append([]byte(nil), good...), 0x01),
		"wrong wire type": bodyArchive(t, FormatProto, KindTask, CurrentVersion, wrongType),
		"wrong cbor type": bodyArchive(t, FormatCBOR, KindTask, CurrentVersion, wrongType),
		"bad type data":   bodyArchive(t, FormatCBOR, KindTask, CurrentVersion, badTypeData),
	}
	for name, data := range cases {
		got, warns, err := NewDecoder(zap.NewNop()).DecodeTask(data)
		assert.ErrorIs(t, err, ErrMalformed, name)
		var de *DecodeError
		assert.ErrorAs(t, err, &de, name)
		assert.Nil(t, got, name)
		assert.Nil(t, warns, name)
	}
}

func TestWrongKind(t *testing.T) {
	data, err := encoder(t, FormatCBOR).EncodeNote(record.NewNote("n"))
	require.NoError(t, err)
	_, _, err = NewDecoder(zap.NewNop()).DecodeTask(data)
	assert.ErrorIs(t, err, ErrWrongKind)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestDateOnlyDueKeepsProducerDay(t *testing.T) {
	zones := []*time.Location{
		time.FixedZone("CEST", 2*60*60),
		time.FixedZone("PDT", -7*60*60),
		time.FixedZone("NZDT", 13*60*60),
	}
	for _, f := range formats {
		for _, loc := range zones {
			for _, hour := range []int{0, 23} {
				due := time.Date(2026, 10, 24, hour, 0, 0, 0, loc)
				task := record.NewTask("Jeep Liberty: Change Oil")
				task.DueDate = &due

				data, err := encoder(t, f).EncodeTask(task)
				require.NoError(t, err)
				got, warns, err := NewDecoder(zap.NewNop()).DecodeTask(data)
				require.NoError(t, err)
				assert.Empty(t, warns)

				name := fmt.Sprintf("%s %s %02d:00", f, loc, hour)
				assert.Equal(t, "Jeep Liberty: Change Oil\nDue: 2026-10-24", got.PlainText(true), name)
				assert.Equal(t, "Due: 2026-10-24", got.NoteRepresentation().Text, name)
				assert.True(t, got.Equal(task), name)
			}
		}
	}
}

func TestTimeOutOfRange(t *testing.T) {
	task := record.NewTask("x")
	far := time.Date(3000, 1, 1, 0, 0, 0, 0, time.UTC)
	task.DueDate = &far
	_, err := encoder(t, FormatCBOR).EncodeTask(task)
	assert.ErrorIs(t, err, ErrTimeRange)
}

func TestTypeData(t *testing.T) {
	b, err := EncodeTypeData([]string{" Mobile ", "home"}, []string{"555", ""})
	require.NoError(t, err)
	keys, values, err := DecodeTypeData(b)
	require.NoError(t, err)
	assert.Equal(t, []string{" Mobile ", "home"}, keys)
	assert.Equal(t, []string{"555", ""}, values)

	_, err = EncodeTypeData([]string{"a"}, nil)
	assert.ErrorIs(t, err, record.ErrTypeDataMismatch)

	bad, err := typeDataCodec.Marshal([][]string{{"only-key"}})
	require.NoError(t, err)
	_, _, err = DecodeTypeData(bad)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("proto")
	require.NoError(t, err)
	assert.Equal(t, FormatProto, f)
	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatCBOR, f)
	_, err = ParseFormat("xml")
	assert.Error(t, err)
	_, err = NewEncoder(Format(7))
	assert.Error(t, err)
}
