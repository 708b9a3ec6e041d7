// Package exchange publishes Task and Note archives to named slots, consumes
// them at most once, and hands them off to a host application.
//
// Slot lifecycle: Empty → Published → Consumed, or Published → Expired when
// the store evicts it. Publishing overwrites an unconsumed record.
package exchange

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/insanj/TodoFast/pkg/archive"
	"github.com/insanj/TodoFast/pkg/codec"
	"github.com/insanj/TodoFast/pkg/launch"
	"github.com/insanj/TodoFast/pkg/slotstore"
)

// Well-known slots read by the hosts.
const (
	DefaultTaskSlot = "com.appigo.pasteboard.task"
	DefaultNoteSlot = "com.appigo.pasteboard.note"
)

var (
	// ErrNoRecord means the slot is empty, already consumed or expired.
	ErrNoRecord = errors.New("exchange: no record present")
	// ErrKindMismatch means the slot holds the other record kind. The slot
	// is left as it was.
	ErrKindMismatch = errors.New("exchange: slot holds a different record kind")
	// ErrCorruptSlot means the slot payload is not a slot document. The
	// payload is removed.
	ErrCorruptSlot = fmt.Errorf("%w: corrupt slot document", archive.ErrMalformed)
)

// Channel is the producer and consumer side of the handoff protocol. It is
// configured once at construction and is safe for use by one goroutine at a
// time, matching the synchronous protocol.
type Channel struct {
	store    slotstore.Store
	launcher launch.Launcher
	enc      *archive.Encoder
	dec      *archive.Decoder
	docs     codec.Codec
	log      *zap.Logger

	prompter        Prompter
	showErrorAlerts bool
	slotTTL         time.Duration
	producer        string
	taskSlot        string
	noteSlot        string
	format          archive.Format

	nowFn func() time.Time
	newID func() string
}

// Option configures a Channel.
type Option func(*Channel)

// WithLogger sets the logger; the default is zap.L().
func WithLogger(l *zap.Logger) Option { return func(c *Channel) { c.log = l } }

// WithShowErrorAlerts controls whether a failed handoff invokes the
// Prompter. It defaults to true.
func WithShowErrorAlerts(on bool) Option { return func(c *Channel) { c.showErrorAlerts = on } }

// WithPrompter replaces the default LogPrompter.
func WithPrompter(p Prompter) Option { return func(c *Channel) { c.prompter = p } }

// WithSlotTTL bounds how long a published record stays in its slot. Zero
// keeps it until consumed.
func WithSlotTTL(d time.Duration) Option { return func(c *Channel) { c.slotTTL = d } }

// WithProducer records the publishing application's id in every slot
// document.
func WithProducer(appID string) Option { return func(c *Channel) { c.producer = appID } }

// WithDefaultSlots overrides the slots used when none is given. Empty
// arguments keep the current value.
func WithDefaultSlots(task, note string) Option {
	return func(c *Channel) {
		if task != "" {
			c.taskSlot = task
		}
		if note != "" {
			c.noteSlot = note
		}
	}
}

// WithFormat selects the archive body format; the default is CBOR.
func WithFormat(f archive.Format) Option { return func(c *Channel) { c.format = f } }

// New builds a channel over store and launcher.
func New(store slotstore.Store, launcher launch.Launcher, opts ...Option) (*Channel, error) {
	if store == nil {
		return nil, errors.New("exchange: nil store")
	}
	if launcher == nil {
		return nil, errors.New("exchange: nil launcher")
	}
	c := &Channel{
		store:           store,
		launcher:        launcher,
		docs:            codec.JSON(),
		showErrorAlerts: true,
		taskSlot:        DefaultTaskSlot,
		noteSlot:        DefaultNoteSlot,
		format:          archive.FormatCBOR,
		nowFn:           time.Now,
		newID:           uuid.NewString,
	}
	for _, o := range opts {
		o(c)
	}
	if c.log == nil {
		c.log = zap.L()
	}
	c.log = c.log.Named("exchange")
	if c.prompter == nil {
		c.prompter = LogPrompter{Log: c.log}
	}
	enc, err := archive.NewEncoder(c.format)
	if err != nil {
		return nil, fmt.Errorf("exchange: %w", err)
	}
	c.enc = enc
	c.dec = archive.NewDecoder(c.log)
	return c, nil
}

// ShowErrorAlerts reports the configured prompt behaviour.
func (c *Channel) ShowErrorAlerts() bool { return c.showErrorAlerts }

// TaskSlot and NoteSlot return the default slots.
func (c *Channel) TaskSlot() string { return c.taskSlot }
func (c *Channel) NoteSlot() string { return c.noteSlot }
