package exchange

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/insanj/TodoFast/pkg/archive"
	"github.com/insanj/TodoFast/pkg/record"
)

// slotDoc is what a slot actually holds: the archive plus enough metadata
// to check the kind before taking it.
type slotDoc struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	PublishedAt time.Time `json:"published_at"`
	Producer    string    `json:"producer,omitempty"`
	Archive     []byte    `json:"archive"`
}

// Receipt identifies one published record.
type Receipt struct {
	ID          string
	Slot        string
	Kind        archive.Kind
	PublishedAt time.Time
	Producer    string
	Size        int // archive bytes
}

// Delivery is a consumed record with the anomalies met while decoding it.
type Delivery[T any] struct {
	Record   T
	Warnings archive.Warnings
	Receipt  Receipt
}

func parseKind(s string) archive.Kind {
	switch s {
	case archive.KindTask.String():
		return archive.KindTask
	case archive.KindNote.String():
		return archive.KindNote
	default:
		return archive.KindUnknown
	}
}

// PublishTask archives t now and stores it in slot, or in the default task
// slot when slot is empty. Later changes to t do not reach the slot.
func (c *Channel) PublishTask(ctx context.Context, t *record.Task, slot string) (Receipt, error) {
	if t == nil {
		return Receipt{}, errors.New("exchange: nil task")
	}
	data, err := c.enc.EncodeTask(c.withProducerAppID(t))
	if err != nil {
		return Receipt{}, fmt.Errorf("exchange: publish task: %w", err)
	}
	return c.publish(ctx, archive.KindTask, data, orDefault(slot, c.taskSlot))
}

// PublishNote archives n and stores it in slot or the default note slot.
func (c *Channel) PublishNote(ctx context.Context, n *record.Note, slot string) (Receipt, error) {
	if n == nil {
		return Receipt{}, errors.New("exchange: nil note")
	}
	data, err := c.enc.EncodeNote(n)
	if err != nil {
		return Receipt{}, fmt.Errorf("exchange: publish note: %w", err)
	}
	return c.publish(ctx, archive.KindNote, data, orDefault(slot, c.noteSlot))
}

// withProducerAppID fills in the producer as the custom action's app id
// when the action names none. t is left untouched.
func (c *Channel) withProducerAppID(t *record.Task) *record.Task {
	a, ok := t.CustomAction()
	if !ok || c.producer == "" || a.AppID != "" {
		return t
	}
	a.AppID = c.producer
	cl := t.Clone()
	if applied, err := cl.SetCustomAction(a); err != nil || !applied {
		return t
	}
	return cl
}

func (c *Channel) publish(ctx context.Context, kind archive.Kind, data []byte, slot string) (Receipt, error) {
	doc := slotDoc{
		ID:          c.newID(),
		Kind:        kind.String(),
		PublishedAt: c.nowFn().UTC(),
		Producer:    c.producer,
		Archive:     data,
	}
	payload, err := c.docs.Marshal(doc)
	if err != nil {
		return Receipt{}, fmt.Errorf("exchange: encode slot document: %w", err)
	}
	if err := c.store.Put(ctx, slot, payload, c.slotTTL); err != nil {
		return Receipt{}, fmt.Errorf("exchange: publish %s: %w", kind, err)
	}
	rc := receipt(slot, doc)
	c.log.Info("record published",
		zap.String("slot", slot),
		zap.Stringer("kind", kind),
		zap.String("id", rc.ID),
		zap.Int("bytes", rc.Size))
	return rc, nil
}

func receipt(slot string, doc slotDoc) Receipt {
	return Receipt{
		ID:          doc.ID,
		Slot:        slot,
		Kind:        parseKind(doc.Kind),
		PublishedAt: doc.PublishedAt,
		Producer:    doc.Producer,
		Size:        len(doc.Archive),
	}
}

// ConsumeTask takes the task in slot (or the default task slot) and decodes
// it. A second call before the next publish returns ErrNoRecord.
func (c *Channel) ConsumeTask(ctx context.Context, slot string) (Delivery[*record.Task], error) {
	slot = orDefault(slot, c.taskSlot)
	doc, err := c.take(ctx, slot, archive.KindTask)
	if err != nil {
		return Delivery[*record.Task]{}, err
	}
	t, warns, err := c.dec.DecodeTask(doc.Archive)
	if err != nil {
		c.log.Warn("discarded undecodable task", zap.String("slot", slot), zap.Error(err))
		return Delivery[*record.Task]{}, fmt.Errorf("exchange: consume %s: %w", slot, err)
	}
	return Delivery[*record.Task]{Record: t, Warnings: warns, Receipt: receipt(slot, doc)}, nil
}

// ConsumeNote takes the note in slot (or the default note slot).
func (c *Channel) ConsumeNote(ctx context.Context, slot string) (Delivery[*record.Note], error) {
	slot = orDefault(slot, c.noteSlot)
	doc, err := c.take(ctx, slot, archive.KindNote)
	if err != nil {
		return Delivery[*record.Note]{}, err
	}
	n, warns, err := c.dec.DecodeNote(doc.Archive)
	if err != nil {
		c.log.Warn("discarded undecodable note", zap.String("slot", slot), zap.Error(err))
		return Delivery[*record.Note]{}, fmt.Errorf("exchange: consume %s: %w", slot, err)
	}
	return Delivery[*record.Note]{Record: n, Warnings: warns, Receipt: receipt(slot, doc)}, nil
}

// take checks the slot holds want before removing it, so a consumer of the
// wrong kind leaves the record for its rightful reader.
func (c *Channel) take(ctx context.Context, slot string, want archive.Kind) (slotDoc, error) {
	raw, ok, err := c.store.Peek(ctx, slot)
	if err != nil {
		return slotDoc{}, fmt.Errorf("exchange: read %s: %w", slot, err)
	}
	if !ok {
		return slotDoc{}, ErrNoRecord
	}
	doc, err := c.parseDoc(raw)
	if err != nil {
		if _, derr := c.store.Delete(ctx, slot); derr != nil {
			return slotDoc{}, errors.Join(err, derr)
		}
		c.log.Warn("discarded corrupt slot", zap.String("slot", slot), zap.Error(err))
		return slotDoc{}, err
	}
	if got := parseKind(doc.Kind); got != want {
		return slotDoc{}, fmt.Errorf("%w: %s holds %s, want %s", ErrKindMismatch, slot, doc.Kind, want)
	}

	raw, ok, err = c.store.Take(ctx, slot)
	if err != nil {
		return slotDoc{}, fmt.Errorf("exchange: take %s: %w", slot, err)
	}
	if !ok {
		return slotDoc{}, ErrNoRecord
	}
	if doc, err = c.parseDoc(raw); err != nil {
		return slotDoc{}, err
	}
	if got := parseKind(doc.Kind); got != want {
		// overwritten between peek and take; hand it back
		if err := c.store.Put(ctx, slot, raw, c.slotTTL); err != nil {
			return slotDoc{}, fmt.Errorf("exchange: restore %s: %w", slot, err)
		}
		return slotDoc{}, fmt.Errorf("%w: %s holds %s, want %s", ErrKindMismatch, slot, doc.Kind, want)
	}
	c.log.Info("record consumed", zap.String("slot", slot), zap.Stringer("kind", want), zap.String("id", doc.ID))
	return doc, nil
}

func (c *Channel) parseDoc(raw []byte) (slotDoc, error) {
	var doc slotDoc
	if err := c.docs.Unmarshal(raw, &doc); err != nil {
		return slotDoc{}, fmt.Errorf("%w: %v", ErrCorruptSlot, err)
	}
	if parseKind(doc.Kind) == archive.KindUnknown {
		return slotDoc{}, fmt.Errorf("%w: kind %q", ErrCorruptSlot, doc.Kind)
	}
	return doc, nil
}

func orDefault(slot, def string) string {
	if slot == "" {
		return def
	}
	return slot
}
