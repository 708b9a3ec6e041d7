package exchange

import (
	"context"

	"go.uber.org/zap"

	"github.com/insanj/TodoFast/pkg/record"
)

// Probe reports whether app can be launched. It has no side effects.
func (c *Channel) Probe(app HostApp) bool { return c.launcher.CanLaunch(app.Scheme) }

// ProbeHiRes reports whether app accepts 58x58 action images.
func (c *Channel) ProbeHiRes(app HostApp) bool {
	return app.SchemeV2 != "" && c.launcher.CanLaunch(app.SchemeV2)
}

// HandoffTask publishes t to the default task slot and launches app with
// the slot as hint. It returns false when app could not be launched; the
// record stays published so a later attempt still finds it. Errors are
// reserved for publish failures.
//
// Hi-res action images are removed from the published copy when app is
// installed without the v2 capability. When app is missing entirely the
// images are kept, so a host installed later still receives them.
func (c *Channel) HandoffTask(ctx context.Context, t *record.Task, app HostApp) (bool, error) {
	if c.Probe(app) && !c.ProbeHiRes(app) {
		if stripped, n := withoutHiResImages(t); n > 0 {
			c.log.Warn("host lacks hi-res support; dropped action images",
				zap.String("app", app.Name), zap.Int("images", n))
			t = stripped
		}
	}
	rc, err := c.PublishTask(ctx, t, "")
	if err != nil {
		return false, err
	}
	return c.launch(ctx, app, rc.Slot), nil
}

// HandoffNote publishes n to the default note slot and launches app.
func (c *Channel) HandoffNote(ctx context.Context, n *record.Note, app HostApp) (bool, error) {
	rc, err := c.PublishNote(ctx, n, "")
	if err != nil {
		return false, err
	}
	return c.launch(ctx, app, rc.Slot), nil
}

func (c *Channel) launch(ctx context.Context, app HostApp, slot string) bool {
	if c.Probe(app) && c.launcher.Launch(ctx, app.Scheme, slot) {
		c.log.Info("handed off", zap.String("app", app.Name), zap.String("slot", slot))
		return true
	}
	c.log.Warn("handoff failed; record left in slot",
		zap.String("app", app.Name),
		zap.String("slot", slot),
		zap.Bool("prompt", c.showErrorAlerts))
	if c.showErrorAlerts {
		c.prompter.PromptUnavailable(ctx, app)
	}
	return false
}

// withoutHiResImages returns a copy of t with every 58x58 action image
// removed and how many were removed. With none found it returns t itself.
func withoutHiResImages(t *record.Task) (*record.Task, int) {
	if !hasHiRes(t) {
		return t, 0
	}
	c := t.Clone()
	return c, stripHiRes(c)
}

func hasHiRes(t *record.Task) bool {
	if t.ActionImage.Scale() == 2 {
		return true
	}
	for _, s := range t.Subtasks() {
		if hasHiRes(s) {
			return true
		}
	}
	return false
}

func stripHiRes(t *record.Task) int {
	n := 0
	if t.ActionImage.Scale() == 2 {
		t.ActionImage = nil
		n++
	}
	for _, s := range t.Subtasks() {
		n += stripHiRes(s)
	}
	return n
}
