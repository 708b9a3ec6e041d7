package exchange

import (
	"context"

	"go.uber.org/zap"
)

// HostApp describes an application that imports records. Scheme is probed
// for plain support and SchemeV2, when set, for hi-res action image support.
type HostApp struct {
	Name     string
	Scheme   string
	SchemeV2 string
	StoreURL string // where a missing host can be installed from
}

var (
	Todo = HostApp{
		Name:     "Appigo Todo",
		Scheme:   "appigotodo",
		SchemeV2: "appigotodov2",
		StoreURL: "http://phobos.apple.com/WebObjects/MZStore.woa/wa/viewSoftware?id=282778557&mt=8",
	}
	Notebook = HostApp{
		Name:     "Appigo Notebook",
		Scheme:   "appigonotebook",
		StoreURL: "http://phobos.apple.com/WebObjects/MZStore.woa/wa/viewSoftware?id=290089621&mt=8",
	}
)

// HostByName resolves "todo" or "notebook".
func HostByName(name string) (HostApp, bool) {
	switch name {
	case "todo":
		return Todo, true
	case "notebook":
		return Notebook, true
	default:
		return HostApp{}, false
	}
}

// Prompter tells the user that a host could not be opened, typically
// offering its StoreURL.
type Prompter interface {
	PromptUnavailable(ctx context.Context, app HostApp)
}

// PrompterFunc adapts a function to Prompter.
type PrompterFunc func(ctx context.Context, app HostApp)

func (f PrompterFunc) PromptUnavailable(ctx context.Context, app HostApp) { f(ctx, app) }

// LogPrompter reports unavailable hosts through a logger. It is the default
// for processes without a user interface.
type LogPrompter struct{ Log *zap.Logger }

func (p LogPrompter) PromptUnavailable(_ context.Context, app HostApp) {
	log := p.Log
	if log == nil {
		log = zap.L()
	}
	log.Warn("host application is not available; install it to import records",
		zap.String("app", app.Name),
		zap.String("store_url", app.StoreURL))
}
