// Package launch opens host applications by URL scheme. The exchange channel
// only needs to ask whether a host is reachable and to start it with a hint
// naming the slot it should read.
package launch

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
)

// Launcher is the capability to start a host application. Identifiers are
// URL schemes such as "appigotodo" or "appigotodo://".
type Launcher interface {
	CanLaunch(id string) bool
	Launch(ctx context.Context, id, hint string) bool
}

// Scheme normalizes an identifier to a lower-case scheme without "://".
func Scheme(id string) string {
	id = strings.TrimSpace(id)
	if i := strings.Index(id, ":"); i >= 0 {
		id = id[:i]
	}
	return strings.ToLower(id)
}

// URL builds the launch URL handed to a host: scheme://pasteboard?slot=hint.
func URL(id, hint string) string {
	u := url.URL{Scheme: Scheme(id), Host: "pasteboard"}
	if hint != "" {
		u.RawQuery = url.Values{"slot": {hint}}.Encode()
	}
	return u.String()
}

// Handler is started for a registered scheme. A non-nil error means the host
// could not be opened.
type Handler func(ctx context.Context, launchURL string) error

var ErrRegistered = errors.New("launch: scheme already registered")

// Registry is an in-process launcher: hosts living in the same process
// register a handler per scheme.
type Registry struct {
	mu       sync.Mutex
	handlers map[string]Handler
}

func NewRegistry() *Registry { return &Registry{handlers: make(map[string]Handler)} }

// Register installs h for id. The returned func removes it again.
func (r *Registry) Register(id string, h Handler) (func(), error) {
	scheme := Scheme(id)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.handlers[scheme]; ok {
		return nil, fmt.Errorf("%w: %s", ErrRegistered, scheme)
	}
	r.handlers[scheme] = h
	return func() {
		r.mu.Lock()
		delete(r.handlers, scheme)
		r.mu.Unlock()
	}, nil
}

func (r *Registry) CanLaunch(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.handlers[Scheme(id)]
	return ok
}

// Launch runs the handler synchronously and reports whether it succeeded.
func (r *Registry) Launch(ctx context.Context, id, hint string) bool {
	r.mu.Lock()
	h := r.handlers[Scheme(id)]
	r.mu.Unlock()
	if h == nil {
		return false
	}
	return h(ctx, URL(id, hint)) == nil
}
