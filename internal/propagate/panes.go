package propagate

import (
	"sync"

	"github.com/pptlabs/pastelink/internal/bundle"
	"github.com/pptlabs/pastelink/internal/host"
)

// Panes is a RecorderSet over a bundle store. Only windows that opened a
// recorder pane take part in propagation.
type Panes struct {
	mu      sync.RWMutex
	store   *bundle.Store
	scope   string
	windows map[host.WindowID]*bundle.Recorder
}

// NewPanes creates an empty pane registry backed by store. Bundles of a
// window live in the namespace "scope:window", or "window" when scope is
// empty, so registries with different scopes never see each other's bundles.
func NewPanes(store *bundle.Store, scope string) *Panes {
	return &Panes{
		store:   store,
		scope:   scope,
		windows: make(map[host.WindowID]*bundle.Recorder),
	}
}

// Open attaches a recorder pane to a window, returning the existing one if
// the window already has a pane.
func (p *Panes) Open(window host.WindowID) *bundle.Recorder {
	p.mu.Lock()
	defer p.mu.Unlock()

	if r, ok := p.windows[window]; ok {
		return r
	}
	r := p.store.Recorder(p.namespace(window))
	p.windows[window] = r
	return r
}

// Close detaches the pane of a window. Stored bundles are kept.
func (p *Panes) Close(window host.WindowID) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.windows, window)
}

// Pane returns the concrete recorder of a window.
func (p *Panes) Pane(window host.WindowID) (*bundle.Recorder, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	r, ok := p.windows[window]
	return r, ok
}

// Recorder implements RecorderSet.
func (p *Panes) Recorder(window host.WindowID) (Recorder, bool) {
	r, ok := p.Pane(window)
	if !ok {
		return nil, false
	}
	return r, true
}

func (p *Panes) namespace(window host.WindowID) string {
	if p.scope == "" {
		return string(window)
	}
	return p.scope + ":" + string(window)
}
