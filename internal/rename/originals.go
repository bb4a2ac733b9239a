package rename

import (
	"errors"

	"github.com/charmbracelet/log"

	"github.com/pptlabs/pastelink/internal/correlate"
	"github.com/pptlabs/pastelink/internal/host"
	"github.com/pptlabs/pastelink/internal/snapshot"
)

// Recoverer rebuilds an original whose reference became unreadable.
type Recoverer interface {
	Recover(broken host.Shape, last snapshot.Shape) (host.Shape, error)
}

// Marker resolves the target name of every copied original before the pasted
// shapes are renamed. With marking enabled, a default-named original is itself
// renamed to its bracket form so the source and the pasted copy share a name.
type Marker struct {
	recoverer Recoverer
	mark      bool
	logger    *log.Logger
}

// NewMarker creates a Marker. recoverer may be nil, in which case unreadable
// originals only get a fallback target name.
func NewMarker(recoverer Recoverer, mark bool, logger *log.Logger) *Marker {
	if logger == nil {
		logger = log.Default()
	}
	return &Marker{
		recoverer: recoverer,
		mark:      mark,
		logger:    logger.With("component", "marker"),
	}
}

// Targets returns the target name for each entry, in entry order.
func (m *Marker) Targets(entries []correlate.ShapeEntry) []string {
	targets := make([]string, len(entries))
	for i, e := range entries {
		targets[i] = m.target(e)
	}
	return targets
}

func (m *Marker) target(e correlate.ShapeEntry) string {
	current, err := e.Ref.Read()
	if err != nil {
		if errors.Is(err, host.ErrUnreadable) {
			return m.recover(e)
		}
		m.logger.Warn("Could not read original", "id", e.Snapshot.ID, "err", err)
		return correlate.TargetName(e.Snapshot.Name)
	}

	target := correlate.TargetName(current.Name)
	if m.mark && target != current.Name {
		if err := e.Ref.SetName(target); err != nil {
			m.logger.Warn("Could not mark original", "name", current.Name, "err", err)
		}
	}
	return target
}

func (m *Marker) recover(e correlate.ShapeEntry) string {
	fallback := correlate.Bracket(e.Snapshot.Name)
	if m.recoverer == nil {
		return fallback
	}

	replacement, err := m.recoverer.Recover(e.Ref, e.Snapshot)
	if err != nil {
		m.logger.Error("Recovery failed", "id", e.Snapshot.ID, "name", e.Snapshot.Name, "err", err)
		return fallback
	}
	if snap, err := replacement.Read(); err == nil {
		return snap.Name
	}
	return fallback
}
