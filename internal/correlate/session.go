package correlate

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pptlabs/pastelink/internal/host"
	"github.com/pptlabs/pastelink/internal/snapshot"
)

var (
	// ErrStale is returned when a paste does not follow a compatible copy.
	ErrStale = errors.New("stale correlation session")

	// ErrSameSlide is returned for a shape paste onto the slide it was copied
	// from. The host keeps identities itself in that case.
	ErrSameSlide = fmt.Errorf("%w: paste onto the source slide", ErrStale)
)

// ShapeEntry pairs a copied shape's snapshot with its live reference.
type ShapeEntry struct {
	Snapshot snapshot.Shape
	Ref      host.Shape
}

// SlideEntry pairs a copied slide's snapshot with its live reference.
type SlideEntry struct {
	Snapshot snapshot.Slide
	Ref      host.Slide
}

// Key identifies where a session was recorded.
type Key struct {
	Document string
	Window   host.WindowID
}

// Session is the correlation context of one copy. Shapes are sorted by ID and
// slides by index, both ascending.
type Session struct {
	ID            string
	Kind          host.SelectionKind
	Key           Key
	SourceSlide   host.Slide
	SourceSlideID int
	Shapes        []ShapeEntry
	Slides        []SlideEntry
	RecordedAt    time.Time
}

// Snapshots returns the shape snapshots in scan order.
func (s *Session) Snapshots() []snapshot.Shape {
	out := make([]snapshot.Shape, len(s.Shapes))
	for i, e := range s.Shapes {
		out[i] = e.Snapshot
	}
	return out
}

// SlideSnapshots returns the slide snapshots in copy order.
func (s *Session) SlideSnapshots() []snapshot.Slide {
	out := make([]snapshot.Slide, len(s.Slides))
	for i, e := range s.Slides {
		out[i] = e.Snapshot
	}
	return out
}

// Check reports whether ev can be correlated against this session.
func (s *Session) Check(ev host.PasteEvent) error {
	if s.Kind != ev.Kind {
		return fmt.Errorf("%w: copied %s, pasted %s", ErrStale, s.Kind, ev.Kind)
	}
	switch ev.Kind {
	case host.SelectionShapes:
		if ev.Document != s.Key.Document {
			return fmt.Errorf("%w: copied from %q, pasted into %q", ErrStale, s.Key.Document, ev.Document)
		}
		if ev.Slide == nil {
			return fmt.Errorf("%w: paste has no destination slide", ErrStale)
		}
		if ev.Slide.ID() == s.SourceSlideID {
			return ErrSameSlide
		}
	case host.SelectionSlides:
		if ev.Document != s.Key.Document {
			return fmt.Errorf("%w: slides copied from %q, pasted into %q", ErrStale, s.Key.Document, ev.Document)
		}
		if len(s.Slides) == 0 {
			return fmt.Errorf("%w: no slides recorded", ErrStale)
		}
	default:
		return fmt.Errorf("%w: nothing to correlate for a %s paste", ErrStale, ev.Kind)
	}
	return nil
}

// Store holds the single current session. Put replaces it wholesale and Take
// hands it out exactly once.
type Store struct {
	mu      sync.Mutex
	current *Session
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Put replaces the current session. A nil session clears the store.
func (st *Store) Put(s *Session) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.current = s
}

// Take removes and returns the current session.
func (st *Store) Take() (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	s := st.current
	st.current = nil
	return s, s != nil
}

// Peek returns the current session without consuming it.
func (st *Store) Peek() (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	return st.current, st.current != nil
}
