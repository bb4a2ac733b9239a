package correlate

import (
	"sort"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/pptlabs/pastelink/internal/host"
	"github.com/pptlabs/pastelink/internal/snapshot"
)

// Recorder captures a Session on every copy and stores it.
type Recorder struct {
	store  *Store
	logger *log.Logger
	now    func() time.Time
}

// NewRecorder creates a recorder writing into store.
func NewRecorder(store *Store, logger *log.Logger) *Recorder {
	if logger == nil {
		logger = log.Default()
	}
	return &Recorder{
		store:  store,
		logger: logger.With("component", "recorder"),
		now:    time.Now,
	}
}

// Record builds the session for ev and makes it the current one. Copies of
// anything other than shapes or slides clear the store and return nil.
func (r *Recorder) Record(ev host.CopyEvent) *Session {
	var s *Session
	switch ev.Kind {
	case host.SelectionShapes:
		s = r.recordShapes(ev)
	case host.SelectionSlides:
		s = r.recordSlides(ev)
	}

	r.store.Put(s)
	if s == nil {
		r.logger.Debug("Cleared correlation session", "kind", ev.Kind)
		return nil
	}

	r.logger.Debug("Recorded correlation session",
		"session", s.ID,
		"kind", s.Kind,
		"document", s.Key.Document,
		"window", s.Key.Window,
		"shapes", len(s.Shapes),
		"slides", len(s.Slides))
	return s
}

func (r *Recorder) recordShapes(ev host.CopyEvent) *Session {
	s := r.newSession(ev)
	if ev.Slide != nil {
		s.SourceSlide = ev.Slide
		s.SourceSlideID = ev.Slide.ID()
	}

	for _, ref := range ev.Shapes {
		snap, err := ref.Read()
		if err != nil {
			r.logger.Warn("Skipping unreadable shape at copy time", "id", ref.ID(), "err", err)
			continue
		}
		s.Shapes = append(s.Shapes, ShapeEntry{Snapshot: snap, Ref: ref})
	}

	sort.SliceStable(s.Shapes, func(i, j int) bool {
		return s.Shapes[i].Snapshot.ID < s.Shapes[j].Snapshot.ID
	})
	return s
}

func (r *Recorder) recordSlides(ev host.CopyEvent) *Session {
	s := r.newSession(ev)
	for _, ref := range ev.Slides {
		s.Slides = append(s.Slides, SlideEntry{
			Snapshot: snapshotOf(ref),
			Ref:      ref,
		})
	}

	sort.SliceStable(s.Slides, func(i, j int) bool {
		return s.Slides[i].Snapshot.Index < s.Slides[j].Snapshot.Index
	})
	return s
}

func (r *Recorder) newSession(ev host.CopyEvent) *Session {
	return &Session{
		ID:         uuid.NewString(),
		Kind:       ev.Kind,
		Key:        Key{Document: ev.Document, Window: ev.Window},
		RecordedAt: r.now(),
	}
}

func snapshotOf(sl host.Slide) snapshot.Slide {
	return snapshot.Slide{ID: sl.ID(), Index: sl.Index()}
}
