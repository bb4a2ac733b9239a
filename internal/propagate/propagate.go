// Package propagate moves the recorded audio and script bundles of copied
// slides onto their pasted counterparts.
package propagate

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/pptlabs/pastelink/internal/bundle"
	"github.com/pptlabs/pastelink/internal/correlate"
	"github.com/pptlabs/pastelink/internal/host"
)

// Mode selects what happens to the source bundle.
type Mode string

const (
	// ModeCopy leaves the source slide's bundle in place.
	ModeCopy Mode = "copy"
	// ModeMove detaches the source bundle once the destination owns a copy.
	ModeMove Mode = "move"
)

// ParseMode parses a mode name. The empty string selects ModeCopy.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeCopy:
		return ModeCopy, nil
	case ModeMove:
		return ModeMove, nil
	default:
		return "", fmt.Errorf("unknown propagation mode %q", s)
	}
}

// Recorder gives access to the bundles attached to the slides of a window.
type Recorder interface {
	Export(slide host.Slide) (bundle.Bundle, error)
	Import(slide host.Slide, b bundle.Bundle) error
	Detach(slide host.Slide) error
}

// RecorderSet resolves the recorder that owns a window's slides.
type RecorderSet interface {
	Recorder(window host.WindowID) (Recorder, bool)
}

// RefreshFunc is notified with the destination slide ids once a paste has
// been processed.
type RefreshFunc func(slideIDs []int)

// Outcome of one slide pair.
type Outcome int

const (
	OutcomeCopied Outcome = iota
	OutcomeMoved
	OutcomeEmpty     // the source slide had no bundle
	OutcomeUnmatched // surplus pasted slide
	OutcomeFailed
)

// String returns the string representation of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeCopied:
		return "copied"
	case OutcomeMoved:
		return "moved"
	case OutcomeEmpty:
		return "empty"
	case OutcomeUnmatched:
		return "unmatched"
	default:
		return "failed"
	}
}

// Transfer records what happened to one pasted slide.
type Transfer struct {
	Source      int // source slide id, 0 when unmatched
	Destination int
	Outcome     Outcome
	Err         error
}

// Report summarises a propagation.
type Report struct {
	Transfers []Transfer
	Skipped   bool // no recorder for one of the windows
}

// Failed returns the number of pairs that did not transfer.
func (r Report) Failed() int {
	n := 0
	for _, t := range r.Transfers {
		if t.Outcome == OutcomeFailed {
			n++
		}
	}
	return n
}

// Propagator transfers bundles for slide pastes.
type Propagator struct {
	recorders RecorderSet
	mode      Mode
	refresh   RefreshFunc
	logger    *log.Logger
}

// New creates a Propagator. refresh may be nil.
func New(recorders RecorderSet, mode Mode, refresh RefreshFunc, logger *log.Logger) *Propagator {
	if logger == nil {
		logger = log.Default()
	}
	if mode == "" {
		mode = ModeCopy
	}
	return &Propagator{
		recorders: recorders,
		mode:      mode,
		refresh:   refresh,
		logger:    logger.With("component", "propagate"),
	}
}

// Propagate pairs the pasted slides of ev with the slides recorded in s by
// ordinal position and transfers each source bundle onto its destination.
func (p *Propagator) Propagate(s *correlate.Session, ev host.PasteEvent) Report {
	var report Report

	src, ok := p.recorders.Recorder(s.Key.Window)
	if !ok {
		p.logger.Debug("No recorder for copy window", "window", s.Key.Window)
		report.Skipped = true
		return report
	}
	dst, ok := p.recorders.Recorder(ev.Window)
	if !ok {
		p.logger.Debug("No recorder for paste window", "window", ev.Window)
		report.Skipped = true
		return report
	}

	mapping := correlate.CorrelateSlides(s.SlideSnapshots(), len(ev.Slides))
	ids := make([]int, 0, len(ev.Slides))
	for i, dest := range ev.Slides {
		ids = append(ids, dest.ID())
		t := Transfer{Destination: dest.ID()}

		m := mapping[i]
		if !m.Matched() {
			t.Outcome = OutcomeUnmatched
			report.Transfers = append(report.Transfers, t)
			continue
		}
		source := s.Slides[m.Original].Ref
		t.Source = source.ID()
		t.Outcome, t.Err = p.transfer(src, dst, source, dest)
		if t.Err != nil {
			p.logger.Warn("Bundle transfer failed",
				"source", t.Source, "destination", t.Destination, "err", t.Err)
		}
		report.Transfers = append(report.Transfers, t)
	}

	if p.refresh != nil && len(ids) > 0 {
		p.refresh(ids)
	}

	p.logger.Debug("Propagated slide bundles",
		"session", s.ID, "slides", len(ids), "failed", report.Failed(), "mode", p.mode)
	return report
}

func (p *Propagator) transfer(src, dst Recorder, source, dest host.Slide) (Outcome, error) {
	b, err := src.Export(source)
	if errors.Is(err, bundle.ErrNotFound) {
		return OutcomeEmpty, nil
	}
	if err != nil {
		return OutcomeFailed, fmt.Errorf("export slide %d: %w", source.ID(), err)
	}
	if err := dst.Import(dest, b); err != nil {
		return OutcomeFailed, fmt.Errorf("import onto slide %d: %w", dest.ID(), err)
	}
	if p.mode != ModeMove {
		return OutcomeCopied, nil
	}
	if err := src.Detach(source); err != nil {
		// the destination already owns a full copy
		p.logger.Warn("Could not detach source bundle", "slide", source.ID(), "err", err)
	}
	return OutcomeMoved, nil
}
