package engine

import (
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/pptlabs/pastelink/internal/correlate"
	"github.com/pptlabs/pastelink/internal/host"
	"github.com/pptlabs/pastelink/internal/propagate"
	"github.com/pptlabs/pastelink/internal/recovery"
	"github.com/pptlabs/pastelink/internal/rename"
	"github.com/pptlabs/pastelink/internal/snapshot"
)

// Options configure an Engine. The zero value behaves like DefaultOptions.
type Options struct {
	Match correlate.Options

	// KeepOriginalNames leaves default-named originals as they are instead of
	// giving them the bracket form their pasted copies receive.
	KeepOriginalNames bool

	PlaceholderPrefix string
	Mode              propagate.Mode

	// Recorders resolves bundle recorders for slide pastes. Without it slide
	// pastes are not propagated.
	Recorders propagate.RecorderSet
	Refresh   propagate.RefreshFunc

	// Placeholders overrides the placeholder generator.
	Placeholders rename.Generator

	// OnReport is called after every paste with what the engine did.
	OnReport func(Report)

	Diagnostics *Diagnostics
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Match: correlate.Options{Epsilon: correlate.DefaultEpsilon},
		Mode:  propagate.ModeCopy,
	}
}

// Report describes how one paste was handled.
type Report struct {
	Kind    host.SelectionKind
	Window  host.WindowID
	Session string

	// Skipped holds why the paste was not correlated, if it was not.
	Skipped string

	Mapping     correlate.Mapping
	Rename      rename.Result
	Propagation propagate.Report
	Err         error
}

// Stats counts what the engine has handled.
type Stats struct {
	Copies     int `json:"copies"`
	Pastes     int `json:"pastes"`
	Correlated int `json:"correlated"`
	Stale      int `json:"stale"`
	Renamed    int `json:"renamed"`
	Propagated int `json:"propagated"`
	Failures   int `json:"failures"`
}

// Engine observes a host editing session.
type Engine struct {
	store      *correlate.Store
	recorder   *correlate.Recorder
	marker     *rename.Marker
	protocol   *rename.Protocol
	propagator *propagate.Propagator

	opts   Options
	diag   *Diagnostics
	logger *log.Logger

	mu    sync.Mutex
	stats Stats
}

// New creates an engine.
func New(opts Options, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	gen := opts.Placeholders
	if gen == nil {
		gen = rename.UUIDGenerator(opts.PlaceholderPrefix)
	}
	diag := opts.Diagnostics
	if diag == nil {
		diag = NewDiagnostics(0, 1, logger)
	}

	store := correlate.NewStore()
	e := &Engine{
		store:    store,
		recorder: correlate.NewRecorder(store, logger),
		marker:   rename.NewMarker(recovery.New(logger), !opts.KeepOriginalNames, logger),
		protocol: rename.New(gen, logger),
		opts:     opts,
		diag:     diag,
		logger:   logger.With("component", "engine"),
	}
	if opts.Recorders != nil {
		e.propagator = propagate.New(opts.Recorders, opts.Mode, opts.Refresh, logger)
	}
	return e
}

// Attach registers the engine on an editing session. The copy observer is
// registered first so it always runs before the paste observer.
func (e *Engine) Attach(s host.EditingSession) {
	s.OnCopy(host.CopyObserverFunc(e.AfterCopy))
	s.OnPaste(host.PasteObserverFunc(e.AfterPaste))
}

// Stats returns a copy of the engine counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.stats
}

// Diagnostics returns the failure sink.
func (e *Engine) Diagnostics() *Diagnostics {
	return e.diag
}

// Pending returns the session the next paste would consume.
func (e *Engine) Pending() (*correlate.Session, bool) {
	return e.store.Peek()
}

// AfterCopy implements host.CopyObserver.
func (e *Engine) AfterCopy(ev host.CopyEvent) {
	defer e.contain("copy", "")

	e.count(func(s *Stats) { s.Copies++ })
	e.recorder.Record(ev)
}

// AfterPaste implements host.PasteObserver.
func (e *Engine) AfterPaste(ev host.PasteEvent) {
	report := Report{Kind: ev.Kind, Window: ev.Window}
	defer func() {
		if r := recover(); r != nil {
			report.Err = e.fail("paste", report.Session, fmt.Errorf("%w: %v", ErrPanic, r))
		}
		if e.opts.OnReport != nil {
			e.opts.OnReport(report)
		}
	}()

	e.count(func(s *Stats) { s.Pastes++ })
	e.paste(ev, &report)
}

func (e *Engine) paste(ev host.PasteEvent, report *Report) {
	s, ok := e.store.Take()
	if !ok {
		report.Skipped = "no copy recorded"
		return
	}
	report.Session = s.ID

	if err := s.Check(ev); err != nil {
		report.Skipped = err.Error()
		e.count(func(st *Stats) { st.Stale++ })
		e.logger.Debug("Skipping paste", "session", s.ID, "reason", err)
		return
	}

	var err error
	switch ev.Kind {
	case host.SelectionShapes:
		err = e.pasteShapes(s, ev, report)
	case host.SelectionSlides:
		e.pasteSlides(s, ev, report)
	}
	if err != nil {
		report.Err = e.fail("paste", s.ID, err)
	}
}

func (e *Engine) pasteShapes(s *correlate.Session, ev host.PasteEvent, report *Report) error {
	targets := e.marker.Targets(s.Shapes)

	names := make([]string, len(ev.Shapes))
	readable := make([]snapshot.Shape, 0, len(ev.Shapes))
	positions := make([]int, 0, len(ev.Shapes))
	for i, shape := range ev.Shapes {
		snap, err := shape.Read()
		if err != nil {
			e.logger.Warn("Pasted shape is not readable", "id", shape.ID(), "err", err)
			continue
		}
		names[i] = snap.Name
		readable = append(readable, snap)
		positions = append(positions, i)
	}

	mapping := make(correlate.Mapping, len(ev.Shapes))
	for i := range mapping {
		mapping[i] = correlate.Match{Original: correlate.NoMatch, Pass: correlate.PassNone}
	}
	for j, m := range correlate.Correlate(s.Snapshots(), readable, e.opts.Match) {
		mapping[positions[j]] = m
	}
	report.Mapping = mapping

	res, err := e.protocol.Apply(rename.Plan{
		Slide:   ev.Slide,
		Shapes:  ev.Shapes,
		Names:   names,
		Mapping: mapping,
		Targets: targets,
	})
	report.Rename = res
	e.count(func(st *Stats) {
		st.Correlated++
		st.Renamed += res.Renamed
	})

	e.logger.Debug("Correlated pasted shapes",
		"session", s.ID,
		"pasted", len(ev.Shapes),
		"matched", mapping.Matched(),
		"renamed", res.Renamed)
	return err
}

func (e *Engine) pasteSlides(s *correlate.Session, ev host.PasteEvent, report *Report) {
	report.Mapping = correlate.CorrelateSlides(s.SlideSnapshots(), len(ev.Slides))
	if e.propagator == nil {
		report.Skipped = "no bundle recorders"
		return
	}

	pr := e.propagator.Propagate(s, ev)
	report.Propagation = pr

	var errs []error
	moved := 0
	for _, t := range pr.Transfers {
		switch t.Outcome {
		case propagate.OutcomeCopied, propagate.OutcomeMoved:
			moved++
		case propagate.OutcomeFailed:
			errs = append(errs, t.Err)
		}
	}
	e.count(func(st *Stats) {
		st.Correlated++
		st.Propagated += moved
	})
	if len(errs) > 0 {
		// transfers are independent, report them without failing the paste
		report.Err = e.fail("propagate", s.ID, errors.Join(errs...))
	}
}

func (e *Engine) contain(op, session string) {
	if r := recover(); r != nil {
		e.fail(op, session, fmt.Errorf("%w: %v", ErrPanic, r))
	}
}

func (e *Engine) fail(op, session string, cause error) error {
	err := &Error{Op: op, Session: session, Cause: cause}
	e.count(func(s *Stats) { s.Failures++ })
	e.diag.Record(err)
	return err
}

func (e *Engine) count(f func(*Stats)) {
	e.mu.Lock()
	defer e.mu.Unlock()

	f(&e.stats)
}
