package scenario

import (
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/pptlabs/pastelink/internal/bundle"
	"github.com/pptlabs/pastelink/internal/engine"
	"github.com/pptlabs/pastelink/internal/host"
	"github.com/pptlabs/pastelink/internal/host/memhost"
	"github.com/pptlabs/pastelink/internal/propagate"
)

// Options configure a replay.
type Options struct {
	Engine engine.Options
	Store  *bundle.Store // nil uses a private in-memory store
	Logger *log.Logger

	// Namespace scopes the bundles of this replay inside Store. Defaults to
	// the scenario name. Bundles already in the namespace are cleared before
	// the replay starts.
	Namespace string
}

// Result is the outcome of a replay.
type Result struct {
	Name     string       `json:"name"`
	Steps    []StepResult `json:"steps"`
	Slides   []SlideState `json:"slides"`
	Stats    engine.Stats `json:"stats"`
	Failures int64        `json:"failures"`
}

// StepResult describes one replayed step.
type StepResult struct {
	Index      int    `json:"index"`
	Action     string `json:"action"`
	Window     string `json:"window"`
	Outcome    string `json:"outcome"`
	Matched    int    `json:"matched,omitempty"`
	Renamed    int    `json:"renamed,omitempty"`
	Propagated int    `json:"propagated,omitempty"`
	Refreshed  []int  `json:"refreshed,omitempty"`
	Err        string `json:"error,omitempty"`
}

// SlideState is the final state of a slide.
type SlideState struct {
	Document   string       `json:"document"`
	Index      int          `json:"index"`
	ID         int          `json:"id"`
	Shapes     []ShapeState `json:"shapes"`
	Scripts    []string     `json:"scripts,omitempty"`
	Clips      int          `json:"clips,omitempty"`
	AudioBytes int64        `json:"audio_bytes,omitempty"`
}

// ShapeState is the final state of a shape. Z is 1 for the bottom-most shape.
type ShapeState struct {
	Name     string  `json:"name"`
	Left     float64 `json:"left"`
	Top      float64 `json:"top"`
	Z        int     `json:"z"`
	Readable bool    `json:"readable"`
}

type replay struct {
	sc      *Scenario
	host    *memhost.Host
	engine  *engine.Engine
	panes   *propagate.Panes
	docs    map[string]*memhost.Document
	windows map[string]*memhost.Window
	logger  *log.Logger

	report    *engine.Report
	refreshed []int
}

// Run replays sc. Errors are only returned when the scenario cannot be set
// up; failing steps are reported in the result.
func Run(sc *Scenario, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	store := opts.Store
	if store == nil {
		var err error
		store, err = bundle.Open(bundle.Options{Backend: bundle.BackendMemory}, logger)
		if err != nil {
			return nil, err
		}
		defer store.Close()
	}

	namespace := opts.Namespace
	if namespace == "" {
		namespace = sc.Name
	}

	r := &replay{
		sc:      sc,
		host:    memhost.New(),
		panes:   propagate.NewPanes(store, namespace),
		docs:    make(map[string]*memhost.Document),
		windows: make(map[string]*memhost.Window),
		logger:  logger.With("component", "scenario"),
	}

	eo := opts.Engine
	eo.Recorders = r.panes
	onReport, refresh := eo.OnReport, eo.Refresh
	eo.OnReport = func(rep engine.Report) {
		r.report = &rep
		if onReport != nil {
			onReport(rep)
		}
	}
	eo.Refresh = func(ids []int) {
		r.refreshed = append(r.refreshed, ids...)
		if refresh != nil {
			refresh(ids)
		}
	}
	r.engine = engine.New(eo, logger)
	r.engine.Attach(r.host)

	if err := r.setup(); err != nil {
		return nil, err
	}

	res := &Result{Name: sc.Name}
	for i, st := range sc.Steps {
		res.Steps = append(res.Steps, r.step(i+1, st))
	}

	res.Slides = r.slides()
	res.Stats = r.engine.Stats()
	res.Failures = r.engine.Diagnostics().Recorded()
	return res, nil
}

func (r *replay) setup() error {
	for _, d := range r.sc.Documents {
		doc := r.host.AddDocument(d.Name)
		r.docs[d.Name] = doc
		for _, sl := range d.Slides {
			slide := doc.AddSlide()
			for _, s := range sl.Shapes {
				typ, err := shapeType(s.Type)
				if err != nil {
					return fmt.Errorf("%w: %v", ErrInvalidScenario, err)
				}
				slide.AddShape(memhost.ShapeSpec{
					Name:    s.Name,
					Left:    s.Left,
					Top:     s.Top,
					Width:   s.Width,
					Height:  s.Height,
					Type:    typ,
					Subtype: s.Subtype,
				})
			}
		}
	}

	for _, w := range r.sc.Windows {
		r.windows[w.ID] = r.host.OpenWindow(host.WindowID(w.ID), r.docs[w.Document])
		if w.Recorder {
			if err := r.panes.Open(host.WindowID(w.ID)).Clear(); err != nil {
				return fmt.Errorf("clear bundles of window %s: %w", w.ID, err)
			}
		}
	}

	for _, d := range r.sc.Documents {
		for i, sl := range d.Slides {
			if sl.Bundle == nil {
				continue
			}
			slide, _ := r.docs[d.Name].Slide(i + 1)
			if err := r.seed(d.Name, slide, sl.Bundle); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *replay) seed(doc string, slide *memhost.Slide, b *Bundle) error {
	audio := make([][]byte, len(b.Clips))
	for i, c := range b.Clips {
		if c != "" {
			audio[i] = []byte(c)
		}
	}
	for _, w := range r.sc.Windows {
		if w.Document != doc || !w.Recorder {
			continue
		}
		pane, _ := r.panes.Pane(host.WindowID(w.ID))
		if _, err := pane.Record(slide.ID(), b.Scripts, audio); err != nil {
			return fmt.Errorf("seed bundle of slide %d: %w", slide.Index(), err)
		}
	}
	return nil
}

func (r *replay) step(n int, st Step) StepResult {
	res := StepResult{Index: n, Action: st.Action, Window: st.Window, Outcome: "ok"}
	r.report, r.refreshed = nil, nil

	if err := r.apply(st); err != nil {
		res.Outcome = "error"
		res.Err = err.Error()
		r.logger.Warn("Step failed", "step", n, "action", st.Action, "err", err)
		return res
	}

	if rep := r.report; rep != nil {
		switch {
		case rep.Err != nil:
			res.Outcome = "contained failure"
			res.Err = rep.Err.Error()
		case rep.Skipped != "":
			res.Outcome = "skipped: " + rep.Skipped
		case rep.Kind == host.SelectionSlides:
			res.Outcome = "propagated"
		default:
			res.Outcome = "correlated"
		}
		res.Matched = rep.Mapping.Matched()
		res.Renamed = rep.Rename.Renamed
		for _, t := range rep.Propagation.Transfers {
			if t.Outcome == propagate.OutcomeCopied || t.Outcome == propagate.OutcomeMoved {
				res.Propagated++
			}
		}
	}
	res.Refreshed = r.refreshed
	return res
}

func (r *replay) apply(st Step) error {
	w := r.windows[st.Window]
	doc := w.Document()

	switch st.Action {
	case ActionActivate:
		sl, err := slideAt(doc, st.Slide)
		if err != nil {
			return err
		}
		w.Activate(sl)
		return nil

	case ActionCopy:
		if len(st.Slides) > 0 {
			slides := make([]*memhost.Slide, 0, len(st.Slides))
			for _, idx := range st.Slides {
				sl, err := slideAt(doc, idx)
				if err != nil {
					return err
				}
				slides = append(slides, sl)
			}
			return r.host.CopySlides(w, slides...)
		}
		if st.Slide > 0 {
			sl, err := slideAt(doc, st.Slide)
			if err != nil {
				return err
			}
			w.Activate(sl)
		}
		shapes, err := shapesOn(w.Active(), st.Shapes)
		if err != nil {
			return err
		}
		return r.host.CopyShapes(w, shapes...)

	case ActionCopyText:
		r.host.CopyText(w)
		return nil

	case ActionPaste:
		if st.Slide > 0 {
			sl, err := slideAt(doc, st.Slide)
			if err != nil {
				return err
			}
			w.Activate(sl)
		}
		return r.host.Paste(w)

	case ActionCorrupt:
		sl, err := slideAt(doc, st.Slide)
		if err != nil {
			return err
		}
		shapes, err := shapesOn(sl, st.Shapes)
		if err != nil {
			return err
		}
		for _, s := range shapes {
			s.Corrupt()
		}
		return nil
	}
	return fmt.Errorf("unknown action %q", st.Action)
}

func (r *replay) slides() []SlideState {
	var out []SlideState
	for _, d := range r.sc.Documents {
		doc := r.docs[d.Name]
		pane := r.paneFor(d.Name)
		for _, sl := range doc.Slides() {
			state := SlideState{Document: d.Name, Index: sl.Index(), ID: sl.ID()}
			for _, s := range sl.Shapes() {
				shape := ShapeState{Name: s.Name()}
				if snap, err := s.Read(); err == nil {
					shape.Left, shape.Top, shape.Z = snap.Left, snap.Top, snap.ZOrder
					shape.Readable = true
				}
				state.Shapes = append(state.Shapes, shape)
			}
			if pane != nil {
				if b, err := pane.Bundle(sl.ID()); err == nil {
					for _, line := range b.Scripts {
						state.Scripts = append(state.Scripts, line.Text)
					}
					state.Clips = len(b.Clips)
					state.AudioBytes = b.AudioSize()
				}
			}
			out = append(out, state)
		}
	}
	return out
}

func (r *replay) paneFor(doc string) *bundle.Recorder {
	for _, w := range r.sc.Windows {
		if w.Document != doc || !w.Recorder {
			continue
		}
		if pane, ok := r.panes.Pane(host.WindowID(w.ID)); ok {
			return pane
		}
	}
	return nil
}

func slideAt(doc *memhost.Document, index int) (*memhost.Slide, error) {
	sl, ok := doc.Slide(index)
	if !ok {
		return nil, fmt.Errorf("%s has no slide %d", doc.Name(), index)
	}
	return sl, nil
}

func shapesOn(sl *memhost.Slide, names []string) ([]*memhost.Shape, error) {
	if sl == nil {
		return nil, fmt.Errorf("no active slide")
	}
	out := make([]*memhost.Shape, 0, len(names))
	for _, name := range names {
		s, ok := sl.Shape(name)
		if !ok {
			return nil, fmt.Errorf("slide %d has no shape %q", sl.Index(), name)
		}
		out = append(out, s)
	}
	return out, nil
}
