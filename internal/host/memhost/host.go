package memhost

import (
	"fmt"

	"github.com/pptlabs/pastelink/internal/host"
	"github.com/pptlabs/pastelink/internal/snapshot"
)

// pasteOffset is how far a same-slide paste or duplicate is shifted, in points.
const pasteOffset = 10

// Host is an in-memory editing host.
type Host struct {
	docs    map[string]*Document
	windows map[host.WindowID]*Window

	copyObservers  []host.CopyObserver
	pasteObservers []host.PasteObserver

	clipboard clipboard

	renames int
}

type clipboard struct {
	kind   host.SelectionKind
	shapes []snapshot.Shape
	slides []*Slide
	from   *Slide
}

// New creates an empty host.
func New() *Host {
	return &Host{
		docs:    make(map[string]*Document),
		windows: make(map[host.WindowID]*Window),
	}
}

// OnCopy registers a copy observer.
func (h *Host) OnCopy(obs host.CopyObserver) {
	h.copyObservers = append(h.copyObservers, obs)
}

// OnPaste registers a paste observer.
func (h *Host) OnPaste(obs host.PasteObserver) {
	h.pasteObservers = append(h.pasteObservers, obs)
}

// AddDocument creates a document with the given name.
func (h *Host) AddDocument(name string) *Document {
	doc := &Document{name: name, host: h}
	h.docs[name] = doc
	return doc
}

// Document returns a document by name.
func (h *Host) Document(name string) (*Document, bool) {
	doc, ok := h.docs[name]
	return doc, ok
}

// OpenWindow opens a window on doc, showing its first slide.
func (h *Host) OpenWindow(id host.WindowID, doc *Document) *Window {
	w := &Window{id: id, doc: doc}
	if len(doc.slides) > 0 {
		w.active = doc.slides[0]
	}
	h.windows[id] = w
	return w
}

// Window returns a window by id.
func (h *Host) Window(id host.WindowID) (*Window, bool) {
	w, ok := h.windows[id]
	return w, ok
}

// Renames returns how many successful SetName calls the host has seen.
func (h *Host) Renames() int {
	return h.renames
}

// CopyShapes copies shapes from the window's active slide and raises a copy event.
func (h *Host) CopyShapes(w *Window, shapes ...*Shape) error {
	if w.active == nil {
		return fmt.Errorf("window %s: no active slide", w.id)
	}
	cb := clipboard{kind: host.SelectionShapes, from: w.active}
	refs := make([]host.Shape, 0, len(shapes))
	for _, s := range shapes {
		if s.slide != w.active {
			return fmt.Errorf("shape %q is not on the active slide", s.name)
		}
		cb.shapes = append(cb.shapes, s.attrs())
		refs = append(refs, s)
	}
	h.clipboard = cb

	h.fireCopy(host.CopyEvent{
		Kind:     host.SelectionShapes,
		Window:   w.id,
		Document: w.doc.name,
		Slide:    w.active,
		Shapes:   refs,
	})
	return nil
}

// CopySlides copies whole slides in the order given and raises a copy event.
func (h *Host) CopySlides(w *Window, slides ...*Slide) error {
	cb := clipboard{kind: host.SelectionSlides, from: w.active}
	refs := make([]host.Slide, 0, len(slides))
	for _, sl := range slides {
		if sl.doc != w.doc {
			return fmt.Errorf("slide %d is not in document %s", sl.id, w.doc.name)
		}
		cb.slides = append(cb.slides, sl)
		refs = append(refs, sl)
	}
	h.clipboard = cb

	h.fireCopy(host.CopyEvent{
		Kind:     host.SelectionSlides,
		Window:   w.id,
		Document: w.doc.name,
		Slide:    w.active,
		Slides:   refs,
	})
	return nil
}

// CopyText simulates copying something that is neither shapes nor slides.
func (h *Host) CopyText(w *Window) {
	h.clipboard = clipboard{kind: host.SelectionNone}
	h.fireCopy(host.CopyEvent{
		Kind:     host.SelectionNone,
		Window:   w.id,
		Document: w.doc.name,
		Slide:    w.active,
	})
}

// Paste pastes the clipboard into the window and raises a paste event.
// Shapes land on the active slide with host-assigned names; slides are
// inserted after the active slide.
func (h *Host) Paste(w *Window) error {
	switch h.clipboard.kind {
	case host.SelectionShapes:
		return h.pasteShapes(w)
	case host.SelectionSlides:
		return h.pasteSlides(w)
	default:
		h.firePaste(host.PasteEvent{
			Kind:     host.SelectionNone,
			Window:   w.id,
			Document: w.doc.name,
			Slide:    w.active,
		})
		return nil
	}
}

func (h *Host) pasteShapes(w *Window) error {
	dst := w.active
	if dst == nil {
		return fmt.Errorf("window %s: no active slide", w.id)
	}
	sameSlide := dst == h.clipboard.from

	pasted := make([]host.Shape, 0, len(h.clipboard.shapes))
	for _, attrs := range h.clipboard.shapes {
		left, top := attrs.Left, attrs.Top
		if sameSlide {
			left += pasteOffset
			top += pasteOffset
		}
		s := dst.addShape(ShapeSpec{
			Name:    dst.pastedName(attrs.Name),
			Left:    left,
			Top:     top,
			Width:   attrs.Width,
			Height:  attrs.Height,
			Type:    attrs.Type,
			Subtype: attrs.Subtype,
		})
		pasted = append(pasted, s)
	}
	dst.selection = pasted

	h.firePaste(host.PasteEvent{
		Kind:     host.SelectionShapes,
		Window:   w.id,
		Document: w.doc.name,
		Slide:    dst,
		Shapes:   pasted,
	})
	return nil
}

func (h *Host) pasteSlides(w *Window) error {
	at := 0
	if w.active != nil {
		at = w.active.Index()
	}
	pasted := make([]host.Slide, 0, len(h.clipboard.slides))
	for i, src := range h.clipboard.slides {
		sl := w.doc.insertSlide(at + i)
		for _, s := range src.shapes {
			sl.addShape(s.spec())
		}
		pasted = append(pasted, sl)
	}
	if len(pasted) > 0 {
		w.active = pasted[0].(*Slide)
	}

	h.firePaste(host.PasteEvent{
		Kind:     host.SelectionSlides,
		Window:   w.id,
		Document: w.doc.name,
		Slide:    w.active,
		Slides:   pasted,
	})
	return nil
}

func (h *Host) fireCopy(ev host.CopyEvent) {
	for _, obs := range h.copyObservers {
		obs.AfterCopy(ev)
	}
}

func (h *Host) firePaste(ev host.PasteEvent) {
	for _, obs := range h.pasteObservers {
		obs.AfterPaste(ev)
	}
}

// Document is an open presentation.
type Document struct {
	name   string
	host   *Host
	slides []*Slide
	nextID int
}

// Name returns the document name.
func (d *Document) Name() string { return d.name }

// AddSlide appends an empty slide.
func (d *Document) AddSlide() *Slide {
	return d.insertSlide(len(d.slides))
}

// Slides returns the slides in document order.
func (d *Document) Slides() []*Slide {
	out := make([]*Slide, len(d.slides))
	copy(out, d.slides)
	return out
}

// Slide returns the slide at the 1-based index.
func (d *Document) Slide(index int) (*Slide, bool) {
	if index < 1 || index > len(d.slides) {
		return nil, false
	}
	return d.slides[index-1], true
}

func (d *Document) insertSlide(pos int) *Slide {
	d.nextID++
	sl := &Slide{doc: d, id: 255 + d.nextID, nextShapeID: 1}
	if pos < 0 || pos > len(d.slides) {
		pos = len(d.slides)
	}
	d.slides = append(d.slides, nil)
	copy(d.slides[pos+1:], d.slides[pos:])
	d.slides[pos] = sl
	return sl
}

// Window is a document window with an active slide.
type Window struct {
	id     host.WindowID
	doc    *Document
	active *Slide
}

// ID returns the window id.
func (w *Window) ID() host.WindowID { return w.id }

// Document returns the document shown in the window.
func (w *Window) Document() *Document { return w.doc }

// Active returns the active slide.
func (w *Window) Active() *Slide { return w.active }

// Activate makes sl the active slide.
func (w *Window) Activate(sl *Slide) { w.active = sl }
