package engine

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/pptlabs/pastelink/internal/bundle"
	"github.com/pptlabs/pastelink/internal/correlate"
	"github.com/pptlabs/pastelink/internal/host"
	"github.com/pptlabs/pastelink/internal/host/memhost"
	"github.com/pptlabs/pastelink/internal/propagate"
	"github.com/pptlabs/pastelink/internal/snapshot"
)

type deck struct {
	host    *memhost.Host
	doc     *memhost.Document
	win     *memhost.Window
	engine  *Engine
	reports []Report
}

func newDeck(t *testing.T, slides int, opts Options) *deck {
	t.Helper()
	d := &deck{host: memhost.New()}
	d.doc = d.host.AddDocument("deck.pptx")
	for i := 0; i < slides; i++ {
		d.doc.AddSlide()
	}
	d.win = d.host.OpenWindow("w1", d.doc)

	opts.OnReport = func(r Report) { d.reports = append(d.reports, r) }
	d.engine = New(opts, nil)
	d.engine.Attach(d.host)
	return d
}

func (d *deck) slide(t *testing.T, index int) *memhost.Slide {
	t.Helper()
	sl, ok := d.doc.Slide(index)
	if !ok {
		t.Fatalf("no slide %d", index)
	}
	return sl
}

func (d *deck) lastReport(t *testing.T) Report {
	t.Helper()
	if len(d.reports) == 0 {
		t.Fatal("no paste report")
	}
	return d.reports[len(d.reports)-1]
}

func oval(name string, left, top, w, h float64) memhost.ShapeSpec {
	return memhost.ShapeSpec{
		Name: name, Left: left, Top: top, Width: w, Height: h,
		Type: snapshot.TypeAutoShape, Subtype: 9,
	}
}

// copyPaste copies shapes from slide from and pastes them onto slide to.
func (d *deck) copyPaste(t *testing.T, from, to *memhost.Slide, shapes ...*memhost.Shape) {
	t.Helper()
	d.win.Activate(from)
	if err := d.host.CopyShapes(d.win, shapes...); err != nil {
		t.Fatalf("copy: %v", err)
	}
	d.win.Activate(to)
	if err := d.host.Paste(d.win); err != nil {
		t.Fatalf("paste: %v", err)
	}
}

func TestRoundTripNaming(t *testing.T) {
	d := newDeck(t, 2, DefaultOptions())
	s1, s2 := d.slide(t, 1), d.slide(t, 2)

	a := s1.AddShape(oval("Oval 3", 10, 20, 100, 50))
	b := s1.AddShape(oval("Oval 5", 200, 20, 80, 80))

	d.copyPaste(t, s1, s2, b, a)

	pasted := s2.Shapes()
	if len(pasted) != 2 {
		t.Fatalf("expected 2 pasted shapes, got %d", len(pasted))
	}
	byName := map[string]*memhost.Shape{}
	for _, s := range pasted {
		byName[s.Name()] = s
	}

	for name, want := range map[string]float64{"[Oval 3]": 10, "[Oval 5]": 200} {
		s, ok := byName[name]
		if !ok {
			t.Fatalf("no pasted shape named %q, have %v", name, s2.Selection())
		}
		snap, _ := s.Read()
		if snap.Left != want {
			t.Errorf("%s paired with geometry at left %v, want %v", name, snap.Left, want)
		}
	}

	// originals carry the same bracketed names
	if a.Name() != "[Oval 3]" || b.Name() != "[Oval 5]" {
		t.Errorf("originals = %q, %q", a.Name(), b.Name())
	}

	// selection keeps the pasted range
	sel := s2.Selection()
	if len(sel) != 2 {
		t.Errorf("selection = %v, want both pasted shapes", sel)
	}

	r := d.lastReport(t)
	if r.Rename.Renamed != 2 || r.Err != nil {
		t.Errorf("report = %+v", r)
	}
}

func TestExplicitNames(t *testing.T) {
	d := newDeck(t, 3, DefaultOptions())
	s1, s2 := d.slide(t, 1), d.slide(t, 2)

	logo := s1.AddShape(memhost.ShapeSpec{Name: "Logo", Width: 40, Height: 40, Type: snapshot.TypePicture})
	s2.AddShape(memhost.ShapeSpec{Name: "Logo", Width: 10, Height: 10, Type: snapshot.TypePicture})

	// the host renames the pasted copy because "Logo" is taken on slide 2
	d.copyPaste(t, s1, s2, logo)

	r := d.lastReport(t)
	if r.Mapping.Matched() != 0 {
		t.Errorf("a renamed explicit shape cannot be matched, mapping %v", r.Mapping)
	}
	if logo.Name() != "Logo" {
		t.Errorf("explicit original renamed to %q", logo.Name())
	}

	// without a collision the pasted copy is matched and keeps the name verbatim
	s3 := d.slide(t, 3)
	d.copyPaste(t, s1, s3, logo)
	if d.lastReport(t).Mapping.Matched() != 1 {
		t.Errorf("mapping = %v, want one match", d.lastReport(t).Mapping)
	}
	if _, ok := s3.Shape("Logo"); !ok {
		t.Error("pasted explicit name not kept verbatim")
	}
}

func TestInjectivity(t *testing.T) {
	d := newDeck(t, 2, DefaultOptions())
	s1, s2 := d.slide(t, 1), d.slide(t, 2)

	var originals []*memhost.Shape
	for i := 0; i < 6; i++ {
		// identical size and kind, only the position differs
		originals = append(originals, s1.AddShape(oval("", float64(i*30), 0, 25, 25)))
	}
	d.copyPaste(t, s1, s2, originals...)

	r := d.lastReport(t)
	seen := map[int]bool{}
	for i, m := range r.Mapping {
		if !m.Matched() {
			t.Errorf("pasted shape %d unmatched", i)
			continue
		}
		if seen[m.Original] {
			t.Errorf("original %d assigned twice", m.Original)
		}
		seen[m.Original] = true
	}

	names := map[string]bool{}
	for _, s := range s2.Shapes() {
		if names[s.Name()] {
			t.Errorf("duplicate name %q on destination", s.Name())
		}
		names[s.Name()] = true
	}
}

func TestDeterminism(t *testing.T) {
	run := func() correlate.Mapping {
		d := newDeck(t, 2, DefaultOptions())
		s1, s2 := d.slide(t, 1), d.slide(t, 2)
		var shapes []*memhost.Shape
		for i := 0; i < 4; i++ {
			shapes = append(shapes, s1.AddShape(oval("", 0, 0, 30, 30)))
		}
		d.copyPaste(t, s1, s2, shapes[3], shapes[1], shapes[0], shapes[2])
		return d.lastReport(t).Mapping
	}

	first, second := run(), run()
	if !reflect.DeepEqual(first, second) {
		t.Errorf("mappings differ:\n%v\n%v", first, second)
	}
}

func TestSameSlidePasteIsNoop(t *testing.T) {
	d := newDeck(t, 1, DefaultOptions())
	s1 := d.slide(t, 1)
	a := s1.AddShape(oval("Oval 3", 10, 10, 50, 50))

	d.copyPaste(t, s1, s1, a)

	if n := d.host.Renames(); n != 0 {
		t.Errorf("same-slide paste performed %d renames", n)
	}
	r := d.lastReport(t)
	if r.Skipped == "" {
		t.Error("expected the paste to be skipped")
	}
	if d.engine.Stats().Stale != 1 {
		t.Errorf("stale = %d, want 1", d.engine.Stats().Stale)
	}
}

func TestOtherDocumentIsStale(t *testing.T) {
	d := newDeck(t, 1, DefaultOptions())
	other := d.host.AddDocument("other.pptx")
	other.AddSlide()
	w2 := d.host.OpenWindow("w2", other)

	a := d.slide(t, 1).AddShape(oval("Oval 3", 0, 0, 5, 5))
	if err := d.host.CopyShapes(d.win, a); err != nil {
		t.Fatal(err)
	}
	if err := d.host.Paste(w2); err != nil {
		t.Fatal(err)
	}

	if d.host.Renames() != 0 {
		t.Errorf("cross-document paste renamed %d shapes", d.host.Renames())
	}
	if d.lastReport(t).Skipped == "" {
		t.Error("expected a stale skip")
	}
}

func TestSessionConsumedOnce(t *testing.T) {
	d := newDeck(t, 3, DefaultOptions())
	s1, s2, s3 := d.slide(t, 1), d.slide(t, 2), d.slide(t, 3)
	a := s1.AddShape(oval("Oval 3", 0, 0, 5, 5))

	d.copyPaste(t, s1, s2, a)
	d.win.Activate(s3)
	_ = d.host.Paste(d.win)

	if r := d.lastReport(t); r.Skipped != "no copy recorded" {
		t.Errorf("second paste should find no session, got %+v", r)
	}
	if s3.Shapes()[0].Name() == "[Oval 3]" {
		t.Error("second paste must keep host naming")
	}
}

func TestWeakPassFallback(t *testing.T) {
	d := newDeck(t, 2, DefaultOptions())
	s1, s2 := d.slide(t, 1), d.slide(t, 2)
	a := s1.AddShape(oval("Oval 3", 10, 10, 60, 40))

	d.win.Activate(s1)
	if err := d.host.CopyShapes(d.win, a); err != nil {
		t.Fatal(err)
	}

	// a paste the host placed somewhere else
	moved := s2.AddShape(oval("Oval 7", 300, 300, 60, 40))
	d.engine.AfterPaste(host.PasteEvent{
		Kind:     host.SelectionShapes,
		Window:   "w1",
		Document: "deck.pptx",
		Slide:    s2,
		Shapes:   []host.Shape{moved},
	})

	r := d.lastReport(t)
	if len(r.Mapping) != 1 || r.Mapping[0].Pass != correlate.PassWeak {
		t.Fatalf("mapping = %v, want a weak match", r.Mapping)
	}
	if moved.Name() != "[Oval 3]" {
		t.Errorf("name = %q, want [Oval 3]", moved.Name())
	}
}

func TestCorruptionRecovery(t *testing.T) {
	d := newDeck(t, 2, DefaultOptions())
	s1, s2 := d.slide(t, 1), d.slide(t, 2)

	s1.AddShape(memhost.ShapeSpec{Name: "Background", Width: 720, Height: 540, Type: snapshot.TypePicture})
	broken := s1.AddShape(oval("Oval 3", 42, 24, 50, 50))
	s1.AddShape(memhost.ShapeSpec{Name: "Title", Width: 600, Height: 60, Type: snapshot.TypeTextBox})
	z, _ := broken.ZOrder()

	d.win.Activate(s1)
	if err := d.host.CopyShapes(d.win, broken); err != nil {
		t.Fatal(err)
	}
	broken.Corrupt()
	d.win.Activate(s2)
	if err := d.host.Paste(d.win); err != nil {
		t.Fatal(err)
	}

	if !broken.Deleted() {
		t.Error("broken original still exists")
	}
	replacement, ok := s1.Shape("[Oval 3]")
	if !ok {
		t.Fatalf("no replacement on the source slide, have %d shapes", s1.ShapeCount())
	}
	snap, err := replacement.Read()
	if err != nil {
		t.Fatal(err)
	}
	if snap.Left != 42 || snap.Top != 24 {
		t.Errorf("replacement at (%v,%v), want (42,24)", snap.Left, snap.Top)
	}
	if snap.ZOrder > z {
		t.Errorf("replacement z-order %d above original %d", snap.ZOrder, z)
	}

	// the paste itself still correlates
	if _, ok := s2.Shape("[Oval 3]"); !ok {
		t.Error("pasted shape was not renamed")
	}
}

func TestZeroOptionsMarkOriginals(t *testing.T) {
	d := newDeck(t, 2, Options{})
	s1, s2 := d.slide(t, 1), d.slide(t, 2)
	a := s1.AddShape(oval("Oval 3", 0, 0, 5, 5))

	d.copyPaste(t, s1, s2, a)

	if a.Name() != "[Oval 3]" {
		t.Errorf("original name = %q, want [Oval 3]", a.Name())
	}
	if _, ok := s2.Shape("[Oval 3]"); !ok {
		t.Error("pasted shape should carry the bracket name")
	}
}

func TestMarkOriginalsDisabled(t *testing.T) {
	opts := DefaultOptions()
	opts.KeepOriginalNames = true
	d := newDeck(t, 2, opts)
	s1, s2 := d.slide(t, 1), d.slide(t, 2)
	a := s1.AddShape(oval("Oval 3", 0, 0, 5, 5))

	d.copyPaste(t, s1, s2, a)

	if a.Name() != "Oval 3" {
		t.Errorf("original renamed to %q", a.Name())
	}
	if _, ok := s2.Shape("[Oval 3]"); !ok {
		t.Error("pasted shape should still be bracketed")
	}
}

// panicShape blows up on every call.
type panicShape struct{ host.Shape }

func (panicShape) ID() int                        { return 99 }
func (panicShape) Read() (snapshot.Shape, error) { panic("host exploded") }

func TestPanicContained(t *testing.T) {
	diag := NewDiagnostics(0, 1, nil)
	opts := DefaultOptions()
	opts.Diagnostics = diag
	d := newDeck(t, 2, opts)
	s1, s2 := d.slide(t, 1), d.slide(t, 2)
	a := s1.AddShape(oval("Oval 3", 0, 0, 5, 5))

	d.win.Activate(s1)
	_ = d.host.CopyShapes(d.win, a)

	d.engine.AfterPaste(host.PasteEvent{
		Kind:     host.SelectionShapes,
		Window:   "w1",
		Document: "deck.pptx",
		Slide:    s2,
		Shapes:   []host.Shape{panicShape{}},
	})

	if diag.Recorded() != 1 {
		t.Fatalf("recorded = %d, want 1", diag.Recorded())
	}
	last := diag.Last()
	if !errors.Is(last, ErrPanic) || last.Op != "paste" {
		t.Errorf("last failure = %v", last)
	}
	if r := d.lastReport(t); r.Err == nil {
		t.Error("report should carry the contained failure")
	}

	// the engine keeps working afterwards
	b := s1.AddShape(oval("Oval 8", 0, 0, 7, 7))
	d.copyPaste(t, s1, s2, b)
	if _, ok := s2.Shape("[Oval 8]"); !ok {
		t.Error("engine stopped correlating after a contained panic")
	}
}

func TestDiagnosticsRateLimited(t *testing.T) {
	diag := NewDiagnostics(0.001, 2, nil)
	for i := 0; i < 5; i++ {
		diag.Record(&Error{Op: "paste", Cause: fmt.Errorf("boom %d", i)})
	}
	if diag.Recorded() != 5 {
		t.Errorf("recorded = %d, want 5", diag.Recorded())
	}
	if diag.Dropped() != 3 {
		t.Errorf("dropped = %d, want 3", diag.Dropped())
	}
}

func TestSlidePastePropagatesBundles(t *testing.T) {
	store, err := bundle.Open(bundle.Options{Backend: bundle.BackendMemory}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	panes := propagate.NewPanes(store, "")
	pane := panes.Open("w1")

	var refreshed []int
	opts := DefaultOptions()
	opts.Recorders = panes
	opts.Refresh = func(ids []int) { refreshed = append(refreshed, ids...) }
	d := newDeck(t, 3, opts)

	s2 := d.slide(t, 2)
	if _, err := pane.Record(s2.ID(), []string{"intro"}, [][]byte{[]byte("pcm")}); err != nil {
		t.Fatal(err)
	}

	if err := d.host.CopySlides(d.win, s2); err != nil {
		t.Fatal(err)
	}
	d.win.Activate(d.slide(t, 3))
	if err := d.host.Paste(d.win); err != nil {
		t.Fatal(err)
	}

	dest := d.slide(t, 4)
	b, err := pane.Export(dest)
	if err != nil {
		t.Fatalf("destination has no bundle: %v", err)
	}
	if b.Scripts[0].Text != "intro" {
		t.Errorf("script = %q", b.Scripts[0].Text)
	}
	if len(refreshed) != 1 || refreshed[0] != dest.ID() {
		t.Errorf("refreshed = %v, want [%d]", refreshed, dest.ID())
	}
	if d.engine.Stats().Propagated != 1 {
		t.Errorf("propagated = %d", d.engine.Stats().Propagated)
	}
}

func TestSlidePasteIntoOtherDocumentIsStale(t *testing.T) {
	store, err := bundle.Open(bundle.Options{Backend: bundle.BackendMemory}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	panes := propagate.NewPanes(store, "")
	pane := panes.Open("w1")
	otherPane := panes.Open("w2")

	opts := DefaultOptions()
	opts.Recorders = panes
	d := newDeck(t, 1, opts)

	other := d.host.AddDocument("other.pptx")
	other.AddSlide()
	w2 := d.host.OpenWindow("w2", other)

	s1 := d.slide(t, 1)
	if _, err := pane.Record(s1.ID(), []string{"intro"}, [][]byte{[]byte("pcm")}); err != nil {
		t.Fatal(err)
	}

	_ = d.host.CopySlides(d.win, s1)
	if err := d.host.Paste(w2); err != nil {
		t.Fatal(err)
	}

	r := d.lastReport(t)
	if r.Skipped == "" {
		t.Fatal("slide paste into another document should be skipped")
	}
	if len(r.Propagation.Transfers) != 0 {
		t.Errorf("transfers = %d, want none", len(r.Propagation.Transfers))
	}
	ids, _ := otherPane.Slides()
	if len(ids) != 0 {
		t.Errorf("other document received bundles for slides %v", ids)
	}
	if d.engine.Stats().Stale != 1 {
		t.Errorf("stale = %d, want 1", d.engine.Stats().Stale)
	}
}

func TestCopyOfTextClearsSession(t *testing.T) {
	d := newDeck(t, 2, DefaultOptions())
	s1 := d.slide(t, 1)
	a := s1.AddShape(oval("Oval 3", 0, 0, 5, 5))

	d.win.Activate(s1)
	_ = d.host.CopyShapes(d.win, a)
	d.host.CopyText(d.win)

	if _, ok := d.engine.Pending(); ok {
		t.Error("copying text should drop the pending session")
	}
}
