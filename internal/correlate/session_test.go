package correlate

import (
	"errors"
	"testing"

	"github.com/pptlabs/pastelink/internal/host"
	"github.com/pptlabs/pastelink/internal/host/memhost"
	"github.com/pptlabs/pastelink/internal/snapshot"
)

func TestRecorder_SortsByID(t *testing.T) {
	h := memhost.New()
	doc := h.AddDocument("deck.pptx")
	sl := doc.AddSlide()
	a := sl.AddShape(memhost.ShapeSpec{Width: 1, Height: 1, Type: snapshot.TypeAutoShape})
	b := sl.AddShape(memhost.ShapeSpec{Width: 2, Height: 2, Type: snapshot.TypeAutoShape})
	c := sl.AddShape(memhost.ShapeSpec{Width: 3, Height: 3, Type: snapshot.TypeAutoShape})

	store := NewStore()
	rec := NewRecorder(store, nil)
	h.OnCopy(host.CopyObserverFunc(func(ev host.CopyEvent) { rec.Record(ev) }))

	w := h.OpenWindow("w1", doc)
	if err := h.CopyShapes(w, c, a, b); err != nil {
		t.Fatal(err)
	}

	s, ok := store.Peek()
	if !ok {
		t.Fatal("no session recorded")
	}
	for i, want := range []int{a.ID(), b.ID(), c.ID()} {
		if got := s.Shapes[i].Snapshot.ID; got != want {
			t.Errorf("shape %d id = %d, want %d", i, got, want)
		}
	}
	if s.Key.Document != "deck.pptx" || s.Key.Window != "w1" || s.SourceSlideID != sl.ID() {
		t.Errorf("session context = %+v", s.Key)
	}
}

func TestRecorder_SkipsUnreadable(t *testing.T) {
	h := memhost.New()
	doc := h.AddDocument("deck.pptx")
	sl := doc.AddSlide()
	a := sl.AddShape(memhost.ShapeSpec{Width: 1, Height: 1})
	b := sl.AddShape(memhost.ShapeSpec{Width: 1, Height: 1})
	b.Corrupt()

	store := NewStore()
	rec := NewRecorder(store, nil)
	s := rec.Record(host.CopyEvent{
		Kind:   host.SelectionShapes,
		Slide:  sl,
		Shapes: []host.Shape{b, a},
	})

	if len(s.Shapes) != 1 || s.Shapes[0].Snapshot.ID != a.ID() {
		t.Errorf("recorded %+v, want only shape %d", s.Shapes, a.ID())
	}
}

func TestRecorder_SlidesByIndex(t *testing.T) {
	h := memhost.New()
	doc := h.AddDocument("deck.pptx")
	for i := 0; i < 7; i++ {
		doc.AddSlide()
	}
	s2, _ := doc.Slide(2)
	s5, _ := doc.Slide(5)
	s7, _ := doc.Slide(7)

	rec := NewRecorder(NewStore(), nil)
	s := rec.Record(host.CopyEvent{
		Kind:   host.SelectionSlides,
		Slides: []host.Slide{s7, s2, s5},
	})

	got := s.SlideSnapshots()
	for i, want := range []int{2, 5, 7} {
		if got[i].Index != want {
			t.Errorf("slide %d index = %d, want %d", i, got[i].Index, want)
		}
	}
}

func TestRecorder_ReplacesAndClears(t *testing.T) {
	store := NewStore()
	rec := NewRecorder(store, nil)

	first := rec.Record(host.CopyEvent{Kind: host.SelectionSlides})
	second := rec.Record(host.CopyEvent{Kind: host.SelectionSlides})
	if first.ID == second.ID {
		t.Error("sessions must have distinct ids")
	}
	if s, _ := store.Peek(); s != second {
		t.Error("a new copy must replace the session wholesale")
	}

	if rec.Record(host.CopyEvent{Kind: host.SelectionNone}) != nil {
		t.Error("text copy should not record a session")
	}
	if _, ok := store.Peek(); ok {
		t.Error("text copy should clear the store")
	}
}

func TestStore_TakeOnce(t *testing.T) {
	store := NewStore()
	store.Put(&Session{ID: "s1"})

	if s, ok := store.Take(); !ok || s.ID != "s1" {
		t.Fatalf("Take = %v, %v", s, ok)
	}
	if _, ok := store.Take(); ok {
		t.Error("session handed out twice")
	}
}

func TestSession_Check(t *testing.T) {
	h := memhost.New()
	doc := h.AddDocument("deck.pptx")
	src := doc.AddSlide()
	dst := doc.AddSlide()

	shapes := &Session{
		Kind:          host.SelectionShapes,
		Key:           Key{Document: "deck.pptx", Window: "w1"},
		SourceSlideID: src.ID(),
	}

	slides := &Session{
		Kind:   host.SelectionSlides,
		Key:    Key{Document: "deck.pptx", Window: "w1"},
		Slides: []SlideEntry{{Snapshot: snapshot.Slide{ID: src.ID(), Index: 1}, Ref: src}},
	}

	tests := []struct {
		name    string
		session *Session
		ev      host.PasteEvent
		wantErr error
	}{
		{"other slide", shapes, host.PasteEvent{Kind: host.SelectionShapes, Document: "deck.pptx", Slide: dst}, nil},
		{"same slide", shapes, host.PasteEvent{Kind: host.SelectionShapes, Document: "deck.pptx", Slide: src}, ErrSameSlide},
		{"other document", shapes, host.PasteEvent{Kind: host.SelectionShapes, Document: "x.pptx", Slide: dst}, ErrStale},
		{"kind mismatch", shapes, host.PasteEvent{Kind: host.SelectionSlides, Document: "deck.pptx"}, ErrStale},
		{"no slide", shapes, host.PasteEvent{Kind: host.SelectionShapes, Document: "deck.pptx"}, ErrStale},
		{"empty slides", &Session{Kind: host.SelectionSlides}, host.PasteEvent{Kind: host.SelectionSlides}, ErrStale},
		{"slides same document", slides, host.PasteEvent{Kind: host.SelectionSlides, Document: "deck.pptx", Window: "w2"}, nil},
		{"slides other document", slides, host.PasteEvent{Kind: host.SelectionSlides, Document: "x.pptx", Window: "w1"}, ErrStale},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.session.Check(tt.ev)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if !errors.Is(ErrSameSlide, ErrStale) {
		t.Error("same-slide paste must count as stale")
	}
}
