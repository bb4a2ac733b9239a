package rename

import (
	"fmt"
	"strings"
	"testing"

	"github.com/pptlabs/pastelink/internal/correlate"
	"github.com/pptlabs/pastelink/internal/host"
	"github.com/pptlabs/pastelink/internal/host/memhost"
	"github.com/pptlabs/pastelink/internal/snapshot"
)

func setup(t *testing.T, names ...string) (*memhost.Host, *memhost.Slide, []host.Shape) {
	t.Helper()
	h := memhost.New()
	sl := h.AddDocument("deck.pptx").AddSlide()
	shapes := make([]host.Shape, len(names))
	for i, n := range names {
		shapes[i] = sl.AddShape(memhost.ShapeSpec{Name: n, Width: 10, Height: 10, Type: snapshot.TypeAutoShape})
	}
	return h, sl, shapes
}

func counter() Generator {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("tmp-%d", n)
	}
}

func TestApply_SwapsWithoutCollision(t *testing.T) {
	// the two pasted shapes want each other's current names
	_, sl, shapes := setup(t, "Oval 1", "Oval 2")

	plan := Plan{
		Slide:  sl,
		Shapes: shapes,
		Names:  []string{"Oval 1", "Oval 2"},
		Mapping: correlate.Mapping{
			{Original: 1, Pass: correlate.PassStrong},
			{Original: 0, Pass: correlate.PassStrong},
		},
		Targets: []string{"Oval 1", "Oval 2"},
	}

	res, err := New(counter(), nil).Apply(plan)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if res.Renamed != 2 || res.Failed != 0 {
		t.Fatalf("result = %+v", res)
	}

	s0 := shapes[0].(*memhost.Shape)
	s1 := shapes[1].(*memhost.Shape)
	if s0.Name() != "Oval 2" || s1.Name() != "Oval 1" {
		t.Errorf("names = %q, %q", s0.Name(), s1.Name())
	}
}

func TestApply_UnmatchedKeepsHostName(t *testing.T) {
	h, sl, shapes := setup(t, "Oval 1", "Logo")

	plan := Plan{
		Slide:  sl,
		Shapes: shapes,
		Names:  []string{"Oval 1", "Logo"},
		Mapping: correlate.Mapping{
			{Original: 0, Pass: correlate.PassWeak},
			{Original: correlate.NoMatch},
		},
		Targets: []string{"[Oval 9]"},
	}

	res, err := New(counter(), nil).Apply(plan)
	if err != nil {
		t.Fatal(err)
	}
	if res.Kept != 1 || res.Renamed != 1 {
		t.Errorf("result = %+v", res)
	}
	if shapes[1].(*memhost.Shape).Name() != "Logo" {
		t.Error("unmatched shape renamed")
	}
	// placeholder + target for the matched shape only
	if h.Renames() != 2 {
		t.Errorf("renames = %d, want 2", h.Renames())
	}
	if got := sl.Selection(); len(got) != 2 || got[0] != "[Oval 9]" {
		t.Errorf("selection = %v", got)
	}
}

func TestApply_RestoresHostNameOnConflict(t *testing.T) {
	_, sl, shapes := setup(t, "Oval 1", "Title")

	plan := Plan{
		Slide:   sl,
		Shapes:  shapes[:1],
		Names:   []string{"Oval 1"},
		Mapping: correlate.Mapping{{Original: 0, Pass: correlate.PassStrong}},
		Targets: []string{"Title"},
	}

	res, err := New(counter(), nil).Apply(plan)
	if err != nil {
		t.Fatal(err)
	}
	if res.Failed != 1 {
		t.Errorf("result = %+v", res)
	}
	if n := shapes[0].(*memhost.Shape).Name(); n != "Oval 1" {
		t.Errorf("name = %q, want the host name back", n)
	}
}

func TestApply_UniquePlaceholders(t *testing.T) {
	_, sl, shapes := setup(t, "Oval 1", "Oval 2", "Oval 3")

	// a generator that repeats itself
	calls := 0
	gen := func() string {
		calls++
		return fmt.Sprintf("tmp-%d", calls/2)
	}

	var placeholders []string
	plan := Plan{
		Slide:  sl,
		Shapes: shapes,
		Names:  []string{"Oval 1", "Oval 2", "Oval 3"},
		Mapping: correlate.Mapping{
			{Original: 0}, {Original: 1}, {Original: 2},
		},
		Targets: []string{"[A 1]", "[B 1]", "[C 1]"},
	}
	p := New(func() string {
		name := gen()
		placeholders = append(placeholders, name)
		return name
	}, nil)

	if _, err := p.Apply(plan); err != nil {
		t.Fatal(err)
	}
	for i, want := range []string{"[A 1]", "[B 1]", "[C 1]"} {
		if got := shapes[i].(*memhost.Shape).Name(); got != want {
			t.Errorf("shape %d = %q, want %q", i, got, want)
		}
	}
	if len(placeholders) <= 3 {
		t.Errorf("duplicate placeholders were not regenerated: %v", placeholders)
	}
}

func TestApply_BadPlan(t *testing.T) {
	_, sl, shapes := setup(t, "Oval 1")

	_, err := New(nil, nil).Apply(Plan{Slide: sl, Shapes: shapes})
	if err == nil {
		t.Error("expected an error for mismatched plan lengths")
	}

	_, err = New(nil, nil).Apply(Plan{
		Slide:   sl,
		Shapes:  shapes,
		Names:   []string{"Oval 1"},
		Mapping: correlate.Mapping{{Original: 3}},
	})
	if err == nil || !strings.Contains(err.Error(), "targets") {
		t.Errorf("expected a targets error, got %v", err)
	}
}

func TestUUIDGenerator(t *testing.T) {
	gen := UUIDGenerator("pl-")
	a, b := gen(), gen()
	if a == b {
		t.Error("generator repeated itself")
	}
	if !strings.HasPrefix(a, "pl-") || len(a) != len("pl-")+36 {
		t.Errorf("unexpected placeholder %q", a)
	}
}
