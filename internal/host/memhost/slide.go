package memhost

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/pptlabs/pastelink/internal/host"
	"github.com/pptlabs/pastelink/internal/snapshot"
)

// autoName matches names the host generates itself, like "Oval 3".
var autoName = regexp.MustCompile(`^([^\[]\D+)\s\d+$`)

// Slide is a slide holding shapes in stacking order, bottom first.
type Slide struct {
	doc         *Document
	id          int
	shapes      []*Shape
	selection   []host.Shape
	nextShapeID int
}

// ID returns the slide id.
func (sl *Slide) ID() int { return sl.id }

// Index returns the 1-based position of the slide in its document.
func (sl *Slide) Index() int {
	for i, other := range sl.doc.slides {
		if other == sl {
			return i + 1
		}
	}
	return 0
}

// ShapeCount returns the number of shapes on the slide.
func (sl *Slide) ShapeCount() int { return len(sl.shapes) }

// Shapes returns the shapes in stacking order, bottom first.
func (sl *Slide) Shapes() []*Shape {
	out := make([]*Shape, len(sl.shapes))
	copy(out, sl.shapes)
	return out
}

// Shape returns the first shape with the given name.
func (sl *Slide) Shape(name string) (*Shape, bool) {
	for _, s := range sl.shapes {
		if s.name == name {
			return s, true
		}
	}
	return nil, false
}

// ShapesByName resolves names to shapes on the slide.
func (sl *Slide) ShapesByName(names ...string) ([]host.Shape, error) {
	out := make([]host.Shape, 0, len(names))
	for _, name := range names {
		s, ok := sl.Shape(name)
		if !ok {
			return nil, fmt.Errorf("shape %q on slide %d: %w", name, sl.id, host.ErrNotFound)
		}
		out = append(out, s)
	}
	return out, nil
}

// Select makes shapes the current selection.
func (sl *Slide) Select(shapes []host.Shape) error {
	for _, s := range shapes {
		ms, ok := s.(*Shape)
		if !ok || ms.slide != sl || ms.deleted {
			return fmt.Errorf("select shape %d on slide %d: %w", s.ID(), sl.id, host.ErrNotFound)
		}
	}
	sl.selection = append([]host.Shape(nil), shapes...)
	return nil
}

// Selection returns the names of the selected shapes.
func (sl *Slide) Selection() []string {
	names := make([]string, 0, len(sl.selection))
	for _, s := range sl.selection {
		names = append(names, s.(*Shape).name)
	}
	return names
}

// ShapeSpec describes a shape to add.
type ShapeSpec struct {
	Name    string // empty means a host-generated default name
	Left    float64
	Top     float64
	Width   float64
	Height  float64
	Type    snapshot.ShapeType
	Subtype int
}

// AddShape adds a shape on top of the stacking order.
func (sl *Slide) AddShape(spec ShapeSpec) *Shape {
	return sl.addShape(spec)
}

func (sl *Slide) addShape(spec ShapeSpec) *Shape {
	id := sl.nextShapeID
	sl.nextShapeID++

	name := spec.Name
	if name == "" || sl.nameTaken(name, nil) {
		name = defaultPrefix(spec.Type) + " " + strconv.Itoa(id)
	}

	s := &Shape{
		slide:   sl,
		id:      id,
		name:    name,
		left:    spec.Left,
		top:     spec.Top,
		width:   spec.Width,
		height:  spec.Height,
		typ:     spec.Type,
		subtype: spec.Subtype,
	}
	sl.shapes = append(sl.shapes, s)
	return s
}

// pastedName is the transient name the host gives a pasted copy of a shape
// called name: default names get a fresh number, explicit names survive when
// they do not collide.
func (sl *Slide) pastedName(name string) string {
	if m := autoName.FindStringSubmatch(name); m != nil {
		return m[1] + " " + strconv.Itoa(sl.nextShapeID)
	}
	if sl.nameTaken(name, nil) {
		return ""
	}
	return name
}

func (sl *Slide) nameTaken(name string, except *Shape) bool {
	for _, s := range sl.shapes {
		if s != except && s.name == name {
			return true
		}
	}
	return false
}

func (sl *Slide) zOrder(s *Shape) int {
	for i, other := range sl.shapes {
		if other == s {
			return i + 1
		}
	}
	return 0
}

func (sl *Slide) remove(s *Shape) {
	for i, other := range sl.shapes {
		if other == s {
			sl.shapes = append(sl.shapes[:i], sl.shapes[i+1:]...)
			break
		}
	}
	for i, other := range sl.selection {
		if other == host.Shape(s) {
			sl.selection = append(sl.selection[:i], sl.selection[i+1:]...)
			break
		}
	}
}

func defaultPrefix(t snapshot.ShapeType) string {
	switch t {
	case snapshot.TypeAutoShape:
		return "Rectangle"
	case snapshot.TypeFreeform:
		return "Freeform"
	case snapshot.TypeTextBox:
		return "TextBox"
	case snapshot.TypePicture:
		return "Picture"
	case snapshot.TypeGroup:
		return "Group"
	case snapshot.TypeLine:
		return "Straight Connector"
	case snapshot.TypePlaceholder:
		return "Content Placeholder"
	case snapshot.TypeTable:
		return "Table"
	case snapshot.TypeChart:
		return "Chart"
	case snapshot.TypeMedia:
		return "Media"
	default:
		return "Shape"
	}
}
