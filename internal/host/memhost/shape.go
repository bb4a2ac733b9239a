package memhost

import (
	"fmt"

	"github.com/pptlabs/pastelink/internal/host"
	"github.com/pptlabs/pastelink/internal/snapshot"
)

// Shape is a shape on an in-memory slide.
type Shape struct {
	slide   *Slide
	id      int
	name    string
	left    float64
	top     float64
	width   float64
	height  float64
	typ     snapshot.ShapeType
	subtype int

	corrupted bool
	deleted   bool
}

// ID returns the intrinsic id of the shape.
func (s *Shape) ID() int { return s.id }

// Name returns the current name without going through Read.
func (s *Shape) Name() string { return s.name }

// Deleted reports whether the shape was deleted.
func (s *Shape) Deleted() bool { return s.deleted }

// Corrupt makes every further Read, SetName and ZOrder call fail, the way a
// host reference goes bad between copy and paste.
func (s *Shape) Corrupt() { s.corrupted = true }

// Read returns the current attributes of the shape.
func (s *Shape) Read() (snapshot.Shape, error) {
	if err := s.readable(); err != nil {
		return snapshot.Shape{}, err
	}
	return s.attrs(), nil
}

// SetName renames the shape. Names must stay unique on the slide.
func (s *Shape) SetName(name string) error {
	if err := s.readable(); err != nil {
		return err
	}
	if s.slide.nameTaken(name, s) {
		return fmt.Errorf("rename shape %d to %q: %w", s.id, name, host.ErrNameTaken)
	}
	s.name = name
	s.slide.doc.host.renames++
	return nil
}

// SetPosition moves the shape.
func (s *Shape) SetPosition(left, top float64) error {
	if err := s.readable(); err != nil {
		return err
	}
	s.left, s.top = left, top
	return nil
}

// ZOrder returns the stacking position, 1 being the bottom-most shape.
func (s *Shape) ZOrder() (int, error) {
	if err := s.readable(); err != nil {
		return 0, err
	}
	return s.slide.zOrder(s), nil
}

// SendBackward moves the shape one step down. It is a no-op at the bottom.
func (s *Shape) SendBackward() error {
	if err := s.readable(); err != nil {
		return err
	}
	pos := s.slide.zOrder(s) - 1
	if pos > 0 {
		sh := s.slide.shapes
		sh[pos-1], sh[pos] = sh[pos], sh[pos-1]
	}
	return nil
}

// Duplicate copies the shape onto its own slide. It works on corrupted
// shapes too: the host copy primitive does not go through the broken
// property accessors.
func (s *Shape) Duplicate() (host.Shape, error) {
	if s.deleted {
		return nil, fmt.Errorf("duplicate shape %d: %w", s.id, host.ErrNotFound)
	}
	spec := s.spec()
	spec.Name = ""
	spec.Left += pasteOffset
	spec.Top += pasteOffset
	return s.slide.addShape(spec), nil
}

// Delete removes the shape from its slide.
func (s *Shape) Delete() error {
	if s.deleted {
		return fmt.Errorf("delete shape %d: %w", s.id, host.ErrNotFound)
	}
	s.slide.remove(s)
	s.deleted = true
	return nil
}

// Slide returns the owning slide.
func (s *Shape) Slide() host.Slide { return s.slide }

func (s *Shape) readable() error {
	if s.deleted || s.corrupted {
		return fmt.Errorf("shape %d on slide %d: %w", s.id, s.slide.id, host.ErrUnreadable)
	}
	return nil
}

func (s *Shape) attrs() snapshot.Shape {
	return snapshot.Shape{
		ID:      s.id,
		Name:    s.name,
		Left:    s.left,
		Top:     s.top,
		Width:   s.width,
		Height:  s.height,
		Type:    s.typ,
		Subtype: s.subtype,
		ZOrder:  s.slide.zOrder(s),
	}
}

func (s *Shape) spec() ShapeSpec {
	return ShapeSpec{
		Name:    s.name,
		Left:    s.left,
		Top:     s.top,
		Width:   s.width,
		Height:  s.height,
		Type:    s.typ,
		Subtype: s.subtype,
	}
}
