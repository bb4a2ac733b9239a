package snapshot

import "fmt"

// ShapeType mirrors the host's shape type codes.
type ShapeType int

const (
	TypeUnknown ShapeType = iota
	TypeAutoShape
	TypeFreeform
	TypeTextBox
	TypePicture
	TypeGroup
	TypeLine
	TypePlaceholder
	TypeTable
	TypeChart
	TypeMedia
)

// String returns the string representation of the shape type.
func (t ShapeType) String() string {
	switch t {
	case TypeAutoShape:
		return "autoshape"
	case TypeFreeform:
		return "freeform"
	case TypeTextBox:
		return "textbox"
	case TypePicture:
		return "picture"
	case TypeGroup:
		return "group"
	case TypeLine:
		return "line"
	case TypePlaceholder:
		return "placeholder"
	case TypeTable:
		return "table"
	case TypeChart:
		return "chart"
	case TypeMedia:
		return "media"
	default:
		return "unknown"
	}
}

// HasSubtype reports whether shapes of this type carry a subtype (the
// auto-shape geometry) that must also agree when comparing shapes.
func (t ShapeType) HasSubtype() bool {
	return t == TypeAutoShape
}

// ParseShapeType converts a type name back into a ShapeType.
func ParseShapeType(s string) (ShapeType, error) {
	for t := TypeUnknown; t <= TypeMedia; t++ {
		if t.String() == s {
			return t, nil
		}
	}
	return TypeUnknown, fmt.Errorf("unknown shape type %q", s)
}

// Shape is the copy-time record of a shape's identity-relevant attributes.
type Shape struct {
	ID      int // host intrinsic id, unique per slide
	Name    string
	Left    float64
	Top     float64
	Width   float64
	Height  float64
	Type    ShapeType
	Subtype int // only meaningful when Type.HasSubtype()
	ZOrder  int // stacking position, 1 is the bottom-most shape
}

// SameKind reports whether both shapes have the same type and, for types that
// carry one, the same subtype.
func (s Shape) SameKind(o Shape) bool {
	if s.Type != o.Type {
		return false
	}
	return !s.Type.HasSubtype() || s.Subtype == o.Subtype
}

// Slide is the copy-time record of a slide.
type Slide struct {
	ID    int
	Index int // 1-based position in the document
}
