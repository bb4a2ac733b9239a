package host

import (
	"errors"

	"github.com/pptlabs/pastelink/internal/snapshot"
)

// Common host errors
var (
	// ErrUnreadable is returned when a shape reference can no longer be read,
	// typically because the host invalidated it between copy and paste.
	ErrUnreadable = errors.New("shape is not readable")

	// ErrNameTaken is returned when a rename would duplicate a name on the slide.
	ErrNameTaken = errors.New("name already used on slide")

	// ErrNotFound is returned when a shape or slide lookup fails.
	ErrNotFound = errors.New("not found")
)

// SelectionKind identifies what a copy or paste selection contains.
type SelectionKind int

const (
	// SelectionNone covers text, empty and any other selection.
	SelectionNone SelectionKind = iota
	// SelectionShapes is a selection of shapes on a single slide.
	SelectionShapes
	// SelectionSlides is a selection of whole slides.
	SelectionSlides
)

// String returns the string representation of the selection kind.
func (k SelectionKind) String() string {
	switch k {
	case SelectionShapes:
		return "shapes"
	case SelectionSlides:
		return "slides"
	default:
		return "none"
	}
}

// WindowID identifies a document window.
type WindowID string

// Shape is a live reference to a visual element on a slide.
type Shape interface {
	// ID returns the host intrinsic id. It stays available after the shape
	// becomes unreadable.
	ID() int

	// Read returns the current attributes of the shape, or an error wrapping
	// ErrUnreadable when the reference is broken.
	Read() (snapshot.Shape, error)

	SetName(name string) error
	SetPosition(left, top float64) error

	// ZOrder returns the stacking position, 1 being the bottom-most shape.
	ZOrder() (int, error)

	// SendBackward moves the shape one step down the stacking order.
	SendBackward() error

	// Duplicate copies the shape through the host clipboard and pastes it
	// onto the shape's own slide, returning the new shape.
	Duplicate() (Shape, error)

	Delete() error
	Slide() Slide
}

// Slide is a live reference to a slide.
type Slide interface {
	ID() int
	Index() int
	ShapeCount() int

	// ShapesByName resolves names to shapes on this slide, in the given order.
	ShapesByName(names ...string) ([]Shape, error)

	// Select makes the given shapes the user's selection.
	Select(shapes []Shape) error
}

// CopyEvent is raised by the host after a copy.
type CopyEvent struct {
	Kind     SelectionKind
	Window   WindowID
	Document string
	Slide    Slide // active slide of the window
	Shapes   []Shape
	Slides   []Slide
}

// PasteEvent is raised by the host after a paste, carrying the resulting
// elements in the order the host reports them.
type PasteEvent struct {
	Kind     SelectionKind
	Window   WindowID
	Document string
	Slide    Slide // destination slide
	Shapes   []Shape
	Slides   []Slide
}

// CopyObserver is notified after every copy.
type CopyObserver interface {
	AfterCopy(ev CopyEvent)
}

// PasteObserver is notified after every paste.
type PasteObserver interface {
	AfterPaste(ev PasteEvent)
}

// CopyObserverFunc adapts a function to CopyObserver.
type CopyObserverFunc func(ev CopyEvent)

// AfterCopy calls f(ev).
func (f CopyObserverFunc) AfterCopy(ev CopyEvent) { f(ev) }

// PasteObserverFunc adapts a function to PasteObserver.
type PasteObserverFunc func(ev PasteEvent)

// AfterPaste calls f(ev).
func (f PasteObserverFunc) AfterPaste(ev PasteEvent) { f(ev) }

// EditingSession is the host surface observers are registered against.
// Observers are invoked synchronously, in registration order.
type EditingSession interface {
	OnCopy(obs CopyObserver)
	OnPaste(obs PasteObserver)
}
