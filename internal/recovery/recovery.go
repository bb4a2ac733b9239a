// Package recovery rebuilds a copied shape whose host reference became
// unreadable between copy and paste.
package recovery

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/pptlabs/pastelink/internal/correlate"
	"github.com/pptlabs/pastelink/internal/host"
	"github.com/pptlabs/pastelink/internal/snapshot"
)

// ErrNoProgress is returned when sending the replacement backward stops
// changing its stacking position.
var ErrNoProgress = errors.New("z-order did not change")

// Unit repairs one broken shape at a time.
type Unit struct {
	logger *log.Logger
}

// New creates a recovery unit.
func New(logger *log.Logger) *Unit {
	if logger == nil {
		logger = log.Default()
	}
	return &Unit{logger: logger.With("component", "recovery")}
}

// Recover duplicates broken onto its own slide, gives the duplicate the
// bracket-wrapped name and the position from last, walks it down the stacking
// order until it is no higher than last.ZOrder and finally deletes broken.
// When any step after the duplication fails the duplicate is removed again,
// leaving the slide as it was.
func (u *Unit) Recover(broken host.Shape, last snapshot.Shape) (host.Shape, error) {
	dup, err := broken.Duplicate()
	if err != nil {
		return nil, fmt.Errorf("duplicate shape %d: %w", last.ID, err)
	}

	name := correlate.Bracket(last.Name)
	if err := u.place(dup, name, last); err != nil {
		u.discard(dup, name)
		return nil, err
	}
	if err := broken.Delete(); err != nil {
		u.discard(dup, name)
		return nil, fmt.Errorf("delete broken shape %d: %w", last.ID, err)
	}

	u.logger.Info("Recovered unreadable shape", "name", name, "left", last.Left, "top", last.Top, "z", last.ZOrder)
	return dup, nil
}

func (u *Unit) place(dup host.Shape, name string, last snapshot.Shape) error {
	if err := dup.SetName(name); err != nil {
		return fmt.Errorf("name replacement %q: %w", name, err)
	}
	if err := dup.SetPosition(last.Left, last.Top); err != nil {
		return fmt.Errorf("position replacement %q: %w", name, err)
	}
	if err := u.restack(dup, last.ZOrder); err != nil {
		return fmt.Errorf("restack replacement %q: %w", name, err)
	}
	return nil
}

func (u *Unit) discard(dup host.Shape, name string) {
	if err := dup.Delete(); err != nil {
		u.logger.Warn("Could not remove unfinished replacement", "name", name, "err", err)
	}
}

func (u *Unit) restack(s host.Shape, target int) error {
	if target < 1 {
		target = 1
	}
	limit := s.Slide().ShapeCount()
	for step := 0; step <= limit; step++ {
		z, err := s.ZOrder()
		if err != nil {
			return err
		}
		if z <= target {
			return nil
		}
		if err := s.SendBackward(); err != nil {
			return err
		}
		after, err := s.ZOrder()
		if err != nil {
			return err
		}
		if after >= z {
			return fmt.Errorf("%w at position %d", ErrNoProgress, z)
		}
	}
	return fmt.Errorf("%w after %d steps", ErrNoProgress, limit)
}
