// Package scenario replays scripted copy and paste sessions against the
// in-memory host, so correlation behaviour can be inspected without a live
// editing application.
package scenario

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pptlabs/pastelink/internal/snapshot"
)

// Step actions.
const (
	ActionCopy     = "copy"
	ActionPaste    = "paste"
	ActionCorrupt  = "corrupt"
	ActionCopyText = "copy_text"
	ActionActivate = "activate"
)

// ErrInvalidScenario is returned for scenarios that cannot be replayed.
var ErrInvalidScenario = errors.New("invalid scenario")

// Scenario is a replayable editing session.
type Scenario struct {
	Name      string     `yaml:"name"`
	Documents []Document `yaml:"documents"`
	Windows   []Window   `yaml:"windows"`
	Steps     []Step     `yaml:"steps"`
}

// Document is a presentation and its initial slides.
type Document struct {
	Name   string  `yaml:"name"`
	Slides []Slide `yaml:"slides"`
}

// Slide lists the shapes of a slide, bottom first, and its recording.
type Slide struct {
	Shapes []Shape `yaml:"shapes"`
	Bundle *Bundle `yaml:"bundle"`
}

// Shape describes one shape.
type Shape struct {
	Name    string  `yaml:"name"`
	Left    float64 `yaml:"left"`
	Top     float64 `yaml:"top"`
	Width   float64 `yaml:"width"`
	Height  float64 `yaml:"height"`
	Type    string  `yaml:"type"`
	Subtype int     `yaml:"subtype"`
}

// Bundle is the recording attached to a slide: script lines and, per line,
// optional clip content.
type Bundle struct {
	Scripts []string `yaml:"scripts"`
	Clips   []string `yaml:"clips"`
}

// Window opens a document. Windows with Recorder set take part in bundle
// propagation.
type Window struct {
	ID       string `yaml:"id"`
	Document string `yaml:"document"`
	Recorder bool   `yaml:"recorder"`
}

// Step is one user action. Slides are 1-based indexes at the time the step
// runs.
type Step struct {
	Action string   `yaml:"action"`
	Window string   `yaml:"window"`
	Slide  int      `yaml:"slide"`
	Shapes []string `yaml:"shapes"`
	Slides []int    `yaml:"slides"`
}

// Load reads a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a scenario.
func Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Validate checks references between documents, windows and steps.
func (sc *Scenario) Validate() error {
	docs := make(map[string]bool, len(sc.Documents))
	for _, d := range sc.Documents {
		if d.Name == "" {
			return fmt.Errorf("%w: document without a name", ErrInvalidScenario)
		}
		if docs[d.Name] {
			return fmt.Errorf("%w: duplicate document %q", ErrInvalidScenario, d.Name)
		}
		docs[d.Name] = true

		for i, sl := range d.Slides {
			for _, s := range sl.Shapes {
				if _, err := shapeType(s.Type); err != nil {
					return fmt.Errorf("%w: %s slide %d: %v", ErrInvalidScenario, d.Name, i+1, err)
				}
			}
		}
	}

	windows := make(map[string]bool, len(sc.Windows))
	for _, w := range sc.Windows {
		if !docs[w.Document] {
			return fmt.Errorf("%w: window %q opens unknown document %q", ErrInvalidScenario, w.ID, w.Document)
		}
		if windows[w.ID] {
			return fmt.Errorf("%w: duplicate window %q", ErrInvalidScenario, w.ID)
		}
		windows[w.ID] = true
	}

	for i, st := range sc.Steps {
		switch st.Action {
		case ActionCopy, ActionPaste, ActionCorrupt, ActionCopyText, ActionActivate:
		default:
			return fmt.Errorf("%w: step %d: unknown action %q", ErrInvalidScenario, i+1, st.Action)
		}
		if !windows[st.Window] {
			return fmt.Errorf("%w: step %d: unknown window %q", ErrInvalidScenario, i+1, st.Window)
		}
	}
	return nil
}

func shapeType(name string) (snapshot.ShapeType, error) {
	if name == "" {
		return snapshot.TypeAutoShape, nil
	}
	return snapshot.ParseShapeType(name)
}
