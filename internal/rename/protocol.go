package rename

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/pptlabs/pastelink/internal/correlate"
	"github.com/pptlabs/pastelink/internal/host"
)

// Generator produces unique placeholder names.
type Generator func() string

// UUIDGenerator returns a Generator producing prefix followed by a random UUID.
func UUIDGenerator(prefix string) Generator {
	return func() string {
		return prefix + uuid.NewString()
	}
}

// Plan is everything Apply needs for one pasted range.
type Plan struct {
	Slide   host.Slide        // destination slide
	Shapes  []host.Shape      // pasted range, in host order
	Names   []string          // host-assigned names, parallel to Shapes
	Mapping correlate.Mapping // parallel to Shapes
	Targets []string          // final name per original index
}

// Result summarises an Apply run.
type Result struct {
	Renamed int // shapes now carrying their target name
	Kept    int // unmatched shapes left with the host name
	Failed  int // matched shapes that could not be renamed
}

// Protocol runs the placeholder and resolution phases.
type Protocol struct {
	gen    Generator
	logger *log.Logger
}

// New creates a Protocol. A nil gen uses UUIDGenerator("").
func New(gen Generator, logger *log.Logger) *Protocol {
	if gen == nil {
		gen = UUIDGenerator("")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Protocol{gen: gen, logger: logger.With("component", "rename")}
}

type pending struct {
	placeholder string
	target      string
	hostName    string
}

// Apply renames the pasted shapes and re-selects the pasted range.
func (p *Protocol) Apply(plan Plan) (Result, error) {
	var res Result
	if len(plan.Mapping) != len(plan.Shapes) || len(plan.Names) != len(plan.Shapes) {
		return res, fmt.Errorf("rename plan: %d shapes, %d names, %d matches",
			len(plan.Shapes), len(plan.Names), len(plan.Mapping))
	}

	// Placeholder phase
	queue := make([]pending, 0, len(plan.Shapes))
	used := make(map[string]struct{}, len(plan.Shapes))
	for i, shape := range plan.Shapes {
		m := plan.Mapping[i]
		if !m.Matched() {
			res.Kept++
			continue
		}
		if m.Original >= len(plan.Targets) {
			return res, fmt.Errorf("rename plan: match %d points past %d targets", m.Original, len(plan.Targets))
		}

		placeholder := p.placeholder(used)
		if err := shape.SetName(placeholder); err != nil {
			p.logger.Warn("Could not assign placeholder", "shape", plan.Names[i], "err", err)
			res.Failed++
			continue
		}
		queue = append(queue, pending{
			placeholder: placeholder,
			target:      plan.Targets[m.Original],
			hostName:    plan.Names[i],
		})
	}

	// Resolution phase
	for _, item := range queue {
		found, err := plan.Slide.ShapesByName(item.placeholder)
		if err != nil || len(found) == 0 {
			p.logger.Error("Placeholder vanished before resolution", "placeholder", item.placeholder, "err", err)
			res.Failed++
			continue
		}
		shape := found[0]

		if err := shape.SetName(item.target); err != nil {
			p.logger.Warn("Could not apply target name, restoring host name",
				"target", item.target, "host_name", item.hostName, "err", err)
			if rerr := shape.SetName(item.hostName); rerr != nil {
				p.logger.Error("Could not restore host name", "placeholder", item.placeholder, "err", rerr)
			}
			res.Failed++
			continue
		}
		res.Renamed++
	}

	if err := plan.Slide.Select(plan.Shapes); err != nil {
		return res, fmt.Errorf("reselect pasted shapes: %w", err)
	}

	p.logger.Debug("Applied rename plan", "renamed", res.Renamed, "kept", res.Kept, "failed", res.Failed)
	return res, nil
}

func (p *Protocol) placeholder(used map[string]struct{}) string {
	for {
		name := p.gen()
		if _, dup := used[name]; !dup {
			used[name] = struct{}{}
			return name
		}
	}
}
