package bundle

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/pptlabs/pastelink/internal/host"
)

// Backends accepted by Open.
const (
	BackendMemory = "memory"
	BackendDisk   = "disk"
)

const (
	indexFile = "bundles.db"

	defaultMemoryCapacity = 64 << 20
	defaultDiskCapacity   = 512 << 20
)

// Options configure Open.
type Options struct {
	Backend          string
	Dir              string // required for the disk backend
	MemoryCapacity   int64  // bytes, memory backend
	DiskCapacity     int64  // bytes, disk backend
	CompressionLevel int
}

// Store pairs a clip store with a bundle index.
type Store struct {
	clips  ClipStore
	index  Index
	logger *log.Logger
}

// Open builds a store for the configured backend.
func Open(opts Options, logger *log.Logger) (*Store, error) {
	if opts.MemoryCapacity <= 0 {
		opts.MemoryCapacity = defaultMemoryCapacity
	}
	if opts.DiskCapacity <= 0 {
		opts.DiskCapacity = defaultDiskCapacity
	}
	switch opts.Backend {
	case BackendMemory, "":
		return NewStore(NewMemoryClips(opts.MemoryCapacity), NewMemoryIndex(), logger), nil
	case BackendDisk:
		if opts.Dir == "" {
			return nil, errors.New("disk backend needs a directory")
		}
		clips, err := NewDiskClips(filepath.Join(opts.Dir, "clips"), opts.DiskCapacity, opts.CompressionLevel)
		if err != nil {
			return nil, err
		}
		index, err := OpenSQLiteIndex(filepath.Join(opts.Dir, indexFile))
		if err != nil {
			_ = clips.Close()
			return nil, err
		}
		return NewStore(clips, index, logger), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
}

// NewStore creates a store from its parts.
func NewStore(clips ClipStore, index Index, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Default()
	}
	return &Store{clips: clips, index: index, logger: logger.With("component", "bundles")}
}

// Recorder returns the view of the store for one namespace, usually a window.
func (s *Store) Recorder(ns string) *Recorder {
	return &Recorder{ns: ns, store: s, logger: s.logger.With("ns", ns)}
}

// ClipStats returns the clip store statistics.
func (s *Store) ClipStats() Stats {
	return s.clips.Stats()
}

// Close closes the clip store and the index.
func (s *Store) Close() error {
	return errors.Join(s.clips.Close(), s.index.Close())
}

// Recorder owns the bundles of the slides of one window.
type Recorder struct {
	ns     string
	store  *Store
	logger *log.Logger
}

// Namespace returns the recorder namespace.
func (r *Recorder) Namespace() string { return r.ns }

// Record stores a fresh recording for a slide: one script line per entry of
// scripts and, where audio[i] is non-nil, a clip for line i.
func (r *Recorder) Record(slideID int, scripts []string, audio [][]byte) (Bundle, error) {
	b := Bundle{SlideID: slideID}
	for i, text := range scripts {
		b.Scripts = append(b.Scripts, ScriptLine{Index: i, Text: text})
		if i < len(audio) && audio[i] != nil {
			b.Clips = append(b.Clips, Clip{
				Name:  fmt.Sprintf("PowerPointLabs Speech %d", i+1),
				Line:  i,
				Audio: audio[i],
			})
		}
	}
	if err := r.save(slideID, b); err != nil {
		return Bundle{}, err
	}
	return r.store.index.Load(r.ns, slideID)
}

// Bundle returns the stored record of a slide without clip bytes.
func (r *Recorder) Bundle(slideID int) (Bundle, error) {
	return r.store.index.Load(r.ns, slideID)
}

// Export returns the bundle of a slide with the audio of every clip loaded.
func (r *Recorder) Export(slide host.Slide) (Bundle, error) {
	b, err := r.store.index.Load(r.ns, slide.ID())
	if err != nil {
		return Bundle{}, err
	}
	for i, c := range b.Clips {
		data, ok := r.store.clips.Get(c.Key)
		if !ok {
			return Bundle{}, fmt.Errorf("clip %q of slide %d: %w", c.Key, slide.ID(), ErrClipMissing)
		}
		b.Clips[i].Audio = data
	}
	return b, nil
}

// Import attaches an equivalent of b to slide, replacing what the slide had.
// Either the whole bundle lands or nothing changes.
func (r *Recorder) Import(slide host.Slide, b Bundle) error {
	return r.save(slide.ID(), b)
}

// Detach removes the bundle of a slide and its clips.
func (r *Recorder) Detach(slide host.Slide) error {
	b, err := r.store.index.Load(r.ns, slide.ID())
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := r.store.index.Delete(r.ns, slide.ID()); err != nil {
		return err
	}
	r.dropClips(b.Clips)
	return nil
}

// Clear removes every bundle in the namespace along with its clips.
func (r *Recorder) Clear() error {
	ids, err := r.store.index.Slides(r.ns)
	if err != nil {
		return err
	}
	for _, id := range ids {
		b, err := r.store.index.Load(r.ns, id)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		if err := r.store.index.Delete(r.ns, id); err != nil {
			return err
		}
		r.dropClips(b.Clips)
	}
	if len(ids) > 0 {
		r.logger.Debug("Cleared bundles", "namespace", r.ns, "slides", len(ids))
	}
	return nil
}

// Slides lists the slides that carry a bundle.
func (r *Recorder) Slides() ([]int, error) {
	return r.store.index.Slides(r.ns)
}

func (r *Recorder) save(slideID int, b Bundle) error {
	previous, prevErr := r.store.index.Load(r.ns, slideID)

	out := Bundle{
		SlideID: slideID,
		Scripts: append([]ScriptLine(nil), b.Scripts...),
	}
	written := make([]Clip, 0, len(b.Clips))
	for _, c := range b.Clips {
		audio := c.Audio
		if audio == nil {
			data, ok := r.store.clips.Get(c.Key)
			if !ok {
				r.dropClips(written)
				return fmt.Errorf("clip %q: %w", c.Key, ErrClipMissing)
			}
			audio = data
		}

		c.Key = r.clipKey(slideID)
		c.Size = int64(len(audio))
		c.Audio = nil
		if err := r.store.clips.Put(c.Key, audio); err != nil {
			r.dropClips(written)
			return fmt.Errorf("store clip for slide %d: %w", slideID, err)
		}
		written = append(written, c)
	}
	out.Clips = written

	if err := r.store.index.Save(r.ns, out); err != nil {
		r.dropClips(written)
		return fmt.Errorf("save bundle of slide %d: %w", slideID, err)
	}
	if prevErr == nil {
		r.dropClips(previous.Clips)
	}

	r.logger.Debug("Saved bundle",
		"slide", slideID,
		"scripts", len(out.Scripts),
		"clips", len(out.Clips),
		"audio", humanize.Bytes(uint64(out.AudioSize())))
	return nil
}

func (r *Recorder) dropClips(clips []Clip) {
	for _, c := range clips {
		if err := r.store.clips.Delete(c.Key); err != nil {
			r.logger.Warn("Could not delete clip", "key", c.Key, "err", err)
		}
	}
}

func (r *Recorder) clipKey(slideID int) string {
	return fmt.Sprintf("%s/%d/%s", r.ns, slideID, uuid.NewString())
}
