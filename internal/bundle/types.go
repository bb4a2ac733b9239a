package bundle

import (
	"errors"
	"time"
)

// Common errors for bundle operations
var (
	// ErrNotFound is returned when a slide has no bundle
	ErrNotFound = errors.New("bundle not found")

	// ErrClipMissing is returned when a bundle references a clip the clip
	// store no longer holds
	ErrClipMissing = errors.New("bundle clip missing")

	// ErrCorrupted is returned when stored bundle data cannot be decoded
	ErrCorrupted = errors.New("bundle data corrupted")

	// ErrItemTooLarge is returned when a clip exceeds the store capacity
	ErrItemTooLarge = errors.New("clip too large for store")

	// ErrStoreFull is returned when a clip does not fit in the space left.
	// Stored clips are never evicted to make room.
	ErrStoreFull = errors.New("clip store is full")

	// ErrLocked is returned when another process owns the store directory
	ErrLocked = errors.New("store directory is locked by another process")
)

// ScriptLine is one line of the narration script of a slide.
type ScriptLine struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// Clip references recorded audio for one script line.
type Clip struct {
	Key      string        `json:"key"`  // key in the ClipStore
	Name     string        `json:"name"` // display name of the audio shape
	Line     int           `json:"line"` // script line the clip belongs to
	Duration time.Duration `json:"duration"`
	Size     int64         `json:"size"`

	// Audio is filled by Export so a bundle can move between stores.
	Audio []byte `json:"-"`
}

// Bundle is everything recorded against one slide.
type Bundle struct {
	SlideID int          `json:"slide_id"`
	Scripts []ScriptLine `json:"scripts"`
	Clips   []Clip       `json:"clips"`
}

// Empty reports whether the bundle carries nothing.
func (b Bundle) Empty() bool {
	return len(b.Scripts) == 0 && len(b.Clips) == 0
}

// AudioSize returns the total clip size in bytes.
func (b Bundle) AudioSize() int64 {
	var n int64
	for _, c := range b.Clips {
		n += c.Size
	}
	return n
}

// Stats holds clip store metrics
type Stats struct {
	Capacity  int64 // Maximum capacity in bytes
	Size      int64 // Current size in bytes
	ItemCount int64 // Number of clips stored

	Hits     int64
	Misses   int64
	Rejected int64 // writes refused because the store was full
	HitRate  float64

	LastAccess time.Time
}

// ClipStore holds audio clip bytes by key.
type ClipStore interface {
	Get(key string) ([]byte, bool)
	Put(key string, value []byte) error
	Delete(key string) error
	Contains(key string) bool
	Size() int64
	Stats() Stats
	Close() error
}

// Index holds bundle records by namespace and slide.
type Index interface {
	Load(ns string, slideID int) (Bundle, error)
	Save(ns string, b Bundle) error
	Delete(ns string, slideID int) error
	Slides(ns string) ([]int, error)
	Close() error
}
