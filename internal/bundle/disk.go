package bundle

import (
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/klauspost/compress/zstd"
)

const (
	diskIndexFile = "clips.index"
	diskLockFile  = ".lock"

	// clips below this size are stored uncompressed
	compressThreshold = 1024
)

// DiskClips stores clips as files, zstd-compressed when that saves space.
// The directory is locked for the lifetime of the store.
type DiskClips struct {
	basePath string
	capacity int64
	size     int64

	encoder *zstd.Encoder
	decoder *zstd.Decoder

	index map[string]*diskClip
	lock  *flock.Flock

	mu    sync.Mutex
	stats Stats
}

type diskClip struct {
	Key          string
	FilePath     string
	Size         int64 // on disk
	OriginalSize int64
	Timestamp    time.Time
	LastAccess   time.Time
	Compressed   bool
}

// NewDiskClips opens a clip store in basePath. compressionLevel follows zstd
// levels; zero or less disables compression.
func NewDiskClips(basePath string, capacity int64, compressionLevel int) (*DiskClips, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create clip directory: %w", err)
	}

	lock := flock.New(filepath.Join(basePath, diskLockFile))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock clip directory: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, basePath)
	}

	dc := &DiskClips{
		basePath: basePath,
		capacity: capacity,
		index:    make(map[string]*diskClip),
		lock:     lock,
		stats:    Stats{Capacity: capacity},
	}

	if compressionLevel > 0 {
		dc.encoder, err = zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(compressionLevel)))
		if err != nil {
			_ = lock.Unlock()
			return nil, fmt.Errorf("create zstd encoder: %w", err)
		}
	}
	// Always able to read compressed clips, even when writing them plain
	dc.decoder, err = zstd.NewReader(nil)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	if err := dc.loadIndex(); err != nil {
		// Non-fatal: start over with an empty index
		dc.index = make(map[string]*diskClip)
	}
	for _, entry := range dc.index {
		dc.size += entry.Size
	}

	return dc, nil
}

// Get reads a clip, dropping it from the index if the file is gone or broken.
func (dc *DiskClips) Get(key string) ([]byte, bool) {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	entry, ok := dc.index[key]
	if !ok {
		dc.stats.Misses++
		return nil, false
	}

	data, err := os.ReadFile(entry.FilePath)
	if err != nil {
		dc.forget(key, entry)
		dc.stats.Misses++
		return nil, false
	}

	if entry.Compressed {
		data, err = dc.decoder.DecodeAll(data, nil)
		if err != nil {
			dc.forget(key, entry)
			dc.stats.Misses++
			return nil, false
		}
	}

	entry.LastAccess = time.Now()
	dc.stats.Hits++
	dc.stats.LastAccess = entry.LastAccess
	return data, true
}

// Put writes a clip. It fails with ErrStoreFull rather than evicting clips
// that bundles still reference.
func (dc *DiskClips) Put(key string, value []byte) error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	originalSize := int64(len(value))

	data := value
	compressed := false
	if dc.encoder != nil && originalSize > compressThreshold {
		packed := dc.encoder.EncodeAll(value, nil)
		if len(packed) < len(value) {
			data = packed
			compressed = true
		}
	}
	diskSize := int64(len(data))

	if diskSize > dc.capacity {
		return fmt.Errorf("%w: %d bytes", ErrItemTooLarge, diskSize)
	}

	existing, replacing := dc.index[key]
	freed := int64(0)
	if replacing {
		freed = existing.Size
	}
	if dc.size-freed+diskSize > dc.capacity {
		dc.stats.Rejected++
		return fmt.Errorf("%w: %d of %d bytes used, clip needs %d",
			ErrStoreFull, dc.size, dc.capacity, diskSize)
	}

	if replacing {
		dc.forget(key, existing)
	}

	path := dc.filePath(key)
	if err := writeAtomic(path, data); err != nil {
		return fmt.Errorf("write clip file: %w", err)
	}

	now := time.Now()
	dc.index[key] = &diskClip{
		Key:          key,
		FilePath:     path,
		Size:         diskSize,
		OriginalSize: originalSize,
		Timestamp:    now,
		LastAccess:   now,
		Compressed:   compressed,
	}
	dc.size += diskSize
	return nil
}

// Delete removes a clip. Missing keys are not an error.
func (dc *DiskClips) Delete(key string) error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	if entry, ok := dc.index[key]; ok {
		dc.forget(key, entry)
	}
	return nil
}

// Contains checks if a clip exists.
func (dc *DiskClips) Contains(key string) bool {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	_, ok := dc.index[key]
	return ok
}

// Size returns the size on disk in bytes.
func (dc *DiskClips) Size() int64 {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	return dc.size
}

// Stats returns store statistics.
func (dc *DiskClips) Stats() Stats {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	stats := dc.stats
	stats.Size = dc.size
	stats.ItemCount = int64(len(dc.index))
	if stats.Hits+stats.Misses > 0 {
		stats.HitRate = float64(stats.Hits) / float64(stats.Hits+stats.Misses)
	}
	return stats
}

// Close saves the index and releases the directory lock.
func (dc *DiskClips) Close() error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	err := dc.saveIndex()
	if dc.encoder != nil {
		_ = dc.encoder.Close()
	}
	dc.decoder.Close()
	if uerr := dc.lock.Unlock(); err == nil {
		err = uerr
	}
	return err
}

func (dc *DiskClips) forget(key string, entry *diskClip) {
	_ = os.Remove(entry.FilePath)
	delete(dc.index, key)
	dc.size -= entry.Size
}

func (dc *DiskClips) filePath(key string) string {
	hash := sha256.Sum256([]byte(key))
	return filepath.Join(dc.basePath, hex.EncodeToString(hash[:16])+".clip")
}

func (dc *DiskClips) loadIndex() error {
	file, err := os.Open(filepath.Join(dc.basePath, diskIndexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	return gob.NewDecoder(file).Decode(&dc.index)
}

func (dc *DiskClips) saveIndex() error {
	path := filepath.Join(dc.basePath, diskIndexFile)
	tempPath := path + ".tmp"

	file, err := os.Create(tempPath)
	if err != nil {
		return err
	}
	err = gob.NewEncoder(file).Encode(dc.index)
	closeErr := file.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tempPath)
		return err
	}
	return os.Rename(tempPath, path)
}

// writeAtomic writes to a temp file first, then renames it into place.
func writeAtomic(path string, data []byte) error {
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0o644); err != nil {
		_ = os.Remove(tempPath)
		return err
	}
	return os.Rename(tempPath, path)
}
