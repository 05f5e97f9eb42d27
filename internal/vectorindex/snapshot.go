package vectorindex

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"ragineer/internal/models"
)

// snapshot is the on-disk shape: the fixed dimension plus every entry,
// round-tripped exactly so search results are identical across restarts.
type snapshot struct {
	Dimension int
	Entries   []Entry
}

// Save writes the index to path. The snapshot is written to a temp file and
// renamed into place so a crash mid-write never leaves a torn snapshot.
func (ix *Index) Save(path string) error {
	ix.mu.RLock()
	snap := snapshot{
		Dimension: ix.dimension,
		Entries:   append([]Entry(nil), ix.entries...),
	}
	ix.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create snapshot temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := gob.NewEncoder(tmp).Encode(snap); err != nil {
		tmp.Close()
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("swap snapshot into place: %w", err)
	}
	return nil
}

// Load restores an index from a snapshot written by Save.
func Load(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	var snap snapshot
	if err := gob.NewDecoder(f).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	for _, e := range snap.Entries {
		if len(e.Vector) != snap.Dimension {
			return nil, fmt.Errorf("%w: snapshot dimension %d, chunk %s has %d", models.ErrDimensionMismatch, snap.Dimension, e.ChunkID, len(e.Vector))
		}
	}
	return &Index{dimension: snap.Dimension, entries: snap.Entries}, nil
}

// LoadOrNew restores the snapshot at path, or starts an empty index when no
// snapshot exists yet.
func LoadOrNew(path string) (*Index, error) {
	ix, err := Load(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return New(), nil
		}
		return nil, err
	}
	return ix, nil
}
