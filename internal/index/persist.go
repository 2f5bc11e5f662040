package index

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
)

// persistedIndex is the on-disk form: vectors plus the content hash that
// produced them. The clustered structure is cheap to rebuild and is not
// stored.
type persistedIndex struct {
	Hash    string
	IDs     []string
	Vectors [][]float32
	Model   string
}

func (ix *Index) cachePath() string {
	return filepath.Join(ix.opts.CacheDir, "session-index.gob")
}

// persist writes the snapshot to the cache dir via a temp-file rename so a
// crash never leaves a torn file.
func (ix *Index) persist(snap *snapshot) error {
	if ix.opts.CacheDir == "" {
		return nil
	}
	if err := os.MkdirAll(ix.opts.CacheDir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(ix.opts.CacheDir, "session-index-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	enc := gob.NewEncoder(tmp)
	err = enc.Encode(persistedIndex{
		Hash:    snap.hash,
		IDs:     snap.ids,
		Vectors: snap.vectors,
		Model:   ix.embedder.Model(),
	})
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("encode index: %w", err)
	}

	if err := os.Rename(tmp.Name(), ix.cachePath()); err != nil {
		return fmt.Errorf("replace index file: %w", err)
	}
	return nil
}

// loadPersisted returns a snapshot for hash if one is cached, nil otherwise.
// A hash or model mismatch means the cache is stale and is ignored.
func (ix *Index) loadPersisted(hash string) (*snapshot, error) {
	if ix.opts.CacheDir == "" {
		return nil, nil
	}

	f, err := os.Open(ix.cachePath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open cached index: %w", err)
	}
	defer f.Close()

	var stored persistedIndex
	if err := gob.NewDecoder(f).Decode(&stored); err != nil {
		return nil, fmt.Errorf("decode cached index: %w", err)
	}

	if stored.Hash != hash || stored.Model != ix.embedder.Model() {
		return nil, nil
	}

	snap := &snapshot{ids: stored.IDs, vectors: stored.Vectors, hash: stored.Hash}
	if len(snap.vectors) > ix.opts.ClusterThreshold {
		snap.clusters = buildClusters(snap.vectors)
	}
	return snap, nil
}
