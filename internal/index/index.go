// Package index maintains a vector similarity index over session text and
// answers nearest-neighbor queries against it.
package index

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ashahq/sessionscout/internal/embedding"
	"github.com/ashahq/sessionscout/internal/models"
)

// ErrUnavailable is returned when no usable index exists, typically because
// the embedding service was unreachable at build time. Callers fall back to
// keyword-only search.
var ErrUnavailable = errors.New("vector index unavailable")

// Hit is a single nearest-neighbor result.
type Hit struct {
	SessionID string
	Distance  float32
}

// Options configures index construction.
type Options struct {
	// BatchSize bounds how many texts go to the embedder per call.
	BatchSize int

	// CacheDir persists built indexes keyed by corpus content hash.
	// Empty disables persistence.
	CacheDir string

	// RebuildInterval throttles rebuilds: a changed corpus triggers at
	// most one rebuild per interval. Zero disables throttling.
	RebuildInterval time.Duration

	// ClusterThreshold switches from exact flat scan to the clustered
	// structure once the corpus exceeds it.
	ClusterThreshold int
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = 32
	}
	if o.ClusterThreshold <= 0 {
		o.ClusterThreshold = 1000
	}
	return o
}

// Status describes the index for monitoring and the reindex progress UI.
type Status struct {
	Available   bool
	Building    bool
	Size        int
	BatchesDone int
	BatchTotal  int
	LastBuilt   time.Time
}

// snapshot is an immutable built index. Search always works against one
// complete snapshot; Build swaps a new one in atomically.
type snapshot struct {
	ids      []string
	vectors  [][]float32
	hash     string
	clusters *clusterIndex // nil means exact flat scan
}

// Index answers nearest-neighbor queries over per-session text embeddings.
type Index struct {
	embedder embedding.Embedder
	opts     Options

	current atomic.Pointer[snapshot]

	mu        sync.Mutex   // serializes Build
	lastBuild atomic.Int64 // unix nanos of last install

	building    atomic.Bool
	batchesDone atomic.Int64
	batchTotal  atomic.Int64
}

// New creates an index. It is empty until the first Build.
func New(embedder embedding.Embedder, opts Options) *Index {
	return &Index{embedder: embedder, opts: opts.withDefaults()}
}

// contentHash fingerprints the corpus-derived text so unchanged corpora
// skip re-embedding.
func contentHash(sessions []models.Session) string {
	h := sha256.New()
	for _, s := range sessions {
		h.Write([]byte(s.ID))
		h.Write([]byte{0})
		h.Write([]byte(s.IndexText()))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Build embeds the corpus and swaps in a fresh snapshot. Concurrent Search
// calls keep using the previous snapshot until the swap. An unchanged
// content hash is a no-op; a changed hash within the rebuild interval is
// deferred. Embedding failure leaves any existing snapshot in place and
// returns an error wrapping ErrUnavailable.
func (ix *Index) Build(ctx context.Context, sessions []models.Session) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	hash := contentHash(sessions)

	if cur := ix.current.Load(); cur != nil {
		if cur.hash == hash {
			slog.Debug("index unchanged, skipping rebuild", "size", len(cur.ids))
			return nil
		}
		if since := time.Since(ix.lastBuiltAt()); ix.opts.RebuildInterval > 0 && since < ix.opts.RebuildInterval {
			slog.Debug("corpus changed but rebuild throttled",
				"since_last", since, "interval", ix.opts.RebuildInterval)
			return nil
		}
	}

	if snap, err := ix.loadPersisted(hash); err == nil && snap != nil {
		slog.Info("loaded persisted index", "size", len(snap.ids))
		ix.install(snap)
		return nil
	}

	ix.building.Store(true)
	defer ix.building.Store(false)

	snap, err := ix.buildSnapshot(ctx, sessions, hash)
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}

	ix.install(snap)
	if err := ix.persist(snap); err != nil {
		slog.Warn("failed to persist index", "error", err)
	}
	slog.Info("index built", "size", len(snap.ids), "clustered", snap.clusters != nil)
	return nil
}

func (ix *Index) install(snap *snapshot) {
	ix.current.Store(snap)
	ix.lastBuild.Store(time.Now().UnixNano())
}

func (ix *Index) lastBuiltAt() time.Time {
	n := ix.lastBuild.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

func (ix *Index) buildSnapshot(ctx context.Context, sessions []models.Session, hash string) (*snapshot, error) {
	ids := make([]string, len(sessions))
	texts := make([]string, len(sessions))
	for i, s := range sessions {
		ids[i] = s.ID
		texts[i] = s.IndexText()
	}

	batches := (len(texts) + ix.opts.BatchSize - 1) / ix.opts.BatchSize
	ix.batchTotal.Store(int64(batches))
	ix.batchesDone.Store(0)

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += ix.opts.BatchSize {
		end := min(start+ix.opts.BatchSize, len(texts))
		batch, err := ix.embedder.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
		ix.batchesDone.Add(1)
	}

	snap := &snapshot{ids: ids, vectors: vectors, hash: hash}
	if len(vectors) > ix.opts.ClusterThreshold {
		snap.clusters = buildClusters(vectors)
	}
	return snap, nil
}

// Search returns the k nearest sessions to the query text, ordered by
// ascending distance with ties broken by corpus order.
func (ix *Index) Search(ctx context.Context, query string, k int) ([]Hit, error) {
	snap := ix.current.Load()
	if snap == nil || len(snap.ids) == 0 {
		return nil, ErrUnavailable
	}

	queryVec, err := ix.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	candidates := snap.candidateRows(queryVec)

	hits := make([]Hit, 0, len(candidates))
	for _, row := range candidates {
		hits = append(hits, Hit{
			SessionID: snap.ids[row],
			Distance:  l2Squared(queryVec, snap.vectors[row]),
		})
	}

	// Stable sort keeps corpus order for equal distances.
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })

	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// candidateRows returns the row indexes to score: everything for the flat
// structure, or the members of the nearest clusters otherwise.
func (s *snapshot) candidateRows(query []float32) []int {
	if s.clusters == nil {
		rows := make([]int, len(s.vectors))
		for i := range rows {
			rows[i] = i
		}
		return rows
	}
	return s.clusters.probe(query)
}

// Available reports whether a built snapshot exists.
func (ix *Index) Available() bool {
	snap := ix.current.Load()
	return snap != nil && len(snap.ids) > 0
}

// Status returns current index state for monitoring.
func (ix *Index) Status() Status {
	st := Status{
		Building:    ix.building.Load(),
		BatchesDone: int(ix.batchesDone.Load()),
		BatchTotal:  int(ix.batchTotal.Load()),
	}
	if snap := ix.current.Load(); snap != nil {
		st.Available = len(snap.ids) > 0
		st.Size = len(snap.ids)
	}
	st.LastBuilt = ix.lastBuiltAt()
	return st
}

func l2Squared(a, b []float32) float32 {
	var sum float32
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
