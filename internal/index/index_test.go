package index

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashahq/sessionscout/internal/embedding"
	"github.com/ashahq/sessionscout/internal/models"
)

// fakeEmbedder returns fixed vectors keyed by text, counting batch calls.
type fakeEmbedder struct {
	vectors    map[string][]float32
	dim        int
	batchCalls atomic.Int64
	fail       bool
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.batchCalls.Add(1)
	if f.fail {
		return nil, fmt.Errorf("embed batch: %w", embedding.ErrUnavailable)
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if v, ok := f.vectors[text]; ok {
			out[i] = v
		} else {
			out[i] = make([]float32, f.dim)
		}
	}
	return out, nil
}

func (f *fakeEmbedder) Model() string  { return "fake-model" }
func (f *fakeEmbedder) Dimension() int { return f.dim }

func session(id string) models.Session {
	return models.Session{ID: id, Title: id}
}

func TestSearchOrdersByDistance(t *testing.T) {
	emb := &fakeEmbedder{dim: 2, vectors: map[string][]float32{
		session("near").IndexText():    {1, 0},
		session("far").IndexText():     {5, 5},
		session("nearest").IndexText(): {0.5, 0},
		"query":                        {0, 0},
	}}

	ix := New(emb, Options{})
	require.NoError(t, ix.Build(context.Background(), []models.Session{
		session("near"), session("far"), session("nearest"),
	}))

	hits, err := ix.Search(context.Background(), "query", 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "nearest", hits[0].SessionID)
	assert.Equal(t, "near", hits[1].SessionID)
	assert.Equal(t, "far", hits[2].SessionID)
}

func TestSearchTiesKeepCorpusOrder(t *testing.T) {
	emb := &fakeEmbedder{dim: 2, vectors: map[string][]float32{
		session("b").IndexText(): {1, 0},
		session("a").IndexText(): {0, 1},
		"query":                  {0, 0},
	}}

	ix := New(emb, Options{})
	require.NoError(t, ix.Build(context.Background(), []models.Session{session("b"), session("a")}))

	hits, err := ix.Search(context.Background(), "query", 2)
	require.NoError(t, err)
	// Equal distance: corpus order wins.
	assert.Equal(t, "b", hits[0].SessionID)
	assert.Equal(t, "a", hits[1].SessionID)
}

func TestSearchCapsResults(t *testing.T) {
	emb := &fakeEmbedder{dim: 2, vectors: map[string][]float32{"query": {0, 0}}}
	ix := New(emb, Options{})
	require.NoError(t, ix.Build(context.Background(), []models.Session{
		session("a"), session("b"), session("c"),
	}))

	hits, err := ix.Search(context.Background(), "query", 2)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestSearchUnavailableBeforeBuild(t *testing.T) {
	ix := New(&fakeEmbedder{dim: 2}, Options{})
	_, err := ix.Search(context.Background(), "query", 5)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestBuildFailsSoft(t *testing.T) {
	emb := &fakeEmbedder{dim: 2, fail: true}
	ix := New(emb, Options{})

	err := ix.Build(context.Background(), []models.Session{session("a")})
	assert.ErrorIs(t, err, embedding.ErrUnavailable)
	assert.False(t, ix.Available())

	_, err = ix.Search(context.Background(), "query", 5)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestBuildKeepsOldSnapshotOnFailure(t *testing.T) {
	emb := &fakeEmbedder{dim: 2, vectors: map[string][]float32{"query": {0, 0}}}
	ix := New(emb, Options{})
	require.NoError(t, ix.Build(context.Background(), []models.Session{session("a")}))

	emb.fail = true
	err := ix.Build(context.Background(), []models.Session{session("a"), session("b")})
	require.Error(t, err)
	emb.fail = false

	// Previous snapshot still answers queries.
	hits, err := ix.Search(context.Background(), "query", 5)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestBuildSkipsUnchangedCorpus(t *testing.T) {
	emb := &fakeEmbedder{dim: 2}
	ix := New(emb, Options{})
	sessions := []models.Session{session("a"), session("b")}

	require.NoError(t, ix.Build(context.Background(), sessions))
	calls := emb.batchCalls.Load()

	require.NoError(t, ix.Build(context.Background(), sessions))
	assert.Equal(t, calls, emb.batchCalls.Load(), "unchanged corpus must not re-embed")
}

func TestBuildThrottlesChangedCorpus(t *testing.T) {
	emb := &fakeEmbedder{dim: 2}
	ix := New(emb, Options{RebuildInterval: time.Hour})

	require.NoError(t, ix.Build(context.Background(), []models.Session{session("a")}))
	calls := emb.batchCalls.Load()

	require.NoError(t, ix.Build(context.Background(), []models.Session{session("a"), session("b")}))
	assert.Equal(t, calls, emb.batchCalls.Load(), "rebuild within interval must be deferred")
	assert.Equal(t, 1, ix.Status().Size)
}

func TestPersistedIndexReused(t *testing.T) {
	dir := t.TempDir()
	sessions := []models.Session{session("a"), session("b")}

	emb1 := &fakeEmbedder{dim: 2}
	ix1 := New(emb1, Options{CacheDir: dir})
	require.NoError(t, ix1.Build(context.Background(), sessions))
	require.Positive(t, emb1.batchCalls.Load())

	// Fresh process: same corpus loads from disk, zero embed calls.
	emb2 := &fakeEmbedder{dim: 2, vectors: map[string][]float32{"query": {0, 0}}}
	ix2 := New(emb2, Options{CacheDir: dir})
	require.NoError(t, ix2.Build(context.Background(), sessions))
	assert.Equal(t, int64(0), emb2.batchCalls.Load())

	hits, err := ix2.Search(context.Background(), "query", 5)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestPersistedIndexInvalidatedByContentChange(t *testing.T) {
	dir := t.TempDir()

	emb1 := &fakeEmbedder{dim: 2}
	ix1 := New(emb1, Options{CacheDir: dir})
	require.NoError(t, ix1.Build(context.Background(), []models.Session{session("a")}))

	emb2 := &fakeEmbedder{dim: 2}
	ix2 := New(emb2, Options{CacheDir: dir})
	require.NoError(t, ix2.Build(context.Background(), []models.Session{session("a"), session("b")}))
	assert.Positive(t, emb2.batchCalls.Load(), "changed corpus must re-embed")
}

func TestClusteredSearch(t *testing.T) {
	const n = 60
	vectors := make(map[string][]float32, n+1)
	sessions := make([]models.Session, 0, n)
	for i := 0; i < n; i++ {
		s := session(fmt.Sprintf("s%02d", i))
		sessions = append(sessions, s)
		vectors[s.IndexText()] = []float32{float32(i), 0}
	}
	vectors["query"] = []float32{17, 0}

	emb := &fakeEmbedder{dim: 2, vectors: vectors}
	ix := New(emb, Options{ClusterThreshold: 10})
	require.NoError(t, ix.Build(context.Background(), sessions))

	hits, err := ix.Search(context.Background(), "query", 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "s17", hits[0].SessionID)
}

func TestBatching(t *testing.T) {
	emb := &fakeEmbedder{dim: 2}
	ix := New(emb, Options{BatchSize: 2})
	require.NoError(t, ix.Build(context.Background(), []models.Session{
		session("a"), session("b"), session("c"), session("d"), session("e"),
	}))
	assert.Equal(t, int64(3), emb.batchCalls.Load())
	assert.Equal(t, 5, ix.Status().Size)
}
