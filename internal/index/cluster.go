package index

import (
	"math"
	"math/rand"
	"sort"
)

// clusterIndex is the approximate structure used for large corpora: vectors
// are grouped by k-means and queries only scan the members of the nearest
// clusters. Trades a little recall for sublinear scan cost, like an IVF
// index.
type clusterIndex struct {
	centroids [][]float32
	members   [][]int // row indexes per centroid
	nProbe    int
}

const kmeansIterations = 10

// buildClusters partitions vectors with Lloyd's algorithm. Cluster count
// follows 4*sqrt(n) capped at 256; probes balance speed against recall.
func buildClusters(vectors [][]float32) *clusterIndex {
	n := len(vectors)
	k := min(4*int(math.Sqrt(float64(n))), 256)
	if k < 2 {
		return nil
	}

	// Deterministic seed keeps builds reproducible for the same corpus.
	rng := rand.New(rand.NewSource(int64(n)))

	centroids := make([][]float32, k)
	for i, p := range rng.Perm(n)[:k] {
		centroids[i] = append([]float32(nil), vectors[p]...)
	}

	assign := make([]int, n)
	for iter := 0; iter < kmeansIterations; iter++ {
		changed := false
		for row, v := range vectors {
			best, bestDist := 0, float32(math.MaxFloat32)
			for c, centroid := range centroids {
				if d := l2Squared(v, centroid); d < bestDist {
					best, bestDist = c, d
				}
			}
			if assign[row] != best {
				assign[row] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}

		// Recompute centroids as member means; empty clusters keep their
		// previous centroid.
		counts := make([]int, k)
		sums := make([][]float64, k)
		for c := range sums {
			sums[c] = make([]float64, len(vectors[0]))
		}
		for row, c := range assign {
			counts[c]++
			for d, x := range vectors[row] {
				sums[c][d] += float64(x)
			}
		}
		for c := range centroids {
			if counts[c] == 0 {
				continue
			}
			for d := range centroids[c] {
				centroids[c][d] = float32(sums[c][d] / float64(counts[c]))
			}
		}
	}

	members := make([][]int, k)
	for row, c := range assign {
		members[c] = append(members[c], row)
	}

	return &clusterIndex{
		centroids: centroids,
		members:   members,
		nProbe:    max(1, min(16, k/4)),
	}
}

// probe returns the member rows of the nProbe clusters nearest to the query,
// in ascending row order so distance ties resolve to corpus order.
func (ci *clusterIndex) probe(query []float32) []int {
	type scored struct {
		cluster int
		dist    float32
	}
	scores := make([]scored, len(ci.centroids))
	for c, centroid := range ci.centroids {
		scores[c] = scored{c, l2Squared(query, centroid)}
	}
	sort.Slice(scores, func(i, j int) bool { return scores[i].dist < scores[j].dist })

	var rows []int
	for _, s := range scores[:min(ci.nProbe, len(scores))] {
		rows = append(rows, ci.members[s.cluster]...)
	}
	sort.Ints(rows)
	return rows
}
