// Package vectorindex holds an in-memory, read-mostly set of embedded
// chunks and answers similarity and MMR queries against it.
package vectorindex

import (
	"fmt"
	"sort"
	"sync"

	"github.com/viant/vec/search"

	"github.com/custodia-labs/qms-rag/internal/core/domain"
)

// Index is a brute-force cosine index over vector records.
// Queries may run concurrently with each other; Add takes a write lock.
type Index struct {
	mu      sync.RWMutex
	dims    int
	records []domain.VectorRecord
	mags    []float32
}

// New creates an empty index for vectors of the given dimensionality.
// A dims of zero adopts the dimensionality of the first record added.
func New(dims int) *Index {
	return &Index{dims: dims}
}

// FromRecords builds an index in one step.
func FromRecords(records []domain.VectorRecord) (*Index, error) {
	idx := New(0)
	if err := idx.Add(records...); err != nil {
		return nil, err
	}
	return idx, nil
}

// Add appends records. Every vector must match the index dimensionality.
func (i *Index) Add(records ...domain.VectorRecord) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	dims := i.dims
	for _, r := range records {
		if dims == 0 {
			dims = len(r.Vector)
		}
		if len(r.Vector) == 0 || len(r.Vector) != dims {
			return fmt.Errorf("%w: chunk %s has %d dimensions, index expects %d",
				domain.ErrConfiguration, r.Chunk.ID, len(r.Vector), dims)
		}
	}

	i.dims = dims
	for _, r := range records {
		i.records = append(i.records, r)
		i.mags = append(i.mags, search.Float32s(r.Vector).Magnitude())
	}
	return nil
}

// Len returns the number of records.
func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.records)
}

// Dimensions returns the vector size, or zero for an empty index.
func (i *Index) Dimensions() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.dims
}

// Records returns a copy of the records in insertion order.
func (i *Index) Records() []domain.VectorRecord {
	i.mu.RLock()
	defer i.mu.RUnlock()
	out := make([]domain.VectorRecord, len(i.records))
	copy(out, i.records)
	return out
}

// Query returns up to opts.K chunks ranked by the requested strategy.
// An empty index returns an empty result.
func (i *Index) Query(vec []float32, opts domain.QueryOptions) ([]domain.ScoredChunk, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if len(i.records) == 0 || opts.K <= 0 {
		return nil, nil
	}
	if len(vec) != i.dims {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			domain.ErrConfiguration, len(vec), i.dims)
	}

	switch opts.Strategy {
	case domain.StrategyMMR:
		return i.mmr(vec, opts), nil
	case domain.StrategySimilarity, "":
		return i.similarity(vec, opts.K), nil
	default:
		return nil, fmt.Errorf("%w: unknown search strategy %q", domain.ErrConfiguration, opts.Strategy)
	}
}

type candidate struct {
	idx   int
	score float64
}

// rank scores every record against vec, best first, ties by insertion order.
func (i *Index) rank(vec []float32) []candidate {
	qm := search.Float32s(vec).Magnitude()
	ranked := make([]candidate, len(i.records))
	for j := range i.records {
		ranked[j] = candidate{idx: j, score: cosine(vec, i.records[j].Vector, qm, i.mags[j])}
	}
	sort.SliceStable(ranked, func(a, b int) bool { return ranked[a].score > ranked[b].score })
	return ranked
}

func (i *Index) similarity(vec []float32, k int) []domain.ScoredChunk {
	ranked := i.rank(vec)
	if k > len(ranked) {
		k = len(ranked)
	}
	out := make([]domain.ScoredChunk, k)
	for n := 0; n < k; n++ {
		out[n] = domain.ScoredChunk{Chunk: i.records[ranked[n].idx].Chunk, Score: ranked[n].score}
	}
	return out
}

// mmr greedily picks from the top FetchK candidates, trading relevance to
// the query against redundancy with what has already been picked.
func (i *Index) mmr(vec []float32, opts domain.QueryOptions) []domain.ScoredChunk {
	k := opts.K
	fetchK := opts.FetchK
	if fetchK <= 0 {
		fetchK = domain.DefaultFetchK
	}
	if fetchK < k {
		fetchK = k
	}
	lambda := opts.Lambda
	if lambda < 0 || lambda > 1 {
		lambda = domain.DefaultLambda
	}

	pool := i.rank(vec)
	if fetchK < len(pool) {
		pool = pool[:fetchK]
	}
	if k > len(pool) {
		k = len(pool)
	}

	picked := make([]candidate, 0, k)
	used := make([]bool, len(pool))
	for len(picked) < k {
		best, bestScore := -1, 0.0
		for c := range pool {
			if used[c] {
				continue
			}
			redundancy := 0.0
			for n, p := range picked {
				s := i.pairSimilarity(pool[c].idx, p.idx)
				if n == 0 || s > redundancy {
					redundancy = s
				}
			}
			score := lambda*pool[c].score - (1-lambda)*redundancy
			if best == -1 || score > bestScore {
				best, bestScore = c, score
			}
		}
		used[best] = true
		picked = append(picked, pool[best])
	}

	out := make([]domain.ScoredChunk, len(picked))
	for n, p := range picked {
		out[n] = domain.ScoredChunk{Chunk: i.records[p.idx].Chunk, Score: p.score}
	}
	return out
}

func (i *Index) pairSimilarity(a, b int) float64 {
	return cosine(i.records[a].Vector, i.records[b].Vector, i.mags[a], i.mags[b])
}

// cosine returns the cosine similarity, or zero when either vector has no
// magnitude. CosineDistance is the only distance exported on every GOARCH.
func cosine(a, b []float32, ma, mb float32) float64 {
	if ma == 0 || mb == 0 {
		return 0
	}
	return 1 - float64(search.Float32s(a).CosineDistance(b))
}
