package domain

// SearchStrategy selects how the vector index ranks candidates.
type SearchStrategy string

// Available strategies.
const (
	// StrategySimilarity returns the k nearest records by cosine similarity.
	StrategySimilarity SearchStrategy = "similarity"

	// StrategyMMR re-ranks a larger candidate pool by maximal marginal relevance.
	StrategyMMR SearchStrategy = "mmr"
)

// IsValid returns true if the strategy is recognised.
func (s SearchStrategy) IsValid() bool {
	return s == StrategySimilarity || s == StrategyMMR
}

// String returns the string representation.
func (s SearchStrategy) String() string {
	return string(s)
}

// RetrievalMode selects which retrieval paths run after direct lookup.
type RetrievalMode string

// Available retrieval modes.
const (
	// RetrievalKeyword runs only the structured keyword path.
	RetrievalKeyword RetrievalMode = "keyword"

	// RetrievalVector runs only the vector path.
	RetrievalVector RetrievalMode = "vector"

	// RetrievalHybrid runs the keyword path, then the vector path.
	RetrievalHybrid RetrievalMode = "hybrid"
)

// IsValid returns true if the mode is recognised.
func (m RetrievalMode) IsValid() bool {
	switch m {
	case RetrievalKeyword, RetrievalVector, RetrievalHybrid:
		return true
	default:
		return false
	}
}

// UsesKeywords reports whether the keyword path runs in this mode.
func (m RetrievalMode) UsesKeywords() bool {
	return m == RetrievalKeyword || m == RetrievalHybrid
}

// UsesVectors reports whether the vector path runs in this mode.
func (m RetrievalMode) UsesVectors() bool {
	return m == RetrievalVector || m == RetrievalHybrid
}

// Description returns a human-readable description of the mode.
func (m RetrievalMode) Description() string {
	switch m {
	case RetrievalKeyword:
		return "Keyword (structured procedure store only)"
	case RetrievalVector:
		return "Vector (embedding similarity only)"
	case RetrievalHybrid:
		return "Hybrid (procedure keywords, then vectors)"
	default:
		return "Unknown"
	}
}

// RetrievalPath records which path produced a result set.
type RetrievalPath string

// Retrieval paths.
const (
	PathNone    RetrievalPath = "none"
	PathDirect  RetrievalPath = "direct"
	PathKeyword RetrievalPath = "keyword"
	PathVector  RetrievalPath = "vector"
	PathHybrid  RetrievalPath = "hybrid"
)

// QueryOptions configures a vector index query.
type QueryOptions struct {
	// K is the number of records to return.
	K int

	// Strategy is the ranking strategy.
	Strategy SearchStrategy

	// FetchK is the MMR candidate pool size. Values below K are raised to K.
	FetchK int

	// Lambda weighs relevance against diversity for MMR, in [0,1].
	Lambda float64
}

// ScoredChunk is a vector index hit.
type ScoredChunk struct {
	Chunk Chunk
	Score float64
}

// ItemKind distinguishes retrieved chunks from procedure records.
type ItemKind string

// Item kinds.
const (
	ItemChunk     ItemKind = "chunk"
	ItemProcedure ItemKind = "procedure"
)

// RetrievedItem is one entry of a retrieval result set.
type RetrievedItem struct {
	// Kind tells which of Chunk or Procedure is set.
	Kind ItemKind `json:"kind"`

	// Key is the identity used for deduplication: proc_id or chunk id.
	Key string `json:"key"`

	// Source is the label used when citing the item.
	Source string `json:"source"`

	// Content is the text stuffed into the answer context.
	Content string `json:"content"`

	// Score is the relevance score; zero for structured hits.
	Score float64 `json:"score"`

	Chunk     *Chunk     `json:"-"`
	Procedure *Procedure `json:"procedure,omitempty"`
}

// RetrievalResult is the ordered, deduplicated result set for one query.
type RetrievalResult struct {
	Query string          `json:"query"`
	Path  RetrievalPath   `json:"path"`
	Match string          `json:"match,omitempty"`
	Items []RetrievedItem `json:"items"`
}

// IsEmpty reports whether nothing relevant was found.
func (r *RetrievalResult) IsEmpty() bool {
	return r == nil || len(r.Items) == 0
}

// DedupeItems removes items whose Key was already seen, keeping first-seen order.
func DedupeItems(items []RetrievedItem) []RetrievedItem {
	seen := make(map[string]struct{}, len(items))
	out := make([]RetrievedItem, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.Key]; ok {
			continue
		}
		seen[item.Key] = struct{}{}
		out = append(out, item)
	}
	return out
}
