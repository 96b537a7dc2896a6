package domain

type RecallMethod string

const (
	RecallMethod_Hybrid  RecallMethod = "hybrid"
	RecallMethod_Vector  RecallMethod = "vector"
	RecallMethod_Keyword RecallMethod = "keyword"
)

func (m RecallMethod) Valid() bool {
	switch m {
	case RecallMethod_Hybrid, RecallMethod_Vector, RecallMethod_Keyword:
		return true
	}

	return false
}

// RetrievalSettings are per-query knobs. Zero values fall back to the
// owning knowledge base's configuration.
type RetrievalSettings struct {
	RecallMethod  RecallMethod
	VectorRatio   float64
	TopK          int
	MinScore      *float64
	RerankEnabled bool
}

type SearchResult struct {
	ID             string
	Chunk          TextChunk
	SourceFileID   string
	SourceFileName string
	ChunkIndex     int
	Score          float64
}

// SearchOutput is one completed retrieval pass. TokenEstimate is the
// rune count of the query, ElapsedSeconds the wall time of the pass.
type SearchOutput struct {
	RequestID      string
	Query          string
	Results        []SearchResult
	ElapsedSeconds float64
	TokenEstimate  int
}

// VisibleResults returns the first visible results of an already
// ranked list. Growing visible only ever appends to the returned
// prefix, it never reorders what a caller has already shown.
func VisibleResults(results []SearchResult, visible int) []SearchResult {
	if visible < 0 {
		visible = 0
	}

	if visible > len(results) {
		visible = len(results)
	}

	return results[:visible]
}
