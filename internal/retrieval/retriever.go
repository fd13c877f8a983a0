// Package retrieval finds hotel document passages relevant to a guest
// question.
package retrieval

import (
	"context"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	"go.uber.org/zap"
)

// DefaultTopK is the number of passages requested per question.
const DefaultTopK = 3

const separator = "\n\n---\n\n"

// Retriever returns context passages for a question, or "" when none apply.
type Retriever interface {
	Retrieve(ctx context.Context, hotelID, query string) string
}

// ChunkSearcher runs the similarity search on the backend.
type ChunkSearcher interface {
	FindRelevantChunks(ctx context.Context, hotelID string, embedding []float32, topK int) ([]string, error)
}

// GatewayRetriever embeds the question locally and lets the backend search
// its stored document chunks.
type GatewayRetriever struct {
	embedder embeddings.Embedder
	searcher ChunkSearcher
	topK     int
	logger   *zap.Logger
}

// NewGatewayRetriever creates a retriever returning up to topK passages.
func NewGatewayRetriever(embedder embeddings.Embedder, searcher ChunkSearcher, topK int, logger *zap.Logger) *GatewayRetriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GatewayRetriever{
		embedder: embedder,
		searcher: searcher,
		topK:     topK,
		logger:   logger,
	}
}

// Retrieve joins the matching passages. Any failure yields "".
func (r *GatewayRetriever) Retrieve(ctx context.Context, hotelID, query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return ""
	}

	vector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		r.logger.Warn("query embedding failed", zap.String("hotel_id", hotelID), zap.Error(err))
		return ""
	}
	if len(vector) == 0 {
		return ""
	}

	chunks, err := r.searcher.FindRelevantChunks(ctx, hotelID, vector, r.topK)
	if err != nil {
		r.logger.Warn("chunk search failed", zap.String("hotel_id", hotelID), zap.Error(err))
		return ""
	}

	var kept []string
	for _, chunk := range chunks {
		if chunk = strings.TrimSpace(chunk); chunk != "" {
			kept = append(kept, chunk)
		}
	}
	r.logger.Debug("retrieved passages", zap.String("hotel_id", hotelID), zap.Int("count", len(kept)))
	return strings.Join(kept, separator)
}

// Nop never returns context.
type Nop struct{}

func (Nop) Retrieve(context.Context, string, string) string { return "" }
