package matcher

import (
	"context"
	"math"
	"time"

	"github.com/quantfish/crossarb/internal/textnorm"
	"github.com/quantfish/crossarb/pkg/cache"
	"go.uber.org/zap"
)

// Similarity scores two titles in [0,1]. Implementations must be
// symmetric: Score(a,b) == Score(b,a).
type Similarity interface {
	Score(ctx context.Context, a, b string) float64
}

// Lexical scores titles by longest-common-subsequence ratio over their
// normalized forms.
type Lexical struct{}

// Score returns 2*LCS(a,b) / (len(a)+len(b)) over normalized runes.
func (Lexical) Score(_ context.Context, a, b string) float64 {
	ra := []rune(textnorm.Normalize(a))
	rb := []rune(textnorm.Normalize(b))
	if len(ra) == 0 && len(rb) == 0 {
		return 1.0
	}
	if len(ra) == 0 || len(rb) == 0 {
		return 0.0
	}

	// Single-row LCS table; questions are short so O(n*m) is fine.
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for i := 1; i <= len(ra); i++ {
		for j := 1; j <= len(rb); j++ {
			if ra[i-1] == rb[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}

	lcs := prev[len(rb)]
	return 2.0 * float64(lcs) / float64(len(ra)+len(rb))
}

// Embedder produces a sentence embedding for a text. Implementations live
// outside the core (the engine consumes whatever backend is configured).
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

const embeddingTTL = 6 * time.Hour

// Semantic scores titles by cosine similarity over cached sentence
// embeddings. Whenever the backend is missing or fails it degrades
// silently to lexical scoring.
type Semantic struct {
	embedder Embedder
	cache    cache.Cache
	fallback Lexical
	logger   *zap.Logger
}

// NewSemantic creates a semantic similarity scorer. Both embedder and
// cache may be nil; scoring then falls back to lexical.
func NewSemantic(embedder Embedder, c cache.Cache, logger *zap.Logger) *Semantic {
	return &Semantic{
		embedder: embedder,
		cache:    c,
		logger:   logger,
	}
}

// Score returns the cosine similarity of the two embeddings, clamped to
// [0,1], or the lexical score when the backend is unavailable.
func (s *Semantic) Score(ctx context.Context, a, b string) float64 {
	if s.embedder == nil {
		return s.fallback.Score(ctx, a, b)
	}

	va, err := s.embed(ctx, a)
	if err != nil {
		s.logger.Debug("embedding-unavailable", zap.Error(err))
		return s.fallback.Score(ctx, a, b)
	}
	vb, err := s.embed(ctx, b)
	if err != nil {
		s.logger.Debug("embedding-unavailable", zap.Error(err))
		return s.fallback.Score(ctx, a, b)
	}

	cos := cosine(va, vb)
	if math.IsNaN(cos) {
		return s.fallback.Score(ctx, a, b)
	}
	if cos < 0 {
		return 0
	}
	if cos > 1 {
		return 1
	}
	return cos
}

// embed returns the embedding for text under a read-through cache policy.
func (s *Semantic) embed(ctx context.Context, text string) ([]float64, error) {
	key := textnorm.StableKey(text)
	if s.cache != nil {
		if v, ok := s.cache.Get(key); ok {
			if vec, ok := v.([]float64); ok {
				return vec, nil
			}
		}
	}

	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Set(key, vec, embeddingTTL)
	}
	return vec, nil
}

func cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.NaN()
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return math.NaN()
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
