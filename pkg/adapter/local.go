package adapter

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"sync/atomic"

	"github.com/m-mizutani/engram/pkg/errs"
	"github.com/m-mizutani/goerr/v2"
)

// LocalEmbedder is a deterministic bag-of-words embedder. Each token is
// hashed into a bucket of the vector, so texts sharing words get a
// higher cosine similarity. It needs no network access and is intended
// for tests and offline setups.
type LocalEmbedder struct {
	dimension int
	calls     atomic.Int64
}

func NewLocal(dimension int) *LocalEmbedder {
	return &LocalEmbedder{dimension: dimension}
}

func (e *LocalEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, goerr.New("text must not be empty", goerr.T(errs.TagInvalidInput))
	}
	e.calls.Add(1)

	vec := make([]float32, e.dimension)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(strings.Trim(token, ".,!?%:;\"'()")))
		vec[h.Sum32()%uint32(e.dimension)] += 1
	}

	return normalize(vec), nil
}

func (e *LocalEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, goerr.New("no texts to embed", goerr.T(errs.TagInvalidInput))
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = vec
	}

	return vectors, nil
}

func (e *LocalEmbedder) Dimension() int {
	return e.dimension
}

// Calls returns how many single-text embeddings have been computed
func (e *LocalEmbedder) Calls() int64 {
	return e.calls.Load()
}

func normalize(vec []float32) []float32 {
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}

	n := float32(math.Sqrt(norm))
	for i := range vec {
		vec[i] /= n
	}
	return vec
}
