package repository

import (
	"context"
	"time"

	"github.com/m-mizutani/engram/pkg/model"
)

// Patch describes a partial update of a memory record. Nil fields are
// left untouched. Metadata and Tags are full replacements, not merges.
// Embedding must be set whenever Content is set.
type Patch struct {
	Content   *string
	Embedding []float32
	Metadata  *model.Metadata
	Tags      *[]string
	UpdatedAt time.Time
}

// HybridQueryInput describes one combined vector + full-text query
// scoped to a single namespace.
type HybridQueryInput struct {
	Namespace model.Namespace
	Vector    []float32
	QueryText string

	// FilterTags restricts results to records carrying every tag
	FilterTags []string

	// FilterMeta restricts results to records whose metadata contains
	// each key with exactly the given value
	FilterMeta map[string]string

	Limit int
}

// Repository is the contract over the storage engine. All operations
// are scoped to a resolved namespace and must be safe for concurrent
// use. Single-record operations are atomic at the engine; concurrent
// writers to the same id race with last-write-wins determined by the
// engine's own ordering.
type Repository interface {
	// EnsureNamespace creates the backing table and its vector and
	// full-text indexes if absent. Idempotent under concurrent callers.
	EnsureNamespace(ctx context.Context, ns model.Namespace) error

	// Insert persists a new record. Fails if the id already exists.
	Insert(ctx context.Context, ns model.Namespace, mem *model.Memory) error

	// Get retrieves a record by id
	Get(ctx context.Context, ns model.Namespace, id model.MemoryID) (*model.Memory, error)

	// Update applies a patch and returns the updated record
	Update(ctx context.Context, ns model.Namespace, id model.MemoryID, patch *Patch) (*model.Memory, error)

	// Delete removes a record. A second delete of the same id fails.
	Delete(ctx context.Context, ns model.Namespace, id model.MemoryID) error

	// List returns records ordered by created_at descending. filterTags
	// uses AND semantics.
	List(ctx context.Context, ns model.Namespace, filterTags []string, limit, offset int) ([]*model.Memory, error)

	// HybridQuery fuses vector similarity and full-text relevance into
	// one descending-score ranking. Ties break by created_at descending.
	HybridQuery(ctx context.Context, input *HybridQueryInput) ([]*model.ScoredMemory, error)

	// Close releases the engine connection
	Close() error
}
