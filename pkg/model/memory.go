package model

import (
	"time"

	"github.com/google/uuid"
)

type MemoryID string

// NewMemoryID generates a new unique MemoryID
func NewMemoryID() MemoryID {
	return MemoryID(uuid.New().String())
}

// Metadata is an open key-value mapping attached to a memory. The store
// never interprets it; values round-trip through JSON unchanged.
type Metadata map[string]any

// Memory represents a stored memory record within a namespace
type Memory struct {
	ID        MemoryID  `json:"id"`
	TenantID  string    `json:"tenant_id"`
	ProjectID string    `json:"project_id"`
	Content   string    `json:"content"`
	Embedding []float32 `json:"-"`
	Metadata  Metadata  `json:"metadata,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasTags reports whether the record carries every tag in tags (AND semantics)
func (m *Memory) HasTags(tags []string) bool {
	for _, want := range tags {
		found := false
		for _, got := range m.Tags {
			if got == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// ScoredMemory is a search hit with its fused relevance score
type ScoredMemory struct {
	Memory *Memory `json:"memory"`
	Score  float64 `json:"score"`
}
