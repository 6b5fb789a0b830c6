package memory

import (
	"time"

	"github.com/m-mizutani/engram/pkg/adapter"
	"github.com/m-mizutani/engram/pkg/model"
	"github.com/m-mizutani/engram/pkg/repository"
)

// DefaultTablePrefix is prepended to every resolved namespace name
const DefaultTablePrefix = "memories_"

// UseCase provides the public memory operations. It is stateless apart
// from its adapters and safe for unbounded concurrent use; no lock is
// held across a repository or embedding call.
type UseCase struct {
	repo        repository.Repository
	embedder    adapter.Embedder
	tablePrefix string
	now         func() time.Time
}

// Option is a functional option for UseCase
type Option func(*UseCase)

// WithTablePrefix overrides the namespace name prefix
func WithTablePrefix(prefix string) Option {
	return func(uc *UseCase) {
		uc.tablePrefix = prefix
	}
}

// WithClock replaces the timestamp source
func WithClock(now func() time.Time) Option {
	return func(uc *UseCase) {
		uc.now = now
	}
}

// New creates a new memory UseCase instance
func New(repo repository.Repository, embedder adapter.Embedder, opts ...Option) *UseCase {
	uc := &UseCase{
		repo:        repo,
		embedder:    embedder,
		tablePrefix: DefaultTablePrefix,
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}

func (u *UseCase) resolve(tenantID, projectID string) (model.Namespace, error) {
	return model.ResolveNamespace(u.tablePrefix, tenantID, projectID)
}

// Close releases the storage engine connection
func (u *UseCase) Close() error {
	return u.repo.Close()
}
