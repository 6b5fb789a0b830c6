package memory

import (
	"context"
	"strings"

	"github.com/m-mizutani/engram/pkg/errs"
	"github.com/m-mizutani/engram/pkg/model"
	"github.com/m-mizutani/engram/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// AddInput contains parameters for storing a new memory
type AddInput struct {
	TenantID  string
	ProjectID string
	Content   string
	Metadata  model.Metadata
	Tags      []string
}

// Add validates and persists a new memory record. The embedding is
// computed before any storage write, so a provider failure leaves
// nothing behind.
func (u *UseCase) Add(ctx context.Context, input *AddInput) (model.MemoryID, error) {
	if strings.TrimSpace(input.Content) == "" {
		return "", goerr.New("content must not be empty", goerr.T(errs.TagInvalidInput))
	}

	ns, err := u.resolve(input.TenantID, input.ProjectID)
	if err != nil {
		return "", err
	}

	embedding, err := u.embedder.Embed(ctx, input.Content)
	if err != nil {
		return "", goerr.Wrap(err, "failed to embed content")
	}

	if err := u.repo.EnsureNamespace(ctx, ns); err != nil {
		return "", err
	}

	now := u.now().UTC()
	mem := &model.Memory{
		ID:        model.NewMemoryID(),
		Content:   input.Content,
		Embedding: embedding,
		Metadata:  input.Metadata,
		Tags:      input.Tags,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := u.repo.Insert(ctx, ns, mem); err != nil {
		return "", err
	}

	logging.From(ctx).Debug("memory added",
		"namespace", ns, "id", mem.ID, "tags", input.Tags)

	return mem.ID, nil
}
