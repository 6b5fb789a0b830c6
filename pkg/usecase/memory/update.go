package memory

import (
	"context"
	"strings"

	"github.com/m-mizutani/engram/pkg/errs"
	"github.com/m-mizutani/engram/pkg/model"
	"github.com/m-mizutani/engram/pkg/repository"
	"github.com/m-mizutani/engram/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// UpdateInput contains the fields to change on an existing memory. Nil
// fields are left untouched. Metadata and Tags are full replacements;
// callers needing a partial update must read-modify-write.
type UpdateInput struct {
	TenantID  string
	ProjectID string
	ID        model.MemoryID

	Content  *string
	Metadata *model.Metadata
	Tags     *[]string
}

// Update applies the patch and returns the updated record. When the
// content changes, its embedding is recomputed before the write; a
// stored embedding never describes stale content.
func (u *UseCase) Update(ctx context.Context, input *UpdateInput) (*model.Memory, error) {
	if input.Content != nil && strings.TrimSpace(*input.Content) == "" {
		return nil, goerr.New("content must not be empty", goerr.T(errs.TagInvalidInput))
	}

	ns, err := u.resolve(input.TenantID, input.ProjectID)
	if err != nil {
		return nil, err
	}

	current, err := u.repo.Get(ctx, ns, input.ID)
	if err != nil {
		return nil, err
	}

	patch := &repository.Patch{
		Metadata:  input.Metadata,
		Tags:      input.Tags,
		UpdatedAt: u.now().UTC(),
	}

	if input.Content != nil && *input.Content != current.Content {
		embedding, err := u.embedder.Embed(ctx, *input.Content)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to embed updated content")
		}
		patch.Content = input.Content
		patch.Embedding = embedding
	}

	updated, err := u.repo.Update(ctx, ns, input.ID, patch)
	if err != nil {
		return nil, err
	}

	logging.From(ctx).Debug("memory updated",
		"namespace", ns, "id", input.ID, "reembedded", patch.Content != nil)

	updated.TenantID = input.TenantID
	updated.ProjectID = input.ProjectID
	return updated, nil
}
