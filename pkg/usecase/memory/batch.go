package memory

import (
	"context"
	"strings"

	"github.com/m-mizutani/engram/pkg/errs"
	"github.com/m-mizutani/engram/pkg/model"
	"github.com/m-mizutani/engram/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// BatchItem is one record of a batch insert
type BatchItem struct {
	Content  string
	Metadata model.Metadata
	Tags     []string
}

// BatchAdd stores multiple memories with a single batched embedding
// call. All items are validated before any I/O happens.
func (u *UseCase) BatchAdd(ctx context.Context, tenantID, projectID string, items []*BatchItem) ([]model.MemoryID, error) {
	if len(items) == 0 {
		return nil, goerr.New("no items to add", goerr.T(errs.TagInvalidInput))
	}

	texts := make([]string, len(items))
	for i, item := range items {
		if strings.TrimSpace(item.Content) == "" {
			return nil, goerr.New("content must not be empty",
				goerr.T(errs.TagInvalidInput), goerr.V("index", i))
		}
		texts[i] = item.Content
	}

	ns, err := u.resolve(tenantID, projectID)
	if err != nil {
		return nil, err
	}

	embeddings, err := u.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed batch")
	}

	if err := u.repo.EnsureNamespace(ctx, ns); err != nil {
		return nil, err
	}

	ids := make([]model.MemoryID, 0, len(items))
	for i, item := range items {
		now := u.now().UTC()
		mem := &model.Memory{
			ID:        model.NewMemoryID(),
			Content:   item.Content,
			Embedding: embeddings[i],
			Metadata:  item.Metadata,
			Tags:      item.Tags,
			CreatedAt: now,
			UpdatedAt: now,
		}

		if err := u.repo.Insert(ctx, ns, mem); err != nil {
			return nil, goerr.Wrap(err, "failed to insert batch item", goerr.V("index", i))
		}
		ids = append(ids, mem.ID)
	}

	logging.From(ctx).Debug("batch added", "namespace", ns, "count", len(ids))

	return ids, nil
}
