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

// SearchInput contains parameters for a hybrid search
type SearchInput struct {
	TenantID  string
	ProjectID string
	Query     string

	// FilterTags restricts hits to records carrying every listed tag
	FilterTags []string

	// FilterMeta restricts hits to records whose metadata has each key
	// with exactly the given value
	FilterMeta map[string]string

	// Limit caps the number of hits; defaults to 10
	Limit int
}

// Search embeds the query and runs a combined vector + full-text query
// against the caller's namespace. Results come back in descending
// combined-score order; ties break by created_at, newest first. An
// empty result set is not an error.
func (u *UseCase) Search(ctx context.Context, input *SearchInput) ([]*model.ScoredMemory, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, goerr.New("query must not be empty", goerr.T(errs.TagInvalidInput))
	}

	ns, err := u.resolve(input.TenantID, input.ProjectID)
	if err != nil {
		return nil, err
	}

	vector, err := u.embedder.Embed(ctx, input.Query)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed query")
	}

	hits, err := u.repo.HybridQuery(ctx, &repository.HybridQueryInput{
		Namespace:  ns,
		Vector:     vector,
		QueryText:  input.Query,
		FilterTags: input.FilterTags,
		FilterMeta: input.FilterMeta,
		Limit:      input.Limit,
	})
	if err != nil {
		return nil, err
	}

	for _, hit := range hits {
		hit.Memory.TenantID = input.TenantID
		hit.Memory.ProjectID = input.ProjectID
	}

	logging.From(ctx).Debug("search completed",
		"namespace", ns, "hits", len(hits), "tags", input.FilterTags)

	return hits, nil
}
