package memory

import (
	"context"

	"github.com/m-mizutani/engram/pkg/model"
)

// ListInput contains parameters for listing memories
type ListInput struct {
	TenantID  string
	ProjectID string

	// FilterTags restricts the result to records carrying every listed
	// tag (AND semantics)
	FilterTags []string

	Limit  int
	Offset int
}

// List returns memories ordered by creation time, newest first
func (u *UseCase) List(ctx context.Context, input *ListInput) ([]*model.Memory, error) {
	ns, err := u.resolve(input.TenantID, input.ProjectID)
	if err != nil {
		return nil, err
	}

	memories, err := u.repo.List(ctx, ns, input.FilterTags, input.Limit, input.Offset)
	if err != nil {
		return nil, err
	}

	for _, mem := range memories {
		mem.TenantID = input.TenantID
		mem.ProjectID = input.ProjectID
	}
	return memories, nil
}
