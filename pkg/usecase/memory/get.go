package memory

import (
	"context"

	"github.com/m-mizutani/engram/pkg/model"
)

// Get retrieves a single memory by id
func (u *UseCase) Get(ctx context.Context, tenantID, projectID string, id model.MemoryID) (*model.Memory, error) {
	ns, err := u.resolve(tenantID, projectID)
	if err != nil {
		return nil, err
	}

	mem, err := u.repo.Get(ctx, ns, id)
	if err != nil {
		return nil, err
	}

	mem.TenantID = tenantID
	mem.ProjectID = projectID
	return mem, nil
}
