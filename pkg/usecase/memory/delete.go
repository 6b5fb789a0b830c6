package memory

import (
	"context"

	"github.com/m-mizutani/engram/pkg/model"
	"github.com/m-mizutani/engram/pkg/utils/logging"
)

// Delete removes a memory. Deleting an absent or already-deleted id
// fails with a not-found error; deletes are not idempotent.
func (u *UseCase) Delete(ctx context.Context, tenantID, projectID string, id model.MemoryID) error {
	ns, err := u.resolve(tenantID, projectID)
	if err != nil {
		return err
	}

	if err := u.repo.Delete(ctx, ns, id); err != nil {
		return err
	}

	logging.From(ctx).Debug("memory deleted", "namespace", ns, "id", id)
	return nil
}
