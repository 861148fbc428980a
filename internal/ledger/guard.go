package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/mmynk/splitledger/internal/apperr"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

// GroupReader is the group lookup the guard depends on.
type GroupReader interface {
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)
}

// Guard checks group membership for every ledger operation.
type Guard struct {
	groups GroupReader
}

// NewGuard creates a membership guard over groups.
func NewGuard(groups GroupReader) *Guard {
	return &Guard{groups: groups}
}

// RequireMember returns the group if userID is a member and the group is not
// archived. Mutations go through this check.
func (g *Guard) RequireMember(ctx context.Context, groupID, userID string) (*models.Group, error) {
	group, err := g.RequireActiveGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !group.HasMember(userID) {
		return nil, apperr.NewForbiddenError("you are not a member of this group")
	}
	return group, nil
}

// RequireReader returns the group if userID is a member. Archived groups are
// still readable.
func (g *Guard) RequireReader(ctx context.Context, groupID, userID string) (*models.Group, error) {
	group, err := g.findGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !group.HasMember(userID) {
		return nil, apperr.NewForbiddenError("you are not a member of this group")
	}
	return group, nil
}

// RequireActiveGroup returns the group if it exists and is not archived.
func (g *Guard) RequireActiveGroup(ctx context.Context, groupID string) (*models.Group, error) {
	group, err := g.findGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group.IsArchived {
		return nil, apperr.NewForbiddenError("group is archived")
	}
	return group, nil
}

func (g *Guard) findGroup(ctx context.Context, groupID string) (*models.Group, error) {
	if groupID == "" {
		return nil, apperr.NewValidationError("groupId", "group id is required")
	}
	group, err := g.groups.GetGroup(ctx, groupID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NewNotFoundError("group", groupID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load group: %w", err)
	}
	return group, nil
}

// requireMembers fails with a ForbiddenError naming the first user that is
// not a member of group.
func requireMembers(group *models.Group, userIDs ...string) error {
	for _, id := range userIDs {
		if !group.HasMember(id) {
			return apperr.NewForbiddenError(fmt.Sprintf("user %s is not a member of this group", id))
		}
	}
	return nil
}

// canManageBill reports whether actor created the bill or manages its group.
func canManageBill(bill *models.Bill, group *models.Group, actor string) bool {
	return bill.CreatedBy == actor || group.IsManager(actor)
}
