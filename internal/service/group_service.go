package service

import (
	"context"
	"log/slog"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/api"
	"github.com/mmynk/splitledger/internal/apperr"
	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

// GroupService implements the Connect GroupService
type GroupService struct {
	store storage.Store
	guard *ledger.Guard
}

var _ api.GroupServiceHandler = (*GroupService)(nil)

// NewGroupService creates a new GroupService with the given storage backend.
func NewGroupService(store storage.Store, guard *ledger.Guard) *GroupService {
	return &GroupService{store: store, guard: guard}
}

// CreateGroup creates a new group owned by the caller.
func (s *GroupService) CreateGroup(ctx context.Context, req *connect.Request[api.CreateGroupRequest]) (*connect.Response[api.CreateGroupResponse], error) {
	owner, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("CreateGroup request received",
		"name", req.Msg.Name,
		"members_count", len(req.Msg.Members),
	)

	name := strings.TrimSpace(req.Msg.Name)
	if name == "" {
		return nil, toConnectError(ctx, "CreateGroup", apperr.NewValidationError("name", "group name is required"))
	}

	group := &models.Group{
		Name:      name,
		CreatedBy: owner,
		Members:   []models.GroupMember{{UserID: owner, Role: models.RoleOwner}},
	}
	ids := make([]string, 0, len(req.Msg.Members))
	for _, m := range req.Msg.Members {
		if m.UserID == owner || group.HasMember(m.UserID) {
			continue
		}
		role, err := memberRole(m.Role)
		if err != nil {
			return nil, toConnectError(ctx, "CreateGroup", err)
		}
		group.Members = append(group.Members, models.GroupMember{UserID: m.UserID, Role: role})
		ids = append(ids, m.UserID)
	}

	if err := s.requireUsers(ctx, ids...); err != nil {
		return nil, toConnectError(ctx, "CreateGroup", err)
	}

	if err := s.store.CreateGroup(ctx, group); err != nil {
		return nil, toConnectError(ctx, "CreateGroup", err)
	}

	slog.Info("Group created", "group_id", group.ID, "members_count", len(group.Members))
	return connect.NewResponse(&api.CreateGroupResponse{Group: group}), nil
}

// GetGroup retrieves a group the caller belongs to.
func (s *GroupService) GetGroup(ctx context.Context, req *connect.Request[api.GetGroupRequest]) (*connect.Response[api.GetGroupResponse], error) {
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}

	group, err := s.guard.RequireReader(ctx, req.Msg.GroupID, userID)
	if err != nil {
		return nil, toConnectError(ctx, "GetGroup", err)
	}
	return connect.NewResponse(&api.GetGroupResponse{Group: group}), nil
}

// AddMember adds a registered user to the group. Only owners and admins may
// add members, and only owners may add admins.
func (s *GroupService) AddMember(ctx context.Context, req *connect.Request[api.AddMemberRequest]) (*connect.Response[api.AddMemberResponse], error) {
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("AddMember request received", "group_id", req.Msg.GroupID, "user_id", req.Msg.UserID)

	group, err := s.guard.RequireMember(ctx, req.Msg.GroupID, userID)
	if err != nil {
		return nil, toConnectError(ctx, "AddMember", err)
	}

	role, err := memberRole(req.Msg.Role)
	if err != nil {
		return nil, toConnectError(ctx, "AddMember", err)
	}
	if !group.IsManager(userID) {
		return nil, toConnectError(ctx, "AddMember", apperr.NewForbiddenError("only group owners and admins can add members"))
	}
	if role == models.RoleAdmin {
		if m, _ := group.Member(userID); m.Role != models.RoleOwner {
			return nil, toConnectError(ctx, "AddMember", apperr.NewForbiddenError("only group owners can add admins"))
		}
	}
	if group.HasMember(req.Msg.UserID) {
		return nil, toConnectError(ctx, "AddMember", apperr.NewConflictError("user is already a member of this group"))
	}
	if err := s.requireUsers(ctx, req.Msg.UserID); err != nil {
		return nil, toConnectError(ctx, "AddMember", err)
	}

	if err := s.store.AddGroupMember(ctx, group.ID, models.GroupMember{UserID: req.Msg.UserID, Role: role}); err != nil {
		return nil, toConnectError(ctx, "AddMember", err)
	}

	updated, err := s.store.GetGroup(ctx, group.ID)
	if err != nil {
		return nil, toConnectError(ctx, "AddMember", err)
	}

	slog.Info("Member added", "group_id", group.ID, "user_id", req.Msg.UserID, "role", role)
	return connect.NewResponse(&api.AddMemberResponse{Group: updated}), nil
}

// ArchiveGroup archives or restores a group. Only the owner may do either.
func (s *GroupService) ArchiveGroup(ctx context.Context, req *connect.Request[api.ArchiveGroupRequest]) (*connect.Response[api.ArchiveGroupResponse], error) {
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}

	group, err := s.guard.RequireReader(ctx, req.Msg.GroupID, userID)
	if err != nil {
		return nil, toConnectError(ctx, "ArchiveGroup", err)
	}
	if m, _ := group.Member(userID); m.Role != models.RoleOwner {
		return nil, toConnectError(ctx, "ArchiveGroup", apperr.NewForbiddenError("only the group owner can archive the group"))
	}

	if err := s.store.SetGroupArchived(ctx, group.ID, req.Msg.Archived); err != nil {
		return nil, toConnectError(ctx, "ArchiveGroup", err)
	}
	group.IsArchived = req.Msg.Archived

	slog.Info("Group archive flag changed", "group_id", group.ID, "archived", group.IsArchived)
	return connect.NewResponse(&api.ArchiveGroupResponse{Group: group}), nil
}

// requireUsers fails with a NotFoundError for the first unknown user.
func (s *GroupService) requireUsers(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	users, err := s.store.GetUsersByIDs(ctx, ids)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if _, ok := users[id]; !ok {
			return apperr.NewNotFoundError("user", id)
		}
	}
	return nil
}

func memberRole(role models.Role) (models.Role, error) {
	switch role {
	case "":
		return models.RoleMember, nil
	case models.RoleMember, models.RoleAdmin:
		return role, nil
	case models.RoleOwner:
		return "", apperr.NewValidationError("role", "a group has exactly one owner")
	}
	return "", apperr.Validationf("role", "unknown role %q", role)
}
