package api

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/models"
)

// GroupServiceName is the fully-qualified name of the GroupService service.
const GroupServiceName = packageName + ".GroupService"

const (
	GroupServiceCreateGroupProcedure  = "/" + GroupServiceName + "/CreateGroup"
	GroupServiceGetGroupProcedure     = "/" + GroupServiceName + "/GetGroup"
	GroupServiceAddMemberProcedure    = "/" + GroupServiceName + "/AddMember"
	GroupServiceArchiveGroupProcedure = "/" + GroupServiceName + "/ArchiveGroup"
)

// MemberInput adds a user to a group. An empty role means member.
type MemberInput struct {
	UserID string      `json:"userId"`
	Role   models.Role `json:"role,omitempty"`
}

// CreateGroupRequest creates a group owned by the caller.
type CreateGroupRequest struct {
	Name    string        `json:"name"`
	Members []MemberInput `json:"members"`
}

type CreateGroupResponse struct {
	Group *models.Group `json:"group"`
}

type GetGroupRequest struct {
	GroupID string `json:"groupId"`
}

type GetGroupResponse struct {
	Group *models.Group `json:"group"`
}

type AddMemberRequest struct {
	GroupID string      `json:"groupId"`
	UserID  string      `json:"userId"`
	Role    models.Role `json:"role,omitempty"`
}

type AddMemberResponse struct {
	Group *models.Group `json:"group"`
}

// ArchiveGroupRequest archives or restores a group.
type ArchiveGroupRequest struct {
	GroupID  string `json:"groupId"`
	Archived bool   `json:"archived"`
}

type ArchiveGroupResponse struct {
	Group *models.Group `json:"group"`
}

// GroupServiceHandler is implemented by the server.
type GroupServiceHandler interface {
	CreateGroup(context.Context, *connect.Request[CreateGroupRequest]) (*connect.Response[CreateGroupResponse], error)
	GetGroup(context.Context, *connect.Request[GetGroupRequest]) (*connect.Response[GetGroupResponse], error)
	AddMember(context.Context, *connect.Request[AddMemberRequest]) (*connect.Response[AddMemberResponse], error)
	ArchiveGroup(context.Context, *connect.Request[ArchiveGroupRequest]) (*connect.Response[ArchiveGroupResponse], error)
}

// NewGroupServiceHandler returns the mount path and handler of svc.
func NewGroupServiceHandler(svc GroupServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	return route(servicePath("GroupService"), map[string]http.Handler{
		GroupServiceCreateGroupProcedure:  unary(GroupServiceCreateGroupProcedure, svc.CreateGroup, opts),
		GroupServiceGetGroupProcedure:     unary(GroupServiceGetGroupProcedure, svc.GetGroup, opts),
		GroupServiceAddMemberProcedure:    unary(GroupServiceAddMemberProcedure, svc.AddMember, opts),
		GroupServiceArchiveGroupProcedure: unary(GroupServiceArchiveGroupProcedure, svc.ArchiveGroup, opts),
	})
}

// GroupServiceClient calls a remote GroupService.
type GroupServiceClient interface {
	CreateGroup(context.Context, *connect.Request[CreateGroupRequest]) (*connect.Response[CreateGroupResponse], error)
	GetGroup(context.Context, *connect.Request[GetGroupRequest]) (*connect.Response[GetGroupResponse], error)
	AddMember(context.Context, *connect.Request[AddMemberRequest]) (*connect.Response[AddMemberResponse], error)
	ArchiveGroup(context.Context, *connect.Request[ArchiveGroupRequest]) (*connect.Response[ArchiveGroupResponse], error)
}

// NewGroupServiceClient creates a client for the service at baseURL.
func NewGroupServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) GroupServiceClient {
	return &groupServiceClient{
		createGroup:  newClient[CreateGroupRequest, CreateGroupResponse](httpClient, baseURL, GroupServiceCreateGroupProcedure, opts),
		getGroup:     newClient[GetGroupRequest, GetGroupResponse](httpClient, baseURL, GroupServiceGetGroupProcedure, opts),
		addMember:    newClient[AddMemberRequest, AddMemberResponse](httpClient, baseURL, GroupServiceAddMemberProcedure, opts),
		archiveGroup: newClient[ArchiveGroupRequest, ArchiveGroupResponse](httpClient, baseURL, GroupServiceArchiveGroupProcedure, opts),
	}
}

type groupServiceClient struct {
	createGroup  *connect.Client[CreateGroupRequest, CreateGroupResponse]
	getGroup     *connect.Client[GetGroupRequest, GetGroupResponse]
	addMember    *connect.Client[AddMemberRequest, AddMemberResponse]
	archiveGroup *connect.Client[ArchiveGroupRequest, ArchiveGroupResponse]
}

func (c *groupServiceClient) CreateGroup(ctx context.Context, req *connect.Request[CreateGroupRequest]) (*connect.Response[CreateGroupResponse], error) {
	return c.createGroup.CallUnary(ctx, req)
}

func (c *groupServiceClient) GetGroup(ctx context.Context, req *connect.Request[GetGroupRequest]) (*connect.Response[GetGroupResponse], error) {
	return c.getGroup.CallUnary(ctx, req)
}

func (c *groupServiceClient) AddMember(ctx context.Context, req *connect.Request[AddMemberRequest]) (*connect.Response[AddMemberResponse], error) {
	return c.addMember.CallUnary(ctx, req)
}

func (c *groupServiceClient) ArchiveGroup(ctx context.Context, req *connect.Request[ArchiveGroupRequest]) (*connect.Response[ArchiveGroupResponse], error) {
	return c.archiveGroup.CallUnary(ctx, req)
}
