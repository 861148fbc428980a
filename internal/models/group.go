package models

import "time"

// Role is a member's role within a group.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Group is a set of users who share bills and debts.
// Archived groups keep their history but reject new ledger operations.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string `json:"id"`

	// Name is the display name of the group (e.g., "Roommates", "Work Lunch").
	Name string `json:"name"`

	Members    []GroupMember `json:"members"`
	IsArchived bool          `json:"isArchived"`

	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}

// GroupMember links a user to a group with a role.
type GroupMember struct {
	UserID   string    `json:"userId"`
	Role     Role      `json:"role"`
	JoinedAt time.Time `json:"joinedAt"`
}

// Member returns the membership entry for userID.
func (g *Group) Member(userID string) (GroupMember, bool) {
	for _, m := range g.Members {
		if m.UserID == userID {
			return m, true
		}
	}
	return GroupMember{}, false
}

// HasMember reports whether userID belongs to the group.
func (g *Group) HasMember(userID string) bool {
	_, ok := g.Member(userID)
	return ok
}

// IsManager reports whether userID is an owner or admin of the group.
func (g *Group) IsManager(userID string) bool {
	m, ok := g.Member(userID)
	return ok && (m.Role == RoleOwner || m.Role == RoleAdmin)
}
