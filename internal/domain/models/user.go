// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Roles.
const (
	RoleUser       = "user"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

// IsStaffRole reports whether role is admin or super_admin.
func IsStaffRole(role string) bool {
	return role == RoleAdmin || role == RoleSuperAdmin
}

// IsValidRole reports whether role is one of the known roles.
func IsValidRole(role string) bool {
	switch role {
	case RoleUser, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// Link is a labelled outbound link shown on a profile.
type Link struct {
	Label string `bson:"label" json:"label"`
	URL   string `bson:"url" json:"url"`
}

// PortfolioItem is one entry in a profile's portfolio section.
type PortfolioItem struct {
	Title       string `bson:"title" json:"title"`
	Description string `bson:"description,omitempty" json:"description,omitempty"`
	ImageURL    string `bson:"image_url,omitempty" json:"image_url,omitempty"`
	LinkURL     string `bson:"link_url,omitempty" json:"link_url,omitempty"`
}

// Warning is a moderator warning attached to a user.
type Warning struct {
	Message  string             `bson:"message" json:"message"`
	IssuedBy primitive.ObjectID `bson:"issued_by" json:"issued_by"`
	IssuedAt time.Time          `bson:"issued_at" json:"issued_at"`
}

// User is an account holder and the owner of a public profile.
//
// Username and UsernameCI mirror the reservation in username_reservations;
// they are only ever written inside the username claim flow.
type User struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FullName   string             `bson:"full_name" json:"full_name"`
	FullNameCI string             `bson:"full_name_ci" json:"-"`
	Email      string             `bson:"email" json:"email"`
	PhotoURL   string             `bson:"photo_url,omitempty" json:"photo_url,omitempty"`

	AuthMethod   string `bson:"auth_method" json:"auth_method"`
	AuthSubject  string `bson:"auth_subject,omitempty" json:"-"`
	PasswordHash string `bson:"password_hash,omitempty" json:"-"`

	Role string `bson:"role" json:"role"`

	Username          string     `bson:"username,omitempty" json:"username,omitempty"`
	UsernameCI        string     `bson:"username_ci,omitempty" json:"-"`
	UsernameChangedAt *time.Time `bson:"username_changed_at,omitempty" json:"username_changed_at,omitempty"`

	Title     string          `bson:"title,omitempty" json:"title,omitempty"`
	Company   string          `bson:"company,omitempty" json:"company,omitempty"`
	Location  string          `bson:"location,omitempty" json:"location,omitempty"`
	Bio       string          `bson:"bio,omitempty" json:"bio,omitempty"`
	Phone     string          `bson:"phone,omitempty" json:"phone,omitempty"`
	Website   string          `bson:"website,omitempty" json:"website,omitempty"`
	Links     []Link          `bson:"links,omitempty" json:"links"`
	Portfolio []PortfolioItem `bson:"portfolio,omitempty" json:"portfolio"`
	IsPublic  bool            `bson:"is_public" json:"is_public"`
	PlanID    string          `bson:"plan_id,omitempty" json:"plan_id,omitempty"`

	Banned       bool       `bson:"banned" json:"banned"`
	BannedReason string     `bson:"banned_reason,omitempty" json:"banned_reason,omitempty"`
	BannedAt     *time.Time `bson:"banned_at,omitempty" json:"banned_at,omitempty"`
	Warning      *Warning   `bson:"warning,omitempty" json:"warning,omitempty"`

	BlockedIDs []primitive.ObjectID `bson:"blocked_ids,omitempty" json:"blocked_ids,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// HasBlocked reports whether id is on the user's blocked list.
func (u *User) HasBlocked(id primitive.ObjectID) bool {
	for _, b := range u.BlockedIDs {
		if b == id {
			return true
		}
	}
	return false
}
