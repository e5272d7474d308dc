package user

import (
	"slices"
	"time"

	"gorm.io/datatypes"
)

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

type User struct {
	ID             string                      `gorm:"primaryKey;size:36" json:"id"`
	Username       string                      `gorm:"uniqueIndex;size:32;not null" json:"username"`
	Email          string                      `gorm:"uniqueIndex;size:254;not null" json:"email"`
	PasswordHash   string                      `gorm:"size:128;not null" json:"-"`
	Role           Role                        `gorm:"type:varchar(10);not null;default:'user'" json:"role"`
	FullName       string                      `gorm:"size:128" json:"fullName"`
	Bio            string                      `gorm:"size:1024" json:"bio"`
	ProfilePicture string                      `gorm:"size:512" json:"profilePicture"`
	Location       string                      `gorm:"size:128" json:"location"`
	Badges         datatypes.JSONSlice[string] `json:"badges"`
	CreatedAt      time.Time                   `json:"createdAt"`
	UpdatedAt      time.Time                   `json:"updatedAt"`

	// Derived from the follows table on read.
	Following []string `gorm:"-" json:"following"`
	Followers []string `gorm:"-" json:"followers"`
}

// Follow is a directed edge: FollowerID follows FolloweeID. It is the only
// place the graph is stored; both directions are queried from it.
type Follow struct {
	FollowerID string    `gorm:"primaryKey;size:36"`
	FolloweeID string    `gorm:"primaryKey;size:36;index"`
	CreatedAt  time.Time
}

// Profile holds the free-form, user-editable fields.
type Profile struct {
	FullName       string `json:"fullName" validate:"max=128"`
	Bio            string `json:"bio" validate:"max=1024"`
	ProfilePicture string `json:"profilePicture" validate:"max=512"`
	Location       string `json:"location" validate:"max=128"`
}

func (u *User) applyProfile(p Profile) {
	u.FullName = p.FullName
	u.Bio = p.Bio
	u.ProfilePicture = p.ProfilePicture
	u.Location = p.Location
}

func (u *User) HasBadge(badge string) bool {
	return slices.Contains(u.Badges, badge)
}

func (u *User) IsFollowing(id string) bool {
	return slices.Contains(u.Following, id)
}
