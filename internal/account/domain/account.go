package domain

import (
	"strings"
	"time"
)

type Role string

const (
	RoleOwner  Role = "owner"
	RoleSeeker Role = "seeker"
)

// ParseRole accepts either role in any letter case.
func ParseRole(value string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(value))) {
	case RoleOwner:
		return RoleOwner, true
	case RoleSeeker:
		return RoleSeeker, true
	default:
		return "", false
	}
}

// Account is the persisted form. PasswordHash never leaves the service layer;
// callers get a Profile.
type Account struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Mobile       string    `json:"mobile"`
	PasswordHash string    `json:"passwordHash"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (a Account) RecordID() string { return a.ID }

func (a Account) WithRecordID(id string) Account {
	a.ID = id
	return a
}

func (a Account) Profile() Profile {
	return Profile{
		ID:        a.ID,
		Name:      a.Name,
		Email:     a.Email,
		Mobile:    a.Mobile,
		Role:      a.Role,
		CreatedAt: a.CreatedAt,
	}
}

type Profile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Mobile    string    `json:"mobile"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}
