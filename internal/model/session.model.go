package model

import "github.com/google/uuid"

type Role string

const (
	RoleClient   Role = "client"
	RoleTrainer  Role = "trainer"
	RoleGymOwner Role = "gym_owner"
	RoleAdmin    Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleTrainer, RoleGymOwner, RoleAdmin:
		return true
	}
	return false
}

func (r Role) IsProvider() bool {
	return r == RoleTrainer || r == RoleGymOwner
}

// Session is the authenticated caller. Handlers build it from the bearer
// token and pass it to services explicitly.
type Session struct {
	UserID uuid.UUID `json:"user_id"`
	Role   Role      `json:"role"`
	Email  string    `json:"email"`
	Name   string    `json:"name,omitempty"`
}

func (s *Session) Authenticated() bool {
	return s != nil && s.UserID != uuid.Nil
}

func (s *Session) IsAdmin() bool {
	return s != nil && s.Role == RoleAdmin
}
