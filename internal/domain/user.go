// Package domain contains entity without logic, just meta-data
package domain

type UserID string

const RoleAdmin = "admin"

type User struct {
	ID   UserID `json:"id"`
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
