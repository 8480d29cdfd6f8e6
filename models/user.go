package models

import "time"

type InfoUser struct {
	ID        int
	IsAdmin   bool
	IsShipper bool
	IsCarrier bool
	IsAPI     bool
	Read      bool
	Roles     []int
	Email     string
}

type User struct {
	ID      int    `json:"id,omitempty"`
	Company string `json:"company,omitempty"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`

	Created time.Time `json:"created,omitempty"`
	Updated time.Time `json:"updated,omitempty"`
	Active  bool      `json:"active"`

	Roles []Role `json:"roles,omitempty"`
}

func (user *User) HasRole(roleID int) bool {
	for _, role := range user.Roles {
		if role.ID == roleID {
			return true
		}
	}
	return false
}

type Role struct {
	ID   int    `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}
