package model

import "time"

type Role string

const (
	RoleClient  Role = "CLIENT"
	RoleAdvisor Role = "ADVISOR"
	RoleAdmin   Role = "ADMIN"
)

func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleAdvisor, RoleAdmin:
		return true
	}
	return false
}

// Staff reports whether the role works cases on behalf of clients.
func (r Role) Staff() bool {
	return r == RoleAdvisor || r == RoleAdmin
}

type User struct {
	ID       string `gorm:"type:varchar(36);primaryKey" json:"id"`
	Email    string `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password string `gorm:"type:varchar(255);not null" json:"-"`
	Name     string `gorm:"type:varchar(255);not null" json:"name"`
	Role     Role   `gorm:"type:varchar(16);index;not null" json:"role"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Session struct {
	ID        string    `gorm:"type:varchar(64);primaryKey" json:"id"`
	UserID    string    `gorm:"type:varchar(36);index;not null" json:"userId"`
	ExpiresAt time.Time `gorm:"index;not null" json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
}
