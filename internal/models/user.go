package models

import (
	"time"
)

// Scope partitions the API surface by consumer group.
type Scope string

const (
	ScopeEnrollment Scope = "enrollment"
	ScopeQuizzer    Scope = "quizzer"
	ScopeTestTaker  Scope = "test-taker"
)

func (s Scope) IsValid() bool {
	switch s {
	case ScopeEnrollment, ScopeQuizzer, ScopeTestTaker:
		return true
	}
	return false
}

// IsAdmin reports whether tokens of this scope carry a role.
func (s Scope) IsAdmin() bool {
	return s == ScopeEnrollment || s == ScopeQuizzer
}

type UserRole string

const (
	RoleOwner     UserRole = "owner"
	RoleManager   UserRole = "manager"
	RoleEditor    UserRole = "editor"
	RoleRecruiter UserRole = "recruiter"
)

func (r UserRole) IsValid() bool {
	switch r {
	case RoleOwner, RoleManager, RoleEditor, RoleRecruiter:
		return true
	}
	return false
}

// User is an admin account of the enrollment or quizzer scope.
type User struct {
	ID       uint     `json:"id" gorm:"primaryKey" bson:"_id"`
	Name     string   `json:"name" gorm:"not null;size:100" bson:"name"`
	Email    string   `json:"email" gorm:"uniqueIndex;not null;size:255" bson:"email"`
	Username string   `json:"username" gorm:"uniqueIndex;not null;size:255" bson:"username"`
	Password string   `json:"-" gorm:"not null;size:255" bson:"password"`
	Scope    Scope    `json:"scope" gorm:"not null;index;size:32" bson:"scope"`
	Role     UserRole `json:"role" gorm:"not null;size:32" bson:"role"`

	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// RolesForScope lists the roles an admin of scope may hold, strongest first.
func RolesForScope(scope Scope) []UserRole {
	switch scope {
	case ScopeQuizzer:
		return []UserRole{RoleOwner, RoleManager, RoleEditor}
	case ScopeEnrollment:
		return []UserRole{RoleOwner, RoleManager, RoleRecruiter}
	}
	return nil
}
