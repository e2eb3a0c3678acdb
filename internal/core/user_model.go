package core

import (
	"context"
	"time"
)

// Role names a permission level. The application layer maps roles to allowed actions.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleManager   Role = "manager"
	RoleSales     Role = "sales"
	RoleWarehouse Role = "warehouse"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleSales, RoleWarehouse:
		return true
	}
	return false
}

// User represents an authenticated system user scoped to a company.
type User struct {
	ID           int
	CompanyID    int
	Username     string
	Email        string
	PasswordHash string
	Role         Role
	IsActive     bool
	CreatedAt    time.Time
}

// UserService provides user lookup and credential checks.
type UserService interface {
	// GetByUsername finds an active user by username.
	GetByUsername(ctx context.Context, username string) (*User, error)

	// GetByID returns a user by primary key.
	GetByID(ctx context.Context, userID int) (*User, error)

	// CreateUser stores a user with a bcrypt hash of password.
	CreateUser(ctx context.Context, companyID int, username, email, password string, role Role) (*User, error)

	// Authenticate returns the active user whose password matches, or ErrNotFound.
	Authenticate(ctx context.Context, username, password string) (*User, error)
}
