// Package auth implements tenant registration, credential verification and
// access-token issuance.
package auth

import "time"

// Company is the tenant boundary. Every user and every tenant-owned record is
// scoped by its ID.
type Company struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// User is an account inside a company. The password hash never leaves the
// service layer.
type User struct {
	ID           int64     `json:"id"`
	CompanyID    int64     `json:"companyId"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// NewUser carries the fields needed to insert a user row.
type NewUser struct {
	Username     string
	Email        string
	Name         string
	PasswordHash string
}

// LoginProjection is the immutable, request-scoped read model assembled by a
// single query at login: the user row plus every role it holds and every
// permission key those roles grant. Lists may contain duplicates across
// roles; the service flattens them into sets.
type LoginProjection struct {
	User        User
	Roles       []string
	Permissions []string
}

// RegisterRequest creates a new company together with its first (admin) user.
type RegisterRequest struct {
	CompanyName string `json:"companyName" validate:"required,max=200"`
	Username    string `json:"username" validate:"required,max=100"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
	Name        string `json:"name" validate:"required,max=200"`
}

// RegisterUserRequest creates a user inside the calling admin's company. The
// company is always taken from the caller's token, never from the body.
type RegisterUserRequest struct {
	Username string `json:"username" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name" validate:"required,max=200"`
	Role     string `json:"role,omitempty" validate:"omitempty,oneof=ADMIN EDITOR USER"`
}

// LoginRequest authenticates a user within a company.
type LoginRequest struct {
	Username  string `json:"username" validate:"required"`
	Password  string `json:"password" validate:"required"`
	CompanyID int64  `json:"companyId" validate:"required,gt=0"`
}

// AssignRoleRequest adds or removes a role on a user.
type AssignRoleRequest struct {
	UserID int64 `json:"userId" validate:"required,gt=0"`
	RoleID int64 `json:"roleId" validate:"required,gt=0"`
}

// LoginResponse carries the signed access token.
type LoginResponse struct {
	AccessToken string `json:"accessToken"`
}
