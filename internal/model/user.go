package model

import "time"

// Roles understood by the backend.
const (
	RolePassenger  = "passenger"
	RoleDriver     = "driver"
	RoleDispatcher = "dispatcher"
	RoleHotel      = "hotel"
	RoleCorporate  = "corporate"
	RoleAdmin      = "admin"
)

// User is an account as returned by /auth/me and the admin user API.
type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	FullName    string    `json:"full_name"`
	Phone       string    `json:"phone,omitempty"`
	Role        string    `json:"role"`
	Status      string    `json:"status,omitempty"`
	Verified    bool      `json:"is_verified"`
	CreatedDate time.Time `json:"created_date"`
}

// RegisterRequest carries the profile fields for POST /auth/register.
type RegisterRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone,omitempty"`
	Role     string `json:"role,omitempty"`
}
