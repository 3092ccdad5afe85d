package models

import "github.com/golang-jwt/jwt/v5"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin   UserRole = "ADMIN"
	RoleTeacher UserRole = "TEACHER"
)

// JWTClaims represents the JWT payload for access tokens. TeacherID links the
// account to a guru row and is empty for administrators.
type JWTClaims struct {
	UserID    string   `json:"user_id"`
	Role      UserRole `json:"role"`
	Email     string   `json:"email"`
	TeacherID int64    `json:"teacher_id,omitempty"`
	jwt.RegisteredClaims
}
