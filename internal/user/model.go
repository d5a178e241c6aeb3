package user

import "time"

const (
	RoleLearner  = "learner"
	RoleTutor    = "tutor"
	RoleBusiness = "business"
	RoleAdmin    = "admin"
)

type User struct {
	ID              int       `db:"id" json:"id"`
	Name            string    `db:"name" json:"name"`
	Email           string    `db:"email" json:"email"`
	PasswordHash    string    `db:"password_hash" json:"-"`
	Role            string    `db:"role" json:"role"`
	Subject         string    `db:"subject" json:"subject,omitempty"`
	HourlyRateCents int64     `db:"hourly_rate_cents" json:"hourly_rate_cents,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}
