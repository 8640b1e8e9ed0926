package models

import "time"

const (
	RolePatient = "patient"
	RoleDoctor  = "doctor"
	RoleSystem  = "system"
)

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	DisplayName  string    `json:"display_name"`
	PhotoURL     string    `json:"photo_url"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PublicProfile is the roster-facing view of a user: what a patient sees
// of a doctor and vice versa.
type PublicProfile struct {
	ID          int64  `json:"id"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	DisplayName string `json:"display_name"`
	PhotoURL    string `json:"photo_url"`
}
