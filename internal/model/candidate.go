package model

import (
	"time"

	"github.com/google/uuid"
)

// Candidate is an invited test taker. Candidates authenticate with their
// email plus the access code issued with the invitation.
type Candidate struct {
	ID             int        `json:"id"`
	Name           string     `json:"name"`
	Email          string     `json:"email"`
	AccessCodeHash string     `json:"-"`
	InvitedTestID  *uuid.UUID `json:"invited_test_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Admin is a back-office user who can read results.
type Admin struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// CandidateLoginRequest is the payload for candidate authentication.
type CandidateLoginRequest struct {
	Email      string `json:"email" binding:"required,email"`
	AccessCode string `json:"access_code" binding:"required,min=6,max=64"`
}

// AdminLoginRequest is the payload for admin authentication.
type AdminLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}
