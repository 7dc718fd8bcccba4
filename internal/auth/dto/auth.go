package dto

import "time"

// LinkGoogleRequest carries tokens obtained by the identity system after an
// OAuth consent.
type LinkGoogleRequest struct {
	Email        string     `json:"email" binding:"required,email"`
	AccessToken  string     `json:"access_token" binding:"required"`
	RefreshToken string     `json:"refresh_token"`
	ExpiresAt    *time.Time `json:"expires_at"`
}

type LinkIMAPRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Host     string `json:"host" binding:"required"`
	Port     int    `json:"port" binding:"omitempty,min=1,max=65535"`
	Username string `json:"username"`
	Password string `json:"password" binding:"required"`
}

type RegisterFCMTokenRequest struct {
	Token      string `json:"token" binding:"required"`
	DeviceInfo string `json:"device_info"`
}

// AccountResponse describes a linked account without its secrets.
type AccountResponse struct {
	Provider  string     `json:"provider"`
	Email     string     `json:"email"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	LinkedAt  time.Time  `json:"linked_at"`
}
