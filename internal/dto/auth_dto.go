package dto

// LoginRequest authenticates an employee by phone + PIN.
type LoginRequest struct {
	Phone string `json:"phone" validate:"required"`
	PIN   string `json:"pin" validate:"required,min=4"`
}

type LoginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	BusinessID   uint   `json:"business_id"`
	UserID       uint   `json:"user_id"`
	Role         string `json:"role"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RevokeRequest denylists a token id; subsequent sync calls with that token
// fail closed.
type RevokeRequest struct {
	TokenID string `json:"token_id" validate:"required"`
}
