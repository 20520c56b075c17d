package dto

// ─── Request DTOs ────────────────────────────────────────────────────────────

type LoginRequest struct {
	OperatorCode string `json:"operator_code" validate:"required,min=1,max=40"`
	PIN          string `json:"pin"           validate:"required,min=4"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type OperatorResponse struct {
	ID   string `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
	Role string `json:"role"`
}

type LoginResponse struct {
	AccessToken string           `json:"access_token"`
	TokenType   string           `json:"token_type"`
	ExpiresIn   int              `json:"expires_in"` // seconds
	Operator    OperatorResponse `json:"operator"`
}
