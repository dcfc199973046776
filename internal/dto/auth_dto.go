package dto

type AuthRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type AuthResponse struct {
	Token      string `json:"token"`
	Identifier string `json:"identifier"`
	IsPaid     bool   `json:"is_paid"`
}

type MeResponse struct {
	Identifier string `json:"identifier"`
	// Legacy flag, kept for older clients.
	IsPaid bool `json:"is_paid"`
	// Preferred flag for access gating.
	IsPaidActive bool    `json:"is_paid_active"`
	PaidUntil    *string `json:"paid_until"`
	Plan         string  `json:"plan"`
	IsFounding   bool    `json:"is_founding"`
	Email        *string `json:"email"`
}

type UpdateEmailRequest struct {
	Email string `json:"email"`
}

type ErrorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

type HealthResponse struct {
	OK        bool   `json:"ok"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp"`
	DB        string `json:"db"`
}

type FoundingStatusResponse struct {
	Cap   int   `json:"cap"`
	Count int64 `json:"count"`
	Open  bool  `json:"open"`
}
