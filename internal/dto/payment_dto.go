package dto

type VerifyRequest struct {
	Reference string `json:"reference"`
	Email     string `json:"email"`
}

type VerifyResponse struct {
	OK         bool   `json:"ok"`
	Reference  string `json:"reference"`
	Email      string `json:"email"`
	AmountKobo int64  `json:"amount_kobo"`
}

type PublicKeyResponse struct {
	OK        bool   `json:"ok"`
	PublicKey string `json:"public_key"`
}

type AdminRefundRequest struct {
	Reference    string `json:"reference"`
	AmountKobo   *int64 `json:"amount_kobo"`
	CustomerNote string `json:"customer_note"`
	MerchantNote string `json:"merchant_note"`
}

type PaymentHistoryItem struct {
	Provider  string `json:"provider"`
	Reference string `json:"reference"`
	// Amount is in major units for display; AmountKobo stays exact.
	Amount     int64  `json:"amount"`
	AmountKobo int64  `json:"amount_kobo"`
	Currency   string `json:"currency"`
	Status     string `json:"status"`
	CreatedAt  string `json:"created_at"`
}

type PaymentHistoryResponse struct {
	OK    bool                 `json:"ok"`
	Limit int                  `json:"limit"`
	Items []PaymentHistoryItem `json:"items"`
}
