package model

import "time"

// Payment is a charge against a trip or wallet top-up.
type Payment struct {
	ID          string    `json:"id"`
	TripID      string    `json:"trip_id,omitempty"`
	Amount      float64   `json:"amount"`
	Currency    string    `json:"currency"`
	Status      string    `json:"status"`
	Method      string    `json:"method"`
	CreatedDate time.Time `json:"created_date"`
}

// PaymentMethod is a stored card or account.
type PaymentMethod struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Brand     string `json:"brand,omitempty"`
	Last4     string `json:"last4,omitempty"`
	IsDefault bool   `json:"is_default"`
}

// PaymentIntent is a pending charge the client confirms with the gateway.
type PaymentIntent struct {
	ID           string  `json:"id"`
	ClientSecret string  `json:"client_secret"`
	Amount       float64 `json:"amount"`
	Currency     string  `json:"currency"`
	Status       string  `json:"status"`
}

// WalletBalance is the stored-value balance of the current user.
type WalletBalance struct {
	Balance  float64 `json:"balance"`
	Currency string  `json:"currency"`
}

// WalletTransaction is one credit or debit on the wallet.
type WalletTransaction struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Amount      float64   `json:"amount"`
	Currency    string    `json:"currency"`
	Description string    `json:"description"`
	CreatedDate time.Time `json:"created_date"`
}
