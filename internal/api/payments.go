package api

import (
	"context"
	"net/http"

	"github.com/joltcab/console/internal/model"
)

// PaymentService lists charges and manages stored payment methods.
type PaymentService struct {
	*Resource[model.Payment]
}

// NewPaymentService creates the payments facade.
func NewPaymentService(c *Client) *PaymentService {
	return &PaymentService{Resource: NewResource[model.Payment](c, "/payments", "payments", "payment")}
}

// Methods lists the caller's stored payment methods.
func (s *PaymentService) Methods(ctx context.Context) ([]model.PaymentMethod, error) {
	return fetchList[model.PaymentMethod](ctx, s.client, s.path+"/methods", "methods", nil)
}

// AddMethod stores a tokenized card or account. gatewayToken is the
// opaque token from the payment gateway, never raw card data.
func (s *PaymentService) AddMethod(
	ctx context.Context,
	gatewayToken string,
	makeDefault bool,
) (*model.PaymentMethod, error) {
	return fetchOne[model.PaymentMethod](ctx, s.client, http.MethodPost, s.path+"/methods",
		map[string]interface{}{"token": gatewayToken, "is_default": makeDefault}, "method")
}

// CreateIntent opens a pending charge for a trip.
func (s *PaymentService) CreateIntent(
	ctx context.Context,
	tripID string,
	amount float64,
	currency string,
) (*model.PaymentIntent, error) {
	return fetchOne[model.PaymentIntent](ctx, s.client, http.MethodPost, s.path+"/intent",
		map[string]interface{}{"trip_id": tripID, "amount": amount, "currency": currency}, "intent")
}

// WalletService reads and funds the stored-value wallet.
type WalletService struct {
	client *Client
}

// NewWalletService creates the wallet facade.
func NewWalletService(c *Client) *WalletService {
	return &WalletService{client: c}
}

// Balance returns the current wallet balance.
func (s *WalletService) Balance(ctx context.Context) (*model.WalletBalance, error) {
	return fetchOne[model.WalletBalance](ctx, s.client, http.MethodGet, "/wallet/balance", nil, "wallet")
}

// Transactions lists wallet credits and debits, newest first.
func (s *WalletService) Transactions(ctx context.Context, params Params) ([]model.WalletTransaction, error) {
	return fetchList[model.WalletTransaction](ctx, s.client, "/wallet/transactions", "transactions", params)
}

// TopUp credits the wallet from the payment method methodID.
func (s *WalletService) TopUp(
	ctx context.Context,
	amount float64,
	methodID string,
) (*model.WalletBalance, error) {
	return fetchOne[model.WalletBalance](ctx, s.client, http.MethodPost, "/wallet/topup",
		map[string]interface{}{"amount": amount, "payment_method_id": methodID}, "wallet")
}
