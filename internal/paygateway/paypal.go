package paygateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/plutov/paypal/v4"
)

// PayPal implements Gateway over the PayPal Orders v2 API. The client fetches and
// refreshes its access token on demand.
type PayPal struct {
	client *paypal.Client
}

// NewPayPal builds a client for mode "live" or "sandbox".
func NewPayPal(clientID, secret, mode string) (*PayPal, error) {
	base := paypal.APIBaseSandBox
	if mode == "live" {
		base = paypal.APIBaseLive
	}
	return newPayPal(clientID, secret, base)
}

func newPayPal(clientID, secret, base string) (*PayPal, error) {
	c, err := paypal.NewClient(clientID, secret, base)
	if err != nil {
		return nil, fmt.Errorf("paypal: new client: %w", err)
	}
	return &PayPal{client: c}, nil
}

func (p *PayPal) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	units := []paypal.PurchaseUnitRequest{{
		Amount: &paypal.PurchaseUnitAmount{
			Currency: req.Currency,
			Value:    FormatAmount(req.Amount),
		},
		Description: req.Description,
		CustomID:    req.CustomID,
	}}
	order, err := p.client.CreateOrder(ctx, paypal.OrderIntentCapture, units, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("paypal: create order: %w", err)
	}
	return &Order{ID: order.ID, Status: order.Status}, nil
}

func (p *PayPal) CaptureOrder(ctx context.Context, orderID string) (*Capture, error) {
	resp, err := p.client.CaptureOrder(ctx, orderID, paypal.CaptureOrderRequest{})
	if err != nil {
		return nil, fmt.Errorf("paypal: capture order %s: %w", orderID, err)
	}
	out := &Capture{OrderID: resp.ID, Status: resp.Status}
	if len(resp.PurchaseUnits) == 0 || resp.PurchaseUnits[0].Payments == nil ||
		len(resp.PurchaseUnits[0].Payments.Captures) == 0 {
		return nil, errors.New("paypal: capture response has no captures")
	}
	capture := resp.PurchaseUnits[0].Payments.Captures[0]
	out.CustomID = capture.CustomID
	if capture.Amount != nil {
		out.Currency = capture.Amount.Currency
		if out.Amount, err = ParseAmount(capture.Amount.Value); err != nil {
			return nil, err
		}
	}
	return out, nil
}
