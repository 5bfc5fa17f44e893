// Package paygateway opens and captures hosted payment orders.
package paygateway

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Amounts are carried in minor units (cents) everywhere past the HTTP boundary.
type OrderRequest struct {
	Amount      int64
	Currency    string
	Description string
	// CustomID travels with the order and comes back on capture.
	CustomID string
}

type Order struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Capture is a provider-confirmed capture.
type Capture struct {
	OrderID  string
	Status   string
	Amount   int64
	Currency string
	CustomID string
}

func (c *Capture) Completed() bool {
	return c != nil && c.Status == StatusCompleted
}

const StatusCompleted = "COMPLETED"

type Gateway interface {
	CreateOrder(ctx context.Context, req OrderRequest) (*Order, error)
	CaptureOrder(ctx context.Context, orderID string) (*Capture, error)
}

// ErrNotConfigured is returned by Unconfigured for every call.
var ErrNotConfigured = errors.New("paygateway: payment provider is not configured")

// Unconfigured stands in when no provider credentials are set, so the rest of the
// service keeps working and payment calls fail cleanly.
type Unconfigured struct{}

func (Unconfigured) CreateOrder(context.Context, OrderRequest) (*Order, error) {
	return nil, ErrNotConfigured
}

func (Unconfigured) CaptureOrder(context.Context, string) (*Capture, error) {
	return nil, ErrNotConfigured
}

// New returns the PayPal gateway, or Unconfigured when the credentials are blank.
func New(clientID, secret, mode string, log *zap.Logger) (Gateway, error) {
	if strings.TrimSpace(clientID) == "" || strings.TrimSpace(secret) == "" {
		log.Warn("paypal credentials missing, payments are disabled")
		return Unconfigured{}, nil
	}
	return NewPayPal(clientID, secret, mode)
}

// MinorUnits converts a decimal amount to cents, rounding half away from zero.
func MinorUnits(v float64) int64 {
	return int64(math.Round(v * 100))
}

// FormatAmount renders minor units the way providers expect them, with two decimals.
func FormatAmount(minor int64) string {
	sign := ""
	if minor < 0 {
		sign, minor = "-", -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}

// ParseAmount is the inverse of FormatAmount. It accepts at most two decimals and
// never goes through a float.
func ParseAmount(s string) (int64, error) {
	whole, frac, _ := strings.Cut(strings.TrimSpace(s), ".")
	if whole == "" || len(frac) > 2 || strings.HasPrefix(whole, "-") || strings.HasPrefix(whole, "+") {
		return 0, fmt.Errorf("paygateway: amount %q: not a decimal with at most two places", s)
	}
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("paygateway: amount %q: %w", s, err)
	}
	var cents int64
	if frac != "" {
		if strings.HasPrefix(frac, "-") || strings.HasPrefix(frac, "+") {
			return 0, fmt.Errorf("paygateway: amount %q: not a decimal with at most two places", s)
		}
		frac += strings.Repeat("0", 2-len(frac))
		if cents, err = strconv.ParseInt(frac, 10, 64); err != nil {
			return 0, fmt.Errorf("paygateway: amount %q: %w", s, err)
		}
	}
	if units > (math.MaxInt64-cents)/100 {
		return 0, fmt.Errorf("paygateway: amount %q: out of range", s)
	}
	return units*100 + cents, nil
}
