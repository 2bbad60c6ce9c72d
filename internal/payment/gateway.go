// Package payment abstracts the charge gateway behind an interface so
// production code never talks to a vendor SDK directly. The bundled
// gateway is a deterministic double: it validates the charge request
// shape and issues a reference, with no network calls or delays.
package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Gateway is the capability set a payment provider exposes.
type Gateway interface {
	// Charge attempts to capture amount in the given currency from the
	// payment source and returns the provider reference.
	Charge(ctx context.Context, amount float64, currency, source string) (string, error)
}

type testGateway struct{}

// NewTestGateway returns the deterministic gateway double.
func NewTestGateway() Gateway {
	return &testGateway{}
}

func (g *testGateway) Charge(ctx context.Context, amount float64, currency, source string) (string, error) {
	if amount <= 0 {
		return "", errors.New("charge amount must be positive")
	}
	if len(currency) != 3 {
		return "", fmt.Errorf("invalid currency code: %q", currency)
	}
	if source == "" {
		return "", errors.New("payment source is required")
	}
	// Sources prefixed "declined" simulate a gateway refusal so failure
	// handling is exercisable end to end.
	if len(source) >= 8 && source[:8] == "declined" {
		return "", errors.New("card declined")
	}
	return "ch_" + uuid.New().String(), nil
}
