package payment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestGatewayCharge(t *testing.T) {
	g := NewTestGateway()
	ctx := context.Background()

	ref, err := g.Charge(ctx, 25.00, "USD", "tok_visa")
	require.NoError(t, err)
	assert.Contains(t, ref, "ch_")

	_, err = g.Charge(ctx, 0, "USD", "tok_visa")
	assert.Error(t, err)

	_, err = g.Charge(ctx, 10, "DOLLARS", "tok_visa")
	assert.Error(t, err)

	_, err = g.Charge(ctx, 10, "USD", "")
	assert.Error(t, err)

	_, err = g.Charge(ctx, 10, "USD", "declined_card")
	assert.Error(t, err)
}
