package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestSplitCommission(t *testing.T) {
	rate := decimal.RequireFromString("0.10")
	amounts := []string{"500", "1000", "333.33", "0.01", "19.99"}
	for _, a := range amounts {
		amount := decimal.RequireFromString(a)
		commission, net := SplitCommission(amount, rate)
		assert.True(t, commission.Add(net).Equal(amount), a)
		assert.LessOrEqual(t, commission.Exponent(), int32(0))
	}

	commission, net := SplitCommission(decimal.RequireFromString("333.33"), rate)
	assert.Equal(t, "33.33", commission.StringFixed(2))
	assert.Equal(t, "300.00", net.StringFixed(2))
}

func TestCheckoutRequest(t *testing.T) {
	t.Run("mobile flag and payment type", func(t *testing.T) {
		r := CheckoutRequest{Metadata: map[string]any{"is_mobile_app": true, "payment_type": "membership"}}
		assert.True(t, r.IsMobileApp())
		assert.Equal(t, "membership", r.PaymentType())

		r.Metadata["is_mobile_app"] = "TRUE"
		assert.True(t, r.IsMobileApp())
	})

	t.Run("defaults", func(t *testing.T) {
		r := CheckoutRequest{}
		assert.False(t, r.IsMobileApp())
		assert.Equal(t, PaymentTypeBooking, r.PaymentType())
	})

	t.Run("validate", func(t *testing.T) {
		r := CheckoutRequest{Amount: decimal.NewFromInt(500), CustomerEmail: " a@b.com ", Currency: "bdt"}
		assert.NoError(t, r.Validate())
		assert.Equal(t, "a@b.com", r.CustomerEmail)
		assert.Equal(t, "BDT", r.Currency)

		assert.ErrorIs(t, (&CheckoutRequest{Amount: decimal.Zero, CustomerEmail: "a@b.com"}).Validate(), ErrValidation)
		assert.ErrorIs(t, (&CheckoutRequest{Amount: decimal.NewFromInt(1)}).Validate(), ErrValidation)
	})
}
