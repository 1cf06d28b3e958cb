package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suqhub/suq-backend/internal/errs"
)

func TestDecodeSaleDefaultsClientRef(t *testing.T) {
	a := ActionIntent{
		ID:      "a-42",
		Type:    ActionSale,
		Payload: []byte(`{"items":[{"product_id":"p","quantity":1,"unit_price":5}],"payment_method":"cash"}`),
	}
	p, err := a.DecodeSale()
	require.NoError(t, err)
	assert.Equal(t, "a-42", p.ClientRef)
}

func TestDecodeSaleKeepsExplicitClientRef(t *testing.T) {
	a := ActionIntent{
		ID:      "a-42",
		Type:    ActionSale,
		Payload: []byte(`{"client_ref":"sale-7","items":[],"payment_method":"cash"}`),
	}
	p, err := a.DecodeSale()
	require.NoError(t, err)
	assert.Equal(t, "sale-7", p.ClientRef)
}

func TestDecodeStockUpdateValidation(t *testing.T) {
	cases := []struct {
		name    string
		payload string
	}{
		{"malformed json", `{`},
		{"missing product", `{"stock":5}`},
		{"negative stock", `{"product_id":"p-1","stock":-3}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := ActionIntent{ID: "a-1", Type: ActionStockUpdate, Payload: []byte(tc.payload)}
			_, err := a.DecodeStockUpdate()
			assert.ErrorIs(t, err, errs.ErrValidation)
		})
	}
}

func TestDecodeProductUpdateRequiresProductID(t *testing.T) {
	a := ActionIntent{ID: "a-1", Type: ActionProductUpdate, Payload: []byte(`{"updates":{"name":"x"}}`)}
	_, err := a.DecodeProductUpdate()
	assert.ErrorIs(t, err, errs.ErrValidation)
}
