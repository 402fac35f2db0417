package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"not found", NotFound("product", 7), KindNotFound},
		{"wrapped not found", fmt.Errorf("load sale: %w", NotFound("sale", 3)), KindNotFound},
		{"validation", Validation("no items in sale"), KindValidation},
		{"duplicate", Duplicate("barcode already exists", errors.New("23505")), KindDuplicate},
		{"insufficient stock", fmt.Errorf("record sale: %w", &InsufficientStockError{ProductName: "Tea", Available: 2, Requested: 5}), KindInsufficientStock},
		{"plain error", errors.New("boom"), KindServerFault},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "product 7 not found", NotFound("product", 7).Error())
	assert.Equal(t, "insufficient stock for Tea: available=2, requested=5",
		(&InsufficientStockError{ProductName: "Tea", Available: 2, Requested: 5}).Error())

	cause := errors.New("connection reset")
	fault := ServerFault("failed to create sale", cause)
	assert.ErrorIs(t, fault, cause)
	assert.Contains(t, fault.Error(), "connection reset")
	assert.True(t, IsNotFound(fmt.Errorf("x: %w", NotFound("customer", 1))))
}
