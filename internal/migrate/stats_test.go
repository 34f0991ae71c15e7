package migrate

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsSummaryIsSortedAndStable(t *testing.T) {
	s := newStats()
	s.insert("products")
	s.insert("products")
	s.insert("categories")
	s.skip("cart items")
	s.insert("cart items")
	s.skip("cart items")

	assert.Equal(t, "cart items=1 (2 skipped), categories=1, products=2", s.Summary())
	assert.Equal(t, 2, s.Inserted("products"))
	assert.Equal(t, 2, s.Skipped("cart items"))
	assert.Equal(t, 0, s.Inserted("coupons"))
}

func TestStatsSummaryEmpty(t *testing.T) {
	assert.Equal(t, "", newStats().Summary())
}

func TestFatalErrorMessage(t *testing.T) {
	err := fatalf(CodeMissingCustomer, 42, "{...}", "address references unknown customer")
	assert.EqualError(t, err, "MISSING_CUSTOMER: address references unknown customer (legacy id 42)")

	err = fatalf(CodeVariantCollision, 0, "", "two active variants share SKU %s", "92504A")
	assert.EqualError(t, err, "VARIANT_COLLISION: two active variants share SKU 92504A")
}

func TestIsFatalUnwraps(t *testing.T) {
	inner := fatalf(CodeMissingProduct, 7, "", "gone")
	wrapped := fmt.Errorf("stage failed: %w", inner)

	require.True(t, IsFatal(wrapped))
	var fe *FatalError
	require.True(t, errors.As(wrapped, &fe))
	assert.Equal(t, CodeMissingProduct, fe.Code)
	assert.False(t, IsFatal(errors.New("plain")))
}
