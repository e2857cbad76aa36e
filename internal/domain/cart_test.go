package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// ============================================================================
// Identity Tests
// ============================================================================

func TestIdentity_IsAnonymous(t *testing.T) {
	assert.True(t, Identity{}.IsAnonymous())
	assert.False(t, Identity{UserID: "user-1"}.IsAnonymous())
}

// ============================================================================
// Cart.Subtotal Tests
// ============================================================================

func TestSubtotal_SingleLine(t *testing.T) {
	c := &Cart{
		Lines: []CartLine{
			{UnitPrice: 1999, Quantity: 2},
		},
	}
	assert.Equal(t, int64(3998), c.Subtotal())
}

func TestSubtotal_MultipleLines(t *testing.T) {
	c := &Cart{
		Lines: []CartLine{
			{UnitPrice: 1000, Quantity: 2},
			{UnitPrice: 500, Quantity: 3},
			{UnitPrice: 2500, Quantity: 1},
		},
	}
	// 2000 + 1500 + 2500 = 6000
	assert.Equal(t, int64(6000), c.Subtotal())
}

func TestSubtotal_EmptyCart(t *testing.T) {
	c := &Cart{Lines: []CartLine{}}
	assert.Equal(t, int64(0), c.Subtotal())
}

func TestSubtotal_NilLines(t *testing.T) {
	c := &Cart{}
	assert.Equal(t, int64(0), c.Subtotal())
}

// ============================================================================
// Cart.ItemCount Tests
// ============================================================================

func TestItemCount_MultipleLines(t *testing.T) {
	c := &Cart{
		Lines: []CartLine{
			{Quantity: 2},
			{Quantity: 3},
			{Quantity: 1},
		},
	}
	assert.Equal(t, 6, c.ItemCount())
}

func TestItemCount_EmptyCart(t *testing.T) {
	c := &Cart{Lines: []CartLine{}}
	assert.Equal(t, 0, c.ItemCount())
}

// ============================================================================
// Cart.FindLineByVariant / FindLine Tests
// ============================================================================

func TestFindLineByVariant_Found(t *testing.T) {
	c := &Cart{
		Lines: []CartLine{
			{ID: "line-1", VariantID: "var-1"},
			{ID: "line-2", VariantID: "var-2"},
		},
	}
	assert.Equal(t, 1, c.FindLineByVariant("var-2"))
}

func TestFindLineByVariant_NotFound(t *testing.T) {
	c := &Cart{
		Lines: []CartLine{{ID: "line-1", VariantID: "var-1"}},
	}
	assert.Equal(t, -1, c.FindLineByVariant("var-9"))
}

func TestFindLine_Found(t *testing.T) {
	c := &Cart{
		Lines: []CartLine{
			{ID: "line-1", VariantID: "var-1"},
			{ID: "line-2", VariantID: "var-2"},
		},
	}
	assert.Equal(t, 0, c.FindLine("line-1"))
}

func TestFindLine_NotFound(t *testing.T) {
	c := &Cart{}
	assert.Equal(t, -1, c.FindLine("line-1"))
}

// ============================================================================
// CartLine.LineTotal Tests
// ============================================================================

func TestCartLineTotal(t *testing.T) {
	l := &CartLine{UnitPrice: 14990, Quantity: 3}
	assert.Equal(t, int64(44970), l.LineTotal())
}
