package idmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegisterAndLookup(t *testing.T) {
	m := New[int64]("category")

	m.Register(17, 1)
	m.Register(42, 2)

	id, ok := m.Lookup(17)
	assert.True(t, ok)
	assert.Equal(t, int64(1), id)

	_, ok = m.Lookup(99)
	assert.False(t, ok, "unregistered key should miss")
	assert.Equal(t, 2, m.Len())
}

func TestMultipleKeysOneID(t *testing.T) {
	// Two legacy customer IDs merged into one destination customer.
	m := New[int64]("customer")
	m.Register(5, 100)
	m.Register(8, 100)

	a, _ := m.Lookup(5)
	b, _ := m.Lookup(8)
	assert.Equal(t, a, b)
	assert.Equal(t, 2, m.Len())
}

func TestRegisterOverwrites(t *testing.T) {
	m := New[string]("product")
	m.Register("92504", 1)
	m.Register("92504", 2)

	id, ok := m.Lookup("92504")
	assert.True(t, ok)
	assert.Equal(t, int64(2), id)
}
