package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_GetSet(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, found, err := s.Get(ctx, "cartItems")
	require.NoError(t, err)
	assert.False(t, found)

	value := []byte("[1,1,2]")
	require.NoError(t, s.Set(ctx, "cartItems", value))
	value[1] = '9'

	got, found, err := s.Get(ctx, "cartItems")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "[1,1,2]", string(got))

	got[1] = '7'
	again, _, _ := s.Get(ctx, "cartItems")
	assert.Equal(t, "[1,1,2]", string(again))
}
