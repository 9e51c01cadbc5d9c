package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestNewPingsServer(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := New(context.Background(), Options{Addr: mr.Addr()})
	require.NoError(t, err)
	defer client.Close()
	require.NoError(t, Checker(client)(context.Background()))

	mr.Close()
	require.Error(t, Checker(client)(context.Background()))
}

func TestNewFailsFast(t *testing.T) {
	_, err := New(context.Background(), Options{})
	require.Error(t, err)

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	_, err = New(context.Background(), Options{Addr: addr})
	require.ErrorContains(t, err, "platform/cache: ping")
}
