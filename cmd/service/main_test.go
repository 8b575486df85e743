package main

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectRedis(t *testing.T) {
	ctx := context.Background()

	rdb, err := connectRedis(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, rdb)

	mr := miniredis.RunT(t)
	rdb, err = connectRedis(ctx, "redis://"+mr.Addr())
	require.NoError(t, err)
	require.NotNil(t, rdb)
	t.Cleanup(func() { _ = rdb.Close() })

	_, err = connectRedis(ctx, "not a url")
	assert.Error(t, err)

	mr.Close()
	_, err = connectRedis(ctx, "redis://"+mr.Addr())
	assert.Error(t, err)
}
