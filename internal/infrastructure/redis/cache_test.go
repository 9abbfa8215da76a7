package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisCache_GetHit(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewRedisCache(db, "")

	mock.ExpectGet("product_1").SetVal(`{"id":"1"}`)

	val, ok, err := c.Get(context.Background(), "product_1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"id":"1"}`, string(val))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCache_GetMissIsNotAnError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewRedisCache(db, "")

	mock.ExpectGet("all_products").RedisNil()

	val, ok, err := c.Get(context.Background(), "all_products")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, val)
}

func TestRedisCache_GetErrorSurfaces(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewRedisCache(db, "")

	mock.ExpectGet("all_products").SetErr(errors.New("connection refused"))

	_, ok, err := c.Get(context.Background(), "all_products")
	require.Error(t, err)
	assert.False(t, ok)
}

func TestRedisCache_SetUsesPrefixAndTTL(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewRedisCache(db, "catalog")

	mock.ExpectSet("catalog:product_1", []byte("v"), time.Minute).SetVal("OK")

	require.NoError(t, c.Set(context.Background(), "product_1", []byte("v"), time.Minute))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCache_SetRejectsNonPositiveTTL(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewRedisCache(db, "")

	require.Error(t, c.Set(context.Background(), "product_1", []byte("v"), 0))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCache_Delete(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewRedisCache(db, "")

	mock.ExpectDel("product_1").SetVal(0)

	require.NoError(t, c.Delete(context.Background(), "product_1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
