package redisx

import (
	"context"
	"errors"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdempotencyLookupMiss(t *testing.T) {
	db, mock := redismock.NewClientMock()
	idem := &Idempotency{Redis: db}

	mock.ExpectGet("idem:order:place:abc").RedisNil()

	id, ok, err := idem.Lookup(context.Background(), "abc")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotencyRememberThenLookup(t *testing.T) {
	db, mock := redismock.NewClientMock()
	idem := &Idempotency{Redis: db}

	mock.ExpectSet("idem:order:place:abc", "order-1", TTLIdempotency).SetVal("OK")
	mock.ExpectGet("idem:order:place:abc").SetVal("order-1")

	require.NoError(t, idem.Remember(context.Background(), "abc", "order-1"))
	id, ok, err := idem.Lookup(context.Background(), "abc")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "order-1", id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotencyLookupError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	idem := &Idempotency{Redis: db}

	mock.ExpectGet("idem:order:place:abc").SetErr(errors.New("connection refused"))

	_, ok, err := idem.Lookup(context.Background(), "abc")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestClaim(t *testing.T) {
	db, mock := redismock.NewClientMock()

	mock.ExpectSetNX("dedup:stockwatch:evt-1", "1", TTLDedup).SetVal(true)
	mock.ExpectSetNX("dedup:stockwatch:evt-1", "1", TTLDedup).SetVal(false)

	first, err := Claim(context.Background(), db, "stockwatch", "evt-1")
	require.NoError(t, err)
	assert.True(t, first)

	second, err := Claim(context.Background(), db, "stockwatch", "evt-1")
	require.NoError(t, err)
	assert.False(t, second)
	assert.NoError(t, mock.ExpectationsWereMet())
}
