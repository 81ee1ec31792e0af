package repository_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"checkout-service/models"
	"checkout-service/repository"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestLocationCache_Miss(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := repository.NewLocationCache(db, time.Minute, zap.NewNop())

	mock.ExpectGet("checkout:delivery-locations").RedisNil()

	locs, ok := cache.Get(context.Background())
	assert.False(t, ok)
	assert.Nil(t, locs)
}

func TestLocationCache_ErrorIsMiss(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := repository.NewLocationCache(db, time.Minute, zap.NewNop())

	mock.ExpectGet("checkout:delivery-locations").SetErr(errors.New("timeout"))

	_, ok := cache.Get(context.Background())
	assert.False(t, ok)
}

func TestLocationCache_SetThenGet(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := repository.NewLocationCache(db, time.Minute, zap.NewNop())

	locs := []models.DeliveryLocation{{ID: "loc-1", Name: "Lagos", ShippingAmount: 1500, IsActive: true}}
	data, _ := json.Marshal(locs)
	mock.ExpectSet("checkout:delivery-locations", data, time.Minute).SetVal("OK")
	mock.ExpectGet("checkout:delivery-locations").SetVal(string(data))

	assert.NoError(t, cache.Set(context.Background(), locs))
	got, ok := cache.Get(context.Background())
	assert.True(t, ok)
	assert.Equal(t, locs, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}
