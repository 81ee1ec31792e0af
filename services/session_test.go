package services_test

import (
	"context"
	"testing"
	"time"

	"checkout-service/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckoutState_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to services.CheckoutState
		ok       bool
	}{
		{services.StateIdle, services.StateValidating, true},
		{services.StateIdle, services.StateSubmitting, false},
		{services.StateValidating, services.StateSubmitting, true},
		{services.StateValidating, services.StateFailed, true},
		{services.StateValidating, services.StateSuccess, false},
		{services.StateSubmitting, services.StateSuccess, true},
		{services.StateSubmitting, services.StateFailed, true},
		{services.StateFailed, services.StateIdle, true},
		{services.StateFailed, services.StateSubmitting, false},
		{services.StateSuccess, services.StateIdle, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.ok, tt.from.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestSessionStore_OwnerScoped(t *testing.T) {
	st := services.NewSessionStore(time.Hour)
	sess := st.Create(guest.OwnerKey(), locations)

	got, err := st.Get(sess.ID, guest.OwnerKey())
	require.NoError(t, err)
	assert.Same(t, sess, got)

	_, err = st.Get(sess.ID, shopper.OwnerKey())
	assert.ErrorIs(t, err, services.ErrSessionNotFound)
	_, err = st.Get("missing", guest.OwnerKey())
	assert.ErrorIs(t, err, services.ErrSessionNotFound)
}

func TestSessionStore_Sweep(t *testing.T) {
	st := services.NewSessionStore(time.Minute)
	st.Create(guest.OwnerKey(), nil)
	st.Create(shopper.OwnerKey(), nil)
	assert.Equal(t, 2, st.Len())

	assert.Equal(t, 0, st.Sweep(time.Now()))
	assert.Equal(t, 2, st.Sweep(time.Now().Add(2*time.Minute)))
	assert.Equal(t, 0, st.Len())
}

func TestSessionStore_Janitor(t *testing.T) {
	st := services.NewSessionStore(time.Nanosecond)
	st.Create(guest.OwnerKey(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	st.StartJanitor(ctx, time.Millisecond)

	assert.Eventually(t, func() bool { return st.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestNewCheckoutSession_StartsIdle(t *testing.T) {
	sess := services.NewCheckoutSession(guest.OwnerKey(), locations)
	snap := sess.Snapshot()

	assert.Equal(t, services.StateIdle, snap.State)
	assert.NotEmpty(t, snap.ID)
	assert.Nil(t, snap.Payment)
	assert.Empty(t, snap.FieldErrors)
	assert.Nil(t, snap.Order)
}
