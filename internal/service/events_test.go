package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/session_guard/internal/models"
)

func countAlerts(t *testing.T, env *testEnv, category string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, env.DB.Model(&models.SecurityAlert{}).Where("category = ?", category).Count(&n).Error)
	return n
}

func countEvents(t *testing.T, env *testEnv) int64 {
	t.Helper()
	var n int64
	require.NoError(t, env.DB.Model(&models.LoginEvent{}).Count(&n).Error)
	return n
}

func TestEventQueue_CloseDrainsJobsThatEnqueueMore(t *testing.T) {
	env := newTestEnv(t)
	events := env.Events
	events.Start()

	// buffered jobs submit follow-up work while draining, the way audit rows
	// mirror themselves to external sinks; shutdown must survive that
	var followups atomic.Int32
	for i := 0; i < 50; i++ {
		events.enqueue(func(context.Context) {
			events.enqueue(func(context.Context) {
				followups.Add(1)
			})
		})
	}

	events.Close()

	// submissions after shutdown are dropped, never sent on a dead channel
	events.ObserveAsync(ObserveInput{
		PrincipalID: uuid.New(),
		Origin:      "203.0.113.10",
		Descriptor:  "late-client",
		Kind:        EventLogin,
	})
	assert.EqualValues(t, 0, countEvents(t, env))

	// Close is idempotent
	events.Close()
}

func TestEventQueue_StartRacesSubmitters(t *testing.T) {
	env := newTestEnv(t)
	events := env.Events

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		events.Start()
	}()
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			events.ObserveAsync(ObserveInput{
				PrincipalID: uuid.New(),
				Origin:      "203.0.113.10",
				Descriptor:  "racing-client",
				Kind:        EventLogin,
			})
		}()
	}
	wg.Wait()
	events.Close()
}

func TestObserve_NewDevice_RaisesSingleAlert(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	principal := uuid.New()

	res, err := env.Events.Observe(ctx, ObserveInput{
		PrincipalID: principal,
		Origin:      "203.0.113.10",
		Descriptor:  "Mozilla/5.0 (Windows NT 10.0) Chrome/126.0",
		Kind:        EventLogin,
	})
	require.NoError(t, err)
	assert.True(t, res.IsNewDevice)
	assert.Equal(t, "new_device", res.EventType)

	// new-device wins: exactly one alert, never a location alert on top
	assert.EqualValues(t, 1, countAlerts(t, env, AlertNewDevice))
	assert.EqualValues(t, 0, countAlerts(t, env, AlertNewLocation))
	assert.EqualValues(t, 1, countEvents(t, env))
}

func TestObserve_KnownDeviceNewOrigin_RaisesLocationAlert(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	principal := uuid.New()
	descriptor := "Mozilla/5.0 (Macintosh) Safari/605.1"

	_, err := env.Events.Observe(ctx, ObserveInput{
		PrincipalID: principal,
		Origin:      "203.0.113.10",
		Descriptor:  descriptor,
		Kind:        EventLogin,
	})
	require.NoError(t, err)

	res, err := env.Events.Observe(ctx, ObserveInput{
		PrincipalID: principal,
		Origin:      "198.51.100.7",
		Descriptor:  descriptor,
		Kind:        EventLogin,
	})
	require.NoError(t, err)
	assert.False(t, res.IsNewDevice)
	assert.True(t, res.IsNewOrigin)
	assert.Equal(t, "new_location", res.EventType)

	assert.EqualValues(t, 1, countAlerts(t, env, AlertNewDevice))
	assert.EqualValues(t, 1, countAlerts(t, env, AlertNewLocation))
}

func TestObserve_TrustedDevice_TouchesEntryAndSkipsRefreshAudit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	principal := uuid.New()
	descriptor := "Mozilla/5.0 (X11; Linux x86_64) Firefox/127.0"

	fp, err := env.Trust.TrustDevice(ctx, principal, descriptor, "203.0.113.10")
	require.NoError(t, err)

	// a routine refresh on a trusted device leaves no audit row and no alert
	res, err := env.Events.Observe(ctx, ObserveInput{
		PrincipalID: principal,
		Origin:      "203.0.113.10",
		Descriptor:  descriptor,
		Kind:        EventTokenRefresh,
	})
	require.NoError(t, err)
	assert.False(t, res.IsNewDevice)
	assert.EqualValues(t, 0, countEvents(t, env))
	assert.EqualValues(t, 0, countAlerts(t, env, AlertNewDevice))

	// an explicit login on the same trusted device is logged
	_, err = env.Events.Observe(ctx, ObserveInput{
		PrincipalID: principal,
		Origin:      "198.51.100.7",
		Descriptor:  descriptor,
		Kind:        EventLogin,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, countEvents(t, env))

	entries, err := env.Trust.List(ctx, principal)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, fp, entries[0].Fingerprint)
	assert.Equal(t, "198.51.100.7", entries[0].LastOrigin)
}

func TestObserve_SeenUntrustedDevice_NoAlertNoPromotion(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	principal := uuid.New()
	descriptor := "Mozilla/5.0 (Windows NT 10.0) Edg/126.0"

	first, err := env.Events.Observe(ctx, ObserveInput{
		PrincipalID: principal,
		Origin:      "203.0.113.10",
		Descriptor:  descriptor,
		Kind:        EventLogin,
	})
	require.NoError(t, err)
	require.True(t, first.IsNewDevice)

	second, err := env.Events.Observe(ctx, ObserveInput{
		PrincipalID: principal,
		Origin:      "203.0.113.10",
		Descriptor:  descriptor,
		Kind:        EventLogin,
	})
	require.NoError(t, err)
	assert.False(t, second.IsNewDevice)
	assert.False(t, second.IsNewOrigin)
	assert.Equal(t, EventLogin, second.EventType)

	// repeated sightings never silently promote to trusted
	trusted, err := env.Trust.IsTrusted(ctx, principal, env.Hasher.Fingerprint(descriptor))
	require.NoError(t, err)
	assert.False(t, trusted)

	assert.EqualValues(t, 1, countAlerts(t, env, AlertNewDevice))
	assert.EqualValues(t, 0, countAlerts(t, env, AlertNewLocation))
}
