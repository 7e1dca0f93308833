package gateway

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-auth-client/apierror"
	"github.com/jrsteele09/go-auth-client/session"
)

// blockingRenew is a renewFunc that blocks until released, so tests can
// hold the critical section open.
type blockingRenew struct {
	started  chan struct{}
	release  chan struct{}
	result   string
	err      error
	renewals int
	mu       sync.Mutex
}

func newBlockingRenew(result string, err error) *blockingRenew {
	return &blockingRenew{
		started: make(chan struct{}),
		release: make(chan struct{}),
		result:  result,
		err:     err,
	}
}

func (b *blockingRenew) renew(ctx context.Context) (string, error) {
	b.mu.Lock()
	b.renewals++
	if b.renewals == 1 {
		close(b.started)
	}
	b.mu.Unlock()

	<-b.release
	return b.result, b.err
}

func (b *blockingRenew) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.renewals
}

func TestCoordinatorSingleFlight(t *testing.T) {
	store := session.NewStore()
	renew := newBlockingRenew("T2", nil)
	c := newCoordinator(store, renew.renew)

	var wg sync.WaitGroup
	errs := make([]error, 5)
	wg.Add(1)
	go func() {
		defer wg.Done()
		errs[0] = c.Refresh(context.Background())
	}()
	<-renew.started
	require.True(t, c.InFlight())

	for i := 1; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = c.Refresh(context.Background())
		}()
	}

	// All late arrivals must be queued, not renewing.
	require.Eventually(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return len(c.waiters) == 4
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, 1, renew.count())

	close(renew.release)
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "caller %d", i)
	}
	require.Equal(t, 1, renew.count(), "exactly one renewal for all callers")
	require.False(t, c.InFlight(), "lock released after completion")
	require.Equal(t, "T2", store.AccessToken())
}

func TestCoordinatorQueueIsFIFO(t *testing.T) {
	store := session.NewStore()
	renew := newBlockingRenew("T2", nil)
	c := newCoordinator(store, renew.renew)

	go func() { _ = c.Refresh(context.Background()) }()
	<-renew.started

	// Enqueue three waiters one at a time; the queue must preserve arrival
	// order so they are released in suspension order.
	var chans []chan error
	for i := 0; i < 3; i++ {
		c.mu.Lock()
		ch := make(chan error, 1)
		c.waiters = append(c.waiters, ch)
		chans = append(chans, ch)
		require.Equal(t, i+1, len(c.waiters))
		c.mu.Unlock()
	}

	c.mu.Lock()
	for i, ch := range chans {
		require.Equal(t, ch, c.waiters[i], "waiter %d out of order", i)
	}
	c.mu.Unlock()

	close(renew.release)

	// Every suspended caller settles with the shared outcome.
	for i, ch := range chans {
		select {
		case err := <-ch:
			require.NoError(t, err, "waiter %d", i)
		case <-time.After(time.Second):
			t.Fatalf("waiter %d never settled", i)
		}
	}
}

func TestCoordinatorFailureRejectsAllWaitersAndClearsAuth(t *testing.T) {
	store := session.NewStore()
	store.SetAuthenticatedUser(&session.Principal{ID: "user-1"}, "stale")

	renewErr := apierror.New(apierror.KindRefreshExhausted, 401, "refresh token expired")
	renew := newBlockingRenew("", renewErr)

	var expired bool
	c := newCoordinator(store, renew.renew)
	c.onSessionExpired = func() { expired = true }

	var wg sync.WaitGroup
	errs := make([]error, 3)
	wg.Add(1)
	go func() {
		defer wg.Done()
		errs[0] = c.Refresh(context.Background())
	}()
	<-renew.started
	for i := 1; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = c.Refresh(context.Background())
		}()
	}
	require.Eventually(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return len(c.waiters) == 2
	}, time.Second, 5*time.Millisecond)

	close(renew.release)
	wg.Wait()

	for i, err := range errs {
		require.ErrorIs(t, err, renewErr, "caller %d must see the renewal's error", i)
	}
	require.False(t, store.IsAuthenticated())
	require.Empty(t, store.AccessToken())
	require.True(t, expired, "session expired signal must fire")
	require.False(t, c.InFlight(), "lock released on the failure path too")
}

func TestCoordinatorWaiterHonoursContext(t *testing.T) {
	store := session.NewStore()
	renew := newBlockingRenew("T2", nil)
	c := newCoordinator(store, renew.renew)

	go func() { _ = c.Refresh(context.Background()) }()
	<-renew.started

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Refresh(ctx) }()

	require.Eventually(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return len(c.waiters) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.True(t, apierror.IsKind(err, apierror.KindTransport))
	case <-time.After(time.Second):
		t.Fatal("cancelled waiter never returned")
	}

	// The shared renewal still settles the abandoned continuation.
	close(renew.release)
	require.Eventually(t, func() bool { return !c.InFlight() }, time.Second, 5*time.Millisecond)
	require.Equal(t, "T2", store.AccessToken())
}

func TestCoordinatorReleasesLockOnPanic(t *testing.T) {
	store := session.NewStore()
	c := newCoordinator(store, func(ctx context.Context) (string, error) {
		panic("renewal blew up")
	})

	require.Panics(t, func() { _ = c.Refresh(context.Background()) })
	require.False(t, c.InFlight(), "lock must be released even on panic")

	// A subsequent renewal can proceed.
	c.renew = func(ctx context.Context) (string, error) { return "T3", nil }
	require.NoError(t, c.Refresh(context.Background()))
	require.Equal(t, "T3", store.AccessToken())
}
