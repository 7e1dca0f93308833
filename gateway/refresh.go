package gateway

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-auth-client/apierror"
	"github.com/jrsteele09/go-auth-client/session"
)

// renewFunc exchanges the long-lived external credential for a fresh access
// token.
type renewFunc func(ctx context.Context) (string, error)

// Coordinator serializes token renewal: at most one renewal call is
// outstanding process-wide. Callers arriving while a renewal is in flight
// are suspended on a FIFO queue and settled, in enqueue order, with the
// shared renewal's outcome.
type Coordinator struct {
	mu       sync.Mutex
	inFlight bool
	waiters  []chan error

	renew            renewFunc
	store            *session.Store
	onSessionExpired func()
}

func newCoordinator(store *session.Store, renew renewFunc) *Coordinator {
	return &Coordinator{
		store: store,
		renew: renew,
	}
}

// Refresh obtains a fresh access token and installs it in the session
// store. If a renewal is already in flight the caller joins the queue
// instead of starting a second one; the single renewal's result is shared
// by all suspended callers.
func (c *Coordinator) Refresh(ctx context.Context) error {
	c.mu.Lock()
	if c.inFlight {
		waiter := make(chan error, 1)
		c.waiters = append(c.waiters, waiter)
		c.mu.Unlock()

		log.Debug().Msg("renewal already in flight, suspending caller")
		select {
		case err := <-waiter:
			return err
		case <-ctx.Done():
			// The shared renewal still settles the waiter later; this
			// caller just stops listening.
			return apierror.Wrap(ctx.Err(), apierror.KindTransport, 0,
				"cancelled while waiting for token renewal")
		}
	}
	c.inFlight = true
	c.mu.Unlock()

	// If renewOnce never returns (panic), waiters still settle with this
	// failure rather than a spurious success.
	var err error = apierror.New(apierror.KindTransport, 0, "token renewal aborted")
	defer func() {
		// The lock is released and the queue drained on every path out of
		// the critical section, including panics.
		c.release(err)
	}()

	err = c.renewOnce(ctx)
	return err
}

// InFlight reports whether a renewal is currently outstanding.
func (c *Coordinator) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

func (c *Coordinator) renewOnce(ctx context.Context) error {
	log.Debug().Msg("renewing access token")

	token, err := c.renew(ctx)
	if err != nil {
		// A failed renewal always means the session has ended; it is never
		// retried automatically.
		log.Debug().Err(err).Msg("token renewal failed, ending session")
		c.sessionEnded()
		return err
	}

	c.store.SetAccessToken(token)
	log.Debug().Msg("token renewal succeeded")
	return nil
}

// sessionEnded clears local auth state and fires the expiry hook. Reached
// when renewal fails, or when a freshly renewed token is still rejected.
func (c *Coordinator) sessionEnded() {
	c.store.ClearAuth()
	if c.onSessionExpired != nil {
		c.onSessionExpired()
	}
}

// release settles every suspended caller in FIFO order with the renewal's
// outcome, then frees the single-flight lock.
func (c *Coordinator) release(err error) {
	c.mu.Lock()
	waiters := c.waiters
	c.waiters = nil
	c.inFlight = false
	c.mu.Unlock()

	for _, waiter := range waiters {
		waiter <- err
	}
}
