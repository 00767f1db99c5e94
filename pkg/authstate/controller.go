package authstate

import (
	"context"
	"log"
	"sync"
	"time"
)

// Controller owns the published snapshot. All mutations go through the
// generation check: an in-flight resolution started for generation N must not
// write state once the generation has advanced past N.
type Controller struct {
	backend Backend
	logger  *log.Logger

	settleTimeout time.Duration
	defaultRole   Role
	maxAttempts   int
	retryBackoff  time.Duration

	mu           sync.Mutex
	gen          uint64
	snap         Snapshot
	listeners    map[int]func(Snapshot)
	nextListener int
	pending      []notification
	draining     bool
}

// notification captures a published snapshot together with the listeners
// registered at publish time.
type notification struct {
	snap Snapshot
	fns  []func(Snapshot)
}

func New(backend Backend, opts ...Option) *Controller {
	c := &Controller{
		backend:       backend,
		logger:        log.Default(),
		settleTimeout: 5 * time.Second,
		defaultRole:   RoleAdmin,
		maxAttempts:   3,
		retryBackoff:  100 * time.Millisecond,
		snap:          Snapshot{Loading: true},
		listeners:     make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot returns the currently published state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

// Subscribe registers a listener invoked on every publish. The returned
// function unsubscribes it.
func (c *Controller) Subscribe(fn func(Snapshot)) func() {
	c.mu.Lock()
	id := c.nextListener
	c.nextListener++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// Start bootstraps the controller: ask the backend for an existing session
// and, if one exists, resolve its profile. Safe to call again; each call
// supersedes whatever was in flight.
func (c *Controller) Start(ctx context.Context) {
	gen := c.beginGeneration()
	c.armSettleTimer(gen)

	sess, err := c.backend.GetSession(ctx)
	if err != nil {
		// a transport failure here is indistinguishable from "signed out";
		// report it and settle rather than spin
		c.logger.Printf("authstate: session fetch failed: %v", err)
		c.publishTerminal(gen, nil, nil, nil)
		return
	}
	if sess == nil {
		c.publishTerminal(gen, nil, nil, nil)
		return
	}

	c.publishUser(gen, sess.User)
	c.resolveAndPublish(ctx, gen, sess.User)
}

// HandleAuthEvent feeds an auth state change into the controller.
// SIGNED_OUT takes effect immediately and supersedes in-flight resolutions.
func (c *Controller) HandleAuthEvent(ctx context.Context, event Event, sess *Session) {
	switch event {
	case EventSignedOut:
		c.mu.Lock()
		c.gen++
		c.snap = Snapshot{}
		c.publishLocked()
		c.mu.Unlock()

	case EventSignedIn, EventTokenRefreshed:
		if sess == nil {
			c.logger.Printf("authstate: %s event without a session, ignoring", event)
			return
		}
		gen := c.beginGeneration()
		c.armSettleTimer(gen)
		c.publishUser(gen, sess.User)
		c.resolveAndPublish(ctx, gen, sess.User)

	default:
		c.logger.Printf("authstate: unknown auth event %q", event)
	}
}

// ForceReload re-runs the bootstrap pipeline under a fresh generation. This
// is the manual recovery path for a settled "user present, profile missing"
// state.
func (c *Controller) ForceReload(ctx context.Context) {
	c.Start(ctx)
}

// Logout signs out remotely and clears the published state. The state is
// cleared even when the remote call fails, so a broken session is never
// kept around; the error is returned for the caller to surface.
func (c *Controller) Logout(ctx context.Context) error {
	gen := c.beginGeneration()

	err := c.backend.SignOut(ctx)
	if err != nil {
		c.logger.Printf("authstate: sign-out failed: %v", err)
	}

	c.mu.Lock()
	if gen == c.gen {
		c.snap = Snapshot{}
		c.publishLocked()
	}
	c.mu.Unlock()

	return err
}

// beginGeneration advances the generation and re-enters the loading state.
func (c *Controller) beginGeneration() uint64 {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.snap.Loading = true
	c.snap.Err = nil
	c.publishLocked()
	c.mu.Unlock()
	return gen
}

// armSettleTimer forces loading to false if the generation has not reached a
// terminal state within the timeout. Known values are preserved; success is
// never fabricated. The timer is a backstop against a backend that never
// answers, not a correctness mechanism.
func (c *Controller) armSettleTimer(gen uint64) {
	if c.settleTimeout <= 0 {
		return
	}
	time.AfterFunc(c.settleTimeout, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.gen != gen || !c.snap.Loading {
			return
		}
		c.logger.Printf("authstate: no terminal state within %s, forcing loading=false", c.settleTimeout)
		c.snap.Loading = false
		c.publishLocked()
	})
}

func (c *Controller) resolveAndPublish(ctx context.Context, gen uint64, user User) {
	profile, err := c.resolveProfile(ctx, gen, user.ID)
	if err != nil {
		c.logger.Printf("authstate: %v", err)
		c.publishTerminal(gen, &user, nil, err)
		return
	}
	c.publishTerminal(gen, &user, profile, nil)
}

// publishUser sets the user while resolution is still pending.
func (c *Controller) publishUser(gen uint64, user User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return
	}
	u := user
	c.snap.User = &u
	c.publishLocked()
}

// publishTerminal writes the terminal tuple for gen, unless gen is stale.
func (c *Controller) publishTerminal(gen uint64, user *User, profile *Profile, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return
	}
	c.snap = Snapshot{User: user, Profile: profile, Loading: false, Err: err}
	c.publishLocked()
}

// publishLocked queues the current snapshot for delivery. Callers hold c.mu.
// A single drainer goroutine delivers notifications in publish order, off the
// lock, so listeners observe snapshots in the order they were published and
// may call back into the controller without deadlocking. A slow listener
// delays later deliveries, never a publish.
func (c *Controller) publishLocked() {
	if len(c.listeners) == 0 {
		return
	}
	fns := make([]func(Snapshot), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.pending = append(c.pending, notification{snap: c.snap, fns: fns})
	if !c.draining {
		c.draining = true
		go c.drainNotifications()
	}
}

func (c *Controller) drainNotifications() {
	for {
		c.mu.Lock()
		if len(c.pending) == 0 {
			c.draining = false
			c.mu.Unlock()
			return
		}
		next := c.pending[0]
		c.pending = c.pending[1:]
		c.mu.Unlock()

		for _, fn := range next.fns {
			fn(next.snap)
		}
	}
}

// stillCurrent reports whether gen is the active generation.
func (c *Controller) stillCurrent(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen == gen
}
