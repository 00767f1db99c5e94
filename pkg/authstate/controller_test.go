package authstate

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func testController(backend Backend, opts ...Option) *Controller {
	base := []Option{
		WithLogger(quietLogger()),
		WithRetryBackoff(time.Millisecond),
	}
	return New(backend, append(base, opts...)...)
}

func strPtr(s string) *string { return &s }

func TestStart_NoSession(t *testing.T) {
	fake := NewFakeBackend()
	c := testController(fake)

	c.Start(context.Background())

	snap := c.Snapshot()
	assert.Nil(t, snap.User)
	assert.Nil(t, snap.Profile)
	assert.False(t, snap.Loading)
	assert.Equal(t, RedirectToLogin, Decide(snap))
}

func TestStart_SessionFetchTransportError(t *testing.T) {
	fake := NewFakeBackend()
	fake.sessionErr = errors.New("connection refused")
	c := testController(fake)

	c.Start(context.Background())

	// a transport error is treated as no session, terminal, no crash
	snap := c.Snapshot()
	assert.Nil(t, snap.User)
	assert.False(t, snap.Loading)
	assert.Equal(t, RedirectToLogin, Decide(snap))
}

func TestStart_NewUserGetsDefaultProfile(t *testing.T) {
	fake := NewFakeBackend()
	fake.SetSession(&Session{Token: "tok", User: User{ID: "u-new", Email: "new@corp.test"}})
	c := testController(fake)

	c.Start(context.Background())

	snap := c.Snapshot()
	require.NotNil(t, snap.User)
	require.NotNil(t, snap.Profile)
	assert.False(t, snap.Loading)
	assert.Equal(t, "u-new", snap.Profile.ID)
	assert.Equal(t, RoleAdmin, snap.Profile.Role)
	assert.True(t, snap.IsAdmin())
	assert.Equal(t, ShowContent, Decide(snap))
	assert.Equal(t, 1, fake.ProfileCount())
}

func TestStart_DefaultRoleOption(t *testing.T) {
	fake := NewFakeBackend()
	fake.SetSession(&Session{Token: "tok", User: User{ID: "u-new", Email: "new@corp.test"}})
	c := testController(fake, WithDefaultRole(RoleBranchManager))

	c.Start(context.Background())

	snap := c.Snapshot()
	require.NotNil(t, snap.Profile)
	assert.Equal(t, RoleBranchManager, snap.Profile.Role)
}

func TestStart_ExistingBranchManagerProfile(t *testing.T) {
	fake := NewFakeBackend()
	fake.SetSession(&Session{Token: "tok", User: User{ID: "u-1", Email: "mgr@corp.test"}})
	fake.SetProfile(&Profile{ID: "u-1", Role: RoleBranchManager, BranchID: strPtr("NYC01")})
	c := testController(fake)

	c.Start(context.Background())

	snap := c.Snapshot()
	assert.Equal(t, ShowContent, Decide(snap))
	assert.True(t, snap.IsBranchManager())
	assert.False(t, snap.IsAdmin())
	assert.Equal(t, "NYC01", snap.BranchID())
	assert.Zero(t, fake.CreateCalls())
}

func TestStart_BackendErrorIsTerminalNotLogout(t *testing.T) {
	fake := NewFakeBackend()
	fake.SetSession(&Session{Token: "tok", User: User{ID: "u-1", Email: "a@corp.test"}})
	fake.fetchErr = errors.New("backend exploded")
	fake.fetchFailures = -1
	c := testController(fake, WithMaxAttempts(2))

	c.Start(context.Background())

	snap := c.Snapshot()
	assert.False(t, snap.Loading)
	require.NotNil(t, snap.User, "transient read errors must not sign the user out")
	assert.Nil(t, snap.Profile)
	require.Error(t, snap.Err)
	var resErr *ResolutionError
	assert.ErrorAs(t, snap.Err, &resErr)

	// terminal error UI, not a silent login redirect
	assert.Equal(t, ProfileMissing, Decide(snap))
}

func TestHandleAuthEvent_SignedOutClearsState(t *testing.T) {
	fake := NewFakeBackend()
	fake.SetSession(&Session{Token: "tok", User: User{ID: "u-1", Email: "a@corp.test"}})
	c := testController(fake)
	c.Start(context.Background())
	require.Equal(t, ShowContent, Decide(c.Snapshot()))

	c.HandleAuthEvent(context.Background(), EventSignedOut, nil)

	snap := c.Snapshot()
	assert.Nil(t, snap.User)
	assert.Nil(t, snap.Profile)
	assert.False(t, snap.Loading)
}

func TestHandleAuthEvent_RapidSignInsLastWriterWins(t *testing.T) {
	fake := NewFakeBackend()
	fake.SetProfile(&Profile{ID: "u-1", Role: RoleBranchManager, BranchID: strPtr("OLD01")})
	fake.SetProfile(&Profile{ID: "u-2", Role: RoleBranchManager, BranchID: strPtr("NYC01")})

	u1Blocked := make(chan struct{})
	releaseU1 := make(chan struct{})
	fake.beforeFetch = func(userID string) {
		if userID == "u-1" {
			close(u1Blocked)
			<-releaseU1
		}
	}

	c := testController(fake)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.HandleAuthEvent(context.Background(), EventSignedIn,
			&Session{Token: "t1", User: User{ID: "u-1", Email: "one@corp.test"}})
	}()

	// wait until u-1's resolution is in flight, then supersede it
	<-u1Blocked
	c.HandleAuthEvent(context.Background(), EventSignedIn,
		&Session{Token: "t2", User: User{ID: "u-2", Email: "two@corp.test"}})

	// u-1's slow result arrives after the generation advanced; discard it
	close(releaseU1)
	wg.Wait()

	snap := c.Snapshot()
	require.NotNil(t, snap.Profile)
	assert.Equal(t, "u-2", snap.Profile.ID)
	assert.Equal(t, "NYC01", snap.BranchID())
	require.NotNil(t, snap.User)
	assert.Equal(t, "u-2", snap.User.ID)
}

func TestHandleAuthEvent_SignedOutSupersedesInFlightResolution(t *testing.T) {
	fake := NewFakeBackend()
	fake.SetProfile(&Profile{ID: "u-1", Role: RoleAdmin})

	blocked := make(chan struct{})
	release := make(chan struct{})
	fake.beforeFetch = func(string) {
		close(blocked)
		<-release
	}

	c := testController(fake)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.HandleAuthEvent(context.Background(), EventSignedIn,
			&Session{Token: "t1", User: User{ID: "u-1", Email: "a@corp.test"}})
	}()

	<-blocked
	c.HandleAuthEvent(context.Background(), EventSignedOut, nil)
	close(release)
	wg.Wait()

	snap := c.Snapshot()
	assert.Nil(t, snap.User)
	assert.Nil(t, snap.Profile)
	assert.False(t, snap.Loading)
}

func TestSettleTimeout_ForcesLoadingFalse(t *testing.T) {
	fake := NewFakeBackend()
	fake.SetSession(&Session{Token: "tok", User: User{ID: "u-1", Email: "a@corp.test"}})

	release := make(chan struct{})
	fake.beforeFetch = func(string) { <-release }
	t.Cleanup(func() { close(release) })

	c := testController(fake, WithSettleTimeout(30*time.Millisecond))

	go c.Start(context.Background())

	require.Eventually(t, func() bool {
		return !c.Snapshot().Loading
	}, time.Second, 5*time.Millisecond, "loading must settle within the timeout bound")

	// known values are preserved, success is not fabricated
	snap := c.Snapshot()
	require.NotNil(t, snap.User)
	assert.Nil(t, snap.Profile)
}

func TestForceReload_DiscardsStaleResolution(t *testing.T) {
	fake := NewFakeBackend()
	fake.SetSession(&Session{Token: "tok", User: User{ID: "u-1", Email: "a@corp.test"}})
	fake.SetProfile(&Profile{ID: "u-1", Role: RoleBranchManager, BranchID: strPtr("NYC01")})

	var once sync.Once
	blocked := make(chan struct{})
	release := make(chan struct{})
	fake.beforeFetch = func(string) {
		var first bool
		once.Do(func() { first = true })
		if first {
			close(blocked)
			<-release
		}
	}

	c := testController(fake)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.Start(context.Background())
	}()

	<-blocked
	c.ForceReload(context.Background()) // second fetch is not blocked
	close(release)
	wg.Wait()

	snap := c.Snapshot()
	assert.Equal(t, ShowContent, Decide(snap))
	assert.Equal(t, "NYC01", snap.BranchID())
}

func TestLogout_ClearsStateEvenOnRemoteFailure(t *testing.T) {
	fake := NewFakeBackend()
	fake.SetSession(&Session{Token: "tok", User: User{ID: "u-1", Email: "a@corp.test"}})
	c := testController(fake)
	c.Start(context.Background())
	require.Equal(t, ShowContent, Decide(c.Snapshot()))

	fake.signOutErr = errors.New("network down")

	err := c.Logout(context.Background())
	require.Error(t, err, "caller needs the error to surface a toast")

	snap := c.Snapshot()
	assert.Nil(t, snap.User)
	assert.Nil(t, snap.Profile)
	assert.False(t, snap.Loading)
}

func TestSubscribe_DeliveryMatchesPublishOrder(t *testing.T) {
	fake := NewFakeBackend()
	fake.SetProfile(&Profile{ID: "u-1", Role: RoleBranchManager, BranchID: strPtr("NYC01")})
	c := testController(fake)

	var mu sync.Mutex
	var seen []Snapshot
	unsubscribe := c.Subscribe(func(s Snapshot) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	})
	defer unsubscribe()

	c.HandleAuthEvent(context.Background(), EventSignedIn,
		&Session{Token: "tok", User: User{ID: "u-1", Email: "a@corp.test"}})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) > 0 && !seen[len(seen)-1].Loading && seen[len(seen)-1].Profile != nil
	}, time.Second, 5*time.Millisecond)

	// intermediate loading snapshots must never arrive after the terminal one
	mu.Lock()
	defer mu.Unlock()
	for i, s := range seen {
		if !s.Loading && s.Profile != nil {
			assert.Equal(t, len(seen)-1, i, "terminal snapshot delivered last")
		}
	}
}

func TestSubscribe_ListenersSeeTerminalState(t *testing.T) {
	fake := NewFakeBackend()
	fake.SetSession(&Session{Token: "tok", User: User{ID: "u-1", Email: "a@corp.test"}})
	c := testController(fake)

	var mu sync.Mutex
	var terminal *Snapshot
	unsubscribe := c.Subscribe(func(s Snapshot) {
		if !s.Loading && s.User != nil {
			mu.Lock()
			terminal = &s
			mu.Unlock()
		}
	})
	defer unsubscribe()

	c.Start(context.Background())

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return terminal != nil
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "u-1", terminal.User.ID)
	assert.NotNil(t, terminal.Profile)
}
