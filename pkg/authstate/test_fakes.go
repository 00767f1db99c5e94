package authstate

import (
	"context"
	"sync"
)

// FakeBackend is a test-only in-memory Backend with error injection and
// hooks for orchestrating races.
type FakeBackend struct {
	mu       sync.Mutex
	session  *Session
	profiles map[string]*Profile

	sessionErr error
	signInErr  error
	signOutErr error
	createErr  error

	// fetchErr fires on the first fetchFailures fetches, or on every fetch
	// when fetchFailures < 0.
	fetchErr      error
	fetchFailures int

	fetchCalls   int
	createCalls  int
	signOutCalls int

	// beforeFetch runs outside the lock before each FetchProfile; tests use
	// it to block a resolution at a known point.
	beforeFetch func(userID string)
	// beforeCreate runs under the lock before the default create behavior;
	// a non-nil return is passed through as CreateProfile's result.
	beforeCreate func(p *Profile) error
}

func NewFakeBackend() *FakeBackend {
	return &FakeBackend{profiles: make(map[string]*Profile)}
}

func (f *FakeBackend) SetSession(s *Session) {
	f.mu.Lock()
	f.session = s
	f.mu.Unlock()
}

func (f *FakeBackend) SetProfile(p *Profile) {
	f.mu.Lock()
	f.profiles[p.ID] = p
	f.mu.Unlock()
}

func (f *FakeBackend) ProfileCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.profiles)
}

func (f *FakeBackend) FetchCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetchCalls
}

func (f *FakeBackend) CreateCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.createCalls
}

func (f *FakeBackend) GetSession(_ context.Context) (*Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sessionErr != nil {
		return nil, f.sessionErr
	}
	return f.session, nil
}

func (f *FakeBackend) SignIn(_ context.Context, email, _ string) (*Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	if f.session == nil {
		return nil, ErrInvalidCredentials
	}
	return f.session, nil
}

func (f *FakeBackend) SignUp(_ context.Context, email, _ string) (*SignUpResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.session != nil {
		return &SignUpResult{User: f.session.User, Session: f.session}, nil
	}
	return &SignUpResult{User: User{ID: "new", Email: email}}, nil
}

func (f *FakeBackend) SignOut(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signOutCalls++
	if f.signOutErr != nil {
		return f.signOutErr
	}
	f.session = nil
	return nil
}

func (f *FakeBackend) FetchProfile(_ context.Context, userID string) (*Profile, error) {
	f.mu.Lock()
	hook := f.beforeFetch
	f.mu.Unlock()
	if hook != nil {
		hook(userID)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls++

	if f.fetchErr != nil && (f.fetchFailures < 0 || f.fetchCalls <= f.fetchFailures) {
		return nil, f.fetchErr
	}

	p, ok := f.profiles[userID]
	if !ok {
		return nil, ErrProfileNotFound
	}
	copied := *p
	return &copied, nil
}

func (f *FakeBackend) CreateProfile(_ context.Context, p *Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++

	if f.beforeCreate != nil {
		if err := f.beforeCreate(p); err != nil {
			return err
		}
	}
	if f.createErr != nil {
		return f.createErr
	}
	if _, exists := f.profiles[p.ID]; exists {
		return ErrProfileExists
	}
	copied := *p
	f.profiles[p.ID] = &copied
	return nil
}

var _ Backend = (*FakeBackend)(nil)
