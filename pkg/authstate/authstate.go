// Package authstate reconciles the authenticated session with the
// application-level profile and publishes a single state tuple
// (user, profile, loading) for route guards to consume.
//
// The controller is an explicit instance with an injected Backend, not a
// process-wide singleton, so it can be driven with a fake backend in tests.
// Every reconciliation attempt runs under a generation number; a result that
// arrives after the generation has advanced is discarded, which is what keeps
// a slow profile fetch from a previous sign-in from clobbering fresher state.
package authstate

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type Role string

const (
	RoleAdmin         Role = "admin"
	RoleBranchManager Role = "branch_manager"
)

// User is the external identity record. The controller never mutates it.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Profile maps a user to a role and an optional branch code.
type Profile struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	BranchID  *string   `json:"branch_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is proof of authentication issued by the backend.
type Session struct {
	Token string
	User  User
}

// SignUpResult carries a nil Session while email verification is pending.
type SignUpResult struct {
	User    User
	Session *Session
}

// Event mirrors the backend's auth state change stream.
type Event string

const (
	EventSignedIn       Event = "SIGNED_IN"
	EventSignedOut      Event = "SIGNED_OUT"
	EventTokenRefreshed Event = "TOKEN_REFRESHED"
)

// Sentinel errors a Backend must return so the resolver can discriminate
// "absent" and "lost the creation race" from genuine failures. Absence is
// never inferred from an empty result.
var (
	ErrProfileNotFound    = errors.New("profile not found")
	ErrProfileExists      = errors.New("profile already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
)

// Backend is the remote capability surface the controller depends on.
type Backend interface {
	// GetSession returns (nil, nil) when no session exists.
	GetSession(ctx context.Context) (*Session, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignUp(ctx context.Context, email, password string) (*SignUpResult, error)
	SignOut(ctx context.Context) error
	// FetchProfile returns ErrProfileNotFound when no row exists.
	FetchProfile(ctx context.Context, userID string) (*Profile, error)
	// CreateProfile returns ErrProfileExists when a row was concurrently created.
	CreateProfile(ctx context.Context, p *Profile) error
}

// Snapshot is the published state tuple. Loading == false means the tuple is
// terminal for the current generation: either both User and Profile are set,
// or User is nil, or resolution failed and Err is set.
type Snapshot struct {
	User    *User
	Profile *Profile
	Loading bool
	Err     error
}

func (s Snapshot) IsAdmin() bool {
	return s.Profile != nil && s.Profile.Role == RoleAdmin
}

func (s Snapshot) IsBranchManager() bool {
	return s.Profile != nil && s.Profile.Role == RoleBranchManager
}

// BranchID returns the resolved branch code or "" when unassigned.
func (s Snapshot) BranchID() string {
	if s.Profile == nil || s.Profile.BranchID == nil {
		return ""
	}
	return *s.Profile.BranchID
}

// ResolutionError is the terminal failure of a profile resolution after all
// attempts were exhausted.
type ResolutionError struct {
	UserID string
	Err    error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("profile resolution failed for user %s: %v", e.UserID, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}
