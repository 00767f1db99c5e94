package authstate

import (
	"log"
	"time"
)

type Option func(*Controller)

// WithSettleTimeout bounds how long a generation may stay loading before the
// controller forces loading=false. Zero disables the backstop.
func WithSettleTimeout(d time.Duration) Option {
	return func(c *Controller) { c.settleTimeout = d }
}

// WithDefaultRole sets the role given to lazily created profiles.
// Deployments that consider the RoleAdmin default too permissive should
// pass RoleBranchManager.
func WithDefaultRole(r Role) Option {
	return func(c *Controller) { c.defaultRole = r }
}

// WithMaxAttempts caps resolution attempts per generation.
func WithMaxAttempts(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithRetryBackoff sets the base delay between resolution attempts; the
// delay doubles per attempt.
func WithRetryBackoff(d time.Duration) Option {
	return func(c *Controller) { c.retryBackoff = d }
}

func WithLogger(l *log.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}
