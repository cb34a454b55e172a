// Package identity tracks whether a gateway session holds a valid account
// login. The provider is an injected capability, never an ambient global,
// so tests substitute fakes and deployments swap implementations.
package identity

import "context"

// SessionEvent is a session-change notification from the provider. Events
// carry the subject they concern; a gate applies only events for its bound
// subject.
type SessionEvent struct {
	Subject     string
	UserPresent bool
}

// SignInRequest carries the credentials for an interactive sign-in.
type SignInRequest struct {
	Subject  string
	Password string
}

// Provider is the injected identity capability.
type Provider interface {
	// Subscribe registers a session-change listener and returns its
	// release function. Listeners must be released on session teardown.
	Subscribe(fn func(SessionEvent)) (unsubscribe func(), err error)

	// InteractiveSignIn performs the provider's own sign-in flow. It
	// never retries; a failure is surfaced to the user as-is.
	InteractiveSignIn(ctx context.Context, req SignInRequest) error

	Health(ctx context.Context) error
}
