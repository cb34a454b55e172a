// Package devidp is an in-process identity provider for development and
// tests: a fixed set of accounts with bcrypt-verified passwords and a
// subscriber fan-out for session-change events.
package devidp

import (
	"context"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"blockship/internal/identity"
	dErrors "blockship/pkg/domain-errors"
	"blockship/pkg/email"
)

type account struct {
	passwordHash []byte
	displayName  string
}

// Provider implements identity.Provider against an in-memory account set.
type Provider struct {
	mu          sync.Mutex
	accounts    map[string]account
	subscribers map[int]func(identity.SessionEvent)
	nextSubID   int
}

// New seeds the provider. Keys are subjects (email addresses), values are
// plaintext passwords hashed at seed time.
func New(accounts map[string]string) (*Provider, error) {
	p := &Provider{
		accounts:    make(map[string]account, len(accounts)),
		subscribers: make(map[int]func(identity.SessionEvent)),
	}
	for subject, password := range accounts {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		first, last := email.DeriveNameFromEmail(subject)
		p.accounts[subject] = account{
			passwordHash: hash,
			displayName:  first + " " + last,
		}
	}
	return p, nil
}

// Subscribe registers a session-change listener.
func (p *Provider) Subscribe(fn func(identity.SessionEvent)) (func(), error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	subID := p.nextSubID
	p.nextSubID++
	p.subscribers[subID] = fn

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.subscribers, subID)
	}, nil
}

// InteractiveSignIn verifies the credentials and fans a user-present event
// out to every subscriber. Unknown subjects and wrong passwords fail with
// the same message so the response does not enumerate accounts.
func (p *Provider) InteractiveSignIn(_ context.Context, req identity.SignInRequest) error {
	p.mu.Lock()
	acct, ok := p.accounts[req.Subject]
	p.mu.Unlock()

	if !ok {
		return dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword(acct.passwordHash, []byte(req.Password)); err != nil {
		return dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}

	p.emit(identity.SessionEvent{Subject: req.Subject, UserPresent: true})
	return nil
}

// DisplayName returns the derived display name for a subject.
func (p *Provider) DisplayName(subject string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if acct, ok := p.accounts[subject]; ok {
		return acct.displayName
	}
	return ""
}

func (p *Provider) Health(context.Context) error {
	return nil
}

func (p *Provider) emit(event identity.SessionEvent) {
	p.mu.Lock()
	listeners := make([]func(identity.SessionEvent), 0, len(p.subscribers))
	for _, fn := range p.subscribers {
		listeners = append(listeners, fn)
	}
	p.mu.Unlock()

	// Fan out without holding the lock; listeners may call back in.
	for _, fn := range listeners {
		fn(event)
	}
}
