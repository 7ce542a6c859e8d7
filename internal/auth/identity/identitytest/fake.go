// Package identitytest provides an in-memory identity provider.
package identitytest

import (
	"context"
	"sync"
	"time"

	"github.com/creatorhub/platform-api/internal/auth/identity"
)

// FakeProvider maps sign-in codes and session values to identities.
type FakeProvider struct {
	mu       sync.Mutex
	codes    map[string]identity.Identity
	sessions map[string]identity.Identity

	// ExchangeErr, when set, fails every exchange.
	ExchangeErr error
	Revoked     []string
	Exchanges   int
}

func NewFakeProvider() *FakeProvider {
	return &FakeProvider{
		codes:    make(map[string]identity.Identity),
		sessions: make(map[string]identity.Identity),
	}
}

// AddCode registers a sign-in code. Exchanging it yields the session "session-"+code.
func (f *FakeProvider) AddCode(code string, id identity.Identity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codes[code] = id
}

// AddSession registers a valid session value.
func (f *FakeProvider) AddSession(value string, id identity.Identity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[value] = id
}

func (f *FakeProvider) ExchangeCodeForSession(_ context.Context, code string) (*identity.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Exchanges++
	if f.ExchangeErr != nil {
		return nil, f.ExchangeErr
	}
	id, ok := f.codes[code]
	if !ok {
		return nil, identity.ErrInvalidCode
	}
	cookie := "session-" + code
	f.sessions[cookie] = id
	return &identity.Session{Identity: id, Cookie: cookie, ExpiresIn: time.Hour}, nil
}

func (f *FakeProvider) VerifySession(_ context.Context, value string) (*identity.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.sessions[value]
	if !ok {
		return nil, identity.ErrInvalidSession
	}
	return &id, nil
}

func (f *FakeProvider) RevokeSessions(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Revoked = append(f.Revoked, userID)
	for k, id := range f.sessions {
		if id.UserID == userID {
			delete(f.sessions, k)
		}
	}
	return nil
}
