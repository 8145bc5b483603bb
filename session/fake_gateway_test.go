package session_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jrsteele09/callscreen-client/credentials"
	"github.com/jrsteele09/callscreen-client/gateway"
)

// fakeGateway is a scriptable session.Gateway. Unset funcs succeed with a
// profile for user "1" without tenant and a renewed token.
type fakeGateway struct {
	lock sync.Mutex

	meFunc      func(ctx context.Context, cred credentials.Credential) (*gateway.Profile, error)
	refreshFunc func(ctx context.Context, cred credentials.Credential) (*gateway.Grant, error)
	logoutErr   error

	meCalls      int
	refreshCalls int
	logoutCalls  int
	renewals     int
}

func (g *fakeGateway) Me(ctx context.Context, cred credentials.Credential) (*gateway.Profile, error) {
	g.lock.Lock()
	g.meCalls++
	fn := g.meFunc
	g.lock.Unlock()

	if fn != nil {
		return fn(ctx, cred)
	}
	return profile(nil, false), nil
}

func (g *fakeGateway) Refresh(ctx context.Context, cred credentials.Credential) (*gateway.Grant, error) {
	g.lock.Lock()
	g.refreshCalls++
	g.renewals++
	n := g.renewals
	fn := g.refreshFunc
	g.lock.Unlock()

	if fn != nil {
		return fn(ctx, cred)
	}
	return &gateway.Grant{
		Token:     fmt.Sprintf("%s-renewed-%d", cred.Token, n),
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil
}

func (g *fakeGateway) Logout(ctx context.Context, cred credentials.Credential) error {
	g.lock.Lock()
	defer g.lock.Unlock()
	g.logoutCalls++
	return g.logoutErr
}

func (g *fakeGateway) setMe(fn func(ctx context.Context, cred credentials.Credential) (*gateway.Profile, error)) {
	g.lock.Lock()
	defer g.lock.Unlock()
	g.meFunc = fn
}

func (g *fakeGateway) setRefresh(fn func(ctx context.Context, cred credentials.Credential) (*gateway.Grant, error)) {
	g.lock.Lock()
	defer g.lock.Unlock()
	g.refreshFunc = fn
}

func (g *fakeGateway) MeCalls() int {
	g.lock.Lock()
	defer g.lock.Unlock()
	return g.meCalls
}

func (g *fakeGateway) RefreshCalls() int {
	g.lock.Lock()
	defer g.lock.Unlock()
	return g.refreshCalls
}

func (g *fakeGateway) LogoutCalls() int {
	g.lock.Lock()
	defer g.lock.Unlock()
	return g.logoutCalls
}
