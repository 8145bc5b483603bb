package routes_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/callscreen-client/routes"
	"github.com/jrsteele09/callscreen-client/session"
	"github.com/jrsteele09/callscreen-client/tenants"
	"github.com/jrsteele09/callscreen-client/users"
)

func TestResolve(t *testing.T) {
	identity := &users.Identity{ID: "1", Phone: "+420123456789"}
	tenant := &tenants.Tenant{ID: "t-1", Name: "Acme"}

	loading := session.State{Phase: session.PhaseLoading}
	anonymous := session.State{Phase: session.PhaseAnonymous}
	needsOnboarding := session.State{Phase: session.PhaseAuthenticated, Identity: identity, NeedsOnboarding: true}
	inWizard := session.State{Phase: session.PhaseAuthenticated, Identity: identity, OnboardingInProgress: true}
	onboarded := session.State{Phase: session.PhaseAuthenticated, Identity: identity, Tenant: tenant}

	tests := []struct {
		name  string
		state session.State
		view  routes.View
		want  routes.Decision
	}{
		{"loading login", loading, routes.ViewLogin, routes.Decision{Pending: true}},
		{"loading app", loading, routes.ViewApp, routes.Decision{Pending: true}},
		{"loading onboarding", loading, routes.ViewOnboarding, routes.Decision{Pending: true}},

		{"anonymous login", anonymous, routes.ViewLogin, routes.Decision{Render: true}},
		{"anonymous app", anonymous, routes.ViewApp, routes.Decision{RedirectTo: routes.ViewLogin}},
		{"anonymous onboarding", anonymous, routes.ViewOnboarding, routes.Decision{RedirectTo: routes.ViewLogin}},

		{"needs onboarding onboarding", needsOnboarding, routes.ViewOnboarding, routes.Decision{Render: true}},
		{"needs onboarding app", needsOnboarding, routes.ViewApp, routes.Decision{RedirectTo: routes.ViewOnboarding}},
		{"needs onboarding login", needsOnboarding, routes.ViewLogin, routes.Decision{RedirectTo: routes.ViewOnboarding}},

		{"wizard running onboarding", inWizard, routes.ViewOnboarding, routes.Decision{Render: true}},
		{"wizard running app", inWizard, routes.ViewApp, routes.Decision{Render: true}},
		{"wizard running login", inWizard, routes.ViewLogin, routes.Decision{RedirectTo: routes.ViewApp}},

		{"onboarded app", onboarded, routes.ViewApp, routes.Decision{Render: true}},
		{"onboarded login", onboarded, routes.ViewLogin, routes.Decision{RedirectTo: routes.ViewApp}},
		{"onboarded onboarding", onboarded, routes.ViewOnboarding, routes.Decision{RedirectTo: routes.ViewApp}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, routes.Resolve(tt.state, tt.view))
		})
	}
}

func TestHome(t *testing.T) {
	require.Equal(t, routes.View(""), routes.Home(session.State{Phase: session.PhaseLoading}))
	require.Equal(t, routes.ViewLogin, routes.Home(session.State{Phase: session.PhaseAnonymous}))
	require.Equal(t, routes.ViewOnboarding, routes.Home(session.State{Phase: session.PhaseAuthenticated, NeedsOnboarding: true}))
	require.Equal(t, routes.ViewApp, routes.Home(session.State{Phase: session.PhaseAuthenticated}))
}
