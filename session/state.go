package session

import (
	"github.com/jrsteele09/callscreen-client/tenants"
	"github.com/jrsteele09/callscreen-client/users"
)

// Phase is the coarse authentication status of the client.
type Phase string

const (
	// PhaseLoading means the session has not been resolved yet. Nothing may
	// redirect while in this phase.
	PhaseLoading Phase = "loading"
	// PhaseAnonymous means there is no usable credential.
	PhaseAnonymous Phase = "anonymous"
	// PhaseAuthenticated means an identity is known for the stored credential.
	PhaseAuthenticated Phase = "authenticated"
)

// State is the single source of truth every screen and route guard reads.
// A State is never modified in place; the controller replaces it whole.
type State struct {
	Phase                Phase           `json:"phase"`
	Identity             *users.Identity `json:"identity"`
	Tenant               *tenants.Tenant `json:"tenant"`
	NeedsOnboarding      bool            `json:"needs_onboarding"`
	OnboardingInProgress bool            `json:"onboarding_in_progress"` // process lifetime only
	IsPrivileged         bool            `json:"is_privileged"`
}

// Authenticated reports whether the state carries an identity.
func (s State) Authenticated() bool {
	return s.Phase == PhaseAuthenticated
}

func loadingState() State {
	return State{Phase: PhaseLoading}
}

func anonymousState() State {
	return State{Phase: PhaseAnonymous}
}

// normalize enforces the structural invariants:
//   - Identity is set iff the phase is authenticated
//   - NeedsOnboarding implies no tenant and no onboarding in progress
func (s State) normalize() State {
	if s.Phase != PhaseAuthenticated {
		s.Identity = nil
		s.Tenant = nil
		s.NeedsOnboarding = false
		s.IsPrivileged = false
	}
	if s.Tenant != nil || s.OnboardingInProgress {
		s.NeedsOnboarding = false
	}
	return s
}

// clone copies the pointed-to identity and tenant, tenant settings included,
// so snapshots handed to readers share nothing with the controller.
func (s State) clone() State {
	if s.Identity != nil {
		id := *s.Identity
		s.Identity = &id
	}
	s.Tenant = s.Tenant.Clone()
	return s
}
