// Package routes decides, from the session state alone, whether a view may
// render or where it must redirect.
package routes

import "github.com/jrsteele09/callscreen-client/session"

// View is a top-level destination of the client.
type View string

const (
	ViewLogin      View = "login"
	ViewOnboarding View = "onboarding"
	ViewApp        View = "app" // any protected main-application view
)

// Decision is the outcome of a guard check. Exactly one of Pending, Render or a
// non-empty RedirectTo holds.
type Decision struct {
	Pending    bool // session still loading: render a placeholder, do not redirect
	Render     bool
	RedirectTo View
}

var (
	pending = Decision{Pending: true}
	render  = Decision{Render: true}
)

func redirect(v View) Decision {
	return Decision{RedirectTo: v}
}

// Home returns the view a session in state s belongs on, or "" while loading.
func Home(s session.State) View {
	switch {
	case s.Phase == session.PhaseLoading:
		return ""
	case s.Phase != session.PhaseAuthenticated:
		return ViewLogin
	case s.NeedsOnboarding:
		return ViewOnboarding
	default:
		return ViewApp
	}
}

// Resolve applies the guard table to a request for view v.
//
//	loading                         -> pending everywhere
//	anonymous                       -> login renders, everything else -> login
//	authenticated, needs onboarding -> onboarding renders, everything else -> onboarding
//	authenticated, onboarded        -> app renders, login -> app
//
// The onboarding view stays open while the wizard is in progress so that a
// profile refresh arriving mid-wizard never moves the user.
func Resolve(s session.State, v View) Decision {
	home := Home(s)
	if home == "" {
		return pending
	}
	if v == home {
		return render
	}
	if v == ViewOnboarding && home == ViewApp && s.OnboardingInProgress {
		return render
	}
	return redirect(home)
}
