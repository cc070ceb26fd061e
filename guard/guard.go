// Package guard decides, per navigation, whether a route renders, waits, or
// redirects, based only on the current session snapshot. Guards never mutate
// the session and never talk to the network, so a navigation decision is a
// pure function of (snapshot, route, attempted path).
package guard

import "github.com/uzbek-talim/talim/session"

// Action is the outcome kind of a guard evaluation.
type Action int

const (
	// Render lets the requested route proceed.
	Render Action = iota
	// Wait means the session is still resolving; show a pending state and
	// re-evaluate once it settles. Never redirect while waiting.
	Wait
	// Redirect sends the navigation elsewhere.
	Redirect
)

func (a Action) String() string {
	switch a {
	case Render:
		return "render"
	case Wait:
		return "wait"
	case Redirect:
		return "redirect"
	default:
		return "unknown"
	}
}

// Decision is the result of evaluating one navigation. For redirects, Target
// is where to go and From carries the originally attempted path so a later
// guest-guard evaluation can send the signed-in user back where they were
// headed.
type Decision struct {
	Action Action
	Target string
	From   string
}

// Evaluator evaluates route guards against fixed redirect destinations.
type Evaluator struct {
	// LoginPath is where unauthenticated protected navigations land.
	LoginPath string
	// LandingPath is the default post-login destination and where
	// insufficiently privileged navigations land.
	LandingPath string
}

// NewEvaluator returns an Evaluator with the platform's standard paths.
func NewEvaluator() *Evaluator {
	return &Evaluator{LoginPath: "/login", LandingPath: "/dashboard"}
}

// Public always renders, whatever the session state.
func (e *Evaluator) Public(session.Snapshot) Decision {
	return Decision{Action: Render}
}

// Protected renders only for authenticated sessions. While the session is
// resolving it waits; once resolved unauthenticated it redirects to login,
// preserving the attempted path.
func (e *Evaluator) Protected(snap session.Snapshot, attempted string) Decision {
	if snap.IsLoading {
		return Decision{Action: Wait}
	}
	if !snap.IsAuthenticated {
		return Decision{Action: Redirect, Target: e.LoginPath, From: attempted}
	}
	return Decision{Action: Render}
}

// Guest renders only for unauthenticated sessions. An authenticated session
// is redirected back to the path it originally attempted, or to the landing
// path when no attempt was threaded through.
func (e *Evaluator) Guest(snap session.Snapshot, from string) Decision {
	if snap.IsLoading {
		return Decision{Action: Wait}
	}
	if snap.IsAuthenticated {
		target := from
		if target == "" {
			target = e.LandingPath
		}
		return Decision{Action: Redirect, Target: target}
	}
	return Decision{Action: Render}
}

// Admin renders only for authenticated sessions holding an administrative
// role. Unauthenticated sessions go to login like any protected route;
// authenticated non-admins go to the landing path without a threaded
// return, since the redirect is a denial rather than a detour.
func (e *Evaluator) Admin(snap session.Snapshot, attempted string) Decision {
	if snap.IsLoading {
		return Decision{Action: Wait}
	}
	if !snap.IsAuthenticated {
		return Decision{Action: Redirect, Target: e.LoginPath, From: attempted}
	}
	if snap.Identity == nil || !snap.Identity.Role.Admin() {
		return Decision{Action: Redirect, Target: e.LandingPath}
	}
	return Decision{Action: Render}
}
