// Package guard decides whether a route may render for the current identity.
// Decisions are pure functions of an auth snapshot so every surface (the web
// dashboard, the CLI) applies the same rules.
package guard

import (
	"net/url"
	"strings"

	"github.com/me/rtodash/internal/auth"
)

// Kind selects which rule a route is protected by.
type Kind int

const (
	// Authenticated routes need any identity.
	Authenticated Kind = iota
	// Admin routes need an identity whose role grants admin access.
	Admin
	// Public routes are for anonymous visitors only (login, register).
	Public
)

func (k Kind) String() string {
	switch k {
	case Authenticated:
		return "authenticated"
	case Admin:
		return "admin"
	case Public:
		return "public"
	}
	return "unknown"
}

// Outcome is what the surface should do with a request.
type Outcome int

const (
	Allow Outcome = iota
	Loading
	Redirect
)

func (o Outcome) String() string {
	switch o {
	case Allow:
		return "allow"
	case Loading:
		return "loading"
	case Redirect:
		return "redirect"
	}
	return "unknown"
}

// Decision is the result of Decide. Target is set only for Redirect.
type Decision struct {
	Outcome Outcome
	Target  string
}

// Routes are the navigation targets guards redirect to.
type Routes struct {
	Login     string
	Dashboard string
}

// DefaultRoutes are the dashboard's own paths.
var DefaultRoutes = Routes{Login: "/login", Dashboard: "/"}

// Decide applies the rule for kind. Protected kinds allow nothing until the
// initial verification has settled, so protected content never renders on a
// guess. Public pages have no loading gate: they only redirect an agent who
// is already known.
func Decide(kind Kind, snap auth.Snapshot, routes Routes, requested string) Decision {
	if kind == Public {
		if snap.Authenticated() {
			return Decision{Outcome: Redirect, Target: NextTarget(requested, routes.Dashboard)}
		}
		return Decision{Outcome: Allow}
	}
	if !snap.Ready() {
		return Decision{Outcome: Loading}
	}

	switch kind {
	case Admin:
		if !snap.Authenticated() {
			return Decision{Outcome: Redirect, Target: LoginTarget(routes.Login, requested)}
		}
		if !snap.IsAdmin() {
			return Decision{Outcome: Redirect, Target: routes.Dashboard}
		}
		return Decision{Outcome: Allow}

	default:
		if !snap.Authenticated() {
			return Decision{Outcome: Redirect, Target: LoginTarget(routes.Login, requested)}
		}
		return Decision{Outcome: Allow}
	}
}

// LoginTarget builds the login URL that returns to requested afterwards.
func LoginTarget(login, requested string) string {
	if !SafeNext(requested) || requested == login {
		return login
	}
	return login + "?next=" + url.QueryEscape(requested)
}

// NextTarget picks where a public page sends an already-authenticated
// visitor: the ?next= path carried by requested if it is safe, otherwise
// fallback.
func NextTarget(requested, fallback string) string {
	u, err := url.Parse(requested)
	if err != nil {
		return fallback
	}
	next := u.Query().Get("next")
	if !SafeNext(next) {
		return fallback
	}
	return next
}

// SafeNext reports whether next is a local absolute path. Anything that could
// leave the site (scheme, host, protocol-relative or backslash tricks) is
// rejected.
func SafeNext(next string) bool {
	if next == "" || !strings.HasPrefix(next, "/") {
		return false
	}
	if strings.HasPrefix(next, "//") || strings.Contains(next, "\\") {
		return false
	}
	u, err := url.Parse(next)
	return err == nil && u.Scheme == "" && u.Host == ""
}
