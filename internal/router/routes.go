// Package router resolves client navigation against the route table and
// the authentication guard.
package router

import (
	"net/url"
	"strings"
)

const (
	PathRoot     = "/"
	PathAnalysis = "/analysis"
	PathExpenses = "/expenses"
	PathSignIn   = "/signin"
	PathSignUp   = "/signup"
)

// Access is the session requirement of a route.
type Access int

const (
	// Public routes are reachable by anyone.
	Public Access = iota
	// Protected routes require a valid session.
	Protected
	// GuestOnly routes are reachable only without a valid session.
	GuestOnly
)

func (a Access) String() string {
	switch a {
	case Protected:
		return "protected"
	case GuestOnly:
		return "guest-only"
	default:
		return "public"
	}
}

// Route is an entry of the route table.
type Route struct {
	Name     string
	Path     string
	Redirect string
	Access   Access
}

// Routes is the route table of the client.
var Routes = []Route{
	{Name: "Root", Path: PathRoot, Redirect: PathAnalysis},
	{Name: "AnalysisPage", Path: PathAnalysis, Access: Protected},
	{Name: "ExpensesPage", Path: PathExpenses, Access: Protected},
	{Name: "SignIn", Path: PathSignIn, Access: GuestOnly},
	{Name: "SignUp", Path: PathSignUp, Access: GuestOnly},
}

// NotFound is matched by every path missing from Routes.
var NotFound = Route{Name: "NotFound", Access: Public}

// Match returns the route for path, ignoring a trailing slash.
func Match(path string) Route {
	if path != PathRoot {
		path = strings.TrimRight(path, "/")
	}
	for _, r := range Routes {
		if r.Path == path {
			return r
		}
	}
	nf := NotFound
	nf.Path = path
	return nf
}

// Location is a navigation target.
type Location struct {
	Path  string
	Query url.Values
}

// ParseLocation parses a target such as "/signin?redirect=%2Fexpenses".
func ParseLocation(target string) (Location, error) {
	u, err := url.Parse(target)
	if err != nil {
		return Location{}, err
	}
	path := u.Path
	if path == "" {
		path = PathRoot
	}
	loc := Location{Path: path}
	if q := u.Query(); len(q) > 0 {
		loc.Query = q
	}
	return loc, nil
}

func (l Location) String() string {
	if len(l.Query) == 0 {
		return l.Path
	}
	return l.Path + "?" + l.Query.Encode()
}
