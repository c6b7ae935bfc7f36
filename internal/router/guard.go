package router

import (
	"context"
	"net/url"

	"expense-client/internal/logger"

	"go.uber.org/zap"
)

// Session is the view of the auth store the guard needs.
type Session interface {
	Init(ctx context.Context) error
	IsAuthenticated(ctx context.Context) bool
}

// Decision is the guard verdict for one navigation step. A nil Redirect
// allows the navigation.
type Decision struct {
	Redirect *Location
}

// Guard keeps unauthenticated users off protected routes and authenticated
// users off guest-only routes.
type Guard struct {
	session Session
	log     *logger.Logger
}

// NewGuard returns a guard consulting session.
func NewGuard(session Session, log *logger.Logger) *Guard {
	if log == nil {
		log = logger.NewNop()
	}
	return &Guard{session: session, log: log.With(zap.String("component", "guard"))}
}

// Check bootstraps the session and decides whether to navigate to to.
func (g *Guard) Check(ctx context.Context, to Location, route Route) Decision {
	if err := g.session.Init(ctx); err != nil {
		g.log.Error(ctx, "session init failed", zap.Error(err))
	}
	if route.Access == Public {
		return Decision{}
	}

	authenticated := g.session.IsAuthenticated(ctx)
	switch {
	case route.Access == Protected && !authenticated:
		g.log.Debug(ctx, "protected route without session", zap.String("path", to.Path))
		return Decision{Redirect: &Location{
			Path:  PathSignIn,
			Query: url.Values{"redirect": {to.String()}},
		}}
	case route.Access == GuestOnly && authenticated:
		g.log.Debug(ctx, "guest route with session", zap.String("path", to.Path))
		return Decision{Redirect: &Location{Path: PathRoot}}
	}
	return Decision{}
}
