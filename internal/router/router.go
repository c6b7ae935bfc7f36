package router

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"expense-client/internal/logger"

	"go.uber.org/zap"
)

// maxRedirects bounds the redirect chain of a single navigation.
const maxRedirects = 10

// ErrRedirectLoop is returned when a navigation keeps redirecting.
var ErrRedirectLoop = errors.New("too many redirects")

// Router tracks the current location of the client.
//
// A navigation requested while a guard is running, such as the sign-in
// redirect issued by a forced logout, is queued and replaces an allowed
// target. A redirect returned by the guard itself always takes precedence.
type Router struct {
	mu        sync.Mutex
	current   Location
	route     Route
	history   []Location
	resolving bool
	pending   *Location

	guard *Guard
	log   *logger.Logger
}

// New returns a router positioned nowhere. Call Navigate to enter a route.
func New(guard *Guard, log *logger.Logger) *Router {
	if log == nil {
		log = logger.NewNop()
	}
	return &Router{guard: guard, log: log.With(zap.String("component", "router"))}
}

// Navigate parses target and pushes it.
func (r *Router) Navigate(ctx context.Context, target string) error {
	loc, err := ParseLocation(target)
	if err != nil {
		return fmt.Errorf("navigate %q: %w", target, err)
	}
	return r.Push(ctx, loc)
}

// Push resolves loc through route redirects and the guard, then makes the
// final target current.
func (r *Router) Push(ctx context.Context, loc Location) error {
	r.mu.Lock()
	if r.resolving {
		r.pending = &loc
		r.mu.Unlock()
		return nil
	}
	r.resolving = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.resolving = false
		r.pending = nil
		r.mu.Unlock()
	}()

	target := loc
	for range maxRedirects {
		route := Match(target.Path)
		if route.Redirect != "" {
			target = Location{Path: route.Redirect}
			continue
		}

		decision := r.guard.Check(ctx, target, route)
		queued := r.takePending()
		switch {
		case decision.Redirect != nil:
			target = *decision.Redirect
		case queued != nil:
			target = *queued
		default:
			r.commit(target, route)
			r.log.Debug(ctx, "navigated", zap.String("from", loc.String()), zap.String("to", target.String()))
			return nil
		}
	}

	r.log.Warn(ctx, "redirect loop", zap.String("target", loc.String()))
	return fmt.Errorf("%w: %s", ErrRedirectLoop, loc)
}

// HardRedirect moves to target without consulting the guard.
func (r *Router) HardRedirect(target string) {
	loc, err := ParseLocation(target)
	if err != nil {
		loc = Location{Path: PathSignIn}
	}
	r.log.Warn(context.Background(), "hard redirect", zap.String("target", loc.String()))
	r.commit(loc, Match(loc.Path))
}

// Current returns the current location.
func (r *Router) Current() Location {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// CurrentRoute returns the route of the current location.
func (r *Router) CurrentRoute() Route {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.route
}

// History returns every committed location, oldest first.
func (r *Router) History() []Location {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Location(nil), r.history...)
}

func (r *Router) takePending() *Location {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.pending
	r.pending = nil
	return p
}

func (r *Router) commit(loc Location, route Route) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = loc
	r.route = route
	r.history = append(r.history, loc)
}
