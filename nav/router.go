// Package nav implements authenticated page navigation: path matching, an
// ordered route table, access checks against an auth oracle, and a router
// that drives history updates and mount-point rendering.
//
// A Router is built per page session:
//
//	table := nav.NewTable()
//	table.MustAdd("/", loginPage)
//	table.MustAdd("/dashboard", nav.RouteConfig{Component: dashboard, RequiresAuth: true})
//
//	r := nav.New(table, session, history, mount, nav.WithLogger(logger))
//	r.Init(ctx)
//	r.Navigate(ctx, "/dashboard")
//
// Resolution checks authentication before route existence: an anonymous
// request for any path outside the public allow-list is sent to the login
// route, even if no route matches it.
package nav

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Reserved fallback patterns.
const (
	NotFoundPath  = "/404"
	ForbiddenPath = "/403"
	ErrorPath     = "/error"
)

// DefaultPublicPaths are exempt from the authentication gate.
var DefaultPublicPaths = []string{"/", "/recovery"}

// ErrRender wraps failures raised while building or rendering a component.
var ErrRender = errors.New("render failed")

// Outcome is the result of the resolution procedure.
type Outcome int

const (
	// OutcomeGranted: route found and access granted.
	OutcomeGranted Outcome = iota
	// OutcomeUnauthenticated: anonymous request outside the public paths.
	OutcomeUnauthenticated
	// OutcomeNotFound: no route matched.
	OutcomeNotFound
	// OutcomeForbidden: route found, access denied.
	OutcomeForbidden
	// OutcomeUnchanged: navigate to the current location; nothing ran.
	OutcomeUnchanged
)

func (o Outcome) String() string {
	switch o {
	case OutcomeGranted:
		return "granted"
	case OutcomeUnauthenticated:
		return "unauthenticated"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeForbidden:
		return "forbidden"
	case OutcomeUnchanged:
		return "unchanged"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// MountStatus says what happened to the mount point.
type MountStatus int

const (
	// MountReplaced: new content was mounted.
	MountReplaced MountStatus = iota
	// MountNoFallback: the route to render is not registered; content unchanged.
	MountNoFallback
	// MountFailed: nothing could be rendered; the last good content remains.
	MountFailed
	// MountSuperseded: a later navigation started first; result discarded.
	MountSuperseded
	// MountCanceled: the context ended before mounting.
	MountCanceled
	// MountSkipped: no render was attempted.
	MountSkipped
)

func (s MountStatus) String() string {
	switch s {
	case MountReplaced:
		return "replaced"
	case MountNoFallback:
		return "no_fallback"
	case MountFailed:
		return "failed"
	case MountSuperseded:
		return "superseded"
	case MountCanceled:
		return "canceled"
	case MountSkipped:
		return "skipped"
	default:
		return fmt.Sprintf("mount(%d)", int(s))
	}
}

// Decision is the pure part of a navigation: what should be shown for a
// path given the table and the oracle's current answers.
type Decision struct {
	Path    string
	Outcome Outcome
	// Match is the route matched by Path, if any. It is set even when the
	// outcome is not OutcomeGranted.
	Match *Match
	// Target is the pattern whose component should be rendered.
	Target string
}

// Result describes one navigation attempt.
type Result struct {
	Decision
	Mount MountStatus
	// Rendered is the pattern whose content was mounted. It differs from
	// Target when rendering fell back to ErrorPath.
	Rendered string
	// Err holds a component or history failure. Navigation never panics.
	Err error
}

// Observer receives every finished navigation.
type Observer interface {
	ObserveNavigation(res Result, elapsed time.Duration)
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the router logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithPublicPaths replaces the allow-list of paths exempt from the
// authentication gate.
func WithPublicPaths(paths ...string) Option {
	return func(r *Router) {
		r.public = make(map[string]struct{}, len(paths))
		for _, p := range paths {
			r.public[Normalize(p)] = struct{}{}
		}
	}
}

// WithLoginPath sets where unauthenticated requests are sent. The login
// route is looked up by this pattern.
func WithLoginPath(path string) Option {
	return func(r *Router) {
		r.loginPath = Normalize(path)
	}
}

// WithObserver attaches an Observer.
func WithObserver(o Observer) Option {
	return func(r *Router) {
		r.observer = o
	}
}

// Router resolves paths against a Table, gates them through an AuthOracle,
// and mounts the result. A Router serves a single page session.
//
// Every navigation takes a generation number when it starts. Resolution and
// rendering run outside the lock; before mounting, a navigation whose
// generation is no longer the latest is discarded. History, the mount point
// and the current path are only touched under the lock.
type Router struct {
	table     *Table
	oracle    AuthOracle
	history   History
	mount     MountPoint
	logger    *zap.Logger
	observer  Observer
	public    map[string]struct{}
	loginPath string

	mu          sync.Mutex
	generation  uint64
	currentPath string
	listening   bool
}

// New creates a Router. The current path starts at the history's location.
func New(table *Table, oracle AuthOracle, history History, mount MountPoint, opts ...Option) *Router {
	r := &Router{
		table:     table,
		oracle:    oracle,
		history:   history,
		mount:     mount,
		logger:    zap.NewNop(),
		loginPath: "/",
	}
	WithPublicPaths(DefaultPublicPaths...)(r)
	for _, opt := range opts {
		opt(r)
	}
	r.currentPath = Normalize(history.Location())
	return r
}

// Table returns the router's route table.
func (r *Router) Table() *Table { return r.table }

// CurrentPath returns the last path that resolved and rendered successfully.
func (r *Router) CurrentPath() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentPath
}

// CurrentRoute matches the current path again. Results are not cached.
func (r *Router) CurrentRoute() (*Match, bool) {
	return r.table.Find(r.CurrentPath())
}

// Init subscribes to popstate events when the history supports them and
// resolves the current location. Popstate-driven navigations use ctx.
func (r *Router) Init(ctx context.Context) Result {
	r.mu.Lock()
	src, ok := r.history.(PopStateSource)
	subscribe := ok && !r.listening
	r.listening = r.listening || ok
	r.mu.Unlock()

	if subscribe {
		src.OnPopState(func() { r.HandlePopState(ctx) })
	}
	return r.HandlePopState(ctx)
}

// Navigate moves to path. Navigating to the current location is a no-op:
// no history entry is pushed and nothing is rendered.
func (r *Router) Navigate(ctx context.Context, path string) Result {
	path = Normalize(path)

	r.mu.Lock()
	if path == Normalize(r.history.Location()) {
		r.mu.Unlock()
		return Result{
			Decision: Decision{Path: path, Outcome: OutcomeUnchanged},
			Mount:    MountSkipped,
		}
	}
	if err := r.history.Push(path); err != nil {
		r.mu.Unlock()
		r.logger.Error("history push failed", zap.String("path", path), zap.Error(err))
		return Result{
			Decision: Decision{Path: path, Outcome: OutcomeUnchanged},
			Mount:    MountSkipped,
			Err:      fmt.Errorf("push %s: %w", path, err),
		}
	}
	r.generation++
	gen := r.generation
	r.mu.Unlock()

	return r.run(ctx, gen, path)
}

// HandlePopState resolves the history's current location without pushing.
// Call it after a back/forward move.
func (r *Router) HandlePopState(ctx context.Context) Result {
	r.mu.Lock()
	path := Normalize(r.history.Location())
	r.generation++
	gen := r.generation
	r.mu.Unlock()

	return r.run(ctx, gen, path)
}

// Resolve runs the decision procedure for path without side effects. The
// authentication gate is evaluated before route existence.
func (r *Router) Resolve(path string) Decision {
	path = Normalize(path)
	match, found := r.table.Find(path)
	authed := r.oracle != nil && r.oracle.IsAuthenticated()
	access := true
	if found {
		access = HasAccess(match.Route, r.oracle)
	}

	d := Decision{Path: path, Match: match}
	switch {
	case !authed && !r.isPublic(path):
		d.Outcome, d.Target = OutcomeUnauthenticated, r.loginPath
	case !found:
		d.Outcome, d.Target = OutcomeNotFound, NotFoundPath
	case !access:
		d.Outcome, d.Target = OutcomeForbidden, ForbiddenPath
	default:
		d.Outcome, d.Target = OutcomeGranted, match.Route.pattern
	}
	return d
}

// IsPublic reports whether path bypasses the authentication gate.
func (r *Router) IsPublic(path string) bool {
	return r.isPublic(Normalize(path))
}

func (r *Router) isPublic(path string) bool {
	_, ok := r.public[path]
	return ok
}

func (r *Router) run(ctx context.Context, gen uint64, path string) Result {
	start := time.Now()
	res := Result{Decision: r.Resolve(path)}

	fragment, rendered, status, err := r.build(ctx, res.Decision)
	res.Err = err

	r.mu.Lock()
	switch {
	case gen != r.generation:
		status = MountSuperseded
	case ctx.Err() != nil:
		status = MountCanceled
		if res.Err == nil {
			res.Err = ctx.Err()
		}
	default:
		status, rendered = r.commit(res, fragment, rendered, status)
	}
	r.mu.Unlock()

	res.Mount = status
	if status == MountReplaced {
		res.Rendered = rendered
	}
	r.report(res, time.Since(start))
	return res
}

// commit applies a navigation's side effects. The caller holds r.mu.
func (r *Router) commit(res Result, fragment []byte, rendered string, status MountStatus) (MountStatus, string) {
	if res.Outcome == OutcomeUnauthenticated && Normalize(r.history.Location()) != r.loginPath {
		if err := r.history.Replace(r.loginPath); err != nil {
			r.logger.Error("history replace failed", zap.String("path", r.loginPath), zap.Error(err))
		}
	}

	if status != MountReplaced {
		return status, ""
	}
	if err := r.mount.Replace(fragment); err != nil {
		r.logger.Error("mount failed", zap.String("path", res.Path), zap.Error(err))
		return MountFailed, ""
	}
	if res.Outcome == OutcomeGranted && rendered == res.Target {
		r.currentPath = res.Path
	}
	return MountReplaced, rendered
}

// build renders the decision's target into a buffer, falling back to the
// error route when the component fails. MountReplaced here means a
// complete fragment is ready to mount.
func (r *Router) build(ctx context.Context, d Decision) ([]byte, string, MountStatus, error) {
	var (
		route  *Route
		params Params
	)
	if d.Outcome == OutcomeGranted {
		route, params = d.Match.Route, d.Match.Params
	} else {
		var ok bool
		if route, ok = r.table.Lookup(d.Target); !ok {
			r.logger.Debug("fallback route not registered",
				zap.String("path", d.Path),
				zap.String("target", d.Target))
			return nil, "", MountNoFallback, nil
		}
		params = Params{}
	}

	fragment, err := r.render(ctx, route, params)
	if err == nil {
		return fragment, route.pattern, MountReplaced, nil
	}
	r.logger.Error("component failed",
		zap.String("path", d.Path),
		zap.String("route", route.pattern),
		zap.Error(err))

	errRoute, ok := r.table.Lookup(ErrorPath)
	if !ok {
		return nil, "", MountNoFallback, err
	}
	if errRoute == route {
		return nil, "", MountFailed, err
	}
	fragment, ferr := r.render(ctx, errRoute, Params{})
	if ferr != nil {
		r.logger.Error("error route failed", zap.Error(ferr))
		return nil, "", MountFailed, errors.Join(err, ferr)
	}
	return fragment, errRoute.pattern, MountReplaced, err
}

// render invokes the component and writes it to a buffer. Panics are
// converted to errors.
func (r *Router) render(ctx context.Context, route *Route, params Params) (fragment []byte, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %s: panic: %v", ErrRender, route.pattern, rec)
		}
	}()

	view, err := route.component()(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrRender, route.pattern, err)
	}
	if view == nil {
		return nil, fmt.Errorf("%w: %s: component returned nil", ErrRender, route.pattern)
	}

	var buf bytes.Buffer
	if err := view.Render(&buf); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrRender, route.pattern, err)
	}
	return buf.Bytes(), nil
}

func (r *Router) report(res Result, elapsed time.Duration) {
	r.logger.Debug("navigation",
		zap.String("path", res.Path),
		zap.Stringer("outcome", res.Outcome),
		zap.Stringer("mount", res.Mount),
		zap.String("rendered", res.Rendered),
		zap.Duration("elapsed", elapsed))

	if r.observer != nil {
		r.observer.ObserveNavigation(res, elapsed)
	}
}
