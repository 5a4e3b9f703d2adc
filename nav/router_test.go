package nav_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yshengliao/casedesk/nav"
)

// switchOracle lets tests change the auth state between navigations.
type switchOracle struct {
	mu     sync.Mutex
	oracle nav.StaticOracle
}

func (s *switchOracle) set(o nav.StaticOracle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.oracle = o
}

func (s *switchOracle) get() nav.StaticOracle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.oracle
}

func (s *switchOracle) IsAuthenticated() bool       { return s.get().IsAuthenticated() }
func (s *switchOracle) HasPermission(p string) bool { return s.get().HasPermission(p) }
func (s *switchOracle) HasRole(r string) bool       { return s.get().HasRole(r) }
func (s *switchOracle) State() nav.AuthState        { return s.get().State() }

type fixture struct {
	table   *nav.Table
	oracle  *switchOracle
	history *nav.MemoryHistory
	mount   *nav.MemoryMount
	router  *nav.Router
}

func newFixture(t *testing.T, start string, opts ...nav.Option) *fixture {
	t.Helper()
	f := &fixture{
		table:   nav.NewTable(),
		oracle:  &switchOracle{},
		history: nav.NewMemoryHistory(start),
		mount:   nav.NewMemoryMount(),
	}
	f.router = nav.New(f.table, f.oracle, f.history, f.mount, opts...)
	return f
}

func (f *fixture) add(t *testing.T, pattern string, def nav.RouteDef) {
	t.Helper()
	require.NoError(t, f.table.Add(pattern, def))
}

func (f *fixture) withFallbacks(t *testing.T) *fixture {
	f.add(t, "/", text("login"))
	f.add(t, "/recovery", text("recovery"))
	f.add(t, "/404", text("not found"))
	f.add(t, "/403", text("forbidden"))
	f.add(t, "/error", text("error"))
	return f
}

func authed(t *testing.T, content string) nav.RouteConfig {
	t.Helper()
	return nav.RouteConfig{Component: text(content), RequiresAuth: true}
}

func TestRouterEndToEnd(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "/")
	f.add(t, "/", text("login"))
	f.add(t, "/dashboard", authed(t, "dashboard"))
	f.add(t, "/users", nav.RouteConfig{
		Component:     text("users"),
		RequiresAuth:  true,
		RequiredRoles: []string{"administrator"},
	})
	f.add(t, "/403", text("forbidden"))

	res := f.router.Navigate(ctx, "/dashboard")
	assert.Equal(t, nav.OutcomeUnauthenticated, res.Outcome)
	assert.Equal(t, nav.MountReplaced, res.Mount)
	assert.Equal(t, "/", res.Rendered)
	assert.Equal(t, "login", f.mount.Content())
	assert.Equal(t, "/", f.history.Location())
	assert.Equal(t, "/", f.router.CurrentPath())

	f.oracle.set(user("data_entry"))

	res = f.router.Navigate(ctx, "/users")
	assert.Equal(t, nav.OutcomeForbidden, res.Outcome)
	assert.Equal(t, "forbidden", f.mount.Content())
	assert.Equal(t, "/users", f.history.Location())
	assert.Equal(t, "/", f.router.CurrentPath())

	res = f.router.Navigate(ctx, "/dashboard")
	assert.Equal(t, nav.OutcomeGranted, res.Outcome)
	assert.Equal(t, "dashboard", f.mount.Content())
	assert.Equal(t, "/dashboard", f.router.CurrentPath())

	m, ok := f.router.CurrentRoute()
	require.True(t, ok)
	assert.Equal(t, "/dashboard", m.Route.Pattern())
}

func TestRouterAuthPrecedence(t *testing.T) {
	paths := []string{"/this-path-does-not-exist", "/dashboard", "/users/42", "/404"}

	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			f := newFixture(t, "/recovery").withFallbacks(t)
			f.add(t, "/dashboard", authed(t, "dashboard"))
			f.add(t, "/users/:id", authed(t, "user"))

			res := f.router.Navigate(context.Background(), path)
			assert.Equal(t, nav.OutcomeUnauthenticated, res.Outcome)
			assert.Equal(t, "login", f.mount.Content())
			assert.Equal(t, "/", f.history.Location())
			assert.Equal(t, "/recovery", f.router.CurrentPath())
		})
	}
}

func TestRouterPublicPathsBypassGate(t *testing.T) {
	f := newFixture(t, "/").withFallbacks(t)

	res := f.router.Navigate(context.Background(), "/recovery")
	assert.Equal(t, nav.OutcomeGranted, res.Outcome)
	assert.Equal(t, "recovery", f.mount.Content())
	assert.Equal(t, "/recovery", f.router.CurrentPath())
}

func TestRouterCustomPublicPaths(t *testing.T) {
	f := newFixture(t, "/", nav.WithPublicPaths("/", "/about"))
	f.withFallbacks(t)
	f.add(t, "/about", text("about"))

	res := f.router.Navigate(context.Background(), "/about")
	assert.Equal(t, nav.OutcomeGranted, res.Outcome)

	res = f.router.Navigate(context.Background(), "/recovery")
	assert.Equal(t, nav.OutcomeUnauthenticated, res.Outcome)
	assert.False(t, f.router.IsPublic("/recovery"))
}

func TestRouterLoginPath(t *testing.T) {
	f := newFixture(t, "/login", nav.WithLoginPath("/login"), nav.WithPublicPaths("/login"))
	f.add(t, "/login", text("sign in"))
	f.add(t, "/dashboard", authed(t, "dashboard"))

	res := f.router.Navigate(context.Background(), "/dashboard")
	assert.Equal(t, nav.OutcomeUnauthenticated, res.Outcome)
	assert.Equal(t, "/login", res.Target)
	assert.Equal(t, "sign in", f.mount.Content())
	assert.Equal(t, "/login", f.history.Location())
}

func TestRouterNotFound(t *testing.T) {
	f := newFixture(t, "/").withFallbacks(t)
	f.oracle.set(user("data_entry"))

	res := f.router.Navigate(context.Background(), "/nowhere")
	assert.Equal(t, nav.OutcomeNotFound, res.Outcome)
	assert.Nil(t, res.Match)
	assert.Equal(t, "/404", res.Rendered)
	assert.Equal(t, "not found", f.mount.Content())
	assert.Equal(t, "/nowhere", f.history.Location())
	assert.Equal(t, "/", f.router.CurrentPath())
}

func TestRouterMissingFallbacks(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		oracle  nav.StaticOracle
		outcome nav.Outcome
	}{
		{"no login route", "/dashboard", nav.Anonymous, nav.OutcomeUnauthenticated},
		{"no 404 route", "/nowhere", user("data_entry"), nav.OutcomeNotFound},
		{"no 403 route", "/users", user("data_entry"), nav.OutcomeForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, "/start")
			f.add(t, "/dashboard", authed(t, "dashboard"))
			f.add(t, "/users", nav.RouteConfig{
				Component:     text("users"),
				RequiresAuth:  true,
				RequiredRoles: []string{"administrator"},
			})
			require.NoError(t, f.mount.Replace([]byte("previous")))
			f.oracle.set(tt.oracle)

			res := f.router.Navigate(context.Background(), tt.path)
			assert.Equal(t, tt.outcome, res.Outcome)
			assert.Equal(t, nav.MountNoFallback, res.Mount)
			assert.NoError(t, res.Err)
			assert.Equal(t, "previous", f.mount.Content())
		})
	}
}

func TestRouterIdempotentNavigate(t *testing.T) {
	f := newFixture(t, "/").withFallbacks(t)
	f.oracle.set(user("data_entry"))
	f.add(t, "/dashboard", authed(t, "dashboard"))

	f.router.Navigate(context.Background(), "/dashboard")
	entries := f.history.Len()
	renders := f.mount.Replacements()

	res := f.router.Navigate(context.Background(), "/dashboard/")
	assert.Equal(t, nav.OutcomeUnchanged, res.Outcome)
	assert.Equal(t, nav.MountSkipped, res.Mount)
	assert.Equal(t, entries, f.history.Len())
	assert.Equal(t, renders, f.mount.Replacements())
}

func TestRouterNoAutoReactivity(t *testing.T) {
	f := newFixture(t, "/").withFallbacks(t)
	f.add(t, "/dashboard", authed(t, "dashboard"))
	f.oracle.set(user("data_entry"))

	f.router.Navigate(context.Background(), "/dashboard")
	require.Equal(t, "dashboard", f.mount.Content())

	f.oracle.set(nav.Anonymous)
	assert.Equal(t, "dashboard", f.mount.Content())
	assert.Equal(t, "/dashboard", f.router.CurrentPath())

	res := f.router.Navigate(context.Background(), "/recovery")
	assert.Equal(t, nav.OutcomeGranted, res.Outcome)

	res = f.router.Navigate(context.Background(), "/dashboard")
	assert.Equal(t, nav.OutcomeUnauthenticated, res.Outcome)
	assert.Equal(t, "login", f.mount.Content())
}

func TestRouterParamsReachComponent(t *testing.T) {
	var got nav.Params
	f := newFixture(t, "/").withFallbacks(t)
	f.oracle.set(user("data_entry"))
	f.add(t, "/centers/:centerId/guests/:guestId", nav.RouteConfig{
		RequiresAuth: true,
		Component: func(ctx context.Context, params nav.Params) (nav.Renderable, error) {
			got = params
			return text("guest")(ctx, params)
		},
	})

	res := f.router.Navigate(context.Background(), "/centers/7/guests/99")
	require.Equal(t, nav.OutcomeGranted, res.Outcome)
	assert.Equal(t, nav.Params{{Name: "centerId", Value: "7"}, {Name: "guestId", Value: "99"}}, got)
}

func TestRouterComponentFailure(t *testing.T) {
	boom := errors.New("boom")
	failing := map[string]nav.Component{
		"error": func(ctx context.Context, params nav.Params) (nav.Renderable, error) {
			return nil, boom
		},
		"panic": func(ctx context.Context, params nav.Params) (nav.Renderable, error) {
			panic("kaboom")
		},
		"nil renderable": func(ctx context.Context, params nav.Params) (nav.Renderable, error) {
			return nil, nil
		},
		"render error": func(ctx context.Context, params nav.Params) (nav.Renderable, error) {
			return nav.RenderFunc(func(w io.Writer) error {
				_, _ = w.Write([]byte("partial"))
				return boom
			}), nil
		},
	}

	for name, component := range failing {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, "/").withFallbacks(t)
			f.oracle.set(user("data_entry"))
			f.add(t, "/dashboard", authed(t, "dashboard"))
			f.add(t, "/broken", nav.RouteConfig{Component: component, RequiresAuth: true})
			f.router.Navigate(context.Background(), "/dashboard")

			res := f.router.Navigate(context.Background(), "/broken")
			assert.Equal(t, nav.OutcomeGranted, res.Outcome)
			assert.ErrorIs(t, res.Err, nav.ErrRender)
			assert.Equal(t, nav.MountReplaced, res.Mount)
			assert.Equal(t, "/error", res.Rendered)
			assert.Equal(t, "error", f.mount.Content())
			assert.Equal(t, "/dashboard", f.router.CurrentPath())
		})
	}
}

func TestRouterComponentFailureWithoutErrorRoute(t *testing.T) {
	f := newFixture(t, "/")
	f.oracle.set(user("data_entry"))
	f.add(t, "/dashboard", authed(t, "dashboard"))
	f.add(t, "/broken", nav.RouteConfig{
		RequiresAuth: true,
		Component: func(ctx context.Context, params nav.Params) (nav.Renderable, error) {
			panic("kaboom")
		},
	})
	f.router.Navigate(context.Background(), "/dashboard")

	res := f.router.Navigate(context.Background(), "/broken")
	assert.Equal(t, nav.MountNoFallback, res.Mount)
	assert.ErrorIs(t, res.Err, nav.ErrRender)
	assert.Equal(t, "dashboard", f.mount.Content())
}

func TestRouterErrorRouteFails(t *testing.T) {
	boom := func(ctx context.Context, params nav.Params) (nav.Renderable, error) {
		return nil, errors.New("boom")
	}
	f := newFixture(t, "/")
	f.oracle.set(user("data_entry"))
	f.add(t, "/dashboard", authed(t, "dashboard"))
	f.add(t, "/broken", nav.RouteConfig{Component: boom, RequiresAuth: true})
	f.add(t, "/error", nav.Component(boom))
	f.router.Navigate(context.Background(), "/dashboard")

	res := f.router.Navigate(context.Background(), "/broken")
	assert.Equal(t, nav.MountFailed, res.Mount)
	assert.Error(t, res.Err)
	assert.Equal(t, "dashboard", f.mount.Content())
}

func TestRouterPopState(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "/").withFallbacks(t)
	f.add(t, "/dashboard", authed(t, "dashboard"))
	f.add(t, "/centers", authed(t, "centers"))
	f.oracle.set(user("data_entry"))

	res := f.router.Init(ctx)
	assert.Equal(t, nav.OutcomeGranted, res.Outcome)
	assert.Equal(t, "login", f.mount.Content())

	f.router.Navigate(ctx, "/dashboard")
	f.router.Navigate(ctx, "/centers")
	entries := f.history.Len()

	require.True(t, f.history.Back())
	assert.Equal(t, "dashboard", f.mount.Content())
	assert.Equal(t, "/dashboard", f.router.CurrentPath())
	assert.Equal(t, entries, f.history.Len(), "popstate must not push")

	require.True(t, f.history.Forward())
	assert.Equal(t, "centers", f.mount.Content())
}

func TestRouterInitSubscribesOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "/").withFallbacks(t)
	f.add(t, "/dashboard", authed(t, "dashboard"))
	f.oracle.set(user("data_entry"))

	f.router.Init(ctx)
	f.router.Init(ctx)
	f.router.Navigate(ctx, "/dashboard")
	before := f.mount.Replacements()

	require.True(t, f.history.Back())
	assert.Equal(t, before+1, f.mount.Replacements())
}

func TestRouterSupersededNavigation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "/").withFallbacks(t)
	f.oracle.set(user("data_entry"))

	started := make(chan struct{})
	release := make(chan struct{})
	f.add(t, "/slow", nav.RouteConfig{
		RequiresAuth: true,
		Component: func(ctx context.Context, params nav.Params) (nav.Renderable, error) {
			close(started)
			<-release
			return text("slow")(ctx, params)
		},
	})
	f.add(t, "/fast", authed(t, "fast"))

	done := make(chan nav.Result, 1)
	go func() { done <- f.router.Navigate(ctx, "/slow") }()
	<-started

	res := f.router.Navigate(ctx, "/fast")
	assert.Equal(t, nav.MountReplaced, res.Mount)
	close(release)

	select {
	case slow := <-done:
		assert.Equal(t, nav.MountSuperseded, slow.Mount)
	case <-time.After(time.Second):
		t.Fatal("slow navigation did not finish")
	}
	assert.Equal(t, "fast", f.mount.Content())
	assert.Equal(t, "/fast", f.router.CurrentPath())
}

func TestRouterCanceledContext(t *testing.T) {
	f := newFixture(t, "/").withFallbacks(t)
	f.oracle.set(user("data_entry"))
	f.add(t, "/dashboard", authed(t, "dashboard"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := f.router.Navigate(ctx, "/dashboard")
	assert.Equal(t, nav.MountCanceled, res.Mount)
	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.Empty(t, f.mount.Content())
}

type failingHistory struct{ *nav.MemoryHistory }

func (failingHistory) Push(string) error { return errors.New("history unavailable") }

func TestRouterHistoryPushFailure(t *testing.T) {
	table := nav.NewTable()
	require.NoError(t, table.Add("/", text("login")))
	mount := nav.NewMemoryMount()
	r := nav.New(table, nav.Anonymous, failingHistory{nav.NewMemoryHistory("/")}, mount)

	res := r.Navigate(context.Background(), "/dashboard")
	assert.Error(t, res.Err)
	assert.Equal(t, nav.MountSkipped, res.Mount)
	assert.Equal(t, 0, mount.Replacements())
}

type recordingObserver struct {
	mu      sync.Mutex
	results []nav.Result
}

func (o *recordingObserver) ObserveNavigation(res nav.Result, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.results = append(o.results, res)
}

func TestRouterObserver(t *testing.T) {
	obs := &recordingObserver{}
	f := newFixture(t, "/", nav.WithObserver(obs))
	f.withFallbacks(t)

	f.router.Navigate(context.Background(), "/dashboard")
	f.router.Navigate(context.Background(), "/recovery")

	require.Len(t, obs.results, 2)
	assert.Equal(t, nav.OutcomeUnauthenticated, obs.results[0].Outcome)
	assert.Equal(t, nav.OutcomeGranted, obs.results[1].Outcome)
}

func TestRouterResolveIsPure(t *testing.T) {
	f := newFixture(t, "/").withFallbacks(t)
	f.add(t, "/users/:id", authed(t, "user"))

	d := f.router.Resolve("/users/5")
	assert.Equal(t, nav.OutcomeUnauthenticated, d.Outcome)
	require.NotNil(t, d.Match)
	assert.Equal(t, "5", d.Match.Params.Value("id"))
	assert.Equal(t, "/", f.history.Location())
	assert.Equal(t, 0, f.mount.Replacements())
}

func TestOutcomeStrings(t *testing.T) {
	assert.Equal(t, "granted", nav.OutcomeGranted.String())
	assert.Equal(t, "not_found", nav.OutcomeNotFound.String())
	assert.Equal(t, "no_fallback", nav.MountNoFallback.String())
	assert.Equal(t, "superseded", nav.MountSuperseded.String())
}
