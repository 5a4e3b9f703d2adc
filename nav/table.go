package nav

import "sync"

// Match is the result of matching a path against the table. It is built
// per lookup and never cached.
type Match struct {
	Route  *Route
	Path   string
	Params Params
}

// Table is an insertion-ordered route registry. Lookups walk routes in
// registration order and the first structural match wins; there is no
// specificity ranking, so an earlier pattern such as "/a/:x" shadows a
// later "/a/b".
//
// Re-adding a pattern replaces its route but keeps its original slot.
type Table struct {
	mu     sync.RWMutex
	routes []*Route
	index  map[string]int
}

// NewTable creates an empty route table.
func NewTable() *Table {
	return &Table{index: make(map[string]int)}
}

// Add registers def under pattern. def is either a Component (public
// shorthand) or a RouteConfig.
func (t *Table) Add(pattern string, def RouteDef) error {
	route, err := newRoute(pattern, def)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if i, ok := t.index[route.pattern]; ok {
		t.routes[i] = route
		return nil
	}
	t.index[route.pattern] = len(t.routes)
	t.routes = append(t.routes, route)
	return nil
}

// MustAdd is like Add but panics on error.
func (t *Table) MustAdd(pattern string, def RouteDef) {
	if err := t.Add(pattern, def); err != nil {
		panic(err)
	}
}

// Find returns the first route, in registration order, matching path.
func (t *Table) Find(path string) (*Match, bool) {
	urlSegments := Segments(path)

	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, route := range t.routes {
		if params, ok := MatchSegments(route.segments, urlSegments); ok {
			return &Match{Route: route, Path: Normalize(path), Params: params}, true
		}
	}
	return nil, false
}

// Lookup returns the route registered under exactly pattern.
func (t *Table) Lookup(pattern string) (*Route, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	i, ok := t.index[Normalize(pattern)]
	if !ok {
		return nil, false
	}
	return t.routes[i], true
}

// Routes returns the registered routes in iteration order.
func (t *Table) Routes() []*Route {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]*Route, len(t.routes))
	copy(out, t.routes)
	return out
}

// Len returns the number of registered routes.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.routes)
}
