package nav

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidRoute is returned when a route registration is malformed.
var ErrInvalidRoute = errors.New("invalid route")

// Renderable is a unit of content that can be written into the mount point.
type Renderable interface {
	Render(w io.Writer) error
}

// RenderFunc adapts an ordinary function to Renderable.
type RenderFunc func(w io.Writer) error

// Render calls f(w).
func (f RenderFunc) Render(w io.Writer) error {
	return f(w)
}

// Component produces the renderable for a matched route. It is opaque to
// the router.
type Component func(ctx context.Context, params Params) (Renderable, error)

// RouteDef is anything that can be registered with a Table: either a bare
// Component or a full RouteConfig.
type RouteDef interface {
	routeConfig() RouteConfig
}

// routeConfig expands a bare component into a public route.
func (c Component) routeConfig() RouteConfig {
	return RouteConfig{
		Component:           c,
		RequiredPermissions: []string{},
		RequiredRoles:       []string{},
	}
}

// RouteConfig carries a component and its access requirements.
type RouteConfig struct {
	Component           Component `validate:"required"`
	RequiresAuth        bool
	RequiredPermissions []string `validate:"dive,required"`
	RequiredRoles       []string `validate:"dive,required"`
}

func (c RouteConfig) routeConfig() RouteConfig {
	out := c
	out.RequiredPermissions = append([]string{}, c.RequiredPermissions...)
	out.RequiredRoles = append([]string{}, c.RequiredRoles...)
	return out
}

// Route is a registered navigational entry. Routes are immutable once added.
type Route struct {
	pattern  string
	segments []string
	config   RouteConfig
}

// Pattern returns the normalized pattern the route was registered under.
func (r *Route) Pattern() string { return r.pattern }

// RequiresAuth reports whether the route is behind the authentication gate.
func (r *Route) RequiresAuth() bool { return r.config.RequiresAuth }

// RequiredPermissions returns a copy of the permissions that must all be held.
func (r *Route) RequiredPermissions() []string {
	return append([]string{}, r.config.RequiredPermissions...)
}

// RequiredRoles returns a copy of the roles of which at least one must be held.
func (r *Route) RequiredRoles() []string {
	return append([]string{}, r.config.RequiredRoles...)
}

// ParamNames returns the names of the pattern's parameters in order.
func (r *Route) ParamNames() []string {
	var names []string
	for _, seg := range r.segments {
		if isParam(seg) {
			names = append(names, seg[1:])
		}
	}
	return names
}

func (r *Route) component() Component { return r.config.Component }

// registration is validated before a route is created.
type registration struct {
	Pattern string      `validate:"required,startswith=/"`
	Config  RouteConfig
}

var validate = validator.New()

func newRoute(pattern string, def RouteDef) (*Route, error) {
	if def == nil {
		return nil, fmt.Errorf("%w: %q: route definition is nil", ErrInvalidRoute, pattern)
	}

	reg := registration{Pattern: pattern, Config: def.routeConfig()}
	if err := validate.Struct(reg); err != nil {
		return nil, fmt.Errorf("%w: %q: %s", ErrInvalidRoute, pattern, describeValidation(err))
	}

	segments := Segments(pattern)
	seen := make(map[string]struct{}, len(segments))
	for _, seg := range segments {
		if !isParam(seg) {
			continue
		}
		name := seg[1:]
		if name == "" {
			return nil, fmt.Errorf("%w: %q: parameter must be named", ErrInvalidRoute, pattern)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("%w: %q: duplicate parameter %q", ErrInvalidRoute, pattern, name)
		}
		seen[name] = struct{}{}
	}

	return &Route{
		pattern:  Normalize(pattern),
		segments: segments,
		config:   reg.Config,
	}, nil
}

// describeValidation flattens validator errors into one line.
func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Namespace()))
		case "startswith":
			msgs = append(msgs, fmt.Sprintf("%s must start with %q", fe.Namespace(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s validation", fe.Namespace(), fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}
