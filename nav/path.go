package nav

import "strings"

// paramSigil marks a route segment as a named parameter.
const paramSigil = ':'

// Param is a single extracted path parameter.
type Param struct {
	Name  string
	Value string
}

// Params holds extracted path parameters in pattern order.
type Params []Param

// Get returns the value bound to name.
func (p Params) Get(name string) (string, bool) {
	for _, param := range p {
		if param.Name == name {
			return param.Value, true
		}
	}
	return "", false
}

// Value returns the value bound to name, or the empty string.
func (p Params) Value(name string) string {
	v, _ := p.Get(name)
	return v
}

// Names returns the parameter names in pattern order.
func (p Params) Names() []string {
	names := make([]string, len(p))
	for i, param := range p {
		names[i] = param.Name
	}
	return names
}

// Map copies the parameters into a map. Order is lost.
func (p Params) Map() map[string]string {
	m := make(map[string]string, len(p))
	for _, param := range p {
		m[param.Name] = param.Value
	}
	return m
}

// Segments splits path on '/' and drops empty segments, so leading,
// trailing and doubled slashes are tolerated.
func Segments(path string) []string {
	parts := strings.Split(path, "/")
	segs := parts[:0]
	for _, part := range parts {
		if part != "" {
			segs = append(segs, part)
		}
	}
	return segs
}

// Normalize returns the canonical form of path: a single leading slash,
// no trailing or doubled slashes.
func Normalize(path string) string {
	return "/" + strings.Join(Segments(path), "/")
}

// MatchSegments matches URL segments against route segments. Arity must be equal;
// parameter segments bind the raw URL segment, literal segments must be
// byte-for-byte equal.
func MatchSegments(routeSegments, urlSegments []string) (Params, bool) {
	if len(routeSegments) != len(urlSegments) {
		return nil, false
	}

	params := Params{}
	for i, seg := range routeSegments {
		if isParam(seg) {
			params = append(params, Param{Name: seg[1:], Value: urlSegments[i]})
			continue
		}
		if seg != urlSegments[i] {
			return nil, false
		}
	}
	return params, true
}

func isParam(seg string) bool {
	return len(seg) > 0 && seg[0] == paramSigil
}
