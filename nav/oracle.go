package nav

// User is the identity record carried by an auth state.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// AuthState is a read-only snapshot of the authentication collaborator.
type AuthState struct {
	Token       string   `json:"-"`
	User        *User    `json:"user,omitempty"`
	Role        string   `json:"role,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

// AuthOracle is the router's only view of authentication. The router reads
// it on every navigation and never mutates it.
type AuthOracle interface {
	IsAuthenticated() bool
	HasPermission(name string) bool
	HasRole(name string) bool
	State() AuthState
}

// StaticOracle answers from a fixed AuthState.
type StaticOracle struct {
	state AuthState
}

// NewStaticOracle creates an oracle over a copy of state.
func NewStaticOracle(state AuthState) StaticOracle {
	state.Permissions = append([]string{}, state.Permissions...)
	return StaticOracle{state: state}
}

// Anonymous is an oracle with no credentials.
var Anonymous = StaticOracle{}

func (o StaticOracle) IsAuthenticated() bool { return o.state.Token != "" }

func (o StaticOracle) HasPermission(name string) bool {
	for _, p := range o.state.Permissions {
		if p == name {
			return true
		}
	}
	return false
}

func (o StaticOracle) HasRole(name string) bool {
	return o.state.Role != "" && o.state.Role == name
}

func (o StaticOracle) State() AuthState {
	state := o.state
	state.Permissions = append([]string{}, o.state.Permissions...)
	return state
}
