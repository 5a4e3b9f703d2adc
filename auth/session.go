package auth

import (
	"sync"

	"github.com/yshengliao/casedesk/nav"
)

// Session holds the auth state of one page session. It implements
// nav.AuthOracle; Login and Logout are the only mutators.
type Session struct {
	jwt *JWTService

	mu     sync.RWMutex
	token  string
	claims *Claims
}

// NewSession creates an anonymous session.
func NewSession(jwt *JWTService) *Session {
	return &Session{jwt: jwt}
}

// Login validates token and, on success, replaces the session's state.
// A rejected token leaves the previous state untouched.
func (s *Session) Login(token string) (*Claims, error) {
	if s.jwt == nil {
		return nil, ErrInvalidToken
	}
	claims, err := s.jwt.ValidateToken(token)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.claims = claims
	return claims, nil
}

// Logout clears the session.
func (s *Session) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.claims = nil
}

// Claims returns the claims of the current token, or nil.
func (s *Session) Claims() *Claims {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.claims
}

func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != ""
}

func (s *Session) HasPermission(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.claims == nil {
		return false
	}
	for _, p := range s.claims.Permissions {
		if p == name {
			return true
		}
	}
	return false
}

func (s *Session) HasRole(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.claims != nil && s.claims.Role != "" && s.claims.Role == name
}

func (s *Session) State() nav.AuthState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return stateOf(s.token, s.claims)
}

// OracleFromToken validates token and returns an immutable oracle for it.
func (s *JWTService) OracleFromToken(token string) (nav.StaticOracle, error) {
	claims, err := s.ValidateToken(token)
	if err != nil {
		return nav.StaticOracle{}, err
	}
	return nav.NewStaticOracle(stateOf(token, claims)), nil
}

func stateOf(token string, claims *Claims) nav.AuthState {
	if claims == nil {
		return nav.AuthState{Token: token}
	}
	return nav.AuthState{
		Token: token,
		User: &nav.User{
			ID:       claims.UserID,
			Username: claims.Username,
			Email:    claims.Email,
		},
		Role:        claims.Role,
		Permissions: append([]string{}, claims.Permissions...),
	}
}
