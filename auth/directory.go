package auth

import (
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// User is a directory entry.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Role         string
	Permissions  []string
}

// Directory is the set of users allowed to log in.
type Directory struct {
	mu    sync.RWMutex
	users map[string]User
}

// NewDirectory creates a directory holding users.
func NewDirectory(users []User) *Directory {
	d := &Directory{}
	d.Replace(users)
	return d
}

// Replace swaps the whole user set.
func (d *Directory) Replace(users []User) {
	m := make(map[string]User, len(users))
	for _, u := range users {
		if u.ID == "" {
			u.ID = u.Username
		}
		m[u.Username] = u
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.users = m
}

// Len returns the number of users.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.users)
}

// Lookup returns the user named username.
func (d *Directory) Lookup(username string) (User, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[username]
	return u, ok
}

// Authenticate checks username and password against the stored bcrypt hash.
func (d *Directory) Authenticate(username, password string) (User, error) {
	u, ok := d.Lookup(username)
	if !ok {
		return User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

// HashPassword returns a bcrypt hash suitable for the user directory.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
