// Package services provides the case-management data interfaces the pages read from
package services

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Guest is a person whose case is handled by a center.
type Guest struct {
	ID        string
	FirstName string
	LastName  string
	CenterID  string
	Status    string // "active", "pending", "closed"
	CreatedAt time.Time
}

// Center is a facility that hosts guests.
type Center struct {
	ID       string
	Name     string
	City     string
	Capacity int
}

// Account is a staff member of the back office.
type Account struct {
	ID       string
	Username string
	Email    string
	Role     string
}

// Report summarizes the current case load.
type Report struct {
	GeneratedAt    time.Time
	TotalGuests    int
	ActiveGuests   int
	TotalCenters   int
	GuestsByCenter map[string]int
}

// GuestService defines read access to guests
type GuestService interface {
	ListGuests(ctx context.Context) ([]*Guest, error)
	GetGuest(ctx context.Context, guestID string) (*Guest, error)
	ListGuestsByCenter(ctx context.Context, centerID string) ([]*Guest, error)
}

// CenterService defines read access to centers
type CenterService interface {
	ListCenters(ctx context.Context) ([]*Center, error)
	GetCenter(ctx context.Context, centerID string) (*Center, error)
}

// AccountService defines read access to staff accounts
type AccountService interface {
	ListAccounts(ctx context.Context) ([]*Account, error)
	GetAccount(ctx context.Context, accountID string) (*Account, error)
}

// ReportService builds case-load reports
type ReportService interface {
	BuildReport(ctx context.Context) (*Report, error)
}

// Services bundles everything the pages need.
type Services interface {
	GuestService
	CenterService
	AccountService
	ReportService
}
