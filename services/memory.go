package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Services implementation used in development
// and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	guests   map[string]*Guest
	centers  map[string]*Center
	accounts map[string]*Account
	now      func() time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		guests:   make(map[string]*Guest),
		centers:  make(map[string]*Center),
		accounts: make(map[string]*Account),
		now:      time.Now,
	}
}

// NewSeededStore creates a store with a small demo data set.
func NewSeededStore() *MemoryStore {
	s := NewMemoryStore()
	created := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	s.PutCenter(&Center{ID: "north", Name: "North Shelter", City: "Lisbon", Capacity: 40})
	s.PutCenter(&Center{ID: "south", Name: "South House", City: "Porto", Capacity: 25})
	s.PutGuest(&Guest{ID: "g-1", FirstName: "Ana", LastName: "Silva", CenterID: "north", Status: "active", CreatedAt: created})
	s.PutGuest(&Guest{ID: "g-2", FirstName: "Rui", LastName: "Costa", CenterID: "north", Status: "pending", CreatedAt: created})
	s.PutGuest(&Guest{ID: "g-3", FirstName: "Marta", LastName: "Lopes", CenterID: "south", Status: "active", CreatedAt: created})
	s.PutAccount(&Account{ID: "admin", Username: "admin", Email: "admin@casedesk.local", Role: "administrator"})
	s.PutAccount(&Account{ID: "sara", Username: "sara", Email: "sara@casedesk.local", Role: "supervisor"})
	return s
}

// PutGuest inserts or replaces a guest.
func (s *MemoryStore) PutGuest(g *Guest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *g
	s.guests[g.ID] = &cp
}

// PutCenter inserts or replaces a center.
func (s *MemoryStore) PutCenter(c *Center) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.centers[c.ID] = &cp
}

// PutAccount inserts or replaces an account.
func (s *MemoryStore) PutAccount(a *Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	s.accounts[a.ID] = &cp
}

func (s *MemoryStore) ListGuests(ctx context.Context) ([]*Guest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedGuests(s.guests, func(*Guest) bool { return true }), nil
}

func (s *MemoryStore) GetGuest(ctx context.Context, guestID string) (*Guest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.guests[guestID]
	if !ok {
		return nil, fmt.Errorf("guest %q: %w", guestID, ErrNotFound)
	}
	cp := *g
	return &cp, nil
}

func (s *MemoryStore) ListGuestsByCenter(ctx context.Context, centerID string) ([]*Guest, error) {
	if _, err := s.GetCenter(ctx, centerID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedGuests(s.guests, func(g *Guest) bool { return g.CenterID == centerID }), nil
}

func (s *MemoryStore) ListCenters(ctx context.Context) ([]*Center, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Center, 0, len(s.centers))
	for _, c := range s.centers {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) GetCenter(ctx context.Context, centerID string) (*Center, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.centers[centerID]
	if !ok {
		return nil, fmt.Errorf("center %q: %w", centerID, ErrNotFound)
	}
	cp := *c
	return &cp, nil
}

func (s *MemoryStore) ListAccounts(ctx context.Context) ([]*Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) GetAccount(ctx context.Context, accountID string) (*Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[accountID]
	if !ok {
		return nil, fmt.Errorf("account %q: %w", accountID, ErrNotFound)
	}
	cp := *a
	return &cp, nil
}

func (s *MemoryStore) BuildReport(ctx context.Context) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r := &Report{
		GeneratedAt:    s.now(),
		TotalGuests:    len(s.guests),
		TotalCenters:   len(s.centers),
		GuestsByCenter: make(map[string]int, len(s.centers)),
	}
	for _, g := range s.guests {
		if g.Status == "active" {
			r.ActiveGuests++
		}
		r.GuestsByCenter[g.CenterID]++
	}
	return r, nil
}

// sortedGuests must be called with s.mu held.
func sortedGuests(all map[string]*Guest, keep func(*Guest) bool) []*Guest {
	out := make([]*Guest, 0, len(all))
	for _, g := range all {
		if keep(g) {
			cp := *g
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
