package nav

import "sync"

// History is the session's location and navigation history.
type History interface {
	// Location returns the current path.
	Location() string
	// Push appends a new entry and makes it current.
	Push(path string) error
	// Replace overwrites the current entry.
	Replace(path string) error
}

// PopStateSource is implemented by histories that can report back/forward
// moves made outside the router.
type PopStateSource interface {
	OnPopState(fn func())
}

// MountPoint is the single container the router owns. Replace swaps all of
// its content for fragment; there is no diffing.
type MountPoint interface {
	Replace(fragment []byte) error
}

// MemoryHistory is an in-process History with back/forward support.
type MemoryHistory struct {
	mu        sync.Mutex
	entries   []string
	index     int
	listeners []func()
}

// NewMemoryHistory creates a history whose only entry is start.
func NewMemoryHistory(start string) *MemoryHistory {
	return &MemoryHistory{entries: []string{Normalize(start)}}
}

func (h *MemoryHistory) Location() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entries[h.index]
}

func (h *MemoryHistory) Push(path string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries[:h.index+1], path)
	h.index++
	return nil
}

func (h *MemoryHistory) Replace(path string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries[h.index] = path
	return nil
}

func (h *MemoryHistory) OnPopState(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners = append(h.listeners, fn)
}

// Back moves one entry back and fires popstate listeners. It reports
// false at the first entry.
func (h *MemoryHistory) Back() bool {
	return h.move(-1)
}

// Forward moves one entry forward and fires popstate listeners.
func (h *MemoryHistory) Forward() bool {
	return h.move(1)
}

// Entries returns a copy of the history stack.
func (h *MemoryHistory) Entries() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string{}, h.entries...)
}

// Len returns the number of entries.
func (h *MemoryHistory) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

func (h *MemoryHistory) move(delta int) bool {
	h.mu.Lock()
	next := h.index + delta
	if next < 0 || next >= len(h.entries) {
		h.mu.Unlock()
		return false
	}
	h.index = next
	listeners := append([]func(){}, h.listeners...)
	h.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
	return true
}

// MemoryMount is a MountPoint that keeps the last fragment in memory.
type MemoryMount struct {
	mu       sync.Mutex
	content  []byte
	replaced int
}

// NewMemoryMount creates an empty mount point.
func NewMemoryMount() *MemoryMount {
	return &MemoryMount{}
}

func (m *MemoryMount) Replace(fragment []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.content = append(m.content[:0:0], fragment...)
	m.replaced++
	return nil
}

// Content returns the mounted fragment.
func (m *MemoryMount) Content() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return string(m.content)
}

// Replacements returns how many times the content was replaced.
func (m *MemoryMount) Replacements() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.replaced
}
