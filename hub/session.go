package hub

import (
	"errors"
	"sync"

	"github.com/yshengliao/casedesk/nav"
)

// ErrSendBufferFull is returned when a page session cannot accept more
// outbound messages.
var ErrSendBufferFull = errors.New("send buffer full")

// socketHistory mirrors the tab's history. Push and Replace are forwarded
// to the browser; back/forward moves arrive as popstate messages.
type socketHistory struct {
	client *Client

	mu        sync.Mutex
	location  string
	listeners []func()
}

var (
	_ nav.History        = (*socketHistory)(nil)
	_ nav.PopStateSource = (*socketHistory)(nil)
	_ nav.MountPoint     = (*socketMount)(nil)
)

func (h *socketHistory) Location() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.location
}

func (h *socketHistory) Push(path string) error {
	return h.apply("push", path)
}

func (h *socketHistory) Replace(path string) error {
	return h.apply("replace", path)
}

func (h *socketHistory) OnPopState(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners = append(h.listeners, fn)
}

func (h *socketHistory) apply(op, path string) error {
	ok := h.client.Send(&Message{
		Type: TypeHistory,
		Data: map[string]any{"op": op, "path": path},
	})
	if !ok {
		return ErrSendBufferFull
	}
	h.set(path)
	return nil
}

func (h *socketHistory) set(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.location = path
}

// pop records a location the browser already moved to and notifies
// listeners.
func (h *socketHistory) pop(path string) {
	h.mu.Lock()
	h.location = path
	listeners := append([]func(){}, h.listeners...)
	h.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

// socketMount forwards rendered fragments to the tab's mount point.
type socketMount struct {
	client *Client
}

func (m *socketMount) Replace(fragment []byte) error {
	ok := m.client.Send(&Message{
		Type: TypeMount,
		Data: map[string]any{"html": string(fragment)},
	})
	if !ok {
		return ErrSendBufferFull
	}
	return nil
}
