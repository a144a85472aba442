package history

import (
	"errors"
	"fmt"
	"sync"
)

// ErrStateTooLarge is returned when a state exceeds MemoryStack.MaxStateSize.
var ErrStateTooLarge = errors.New("history: state too large")

type slot struct {
	url   string
	state []byte
}

// MemoryStack is an in-process Stack with browser semantics: pushing
// truncates forward slots and traversal fires popstate listeners. Nothing
// outlives the process.
type MemoryStack struct {
	// MaxStateSize caps the encoded size of a slot's state, as browsers
	// cap serialized history state. Zero means no limit. Set before use.
	MaxStateSize int

	mu        sync.Mutex
	slots     []slot
	pos       int
	listeners []func()
}

// NewMemoryStack starts a stack with one stateless slot for url.
func NewMemoryStack(url string) *MemoryStack {
	return &MemoryStack{slots: []slot{{url: url}}}
}

// PushState implements Stack.
func (m *MemoryStack) PushState(state []byte, url string) error {
	if err := m.checkSize(state); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots = append(m.slots[:m.pos+1], slot{url: url, state: clone(state)})
	m.pos = len(m.slots) - 1
	return nil
}

// ReplaceState implements Stack.
func (m *MemoryStack) ReplaceState(state []byte, url string) error {
	if err := m.checkSize(state); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots[m.pos] = slot{url: url, state: clone(state)}
	return nil
}

func (m *MemoryStack) checkSize(state []byte) error {
	if m.MaxStateSize > 0 && len(state) > m.MaxStateSize {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrStateTooLarge, len(state), m.MaxStateSize)
	}
	return nil
}

// State implements Stack.
func (m *MemoryStack) State() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return clone(m.slots[m.pos].state)
}

// URL implements Stack.
func (m *MemoryStack) URL() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slots[m.pos].url
}

// Visit adds a stateless slot, as when the user reaches a location the
// controller never saw (typed URL, in-page fragment jump).
func (m *MemoryStack) Visit(url string) {
	_ = m.PushState(nil, url)
}

// OnPopState registers fn to run after every traversal.
func (m *MemoryStack) OnPopState(fn func()) {
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

// Back moves one slot back. It reports false at the start of the stack.
func (m *MemoryStack) Back() bool { return m.Go(-1) }

// Forward moves one slot forward. It reports false at the end of the stack.
func (m *MemoryStack) Forward() bool { return m.Go(1) }

// Go moves delta slots and fires popstate listeners. Out-of-range moves
// and a zero delta do nothing.
func (m *MemoryStack) Go(delta int) bool {
	m.mu.Lock()
	next := m.pos + delta
	if delta == 0 || next < 0 || next >= len(m.slots) {
		m.mu.Unlock()
		return false
	}
	m.pos = next
	listeners := append([]func(){}, m.listeners...)
	m.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
	return true
}

// Len returns the number of slots.
func (m *MemoryStack) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.slots)
}

// Index returns the active slot's position.
func (m *MemoryStack) Index() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pos
}

// URLs lists every slot's location, oldest first.
func (m *MemoryStack) URLs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	urls := make([]string, len(m.slots))
	for i, s := range m.slots {
		urls[i] = s.url
	}
	return urls
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}
