// Package history keeps one record per visited location on a browser-like
// history stack so traversal can replay rendered content.
package history

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Offset is a viewport scroll position.
type Offset struct {
	X float64 `msgpack:"x"`
	Y float64 `msgpack:"y"`
}

// Entry is the record attached to one history slot.
type Entry struct {
	Location string  `msgpack:"location"`
	Title    string  `msgpack:"title"`
	Content  *string `msgpack:"content,omitempty"` // inner markup of the content region; nil when not cached
	Scroll   Offset  `msgpack:"scroll"`
	Ordinal  int     `msgpack:"ordinal"`
	Initial  bool    `msgpack:"initial,omitempty"`
}

// HasContent reports whether the entry carries cached markup.
func (e *Entry) HasContent() bool { return e.Content != nil }

// Stack is the host's history mechanism. States are opaque bytes attached
// to each slot.
type Stack interface {
	// PushState adds a slot after the active one and makes it active. A
	// rejected state leaves the stack unchanged.
	PushState(state []byte, url string) error
	// ReplaceState overwrites the active slot.
	ReplaceState(state []byte, url string) error
	// State returns the active slot's state, nil when it has none.
	State() []byte
	// URL returns the active slot's location.
	URL() string
}

// Store is the only reader and writer of entries on a Stack.
type Store struct {
	stack Stack
}

// NewStore wraps stack.
func NewStore(stack Stack) *Store {
	return &Store{stack: stack}
}

// ReplaceCurrent overwrites the active slot's record without adding a slot.
func (s *Store) ReplaceCurrent(e Entry) error {
	state, err := encode(e)
	if err != nil {
		return err
	}
	if err := s.stack.ReplaceState(state, e.Location); err != nil {
		return fmt.Errorf("replacing history entry: %w", err)
	}
	return nil
}

// Push adds a new top-of-stack record.
func (s *Store) Push(e Entry) error {
	state, err := encode(e)
	if err != nil {
		return err
	}
	if err := s.stack.PushState(state, e.Location); err != nil {
		return fmt.Errorf("pushing history entry: %w", err)
	}
	return nil
}

// Active returns the record of the active slot, or nil when the slot has
// none (reached outside the controller).
func (s *Store) Active() (*Entry, error) {
	state := s.stack.State()
	if state == nil {
		return nil, nil
	}
	var e Entry
	if err := msgpack.Unmarshal(state, &e); err != nil {
		return nil, fmt.Errorf("decoding history entry: %w", err)
	}
	return &e, nil
}

// Location returns the active slot's URL.
func (s *Store) Location() string {
	return s.stack.URL()
}

func encode(e Entry) ([]byte, error) {
	state, err := msgpack.Marshal(&e)
	if err != nil {
		return nil, fmt.Errorf("encoding history entry: %w", err)
	}
	return state, nil
}
