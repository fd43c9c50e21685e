// Package event carries state change notifications out of the simulator.
//
// The simulator never depends on a listener being present: with no
// listeners attached, Emit returns immediately.
package event

import (
	"fmt"
	"sync"
)

// Kind is the type of state change.
type Kind int

const (
	REGISTER_WRITE  = Kind(0) // register
	MEMORY_WRITE    = Kind(1) // memory
	CONDITION_WRITE = Kind(2) // condition
)

func (k Kind) String() string {
	switch k {
	case REGISTER_WRITE:
		return "register"
	case MEMORY_WRITE:
		return "memory"
	case CONDITION_WRITE:
		return "condition"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Event describes a single state change.
type Event struct {
	Kind    Kind
	Name    string // Register or flag name, or the segment name for memory.
	Number  int    // Register or flag number.
	Address uint32 // Memory address.
	Width   int    // Memory access width, in bytes.
	Value   uint32 // New value.
	Old     uint32 // Previous value.
}

func (ev Event) String() string {
	switch ev.Kind {
	case MEMORY_WRITE:
		return fmt.Sprintf("%v[%#08x/%d] %#x -> %#x", ev.Kind, ev.Address, ev.Width, ev.Old, ev.Value)
	default:
		return fmt.Sprintf("%v %v %#x -> %#x", ev.Kind, ev.Name, ev.Old, ev.Value)
	}
}

// Listener receives events.
type Listener func(ev Event)

// Bus distributes events to listeners. The zero value is ready to use,
// and a nil *Bus silently drops all events.
type Bus struct {
	mutex     sync.RWMutex
	next      int
	listeners map[int]Listener
}

// Subscribe adds a listener, returning the function that removes it.
func (bus *Bus) Subscribe(listener Listener) (cancel func()) {
	bus.mutex.Lock()
	defer bus.mutex.Unlock()

	if bus.listeners == nil {
		bus.listeners = make(map[int]Listener)
	}

	id := bus.next
	bus.next++
	bus.listeners[id] = listener

	cancel = func() {
		bus.mutex.Lock()
		defer bus.mutex.Unlock()
		delete(bus.listeners, id)
	}

	return
}

// Active returns true if any listener is attached.
func (bus *Bus) Active() bool {
	if bus == nil {
		return false
	}

	bus.mutex.RLock()
	defer bus.mutex.RUnlock()

	return len(bus.listeners) != 0
}

// Emit sends an event to all listeners.
func (bus *Bus) Emit(ev Event) {
	if !bus.Active() {
		return
	}

	bus.mutex.RLock()
	defer bus.mutex.RUnlock()

	for _, listener := range bus.listeners {
		listener(ev)
	}
}
