package object

import (
	"log/slog"
	"sync/atomic"
)

var nextID atomic.Uint64

// Environment is one frame of the scope chain: a name→value store plus a
// handle on the enclosing frame. The chain is singly linked toward globals
// and a frame's Outer never changes after creation; frames stay alive as
// long as the evaluator's current chain or some closure still points at
// them.
type Environment struct {
	ID    uint64
	store map[string]Object
	Outer *Environment
}

func nextEnvID() uint64 {
	return nextID.Add(1)
}

func NewEnvironment() *Environment {
	return &Environment{
		ID:    nextEnvID(),
		store: make(map[string]Object),
	}
}

// NewEnclosedEnvironment initializes an environment chained off outer.
func NewEnclosedEnvironment(outer *Environment) *Environment {
	env := NewEnvironment()
	env.Outer = outer
	slog.Debug("new enclosed env",
		slog.Uint64("id", env.ID),
		slog.Uint64("outer", outer.ID))
	return env
}

// Define binds name in this frame unconditionally. Re-defining an existing
// name silently replaces it; the resolver has already rejected block-scope
// re-declarations, so this leniency only applies to globals.
func (e *Environment) Define(name string, val Object) {
	e.store[name] = val
}

// Get searches this frame and then its ancestors.
func (e *Environment) Get(name string) (Object, bool) {
	if val, ok := e.store[name]; ok {
		return val, true
	}
	if e.Outer != nil {
		return e.Outer.Get(name)
	}
	return nil, false
}

// Assign mutates the nearest frame that already binds name; it reports
// false when no frame in the chain does.
func (e *Environment) Assign(name string, val Object) bool {
	if _, ok := e.store[name]; ok {
		e.store[name] = val
		return true
	}
	if e.Outer != nil {
		return e.Outer.Assign(name, val)
	}
	return false
}

// GetAt reads name from the frame exactly depth links out. There is no
// fallback: the resolver has proven the binding is there.
func (e *Environment) GetAt(depth int, name string) (Object, bool) {
	val, ok := e.ancestor(depth).store[name]
	return val, ok
}

// AssignAt writes name in the frame exactly depth links out.
func (e *Environment) AssignAt(depth int, name string, val Object) bool {
	frame := e.ancestor(depth)
	if _, ok := frame.store[name]; !ok {
		return false
	}
	frame.store[name] = val
	return true
}

func (e *Environment) ancestor(depth int) *Environment {
	env := e
	for i := 0; i < depth; i++ {
		env = env.Outer
	}
	return env
}
