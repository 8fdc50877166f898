// Copyright 2026 © The Unifai SDK Authors
// SPDX-License-Identifier: Apache-2.0

package toolkit

import (
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/unifai-network/unifai-sdk-go/pkg/errors"
)

// State is the lifecycle stage of a Registry.
type State int32

const (
	StateCreated State = iota
	StateRegistering
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRegistering:
		return "registering"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Registry maps action names to actions. Registration is only allowed before
// Freeze; afterwards the set is immutable and lookups take no lock.
type Registry struct {
	mu      sync.RWMutex
	state   atomic.Int32
	actions map[string]Action
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{actions: make(map[string]Action)}
}

// Register adds an action. Duplicate names are rejected.
func (r *Registry) Register(action Action) error {
	if action == nil {
		return errors.New(errors.CodeConfiguration, "action is nil", nil)
	}
	name := action.Name()
	if strings.TrimSpace(name) == "" {
		return errors.New(errors.CodeConfiguration, "action name is required", nil)
	}
	if strings.TrimSpace(action.Definition().Description) == "" {
		return errors.Newf(errors.CodeConfiguration, "action %q has no description", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	switch state := r.State(); state {
	case StateRunning, StateStopped:
		return errors.Newf(errors.CodeConfiguration, "cannot register action %q: registry is %s", name, state).
			WithContext("action", name)
	}
	if _, exists := r.actions[name]; exists {
		return errors.Newf(errors.CodeConfiguration, "action %q is already registered", name).
			WithContext("action", name)
	}
	r.actions[name] = action
	r.state.Store(int32(StateRegistering))
	return nil
}

// Freeze closes registration and moves the registry to Running. Freezing a
// running registry is a no-op.
func (r *Registry) Freeze() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.State() == StateStopped {
		return errors.New(errors.CodeConfiguration, "registry is stopped", nil)
	}
	r.state.Store(int32(StateRunning))
	return nil
}

// Stop marks the registry as stopped. Lookups keep working so in-flight calls
// can finish.
func (r *Registry) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.Store(int32(StateStopped))
}

// State returns the current lifecycle stage.
func (r *Registry) State() State {
	return State(r.state.Load())
}

// Lookup finds an action by exact, case-sensitive name.
func (r *Registry) Lookup(name string) (Action, bool) {
	if r.State() >= StateRunning {
		action, ok := r.actions[name]
		return action, ok
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	action, ok := r.actions[name]
	return action, ok
}

// Len returns the number of registered actions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.actions)
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.actions))
	for name := range r.actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definitions returns the definitions of all actions sorted by name.
func (r *Registry) Definitions() []Definition {
	names := r.Names()
	defs := make([]Definition, 0, len(names))
	for _, name := range names {
		action, _ := r.Lookup(name)
		def := action.Definition()
		def.Name = name
		defs = append(defs, def)
	}
	return defs
}

// registration builds the registerActions payload.
func (r *Registry) registration() RegisterActions {
	defs := r.Definitions()
	msg := RegisterActions{Actions: make(map[string]Definition, len(defs))}
	for _, def := range defs {
		msg.Actions[def.Name] = def
	}
	return msg
}
