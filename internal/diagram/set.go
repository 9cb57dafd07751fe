// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package diagram

import (
	"sync"
)

// Source is one diagram block found in a document.
type Source struct {
	// Index is the position among the document's diagram blocks.
	Index    int    `json:"index"`
	Language string `json:"language"`
	Code     string `json:"code"`
}

// Event reports a state change of the diagram at Index.
type Event struct {
	Index int
	State State
}

// Set keeps one Controller per diagram block of a document. Blocks are
// matched by position: after an edit, block N is re-triggered with its new
// source and only re-renders if that source changed.
type Set struct {
	engine Engine
	msgs   *Messages

	// trigger is held across a whole Update or Refresh so controllers see
	// sources in call order.
	trigger sync.Mutex

	mu     sync.Mutex
	ctrls  []*Controller
	events chan Event
	closed bool
}

// NewSet creates an empty set. Events are delivered on a buffered channel;
// when the buffer is full events are dropped, States always has the truth.
func NewSet(engine Engine, msgs *Messages) *Set {
	if msgs == nil {
		msgs = NewMessages("en")
	}
	return &Set{
		engine: engine,
		msgs:   msgs,
		events: make(chan Event, 64),
	}
}

// Events returns the state change channel. It is never closed.
func (s *Set) Events() <-chan Event {
	return s.events
}

// Update re-triggers the set with the document's current diagram blocks.
// Concurrent calls are applied one after another.
func (s *Set) Update(sources []Source, enabled bool) {
	s.trigger.Lock()
	defer s.trigger.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	var removed []*Controller
	if len(sources) < len(s.ctrls) {
		removed = s.ctrls[len(sources):]
		s.ctrls = s.ctrls[:len(sources)]
	}
	for len(s.ctrls) < len(sources) {
		index := len(s.ctrls)
		s.ctrls = append(s.ctrls, NewController(s.engine,
			WithMessages(s.msgs),
			WithNotify(func(st State) { s.emit(index, st) }),
		))
	}
	ctrls := append([]*Controller(nil), s.ctrls...)
	s.mu.Unlock()

	for _, c := range removed {
		go c.Close()
	}
	for i, c := range ctrls {
		c.Update(sources[i].Code, enabled)
	}
}

func (s *Set) emit(index int, st State) {
	select {
	case s.events <- Event{Index: index, State: st}:
	default:
	}
}

// Len returns the number of tracked diagrams.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ctrls)
}

// States returns the state of every diagram in document order.
func (s *Set) States() []State {
	s.mu.Lock()
	ctrls := append([]*Controller(nil), s.ctrls...)
	s.mu.Unlock()

	states := make([]State, len(ctrls))
	for i, c := range ctrls {
		states[i] = c.State()
	}
	return states
}

// State returns the state of diagram index.
func (s *Set) State(index int) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.ctrls) {
		return State{}, false
	}
	return s.ctrls[index].State(), true
}

// Refresh re-renders every diagram, e.g. after the engine failed.
func (s *Set) Refresh() {
	s.trigger.Lock()
	defer s.trigger.Unlock()

	s.mu.Lock()
	ctrls := append([]*Controller(nil), s.ctrls...)
	s.mu.Unlock()
	for _, c := range ctrls {
		c.Refresh()
	}
}

// Wait blocks until every in-flight render has returned.
func (s *Set) Wait() {
	s.mu.Lock()
	ctrls := append([]*Controller(nil), s.ctrls...)
	s.mu.Unlock()
	for _, c := range ctrls {
		c.Wait()
	}
}

// Close cancels all renders.
func (s *Set) Close() {
	s.mu.Lock()
	s.closed = true
	ctrls := s.ctrls
	s.ctrls = nil
	s.mu.Unlock()
	for _, c := range ctrls {
		c.Close()
	}
}
