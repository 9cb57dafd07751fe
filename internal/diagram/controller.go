// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package diagram

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jeranaias/mdsplit/internal/logging"
)

// =============================================================================
// STATE
// =============================================================================

// Status is the lifecycle position of a diagram.
type Status int

const (
	StatusPlaceholder Status = iota // Preview disabled; nothing rendered
	StatusRendering                 // Render in flight; previous output cleared
	StatusRendered                  // SVG available
	StatusFailed                    // Render failed; Message explains why
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusPlaceholder:
		return "placeholder"
	case StatusRendering:
		return "rendering"
	case StatusRendered:
		return "rendered"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// State is a snapshot of a Controller.
type State struct {
	Status     Status `json:"status"`
	Generation uint64 `json:"generation"`
	// ID is the unique id of the render attempt ("diagram-<uuid>").
	ID      string `json:"id,omitempty"`
	Source  string `json:"source"`
	SVG     string `json:"svg,omitempty"`
	Message string `json:"message,omitempty"`
	Err     error  `json:"-"`
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Option configures a Controller.
type Option func(*Controller)

// WithMessages sets the message catalog.
func WithMessages(m *Messages) Option {
	return func(c *Controller) { c.msgs = m }
}

// WithNotify registers a callback invoked after every applied state change.
// It runs outside the controller lock and must not block for long.
func WithNotify(fn func(State)) Option {
	return func(c *Controller) { c.notify = fn }
}

// WithIDGenerator replaces the render id generator.
func WithIDGenerator(fn func() string) Option {
	return func(c *Controller) { c.newID = fn }
}

// Controller renders one diagram block. Update is the only trigger; it may
// be called from any goroutine.
type Controller struct {
	engine Engine
	msgs   *Messages
	notify func(State)
	newID  func() string

	mu      sync.Mutex
	gen     uint64
	cancel  context.CancelFunc
	state   State
	source  string
	enabled bool
	started bool
	closed  bool

	wg sync.WaitGroup
}

// NewController creates a controller in the Placeholder state.
func NewController(engine Engine, opts ...Option) *Controller {
	c := &Controller{
		engine: engine,
		msgs:   NewMessages("en"),
		newID:  func() string { return "diagram-" + uuid.NewString() },
	}
	for _, opt := range opts {
		opt(c)
	}
	c.state = State{Status: StatusPlaceholder, Message: c.msgs.Placeholder()}
	return c
}

// Update re-triggers the controller for source with preview enabled or not.
// Repeating the previous (source, enabled) pair is a no-op. It returns the
// generation in effect after the call.
func (c *Controller) Update(source string, enabled bool) uint64 {
	c.mu.Lock()
	if c.closed {
		gen := c.gen
		c.mu.Unlock()
		return gen
	}
	if c.started && source == c.source && enabled == c.enabled {
		gen := c.gen
		c.mu.Unlock()
		return gen
	}
	c.started = true
	c.source = source
	c.enabled = enabled
	state := c.triggerLocked()
	c.mu.Unlock()

	c.publish(state)
	return state.Generation
}

// Refresh renders the current source again, e.g. after a failure.
func (c *Controller) Refresh() uint64 {
	c.mu.Lock()
	if c.closed || !c.started {
		gen := c.gen
		c.mu.Unlock()
		return gen
	}
	state := c.triggerLocked()
	c.mu.Unlock()

	c.publish(state)
	return state.Generation
}

// triggerLocked starts a new generation. Callers hold c.mu.
func (c *Controller) triggerLocked() State {
	c.gen++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}

	if !c.enabled {
		c.state = State{
			Status:     StatusPlaceholder,
			Generation: c.gen,
			Source:     c.source,
			Message:    c.msgs.Placeholder(),
		}
		return c.state
	}

	// Clear the previous fragment before starting.
	id := c.newID()
	c.state = State{
		Status:     StatusRendering,
		Generation: c.gen,
		ID:         id,
		Source:     c.source,
		Message:    c.msgs.Rendering(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	gen, source := c.gen, c.source

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()
		svg, err := c.engine.Render(ctx, id, source)
		c.complete(gen, id, svg, err)
	}()

	return c.state
}

// complete applies a render result if gen is still current.
func (c *Controller) complete(gen uint64, id, svg string, err error) {
	c.mu.Lock()
	if c.closed || gen != c.gen {
		current := c.gen
		c.mu.Unlock()
		logging.Get().Debug("stale diagram render dropped",
			zap.String("id", id),
			zap.Uint64("generation", gen),
			zap.Uint64("current", current),
		)
		return
	}
	c.cancel = nil

	if err != nil {
		c.state = State{
			Status:     StatusFailed,
			Generation: gen,
			ID:         id,
			Source:     c.source,
			Message:    c.msgs.RenderFailed(err),
			Err:        err,
		}
		logging.Get().Warn("diagram render failed",
			zap.String("id", id),
			zap.Error(err),
		)
	} else {
		c.state = State{
			Status:     StatusRendered,
			Generation: gen,
			ID:         id,
			Source:     c.source,
			SVG:        svg,
		}
	}
	state := c.state
	c.mu.Unlock()

	c.publish(state)
}

func (c *Controller) publish(s State) {
	if c.notify != nil {
		c.notify(s)
	}
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Generation returns the current generation.
func (c *Controller) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// Wait blocks until every started render goroutine has returned.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Close cancels any in-flight render and waits for it to return. Later
// Updates are ignored.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.mu.Unlock()
	c.wg.Wait()
}
