// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package diagram

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// TEST ENGINES
// =============================================================================

// gatedEngine blocks each render until its source is released.
type gatedEngine struct {
	mu    sync.Mutex
	gates map[string]chan struct{}
	calls []string
}

func newGatedEngine() *gatedEngine {
	return &gatedEngine{gates: make(map[string]chan struct{})}
}

func (e *gatedEngine) gate(source string) chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	g, ok := e.gates[source]
	if !ok {
		g = make(chan struct{})
		e.gates[source] = g
	}
	return g
}

func (e *gatedEngine) release(source string) {
	close(e.gate(source))
}

func (e *gatedEngine) Render(_ context.Context, id, source string) (string, error) {
	e.mu.Lock()
	e.calls = append(e.calls, id)
	e.mu.Unlock()

	<-e.gate(source)
	if strings.HasPrefix(source, "bad") {
		return "", errors.New("syntax error")
	}
	return "<svg>" + source + "</svg>", nil
}

func waitFor(t *testing.T, c *Controller, status Status) State {
	t.Helper()
	var st State
	require.Eventually(t, func() bool {
		st = c.State()
		return st.Status == status
	}, 2*time.Second, 5*time.Millisecond)
	return st
}

// =============================================================================
// CONTROLLER TESTS
// =============================================================================

func TestController_InitialPlaceholder(t *testing.T) {
	c := NewController(newGatedEngine())
	st := c.State()
	assert.Equal(t, StatusPlaceholder, st.Status)
	assert.Equal(t, "Enable preview to render the diagram", st.Message)
}

func TestController_RendersWhenEnabled(t *testing.T) {
	engine := newGatedEngine()
	c := NewController(engine)
	defer c.Close()

	gen := c.Update("graph TD", true)
	assert.Equal(t, uint64(1), gen)

	st := c.State()
	assert.Equal(t, StatusRendering, st.Status)
	assert.Empty(t, st.SVG, "previous fragment is cleared while rendering")
	assert.True(t, strings.HasPrefix(st.ID, "diagram-"))

	engine.release("graph TD")
	st = waitFor(t, c, StatusRendered)
	assert.Equal(t, "<svg>graph TD</svg>", st.SVG)
}

func TestController_StaleCompletionDropped(t *testing.T) {
	engine := newGatedEngine()
	c := NewController(engine)
	defer c.Close()

	c.Update("first", true)
	c.Update("second", true)

	// Newer render finishes first.
	engine.release("second")
	st := waitFor(t, c, StatusRendered)
	assert.Equal(t, "<svg>second</svg>", st.SVG)

	// The older one resolves afterwards and must not overwrite it.
	engine.release("first")
	c.Wait()

	st = c.State()
	assert.Equal(t, StatusRendered, st.Status)
	assert.Equal(t, "<svg>second</svg>", st.SVG)
	assert.Equal(t, uint64(2), st.Generation)
}

func TestController_FreshIDPerAttempt(t *testing.T) {
	engine := newGatedEngine()
	c := NewController(engine)
	defer func() {
		engine.release("a")
		engine.release("b")
		c.Close()
	}()

	c.Update("a", true)
	id1 := c.State().ID
	c.Update("b", true)
	id2 := c.State().ID

	assert.NotEmpty(t, id1)
	assert.NotEqual(t, id1, id2)
}

func TestController_Failure(t *testing.T) {
	engine := newGatedEngine()
	c := NewController(engine, WithMessages(NewMessages("de")))
	defer c.Close()

	c.Update("bad graph", true)
	engine.release("bad graph")

	st := waitFor(t, c, StatusFailed)
	assert.Equal(t, "Diagramm konnte nicht gerendert werden: syntax error", st.Message)
	assert.Error(t, st.Err)
	assert.Empty(t, st.SVG)
}

func TestController_DisableShowsPlaceholderAndDropsRender(t *testing.T) {
	engine := newGatedEngine()
	c := NewController(engine)
	defer c.Close()

	c.Update("graph", true)
	c.Update("graph", false)

	st := c.State()
	assert.Equal(t, StatusPlaceholder, st.Status)

	engine.release("graph")
	c.Wait()
	assert.Equal(t, StatusPlaceholder, c.State().Status)
}

func TestController_RepeatedUpdateIsNoop(t *testing.T) {
	engine := newGatedEngine()
	c := NewController(engine)
	defer c.Close()

	g1 := c.Update("same", true)
	g2 := c.Update("same", true)
	assert.Equal(t, g1, g2)

	engine.release("same")
	waitFor(t, c, StatusRendered)

	engine.mu.Lock()
	calls := len(engine.calls)
	engine.mu.Unlock()
	assert.Equal(t, 1, calls)
}

func TestController_NotifyAndClose(t *testing.T) {
	engine := newGatedEngine()
	var mu sync.Mutex
	var seen []Status
	c := NewController(engine, WithNotify(func(s State) {
		mu.Lock()
		seen = append(seen, s.Status)
		mu.Unlock()
	}))

	c.Update("x", true)
	engine.release("x")
	waitFor(t, c, StatusRendered)
	c.Close()

	gen := c.Generation()
	assert.Equal(t, gen, c.Update("y", true), "updates after Close are ignored")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []Status{StatusRendering, StatusRendered}, seen)
}

// =============================================================================
// SET TESTS
// =============================================================================

func TestSet_TracksBlocks(t *testing.T) {
	engine := newGatedEngine()
	engine.release("one")
	engine.release("two")
	engine.release("three")

	s := NewSet(engine, nil)
	defer s.Close()

	s.Update([]Source{{Index: 0, Code: "one"}, {Index: 1, Code: "two"}}, true)
	s.Wait()
	require.Equal(t, 2, s.Len())

	states := s.States()
	assert.Equal(t, "<svg>one</svg>", states[0].SVG)
	assert.Equal(t, "<svg>two</svg>", states[1].SVG)

	s.Update([]Source{{Index: 0, Code: "three"}}, true)
	s.Wait()
	require.Equal(t, 1, s.Len())
	st, ok := s.State(0)
	require.True(t, ok)
	assert.Equal(t, "<svg>three</svg>", st.SVG)

	_, ok = s.State(5)
	assert.False(t, ok)

	select {
	case ev := <-s.Events():
		assert.Equal(t, 0, ev.Index)
	default:
		t.Fatal("expected at least one event")
	}
}

func TestSet_Disabled(t *testing.T) {
	s := NewSet(newGatedEngine(), NewMessages("en"))
	defer s.Close()

	s.Update([]Source{{Code: "graph"}}, false)
	states := s.States()
	require.Len(t, states, 1)
	assert.Equal(t, StatusPlaceholder, states[0].Status)
}

func TestSet_ConcurrentUpdatesApplyWhole(t *testing.T) {
	s := NewSet(newGatedEngine(), nil)
	defer s.Close()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			code := strings.Repeat("x", i)
			s.Update([]Source{{Index: 0, Code: code}, {Index: 1, Code: code}, {Index: 2, Code: code}}, false)
		}(i)
	}
	wg.Wait()

	states := s.States()
	require.Len(t, states, 3)
	for _, st := range states[1:] {
		assert.Equal(t, states[0].Source, st.Source)
	}
}

// flakyEngine fails its first render and succeeds afterwards.
type flakyEngine struct {
	mu    sync.Mutex
	calls int
}

func (e *flakyEngine) Render(_ context.Context, _, source string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.calls == 1 {
		return "", errors.New("engine crashed")
	}
	return "<svg>" + source + "</svg>", nil
}

func TestSet_RefreshRetriesFailedRender(t *testing.T) {
	s := NewSet(&flakyEngine{}, nil)
	defer s.Close()

	s.Update([]Source{{Code: "graph"}}, true)
	s.Wait()
	st, _ := s.State(0)
	require.Equal(t, StatusFailed, st.Status)

	// Same source again is a no-op; only Refresh re-renders.
	s.Update([]Source{{Code: "graph"}}, true)
	s.Wait()
	again, _ := s.State(0)
	assert.Equal(t, st.Generation, again.Generation)

	s.Refresh()
	s.Wait()
	st, _ = s.State(0)
	assert.Equal(t, StatusRendered, st.Status)
	assert.Equal(t, "<svg>graph</svg>", st.SVG)
	assert.Greater(t, st.Generation, again.Generation)
}

// =============================================================================
// MERMAID CLI TESTS
// =============================================================================

type fakeRunner struct {
	args    []string
	stderr  string
	err     error
	missing bool
}

func (r *fakeRunner) LookPath(name string) (string, error) {
	if r.missing {
		return "", errors.New("not found")
	}
	return "/usr/bin/" + name, nil
}

func (r *fakeRunner) Run(_ context.Context, name string, args ...string) (string, string, error) {
	r.args = args
	if r.err != nil {
		return "", r.stderr, r.err
	}
	for i, a := range args {
		if a == "-o" && i+1 < len(args) {
			if err := os.WriteFile(args[i+1], []byte("<svg id=\"x\"/>"), 0600); err != nil {
				return "", "", err
			}
		}
	}
	return "", "", nil
}

func TestMermaidCLI_Render(t *testing.T) {
	runner := &fakeRunner{}
	m := NewMermaidCLI("")
	m.Runner = runner

	svg, err := m.Render(context.Background(), "diagram-1", "graph TD\nA-->B")
	require.NoError(t, err)
	assert.Equal(t, "<svg id=\"x\"/>", svg)
	assert.Contains(t, runner.args, "--svgId")
	assert.Contains(t, runner.args, "diagram-1")
}

func TestMermaidCLI_Errors(t *testing.T) {
	m := NewMermaidCLI("mmdc")

	m.Runner = &fakeRunner{}
	_, err := m.Render(context.Background(), "id", "   ")
	assert.ErrorIs(t, err, ErrEmptySource)

	m.Runner = &fakeRunner{missing: true}
	_, err = m.Render(context.Background(), "id", "graph")
	assert.ErrorIs(t, err, ErrEngineUnavailable)

	m.Runner = &fakeRunner{err: errors.New("exit status 1"), stderr: "\nParse error on line 2\nmore"}
	_, err = m.Render(context.Background(), "id", "graph")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Parse error on line 2")
}

func TestMessages_FallbackToEnglish(t *testing.T) {
	m := NewMessages("not a tag!")
	assert.Equal(t, "Failed to render diagram: boom", m.RenderFailed(errors.New("boom")))
}
