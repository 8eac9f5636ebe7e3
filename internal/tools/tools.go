// Package tools exposes the virtual file tree to the model as a fixed set of
// named operations. Tools never fail with a Go error: every outcome is a
// Result whose text the model can read and react to.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

const (
	FailureMarker = "❌ "
	SuccessMarker = "✅ "
)

type Property struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// Schema describes tool arguments for prompt construction only; it is not
// enforced.
type Schema struct {
	Type                 string              `json:"type"`
	Properties           map[string]Property `json:"properties"`
	Required             []string            `json:"required"`
	AdditionalProperties bool                `json:"additionalProperties"`
}

type Definition struct {
	Name        string
	Description string
	InputSchema Schema
}

// Result is the structured outcome of an invocation. String renders it for
// the model.
type Result struct {
	OK      bool
	Message string
	// Raw results (file content, listings) are passed through without a
	// success marker.
	Raw bool
}

func Fail(format string, args ...any) Result {
	return Result{Message: fmt.Sprintf(format, args...)}
}

func Succeed(format string, args ...any) Result {
	return Result{OK: true, Message: fmt.Sprintf(format, args...)}
}

func Output(s string) Result {
	return Result{OK: true, Message: s, Raw: true}
}

func (r Result) String() string {
	switch {
	case !r.OK:
		return FailureMarker + r.Message
	case r.Raw:
		return r.Message
	default:
		return SuccessMarker + r.Message
	}
}

type Tool interface {
	Definition() Definition
	Invoke(ctx context.Context, input map[string]any) Result
}

// Registry keeps tools in registration order.
type Registry struct {
	mu    sync.RWMutex
	order []string
	tools map[string]Tool
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register inserts a tool when its name is not in use.
func (r *Registry) Register(tool Tool) error {
	if tool == nil {
		return fmt.Errorf("tool is nil")
	}
	name := tool.Definition().Name
	if name == "" {
		return fmt.Errorf("tool name is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %s already registered", name)
	}
	r.tools[name] = tool
	r.order = append(r.order, name)
	return nil
}

func (r *Registry) Lookup(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}

// Invoke runs the named tool. ok is false when no such tool is registered.
func (r *Registry) Invoke(ctx context.Context, name string, input map[string]any) (Result, bool) {
	t, ok := r.Lookup(name)
	if !ok {
		return Result{}, false
	}
	if input == nil {
		input = map[string]any{}
	}
	return t.Invoke(ctx, input), true
}

// Describe renders the tool block injected into the system prompt.
func (r *Registry) Describe() string {
	var blocks []string
	for _, d := range r.Definitions() {
		schema, _ := json.Marshal(d.InputSchema)
		blocks = append(blocks, fmt.Sprintf("%s\n   • Description: %s\n   • Input schema: %s", d.Name, d.Description, schema))
	}
	return strings.Join(blocks, "\n\n")
}

// Names returns registered tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

func stringArg(input map[string]any, key string) (string, bool) {
	v, ok := input[key]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
