// Package tools defines the tools agents can call and a registry of them.
package tools

import (
	"context"
	"fmt"
	"sort"

	"github.com/ShayCichocki/kai/pkg/models"
)

// maxOutput caps the size of any tool output handed back to a model.
const maxOutput = 30000

// Parameter describes one string input of a tool.
type Parameter struct {
	Name        string
	Description string
	Required    bool
	// Enum optionally restricts the accepted values.
	Enum []string
}

// Definition is the catalogue entry a reasoner sees for a tool.
type Definition struct {
	Name        string
	Description string
	Parameters  []Parameter
}

// Tool is a named capability an agent can invoke. A returned error means
// the tool itself broke; expected failures are reported as models.Failure.
type Tool interface {
	Name() string
	Description() string
	Parameters() []Parameter
	Execute(ctx context.Context, input map[string]string) (models.ToolResult, error)
}

// DefinitionOf returns the catalogue entry for t.
func DefinitionOf(t Tool) Definition {
	return Definition{Name: t.Name(), Description: t.Description(), Parameters: t.Parameters()}
}

// Registry holds tools by name.
type Registry struct {
	tools map[string]Tool
}

// NewRegistry creates a registry containing the given tools.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		r.Register(t)
	}
	return r
}

// Register adds or replaces a tool.
func (r *Registry) Register(t Tool) {
	r.tools[t.Name()] = t
}

// Get returns the named tool.
func (r *Registry) Get(name string) (Tool, bool) {
	if r == nil {
		return nil, false
	}
	t, ok := r.tools[name]
	return t, ok
}

// Names returns the registered tool names, sorted.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definitions returns the catalogue, sorted by name.
func (r *Registry) Definitions() []Definition {
	var defs []Definition
	for _, name := range r.Names() {
		defs = append(defs, DefinitionOf(r.tools[name]))
	}
	return defs
}

// Subset returns a registry restricted to the named tools. Unknown names
// are an error so role profiles cannot silently lose a tool.
func (r *Registry) Subset(names ...string) (*Registry, error) {
	sub := NewRegistry()
	for _, name := range names {
		t, ok := r.Get(name)
		if !ok {
			return nil, fmt.Errorf("unknown tool %q", name)
		}
		sub.Register(t)
	}
	return sub, nil
}

// missing returns the first required parameter absent from input.
func missing(params []Parameter, input map[string]string) string {
	for _, p := range params {
		if p.Required && input[p.Name] == "" {
			return p.Name
		}
	}
	return ""
}

func truncate(s string) string {
	if len(s) > maxOutput {
		return s[:maxOutput] + "\n... (output truncated)"
	}
	return s
}
