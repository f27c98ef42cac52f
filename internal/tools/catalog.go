package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// Catalog is the immutable set of published tools, keyed by name.
type Catalog struct {
	byName  map[string]*Descriptor
	ordered []*Descriptor
}

// NewCatalog builds the full PwnDoc tool catalog.
func NewCatalog() *Catalog {
	groups := [][]*Descriptor{
		auditTools(),
		findingTools(),
		vulnerabilityTools(),
		clientTools(),
		companyTools(),
		userTools(),
		templateTools(),
		languageTools(),
		settingsTools(),
		imageTools(),
		dataTools(),
		collaborationTools(),
	}

	var all []*Descriptor
	for _, g := range groups {
		all = append(all, g...)
	}
	c, err := NewCatalogFrom(all)
	if err != nil {
		panic("tools: " + err.Error())
	}
	return c
}

// NewCatalogFrom builds a catalog from descriptors. Names must be unique
// and each descriptor needs exactly one of Path or Run.
func NewCatalogFrom(descriptors []*Descriptor) (*Catalog, error) {
	c := &Catalog{byName: make(map[string]*Descriptor, len(descriptors))}
	for _, d := range descriptors {
		if _, dup := c.byName[d.Name()]; dup {
			return nil, fmt.Errorf("duplicate tool %s", d.Name())
		}
		if (d.Path == "") == (d.Run == nil) {
			return nil, fmt.Errorf("%s needs exactly one of Path or Run", d.Name())
		}
		c.byName[d.Name()] = d
		c.ordered = append(c.ordered, d)
	}

	rank := make(map[string]int, len(categoryOrder))
	for i, cat := range categoryOrder {
		rank[cat] = i
	}
	slices.SortStableFunc(c.ordered, func(a, b *Descriptor) int {
		if ra, rb := rank[a.Category], rank[b.Category]; ra != rb {
			return ra - rb
		}
		return strings.Compare(a.Name(), b.Name())
	})
	return c, nil
}

// Len returns the number of tools.
func (c *Catalog) Len() int {
	return len(c.ordered)
}

// Lookup returns the descriptor for name.
func (c *Catalog) Lookup(name string) (*Descriptor, bool) {
	d, ok := c.byName[name]
	return d, ok
}

// Descriptors returns every descriptor in tools/list order.
func (c *Catalog) Descriptors() []*Descriptor {
	return slices.Clone(c.ordered)
}

// Tools returns the MCP tool definitions in a stable order.
func (c *Catalog) Tools() []mcp.Tool {
	out := make([]mcp.Tool, 0, len(c.ordered))
	for _, d := range c.ordered {
		out = append(out, d.Tool)
	}
	return out
}

// Resolve maps a direct tool call onto its HTTP call. It performs no I/O.
func (c *Catalog) Resolve(name string, args map[string]any) (Call, error) {
	d, ok := c.byName[name]
	if !ok {
		return Call{}, &UnknownToolError{Name: name}
	}
	if d.Aggregated() {
		return Call{}, fmt.Errorf("%s: %w", name, ErrAggregatedTool)
	}
	args = withDefaults(d, args)
	if err := checkRequired(d, args); err != nil {
		return Call{}, err
	}

	path, err := expandPath(name, d.Path, args)
	if err != nil {
		return Call{}, err
	}
	call := Call{Method: d.Method, Path: path}
	if d.Body != nil {
		if call.Body, err = d.Body(name, args); err != nil {
			return Call{}, err
		}
	}
	return call, nil
}

// Invoke runs a tool through exec and returns its JSON result.
func (c *Catalog) Invoke(ctx context.Context, exec Executor, name string, args map[string]any) (json.RawMessage, error) {
	d, ok := c.byName[name]
	if !ok {
		return nil, &UnknownToolError{Name: name}
	}
	if !d.Aggregated() {
		call, err := c.Resolve(name, args)
		if err != nil {
			return nil, err
		}
		return exec.Do(ctx, call.Method, call.Path, call.Body)
	}

	args = withDefaults(d, args)
	if err := checkRequired(d, args); err != nil {
		return nil, err
	}
	result, err := d.Run(ctx, exec, args)
	if err != nil {
		return nil, err
	}
	if raw, ok := result.(json.RawMessage); ok {
		return raw, nil
	}
	return json.Marshal(result)
}

func checkRequired(d *Descriptor, args map[string]any) error {
	for _, name := range d.Tool.InputSchema.Required {
		if v, ok := args[name]; !ok || v == nil {
			return &ArgumentError{Tool: d.Name(), Argument: name, Reason: "is required"}
		}
	}
	return nil
}

// withDefaults returns args with the descriptor's defaults filled in. The
// caller's map is not modified.
func withDefaults(d *Descriptor, args map[string]any) map[string]any {
	if len(d.Defaults) == 0 && args != nil {
		return args
	}
	out := make(map[string]any, len(args)+len(d.Defaults))
	for k, v := range d.Defaults {
		out[k] = v
	}
	for k, v := range args {
		if v != nil {
			out[k] = v
		}
	}
	return out
}
