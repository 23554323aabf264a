package models

// Context is the accumulated key-value output of successfully completed
// capabilities within a run. It is immutable: With returns a new Context
// and never modifies the receiver, so concurrent steps can read a
// consistent snapshot without locking.
type Context struct {
	values map[string]any
}

// NewContext returns an empty execution context.
func NewContext() Context {
	return Context{values: map[string]any{}}
}

// ContextFrom builds a context from an existing key-value map.
// The map is copied; later changes to it do not affect the context.
func ContextFrom(values map[string]any) Context {
	c := Context{values: make(map[string]any, len(values))}
	for k, v := range values {
		c.values[k] = v
	}
	return c
}

// Value returns the value stored under key and whether it exists.
func (c Context) Value(key string) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

// Has returns true if every given key is present.
func (c Context) Has(keys ...string) bool {
	for _, k := range keys {
		if _, ok := c.values[k]; !ok {
			return false
		}
	}
	return true
}

// Len returns the number of stored keys.
func (c Context) Len() int {
	return len(c.values)
}

// With returns a new context containing the receiver's entries plus the
// given outputs. Capabilities write disjoint key sets, so merge order
// between siblings does not matter.
func (c Context) With(outputs map[string]any) Context {
	merged := Context{values: make(map[string]any, len(c.values)+len(outputs))}
	for k, v := range c.values {
		merged.values[k] = v
	}
	for k, v := range outputs {
		merged.values[k] = v
	}
	return merged
}

// Map returns a copy of the stored values for serialization.
func (c Context) Map() map[string]any {
	out := make(map[string]any, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}
