// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

// Field is a single key/value pair used to build Properties.
type Field struct {
	Key   string
	Value Value
}

// Prop returns a Field. It reads well in NewProperties calls:
//
//	graph.NewProperties(graph.Prop("area", graph.Number(12.5)))
func Prop(key string, v Value) Field {
	return Field{Key: key, Value: v}
}

// Properties is an insertion-ordered mapping from string keys to Values.
//
// Description:
//
//	Keys keep the order in which they were first set. Setting an existing
//	key replaces its value in place; deleting and re-adding a key moves it
//	to the end. Order matters to the sequential adapter, which emits fields
//	in insertion order.
//
// Thread Safety:
//
//	Not safe for concurrent use.
//
// Read methods are safe on a nil *Properties, which behaves as empty.
type Properties struct {
	keys   []string
	values map[string]Value
}

// NewProperties returns a Properties holding fields in the given order.
// A repeated key keeps its first position and its last value.
func NewProperties(fields ...Field) *Properties {
	p := &Properties{
		keys:   make([]string, 0, len(fields)),
		values: make(map[string]Value, len(fields)),
	}
	for _, f := range fields {
		p.Set(f.Key, f.Value)
	}
	return p
}

// Len returns the number of keys.
func (p *Properties) Len() int {
	if p == nil {
		return 0
	}
	return len(p.keys)
}

// Keys returns the keys in insertion order. The slice is a copy.
func (p *Properties) Keys() []string {
	if p == nil {
		return nil
	}
	out := make([]string, len(p.keys))
	copy(out, p.keys)
	return out
}

// Get returns the value stored under key.
func (p *Properties) Get(key string) (Value, bool) {
	if p == nil {
		return Value{}, false
	}
	v, ok := p.values[key]
	return v, ok
}

// Has reports whether key is present.
func (p *Properties) Has(key string) bool {
	_, ok := p.Get(key)
	return ok
}

// Set stores v under key, appending key if it is new.
func (p *Properties) Set(key string, v Value) {
	if p.values == nil {
		p.values = make(map[string]Value)
	}
	if _, exists := p.values[key]; !exists {
		p.keys = append(p.keys, key)
	}
	p.values[key] = v
}

// Delete removes key. It reports whether the key was present.
func (p *Properties) Delete(key string) bool {
	if p == nil {
		return false
	}
	if _, exists := p.values[key]; !exists {
		return false
	}
	delete(p.values, key)
	for i, k := range p.keys {
		if k == key {
			p.keys = append(p.keys[:i], p.keys[i+1:]...)
			break
		}
	}
	return true
}

// Range calls fn for each entry in insertion order until fn returns false.
func (p *Properties) Range(fn func(key string, v Value) bool) {
	if p == nil {
		return
	}
	for _, k := range p.keys {
		if !fn(k, p.values[k]) {
			return
		}
	}
}

// Fields returns the entries in insertion order.
func (p *Properties) Fields() []Field {
	if p == nil {
		return nil
	}
	out := make([]Field, len(p.keys))
	for i, k := range p.keys {
		out[i] = Field{Key: k, Value: p.values[k]}
	}
	return out
}

// Clone returns a deep copy. Cloning nil yields an empty map.
func (p *Properties) Clone() *Properties {
	if p == nil {
		return NewProperties()
	}
	c := &Properties{
		keys:   make([]string, len(p.keys)),
		values: make(map[string]Value, len(p.values)),
	}
	copy(c.keys, p.keys)
	for k, v := range p.values {
		c.values[k] = v.Clone()
	}
	return c
}

// Equal reports whether both maps hold the same keys with Equal values.
// Key order is ignored. nil and empty are equal.
func (p *Properties) Equal(o *Properties) bool {
	if p.Len() != o.Len() {
		return false
	}
	equal := true
	p.Range(func(key string, v Value) bool {
		ov, ok := o.Get(key)
		if !ok || !v.Equal(ov) {
			equal = false
			return false
		}
		return true
	})
	return equal
}
