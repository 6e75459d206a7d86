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

import (
	"math"
	"strconv"
	"strings"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	// KindNull is the absent value. The zero Value is Null.
	KindNull Kind = iota

	// KindNumber holds a float64.
	KindNumber

	// KindText holds a string.
	KindText

	// KindBool holds a bool.
	KindBool

	// KindList holds an ordered sequence of Values.
	KindList

	// KindMap holds a nested, insertion-ordered *Properties.
	KindMap

	// KindPayload holds an adapter-specific Payload.
	KindPayload
)

// kindNames maps Kind values to their string representations.
var kindNames = map[Kind]string{
	KindNull:    "null",
	KindNumber:  "number",
	KindText:    "text",
	KindBool:    "bool",
	KindList:    "list",
	KindMap:     "map",
	KindPayload: "payload",
}

// String returns the string representation of the Kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Payload is the typed escape hatch for adapter-specific property values
// (for example a time series attached to a simulation output node).
//
// Implementations must be safe to copy through ClonePayload: the clone must
// not share mutable storage with the receiver.
type Payload interface {
	// PayloadKind names the payload type. It keys the snapshot registry.
	PayloadKind() string

	// ClonePayload returns an independent deep copy.
	ClonePayload() Payload

	// EqualPayload reports whether other holds the same content.
	EqualPayload(other Payload) bool
}

// Value is a closed variant over the property value kinds.
//
// Values are immutable from the outside except for the *Properties held by a
// Map value, which is shared until Clone is called.
type Value struct {
	kind    Kind
	num     float64
	text    string
	flag    bool
	list    []Value
	m       *Properties
	payload Payload
}

// Null returns the Null value.
func Null() Value { return Value{} }

// Number returns a Number value.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Int returns a Number value holding i.
func Int(i int) Value { return Value{kind: KindNumber, num: float64(i)} }

// Text returns a Text value.
func Text(s string) Value { return Value{kind: KindText, text: s} }

// Bool returns a Bool value.
func Bool(b bool) Value { return Value{kind: KindBool, flag: b} }

// List returns a List value. The elements are copied.
func List(items ...Value) Value {
	list := make([]Value, len(items))
	copy(list, items)
	return Value{kind: KindList, list: list}
}

// Map returns a Map value wrapping p. A nil p becomes an empty map.
func Map(p *Properties) Value {
	if p == nil {
		p = NewProperties()
	}
	return Value{kind: KindMap, m: p}
}

// PayloadValue returns a Payload value. A nil payload yields Null.
func PayloadValue(p Payload) Value {
	if p == nil {
		return Null()
	}
	return Value{kind: KindPayload, payload: p}
}

// Kind returns the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is Null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsNumber returns the number held by v.
func (v Value) AsNumber() (float64, bool) {
	return v.num, v.kind == KindNumber
}

// AsText returns the string held by v.
func (v Value) AsText() (string, bool) {
	return v.text, v.kind == KindText
}

// AsBool returns the bool held by v.
func (v Value) AsBool() (bool, bool) {
	return v.flag, v.kind == KindBool
}

// AsList returns a copy of the elements held by v.
func (v Value) AsList() ([]Value, bool) {
	if v.kind != KindList {
		return nil, false
	}
	out := make([]Value, len(v.list))
	copy(out, v.list)
	return out, true
}

// AsMap returns the nested map held by v. The map is shared, not copied.
func (v Value) AsMap() (*Properties, bool) {
	if v.kind != KindMap {
		return nil, false
	}
	return v.m, true
}

// AsPayload returns the payload held by v.
func (v Value) AsPayload() (Payload, bool) {
	if v.kind != KindPayload {
		return nil, false
	}
	return v.payload, true
}

// Clone returns a deep copy of v with no storage shared with the original.
func (v Value) Clone() Value {
	switch v.kind {
	case KindList:
		list := make([]Value, len(v.list))
		for i, item := range v.list {
			list[i] = item.Clone()
		}
		return Value{kind: KindList, list: list}
	case KindMap:
		return Value{kind: KindMap, m: v.m.Clone()}
	case KindPayload:
		return Value{kind: KindPayload, payload: v.payload.ClonePayload()}
	default:
		return v
	}
}

// Equal reports exact equality: same kind and same content, no coercion.
// Text("1") is not equal to Number(1). Map equality ignores key order. A
// NaN Number equals another NaN, so Equal is reflexive.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindNumber:
		return v.num == o.num || (math.IsNaN(v.num) && math.IsNaN(o.num))
	case KindText:
		return v.text == o.text
	case KindBool:
		return v.flag == o.flag
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		return v.m.Equal(o.m)
	case KindPayload:
		return v.payload.EqualPayload(o.payload)
	default:
		return false
	}
}

// Interface converts v to plain Go values: nil, float64, string, bool,
// []any, map[string]any, or the Payload itself.
func (v Value) Interface() any {
	switch v.kind {
	case KindNumber:
		return v.num
	case KindText:
		return v.text
	case KindBool:
		return v.flag
	case KindList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item.Interface()
		}
		return out
	case KindMap:
		out := make(map[string]any, v.m.Len())
		v.m.Range(func(key string, val Value) bool {
			out[key] = val.Interface()
			return true
		})
		return out
	case KindPayload:
		return v.payload
	default:
		return nil
	}
}

// String renders v for display. Numbers use the shortest representation
// that round-trips; Null renders as the empty string.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindText:
		return v.text
	case KindBool:
		return strconv.FormatBool(v.flag)
	case KindList:
		parts := make([]string, len(v.list))
		for i, item := range v.list {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, " ") + "]"
	case KindMap:
		var b strings.Builder
		b.WriteByte('{')
		first := true
		v.m.Range(func(key string, val Value) bool {
			if !first {
				b.WriteByte(' ')
			}
			first = false
			b.WriteString(key)
			b.WriteByte(':')
			b.WriteString(val.String())
			return true
		})
		b.WriteByte('}')
		return b.String()
	case KindPayload:
		return "<" + v.payload.PayloadKind() + ">"
	default:
		return ""
	}
}
