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
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"sync"
)

// PayloadDecoder rebuilds a Payload from its JSON encoding.
type PayloadDecoder func(data json.RawMessage) (Payload, error)

var payloadRegistry = struct {
	sync.RWMutex
	decoders map[string]PayloadDecoder
}{decoders: make(map[string]PayloadDecoder)}

// RegisterPayload installs the decoder used to restore payloads of kind.
//
// Description:
//
//	Payload values are encoded as their own JSON (via encoding/json) tagged
//	with PayloadKind. Decoding a snapshot that holds a kind without a
//	registered decoder fails with ErrUnknownPayload. Registering a kind
//	twice replaces the previous decoder.
//
// Thread Safety:
//
//	Safe for concurrent use. Usually called from init.
func RegisterPayload(kind string, dec PayloadDecoder) {
	payloadRegistry.Lock()
	defer payloadRegistry.Unlock()
	payloadRegistry.decoders[kind] = dec
}

func lookupPayload(kind string) (PayloadDecoder, bool) {
	payloadRegistry.RLock()
	defer payloadRegistry.RUnlock()
	dec, ok := payloadRegistry.decoders[kind]
	return dec, ok
}

// valueJSON is the tagged wire form of a Value.
type valueJSON struct {
	Kind    string          `json:"k"`
	Payload string          `json:"t,omitempty"`
	Value   json.RawMessage `json:"v,omitempty"`
}

// MarshalJSON encodes v in tagged form, for example {"k":"number","v":12.5}.
// Non-finite numbers are written as strings: {"k":"number","v":"-Inf"}.
func (v Value) MarshalJSON() ([]byte, error) {
	w := valueJSON{Kind: v.kind.String()}
	var (
		raw []byte
		err error
	)
	switch v.kind {
	case KindNull:
		return json.Marshal(w)
	case KindNumber:
		raw, err = marshalNumber(v.num)
	case KindText:
		raw, err = json.Marshal(v.text)
	case KindBool:
		raw, err = json.Marshal(v.flag)
	case KindList:
		list := v.list
		if list == nil {
			list = []Value{}
		}
		raw, err = json.Marshal(list)
	case KindMap:
		raw, err = json.Marshal(v.m)
	case KindPayload:
		w.Payload = v.payload.PayloadKind()
		raw, err = json.Marshal(v.payload)
	default:
		return nil, fmt.Errorf("graph: cannot encode value of kind %d", v.kind)
	}
	if err != nil {
		return nil, err
	}
	w.Value = raw
	return json.Marshal(w)
}

func marshalNumber(f float64) ([]byte, error) {
	switch {
	case math.IsNaN(f):
		return json.Marshal("NaN")
	case math.IsInf(f, 1):
		return json.Marshal("+Inf")
	case math.IsInf(f, -1):
		return json.Marshal("-Inf")
	}
	return json.Marshal(f)
}

func unmarshalNumber(raw json.RawMessage) (float64, error) {
	if len(raw) == 0 || raw[0] != '"' {
		var f float64
		err := json.Unmarshal(raw, &f)
		return f, err
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, err
	}
	switch s {
	case "NaN", "+Inf", "-Inf":
		return strconv.ParseFloat(s, 64)
	}
	return 0, fmt.Errorf("%q is not a non-finite number", s)
}

// UnmarshalJSON decodes the tagged form written by MarshalJSON.
func (v *Value) UnmarshalJSON(data []byte) error {
	var w valueJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	switch w.Kind {
	case "null":
		*v = Null()
	case "number":
		f, err := unmarshalNumber(w.Value)
		if err != nil {
			return fmt.Errorf("graph: decode number: %w", err)
		}
		*v = Number(f)
	case "text":
		var s string
		if err := json.Unmarshal(w.Value, &s); err != nil {
			return fmt.Errorf("graph: decode text: %w", err)
		}
		*v = Text(s)
	case "bool":
		var b bool
		if err := json.Unmarshal(w.Value, &b); err != nil {
			return fmt.Errorf("graph: decode bool: %w", err)
		}
		*v = Bool(b)
	case "list":
		var list []Value
		if err := json.Unmarshal(w.Value, &list); err != nil {
			return fmt.Errorf("graph: decode list: %w", err)
		}
		if list == nil {
			list = []Value{}
		}
		*v = Value{kind: KindList, list: list}
	case "map":
		p := NewProperties()
		if err := json.Unmarshal(w.Value, p); err != nil {
			return fmt.Errorf("graph: decode map: %w", err)
		}
		*v = Map(p)
	case "payload":
		dec, ok := lookupPayload(w.Payload)
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownPayload, w.Payload)
		}
		p, err := dec(w.Value)
		if err != nil {
			return fmt.Errorf("graph: decode payload %q: %w", w.Payload, err)
		}
		*v = PayloadValue(p)
	default:
		return fmt.Errorf("graph: unknown value kind %q", w.Kind)
	}
	return nil
}

// propertyJSON is one entry of the wire form of Properties.
type propertyJSON struct {
	Key   string `json:"key"`
	Value Value  `json:"value"`
}

// MarshalJSON encodes p as an ordered list of key/value entries.
func (p *Properties) MarshalJSON() ([]byte, error) {
	entries := make([]propertyJSON, 0, p.Len())
	p.Range(func(key string, v Value) bool {
		entries = append(entries, propertyJSON{Key: key, Value: v})
		return true
	})
	return json.Marshal(entries)
}

// UnmarshalJSON decodes the ordered entry list written by MarshalJSON,
// replacing any existing content.
func (p *Properties) UnmarshalJSON(data []byte) error {
	var entries []propertyJSON
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	p.keys = make([]string, 0, len(entries))
	p.values = make(map[string]Value, len(entries))
	for _, e := range entries {
		if p.Has(e.Key) {
			return fmt.Errorf("graph: duplicate property key %q", e.Key)
		}
		p.Set(e.Key, e.Value)
	}
	return nil
}
