// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package epjson

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/openbuilding/pkg/graph"
)

const houseSample = `{
  "Version": {"Version 1": {"version_identifier": "9.6"}},
  "Zone": {
    "Living": {"x_origin": 0, "multiplier": 1, "ceiling_height": "Autocalculate"},
    "Bedroom": {"x_origin": 4.5, "multiplier": 1}
  },
  "BuildingSurface:Detailed": {
    "Wall 1": {
      "zone_name": "Living",
      "vertices": [
        {"vertex_x_coordinate": 0, "vertex_y_coordinate": 0},
        {"vertex_x_coordinate": 4.5, "vertex_y_coordinate": 0}
      ],
      "outside_boundary_condition_object": null,
      "sun_exposed": true
    }
  }
}`

func TestRead(t *testing.T) {
	g, err := Read(strings.NewReader(houseSample))
	require.NoError(t, err)
	assert.Equal(t, 4, g.NodeCount())
	assert.Equal(t, 0, g.EdgeCount())

	zones := g.FilterNodesByLabel("Zone")
	require.Len(t, zones, 2)
	assert.Equal(t, []string{"id", "x_origin", "multiplier", "ceiling_height"}, g.Properties(zones[0]).Keys())

	living, ok := g.FilterNodeByProperty(PropID, graph.Text("Living"))
	require.True(t, ok)
	assert.Equal(t, zones[0], living)

	x, _ := g.Property(zones[1], "x_origin")
	assert.True(t, x.Equal(graph.Number(4.5)))

	wall, ok := g.LookupOne("BuildingSurface:Detailed")
	require.True(t, ok)
	vertices, _ := g.Property(wall, "vertices")
	items, ok := vertices.AsList()
	require.True(t, ok)
	require.Len(t, items, 2)
	first, ok := items[0].AsMap()
	require.True(t, ok)
	assert.Equal(t, []string{"vertex_x_coordinate", "vertex_y_coordinate"}, first.Keys())

	cond, _ := g.Property(wall, "outside_boundary_condition_object")
	assert.True(t, cond.IsNull())
	sun, _ := g.Property(wall, "sun_exposed")
	assert.True(t, sun.Equal(graph.Bool(true)))
}

func TestRoundTrip(t *testing.T) {
	g, err := Read(strings.NewReader(houseSample))
	require.NoError(t, err)

	var first bytes.Buffer
	require.NoError(t, Write(g, &first))

	again, err := Read(bytes.NewReader(first.Bytes()))
	require.NoError(t, err)
	require.Equal(t, g.NodeCount(), again.NodeCount())

	for _, n := range g.Nodes() {
		id, _ := g.Property(n, PropID)
		m, ok := again.FilterNodeByProperty(PropID, id)
		require.True(t, ok, "instance %s", id)
		assert.Equal(t, g.PrimaryLabel(n), again.PrimaryLabel(m))
		assert.True(t, g.Properties(n).Equal(again.Properties(m)), "fields of %s", id)
	}

	var second bytes.Buffer
	require.NoError(t, Write(again, &second))
	assert.Equal(t, first.String(), second.String(), "output is deterministic")
}

func TestWrite_Format(t *testing.T) {
	g := graph.New()
	g.AddNode([]string{"Zone"}, graph.NewProperties(
		graph.Prop(PropID, graph.Text("Z1")),
		graph.Prop("b", graph.Int(2)),
		graph.Prop("a", graph.Text("x & y")),
	))

	var buf bytes.Buffer
	require.NoError(t, Write(g, &buf))
	assert.Equal(t, `{
    "Zone": {
        "Z1": {
            "a": "x & y",
            "b": 2
        }
    }
}
`, buf.String())
}

func TestWrite_Errors(t *testing.T) {
	t.Run("missing id", func(t *testing.T) {
		g := graph.New()
		g.AddNode([]string{"Zone"}, nil)
		assert.ErrorIs(t, Write(g, &bytes.Buffer{}), ErrMissingID)
	})

	t.Run("non-text id", func(t *testing.T) {
		g := graph.New()
		g.AddNode([]string{"Zone"}, graph.NewProperties(graph.Prop(PropID, graph.Int(1))))
		assert.ErrorIs(t, Write(g, &bytes.Buffer{}), ErrMissingID)
	})

	t.Run("duplicate id", func(t *testing.T) {
		g := graph.New()
		for i := 0; i < 2; i++ {
			g.AddNode([]string{"Zone"}, graph.NewProperties(graph.Prop(PropID, graph.Text("Z"))))
		}
		assert.ErrorIs(t, Write(g, &bytes.Buffer{}), ErrDuplicateID)
	})
}

func TestRead_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"not an object", `[]`, ErrMalformedDocument},
		{"type is not an object", `{"Zone": 1}`, ErrMalformedDocument},
		{"instance is not an object", `{"Zone": {"Z1": 3}}`, ErrMalformedDocument},
		{"truncated", `{"Zone": {"Z1": {"a": 1}`, ErrMalformedDocument},
		{"trailing data", `{} {}`, ErrMalformedDocument},
		{"id field", `{"Zone": {"Z1": {"id": "x"}}}`, ErrMalformedDocument},
		{"duplicate instance", `{"Zone": {"Z1": {}, "Z1": {}}}`, ErrDuplicateID},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tc.input))
			assert.ErrorIs(t, err, tc.want)
		})
	}
}
