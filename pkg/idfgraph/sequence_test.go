// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package idfgraph

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/openbuilding/pkg/graph"
)

// assertPath checks the chain shape: at most one head and one tail, and
// every node reachable from the head.
func assertPath(t *testing.T, s *Sequence) {
	t.Helper()
	g := s.Graph()
	heads, tails := 0, 0
	for _, n := range g.Nodes() {
		in := g.PredecessorNodes(n, graph.ByEdgeName(EdgeNext))
		out := g.SuccessorNodes(n, graph.ByEdgeName(EdgeNext))
		assert.LessOrEqual(t, len(in), 1)
		assert.LessOrEqual(t, len(out), 1)
		if len(in) == 0 {
			heads++
		}
		if len(out) == 0 {
			tails++
		}
	}
	if g.NodeCount() == 0 {
		return
	}
	assert.Equal(t, 1, heads, "heads")
	assert.Equal(t, 1, tails, "tails")
	assert.Len(t, s.Records(), g.NodeCount())
}

func labels(s *Sequence) []string {
	var out []string
	for _, n := range s.Records() {
		out = append(out, s.Label(n))
	}
	return out
}

func TestRemoveHead(t *testing.T) {
	s, err := ParseString("Version,8.9;\nZone,Room1;\n")
	require.NoError(t, err)
	require.Equal(t, 2, s.Len())

	head, ok := s.Head()
	require.True(t, ok)
	tail, ok := s.Tail()
	require.True(t, ok)
	next, ok := s.Next(head)
	require.True(t, ok)
	assert.Equal(t, tail, next)
	assert.Equal(t, "Version", s.Label(head))

	s.RemoveNode(head)

	out, err := s.Serialize()
	require.NoError(t, err)
	assert.Equal(t, "Zone,Room1;\n", out)
	assertPath(t, s)
}

func TestAppend(t *testing.T) {
	s := New()
	a := s.Append([]string{"Version"}, graph.NewProperties(graph.Prop("A1", graph.Text("8.9"))))
	b := s.Append([]string{"Timestep"}, graph.NewProperties(graph.Prop("N1", graph.Int(4))))
	c := s.Append([]string{"RunPeriod"}, nil)

	assert.Equal(t, []graph.NodeID{a, b, c}, s.Records())
	prev, ok := s.Previous(b)
	require.True(t, ok)
	assert.Equal(t, a, prev)
	_, ok = s.Previous(a)
	assert.False(t, ok)
	_, ok = s.Next(c)
	assert.False(t, ok)
	assertPath(t, s)

	out, err := s.Serialize()
	require.NoError(t, err)
	assert.Equal(t, "Version,8.9;\nTimestep,4;\nRunPeriod;\n", out)
}

func TestRemoveNode(t *testing.T) {
	tests := []struct {
		name   string
		remove int
		want   []string
	}{
		{"head", 0, []string{"B", "C", "D"}},
		{"middle", 1, []string{"A", "C", "D"}},
		{"tail", 3, []string{"A", "B", "C"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s, err := ParseString("A;B;C;D;")
			require.NoError(t, err)
			s.RemoveNode(s.Records()[tc.remove])

			assert.Equal(t, tc.want, labels(s))
			assertPath(t, s)

			// appending after removal still extends the tail
			s.Append([]string{"E"}, nil)
			assert.Equal(t, append(tc.want, "E"), labels(s))
			assertPath(t, s)
		})
	}

	t.Run("down to empty", func(t *testing.T) {
		s, err := ParseString("A;B;")
		require.NoError(t, err)
		for _, n := range s.Records() {
			s.RemoveNode(n)
		}
		assert.Equal(t, 0, s.Len())
		_, ok := s.Head()
		assert.False(t, ok)
		out, err := s.Serialize()
		require.NoError(t, err)
		assert.Equal(t, "", out)
	})

	t.Run("stale handle panics", func(t *testing.T) {
		s, _ := ParseString("A;")
		n, _ := s.Head()
		s.RemoveNode(n)
		assert.Panics(t, func() { s.RemoveNode(n) })
	})
}

func TestRecords_StopsOnCycle(t *testing.T) {
	s, err := ParseString("A;B;")
	require.NoError(t, err)
	head, _ := s.Head()
	tail, _ := s.Tail()
	_, err = s.Graph().AddEdge(tail, head, EdgeNext, nil)
	require.NoError(t, err)

	// every node now has a predecessor, so the head falls back to nothing
	assert.Empty(t, s.Records())
}

func TestWrapAndCopy(t *testing.T) {
	s, err := ParseString("A;B;")
	require.NoError(t, err)

	view := Wrap(s.Graph())
	assert.Equal(t, labels(s), labels(view))

	c := s.Copy()
	c.RemoveNode(c.Records()[0])
	assert.Equal(t, []string{"A", "B"}, labels(s))
	assert.Equal(t, []string{"B"}, labels(c))
}

func TestWriteTo(t *testing.T) {
	s, err := ParseString("Version,9.6;")
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := s.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, "Version,9.6;\n", buf.String())
	assert.Equal(t, int64(buf.Len()), n)

	s.Graph().SetProperty(s.Records()[0], "bad", graph.Map(nil))
	_, err = s.WriteTo(&buf)
	assert.True(t, errors.Is(err, ErrUnsupportedValue))
}
