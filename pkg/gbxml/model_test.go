// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package gbxml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/openbuilding/pkg/graph"
)

const sampleModel = `<?xml version="1.0" encoding="UTF-8"?>
<gbXML xmlns="http://www.gbxml.org/schema" version="6.01">
  <Campus id="campus1">
    <Location>
      <CADModelAzimuth>12.5</CADModelAzimuth>
    </Location>
    <Building id="bldg1" buildingType="SingleFamily">
      <Space id="sp1" zoneIdRef="z1" lightScheduleIdRef="sch-light" peopleScheduleIdRef="sch-people" equipmentScheduleIdRef="sch-equip"/>
      <Space id="sp2" zoneIdRef="z1"/>
    </Building>
    <Surface id="su1" surfaceType="InteriorWall" constructionIdRef="c1">
      <AdjacentSpaceId spaceIdRef="sp1"/>
      <AdjacentSpaceId spaceIdRef="sp2"/>
      <PlanarGeometry>
        <PolyLoop>
          <CartesianPoint><Coordinate>0</Coordinate><Coordinate>0</Coordinate><Coordinate>0</Coordinate></CartesianPoint>
          <CartesianPoint><Coordinate>4.5</Coordinate><Coordinate>0</Coordinate><Coordinate>2.7</Coordinate></CartesianPoint>
        </PolyLoop>
      </PlanarGeometry>
      <Opening id="op1" windowTypeIdRef="wt1"/>
    </Surface>
    <Surface id="su2" surfaceType="ExteriorWall" constructionIdRef="c1">
      <AdjacentSpaceId spaceIdRef="sp1"/>
    </Surface>
  </Campus>
  <Construction id="c1">
    <LayerId layerIdRef="l1"/>
    <LayerId layerIdRef="l2"/>
  </Construction>
  <Layer id="l1"><MaterialId materialIdRef="m1"/></Layer>
  <Layer id="l2"><MaterialId materialIdRef="m2"/><MaterialId materialIdRef="m3"/></Layer>
  <Material id="m1"/>
  <Material id="m2"/>
  <Material id="m3"/>
  <WindowType id="wt1">
    <Glaze id="g1"/>
    <Gap id="gap1"/>
    <Glaze id="g2"/>
    <Name>Double</Name>
  </WindowType>
  <Zone id="z1" heatSchedIdRef="sch-heat"/>
  <Schedule id="sch-light"/>
  <Schedule id="sch-people"/>
  <Schedule id="sch-equip"/>
  <Schedule id="sch-heat">
    <YearSchedule id="ys1"><WeekScheduleId weekScheduleIdRef="ws1"/></YearSchedule>
  </Schedule>
  <WeekSchedule id="ws1"><Day dayScheduleIdRef="ds1"/></WeekSchedule>
  <DaySchedule id="ds1"/>
</gbXML>`

func mustModel(t *testing.T) *Model {
	t.Helper()
	m, err := ParseString(sampleModel)
	require.NoError(t, err)
	require.True(t, m.IsGBXML())
	return m
}

func mustID(t *testing.T, m *Model, id string) graph.NodeID {
	t.Helper()
	n, ok := m.ByID(id)
	require.True(t, ok, "id %s", id)
	return n
}

// ids maps nodes to their id attributes.
func ids(m *Model, nodes []graph.NodeID) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		id, _ := m.ID(n)
		out = append(out, id)
	}
	return out
}

func TestIDRefAttribute(t *testing.T) {
	tests := []struct {
		tag  string
		want string
	}{
		{"Space", "spaceIdRef"},
		{"Construction", "constructionIdRef"},
		{"WindowType", "windowTypeIdRef"},
		{"WeekSchedule", "weekScheduleIdRef"},
		{"", "IdRef"},
	}
	for _, tc := range tests {
		t.Run(tc.tag, func(t *testing.T) {
			assert.Equal(t, tc.want, IDRefAttribute(tc.tag))
		})
	}
}

func TestIsGBXML(t *testing.T) {
	m, err := ParseString(`<gbXML><Campus/></gbXML>`)
	require.NoError(t, err)
	assert.False(t, m.IsGBXML(), "no namespace")
	m, err = ParseString(`<Root xmlns="http://www.gbxml.org/schema"/>`)
	require.NoError(t, err)
	assert.False(t, m.IsGBXML(), "wrong root")
}

func TestRenameID(t *testing.T) {
	m := mustModel(t)
	sp1 := mustID(t, m, "sp1")
	su1 := mustID(t, m, "su1")

	n, err := m.RenameID(sp1, "kitchen")
	require.NoError(t, err)
	assert.Equal(t, 2, n, "two AdjacentSpaceId elements name sp1")

	id, _ := m.ID(sp1)
	assert.Equal(t, "kitchen", id)
	inner, ok := m.InnerSpace(su1)
	require.True(t, ok)
	assert.Equal(t, sp1, inner)
	assert.Empty(t, m.Document().FilterNodesByAttribute("spaceIdRef", "sp1"))
	assert.Len(t, m.Referrers(sp1), 2)

	// references of other kinds are untouched
	c1 := mustID(t, m, "c1")
	n, err = m.RenameID(c1, "wall")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	got, ok := m.Construction(su1)
	require.True(t, ok)
	assert.Equal(t, c1, got)
	assert.Len(t, m.Document().FilterNodesByAttribute("spaceIdRef", "kitchen"), 2)
}

func TestRenameID_Errors(t *testing.T) {
	m := mustModel(t)
	tests := []struct {
		name    string
		node    func() graph.NodeID
		newID   string
		wantErr error
		wantN   int
	}{
		{"no id", func() graph.NodeID { n, _ := m.Campus(); loc, _ := m.Document().Child(n, TagLocation); return loc }, "x", ErrMissingID, 0},
		{"taken", func() graph.NodeID { return mustID(t, m, "sp1") }, "sp2", ErrDuplicateID, 0},
		{"same id", func() graph.NodeID { return mustID(t, m, "sp1") }, "sp1", nil, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			n, err := m.RenameID(tc.node(), tc.newID)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tc.wantN, n)
		})
	}
	assert.Len(t, m.Document().FilterNodesByAttribute("spaceIdRef", "sp1"), 2, "failed renames leave references alone")
}

func TestRemoveNode(t *testing.T) {
	t.Run("referenced node", func(t *testing.T) {
		m := mustModel(t)
		su1 := mustID(t, m, "su1")
		before := m.Document().Graph().NodeCount()

		dropped := m.RemoveNode(mustID(t, m, "sp2"))
		assert.Equal(t, 1, dropped)
		assert.Equal(t, before-1, m.Document().Graph().NodeCount())

		_, ok := m.OuterSpace(su1)
		assert.False(t, ok)
		adj := m.Document().ChildrenByLabel(su1, TagAdjacentSpace)
		require.Len(t, adj, 2)
		_, ok = m.Document().Attribute(adj[1], "spaceIdRef")
		assert.False(t, ok, "reference attribute is deleted")
		inner, ok := m.InnerSpace(su1)
		require.True(t, ok)
		assert.Equal(t, mustID(t, m, "sp1"), inner)
	})

	t.Run("references into the removed subtree", func(t *testing.T) {
		m := mustModel(t)
		bldg := mustID(t, m, "bldg1")
		dropped := m.RemoveNode(bldg)
		assert.Equal(t, 3, dropped, "sp1 twice and sp2 once")
		assert.Empty(t, m.Spaces())
		assert.Empty(t, m.Document().FilterNodesByAttribute("spaceIdRef", "sp1"))
		assert.Empty(t, m.ZoneSpaces(mustID(t, m, "z1")))
	})

	t.Run("node without id", func(t *testing.T) {
		m := mustModel(t)
		wt := mustID(t, m, "wt1")
		name, ok := m.Document().Child(wt, "Name")
		require.True(t, ok)
		assert.Equal(t, 0, m.RemoveNode(name))
		assert.Len(t, m.WindowTypeMaterials(wt), 3)
	})
}

func TestNamedAccessors(t *testing.T) {
	m := mustModel(t)
	campus, ok := m.Campus()
	require.True(t, ok)
	id, _ := m.ID(campus)
	assert.Equal(t, "campus1", id)

	assert.Equal(t, []string{"bldg1"}, ids(m, m.Buildings()))
	assert.Equal(t, []string{"sp1", "sp2"}, ids(m, m.Spaces()))
	assert.Equal(t, []string{"su1", "su2"}, ids(m, m.Surfaces()))
	assert.Equal(t, []string{"z1"}, ids(m, m.Zones()))
	assert.Equal(t, []string{"c1"}, ids(m, m.Constructions()))
	assert.Equal(t, []string{"wt1"}, ids(m, m.WindowTypes()))
	assert.Equal(t, []string{"sch-light", "sch-people", "sch-equip", "sch-heat"}, ids(m, m.Schedules()))

	assert.Equal(t, Summary{
		Campuses: 1, Buildings: 1, Spaces: 2, Surfaces: 2, Zones: 1,
		Constructions: 1, WindowTypes: 1, Schedules: 4,
	}, m.Summarize())
}

func TestReferenceAccessors(t *testing.T) {
	m := mustModel(t)
	sp1 := mustID(t, m, "sp1")
	sp2 := mustID(t, m, "sp2")
	su1 := mustID(t, m, "su1")
	su2 := mustID(t, m, "su2")

	resolve := func(n graph.NodeID, ok bool) string {
		if !ok {
			return ""
		}
		id, _ := m.ID(n)
		return id
	}

	tests := []struct {
		name string
		got  func() (graph.NodeID, bool)
		want string
	}{
		{"construction", func() (graph.NodeID, bool) { return m.Construction(su1) }, "c1"},
		{"no construction", func() (graph.NodeID, bool) { return m.Construction(sp1) }, ""},
		{"inner space", func() (graph.NodeID, bool) { return m.InnerSpace(su1) }, "sp1"},
		{"outer space", func() (graph.NodeID, bool) { return m.OuterSpace(su1) }, "sp2"},
		{"exterior outer space", func() (graph.NodeID, bool) { return m.OuterSpace(su2) }, ""},
		{"window type", func() (graph.NodeID, bool) { return m.WindowType(mustID(t, m, "op1")) }, "wt1"},
		{"light schedule", func() (graph.NodeID, bool) { return m.LightSchedule(sp1) }, "sch-light"},
		{"people schedule", func() (graph.NodeID, bool) { return m.PeopleSchedule(sp1) }, "sch-people"},
		{"equipment schedule", func() (graph.NodeID, bool) { return m.EquipmentSchedule(sp1) }, "sch-equip"},
		{"missing light schedule", func() (graph.NodeID, bool) { return m.LightSchedule(sp2) }, ""},
		{"heating schedule", func() (graph.NodeID, bool) { return m.HeatingSchedule(mustID(t, m, "z1")) }, "sch-heat"},
		{"week schedule", func() (graph.NodeID, bool) { return m.WeekSchedule(mustID(t, m, "ys1")) }, "ws1"},
		{"no week schedule", func() (graph.NodeID, bool) { return m.WeekSchedule(mustID(t, m, "ws1")) }, ""},
		{"day schedule", func() (graph.NodeID, bool) {
			day, _ := m.Document().Child(mustID(t, m, "ws1"), "Day")
			return m.DaySchedule(day)
		}, "ds1"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, resolve(tc.got()))
		})
	}
}

func TestListAccessors(t *testing.T) {
	m := mustModel(t)
	c1 := mustID(t, m, "c1")

	assert.Equal(t, []string{"l1", "l2"}, ids(m, m.ConstructionLayers(c1)))
	assert.Equal(t, []string{"m2", "m3"}, ids(m, m.LayerMaterials(mustID(t, m, "l2"))))
	assert.Equal(t, []string{"m1", "m2", "m3"}, ids(m, m.ConstructionMaterials(c1)))
	assert.Equal(t, []string{"g1", "gap1", "g2"}, ids(m, m.WindowTypeMaterials(mustID(t, m, "wt1"))))
	assert.Equal(t, []string{"sp1", "sp2"}, ids(m, m.ZoneSpaces(mustID(t, m, "z1"))))
	assert.Equal(t, []string{"bldg1", "bldg1"}, ids(m, m.SurfaceBuildings(mustID(t, m, "su1"))))
	assert.Equal(t, []string{"bldg1"}, ids(m, m.SurfaceBuildings(mustID(t, m, "su2"))))

	// dangling references are skipped
	m.Document().SetAttribute(mustID(t, m, "l1"), "id", "gone")
	assert.Equal(t, []string{"l2"}, ids(m, m.ConstructionLayers(c1)))
}

func TestCADModelAzimuth(t *testing.T) {
	m := mustModel(t)
	az, ok := m.CADModelAzimuth(mustID(t, m, "sp1"))
	require.True(t, ok)
	assert.Equal(t, "12.5", az)

	_, ok = m.CADModelAzimuth(mustID(t, m, "c1"))
	assert.False(t, ok, "outside any campus")
}

func TestCoordinates(t *testing.T) {
	m := mustModel(t)
	pts, err := m.Coordinates(mustID(t, m, "su1"))
	require.NoError(t, err)
	assert.Equal(t, []Point{{0, 0, 0}, {4.5, 0, 2.7}}, pts)

	pts, err = m.Coordinates(mustID(t, m, "su2"))
	require.NoError(t, err)
	assert.Empty(t, pts)

	tests := []struct {
		name string
		doc  string
	}{
		{"too few", `<Surface><CartesianPoint><Coordinate>1</Coordinate><Coordinate>2</Coordinate></CartesianPoint></Surface>`},
		{"not a number", `<Surface><CartesianPoint><Coordinate>1</Coordinate><Coordinate>x</Coordinate><Coordinate>3</Coordinate></CartesianPoint></Surface>`},
		{"empty", `<Surface><CartesianPoint><Coordinate/><Coordinate>2</Coordinate><Coordinate>3</Coordinate></CartesianPoint></Surface>`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			bad, err := ParseString(tc.doc)
			require.NoError(t, err)
			root, _ := bad.Document().Root()
			_, err = bad.Coordinates(root)
			assert.ErrorIs(t, err, ErrMalformedGeometry)
		})
	}
}
