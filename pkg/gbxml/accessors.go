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
	"fmt"
	"strconv"

	"github.com/AleutianAI/openbuilding/pkg/graph"
)

// Element tags.
const (
	TagCampus         = "Campus"
	TagLocation       = "Location"
	TagAzimuth        = "CADModelAzimuth"
	TagBuilding       = "Building"
	TagSpace          = "Space"
	TagSurface        = "Surface"
	TagZone           = "Zone"
	TagConstruction   = "Construction"
	TagLayer          = "Layer"
	TagLayerID        = "LayerId"
	TagMaterial       = "Material"
	TagMaterialID     = "MaterialId"
	TagWindowType     = "WindowType"
	TagGlaze          = "Glaze"
	TagGap            = "Gap"
	TagSchedule       = "Schedule"
	TagWeekScheduleID = "WeekScheduleId"
	TagAdjacentSpace  = "AdjacentSpaceId"
	TagCartesianPoint = "CartesianPoint"
	TagCoordinate     = "Coordinate"
)

// Reference attributes whose names do not follow the tag convention.
const (
	AttrEquipmentSchedule = "equipmentScheduleIdRef"
	AttrLightSchedule     = "lightScheduleIdRef"
	AttrPeopleSchedule    = "peopleScheduleIdRef"
	AttrHeatingSchedule   = "heatSchedIdRef"
)

// Campus returns the first Campus element.
func (m *Model) Campus() (graph.NodeID, bool) { return m.doc.Graph().LookupOne(TagCampus) }

// Buildings returns every Building element.
func (m *Model) Buildings() []graph.NodeID { return m.doc.Graph().LookupAll(TagBuilding) }

// Spaces returns every Space element.
func (m *Model) Spaces() []graph.NodeID { return m.doc.Graph().LookupAll(TagSpace) }

// Surfaces returns every Surface element.
func (m *Model) Surfaces() []graph.NodeID { return m.doc.Graph().LookupAll(TagSurface) }

// Zones returns every Zone element.
func (m *Model) Zones() []graph.NodeID { return m.doc.Graph().LookupAll(TagZone) }

// Constructions returns every Construction element.
func (m *Model) Constructions() []graph.NodeID { return m.doc.Graph().LookupAll(TagConstruction) }

// WindowTypes returns every WindowType element.
func (m *Model) WindowTypes() []graph.NodeID { return m.doc.Graph().LookupAll(TagWindowType) }

// Schedules returns every Schedule element.
func (m *Model) Schedules() []graph.NodeID { return m.doc.Graph().LookupAll(TagSchedule) }

// CADModelAzimuth returns the CADModelAzimuth text of the Location of the
// Campus enclosing n.
func (m *Model) CADModelAzimuth(n graph.NodeID) (string, bool) {
	campus, ok := m.doc.Ancestor(n, TagCampus)
	if !ok {
		return "", false
	}
	loc, ok := m.doc.Child(campus, TagLocation)
	if !ok {
		return "", false
	}
	az, ok := m.doc.Child(loc, TagAzimuth)
	if !ok {
		return "", false
	}
	return m.doc.Text(az)
}

// Construction returns the Construction referenced by n.
func (m *Model) Construction(n graph.NodeID) (graph.NodeID, bool) {
	return m.refTarget(n, IDRefAttribute(TagConstruction))
}

// ConstructionLayers returns the Layers listed by the LayerId children of a
// Construction, in order.
func (m *Model) ConstructionLayers(construction graph.NodeID) []graph.NodeID {
	return m.childRefTargets(construction, TagLayerID, IDRefAttribute(TagLayer))
}

// LayerMaterials returns the Materials listed by the MaterialId children of
// a Layer, in order.
func (m *Model) LayerMaterials(layer graph.NodeID) []graph.NodeID {
	return m.childRefTargets(layer, TagMaterialID, IDRefAttribute(TagMaterial))
}

// ConstructionMaterials returns the Materials of every Layer of a
// Construction, outermost layer first.
func (m *Model) ConstructionMaterials(construction graph.NodeID) []graph.NodeID {
	out := make([]graph.NodeID, 0)
	for _, layer := range m.ConstructionLayers(construction) {
		out = append(out, m.LayerMaterials(layer)...)
	}
	return out
}

// Point is a cartesian coordinate triple.
type Point struct {
	X, Y, Z float64
}

// Coordinates returns every CartesianPoint below n in document order.
//
// Errors:
//
//	ErrMalformedGeometry if a point does not have three Coordinate children
//	holding numbers.
func (m *Model) Coordinates(n graph.NodeID) ([]Point, error) {
	points := m.doc.DescendantsByLabel(n, TagCartesianPoint)
	out := make([]Point, 0, len(points))
	for _, p := range points {
		coords := m.doc.ChildrenByLabel(p, TagCoordinate)
		if len(coords) < 3 {
			return nil, fmt.Errorf("%w: CartesianPoint has %d coordinates", ErrMalformedGeometry, len(coords))
		}
		var xyz [3]float64
		for i := range xyz {
			text, _ := m.doc.Text(coords[i])
			f, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: coordinate %q: %v", ErrMalformedGeometry, text, err)
			}
			xyz[i] = f
		}
		out = append(out, Point{X: xyz[0], Y: xyz[1], Z: xyz[2]})
	}
	return out, nil
}

// DaySchedule returns the DaySchedule referenced by a Day element.
func (m *Model) DaySchedule(day graph.NodeID) (graph.NodeID, bool) {
	return m.refTarget(day, IDRefAttribute("DaySchedule"))
}

// EquipmentSchedule returns the equipment Schedule of a Space.
func (m *Model) EquipmentSchedule(space graph.NodeID) (graph.NodeID, bool) {
	return m.refTarget(space, AttrEquipmentSchedule)
}

// LightSchedule returns the lighting Schedule of a Space.
func (m *Model) LightSchedule(space graph.NodeID) (graph.NodeID, bool) {
	return m.refTarget(space, AttrLightSchedule)
}

// PeopleSchedule returns the occupancy Schedule of a Space.
func (m *Model) PeopleSchedule(space graph.NodeID) (graph.NodeID, bool) {
	return m.refTarget(space, AttrPeopleSchedule)
}

// HeatingSchedule returns the heating Schedule of a Zone.
func (m *Model) HeatingSchedule(zone graph.NodeID) (graph.NodeID, bool) {
	return m.refTarget(zone, AttrHeatingSchedule)
}

// WeekSchedule returns the WeekSchedule named by the first WeekScheduleId
// child of a YearSchedule.
func (m *Model) WeekSchedule(year graph.NodeID) (graph.NodeID, bool) {
	c, ok := m.doc.Child(year, TagWeekScheduleID)
	if !ok {
		return graph.NodeID{}, false
	}
	return m.refTarget(c, IDRefAttribute("WeekSchedule"))
}

// InnerSpace returns the Space named by the first AdjacentSpaceId of a
// Surface.
func (m *Model) InnerSpace(surface graph.NodeID) (graph.NodeID, bool) {
	return m.adjacentSpace(surface, 0)
}

// OuterSpace returns the Space named by the second AdjacentSpaceId of a
// Surface. Exterior surfaces have none.
func (m *Model) OuterSpace(surface graph.NodeID) (graph.NodeID, bool) {
	return m.adjacentSpace(surface, 1)
}

func (m *Model) adjacentSpace(surface graph.NodeID, i int) (graph.NodeID, bool) {
	adj := m.doc.ChildrenByLabel(surface, TagAdjacentSpace)
	if len(adj) <= i {
		return graph.NodeID{}, false
	}
	return m.refTarget(adj[i], IDRefAttribute(TagSpace))
}

// SurfaceBuildings returns the parent elements of the inner and outer
// Spaces of a Surface, inner first.
func (m *Model) SurfaceBuildings(surface graph.NodeID) []graph.NodeID {
	out := make([]graph.NodeID, 0, 2)
	for i := 0; i < 2; i++ {
		space, ok := m.adjacentSpace(surface, i)
		if !ok {
			continue
		}
		if b, ok := m.doc.Parent(space); ok {
			out = append(out, b)
		}
	}
	return out
}

// WindowType returns the WindowType referenced by an Opening.
func (m *Model) WindowType(opening graph.NodeID) (graph.NodeID, bool) {
	return m.refTarget(opening, IDRefAttribute(TagWindowType))
}

// WindowTypeMaterials returns the Glaze and Gap children of a WindowType
// in document order.
func (m *Model) WindowTypeMaterials(windowType graph.NodeID) []graph.NodeID {
	g := m.doc.Graph()
	out := make([]graph.NodeID, 0)
	for _, c := range m.doc.Children(windowType) {
		if g.HasLabel(c, TagGlaze) || g.HasLabel(c, TagGap) {
			out = append(out, c)
		}
	}
	return out
}

// ZoneSpaces returns every Space whose zoneIdRef names zone.
func (m *Model) ZoneSpaces(zone graph.NodeID) []graph.NodeID {
	id, ok := m.ID(zone)
	if !ok {
		return []graph.NodeID{}
	}
	attr := IDRefAttribute(TagZone)
	out := make([]graph.NodeID, 0)
	for _, s := range m.Spaces() {
		if v, ok := m.doc.Attribute(s, attr); ok && v == id {
			out = append(out, s)
		}
	}
	return out
}

// Summary counts the main building elements of a model.
type Summary struct {
	Campuses      int `json:"campuses"`
	Buildings     int `json:"buildings"`
	Spaces        int `json:"spaces"`
	Surfaces      int `json:"surfaces"`
	Zones         int `json:"zones"`
	Constructions int `json:"constructions"`
	WindowTypes   int `json:"window_types"`
	Schedules     int `json:"schedules"`
}

// Summarize returns element counts for the model.
func (m *Model) Summarize() Summary {
	g := m.doc.Graph()
	return Summary{
		Campuses:      len(g.LookupAll(TagCampus)),
		Buildings:     len(m.Buildings()),
		Spaces:        len(m.Spaces()),
		Surfaces:      len(m.Surfaces()),
		Zones:         len(m.Zones()),
		Constructions: len(m.Constructions()),
		WindowTypes:   len(m.WindowTypes()),
		Schedules:     len(m.Schedules()),
	}
}
