package geosampa

import (
	"errors"
	"fmt"
	"slices"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
)

// areaTolerance is the relative area below which a clipped polygon is
// considered empty. Polygons that only share an edge or a vertex produce
// fragments with (nearly) zero area.
const areaTolerance = 1e-9

var (
	errCRSMismatch = errors.New("CRS mismatch")
	errEmptyLayer  = errors.New("empty layer")
)

// A Cell is the part of a grid cell that overlaps an area of interest.
type Cell struct {
	Geometry geom.Polygon
	Fields   map[string]string
}

// A GridIndex is a spatial index over the cells of a grid.
type GridIndex struct {
	grid *Layer
	tree *rtree.Rtree
}

// An indexedPolygon is a grid cell polygon stored in a GridIndex's tree.
type indexedPolygon struct {
	geom.Polygon
	index int
}

// NewGridIndex returns a new GridIndex for grid.
func NewGridIndex(grid *Layer) *GridIndex {
	tree := rtree.NewTree(25, 50)
	for i, feature := range grid.Features {
		if len(feature.Geometry) == 0 {
			continue
		}
		tree.Insert(&indexedPolygon{
			Polygon: feature.Geometry,
			index:   i,
		})
	}
	return &GridIndex{
		grid: grid,
		tree: tree,
	}
}

// Contains returns whether aoi lies entirely within the union of the grid's
// cells.
func (g *GridIndex) Contains(aoi *Layer) (bool, error) {
	aoiUnion, err := g.union(aoi)
	if err != nil {
		return false, err
	}
	aoiArea := aoiUnion.Area()

	// Subtract every cell that might overlap the AOI. Whatever remains lies
	// outside the grid.
	remainder := aoiUnion
	for _, index := range g.candidates(aoiUnion.Bounds()) {
		if len(remainder) == 0 {
			break
		}
		cell := g.grid.Features[index].Geometry
		if !remainder.Bounds().Overlaps(cell.Bounds()) {
			continue
		}
		remainder = remainder.Difference(cell).(geom.Polygon)
	}

	return len(remainder) == 0 || remainder.Area() <= areaTolerance*aoiArea, nil
}

// Intersect returns the parts of the grid's cells that overlap aoi, in grid
// order. Cells that only touch aoi along an edge or at a vertex are not
// returned.
func (g *GridIndex) Intersect(aoi *Layer) ([]Cell, error) {
	aoiUnion, err := g.union(aoi)
	if err != nil {
		return nil, err
	}

	var cells []Cell
	for _, index := range g.candidates(aoiUnion.Bounds()) {
		feature := g.grid.Features[index]
		fragment := feature.Geometry.Intersection(aoiUnion).(geom.Polygon)
		if len(fragment) == 0 || fragment.Area() <= areaTolerance*feature.Geometry.Area() {
			continue
		}
		cells = append(cells, Cell{
			Geometry: fragment,
			Fields:   feature.Fields,
		})
	}
	return cells, nil
}

// candidates returns the indexes of the grid cells whose bounds overlap
// bounds, in ascending order.
func (g *GridIndex) candidates(bounds *geom.Bounds) []int {
	results := g.tree.SearchIntersect(bounds)
	indexes := make([]int, 0, len(results))
	for _, result := range results {
		indexes = append(indexes, result.(*indexedPolygon).index)
	}
	slices.Sort(indexes)
	return indexes
}

// union returns the union of aoi's features after checking that aoi is in
// the grid's CRS.
func (g *GridIndex) union(aoi *Layer) (geom.Polygon, error) {
	if aoi.CRS != g.grid.CRS {
		return nil, fmt.Errorf("%w: %s and %s", errCRSMismatch, abbreviateCRS(aoi.CRS), abbreviateCRS(g.grid.CRS))
	}
	polygons := aoi.Polygons()
	if len(polygons) == 0 {
		return nil, errEmptyLayer
	}
	return Union(polygons), nil
}

// Union returns the union of polygons.
func Union(polygons []geom.Polygon) geom.Polygon {
	if len(polygons) == 0 {
		return nil
	}
	union := polygons[0]
	for _, polygon := range polygons[1:] {
		union = union.Union(polygon).(geom.Polygon)
	}
	return union
}
