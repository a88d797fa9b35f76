package geosampa

import (
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/ctessum/geom"
)

func readTestGrid(t *testing.T) *Layer {
	t.Helper()
	filename := filepath.Join(t.TempDir(), "grid.shp")
	writeGridShapefile(t, filename, DefaultCRS)
	grid, err := ReadShapefile(filename, WithRequiredFields(CellCodeField))
	assert.NoError(t, err)
	return grid
}

func testAOI(polygons ...geom.Polygon) *Layer {
	layer := &Layer{
		CRS: DefaultCRS,
	}
	for _, polygon := range polygons {
		layer.Features = append(layer.Features, Feature{Geometry: polygon})
	}
	return layer
}

func cellCodes(cells []Cell) []string {
	codes := make([]string, len(cells))
	for i, cell := range cells {
		codes[i] = cell.Fields[CellCodeField]
	}
	return codes
}

func TestGridIndex_Contains(t *testing.T) {
	gridIndex := NewGridIndex(readTestGrid(t))

	for _, tc := range []struct {
		name     string
		aoi      *Layer
		expected bool
	}{
		{
			name:     "single_cell",
			aoi:      testAOI(testCell(1, 0)),
			expected: true,
		},
		{
			name:     "inside",
			aoi:      testAOI(square(testGridX0+100, testGridY0+100, 200)),
			expected: true,
		},
		{
			name:     "across_cells",
			aoi:      testAOI(square(testGridX0+500, testGridY0+500, 1000)),
			expected: true,
		},
		{
			name: "multiple_polygons",
			aoi: testAOI(
				square(testGridX0+100, testGridY0+100, 200),
				square(testGridX0+2100, testGridY0+1100, 200),
			),
			expected: true,
		},
		{
			name:     "outside",
			aoi:      testAOI(square(testGridX0+10000, testGridY0+10000, 500)),
			expected: false,
		},
		{
			name:     "partially_outside",
			aoi:      testAOI(square(testGridX0-500, testGridY0+100, 1000)),
			expected: false,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			actual, err := gridIndex.Contains(tc.aoi)
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, actual)
		})
	}
}

func TestGridIndex_Intersect(t *testing.T) {
	gridIndex := NewGridIndex(readTestGrid(t))

	for _, tc := range []struct {
		name     string
		aoi      *Layer
		expected []string
	}{
		{
			name:     "single_cell",
			aoi:      testAOI(testCell(1, 0)),
			expected: []string{testCellCode(1, 0)},
		},
		{
			name:     "inside_cell",
			aoi:      testAOI(square(testGridX0+2100, testGridY0+1100, 200)),
			expected: []string{testCellCode(2, 1)},
		},
		{
			name: "four_cells",
			aoi:  testAOI(square(testGridX0+500, testGridY0+500, 1000)),
			expected: []string{
				testCellCode(0, 0),
				testCellCode(1, 0),
				testCellCode(0, 1),
				testCellCode(1, 1),
			},
		},
		{
			name: "two_polygons_same_cell",
			aoi: testAOI(
				square(testGridX0+100, testGridY0+100, 200),
				square(testGridX0+600, testGridY0+600, 200),
			),
			expected: []string{testCellCode(0, 0)},
		},
		{
			name:     "outside",
			aoi:      testAOI(square(testGridX0+10000, testGridY0+10000, 500)),
			expected: []string{},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			actual, err := gridIndex.Intersect(tc.aoi)
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, cellCodes(actual))
		})
	}
}

func TestGridIndex_IntersectClips(t *testing.T) {
	gridIndex := NewGridIndex(readTestGrid(t))

	cells, err := gridIndex.Intersect(testAOI(square(testGridX0+500, testGridY0, 1000)))
	assert.NoError(t, err)
	assert.Equal(t, 2, len(cells))
	for _, cell := range cells {
		assert.True(t, cell.Geometry.Area() > 499999 && cell.Geometry.Area() < 500001)
	}
}

func TestGridIndex_IntersectKeepsFields(t *testing.T) {
	gridIndex := NewGridIndex(readTestGrid(t))

	cells, err := gridIndex.Intersect(testAOI(square(testGridX0+2100, testGridY0+1100, 200)))
	assert.NoError(t, err)
	assert.Equal(t, 1, len(cells))
	assert.Equal(t, map[string]string{
		CellCodeField: testCellCode(2, 1),
		"folha":       testCellSheet(2, 1),
	}, cells[0].Fields)
}

func TestGridIndex_CRSMismatch(t *testing.T) {
	gridIndex := NewGridIndex(readTestGrid(t))

	aoi := testAOI(testCell(0, 0))
	aoi.CRS = "EPSG:4326"
	_, err := gridIndex.Contains(aoi)
	assert.IsError(t, err, errCRSMismatch)
	_, err = gridIndex.Intersect(aoi)
	assert.IsError(t, err, errCRSMismatch)
}

func TestGridIndex_EmptyAOI(t *testing.T) {
	gridIndex := NewGridIndex(readTestGrid(t))

	_, err := gridIndex.Contains(testAOI())
	assert.IsError(t, err, errEmptyLayer)
}
