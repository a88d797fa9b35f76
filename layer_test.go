package geosampa

import (
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/ctessum/geom"
)

func TestReadShapefile(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "grid.shp")
	writeGridShapefile(t, filename, DefaultCRS)

	layer, err := ReadShapefile(filename, WithRequiredFields(CellCodeField))
	assert.NoError(t, err)
	assert.Equal(t, DefaultCRS, layer.CRS)
	assert.Equal(t, testGridColumns*testGridRows, len(layer.Features))
	assert.Equal(t, map[string]string{
		CellCodeField: testCellCode(0, 0),
		"folha":       testCellSheet(0, 0),
	}, layer.Features[0].Fields)
	assert.Equal(t, testCell(0, 0).Bounds(), layer.Features[0].Geometry.Bounds())
	assert.Equal(t, map[string]string{
		CellCodeField: testCellCode(2, 1),
		"folha":       testCellSheet(2, 1),
	}, layer.Features[5].Fields)
}

func TestReadShapefile_AllFields(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "aoi.shp")
	writeAOIShapefile(t, filename, DefaultCRS, testCell(0, 0))

	layer, err := ReadShapefile(filename)
	assert.NoError(t, err)
	assert.Equal(t, map[string]string{"name": "aoi0"}, layer.Features[0].Fields)
}

func TestReadShapefile_DefaultCRS(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "grid.shp")
	writeGridShapefile(t, filename, "")

	layer, err := ReadShapefile(filename, WithDefaultCRS(DefaultCRS))
	assert.NoError(t, err)
	assert.Equal(t, DefaultCRS, layer.CRS)
	assert.Equal(t, testGridColumns*testGridRows, len(layer.Features))
}

func TestReadShapefile_MissingCRS(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "aoi.shp")
	writeAOIShapefile(t, filename, "", testCell(0, 0))

	_, err := ReadShapefile(filename)
	assert.IsError(t, err, ErrMissingCRS)
}

func TestReadShapefile_NotPolygon(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "points.shp")
	writeShapefile(t, filename, DefaultCRS, []pointRow{
		{Point: geom.Point{X: testGridX0 + 10, Y: testGridY0 + 10}, Name: "a"},
	})

	_, err := ReadShapefile(filename)
	assert.IsError(t, err, ErrNotPolygon)
}

func TestReadShapefile_MissingField(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "aoi.shp")
	writeAOIShapefile(t, filename, DefaultCRS, testCell(0, 0))

	_, err := ReadShapefile(filename, WithRequiredFields(CellCodeField))
	assert.Error(t, err)
}

func TestReadShapefile_NotExist(t *testing.T) {
	_, err := ReadShapefile(filepath.Join(t.TempDir(), "missing.shp"), WithDefaultCRS(DefaultCRS))
	assert.Error(t, err)
}

func TestToPolygon(t *testing.T) {
	multiPolygon := geom.MultiPolygon{testCell(0, 0), testCell(2, 1)}

	for _, tc := range []struct {
		name          string
		geom          geom.Geom
		multiPolygons bool
		expected      geom.Polygon
		expectedErr   error
	}{
		{
			name:     "polygon",
			geom:     testCell(0, 0),
			expected: testCell(0, 0),
		},
		{
			name:        "multipolygon_rejected",
			geom:        multiPolygon,
			expectedErr: ErrNotPolygon,
		},
		{
			name:          "multipolygon_merged",
			geom:          multiPolygon,
			multiPolygons: true,
			expected:      geom.Polygon{testCell(0, 0)[0], testCell(2, 1)[0]},
		},
		{
			name:          "point",
			geom:          geom.Point{X: testGridX0, Y: testGridY0},
			multiPolygons: true,
			expectedErr:   ErrNotPolygon,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			actual, err := toPolygon(tc.geom, tc.multiPolygons)
			if tc.expectedErr != nil {
				assert.IsError(t, err, tc.expectedErr)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, actual)
		})
	}
}
