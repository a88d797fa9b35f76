package geosampa

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/klauspost/compress/zip"
)

// Origin and size of the test grid, in EPSG:31983. The grid has
// testGridColumns by testGridRows cells.
const (
	testGridX0      = 330000
	testGridY0      = 7390000
	testCellSize    = 1000
	testGridColumns = 3
	testGridRows    = 2
)

type gridRow struct {
	geom.Polygon
	Code  string `shp:"qmdt_cod"`
	Sheet string `shp:"folha"`
}

type aoiRow struct {
	geom.Polygon
	Name string `shp:"name"`
}

type pointRow struct {
	geom.Point
	Name string `shp:"name"`
}

// square returns a clockwise square with lower left corner (x, y).
func square(x, y, size float64) geom.Polygon {
	return geom.Polygon{{
		{X: x, Y: y},
		{X: x, Y: y + size},
		{X: x + size, Y: y + size},
		{X: x + size, Y: y},
		{X: x, Y: y},
	}}
}

// testCellCode returns the code of the test grid cell at column c, row r.
func testCellCode(c, r int) string {
	return fmt.Sprintf("3314-%d%d", r+1, c+1)
}

// testCellSheet returns the map sheet of the test grid cell at column c,
// row r.
func testCellSheet(c, r int) string {
	return fmt.Sprintf("SF-23-Y-C-%d", r*testGridColumns+c+1)
}

// testCell returns the polygon of the test grid cell at column c, row r.
func testCell(c, r int) geom.Polygon {
	return square(testGridX0+float64(c*testCellSize), testGridY0+float64(r*testCellSize), testCellSize)
}

func writeShapefile[T any](t *testing.T, filename, crs string, rows []T) {
	t.Helper()
	var archetype T
	encoder, err := shp.NewEncoder(filename, archetype)
	assert.NoError(t, err)
	for _, row := range rows {
		assert.NoError(t, encoder.Encode(row))
	}
	encoder.Close()
	if crs != "" {
		prjFilename := strings.TrimSuffix(filename, filepath.Ext(filename)) + ".prj"
		assert.NoError(t, os.WriteFile(prjFilename, []byte(crs), 0o666))
	}
}

func writeGridShapefile(t *testing.T, filename, crs string) {
	t.Helper()
	var rows []gridRow
	for r := range testGridRows {
		for c := range testGridColumns {
			rows = append(rows, gridRow{
				Polygon: testCell(c, r),
				Code:    testCellCode(c, r),
				Sheet:   testCellSheet(c, r),
			})
		}
	}
	writeShapefile(t, filename, crs, rows)
}

func writeAOIShapefile(t *testing.T, filename, crs string, polygons ...geom.Polygon) {
	t.Helper()
	rows := make([]aoiRow, len(polygons))
	for i, polygon := range polygons {
		rows[i] = aoiRow{
			Polygon: polygon,
			Name:    fmt.Sprintf("aoi%d", i),
		}
	}
	writeShapefile(t, filename, crs, rows)
}

// writeGridArchive writes the test grid, without a .prj file, into a zip
// archive in a temporary directory and returns the archive's filename.
func writeGridArchive(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeGridShapefile(t, filepath.Join(dir, GridShapefileName+".shp"), "")
	files := make(map[string][]byte)
	for _, ext := range []string{".shp", ".shx", ".dbf"} {
		data, err := os.ReadFile(filepath.Join(dir, GridShapefileName+ext))
		assert.NoError(t, err)
		files[GridShapefileName+"/"+GridShapefileName+ext] = data
	}
	archiveFilename := filepath.Join(t.TempDir(), DefaultGridArchive)
	assert.NoError(t, os.WriteFile(archiveFilename, zipBytes(t, files), 0o666))
	return archiveFilename
}

func zipBytes(t *testing.T, files map[string][]byte) []byte {
	t.Helper()
	buffer := &bytes.Buffer{}
	zw := zip.NewWriter(buffer)
	for name, data := range files {
		w, err := zw.Create(name)
		assert.NoError(t, err)
		_, err = w.Write(data)
		assert.NoError(t, err)
	}
	assert.NoError(t, zw.Close())
	return buffer.Bytes()
}

func writeFile(t *testing.T, filename string, data []byte) {
	t.Helper()
	assert.NoError(t, os.WriteFile(filename, data, 0o666))
}
