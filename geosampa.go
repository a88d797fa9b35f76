// Package geosampa finds the cells of the São Paulo LiDAR mapping grid that
// overlap an area of interest and downloads the matching elevation model
// archives from the GeoSampa portal.
package geosampa

import "errors"

const (
	// DefaultBaseURL is the GeoSampa download endpoint for mapping grid
	// archives.
	DefaultBaseURL = "https://geosampa.prefeitura.sp.gov.br/PaginasPublicas/downloadArquivo.aspx?orig=DownloadMapaArticulacao"

	// DefaultCRS is SIRGAS 2000 / UTM zone 23S, the projection of the grid.
	DefaultCRS = "EPSG:31983"

	// DefaultGridArchive is the name of the bundled grid archive.
	DefaultGridArchive = "SIRGAS_SHP_quadriculamdt.zip"

	// GridShapefileName is the base name of the grid shapefile inside
	// DefaultGridArchive.
	GridShapefileName = "SIRGAS_SHP_quadriculamdt"

	// CellCodeField is the grid attribute holding the cell code.
	CellCodeField = "qmdt_cod"
)

var (
	ErrGridNotFound  = errors.New("grid shapefile not found")
	ErrInvalidChoice = errors.New("invalid choice")
	ErrMissingCRS    = errors.New("missing CRS")
	ErrNotPolygon    = errors.New("not a polygon")
	ErrOutsideGrid   = errors.New("the area of interest is outside the boundaries of the São Paulo municipality")
)
