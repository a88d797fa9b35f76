package geosampa

import (
	"io"

	"github.com/ctessum/geom"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// GeoJSONCRS is the CRS of GeoJSON output.
const GeoJSONCRS = "EPSG:4326"

// WriteCellsGeoJSON writes cells, which are in crs, to w as a GeoJSON
// FeatureCollection in longitude, latitude order. Each feature's properties
// are the cell's attributes.
func WriteCellsGeoJSON(w io.Writer, r *Reprojector, cells []Cell, crs string) error {
	featureCollection := geojson.NewFeatureCollection()
	for _, cell := range cells {
		polygon, err := r.TransformPolygon(cell.Geometry, crs, GeoJSONCRS)
		if err != nil {
			return err
		}
		feature := geojson.NewFeature(orbPolygon(polygon))
		for key, value := range cell.Fields {
			feature.Properties[key] = value
		}
		featureCollection.Append(feature)
	}
	data, err := featureCollection.MarshalJSON()
	if err != nil {
		return err
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

// orbPolygon converts polygon into an orb.Polygon with closed rings.
func orbPolygon(polygon geom.Polygon) orb.Polygon {
	result := make(orb.Polygon, 0, len(polygon))
	for _, path := range polygon {
		if len(path) == 0 {
			continue
		}
		ring := make(orb.Ring, 0, len(path)+1)
		for _, point := range path {
			ring = append(ring, orb.Point{point.X, point.Y})
		}
		if !ring.Closed() {
			ring = append(ring, ring[0])
		}
		result = append(result, ring)
	}
	return result
}
