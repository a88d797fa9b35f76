package geosampa

import (
	"fmt"
	"strings"

	"github.com/ctessum/geom"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/twpayne/go-proj/v11"
)

type transformKey struct {
	source string
	target string
}

// A Reprojector converts layers between CRSs.
type Reprojector struct {
	cacheSize int
	pjCache   *lru.Cache[transformKey, *proj.PJ]
}

// A ReprojectorOption sets an option on a Reprojector.
type ReprojectorOption func(*Reprojector)

// WithTransformCacheSize sets the number of transforms cached.
func WithTransformCacheSize(cacheSize int) ReprojectorOption {
	return func(r *Reprojector) {
		r.cacheSize = cacheSize
	}
}

// NewReprojector returns a new Reprojector.
func NewReprojector(options ...ReprojectorOption) (*Reprojector, error) {
	r := &Reprojector{
		cacheSize: 8,
	}
	for _, option := range options {
		option(r)
	}

	var err error
	r.pjCache, err = lru.New[transformKey, *proj.PJ](r.cacheSize)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Normalize returns layer in targetCRS. If layer is already in targetCRS then
// it is returned unchanged.
func (r *Reprojector) Normalize(layer *Layer, targetCRS string) (*Layer, error) {
	if layer.CRS == "" {
		return nil, ErrMissingCRS
	}
	switch equivalent, err := r.Equivalent(layer.CRS, targetCRS); {
	case err != nil:
		return nil, err
	case equivalent:
		return layer, nil
	}

	features := make([]Feature, len(layer.Features))
	for i, feature := range layer.Features {
		polygon, err := r.TransformPolygon(feature.Geometry, layer.CRS, targetCRS)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		features[i] = Feature{
			Geometry: polygon,
			Fields:   feature.Fields,
		}
	}
	return &Layer{
		CRS:      targetCRS,
		Features: features,
	}, nil
}

// Equivalent returns whether sourceCRS and targetCRS describe the same CRS.
func (r *Reprojector) Equivalent(sourceCRS, targetCRS string) (bool, error) {
	if strings.EqualFold(strings.TrimSpace(sourceCRS), strings.TrimSpace(targetCRS)) {
		return true, nil
	}
	source, err := proj.New(sourceCRS)
	if err != nil {
		return false, fmt.Errorf("%s: %w", abbreviateCRS(sourceCRS), err)
	}
	target, err := proj.New(targetCRS)
	if err != nil {
		return false, fmt.Errorf("%s: %w", abbreviateCRS(targetCRS), err)
	}
	return source.IsEquivalentTo(target), nil
}

// TransformPolygon returns a copy of polygon transformed from sourceCRS to
// targetCRS. Coordinates are always in easting, northing (longitude,
// latitude) order.
func (r *Reprojector) TransformPolygon(polygon geom.Polygon, sourceCRS, targetCRS string) (geom.Polygon, error) {
	pj, err := r.getPJCached(sourceCRS, targetCRS)
	if err != nil {
		return nil, err
	}

	n := 0
	for _, path := range polygon {
		n += len(path)
	}
	coordsFlat := make([]float64, 2*n)
	coords := make([][]float64, 0, n)
	for _, path := range polygon {
		for _, point := range path {
			i := len(coords)
			coordsFlat[2*i], coordsFlat[2*i+1] = point.X, point.Y
			coords = append(coords, coordsFlat[2*i:2*i+2])
		}
	}
	if err := pj.ForwardFloat64Slices(coords); err != nil {
		return nil, err
	}

	result := make(geom.Polygon, len(polygon))
	i := 0
	for j, path := range polygon {
		result[j] = make(geom.Path, len(path))
		for k := range path {
			result[j][k] = geom.Point{X: coords[i][0], Y: coords[i][1]}
			i++
		}
	}
	return result, nil
}

// getPJCached returns the transform from sourceCRS to targetCRS using r's
// cache if possible.
func (r *Reprojector) getPJCached(sourceCRS, targetCRS string) (*proj.PJ, error) {
	key := transformKey{source: sourceCRS, target: targetCRS}
	if pj, ok := r.pjCache.Get(key); ok {
		return pj, nil
	}

	pj, err := proj.NewCRSToCRS(sourceCRS, targetCRS, nil)
	if err != nil {
		return nil, fmt.Errorf("%s to %s: %w", abbreviateCRS(sourceCRS), abbreviateCRS(targetCRS), err)
	}
	// Use easting, northing order regardless of the axis order declared by
	// the CRSs.
	pj, err = pj.NormalizeForVisualization()
	if err != nil {
		return nil, err
	}

	r.pjCache.Add(key, pj)
	return pj, nil
}

// abbreviateCRS returns crs shortened for use in error messages. WKT
// definitions can be several kilobytes long.
func abbreviateCRS(crs string) string {
	const maxLen = 48
	if len(crs) <= maxLen {
		return crs
	}
	return crs[:maxLen] + "..."
}
