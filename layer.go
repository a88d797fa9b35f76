package geosampa

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
)

// A Feature is a polygon and its attributes.
type Feature struct {
	Geometry geom.Polygon
	Fields   map[string]string
}

// A Layer is a set of features in a single CRS.
type Layer struct {
	CRS      string
	Features []Feature
}

type readOptions struct {
	defaultCRS     string
	requiredFields []string
	multiPolygons  bool
	logger         *slog.Logger
}

// A ReadOption sets an option on ReadShapefile.
type ReadOption func(*readOptions)

// WithDefaultCRS sets the CRS assigned to shapefiles without a .prj file.
// The geometries are assumed to already be in this CRS and are not
// reprojected.
func WithDefaultCRS(crs string) ReadOption {
	return func(o *readOptions) {
		o.defaultCRS = crs
	}
}

// WithRequiredFields sets the attribute columns that the shapefile must
// contain. All columns are read regardless.
func WithRequiredFields(fields ...string) ReadOption {
	return func(o *readOptions) {
		o.requiredFields = fields
	}
}

// WithMultiPolygons sets whether multipolygon shapes are accepted. They are
// merged into a single polygon with several outer rings.
func WithMultiPolygons(multiPolygons bool) ReadOption {
	return func(o *readOptions) {
		o.multiPolygons = multiPolygons
	}
}

// WithReadLogger sets the logger used by ReadShapefile.
func WithReadLogger(logger *slog.Logger) ReadOption {
	return func(o *readOptions) {
		o.logger = logger
	}
}

// ReadShapefile reads the polygon shapefile at filename.
func ReadShapefile(filename string, options ...ReadOption) (*Layer, error) {
	o := readOptions{
		logger: slog.Default(),
	}
	for _, option := range options {
		option(&o)
	}

	crs, err := readPRJ(filename)
	switch {
	case errors.Is(err, fs.ErrNotExist) && o.defaultCRS != "":
		o.logger.Warn("shapefile has no CRS, assuming default",
			"filename", filename,
			"crs", o.defaultCRS,
		)
		crs = o.defaultCRS
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("%s: %w", filename, ErrMissingCRS)
	case err != nil:
		return nil, err
	}

	decoder, err := shp.NewDecoder(filename)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	defer decoder.Close()

	fieldNames := make([]string, 0, len(decoder.Fields()))
	for _, field := range decoder.Fields() {
		fieldNames = append(fieldNames, field.String())
	}
	for _, required := range o.requiredFields {
		if !slices.Contains(fieldNames, required) {
			return nil, fmt.Errorf("%s: missing attribute column %s", filename, required)
		}
	}

	layer := &Layer{
		CRS: crs,
	}
	for {
		g, fields, more := decoder.DecodeRowFields(fieldNames...)
		if !more {
			break
		}
		polygon, err := toPolygon(g, o.multiPolygons)
		if err != nil {
			return nil, fmt.Errorf("%s: feature %d: %w", filename, len(layer.Features), err)
		}
		feature := Feature{
			Geometry: polygon,
			Fields:   make(map[string]string, len(fieldNames)),
		}
		for _, name := range fieldNames {
			feature.Fields[name] = strings.TrimSpace(strings.Trim(fields[name], "\x00"))
		}
		layer.Features = append(layer.Features, feature)
	}
	if err := decoder.Error(); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}

	return layer, nil
}

// Polygons returns the geometries of l's features.
func (l *Layer) Polygons() []geom.Polygon {
	polygons := make([]geom.Polygon, len(l.Features))
	for i, feature := range l.Features {
		polygons[i] = feature.Geometry
	}
	return polygons
}

// readPRJ returns the contents of the .prj file next to filename.
func readPRJ(filename string) (string, error) {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	var lastErr error
	for _, ext := range []string{".prj", ".PRJ"} {
		data, err := os.ReadFile(base + ext)
		if err != nil {
			lastErr = err
			continue
		}
		crs := strings.TrimSpace(string(data))
		if crs == "" {
			return "", fs.ErrNotExist
		}
		return crs, nil
	}
	return "", lastErr
}

func toPolygon(g geom.Geom, multiPolygons bool) (geom.Polygon, error) {
	switch g := g.(type) {
	case geom.Polygon:
		return g, nil
	case geom.MultiPolygon:
		if !multiPolygons {
			return nil, fmt.Errorf("%T: %w", g, ErrNotPolygon)
		}
		var polygon geom.Polygon
		for _, p := range g {
			polygon = append(polygon, p...)
		}
		return polygon, nil
	default:
		return nil, fmt.Errorf("%T: %w", g, ErrNotPolygon)
	}
}
