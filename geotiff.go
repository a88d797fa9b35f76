package geosampa

import (
	"errors"
	"fmt"
	"os"

	"github.com/google/tiff"
	_ "github.com/google/tiff/bigtiff"
	_ "github.com/google/tiff/geotiff"
)

var errNoIFD = errors.New("no IFD")

// A GeoTIFFInfo describes the georeferencing of a GeoTIFF.
type GeoTIFFInfo struct {
	Width   int
	Height  int
	ScaleX  float64
	ScaleY  float64
	OriginX float64
	OriginY float64
	EPSG    int
}

// A geoTIFFIFD is a struct into which github.com/google/tiff can unmarshal
// the georeferencing fields of an IFD.
type geoTIFFIFD struct {
	ImageWidth         uint16    `tiff:"field,tag=256"`
	ImageLength        uint16    `tiff:"field,tag=257"`
	ModelPixelScaleTag []float64 `tiff:"field,tag=33550"`
	ModelTiepointTag   []float64 `tiff:"field,tag=33922"`
	GeoKeyDirectoryTag []uint16  `tiff:"field,tag=34735"`
	GeoDoubleParamsTag []float64 `tiff:"field,tag=34736"`
	GeoASCIIParamsTag  string    `tiff:"field,tag=34737"`
}

// InspectGeoTIFF returns the georeferencing of the first image in the
// GeoTIFF at filename. Pixel data is not read.
func InspectGeoTIFF(filename string) (*GeoTIFFInfo, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	tiffTIFF, err := tiff.Parse(file, tiff.GetTagSpace("GeoTIFF"), nil)
	if err != nil {
		return nil, err
	}
	if len(tiffTIFF.IFDs()) == 0 {
		return nil, errNoIFD
	}

	var ifd geoTIFFIFD
	if err := tiff.UnmarshalIFD(tiffTIFF.IFDs()[0], &ifd); err != nil {
		return nil, err
	}

	info := &GeoTIFFInfo{
		Width:  int(ifd.ImageWidth),
		Height: int(ifd.ImageLength),
	}
	if len(ifd.ModelPixelScaleTag) >= 2 {
		info.ScaleX = ifd.ModelPixelScaleTag[0]
		info.ScaleY = ifd.ModelPixelScaleTag[1]
	}
	// The tie point maps raster point (i, j, k) to model point (x, y, z).
	if len(ifd.ModelTiepointTag) >= 6 {
		i, j := ifd.ModelTiepointTag[0], ifd.ModelTiepointTag[1]
		x, y := ifd.ModelTiepointTag[3], ifd.ModelTiepointTag[4]
		info.OriginX = x - i*info.ScaleX
		info.OriginY = y + j*info.ScaleY
	}
	if len(ifd.GeoKeyDirectoryTag) != 0 {
		geoKeys, err := ParseGeoKeys(ifd.GeoKeyDirectoryTag, ifd.GeoDoubleParamsTag, []byte(ifd.GeoASCIIParamsTag))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
		info.EPSG = geoKeys.EPSG()
	}
	return info, nil
}
