package geosampa

import (
	"errors"
	"fmt"
)

var errGeoKeyDirectory = errors.New("invalid GeoKey directory")

// A GeoKey identifies an entry in a GeoTIFF GeoKey directory.
type GeoKey uint16

const (
	GeoKeyModelType       GeoKey = 1024
	GeoKeyRasterType      GeoKey = 1025
	GeoKeyCitation        GeoKey = 1026
	GeoKeyGeodeticCRS     GeoKey = 2048
	GeoKeyGeogCitation    GeoKey = 2049
	GeoKeyProjectedCRS    GeoKey = 3072
	GeoKeyPCSCitation     GeoKey = 3073
	GeoKeyProjLinearUnits GeoKey = 3076
	GeoKeyVerticalCRS     GeoKey = 4096
)

const (
	modelTypeProjected  = 1
	modelTypeGeographic = 2
	userDefined         = 32767
)

// tiffTagLocation values in a GeoKey entry.
const (
	locationInline       = 0
	locationDoubleParams = 34736
	locationASCIIParams  = 34737
)

// GeoKeys are the parsed values of a GeoKey directory.
type GeoKeys struct {
	Params       map[GeoKey]int
	DoubleParams map[GeoKey]float64
	ASCIIParams  map[GeoKey]string
}

// ParseGeoKeys parses a GeoKey directory and its associated double and
// ASCII parameters.
func ParseGeoKeys(directory []uint16, doubleParams []float64, asciiParams []byte) (*GeoKeys, error) {
	if len(directory) < 4 {
		return nil, errGeoKeyDirectory
	}
	if version, revision, minorRevision := directory[0], directory[1], directory[2]; version != 1 || revision != 1 || minorRevision > 1 {
		return nil, fmt.Errorf("%w: version %d.%d.%d", errGeoKeyDirectory, version, revision, minorRevision)
	}
	numberOfKeys := int(directory[3])
	if len(directory) != 4+4*numberOfKeys {
		return nil, fmt.Errorf("%w: expected %d keys", errGeoKeyDirectory, numberOfKeys)
	}

	geoKeys := &GeoKeys{
		Params:       make(map[GeoKey]int),
		DoubleParams: make(map[GeoKey]float64),
		ASCIIParams:  make(map[GeoKey]string),
	}
	for i := range numberOfKeys {
		entry := directory[4+4*i : 4+4*(i+1)]
		key, location, count, value := GeoKey(entry[0]), int(entry[1]), int(entry[2]), int(entry[3])
		switch location {
		case locationInline:
			if count != 1 {
				return nil, fmt.Errorf("%w: key %d", errGeoKeyDirectory, key)
			}
			geoKeys.Params[key] = value
		case locationDoubleParams:
			if count != 1 {
				return nil, errors.ErrUnsupported
			}
			if value >= len(doubleParams) {
				return nil, fmt.Errorf("%w: key %d", errGeoKeyDirectory, key)
			}
			geoKeys.DoubleParams[key] = doubleParams[value]
		case locationASCIIParams:
			if value+count > len(asciiParams) {
				return nil, fmt.Errorf("%w: key %d", errGeoKeyDirectory, key)
			}
			geoKeys.ASCIIParams[key] = string(asciiParams[value : value+count])
		default:
			return nil, errors.ErrUnsupported
		}
	}
	return geoKeys, nil
}

// EPSG returns the EPSG code of the CRS described by k, or zero if it is
// user-defined or absent.
func (k *GeoKeys) EPSG() int {
	key := GeoKeyProjectedCRS
	if k.Params[GeoKeyModelType] == modelTypeGeographic {
		key = GeoKeyGeodeticCRS
	}
	if code, ok := k.Params[key]; ok && code != userDefined {
		return code
	}
	return 0
}
