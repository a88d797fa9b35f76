package geosampa

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// A Config configures Run.
type Config struct {
	AOIFilename      string
	GridArchive      string
	GridName         string
	GridCRS          string
	TargetCRS        string
	CodeField        string
	BaseURL          string
	OutputDir        string
	Dataset          Dataset
	CellsGeoJSON     string
	TempDir          string
	Stdin            io.Reader
	Stdout           io.Writer
	Logger           *slog.Logger
	Fetcher          *Fetcher
	TransformOptions []ReprojectorOption
}

// Run finds the grid cells overlapping the area of interest, asks for the
// dataset, and downloads and extracts the dataset's archive for each cell.
func Run(ctx context.Context, config Config) (*FetchResult, error) {
	config.setDefaults()
	logger := config.Logger

	tempDir, err := os.MkdirTemp(config.TempDir, "geosampa-grid-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tempDir)

	gridFilename, err := ExtractGridArchive(config.GridArchive, tempDir, config.GridName)
	if err != nil {
		return nil, fmt.Errorf("grid archive: %w", err)
	}
	logger.Info("found grid shapefile", "filename", gridFilename)

	aoi, err := ReadShapefile(config.AOIFilename,
		WithReadLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("loading AOI shapefile: %w", err)
	}
	logger.Info("loaded AOI shapefile", "features", len(aoi.Features), "crs", abbreviateCRS(aoi.CRS))

	grid, err := ReadShapefile(gridFilename,
		WithDefaultCRS(config.GridCRS),
		WithRequiredFields(config.CodeField),
		WithMultiPolygons(true),
		WithReadLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("loading grid shapefile: %w", err)
	}
	logger.Info("loaded grid shapefile", "features", len(grid.Features), "crs", abbreviateCRS(grid.CRS))

	reprojector, err := NewReprojector(config.TransformOptions...)
	if err != nil {
		return nil, err
	}
	if aoi, err = reprojector.Normalize(aoi, config.TargetCRS); err != nil {
		return nil, fmt.Errorf("converting AOI shapefile to %s: %w", config.TargetCRS, err)
	}
	if grid, err = reprojector.Normalize(grid, config.TargetCRS); err != nil {
		return nil, fmt.Errorf("converting grid shapefile to %s: %w", config.TargetCRS, err)
	}

	gridIndex := NewGridIndex(grid)
	switch contains, err := gridIndex.Contains(aoi); {
	case err != nil:
		return nil, err
	case !contains:
		return nil, ErrOutsideGrid
	}

	cells, err := gridIndex.Intersect(aoi)
	if err != nil {
		return nil, err
	}
	logger.Info("found intersecting cells", "cells", len(cells))

	dataset, err := NewPrompter(config.Stdin, config.Stdout).Prompt(ctx, config.Dataset)
	if err != nil {
		return nil, err
	}

	if config.CellsGeoJSON != "" {
		if err := writeCellsGeoJSONFile(config.CellsGeoJSON, reprojector, cells, config.TargetCRS); err != nil {
			return nil, fmt.Errorf("%s: %w", config.CellsGeoJSON, err)
		}
		logger.Info("wrote cells", "filename", config.CellsGeoJSON)
	}

	downloads := Downloads(cells, config.CodeField, config.BaseURL, config.OutputDir, dataset, logger)
	if err := os.MkdirAll(DownloadDir(config.OutputDir, dataset), 0o777); err != nil {
		return nil, err
	}

	logger.Info("starting download, this may take a while", "dataset", dataset.Tag(), "downloads", len(downloads))
	result, err := config.Fetcher.FetchAll(ctx, downloads)
	if err != nil {
		return result, err
	}
	logger.Info("download and extraction completed", "files", len(result.Extracted), "failed", len(result.Failed))
	return result, nil
}

func (c *Config) setDefaults() {
	if c.GridArchive == "" {
		c.GridArchive = DefaultGridArchive
	}
	if c.GridName == "" {
		c.GridName = GridShapefileName
	}
	if c.GridCRS == "" {
		c.GridCRS = DefaultCRS
	}
	if c.TargetCRS == "" {
		c.TargetCRS = DefaultCRS
	}
	if c.CodeField == "" {
		c.CodeField = CellCodeField
	}
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.OutputDir == "" {
		c.OutputDir = "."
	}
	if c.Stdin == nil {
		c.Stdin = os.Stdin
	}
	if c.Stdout == nil {
		c.Stdout = os.Stdout
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Fetcher == nil {
		c.Fetcher = NewFetcher(WithFetchLogger(c.Logger))
	}
}

func writeCellsGeoJSONFile(filename string, r *Reprojector, cells []Cell, crs string) (err error) {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); err == nil {
			err = closeErr
		}
	}()
	return WriteCellsGeoJSON(file, r, cells, crs)
}
