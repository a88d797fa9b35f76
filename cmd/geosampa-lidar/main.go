package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/twpayne/go-geosampa"
)

var errUsage = errors.New("usage: geosampa-lidar [flags] aoi_path")

func getenv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

func newLogger(format, level string) (*slog.Logger, error) {
	var slogLevel slog.Level
	if err := slogLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}
	options := &slog.HandlerOptions{
		Level: slogLevel,
	}
	switch strings.ToLower(format) {
	case "text":
		return slog.New(slog.NewTextHandler(os.Stderr, options)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stderr, options)), nil
	default:
		return nil, fmt.Errorf("%s: invalid log format", format)
	}
}

func run(ctx context.Context, args []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	flagSet := flag.NewFlagSet("geosampa-lidar", flag.ContinueOnError)
	gridArchive := flagSet.String("grid-archive", getenv("GEOSAMPA_GRID_ARCHIVE", geosampa.DefaultGridArchive), "path to grid archive")
	gridCRS := flagSet.String("grid-crs", getenv("GEOSAMPA_GRID_CRS", geosampa.DefaultCRS), "CRS assumed for a grid without a .prj file")
	baseURL := flagSet.String("base-url", getenv("GEOSAMPA_BASE_URL", geosampa.DefaultBaseURL), "download base URL")
	outputDir := flagSet.String("output-dir", getenv("GEOSAMPA_OUTPUT_DIR", "."), "output directory")
	product := flagSet.String("product", os.Getenv("GEOSAMPA_PRODUCT"), "product, DSM or DTM (prompted if empty)")
	year := flagSet.String("year", os.Getenv("GEOSAMPA_YEAR"), "year, 2017 or 2020 (prompted if empty)")
	timeout := flagSet.Duration("timeout", 0, "HTTP timeout, zero for none")
	cellsGeoJSON := flagSet.String("cells-geojson", "", "write intersecting cells to this GeoJSON file")
	metricsTextfile := flagSet.String("metrics-textfile", "", "write metrics to this Prometheus textfile")
	logFormat := flagSet.String("log-format", getenv("GEOSAMPA_LOG_FORMAT", "text"), "log format, text or json")
	logLevel := flagSet.String("log-level", getenv("GEOSAMPA_LOG_LEVEL", "info"), "log level")
	switch err := flagSet.Parse(args); {
	case errors.Is(err, flag.ErrHelp):
		return nil
	case err != nil:
		return errUsage
	}

	if flagSet.NArg() != 1 {
		return errUsage
	}

	logger, err := newLogger(*logFormat, *logLevel)
	if err != nil {
		return err
	}

	var dataset geosampa.Dataset
	if *product != "" {
		if dataset.Product, err = geosampa.ParseProduct(*product); err != nil {
			return err
		}
	}
	if *year != "" {
		if dataset.Year, err = geosampa.ParseYear(*year); err != nil {
			return err
		}
	}

	fetcher := geosampa.NewFetcher(
		geosampa.WithHTTPClient(&http.Client{
			Timeout: *timeout,
		}),
		geosampa.WithFetchLogger(logger),
	)

	_, err = geosampa.Run(ctx, geosampa.Config{
		AOIFilename:  flagSet.Arg(0),
		GridArchive:  *gridArchive,
		GridCRS:      *gridCRS,
		BaseURL:      *baseURL,
		OutputDir:    *outputDir,
		Dataset:      dataset,
		CellsGeoJSON: *cellsGeoJSON,
		Logger:       logger,
		Fetcher:      fetcher,
	})

	if *metricsTextfile != "" {
		if err := prometheus.WriteToTextfile(*metricsTextfile, prometheus.DefaultGatherer); err != nil {
			logger.Error("cannot write metrics", "filename", *metricsTextfile, "err", err)
		}
	}

	return err
}

// exitCode reports err to w and returns the process exit status.
func exitCode(w io.Writer, err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(w, "\nProcess interrupted by user.")
		return 0
	case errors.Is(err, geosampa.ErrOutsideGrid):
		fmt.Fprintf(w, "Warning: %s.\n", capitalize(err.Error()))
		return 1
	default:
		fmt.Fprintln(w, err)
		return 1
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := exitCode(os.Stdout, run(ctx, os.Args[1:]))
	stop()
	os.Exit(code)
}
