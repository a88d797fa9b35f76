package geosampa

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	downloadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "geosampa_downloads_total",
		Help: "The total number of archives downloaded and extracted",
	})
	downloadFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "geosampa_download_failures_total",
		Help: "The total number of archives that could not be downloaded",
	})
	extractFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "geosampa_extract_failures_total",
		Help: "The total number of archives that could not be extracted",
	})
	extractedFilesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "geosampa_extracted_files_total",
		Help: "The total number of files extracted from archives",
	})
	downloadedBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "geosampa_downloaded_bytes_total",
		Help: "The total number of bytes downloaded",
	})
)

var errHTTPStatus = errors.New("unexpected HTTP status")

// A Fetcher downloads and extracts archives.
type Fetcher struct {
	client    *http.Client
	logger    *slog.Logger
	inspect   bool
	userAgent string
}

// A FetcherOption sets an option on a Fetcher.
type FetcherOption func(*Fetcher)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(client *http.Client) FetcherOption {
	return func(f *Fetcher) {
		f.client = client
	}
}

// WithFetchLogger sets the logger.
func WithFetchLogger(logger *slog.Logger) FetcherOption {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// WithInspectGeoTIFFs sets whether extracted GeoTIFFs are inspected and
// logged.
func WithInspectGeoTIFFs(inspect bool) FetcherOption {
	return func(f *Fetcher) {
		f.inspect = inspect
	}
}

// WithUserAgent sets the User-Agent header sent with requests.
func WithUserAgent(userAgent string) FetcherOption {
	return func(f *Fetcher) {
		f.userAgent = userAgent
	}
}

// NewFetcher returns a new Fetcher.
func NewFetcher(options ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client:  http.DefaultClient,
		logger:  slog.Default(),
		inspect: true,
	}
	for _, option := range options {
		option(f)
	}
	return f
}

// A FetchResult summarizes a batch of downloads.
type FetchResult struct {
	Extracted []string
	Failed    []Download
}

// FetchAll downloads and extracts each of downloads in order. A download
// that fails is logged and recorded in the result and does not stop the
// batch. FetchAll only returns an error if ctx is done.
func (f *Fetcher) FetchAll(ctx context.Context, downloads []Download) (*FetchResult, error) {
	result := &FetchResult{}
	for _, download := range downloads {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		filenames, err := f.Fetch(ctx, download)
		result.Extracted = append(result.Extracted, filenames...)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return result, ctxErr
			}
			f.logger.Error("failed", "code", download.Code, "url", download.URL, "err", err)
			result.Failed = append(result.Failed, download)
			continue
		}
		f.logger.Info("extracted", "code", download.Code, "url", download.URL, "files", len(filenames))
	}
	return result, nil
}

// Fetch downloads the archive at download.URL and extracts it into
// download.Dir.
func (f *Fetcher) Fetch(ctx context.Context, download Download) ([]string, error) {
	data, err := f.get(ctx, download.URL)
	if err != nil {
		downloadFailuresTotal.Inc()
		return nil, fmt.Errorf("download: %w", err)
	}
	downloadedBytesTotal.Add(float64(len(data)))

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		extractFailuresTotal.Inc()
		return nil, fmt.Errorf("extract: %w", err)
	}
	filenames, err := ExtractZip(zr, download.Dir)
	extractedFilesTotal.Add(float64(len(filenames)))
	if err != nil {
		extractFailuresTotal.Inc()
		return filenames, fmt.Errorf("extract: %w", err)
	}
	downloadsTotal.Inc()

	if f.inspect {
		f.inspectGeoTIFFs(filenames)
	}
	return filenames, nil
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s", errHTTPStatus, resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// inspectGeoTIFFs logs a summary of each GeoTIFF in filenames.
func (f *Fetcher) inspectGeoTIFFs(filenames []string) {
	for _, filename := range filenames {
		switch strings.ToLower(filepath.Ext(filename)) {
		case ".tif", ".tiff":
		default:
			continue
		}
		info, err := InspectGeoTIFF(filename)
		if err != nil {
			f.logger.Warn("cannot inspect GeoTIFF", "filename", filename, "err", err)
			continue
		}
		f.logger.Info("raster",
			"filename", filename,
			"width", info.Width,
			"height", info.Height,
			"scaleX", info.ScaleX,
			"scaleY", info.ScaleY,
			"originX", info.OriginX,
			"originY", info.OriginY,
			"epsg", info.EPSG,
		)
	}
}
