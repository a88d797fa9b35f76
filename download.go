package geosampa

import (
	"fmt"
	"log/slog"
	"path/filepath"
)

// A Download is a URL and the directory its archive is extracted into.
type Download struct {
	URL  string
	Dir  string
	Code string
}

// DownloadURL returns the URL of the archive for the cell with code in
// dataset.
func DownloadURL(baseURL string, dataset Dataset, code string) string {
	return fmt.Sprintf("%s&arq=%s%%5C%s.zip&arqTipo=MAPA_ARTICULACAO", baseURL, dataset.Tag(), code)
}

// DownloadDir returns the directory under outputDir that dataset's archives
// are extracted into.
func DownloadDir(outputDir string, dataset Dataset) string {
	return filepath.Join(outputDir, fmt.Sprintf("downloaded_%s_files", dataset.Tag()))
}

// Downloads returns one Download per distinct cell code in cells, in cell
// order. Cells without a code are skipped.
func Downloads(cells []Cell, codeField, baseURL, outputDir string, dataset Dataset, logger *slog.Logger) []Download {
	dir := DownloadDir(outputDir, dataset)
	seen := make(map[string]struct{}, len(cells))
	downloads := make([]Download, 0, len(cells))
	for _, cell := range cells {
		code := cell.Fields[codeField]
		if code == "" {
			logger.Warn("cell has no code", "field", codeField)
			continue
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		downloads = append(downloads, Download{
			URL:  DownloadURL(baseURL, dataset, code),
			Dir:  dir,
			Code: code,
		})
	}
	return downloads
}
