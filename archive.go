package geosampa

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
)

var errUnsafePath = errors.New("unsafe path")

// ExtractZip extracts every file in zr into dir, creating dir if needed,
// and returns the paths of the extracted files. Existing files are
// overwritten.
func ExtractZip(zr *zip.Reader, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o777); err != nil {
		return nil, err
	}
	var filenames []string
	for _, zf := range zr.File {
		name := filepath.FromSlash(zf.Name)
		if !filepath.IsLocal(name) {
			return filenames, fmt.Errorf("%s: %w", zf.Name, errUnsafePath)
		}
		filename := filepath.Join(dir, name)
		if zf.FileInfo().IsDir() {
			if err := os.MkdirAll(filename, 0o777); err != nil {
				return filenames, err
			}
			continue
		}
		if err := extractZipFile(zf, filename); err != nil {
			return filenames, fmt.Errorf("%s: %w", zf.Name, err)
		}
		filenames = append(filenames, filename)
	}
	return filenames, nil
}

func extractZipFile(zf *zip.File, filename string) (err error) {
	if err := os.MkdirAll(filepath.Dir(filename), 0o777); err != nil {
		return err
	}
	r, err := zf.Open()
	if err != nil {
		return err
	}
	defer r.Close()
	w, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := w.Close(); err == nil {
			err = closeErr
		}
	}()
	_, err = io.Copy(w, r)
	return err
}

// ExtractGridArchive extracts the grid archive at archiveFilename into dir
// and returns the path of the shapefile whose name contains gridName.
func ExtractGridArchive(archiveFilename, dir, gridName string) (string, error) {
	zr, err := zip.OpenReader(archiveFilename)
	if err != nil {
		return "", err
	}
	defer zr.Close()
	if _, err := ExtractZip(&zr.Reader, dir); err != nil {
		return "", fmt.Errorf("%s: %w", archiveFilename, err)
	}
	return FindShapefile(dir, gridName)
}

// FindShapefile returns the first shapefile under dir whose name contains
// name.
func FindShapefile(dir, name string) (string, error) {
	var result string
	errFound := errors.New("found")
	switch err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".shp") && strings.Contains(d.Name(), name) {
			result = path
			return errFound
		}
		return nil
	}); {
	case errors.Is(err, errFound):
		return result, nil
	case err != nil:
		return "", err
	default:
		return "", fmt.Errorf("%s.shp: %w", name, ErrGridNotFound)
	}
}
