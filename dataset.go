package geosampa

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// A Product is an elevation model product.
type Product string

const (
	ProductDSM Product = "MDS" // Digital surface model.
	ProductDTM Product = "MDT" // Digital terrain model.
)

// Products are the products offered, in menu order.
var Products = []Product{ProductDSM, ProductDTM}

// Years are the survey years offered, in menu order.
var Years = []int{2017, 2020}

// A Dataset is a product from a survey year.
type Dataset struct {
	Product Product
	Year    int
}

// Tag returns the dataset's tag, for example MDS_2017.
func (d Dataset) Tag() string {
	return fmt.Sprintf("%s_%d", d.Product, d.Year)
}

// Name returns the English abbreviation of p.
func (p Product) Name() string {
	switch p {
	case ProductDSM:
		return "DSM"
	case ProductDTM:
		return "DTM"
	default:
		return string(p)
	}
}

// ParseProduct parses a product from its English or Portuguese abbreviation.
func ParseProduct(s string) (Product, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DSM", "MDS":
		return ProductDSM, nil
	case "DTM", "MDT":
		return ProductDTM, nil
	default:
		return "", fmt.Errorf("%s: %w: product must be DSM or DTM", s, ErrInvalidChoice)
	}
}

// ParseYear parses a survey year.
func ParseYear(s string) (int, error) {
	year, err := strconv.Atoi(strings.TrimSpace(s))
	if err == nil {
		for _, y := range Years {
			if y == year {
				return year, nil
			}
		}
	}
	return 0, fmt.Errorf("%s: %w: year must be 2017 or 2020", s, ErrInvalidChoice)
}

// A Prompter asks the operator to choose a dataset.
type Prompter struct {
	scanner *bufio.Scanner
	w       io.Writer
}

// NewPrompter returns a new Prompter that reads choices from r and writes
// menus to w.
func NewPrompter(r io.Reader, w io.Writer) *Prompter {
	return &Prompter{
		scanner: bufio.NewScanner(r),
		w:       w,
	}
}

// Prompt asks for the parts of dataset that are not already set. Invalid
// input returns an error wrapping ErrInvalidChoice.
func (p *Prompter) Prompt(ctx context.Context, dataset Dataset) (Dataset, error) {
	if dataset.Product == "" {
		fmt.Fprintln(p.w, "Select data type:")
		for i, product := range Products {
			fmt.Fprintf(p.w, "%d. %s\n", i+1, product.Name())
		}
		index, err := p.choose(ctx, len(Products))
		switch {
		case errors.Is(err, ErrInvalidChoice):
			return Dataset{}, fmt.Errorf("%w: please choose either 1 (DSM) or 2 (DTM)", err)
		case err != nil:
			return Dataset{}, err
		}
		dataset.Product = Products[index]
	}

	if dataset.Year == 0 {
		fmt.Fprintf(p.w, "Select data year for %s:\n", dataset.Product)
		for i, year := range Years {
			fmt.Fprintf(p.w, "%d. %d\n", i+1, year)
		}
		index, err := p.choose(ctx, len(Years))
		switch {
		case errors.Is(err, ErrInvalidChoice):
			return Dataset{}, fmt.Errorf("%w: please choose either 1 (%s) or 2 (%s)", err,
				Dataset{Product: dataset.Product, Year: Years[0]}.Tag(),
				Dataset{Product: dataset.Product, Year: Years[1]}.Tag(),
			)
		case err != nil:
			return Dataset{}, err
		}
		dataset.Year = Years[index]
	}

	return dataset, nil
}

// choose reads a 1-based menu choice and returns its 0-based index.
func (p *Prompter) choose(ctx context.Context, n int) (int, error) {
	fmt.Fprint(p.w, "Enter the number corresponding to your choice: ")
	line, err := p.readLine(ctx)
	if err != nil {
		return 0, err
	}
	choice, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil || choice < 1 || n < choice {
		return 0, fmt.Errorf("%q: %w", line, ErrInvalidChoice)
	}
	return choice - 1, nil
}

// readLine reads a line, returning early if ctx is done.
func (p *Prompter) readLine(ctx context.Context) (string, error) {
	type result struct {
		line string
		err  error
	}
	resultCh := make(chan result, 1)
	go func() {
		if p.scanner.Scan() {
			resultCh <- result{line: p.scanner.Text()}
			return
		}
		err := p.scanner.Err()
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		resultCh <- result{err: err}
	}()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-resultCh:
		return r.line, r.err
	}
}
