package catalog

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/mohammeioi/Market-Management-sub000/internal/app/domain/catalog"
)

// ImportResult summarizes one bulk import run.
type ImportResult struct {
	Created int      `json:"created"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors,omitempty"`
}

// ImportProducts reads an xlsx workbook and creates one product per data row.
// Expected columns: name, price, category, stock, barcode. The first row is
// treated as a header when its first cell is not a parsable price row. Rows
// that fail validation are skipped and reported; valid rows are inserted as
// one batch. Categories are matched by name, case-insensitively, and created
// when missing.
func (s *Service) ImportProducts(ctx context.Context, r io.Reader) (ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return ImportResult{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return ImportResult{}, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return ImportResult{}, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return ImportResult{}, nil
	}

	categories, err := s.categoryIndex(ctx)
	if err != nil {
		return ImportResult{}, err
	}

	var (
		result   ImportResult
		products []catalog.Product
	)
	for i, row := range rows {
		if i == 0 && looksLikeHeader(row) {
			continue
		}
		p, err := parseRow(row)
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", i+1, err))
			continue
		}
		if name := categoryName(row); name != "" {
			id, err := s.resolveCategory(ctx, categories, name)
			if err != nil {
				result.Skipped++
				result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", i+1, err))
				continue
			}
			p.CategoryID = id
		}
		products = append(products, p)
	}

	if len(products) > 0 {
		created, err := s.store.CreateProducts(ctx, products)
		if err != nil {
			return result, fmt.Errorf("insert imported products: %w", err)
		}
		result.Created = len(created)
		s.Invalidate()
	}

	s.log.WithField("created", result.Created).
		WithField("skipped", result.Skipped).
		Info("bulk import finished")
	return result, nil
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func categoryName(row []string) string { return cell(row, 2) }

func looksLikeHeader(row []string) bool {
	if _, err := decimal.NewFromString(cell(row, 1)); err == nil {
		return false
	}
	return true
}

func parseRow(row []string) (catalog.Product, error) {
	name := cell(row, 0)
	if name == "" {
		return catalog.Product{}, fmt.Errorf("empty name")
	}
	price, err := decimal.NewFromString(cell(row, 1))
	if err != nil {
		return catalog.Product{}, fmt.Errorf("bad price %q", cell(row, 1))
	}
	if price.IsNegative() {
		return catalog.Product{}, fmt.Errorf("negative price")
	}

	stock := 0
	if raw := cell(row, 3); raw != "" {
		stock, err = strconv.Atoi(raw)
		if err != nil || stock < 0 {
			return catalog.Product{}, fmt.Errorf("bad stock %q", raw)
		}
	}

	return catalog.Product{
		Name:      name,
		Price:     price,
		Stock:     stock,
		Barcode:   cell(row, 4),
		Available: true,
	}, nil
}

func (s *Service) categoryIndex(ctx context.Context) (map[string]string, error) {
	list, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	idx := make(map[string]string, len(list))
	for _, c := range list {
		idx[strings.ToLower(c.Name)] = c.ID
	}
	return idx, nil
}

func (s *Service) resolveCategory(ctx context.Context, idx map[string]string, name string) (string, error) {
	if id, ok := idx[strings.ToLower(name)]; ok {
		return id, nil
	}
	c, err := s.store.CreateCategory(ctx, name)
	if err != nil {
		return "", fmt.Errorf("create category %q: %w", name, err)
	}
	idx[strings.ToLower(name)] = c.ID
	return c.ID, nil
}
