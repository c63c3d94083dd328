package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// Item export format.
const (
	ItemExportFilename   = "inventory_items.csv"
	ItemExportTimeLayout = "2006-01-02 15:04:05"
)

var itemExportHeader = []string{"Name", "SKU", "Quantity", "City", "Building", "Address", "Created At"}

// ExportItems writes the owner's items matching filter to w as CSV, newest first.
func (s *ItemService) ExportItems(ctx context.Context, ownerID string, filter ItemFilter, w io.Writer) (int, error) {
	items, err := s.ListModels(ctx, ownerID, filter)
	if err != nil {
		return 0, err
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(itemExportHeader); err != nil {
		return 0, fmt.Errorf("item service: write export header: %w", err)
	}
	for _, item := range items {
		record := []string{
			item.Name,
			item.SKU,
			strconv.Itoa(item.Quantity),
			item.CityDisplay(),
			item.BuildingDisplay(),
			item.Address,
			item.CreatedAt.UTC().Format(ItemExportTimeLayout),
		}
		if err := writer.Write(record); err != nil {
			return 0, fmt.Errorf("item service: write export row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return 0, fmt.Errorf("item service: flush export: %w", err)
	}
	return len(items), nil
}
