package services

import (
	"context"
	"fmt"

	"github.com/skip2/go-qrcode"
)

// Label image bounds in pixels.
const (
	DefaultLabelSize = 256
	MaxLabelSize     = 1024
)

// ItemLabel renders a PNG QR code encoding the item's SKU.
func (s *ItemService) ItemLabel(ctx context.Context, ownerID, itemID string, size int) ([]byte, error) {
	item, err := s.Get(ctx, ownerID, itemID)
	if err != nil {
		return nil, err
	}
	size = clampLimit(size, DefaultLabelSize, MaxLabelSize)

	png, err := qrcode.Encode(item.SKU, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("item service: encode label: %w", err)
	}
	return png, nil
}
