package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/inventra/internal/services"
	"github.com/charlesng35/inventra/pkg/response"
)

// ItemHandler exposes the item ledger and move workflow.
type ItemHandler struct {
	items *services.ItemService
	maps  *services.MapService
}

// NewItemHandler constructs an ItemHandler.
func NewItemHandler(items *services.ItemService, maps *services.MapService) *ItemHandler {
	return &ItemHandler{items: items, maps: maps}
}

type createItemRequest struct {
	Name       string `json:"name" form:"name"`
	SKU        string `json:"sku" form:"sku"`
	Quantity   int    `json:"quantity" form:"quantity"`
	CityID     string `json:"city_id" form:"city_id" validate:"required"`
	BuildingID string `json:"building_id" form:"building_id" validate:"required"`
}

type updateItemRequest struct {
	Name     *string `json:"name" form:"name"`
	SKU      *string `json:"sku" form:"sku"`
	Quantity *int    `json:"quantity" form:"quantity"`
}

type moveItemRequest struct {
	CityID     string `json:"city_id" form:"city_id" validate:"required"`
	BuildingID string `json:"building_id" form:"building_id" validate:"required"`
}

func itemFilter(c *gin.Context) services.ItemFilter {
	return services.ItemFilter{
		Query:    c.Query("q"),
		City:     c.Query("city"),
		Building: c.Query("building"),
	}
}

// GET /api/items
func (h *ItemHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	ctx := requestContext(c)
	items, err := h.items.List(ctx, actor.UserID, itemFilter(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	cities, buildings, err := h.items.Locations(ctx, actor.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"items":     items,
		"cities":    nonNilStrings(cities),
		"buildings": nonNilStrings(buildings),
		"has_key":   h.maps != nil && h.maps.HasKey(),
	})
}

// POST /api/items
func (h *ItemHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	var req createItemRequest
	if !bindAndValidate(c, &req) {
		return
	}

	item, err := h.items.Create(requestContext(c), actor, services.CreateItemInput{
		Name:       req.Name,
		SKU:        req.SKU,
		Quantity:   req.Quantity,
		CityID:     req.CityID,
		BuildingID: req.BuildingID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, services.ToItemDTO(*item))
}

// GET /api/items/:id
func (h *ItemHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	item, err := h.items.Get(requestContext(c), actor.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, services.ToItemDTO(*item))
}

// GET /api/items/:id/history
func (h *ItemHandler) History(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	moves, err := h.items.History(requestContext(c), actor.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, moves)
}

// PATCH /api/items/:id
func (h *ItemHandler) Update(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	var req updateItemRequest
	if !bindAndValidate(c, &req) {
		return
	}

	item, err := h.items.Update(requestContext(c), actor, c.Param("id"), services.UpdateItemInput{
		Name:     req.Name,
		SKU:      req.SKU,
		Quantity: req.Quantity,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, services.ToItemDTO(*item))
}

// DELETE /api/items/:id
func (h *ItemHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	if err := h.items.Delete(requestContext(c), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// POST /api/items/:id/move
func (h *ItemHandler) Move(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	var req moveItemRequest
	if !bindAndValidate(c, &req) {
		return
	}

	item, move, err := h.items.Move(requestContext(c), actor, c.Param("id"), services.MoveItemInput{
		CityID:     req.CityID,
		BuildingID: req.BuildingID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"item": services.ToItemDTO(*item),
		"move": move,
	})
}

// GET /api/items/export
func (h *ItemHandler) Export(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if _, err := h.items.ExportItems(requestContext(c), actor.UserID, itemFilter(c), &buf); err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", services.ItemExportFilename))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// GET /api/items/:id/qrcode
func (h *ItemHandler) QRCode(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	size := parseIntQuery(c, "size", services.DefaultLabelSize)
	png, err := h.items.ItemLabel(requestContext(c), actor.UserID, c.Param("id"), size)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}

// GET /api/deliveries/items
func (h *ItemHandler) Deliverable(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	items, err := h.items.DeliverableItems(requestContext(c), actor.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, items)
}

// GET /api/map
func (h *ItemHandler) Map(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	view, err := h.maps.ItemMap(requestContext(c), actor.UserID, itemFilter(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, view)
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func trimParam(c *gin.Context, key string) string {
	return strings.TrimSpace(c.Param(key))
}
