package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/inventra/internal/services"
	"github.com/charlesng35/inventra/pkg/response"
)

// CatalogHandler exposes the read-only city/building hierarchy to every
// signed-in user, for picking item locations.
type CatalogHandler struct {
	catalog *services.CatalogService
}

// NewCatalogHandler constructs a CatalogHandler.
func NewCatalogHandler(catalog *services.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// GET /api/cities
func (h *CatalogHandler) ListCities(c *gin.Context) {
	cities, err := h.catalog.ListCities(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, cities)
}

// GET /api/cities/:id/buildings
func (h *CatalogHandler) ListBuildings(c *gin.Context) {
	ctx := requestContext(c)
	city, err := h.catalog.GetCity(ctx, trimParam(c, "id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	buildings, err := h.catalog.ListBuildings(ctx, city.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, buildings)
}

// GET /api/buildings/:id/items
func (h *CatalogHandler) BuildingItems(c *gin.Context) {
	view, err := h.catalog.BuildingItems(requestContext(c), trimParam(c, "id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, view)
}
