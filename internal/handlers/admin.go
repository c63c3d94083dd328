package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/inventra/internal/services"
	"github.com/charlesng35/inventra/pkg/response"
)

// AdminHandler backs the staff-only catalog management endpoints.
type AdminHandler struct {
	admin   *services.AdminService
	catalog *services.CatalogService
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(admin *services.AdminService, catalog *services.CatalogService) *AdminHandler {
	return &AdminHandler{admin: admin, catalog: catalog}
}

type createCityRequest struct {
	Name string `json:"name" form:"name"`
}

type createBuildingRequest struct {
	Name    string `json:"name" form:"name"`
	Address string `json:"address" form:"address"`
	Lat     string `json:"lat" form:"lat"`
	Lng     string `json:"lng" form:"lng"`
}

// GET /api/admin/inventory
func (h *AdminHandler) Overview(c *gin.Context) {
	overview, err := h.admin.Overview(requestContext(c), c.Query("city_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, overview)
}

// POST /api/admin/inventory
func (h *AdminHandler) Action(c *gin.Context) {
	var req services.AdminActionInput
	if !bindAndValidate(c, &req) {
		return
	}
	h.dispatch(c, http.StatusOK, req)
}

// POST /api/admin/cities
func (h *AdminHandler) CreateCity(c *gin.Context) {
	var req createCityRequest
	if !bindAndValidate(c, &req) {
		return
	}
	h.dispatch(c, http.StatusCreated, services.AdminActionInput{
		Action:   services.AdminActionAddCity,
		CityName: req.Name,
	})
}

// DELETE /api/admin/cities/:id
func (h *AdminHandler) DeleteCity(c *gin.Context) {
	h.dispatch(c, http.StatusOK, services.AdminActionInput{
		Action: services.AdminActionDeleteCity,
		CityID: trimParam(c, "id"),
	})
}

// POST /api/admin/cities/:id/buildings
func (h *AdminHandler) CreateBuilding(c *gin.Context) {
	var req createBuildingRequest
	if !bindAndValidate(c, &req) {
		return
	}
	h.dispatch(c, http.StatusCreated, services.AdminActionInput{
		Action:  services.AdminActionAddBuilding,
		CityID:  trimParam(c, "id"),
		Name:    req.Name,
		Address: req.Address,
		Lat:     req.Lat,
		Lng:     req.Lng,
	})
}

// DELETE /api/admin/buildings/:id
func (h *AdminHandler) DeleteBuilding(c *gin.Context) {
	h.dispatch(c, http.StatusOK, services.AdminActionInput{
		Action:     services.AdminActionDeleteBuilding,
		BuildingID: trimParam(c, "id"),
	})
}

// POST /api/admin/cities/merge
func (h *AdminHandler) MergeCities(c *gin.Context) {
	report, err := h.catalog.MergeDuplicateCities(requestContext(c), parseBoolQuery(c, "dry_run"))
	if report == nil {
		response.Error(c, err)
		return
	}
	// Per-city failures are already carried in the report.
	response.Success(c, http.StatusOK, report)
}

func (h *AdminHandler) dispatch(c *gin.Context, status int, input services.AdminActionInput) {
	result, err := h.admin.Dispatch(requestContext(c), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	if result.Level == services.LevelInfo {
		status = http.StatusOK
	}
	response.Success(c, status, result)
}
