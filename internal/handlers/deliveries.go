package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/inventra/internal/services"
	"github.com/charlesng35/inventra/pkg/response"
)

// DeliveryHandler exposes the delivery lifecycle.
type DeliveryHandler struct {
	deliveries *services.DeliveryService
}

// NewDeliveryHandler constructs a DeliveryHandler.
func NewDeliveryHandler(deliveries *services.DeliveryService) *DeliveryHandler {
	return &DeliveryHandler{deliveries: deliveries}
}

type createDeliveryRequest struct {
	ItemID     string `json:"item_id" form:"item_id" validate:"required"`
	Quantity   int    `json:"quantity" form:"quantity"`
	ToCity     string `json:"to_city" form:"to_city"`
	ToBuilding string `json:"to_building" form:"to_building"`
	ToAddress  string `json:"to_address" form:"to_address"`
}

type updateDeliveryRequest struct {
	ToCity     *string `json:"to_city" form:"to_city"`
	ToBuilding *string `json:"to_building" form:"to_building"`
	ToAddress  *string `json:"to_address" form:"to_address"`
	Status     *string `json:"status" form:"status"`
}

// GET /api/deliveries
func (h *DeliveryHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	deliveries, err := h.deliveries.List(requestContext(c), actor, services.DeliveryFilter{
		Status: c.Query("status"),
		Query:  c.Query("q"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, deliveries)
}

// POST /api/deliveries
func (h *DeliveryHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	var req createDeliveryRequest
	if !bindAndValidate(c, &req) {
		return
	}

	delivery, err := h.deliveries.Create(requestContext(c), actor, services.CreateDeliveryInput{
		ItemID:     req.ItemID,
		Quantity:   req.Quantity,
		ToCity:     req.ToCity,
		ToBuilding: req.ToBuilding,
		ToAddress:  req.ToAddress,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, delivery)
}

// GET /api/deliveries/:id
func (h *DeliveryHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	delivery, err := h.deliveries.Get(requestContext(c), actor, trimParam(c, "id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, delivery)
}

// PATCH /api/deliveries/:id
func (h *DeliveryHandler) Update(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	var req updateDeliveryRequest
	if !bindAndValidate(c, &req) {
		return
	}

	delivery, err := h.deliveries.Update(requestContext(c), actor, trimParam(c, "id"), services.UpdateDeliveryInput{
		ToCity:     req.ToCity,
		ToBuilding: req.ToBuilding,
		ToAddress:  req.ToAddress,
		Status:     req.Status,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, delivery)
}

// POST /api/deliveries/:id/cancel
func (h *DeliveryHandler) Cancel(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	delivery, err := h.deliveries.Cancel(requestContext(c), actor, trimParam(c, "id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, delivery)
}
