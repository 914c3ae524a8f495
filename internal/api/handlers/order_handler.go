package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Marga-Ghale/cardpool-backend/internal/api/middleware"
	"github.com/Marga-Ghale/cardpool-backend/internal/models"
	"github.com/Marga-Ghale/cardpool-backend/internal/service"
)

// OrderHandler handles order-related HTTP requests
type OrderHandler struct {
	orderService service.OrderService
}

// ListByGroup returns a group's orders, newest first
func (h *OrderHandler) ListByGroup(c *gin.Context) {
	actor, ok := middleware.RequireActor(c)
	if !ok {
		return
	}

	views, err := h.orderService.ListByGroup(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]models.OrderResponse, len(views))
	for i, v := range views {
		response[i] = toOrderResponse(v)
	}
	c.JSON(http.StatusOK, response)
}

// Create opens a new order in a group
func (h *OrderHandler) Create(c *gin.Context) {
	actor, ok := middleware.RequireActor(c)
	if !ok {
		return
	}

	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	view, err := h.orderService.Create(c.Request.Context(), actor, c.Param("id"), service.CreateOrderInput{
		Title:    req.Title,
		Deadline: req.Deadline,
		Currency: req.Currency,
		Notes:    req.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toOrderResponse(view))
}

// Get returns one order with its derived fields
func (h *OrderHandler) Get(c *gin.Context) {
	actor, ok := middleware.RequireActor(c)
	if !ok {
		return
	}

	view, err := h.orderService.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toOrderResponse(view))
}

// UpdateStatus overwrites an order's status
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	actor, ok := middleware.RequireActor(c)
	if !ok {
		return
	}

	var req models.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	view, err := h.orderService.UpdateStatus(c.Request.Context(), actor, c.Param("id"), req.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toOrderResponse(view))
}

// SetTotalValue records the amount actually paid for an order
func (h *OrderHandler) SetTotalValue(c *gin.Context) {
	actor, ok := middleware.RequireActor(c)
	if !ok {
		return
	}

	var req models.SetTotalValueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	view, err := h.orderService.SetTotalValue(c.Request.Context(), actor, c.Param("id"), *req.TotalValue)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toOrderResponse(view))
}

// Delete removes an order and its cards
func (h *OrderHandler) Delete(c *gin.Context) {
	actor, ok := middleware.RequireActor(c)
	if !ok {
		return
	}

	if err := h.orderService.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
