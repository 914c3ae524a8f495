package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Marga-Ghale/cardpool-backend/internal/api/middleware"
	"github.com/Marga-Ghale/cardpool-backend/internal/models"
	"github.com/Marga-Ghale/cardpool-backend/internal/service"
)

// CardHandler handles catalog search and order cards
type CardHandler struct {
	cardService service.CardService
}

// Search runs a debounced catalog search keyed by the user's session
func (h *CardHandler) Search(c *gin.Context) {
	actor, ok := middleware.RequireActor(c)
	if !ok {
		return
	}

	result, err := h.cardService.Search(c.Request.Context(), actor.Email, c.Query("q"))
	if err != nil {
		if errors.Is(err, context.Canceled) {
			c.Status(499)
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.CatalogSearchResponse{Cards: result.Cards, Superseded: result.Superseded})
}

// List returns an order's cards with the per-contributor summary
func (h *CardHandler) List(c *gin.Context) {
	actor, ok := middleware.RequireActor(c)
	if !ok {
		return
	}

	list, err := h.cardService.List(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	cards := make([]models.OrderCardResponse, len(list.Cards))
	for i, card := range list.Cards {
		cards[i] = toOrderCardResponse(card)
	}
	c.JSON(http.StatusOK, models.CardListResponse{
		Cards:       cards,
		Summary:     toSummaryResponse(list.Summary),
		Currency:    list.Order.Currency,
		CanAddCards: list.CanAddCards,
	})
}

// Add adds a catalog selection to an order
func (h *CardHandler) Add(c *gin.Context) {
	actor, ok := middleware.RequireActor(c)
	if !ok {
		return
	}

	var req models.AddCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	card, err := h.cardService.Add(c.Request.Context(), actor, c.Param("id"), service.AddCardInput{
		ScryfallID: req.ScryfallID,
		CardName:   req.CardName,
		CardImage:  req.CardImage,
		SetName:    req.SetName,
		Price:      req.Price,
		Quantity:   req.Quantity,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toOrderCardResponse(card))
}

// Remove deletes a card added by the user
func (h *CardHandler) Remove(c *gin.Context) {
	actor, ok := middleware.RequireActor(c)
	if !ok {
		return
	}

	if err := h.cardService.Remove(c.Request.Context(), actor, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
