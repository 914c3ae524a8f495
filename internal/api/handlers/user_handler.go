package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Marga-Ghale/cardpool-backend/internal/api/middleware"
	"github.com/Marga-Ghale/cardpool-backend/internal/models"
	"github.com/Marga-Ghale/cardpool-backend/internal/service"
)

// UserHandler handles the current user and development tokens
type UserHandler struct {
	userService service.UserService
	authService service.AuthService
}

// GetCurrentUser returns the authenticated user
func (h *UserHandler) GetCurrentUser(c *gin.Context) {
	actor, ok := middleware.RequireActor(c)
	if !ok {
		return
	}

	user, err := h.userService.Get(c.Request.Context(), actor.Email)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toUserResponse(user))
}

// UpdateDisplayName sets the name shown on groups, cards and messages
func (h *UserHandler) UpdateDisplayName(c *gin.Context) {
	actor, ok := middleware.RequireActor(c)
	if !ok {
		return
	}

	var req models.UpdateDisplayNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.userService.UpdateDisplayName(c.Request.Context(), actor.Email, req.DisplayName)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toUserResponse(user))
}

// IssueDevToken signs a token for local testing. Mounted outside production only.
func (h *UserHandler) IssueDevToken(c *gin.Context) {
	var req models.DevTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	token, err := h.authService.IssueToken(req.Email, req.Name)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.TokenResponse{Token: token})
}
