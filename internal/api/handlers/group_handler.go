package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Marga-Ghale/cardpool-backend/internal/api/middleware"
	"github.com/Marga-Ghale/cardpool-backend/internal/models"
	"github.com/Marga-Ghale/cardpool-backend/internal/service"
)

// GroupHandler handles group-related HTTP requests
type GroupHandler struct {
	groupService service.GroupService
	permission   service.PermissionService
}

// List returns the groups the user owns or belongs to, newest first
func (h *GroupHandler) List(c *gin.Context) {
	actor, ok := middleware.RequireActor(c)
	if !ok {
		return
	}

	groups, err := h.groupService.ListMine(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]models.GroupResponse, len(groups))
	for i, g := range groups {
		response[i] = toGroupResponse(g, h.permission.IsOwner(actor, g))
	}
	c.JSON(http.StatusOK, response)
}

// Create creates a group owned by the user
func (h *GroupHandler) Create(c *gin.Context) {
	actor, ok := middleware.RequireActor(c)
	if !ok {
		return
	}

	var req models.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	group, err := h.groupService.Create(c.Request.Context(), actor, req.Name, req.Description)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toGroupResponse(group, true))
}

// Join adds the user to the group with the given invite code
func (h *GroupHandler) Join(c *gin.Context) {
	actor, ok := middleware.RequireActor(c)
	if !ok {
		return
	}

	var req models.JoinGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	group, err := h.groupService.Join(c.Request.Context(), actor, req.InviteCode)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toGroupResponse(group, h.permission.IsOwner(actor, group)))
}

// Get returns one group
func (h *GroupHandler) Get(c *gin.Context) {
	actor, ok := middleware.RequireActor(c)
	if !ok {
		return
	}

	group, err := h.groupService.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toGroupResponse(group, h.permission.IsOwner(actor, group)))
}

// Delete removes a group with its orders, cards and messages
func (h *GroupHandler) Delete(c *gin.Context) {
	actor, ok := middleware.RequireActor(c)
	if !ok {
		return
	}

	if err := h.groupService.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// SendInvite emails the group's invite code
func (h *GroupHandler) SendInvite(c *gin.Context) {
	actor, ok := middleware.RequireActor(c)
	if !ok {
		return
	}

	var req models.InviteEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.groupService.SendInvite(c.Request.Context(), actor, c.Param("id"), req.Email); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": "Invitation sent"})
}
