package handler

import (
	"net/http"

	"floodrescue/backend/internal/models"

	"github.com/gin-gonic/gin"
)

// RegisterResponder creates the calling responder's profile.
func (h *Handler) RegisterResponder(c *gin.Context) {
	var p models.ResponderProfile
	if err := c.ShouldBindJSON(&p); err != nil {
		h.badRequest(c, err)
		return
	}
	claims := claimsFrom(c)
	if p.Name == "" {
		p.Name = claims.Name
	}
	if p.Phone == "" {
		p.Phone = claims.Phone
	}
	out, err := h.Hub.RegisterResponder(c.Request.Context(), claims.Subject, p)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (h *Handler) GetOwnProfile(c *gin.Context) {
	p, err := h.Hub.GetResponder(c.Request.Context(), claimsFrom(c).Subject)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) UpdateOwnProfile(c *gin.Context) {
	var u models.ProfileUpdate
	if err := c.ShouldBindJSON(&u); err != nil {
		h.badRequest(c, err)
		return
	}
	id := claimsFrom(c).Subject
	p, err := h.Hub.UpdateResponder(c.Request.Context(), id, id, u)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
