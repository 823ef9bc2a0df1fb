package handler

import (
	"net/http"

	"floodrescue/backend/internal/apperr"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindUnauthorized:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindClaimConflict, apperr.KindInvalidTransition, apperr.KindTerminal:
		return http.StatusConflict
	case apperr.KindNetwork, apperr.KindRoutingUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as {"error": kind, "message": text}. Internal errors are
// logged and their text is not exposed.
func (h *Handler) fail(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status := statusFor(kind)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
		msg = "internal error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": kind, "message": msg})
}

// badRequest reports a body or query that could not be parsed.
func (h *Handler) badRequest(c *gin.Context, err error) {
	h.fail(c, apperr.Wrap(apperr.KindValidation, "handler", err))
}
