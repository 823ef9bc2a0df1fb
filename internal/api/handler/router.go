package handler

import (
	"net/http"

	"floodrescue/backend/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Register mounts every route on r. gatherer backs /metrics; nil skips it.
func (h *Handler) Register(r gin.IRouter, gatherer prometheus.Gatherer) {
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	r.GET("/anonid", h.GetAnonID)
	r.GET("/track", h.Track)

	authed := r.Group("/", h.Authenticate())
	requester := RequireRole(auth.RoleRequester)
	responder := RequireRole(auth.RoleResponder)

	authed.GET("/ws", h.ServeWebSocket)
	authed.GET("/geocode", h.Geocode)

	requests := authed.Group("/requests")
	requests.POST("", requester, h.SubmitRequest)
	requests.GET("", h.ListRequests)
	requests.GET("/markers", h.ListMarkers)
	requests.GET("/:id", h.GetRequest)
	requests.PATCH("/:id", requester, h.AmendRequest)
	requests.DELETE("/:id", requester, h.CancelRequest)
	requests.POST("/:id/claim", responder, h.ClaimRequest)
	requests.POST("/:id/complete", responder, h.CompleteRequest)
	requests.POST("/:id/confirm", requester, h.ConfirmRequest)
	requests.POST("/:id/messages", RequireRole(auth.RoleRequester, auth.RoleResponder), h.SendMessage)
	requests.GET("/:id/route", h.GetRoute)
	requests.GET("/:id/advisory", responder, h.GetAdvisory)

	responders := authed.Group("/responders", responder)
	responders.POST("", h.RegisterResponder)
	responders.GET("/me", h.GetOwnProfile)
	responders.PATCH("/me", h.UpdateOwnProfile)
}
