package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"floodrescue/backend/internal/apperr"
	"floodrescue/backend/internal/auth"
	"floodrescue/backend/internal/models"
	"floodrescue/backend/internal/proximity"
	"floodrescue/backend/internal/rescuehub"
	"floodrescue/backend/internal/routing"

	"github.com/gin-gonic/gin"
)

// requestView is a list entry with the observer-relative extras.
type requestView struct {
	models.Request
	Distance string `json:"distance,omitempty"`
	Recent   bool   `json:"recent"`
}

type claimBody struct {
	Location *models.Location `json:"location"`
}

type completeBody struct {
	ProofImageURLs []string `json:"proof_image_urls"`
}

type messageBody struct {
	Text string `json:"text"`
}

type routeView struct {
	routing.Route
	Distance string `json:"distance,omitempty"`
	Duration string `json:"duration,omitempty"`
}

// observer reads ?lat=&lng=. Both must be given for a position.
func observer(c *gin.Context) (*models.Location, error) {
	latStr, lngStr := c.Query("lat"), c.Query("lng")
	if latStr == "" && lngStr == "" {
		return nil, nil
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return nil, apperr.Validation("handler", "invalid lat %q", latStr)
	}
	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		return nil, apperr.Validation("handler", "invalid lng %q", lngStr)
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return nil, apperr.Validation("handler", "coordinates out of range")
	}
	return &models.Location{Lat: lat, Lng: lng}, nil
}

// SubmitRequest creates a request for the calling requester.
func (h *Handler) SubmitRequest(c *gin.Context) {
	var d models.Draft
	if err := c.ShouldBindJSON(&d); err != nil {
		h.badRequest(c, err)
		return
	}
	id, err := h.Hub.Submit(c.Request.Context(), d, claimsFrom(c).Subject)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// ListRequests returns the current snapshot ranked by ?sort=.
func (h *Handler) ListRequests(c *gin.Context) {
	mode, err := proximity.ParseSortMode(c.Query("sort"))
	if err != nil {
		h.fail(c, err)
		return
	}
	from, err := observer(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	snap := h.Hub.Snapshot()
	now := h.now()
	ranked := proximity.Rank(snap.Requests, mode, from)
	out := make([]requestView, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, requestView{
			Request:  r,
			Distance: proximity.FormatDistanceKm(proximity.DistanceFrom(from, r)),
			Recent:   proximity.IsRecent(r.Timestamp, now),
		})
	}
	c.JSON(http.StatusOK, gin.H{"version": snap.Version, "requests": out})
}

// ListMarkers returns the map markers left visible by ?hide=.
func (h *Handler) ListMarkers(c *gin.Context) {
	f, err := proximity.ParseFilter(c.Query("hide"))
	if err != nil {
		h.fail(c, err)
		return
	}
	snap := h.Hub.Snapshot()
	c.JSON(http.StatusOK, gin.H{"version": snap.Version, "markers": proximity.FilterMarkers(snap.Requests, f)})
}

func (h *Handler) GetRequest(c *gin.Context) {
	r, err := h.Hub.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h *Handler) AmendRequest(c *gin.Context) {
	var a models.Amendment
	if err := c.ShouldBindJSON(&a); err != nil {
		h.badRequest(c, err)
		return
	}
	r, err := h.Hub.Amend(c.Request.Context(), c.Param("id"), claimsFrom(c).Subject, a)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h *Handler) CancelRequest(c *gin.Context) {
	if err := h.Hub.Cancel(c.Request.Context(), c.Param("id"), claimsFrom(c).Subject); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ClaimRequest assigns the calling responder. The body may carry their
// current position.
func (h *Handler) ClaimRequest(c *gin.Context) {
	var body claimBody
	if c.Request.Body != nil && c.Request.Body != http.NoBody {
		if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
			h.badRequest(c, err)
			return
		}
	}
	claims := claimsFrom(c)
	who := models.Identity{ID: claims.Subject, Name: claims.Name, Phone: claims.Phone}
	r, err := h.Hub.Claim(c.Request.Context(), c.Param("id"), who, body.Location)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h *Handler) CompleteRequest(c *gin.Context) {
	var body completeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.badRequest(c, err)
		return
	}
	r, err := h.Hub.Complete(c.Request.Context(), c.Param("id"), claimsFrom(c).Subject, body.ProofImageURLs)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h *Handler) ConfirmRequest(c *gin.Context) {
	r, err := h.Hub.Confirm(c.Request.Context(), c.Param("id"), claimsFrom(c).Subject)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// SendMessage appends to the chat log. The sender role comes from the token.
func (h *Handler) SendMessage(c *gin.Context) {
	var body messageBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.badRequest(c, err)
		return
	}
	claims := claimsFrom(c)
	actor := rescuehub.Actor{ID: claims.Subject, Role: senderRole(claims.Role)}
	msg, err := h.Hub.SendMessageAs(c.Request.Context(), c.Param("id"), actor, body.Text)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// GetRoute returns the responder's route to the request.
func (h *Handler) GetRoute(c *gin.Context) {
	r, err := h.Hub.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	route, err := h.Routes.RouteForRequest(c.Request.Context(), *r)
	if err != nil {
		h.fail(c, err)
		return
	}
	view := routeView{Route: route}
	if !route.Fallback {
		view.Distance = routing.FormatDistance(route.DistanceMeters)
		view.Duration = routing.FormatDuration(route.DurationSeconds)
	}
	c.JSON(http.StatusOK, view)
}

// GetAdvisory returns the risk assessment of an unresolved request.
func (h *Handler) GetAdvisory(c *gin.Context) {
	r, err := h.Hub.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if r.Status == models.StatusResolved {
		h.fail(c, apperr.Terminal("handler.GetAdvisory", "request %s is resolved", r.ID))
		return
	}
	c.JSON(http.StatusOK, h.Advisor.Assess(c.Request.Context(), r.Note, r.Severity))
}

// Geocode returns a readable address for ?lat=&lng=.
func (h *Handler) Geocode(c *gin.Context) {
	loc, err := observer(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	if loc == nil {
		h.fail(c, apperr.Validation("handler.Geocode", "lat and lng are required"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"address": h.Geocoder.Reverse(c.Request.Context(), *loc)})
}

// Track finds the caller's active request by contact phone and hands back a
// requester token bound to it.
func (h *Handler) Track(c *gin.Context) {
	r, err := h.Hub.FindActiveByPhone(c.Request.Context(), c.Query("phone"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if r == nil {
		c.JSON(http.StatusOK, gin.H{"request": nil})
		return
	}
	token, err := h.Auth.Issue(r.RequesterID, auth.RoleRequester, r.ContactName, r.ContactPhone)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"request": r, "token": token})
}
