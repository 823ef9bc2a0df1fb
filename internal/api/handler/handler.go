package handler

import (
	"time"

	"floodrescue/backend/internal/advisory"
	"floodrescue/backend/internal/auth"
	"floodrescue/backend/internal/geocode"
	"floodrescue/backend/internal/rescuehub"
	"floodrescue/backend/internal/routing"

	"go.uber.org/zap"
)

// Handler serves the HTTP API on top of the rescue hub.
type Handler struct {
	Hub      *rescuehub.HubService
	Auth     *auth.Issuer
	Routes   *routing.Service
	Advisor  *advisory.Advisor
	Geocoder *geocode.Client

	logger *zap.Logger
	now    func() time.Time
}

func NewHandler(hub *rescuehub.HubService, issuer *auth.Issuer, routes *routing.Service,
	advisor *advisory.Advisor, geocoder *geocode.Client, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Hub:      hub,
		Auth:     issuer,
		Routes:   routes,
		Advisor:  advisor,
		Geocoder: geocoder,
		logger:   logger,
		now:      time.Now,
	}
}
