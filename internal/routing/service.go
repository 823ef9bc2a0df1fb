package routing

import (
	"context"

	"floodrescue/backend/internal/apperr"
	"floodrescue/backend/internal/metrics"
	"floodrescue/backend/internal/models"

	"go.uber.org/zap"
)

// Service answers route queries, falling back to a straight line.
type Service struct {
	provider Provider
	cache    Cache
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewService builds a Service. cache and m may be nil.
func NewService(provider Provider, cache Cache, m *metrics.Metrics, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{provider: provider, cache: cache, metrics: m, logger: logger}
}

// ComputeRoute never fails: any provider error yields StraightLine. The
// provider is called once; there is no retry.
func (s *Service) ComputeRoute(ctx context.Context, origin, destination models.Location) Route {
	r, err := s.provider.Route(ctx, origin, destination)
	if err != nil {
		s.logger.Warn("Routing failed, using straight line", zap.Error(err))
		s.metrics.Fallback("route")
		return StraightLine(origin, destination)
	}
	return r
}

// RouteForRequest routes the assigned responder to the request. It is only
// defined while a responder is on the way and their position is known.
func (s *Service) RouteForRequest(ctx context.Context, req models.Request) (Route, error) {
	const op = "routing.RouteForRequest"
	if !req.Status.InFlight() {
		return Route{}, apperr.Validation(op, "request %s is %s, no responder is on the way", req.ID, req.Status)
	}
	if req.RescuerLocation == nil {
		return Route{}, apperr.Validation(op, "responder position of request %s is unknown", req.ID)
	}
	from := *req.RescuerLocation

	if s.cache != nil {
		if r, ok := s.cache.Get(ctx, req.ID, from); ok {
			return r, nil
		}
	}
	r := s.ComputeRoute(ctx, from, req.Location)
	// Fallbacks are not cached so the next call can still get a road route.
	if s.cache != nil && !r.Fallback {
		s.cache.Put(ctx, req.ID, from, r)
	}
	return r, nil
}
