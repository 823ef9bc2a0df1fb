// Package routing computes responder navigation routes. The road-aware route
// comes from an OSRM server; when that fails the caller still gets the
// straight line between the two points.
package routing

import (
	"context"
	"fmt"
	"math"

	"floodrescue/backend/internal/models"
)

// Route is a path of [lat, lng] points. Fallback routes carry zero metrics.
type Route struct {
	Path            [][2]float64 `json:"path"`
	DistanceMeters  float64      `json:"distance_meters"`
	DurationSeconds float64      `json:"duration_seconds"`
	Fallback        bool         `json:"fallback"`
}

// Provider computes a road-aware route.
type Provider interface {
	Route(ctx context.Context, origin, destination models.Location) (Route, error)
}

// StraightLine is the fallback route: just the two endpoints.
func StraightLine(origin, destination models.Location) Route {
	return Route{
		Path: [][2]float64{
			{origin.Lat, origin.Lng},
			{destination.Lat, destination.Lng},
		},
		Fallback: true,
	}
}

// FormatDistance renders meters as "850 m" or "1.2 km".
func FormatDistance(meters float64) string {
	if meters < 1000 {
		return fmt.Sprintf("%d m", int(math.Round(meters)))
	}
	return fmt.Sprintf("%.1f km", meters/1000)
}

// FormatDuration renders seconds as "45 sec", "12 min" or "1h 5m".
func FormatDuration(seconds float64) string {
	if seconds < 60 {
		return fmt.Sprintf("%d sec", int(math.Round(seconds)))
	}
	minutes := int(math.Round(seconds / 60))
	if minutes < 60 {
		return fmt.Sprintf("%d min", minutes)
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}
