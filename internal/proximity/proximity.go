// Package proximity ranks the request list and filters map markers. All of it
// is pure and works on a snapshot; nothing here writes.
package proximity

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"floodrescue/backend/internal/apperr"
	"floodrescue/backend/internal/config"
	"floodrescue/backend/internal/models"
)

// SortMode selects how Rank orders requests.
type SortMode string

const (
	SortSeverity SortMode = "severity"
	SortTime     SortMode = "time"
	SortDistance SortMode = "distance"
)

// ParseSortMode accepts "", "severity", "time" and "distance". Empty means severity.
func ParseSortMode(s string) (SortMode, error) {
	switch m := SortMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return SortSeverity, nil
	case SortSeverity, SortTime, SortDistance:
		return m, nil
	default:
		return "", apperr.Validation("proximity.ParseSortMode", "unknown sort mode %q", s)
	}
}

// Distance approximates the distance in km between a and b by treating a
// degree as 111 km on both axes. Good enough to rank nearby requests; not a
// geodesic distance.
func Distance(a, b models.Location) float64 {
	dLat := a.Lat - b.Lat
	dLng := a.Lng - b.Lng
	return math.Sqrt(dLat*dLat+dLng*dLng) * config.KmPerDegree
}

// DistanceFrom returns the distance from observer to r, or +Inf when the
// observer position is unknown.
func DistanceFrom(observer *models.Location, r models.Request) float64 {
	if observer == nil {
		return math.Inf(1)
	}
	return Distance(*observer, r.Location)
}

// Rank returns a sorted copy of reqs. Equal keys keep their input order.
func Rank(reqs []models.Request, mode SortMode, observer *models.Location) []models.Request {
	out := append([]models.Request(nil), reqs...)
	switch mode {
	case SortTime:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Timestamp.After(out[j].Timestamp)
		})
	case SortDistance:
		dist := make(map[string]float64, len(out))
		for _, r := range out {
			dist[r.ID] = DistanceFrom(observer, r)
		}
		sort.SliceStable(out, func(i, j int) bool {
			return dist[out[i].ID] < dist[out[j].ID]
		})
	default:
		sort.SliceStable(out, func(i, j int) bool {
			ci := out[i].Severity == models.SeverityCritical
			cj := out[j].Severity == models.SeverityCritical
			if ci != cj {
				return ci
			}
			return out[i].Timestamp.After(out[j].Timestamp)
		})
	}
	return out
}

// IsRecent reports whether a request created at ts still counts as new.
func IsRecent(ts, now time.Time) bool {
	return now.Sub(ts) < config.RecentWindow
}

// FormatDistanceKm renders km with one decimal, as shown next to each request.
func FormatDistanceKm(km float64) string {
	if math.IsInf(km, 0) || math.IsNaN(km) {
		return ""
	}
	return fmt.Sprintf("%.1f", km)
}
