package proximity

import (
	"strings"

	"floodrescue/backend/internal/apperr"
	"floodrescue/backend/internal/models"
)

// MarkerClass groups requests on the map.
type MarkerClass string

const (
	ClassCritical MarkerClass = "critical" // open, CRITICAL
	ClassSupplies MarkerClass = "supplies" // open, SUPPLIES
	ClassInFlight MarkerClass = "inflight" // IN_PROGRESS or PENDING_CONFIRMATION
	ClassResolved MarkerClass = "resolved"
	ClassOther    MarkerClass = "other" // open, OK
)

// Classify returns the marker class of r.
func Classify(r models.Request) MarkerClass {
	switch {
	case r.Status == models.StatusResolved:
		return ClassResolved
	case r.Status.InFlight():
		return ClassInFlight
	case r.Severity == models.SeverityCritical:
		return ClassCritical
	case r.Severity == models.SeveritySupplies:
		return ClassSupplies
	default:
		return ClassOther
	}
}

// Colour is the marker fill colour of the class.
func (c MarkerClass) Colour() string {
	switch c {
	case ClassCritical:
		return "#ef4444"
	case ClassInFlight:
		return "#eab308"
	case ClassResolved:
		return "#22c55e"
	default:
		return "#f97316"
	}
}

// Filter hides marker classes. The zero Filter shows everything.
type Filter struct {
	HideCritical bool
	HideSupplies bool
	HideInFlight bool
}

// ParseFilter reads a comma separated list of classes to hide, e.g.
// "critical,inflight".
func ParseFilter(hide string) (Filter, error) {
	var f Filter
	for _, part := range strings.Split(hide, ",") {
		switch MarkerClass(strings.ToLower(strings.TrimSpace(part))) {
		case "":
		case ClassCritical:
			f.HideCritical = true
		case ClassSupplies:
			f.HideSupplies = true
		case ClassInFlight:
			f.HideInFlight = true
		default:
			return Filter{}, apperr.Validation("proximity.ParseFilter", "unknown marker class %q", part)
		}
	}
	return f, nil
}

// Shows reports whether a marker for r is visible. Resolved and unclassified
// requests are always shown.
func (f Filter) Shows(r models.Request) bool {
	switch Classify(r) {
	case ClassCritical:
		return !f.HideCritical
	case ClassSupplies:
		return !f.HideSupplies
	case ClassInFlight:
		return !f.HideInFlight
	default:
		return true
	}
}

// Marker is the map view of one request.
type Marker struct {
	ID       string          `json:"id"`
	Location models.Location `json:"location"`
	Class    MarkerClass     `json:"class"`
	Colour   string          `json:"colour"`
	Status   models.Status   `json:"status"`
	Severity models.Severity `json:"severity"`
	// Rescuer is set while a responder is on the way.
	Rescuer *models.Location `json:"rescuer,omitempty"`
}

// FilterMarkers returns the visible markers in input order. It only affects
// the map; the ranked list always holds every request.
func FilterMarkers(reqs []models.Request, f Filter) []Marker {
	out := make([]Marker, 0, len(reqs))
	for _, r := range reqs {
		if !f.Shows(r) {
			continue
		}
		class := Classify(r)
		m := Marker{
			ID:       r.ID,
			Location: r.Location,
			Class:    class,
			Colour:   class.Colour(),
			Status:   r.Status,
			Severity: r.Severity,
		}
		if class == ClassInFlight && r.RescuerLocation != nil {
			loc := *r.RescuerLocation
			m.Rescuer = &loc
		}
		out = append(out, m)
	}
	return out
}
