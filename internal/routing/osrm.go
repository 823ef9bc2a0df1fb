package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"floodrescue/backend/internal/apperr"
	"floodrescue/backend/internal/models"
)

const maxErrorBodySize = 4 << 10

// OSRMClient talks to the OSRM HTTP route service.
type OSRMClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewOSRMClient builds a client for baseURL, e.g. "https://router.project-osrm.org".
func NewOSRMClient(baseURL string, timeout time.Duration) *OSRMClient {
	return &OSRMClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type osrmResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
		Geometry struct {
			Coordinates [][]float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"routes"`
}

// Route asks OSRM for the driving route from origin to destination.
func (c *OSRMClient) Route(ctx context.Context, origin, destination models.Location) (Route, error) {
	const op = "routing.OSRMClient.Route"
	// OSRM takes lng,lat pairs.
	url := fmt.Sprintf("%s/route/v1/driving/%f,%f;%f,%f?overview=full&geometries=geojson",
		c.baseURL, origin.Lng, origin.Lat, destination.Lng, destination.Lat)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Route{}, apperr.Wrap(apperr.KindInternal, op, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Route{}, apperr.Wrap(apperr.KindNetwork, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return Route{}, apperr.New(apperr.KindRoutingUnavailable, op, "osrm returned %d: %s", resp.StatusCode, string(body))
	}

	var result osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Route{}, apperr.Wrap(apperr.KindRoutingUnavailable, op, fmt.Errorf("decode response: %w", err))
	}
	if result.Code != "Ok" || len(result.Routes) == 0 {
		return Route{}, apperr.New(apperr.KindRoutingUnavailable, op, "osrm returned no route (code %q)", result.Code)
	}

	best := result.Routes[0]
	path := make([][2]float64, 0, len(best.Geometry.Coordinates))
	for _, coord := range best.Geometry.Coordinates {
		if len(coord) < 2 {
			continue
		}
		path = append(path, [2]float64{coord[1], coord[0]})
	}
	if len(path) == 0 {
		return Route{}, apperr.New(apperr.KindRoutingUnavailable, op, "osrm route has no geometry")
	}
	return Route{
		Path:            path,
		DistanceMeters:  best.Distance,
		DurationSeconds: best.Duration,
	}, nil
}
