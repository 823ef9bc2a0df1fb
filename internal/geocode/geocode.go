// Package geocode turns coordinates into a readable address with Nominatim.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"floodrescue/backend/internal/metrics"
	"floodrescue/backend/internal/models"

	"go.uber.org/zap"
)

const userAgent = "floodrescue-backend/1.0"

type Client struct {
	baseURL    string
	httpClient *http.Client
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration, m *metrics.Metrics, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		metrics:    m,
		logger:     logger,
	}
}

// Coordinates is the text used when no address is available.
func Coordinates(loc models.Location) string {
	return fmt.Sprintf("%.5f, %.5f", loc.Lat, loc.Lng)
}

// Reverse returns the display name of loc, or its Coordinates on any failure.
func (c *Client) Reverse(ctx context.Context, loc models.Location) string {
	name, err := c.reverse(ctx, loc)
	if err != nil {
		c.logger.Warn("Reverse geocoding failed", zap.Error(err))
		c.metrics.Fallback("geocode")
		return Coordinates(loc)
	}
	return name
}

func (c *Client) reverse(ctx context.Context, loc models.Location) (string, error) {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("lat", strconv.FormatFloat(loc.Lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(loc.Lng, 'f', -1, 64))
	q.Set("zoom", "18")
	q.Set("addressdetails", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	// Nominatim's usage policy requires an identifying user agent.
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", fmt.Errorf("nominatim returned %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		DisplayName string `json:"display_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if strings.TrimSpace(result.DisplayName) == "" {
		return "", fmt.Errorf("no address for %s", Coordinates(loc))
	}
	return result.DisplayName, nil
}
