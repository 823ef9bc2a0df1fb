package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"floodrescue/backend/internal/advisory"
	"floodrescue/backend/internal/api/handler"
	"floodrescue/backend/internal/auth"
	"floodrescue/backend/internal/geocode"
	"floodrescue/backend/internal/metrics"
	"floodrescue/backend/internal/models"
	"floodrescue/backend/internal/rescuehub"
	"floodrescue/backend/internal/routing"
	"floodrescue/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type downProvider struct{}

func (downProvider) Route(context.Context, models.Location, models.Location) (routing.Route, error) {
	return routing.Route{}, errors.New("osrm down")
}

type testServer struct {
	router *gin.Engine
	issuer *auth.Issuer
	hub    *rescuehub.HubService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := storage.Open("sqlite", "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	store := storage.NewStorageService(db)
	require.NoError(t, store.AutoMigrate())

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	hub := rescuehub.NewHubService(store, rescuehub.Options{Metrics: m})
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	nominatim := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"display_name": "District 1, Ho Chi Minh City"}`))
	}))

	issuer := auth.NewIssuer("test-secret", time.Hour)
	h := handler.NewHandler(hub, issuer,
		routing.NewService(downProvider{}, routing.NewMemoryCache(), m, nil),
		advisory.New(nil, "", m, nil),
		geocode.NewClient(nominatim.URL, time.Second, m, nil),
		nil)
	router := gin.New()
	h.Register(router, reg)

	t.Cleanup(func() {
		cancel()
		<-hub.Done()
		nominatim.Close()
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return &testServer{router: router, issuer: issuer, hub: hub}
}

func (s *testServer) token(t *testing.T, subject string, role auth.Role) string {
	t.Helper()
	tok, err := s.issuer.Issue(subject, role, "Minh", "0901")
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func sampleDraft() models.Draft {
	return models.Draft{
		ContactName:  "Sarah Johnson",
		ContactPhone: "+1-555-0123",
		Note:         "Water rising, elderly person",
		Location:     &models.Location{Lat: 10.80, Lng: 106.70},
		Severity:     models.SeverityCritical,
	}
}

// submit creates a request as requester and returns its id.
func (s *testServer) submit(t *testing.T, requester string) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/requests", requester, sampleDraft())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var out struct{ ID string }
	decode(t, w, &out)
	return out.ID
}

func TestHandler_AnonIDThenSubmitAndGet(t *testing.T) {
	// Arrange
	s := newTestServer(t)

	// Act - Fetch an anonymous token and submit with it
	w := s.do(t, http.MethodGet, "/anonid", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var anon struct {
		Token  string `json:"token"`
		AnonID string `json:"anon_id"`
	}
	decode(t, w, &anon)
	require.NotEmpty(t, anon.Token)

	id := s.submit(t, anon.Token)

	// Act - Read the request back
	w = s.do(t, http.MethodGet, "/requests/"+id, anon.Token, nil)

	// Assert
	require.Equal(t, http.StatusOK, w.Code)
	var got models.Request
	decode(t, w, &got)
	assert.Equal(t, models.StatusOpen, got.Status)
	assert.Equal(t, "Sarah Johnson", got.ContactName)
	assert.NotNil(t, got.Messages)
}

func TestHandler_AuthErrors(t *testing.T) {
	// Arrange
	s := newTestServer(t)

	// Act & Assert
	w := s.do(t, http.MethodGet, "/requests", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodGet, "/requests", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	responder := s.token(t, "resp-1", auth.RoleResponder)
	w = s.do(t, http.MethodPost, "/requests", responder, sampleDraft())
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHandler_SubmitValidation(t *testing.T) {
	// Arrange
	s := newTestServer(t)
	requester := s.token(t, "anon-1", auth.RoleRequester)
	d := sampleDraft()
	d.Severity = "PANIC"

	// Act
	w := s.do(t, http.MethodPost, "/requests", requester, d)

	// Assert
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body map[string]string
	decode(t, w, &body)
	assert.Equal(t, "validation", body["error"])
}

func TestHandler_SubmitWithoutLocation(t *testing.T) {
	// Arrange
	s := newTestServer(t)
	requester := s.token(t, "anon-1", auth.RoleRequester)
	body := map[string]any{"contact_name": "Sarah Johnson", "contact_phone": "+1-555-0123", "severity": "CRITICAL"}

	// Act
	w := s.do(t, http.MethodPost, "/requests", requester, body)

	// Assert
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	list := s.do(t, http.MethodGet, "/requests", requester, nil)
	var out struct{ Requests []models.Request }
	decode(t, list, &out)
	assert.Empty(t, out.Requests)
}

func TestHandler_ClaimReadsChunkedBody(t *testing.T) {
	// Arrange
	s := newTestServer(t)
	id := s.submit(t, s.token(t, "anon-1", auth.RoleRequester))
	req := httptest.NewRequest(http.MethodPost, "/requests/"+id+"/claim",
		strings.NewReader(`{"location": {"lat": 10.81, "lng": 106.71}}`))
	req.ContentLength = -1
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token(t, "resp-1", auth.RoleResponder))
	w := httptest.NewRecorder()

	// Act
	s.router.ServeHTTP(w, req)

	// Assert
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var claimed models.Request
	decode(t, w, &claimed)
	require.NotNil(t, claimed.RescuerLocation)
	assert.Equal(t, models.Location{Lat: 10.81, Lng: 106.71}, *claimed.RescuerLocation)
}

func TestHandler_ClaimConflictAndLifecycle(t *testing.T) {
	// Arrange
	s := newTestServer(t)
	requester := s.token(t, "anon-1", auth.RoleRequester)
	first := s.token(t, "resp-1", auth.RoleResponder)
	second := s.token(t, "resp-2", auth.RoleResponder)
	id := s.submit(t, requester)

	// Act - First responder claims
	w := s.do(t, http.MethodPost, "/requests/"+id+"/claim", first,
		map[string]any{"location": models.Location{Lat: 10.81, Lng: 106.71}})

	// Assert
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var claimed models.Request
	decode(t, w, &claimed)
	assert.Equal(t, "resp-1", claimed.RescuerID)
	assert.Equal(t, "Minh", claimed.RescuerName)

	// Act & Assert - Competing claim and cancel are rejected
	w = s.do(t, http.MethodPost, "/requests/"+id+"/claim", second, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	var body map[string]string
	decode(t, w, &body)
	assert.Equal(t, "claim_conflict", body["error"])

	w = s.do(t, http.MethodDelete, "/requests/"+id, requester, nil)
	assert.Equal(t, http.StatusConflict, w.Code, "cancel is only allowed while OPEN")

	// Act & Assert - Only the assignee completes
	w = s.do(t, http.MethodPost, "/requests/"+id+"/complete", second,
		map[string]any{"proof_image_urls": []string{"https://cdn.example.com/p.jpg"}})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, "/requests/"+id+"/complete", first,
		map[string]any{"proof_image_urls": []string{"https://cdn.example.com/p.jpg"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Act & Assert - Requester confirms
	w = s.do(t, http.MethodPost, "/requests/"+id+"/confirm", requester, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resolved models.Request
	decode(t, w, &resolved)
	assert.Equal(t, models.StatusResolved, resolved.Status)

	w = s.do(t, http.MethodGet, "/requests/"+id+"/advisory", first, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestHandler_CancelOpen(t *testing.T) {
	// Arrange
	s := newTestServer(t)
	requester := s.token(t, "anon-1", auth.RoleRequester)
	id := s.submit(t, requester)

	// Act & Assert
	w := s.do(t, http.MethodDelete, "/requests/"+id, s.token(t, "anon-2", auth.RoleRequester), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodDelete, "/requests/"+id, requester, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodGet, "/requests/"+id, requester, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_MessagesUseTokenRole(t *testing.T) {
	// Arrange
	s := newTestServer(t)
	requester := s.token(t, "anon-1", auth.RoleRequester)
	responder := s.token(t, "resp-1", auth.RoleResponder)
	id := s.submit(t, requester)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/requests/"+id+"/claim", responder, nil).Code)

	// Act
	w := s.do(t, http.MethodPost, "/requests/"+id+"/messages", requester, map[string]string{"text": "We are on the roof"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = s.do(t, http.MethodPost, "/requests/"+id+"/messages", responder, map[string]string{"text": "5 minutes away"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// Assert
	w = s.do(t, http.MethodGet, "/requests/"+id, requester, nil)
	var got models.Request
	decode(t, w, &got)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, models.SenderRequester, got.Messages[0].SenderRole)
	assert.Equal(t, models.SenderResponder, got.Messages[1].SenderRole)

	w = s.do(t, http.MethodPost, "/requests/"+id+"/messages", s.token(t, "anon-2", auth.RoleRequester), map[string]string{"text": "hi"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHandler_ListSortAndMarkers(t *testing.T) {
	// Arrange
	s := newTestServer(t)
	requester := s.token(t, "anon-1", auth.RoleRequester)
	id := s.submit(t, requester)

	// Act - Sort by distance
	w := s.do(t, http.MethodGet, "/requests?sort=distance&lat=10.80&lng=106.71", requester, nil)

	// Assert
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Requests []struct {
			ID       string `json:"id"`
			Distance string `json:"distance"`
			Recent   bool   `json:"recent"`
		} `json:"requests"`
	}
	decode(t, w, &list)
	require.Len(t, list.Requests, 1)
	assert.Equal(t, id, list.Requests[0].ID)
	assert.Equal(t, "1.1", list.Requests[0].Distance)
	assert.True(t, list.Requests[0].Recent)

	// Act & Assert - Unknown sort and marker filters
	w = s.do(t, http.MethodGet, "/requests?sort=alphabetical", requester, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/requests/markers?hide=critical", requester, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var markers struct {
		Markers []map[string]any `json:"markers"`
	}
	decode(t, w, &markers)
	assert.Empty(t, markers.Markers)

	w = s.do(t, http.MethodGet, "/requests/markers", requester, nil)
	decode(t, w, &markers)
	require.Len(t, markers.Markers, 1)
	assert.Equal(t, "#ef4444", markers.Markers[0]["colour"])
}

func TestHandler_RouteFallsBackToStraightLine(t *testing.T) {
	// Arrange
	s := newTestServer(t)
	requester := s.token(t, "anon-1", auth.RoleRequester)
	responder := s.token(t, "resp-1", auth.RoleResponder)
	id := s.submit(t, requester)

	// Act & Assert - No route before a claim
	w := s.do(t, http.MethodGet, "/requests/"+id+"/route", responder, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "no responder on the way yet")

	// Act - Claim with a position, then route
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/requests/"+id+"/claim", responder,
		map[string]any{"location": models.Location{Lat: 10.81, Lng: 106.71}}).Code)

	w = s.do(t, http.MethodGet, "/requests/"+id+"/route", responder, nil)

	// Assert
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var route routing.Route
	decode(t, w, &route)
	assert.True(t, route.Fallback)
	assert.Equal(t, [][2]float64{{10.81, 106.71}, {10.80, 106.70}}, route.Path)
}

func TestHandler_AdvisoryAndGeocode(t *testing.T) {
	// Arrange
	s := newTestServer(t)
	requester := s.token(t, "anon-1", auth.RoleRequester)
	responder := s.token(t, "resp-1", auth.RoleResponder)
	id := s.submit(t, requester)

	// Act & Assert - Advisory
	w := s.do(t, http.MethodGet, "/requests/"+id+"/advisory", responder, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var ra models.RiskAssessment
	decode(t, w, &ra)
	assert.Equal(t, advisory.Fallback(), ra)

	w = s.do(t, http.MethodGet, "/requests/"+id+"/advisory", requester, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Act & Assert - Geocode
	w = s.do(t, http.MethodGet, "/geocode?lat=10.8&lng=106.7", requester, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var addr map[string]string
	decode(t, w, &addr)
	assert.Equal(t, "District 1, Ho Chi Minh City", addr["address"])

	w = s.do(t, http.MethodGet, "/geocode", requester, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_TrackIssuesBoundToken(t *testing.T) {
	// Arrange
	s := newTestServer(t)
	original := s.token(t, "anon-1", auth.RoleRequester)
	id := s.submit(t, original)

	// Act
	w := s.do(t, http.MethodGet, "/track?phone=%2B1-555-0123", "", nil)

	// Assert
	require.Equal(t, http.StatusOK, w.Code)
	var out struct {
		Request *models.Request `json:"request"`
		Token   string          `json:"token"`
	}
	decode(t, w, &out)
	require.NotNil(t, out.Request)
	assert.Equal(t, id, out.Request.ID)

	claims, err := s.issuer.Validate(out.Token)
	require.NoError(t, err)
	assert.Equal(t, "anon-1", claims.Subject)

	note := "Still waiting"
	w = s.do(t, http.MethodPatch, "/requests/"+id, out.Token, models.Amendment{Note: &note})
	assert.Equal(t, http.StatusOK, w.Code, "recovered token acts as the requester")

	// Act & Assert - Unknown phone
	w = s.do(t, http.MethodGet, "/track?phone=000", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	out.Request = nil
	decode(t, w, &out)
	assert.Nil(t, out.Request)
}

func TestHandler_ResponderProfile(t *testing.T) {
	// Arrange
	s := newTestServer(t)
	responder := s.token(t, "resp-1", auth.RoleResponder)

	// Act & Assert
	w := s.do(t, http.MethodGet, "/responders/me", responder, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPost, "/responders", responder, map[string]any{"vehicle_type": "BOAT", "passenger_capacity": 4})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var p models.ResponderProfile
	decode(t, w, &p)
	assert.Equal(t, "Minh", p.Name, "name defaults to the token's")

	w = s.do(t, http.MethodPatch, "/responders/me", responder, map[string]any{"passenger_capacity": 6})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &p)
	assert.Equal(t, 6, p.PassengerCapacity)

	w = s.do(t, http.MethodGet, "/responders/me", s.token(t, "anon-1", auth.RoleRequester), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHandler_HealthAndMetrics(t *testing.T) {
	// Arrange
	s := newTestServer(t)
	s.submit(t, s.token(t, "anon-1", auth.RoleRequester))

	// Act & Assert
	w := s.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "floodrescue_intents_total")
}
