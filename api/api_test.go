package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a-bouts/cyclar/device"
	"github.com/a-bouts/cyclar/directions"
	"github.com/a-bouts/cyclar/latlon"
	"github.com/a-bouts/cyclar/nav"
)

type fakeNavigator struct {
	mode        nav.Mode
	err         error
	origin      string
	destination string
	commands    []device.Command
}

func (f *fakeNavigator) Status() nav.Status {
	return nav.Status{Mode: f.mode, Destination: f.destination, Connection: nav.StatusNotConnected}
}

func (f *fakeNavigator) Preview(ctx context.Context, origin, destination string) error {
	f.origin, f.destination = origin, destination
	if f.err == nil {
		f.mode = nav.ModePreviewing
	}
	return f.err
}

func (f *fakeNavigator) StartLive(destination string) error {
	f.destination = destination
	if f.err == nil {
		f.mode = nav.ModeLive
	}
	return f.err
}

func (f *fakeNavigator) StopLive() error {
	f.mode = nav.ModeIdle
	return f.err
}

func (f *fakeNavigator) StartSimulation() error {
	if f.err == nil {
		f.mode = nav.ModeSimulating
	}
	return f.err
}

func (f *fakeNavigator) StopSimulation() error {
	f.mode = nav.ModeIdle
	return f.err
}

func (f *fakeNavigator) SendManual(command device.Command) error {
	f.commands = append(f.commands, command)
	return f.err
}

type fakePositions struct {
	positions []latlon.LatLon
}

func (f *fakePositions) Update(p latlon.LatLon) error {
	if err := p.Validate(); err != nil {
		return err
	}
	f.positions = append(f.positions, p)
	return nil
}

func do(t *testing.T, n Navigator, p Positions, method, path, body string) *httptest.ResponseRecorder {
	router := InitServer(n, p, time.Second)
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.RemoteAddr = "192.0.2.1:4242"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeStatus(t *testing.T, rec *httptest.ResponseRecorder) nav.Status {
	var s nav.Status
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&s))
	return s
}

func TestHealthz(t *testing.T) {
	rec := do(t, &fakeNavigator{}, &fakePositions{}, http.MethodGet, "/nav/-/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"Ok"}`, rec.Body.String())
}

func TestPreview(t *testing.T) {
	n := &fakeNavigator{mode: nav.ModeIdle}
	rec := do(t, n, &fakePositions{}, http.MethodPost, "/nav/api/v1/preview", `{"origin":"Houston Hall","destination":"Penn Museum"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, nav.ModePreviewing, decodeStatus(t, rec).Mode)
	assert.Equal(t, "Houston Hall", n.origin)
	assert.Equal(t, "Penn Museum", n.destination)
}

func TestPreviewErrors(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{directions.ErrNoRoutes, http.StatusNotFound},
		{directions.ErrInvalidRequest, http.StatusBadRequest},
		{directions.ErrParse, http.StatusBadGateway},
		{&directions.NetworkError{Detail: "offline"}, http.StatusBadGateway},
		{nav.ErrInvalidTransition, http.StatusConflict},
	}
	for _, tt := range tests {
		rec := do(t, &fakeNavigator{err: tt.err}, &fakePositions{}, http.MethodPost, "/nav/api/v1/preview", `{"origin":"a","destination":"b"}`)
		assert.Equal(t, tt.code, rec.Code, tt.err.Error())
		assert.JSONEq(t, `{"error":"`+tt.err.Error()+`"}`, rec.Body.String())
	}

	rec := do(t, &fakeNavigator{}, &fakePositions{}, http.MethodPost, "/nav/api/v1/preview", `{"origin":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLive(t *testing.T) {
	n := &fakeNavigator{mode: nav.ModeIdle}

	rec := do(t, n, &fakePositions{}, http.MethodPost, "/nav/api/v1/live", `{"destination":"Penn Museum"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, nav.ModeLive, decodeStatus(t, rec).Mode)

	rec = do(t, n, &fakePositions{}, http.MethodDelete, "/nav/api/v1/live", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, nav.ModeIdle, decodeStatus(t, rec).Mode)
}

func TestSimulation(t *testing.T) {
	n := &fakeNavigator{mode: nav.ModePreviewing}

	rec := do(t, n, &fakePositions{}, http.MethodPost, "/nav/api/v1/simulation", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, nav.ModeSimulating, decodeStatus(t, rec).Mode)

	rec = do(t, n, &fakePositions{}, http.MethodDelete, "/nav/api/v1/simulation", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	n.err = nav.ErrNoSteps
	rec = do(t, n, &fakePositions{}, http.MethodPost, "/nav/api/v1/simulation", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLocation(t *testing.T) {
	p := &fakePositions{}

	rec := do(t, &fakeNavigator{}, p, http.MethodPost, "/nav/api/v1/location", `{"lat":39.9509,"lon":-75.1937}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []latlon.LatLon{{Lat: 39.9509, Lon: -75.1937}}, p.positions)

	rec = do(t, &fakeNavigator{}, p, http.MethodPost, "/nav/api/v1/location", `{"lat":139.9509,"lon":-75.1937}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, p.positions, 1)
}

func TestSendCommand(t *testing.T) {
	n := &fakeNavigator{}

	rec := do(t, n, &fakePositions{}, http.MethodPost, "/nav/api/v1/device/left", "")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []device.Command{device.Left}, n.commands)

	rec = do(t, n, &fakePositions{}, http.MethodPost, "/nav/api/v1/device/down", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Len(t, n.commands, 1)
}

func TestGetIp(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.1:4242"

	ip, err := getIp(r)
	require.NoError(t, err)
	assert.Equal(t, "192.0.2.1", ip)

	r.Header.Set("X-FORWARDED-FOR", "garbage, 198.51.100.7")
	ip, _ = getIp(r)
	assert.Equal(t, "198.51.100.7", ip)

	r.Header.Set("X-REAL-IP", "203.0.113.9")
	ip, _ = getIp(r)
	assert.Equal(t, "203.0.113.9", ip)
}
