package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/a-bouts/cyclar/api/model"
	"github.com/a-bouts/cyclar/device"
	"github.com/a-bouts/cyclar/directions"
	"github.com/a-bouts/cyclar/latlon"
	"github.com/a-bouts/cyclar/nav"
)

// Navigator is what the api needs from the navigation controller.
type Navigator interface {
	Status() nav.Status
	Preview(ctx context.Context, origin, destination string) error
	StartLive(destination string) error
	StopLive() error
	StartSimulation() error
	StopSimulation() error
	SendManual(command device.Command) error
}

type Positions interface {
	Update(position latlon.LatLon) error
}

type server struct {
	n              Navigator
	positions      Positions
	previewTimeout time.Duration
}

func InitServer(n Navigator, positions Positions, previewTimeout time.Duration) *mux.Router {

	router := mux.NewRouter().StrictSlash(true)

	s := server{
		n:              n,
		positions:      positions,
		previewTimeout: previewTimeout,
	}

	router.HandleFunc("/nav/-/healthz", s.healthz).Methods(http.MethodGet)

	apiV1 := router.PathPrefix("/nav/api/v1").Subrouter()
	apiV1.HandleFunc("/status", s.status).Methods(http.MethodGet)
	apiV1.HandleFunc("/preview", s.preview).Methods(http.MethodPost)
	apiV1.HandleFunc("/live", s.startLive).Methods(http.MethodPost)
	apiV1.HandleFunc("/live", s.stopLive).Methods(http.MethodDelete)
	apiV1.HandleFunc("/simulation", s.startSimulation).Methods(http.MethodPost)
	apiV1.HandleFunc("/simulation", s.stopSimulation).Methods(http.MethodDelete)
	apiV1.HandleFunc("/location", s.location).Methods(http.MethodPost)
	apiV1.HandleFunc("/device/{command}", s.send).Methods(http.MethodPost)

	return router
}

func (s *server) healthz(w http.ResponseWriter, r *http.Request) {
	type health struct {
		Status string `json:"status"`
	}

	writeJSON(w, http.StatusOK, health{Status: "Ok"})
}

func (s *server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.n.Status())
}

func (s *server) preview(w http.ResponseWriter, req *http.Request) {
	requestLogger := requestLogger(req, "preview")

	var p model.Preview
	if err := json.NewDecoder(req.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	requestLogger.Infof("Preview from '%s' to '%s'", p.Origin, p.Destination)

	ctx, cancel := context.WithTimeout(req.Context(), s.previewTimeout)
	defer cancel()

	start := time.Now()
	err := s.n.Preview(ctx, p.Origin, p.Destination)
	requestLogger.Infof("Preview took %s", time.Since(start).String())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	writeJSON(w, http.StatusOK, s.n.Status())
}

func (s *server) startLive(w http.ResponseWriter, req *http.Request) {
	var l model.Live
	if err := json.NewDecoder(req.Body).Decode(&l); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	requestLogger(req, "live").Infof("Start live navigation to '%s'", l.Destination)

	s.reply(w, s.n.StartLive(l.Destination))
}

func (s *server) stopLive(w http.ResponseWriter, req *http.Request) {
	requestLogger(req, "live").Info("Stop live navigation")

	s.reply(w, s.n.StopLive())
}

func (s *server) startSimulation(w http.ResponseWriter, req *http.Request) {
	requestLogger(req, "simulation").Info("Start simulation")

	s.reply(w, s.n.StartSimulation())
}

func (s *server) stopSimulation(w http.ResponseWriter, req *http.Request) {
	requestLogger(req, "simulation").Info("Stop simulation")

	s.reply(w, s.n.StopSimulation())
}

func (s *server) location(w http.ResponseWriter, req *http.Request) {
	var l model.Location
	if err := json.NewDecoder(req.Body).Decode(&l); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := s.positions.Update(l.LatLon); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	log.Debugf("Position %s", l.LatLon)
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) send(w http.ResponseWriter, req *http.Request) {
	command, err := device.ParseCommand(mux.Vars(req)["command"])
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	requestLogger(req, "device").Infof("Send '%s'", command)

	if err := s.n.SendManual(command); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusAccepted, s.n.Status())
}

func (s *server) reply(w http.ResponseWriter, err error) {
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, s.n.Status())
}

func statusFor(err error) int {
	var netErr *directions.NetworkError
	switch {
	case errors.Is(err, directions.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, directions.ErrNoRoutes):
		return http.StatusNotFound
	case errors.Is(err, nav.ErrInvalidTransition), errors.Is(err, nav.ErrNoSteps), errors.Is(err, nav.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, nav.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, directions.ErrParse), errors.As(err, &netErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("Error encoding response")
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, model.Error{Error: err.Error()})
}

func requestLogger(r *http.Request, action string) *log.Entry {
	fields := log.Fields{
		"action": action,
	}
	if ip, err := getIp(r); err == nil {
		fields["IP"] = ip
	}
	return log.WithFields(fields)
}

func getIp(r *http.Request) (string, error) {
	//Get IP from the X-REAL-IP header
	ip := r.Header.Get("X-REAL-IP")
	netIP := net.ParseIP(ip)
	if netIP != nil {
		return ip, nil
	}

	//Get IP from X-FORWARDED-FOR header
	ips := r.Header.Get("X-FORWARDED-FOR")
	splitIps := strings.Split(ips, ",")
	for _, ip := range splitIps {
		ip = strings.TrimSpace(ip)
		netIP := net.ParseIP(ip)
		if netIP != nil {
			return ip, nil
		}
	}

	//Get IP from RemoteAddr
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return "", err
	}
	netIP = net.ParseIP(ip)
	if netIP != nil {
		return ip, nil
	}
	return "", fmt.Errorf("No valid ip found")
}
