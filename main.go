package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/pkg/profile"
	log "github.com/sirupsen/logrus"

	"github.com/a-bouts/cyclar/api"
	"github.com/a-bouts/cyclar/device"
	"github.com/a-bouts/cyclar/directions"
	"github.com/a-bouts/cyclar/location"
	"github.com/a-bouts/cyclar/nav"
	"github.com/a-bouts/cyclar/xmpp"
)

func main() {
	cfg, err := parseConfig(os.Args[1:])
	if err != nil {
		log.WithError(err).Fatal("Error reading configuration")
	}

	initLogger(cfg.debug)

	if cfg.cpuprofile {
		defer profile.Start().Stop()
	}

	if cfg.routesApiKey == "" {
		log.Warn("No routes api key, every route request will be refused")
	}

	client := &http.Client{Timeout: cfg.httpTimeout}
	positions := location.NewStore(cfg.locationMaxAge)

	ctl, err := nav.NewController(cfg.nav,
		directions.NewClient(cfg.routesEndpoint, cfg.routesApiKey, client),
		device.NewChannel(cfg.deviceUrl, client),
		positions,
		nav.CronScheduler{})
	if err != nil {
		log.WithError(err).Fatal("Error creating navigation")
	}
	if cfg.xmpp.Enabled() {
		ctl.SetNotifier(xmpp.Xmpp{Config: cfg.xmpp})
	}

	accessLog := log.StandardLogger().Writer()
	defer accessLog.Close()

	router := api.InitServer(ctl, positions, cfg.httpTimeout)
	srv := &http.Server{
		Addr:    cfg.listen,
		Handler: handlers.RecoveryHandler()(handlers.CombinedLoggingHandler(accessLog, router)),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Start server on %s", cfg.listen)
		errCh <- srv.ListenAndServe()
	}()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-signals:
		log.Infof("Received %s, shutting down", s)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("Server stopped")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Error shutting down server")
	}

	ctl.Close()
}
