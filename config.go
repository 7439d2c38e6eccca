package main

import (
	"flag"
	"time"

	"github.com/peterbourgon/ff"

	"github.com/a-bouts/cyclar/device"
	"github.com/a-bouts/cyclar/directions"
	"github.com/a-bouts/cyclar/nav"
	"github.com/a-bouts/cyclar/xmpp"
)

type config struct {
	listen         string
	routesEndpoint string
	routesApiKey   string
	deviceUrl      string
	httpTimeout    time.Duration
	locationMaxAge time.Duration
	nav            nav.Config
	xmpp           xmpp.Config
	debug          bool
	cpuprofile     bool
}

// parseConfig reads flags, then environment variables (LIVE_INTERVAL for
// -live-interval), then the optional -config file.
func parseConfig(args []string) (config, error) {
	defaults := nav.DefaultConfig()

	fs := flag.NewFlagSet("cyclar", flag.ContinueOnError)
	var (
		listen             = fs.String("listen", ":8888", "http listen address")
		routesEndpoint     = fs.String("routes-endpoint", directions.DefaultEndpoint, "routes api endpoint")
		routesApiKey       = fs.String("routes-api-key", "", "routes api key")
		deviceUrl          = fs.String("device-url", device.DefaultURL, "handlebar display command url")
		httpTimeout        = fs.Duration("http-timeout", defaults.RequestTimeout, "timeout of outgoing requests")
		liveInterval       = fs.Duration("live-interval", defaults.LiveInterval, "live navigation poll interval")
		simulationInterval = fs.Duration("simulation-interval", defaults.SimulationInterval, "simulation step interval")
		liveSteps          = fs.Int("live-steps", defaults.LiveSteps, "upcoming steps kept in live navigation")
		locationMaxAge     = fs.Duration("location-max-age", 30*time.Second, "age after which a position is ignored")
		xmppHost           = fs.String("xmpp-host", "", "")
		xmppJid            = fs.String("xmpp-jid", "", "")
		xmppPassword       = fs.String("xmpp-password", "", "")
		xmppTo             = fs.String("xmpp-to", "", "")
		debug              = fs.Bool("debug", false, "debug logs")
		cpuprofile         = fs.Bool("cpuprofile", false, "cpu profile for the server lifetime")
		_                  = fs.String("config", "", "config file")
	)

	if err := ff.Parse(fs, args,
		ff.WithEnvVarNoPrefix(),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
	); err != nil {
		return config{}, err
	}

	return config{
		listen:         *listen,
		routesEndpoint: *routesEndpoint,
		routesApiKey:   *routesApiKey,
		deviceUrl:      *deviceUrl,
		httpTimeout:    *httpTimeout,
		locationMaxAge: *locationMaxAge,
		nav: nav.Config{
			LiveInterval:       *liveInterval,
			SimulationInterval: *simulationInterval,
			LiveSteps:          *liveSteps,
			RequestTimeout:     *httpTimeout,
		},
		xmpp:       xmpp.Config{Host: *xmppHost, Jid: *xmppJid, Password: *xmppPassword, To: *xmppTo},
		debug:      *debug,
		cpuprofile: *cpuprofile,
	}, nil
}
