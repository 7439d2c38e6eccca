package main

import (
	log "github.com/sirupsen/logrus"
)

func initLogger(debug bool) {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
	})

	if debug {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
}
