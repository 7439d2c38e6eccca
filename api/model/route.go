package model

import (
	"github.com/a-bouts/cyclar/latlon"
)

type Preview struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
}

type Live struct {
	Destination string `json:"destination"`
}

type Location struct {
	latlon.LatLon
}

type Error struct {
	Error string `json:"error"`
}
