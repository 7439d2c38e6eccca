package directions

import (
	"github.com/google/uuid"

	"github.com/a-bouts/cyclar/instruction"
	"github.com/a-bouts/cyclar/latlon"
)

// Step is one maneuver of a bicycle route, already normalized.
type Step struct {
	ID             uuid.UUID           `json:"id"`
	RawInstruction string              `json:"rawInstruction"`
	Maneuver       string              `json:"maneuver"`
	Simple         instruction.Command `json:"simple"`
	DistanceText   string              `json:"distanceText"`
}

// Origin is either a free text address or a coordinate, never both.
type Origin struct {
	Address  string
	Location *latlon.LatLon
}

func FromAddress(address string) Origin {
	return Origin{Address: address}
}

func FromLocation(l latlon.LatLon) Origin {
	return Origin{Location: &l}
}

func (o Origin) String() string {
	if o.Location != nil {
		return o.Location.String()
	}
	return o.Address
}
