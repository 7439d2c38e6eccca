// Package directions fetches bicycle routes from the Routes API and turns
// the first leg into normalized steps.
package directions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/a-bouts/cyclar/instruction"
)

const (
	DefaultEndpoint = "https://routes.googleapis.com/directions/v2:computeRoutes"

	fieldMask       = "routes.legs.steps.navigationInstruction,routes.legs.steps.distanceMeters"
	defaultManeuver = "STRAIGHT"
)

// Doer sends a request and returns its response. *http.Client is a Doer.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Client struct {
	endpoint  string
	apiKey    string
	transport Doer
}

func NewClient(endpoint string, apiKey string, transport Doer) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if transport == nil {
		transport = http.DefaultClient
	}
	return &Client{
		endpoint:  endpoint,
		apiKey:    apiKey,
		transport: transport,
	}
}

type address struct {
	Address string `json:"address"`
}

type latLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type location struct {
	LatLng latLng `json:"latLng"`
}

type waypoint struct {
	Address  string    `json:"address,omitempty"`
	Location *location `json:"location,omitempty"`
}

type computeRoutesRequest struct {
	Origin            waypoint `json:"origin"`
	Destination       address  `json:"destination"`
	TravelMode        string   `json:"travelMode"`
	ExtraComputations []string `json:"extraComputations"`
	LanguageCode      string   `json:"languageCode"`
}

func newRequest(origin Origin, destination string) (computeRoutesRequest, error) {
	r := computeRoutesRequest{
		Destination:       address{Address: strings.TrimSpace(destination)},
		TravelMode:        "BICYCLE",
		ExtraComputations: []string{"HTML_FORMATTED_NAVIGATION_INSTRUCTIONS"},
		LanguageCode:      "en-US",
	}
	if r.Destination.Address == "" {
		return r, fmt.Errorf("%w: missing destination", ErrInvalidRequest)
	}

	switch {
	case origin.Location != nil && origin.Address != "":
		return r, fmt.Errorf("%w: origin is both an address and a location", ErrInvalidRequest)
	case origin.Location != nil:
		if err := origin.Location.Validate(); err != nil {
			return r, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		r.Origin.Location = &location{LatLng: latLng{Latitude: origin.Location.Lat, Longitude: origin.Location.Lon}}
	default:
		r.Origin.Address = strings.TrimSpace(origin.Address)
		if r.Origin.Address == "" {
			return r, fmt.Errorf("%w: missing origin", ErrInvalidRequest)
		}
	}
	return r, nil
}

// FetchRoute issues exactly one request to the routing provider. It returns
// either the steps of the first leg of the first route or an error, never both.
func (c *Client) FetchRoute(ctx context.Context, origin Origin, destination string) ([]Step, error) {
	body, err := newRequest(origin, destination)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", fieldMask)

	resp, err := c.transport.Do(req)
	if err != nil {
		return nil, &NetworkError{Detail: err.Error()}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Detail: err.Error()}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &NetworkError{Detail: "no data"}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &NetworkError{Detail: providerError(resp.StatusCode, data)}
	}

	steps, err := parseSteps(data)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"origin":      origin.String(),
		"destination": destination,
	}).Debugf("Route has %d steps", len(steps))

	return steps, nil
}

func providerError(status int, data []byte) string {
	var e struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &e); err == nil && e.Error.Message != "" {
		return fmt.Sprintf("routing provider returned %d: %s", status, e.Error.Message)
	}
	return fmt.Sprintf("routing provider returned %d", status)
}

func parseSteps(data []byte) ([]Step, error) {
	var root interface{}
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	raw, ok := firstLegSteps(root)
	if !ok {
		return nil, ErrNoRoutes
	}

	steps := make([]Step, 0, len(raw))
	for _, r := range raw {
		s, ok := toStep(r)
		if !ok {
			continue
		}
		steps = append(steps, s)
	}
	return steps, nil
}

// firstLegSteps walks routes[0].legs[0].steps
func firstLegSteps(root interface{}) ([]interface{}, bool) {
	obj, ok := root.(map[string]interface{})
	if !ok {
		return nil, false
	}
	routes, ok := obj["routes"].([]interface{})
	if !ok || len(routes) == 0 {
		return nil, false
	}
	route, ok := routes[0].(map[string]interface{})
	if !ok {
		return nil, false
	}
	legs, ok := route["legs"].([]interface{})
	if !ok || len(legs) == 0 {
		return nil, false
	}
	leg, ok := legs[0].(map[string]interface{})
	if !ok {
		return nil, false
	}
	steps, ok := leg["steps"].([]interface{})
	return steps, ok
}

func toStep(raw interface{}) (Step, bool) {
	step, ok := raw.(map[string]interface{})
	if !ok {
		return Step{}, false
	}

	nav, _ := step["navigationInstruction"].(map[string]interface{})
	html, _ := nav["instructions"].(string)
	plain := instruction.StripMarkup(html)

	maneuver, _ := nav["maneuver"].(string)
	if maneuver == "" {
		maneuver = defaultManeuver
	}

	meters, _ := step["distanceMeters"].(float64)

	return Step{
		ID:             uuid.New(),
		RawInstruction: plain,
		Maneuver:       maneuver,
		Simple:         instruction.ReduceToCommand(maneuver, plain),
		DistanceText:   instruction.FormatDistance(meters),
	}, true
}
