package directions

import "errors"

var (
	ErrInvalidRequest = errors.New("invalid route request")
	ErrNoRoutes       = errors.New("no route found")
	ErrParse          = errors.New("unable to parse routing response")
)

// NetworkError is a transport level failure, or a routing provider that did
// not answer with a successful response.
type NetworkError struct {
	Detail string
}

func (e *NetworkError) Error() string {
	return "network error: " + e.Detail
}
