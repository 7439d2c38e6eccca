// Package instruction reduces routing provider maneuvers to the small command
// alphabet understood by the handlebar display.
package instruction

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

// Command is the normalized direction of a route step.
type Command string

const (
	Left     Command = "LEFT"
	Right    Command = "RIGHT"
	Straight Command = "STRAIGHT"
)

const (
	feetPerMeter = 3.28084
	feetPerMile  = 5280
)

var (
	tags     = regexp.MustCompile(`<[^>]+>`)
	entities = strings.NewReplacer("&nbsp;", " ", "&amp;", "&")
)

// StripMarkup removes tags from an html instruction. Only &nbsp; and &amp; are
// decoded, any other entity is left as is.
func StripMarkup(html string) string {
	return entities.Replace(tags.ReplaceAllString(html, ""))
}

// ReduceToCommand looks for left or right in the maneuver tag first, then in
// the free text instruction.
func ReduceToCommand(maneuver, fallback string) Command {
	if c, ok := direction(maneuver); ok {
		return c
	}
	if c, ok := direction(fallback); ok {
		return c
	}
	return Straight
}

func direction(s string) (Command, bool) {
	s = strings.ToLower(s)
	if strings.Contains(s, "left") {
		return Left, true
	}
	if strings.Contains(s, "right") {
		return Right, true
	}
	return "", false
}

// FormatDistance renders meters as truncated feet below 1000 ft, as miles with
// one decimal otherwise.
func FormatDistance(meters float64) string {
	if meters < 0 || math.IsNaN(meters) {
		meters = 0
	}
	feet := meters * feetPerMeter
	if feet < 1000 {
		return fmt.Sprintf("%d ft", int(feet))
	}
	return fmt.Sprintf("%.1f mi", feet/feetPerMile)
}
