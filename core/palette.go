package core

import (
	"fmt"
	"image/color"
	"strings"

	"golang.org/x/image/colornames"

	"github.com/signalsfoundry/comms-inspector/model"
)

// Color is a named RGB colour as understood by the plotting surface.
type Color struct {
	Name    string
	R, G, B uint8
}

func named(name string, c color.RGBA) Color {
	return Color{Name: name, R: c.R, G: c.G, B: c.B}
}

// LookupColor resolves an SVG/CSS colour name, case-insensitively.
func LookupColor(name string) (Color, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	c, ok := colornames.Map[key]
	if !ok {
		return Color{}, false
	}
	return named(key, c), true
}

// RGBA renders the colour with the given opacity, e.g. "rgba(72, 209, 204, 1)".
func (c Color) RGBA(alpha float64) string {
	return fmt.Sprintf("rgba(%d, %d, %d, %s)", c.R, c.G, c.B, model.FormatNumber(alpha))
}

// Outcome is the aggregate result of a transmission group.
type Outcome string

const (
	OutcomeSuccess Outcome = "Success"
	OutcomeFail    Outcome = "Fail"
)

var outcomeColors = map[Outcome]Color{
	OutcomeSuccess: named("mediumturquoise", colornames.Mediumturquoise),
	OutcomeFail:    named("darkred", colornames.Darkred),
}

// Color returns the line colour for the outcome.
func (o Outcome) Color() Color {
	if c, ok := outcomeColors[o]; ok {
		return c
	}
	return outcomeColors[OutcomeSuccess]
}

// InternalCategory classifies a platform's internal activity in one slice.
type InternalCategory string

const (
	CategoryBoth         InternalCategory = "both"
	CategoryOutgoingOnly InternalCategory = "outgoing"
	CategoryIncomingOnly InternalCategory = "incoming"
	CategoryNeither      InternalCategory = "neither"
)

var categoryColors = map[InternalCategory]Color{
	CategoryBoth:         named("goldenrod", colornames.Goldenrod),
	CategoryOutgoingOnly: named("cornflowerblue", colornames.Cornflowerblue),
	CategoryIncomingOnly: named("mediumspringgreen", colornames.Mediumspringgreen),
	CategoryNeither:      named("salmon", colornames.Salmon),
}

// Color returns the marker colour for the category.
func (c InternalCategory) Color() Color {
	return categoryColors[c]
}
