package core

import (
	"fmt"
	"math"

	"github.com/signalsfoundry/comms-inspector/model"
)

// Resolution selects the globe surface sampling density.
type Resolution string

const (
	ResolutionLow    Resolution = "low"
	ResolutionMedium Resolution = "medium"
	ResolutionHigh   Resolution = "high"
)

// gridSize returns the longitude and latitude sample counts.
func (r Resolution) gridSize() (nTheta, nPhi int, err error) {
	switch r {
	case ResolutionLow:
		return 50, 25, nil
	case ResolutionMedium, "":
		return 100, 50, nil
	case ResolutionHigh:
		return 200, 100, nil
	}
	return 0, 0, fmt.Errorf("%w: resolution %q", ErrInvalidArgument, string(r))
}

// Surface is the globe backdrop: the sampled ellipsoid plus the colours the
// plotting surface should use for it.
type Surface struct {
	Resolution Resolution `json:"resolution"`
	LandColor  string     `json:"land_color"`
	OceanColor string     `json:"ocean_color"`
	Grid       Grid       `json:"grid"`
}

// BuildSurface samples the reference ellipsoid at the given resolution.
func BuildSurface(res Resolution, landColor, oceanColor string) (Surface, error) {
	nTheta, nPhi, err := res.gridSize()
	if err != nil {
		return Surface{}, err
	}
	if res == "" {
		res = ResolutionMedium
	}
	return Surface{
		Resolution: res,
		LandColor:  landColor,
		OceanColor: oceanColor,
		Grid:       EllipsoidGrid(EquatorRadius, PolarRadius, nTheta, nPhi),
	}, nil
}

// AxisRange returns the symmetric scene half-width that contains every
// sender and receiver coordinate, never smaller than the equatorial radius.
func AxisRange(rows []*model.EventRow) float64 {
	limit := EquatorRadius
	for _, r := range rows {
		for _, p := range [2]model.Position{r.SenderPos, r.ReceiverPos} {
			if !p.Valid {
				continue
			}
			limit = math.Max(limit, math.Max(math.Abs(p.X), math.Max(math.Abs(p.Y), math.Abs(p.Z))))
		}
	}
	return limit
}

// SceneLayout describes the 3-D scene axes.
type SceneLayout struct {
	AxisRange      [2]float64 `json:"axis_range"`
	AspectMode     string     `json:"aspect_mode"`
	Camera         Camera     `json:"camera"`
	Classification string     `json:"classification,omitempty"`
}

// Layout returns the scene layout for a frame.
func Layout(axisRange float64, cam Camera, classification string) SceneLayout {
	return SceneLayout{
		AxisRange:      [2]float64{-axisRange, axisRange},
		AspectMode:     "cube",
		Camera:         cam,
		Classification: classification,
	}
}
