package core

import (
	"math"

	"github.com/signalsfoundry/comms-inspector/model"
)

// Camera is the eye position handed to the plotting surface.
type Camera struct {
	Eye Vec3 `json:"eye"`
}

// DefaultCamera is the fallback eye for the given mode: three units out along
// X in plotly's normalised scene, three equatorial radii in Cesium's metres.
func DefaultCamera(mode RenderMode) Camera {
	if mode == ModeCesium {
		return Camera{Eye: Vec3{X: 3 * EquatorRadius}}
	}
	return Camera{Eye: Vec3{X: 3}}
}

// FrameCamera points the camera at the centroid of every active platform,
// backed off to twice the farthest platform's distance from the origin.
// Plotly scenes are normalised by axisRange. Empty or degenerate point sets
// fall back to DefaultCamera.
func FrameCamera(internal, external []*model.EventRow, mode RenderMode, axisRange float64) Camera {
	seen := make(map[Vec3]struct{})
	var points []Vec3
	add := func(p model.Position) {
		if !p.Valid {
			return
		}
		v := FromPosition(p)
		if _, ok := seen[v]; ok {
			return
		}
		seen[v] = struct{}{}
		points = append(points, v)
	}
	for _, r := range internal {
		add(r.SenderPos)
	}
	for _, r := range external {
		add(r.SenderPos)
	}
	for _, r := range external {
		add(r.ReceiverPos)
	}

	if len(points) == 0 {
		return DefaultCamera(mode)
	}

	var sum Vec3
	maxNorm := 0.0
	for _, p := range points {
		sum = sum.Add(p)
		maxNorm = math.Max(maxNorm, p.Norm())
	}
	dir, ok := sum.Scale(1 / float64(len(points))).Normalize()
	if !ok || maxNorm == 0 {
		return DefaultCamera(mode)
	}

	zoom := 2 * maxNorm
	if mode != ModeCesium {
		if axisRange <= 0 {
			axisRange = EquatorRadius
		}
		zoom /= axisRange
	}
	return Camera{Eye: dir.Scale(zoom)}
}
