package core

import (
	"iter"
	"math"

	"github.com/signalsfoundry/comms-inspector/model"
)

// Ellipsoid radii used for the rendered globe (metres).
const (
	EquatorRadius = 6.378e6
	PolarRadius   = 6.357e6
)

// epsilon is the angular tolerance (radians) below which two directions are
// treated as identical or antipodal.
const epsilon = 1e-9

// Vec3 is an ECEF vector in metres.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// FromPosition converts a model position to a vector.
func FromPosition(p model.Position) Vec3 {
	return Vec3{X: p.X, Y: p.Y, Z: p.Z}
}

// DistanceTo returns the straight-line distance between two points.
func (v Vec3) DistanceTo(other Vec3) float64 {
	return v.Sub(other).Norm()
}

// Norm returns the Euclidean norm of the vector.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Add returns v + other.
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{X: v.X + other.X, Y: v.Y + other.Y, Z: v.Z + other.Z}
}

// Sub returns v - other.
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{X: v.X - other.X, Y: v.Y - other.Y, Z: v.Z - other.Z}
}

// Scale returns v * k.
func (v Vec3) Scale(k float64) Vec3 {
	return Vec3{X: v.X * k, Y: v.Y * k, Z: v.Z * k}
}

// Dot returns the dot product of two vectors.
func (v Vec3) Dot(other Vec3) float64 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

// Normalize returns the unit vector along v. ok is false for the zero vector.
func (v Vec3) Normalize() (unit Vec3, ok bool) {
	n := v.Norm()
	if n == 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return Vec3{}, false
	}
	return v.Scale(1 / n), true
}

// Lerp returns (1-t)*v + t*other.
func (v Vec3) Lerp(other Vec3, t float64) Vec3 {
	return v.Scale(1 - t).Add(other.Scale(t))
}

// Midpoint returns the point halfway between v and other.
func (v Vec3) Midpoint(other Vec3) Vec3 {
	return v.Lerp(other, 0.5)
}

// angleBetween returns the angle between p1 and p2 in radians.
func angleBetween(p1, p2 Vec3) float64 {
	n1, n2 := p1.Norm(), p2.Norm()
	if n1 == 0 || n2 == 0 {
		return 0
	}
	c := p1.Dot(p2) / (n1 * n2)
	if c > 1 {
		c = 1
	} else if c < -1 {
		c = -1
	}
	return math.Acos(c)
}

// GreatCirclePoints yields n+1 points along the shortest arc from p1 to p2
// using spherical linear interpolation. Coincident directions yield p1 for
// every sample; antipodal directions have no unique arc and fall back to a
// straight segment.
func GreatCirclePoints(p1, p2 Vec3, n int) iter.Seq[Vec3] {
	if n < 1 {
		n = 1
	}
	theta := angleBetween(p1, p2)
	sinTheta := math.Sin(theta)

	return func(yield func(Vec3) bool) {
		for i := 0; i <= n; i++ {
			t := float64(i) / float64(n)
			var p Vec3
			switch {
			case theta < epsilon:
				p = p1
			case math.Abs(sinTheta) < epsilon:
				p = p1.Lerp(p2, t)
			default:
				a := math.Sin((1-t)*theta) / sinTheta
				b := math.Sin(t*theta) / sinTheta
				p = p1.Scale(a).Add(p2.Scale(b))
			}
			if !yield(p) {
				return
			}
		}
	}
}

// SegmentPoints yields n+1 points linearly interpolated from p1 to p2.
func SegmentPoints(p1, p2 Vec3, n int) iter.Seq[Vec3] {
	if n < 1 {
		n = 1
	}
	return func(yield func(Vec3) bool) {
		for i := 0; i <= n; i++ {
			if !yield(p1.Lerp(p2, float64(i)/float64(n))) {
				return
			}
		}
	}
}

// LineOfSightBlocked reports whether the straight segment from sender to
// receiver passes through a sphere of the given radius centred on the origin.
// Only closest approaches strictly inside the segment count; endpoints below
// the surface are not treated as occluded.
func LineOfSightBlocked(sender, receiver Vec3, radius float64) bool {
	d := receiver.Sub(sender)
	a := d.Dot(d)
	if a == 0 {
		return false
	}

	// t* minimises |sender + t d|^2 over t ∈ ℝ.
	t := -sender.Dot(d) / a
	if t <= 0 || t >= 1 {
		return false
	}

	closest := sender.Add(d.Scale(t))
	return closest.Norm() <= radius
}

// Grid is a sampled surface laid out as rows of points, the shape plotting
// surfaces expect for x/y/z matrices.
type Grid struct {
	X [][]float64 `json:"x"`
	Y [][]float64 `json:"y"`
	Z [][]float64 `json:"z"`
}

// EllipsoidGrid samples an ellipsoid of revolution with equatorial radius a and
// polar radius c on an nPhi × nTheta grid. Longitudes start at π so the
// texture seam sits on the far side of the default camera.
func EllipsoidGrid(a, c float64, nTheta, nPhi int) Grid {
	theta := linspace(0, 2*math.Pi, nTheta)
	for i := range theta {
		theta[i] += math.Pi
	}
	phi := linspace(0, math.Pi, nPhi)

	g := Grid{
		X: make([][]float64, len(phi)),
		Y: make([][]float64, len(phi)),
		Z: make([][]float64, len(phi)),
	}
	for i, p := range phi {
		sp, cp := math.Sin(p), math.Cos(p)
		g.X[i] = make([]float64, len(theta))
		g.Y[i] = make([]float64, len(theta))
		g.Z[i] = make([]float64, len(theta))
		for j, th := range theta {
			g.X[i][j] = a * math.Cos(th) * sp
			g.Y[i][j] = a * math.Sin(th) * sp
			g.Z[i][j] = c * cp
		}
	}
	return g
}

func linspace(start, stop float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{start}
	}
	out := make([]float64, n)
	step := (stop - start) / float64(n-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}
