package charts

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"strings"

	"gonum.org/v1/gonum/graph/layout"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/spectral"
	"gonum.org/v1/gonum/mat"
)

// Layout names a node placement algorithm.
type Layout string

const (
	LayoutSpring   Layout = "spring"
	LayoutCircular Layout = "circular"
	LayoutShell    Layout = "shell"
	LayoutSpectral Layout = "spectral"
	LayoutRandom   Layout = "random"
)

// ErrUnknownLayout is returned for layout names ParseLayout does not know.
var ErrUnknownLayout = errors.New("unknown network layout")

// ParseLayout accepts layout names case-insensitively. An empty name selects
// the spring layout.
func ParseLayout(s string) (Layout, error) {
	switch l := Layout(strings.ToLower(strings.TrimSpace(s))); l {
	case "":
		return LayoutSpring, nil
	case LayoutSpring, LayoutCircular, LayoutShell, LayoutSpectral, LayoutRandom:
		return l, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownLayout, s)
}

// Point is a 2-D node position.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// lerp returns the point a fraction t of the way from p to q.
func (p Point) lerp(q Point, t float64) Point {
	return Point{X: p.X + t*(q.X-p.X), Y: p.Y + t*(q.Y-p.Y)}
}

// graphIndex maps node names onto a gonum graph with dense int64 ids.
type graphIndex struct {
	g     *simple.UndirectedGraph
	names []string
	ids   map[string]int64
}

func newGraphIndex() *graphIndex {
	return &graphIndex{g: simple.NewUndirectedGraph(), ids: make(map[string]int64)}
}

func (gi *graphIndex) node(name string) simple.Node {
	id, ok := gi.ids[name]
	if !ok {
		id = int64(len(gi.names))
		gi.ids[name] = id
		gi.names = append(gi.names, name)
		gi.g.AddNode(simple.Node(id))
	}
	return simple.Node(id)
}

// connect adds an undirected edge. Self transmissions only register the node.
func (gi *graphIndex) connect(a, b string) {
	na, nb := gi.node(a), gi.node(b)
	if na == nb || gi.g.HasEdgeBetween(int64(na), int64(nb)) {
		return
	}
	gi.g.SetEdge(gi.g.NewEdge(na, nb))
}

func (gi *graphIndex) degree(name string) int {
	return gi.g.From(gi.ids[name]).Len()
}

// place computes node positions for the layout. Positions are roughly
// within [-1, 1]; random placements fall in [0, 1).
func (gi *graphIndex) place(l Layout, seed uint64) map[string]Point {
	switch l {
	case LayoutCircular:
		return circular(gi.names)
	case LayoutShell:
		return gi.shell()
	case LayoutSpectral:
		return gi.spectral()
	case LayoutRandom:
		return gi.random(seed)
	}
	return gi.spring(seed)
}

func circular(names []string) map[string]Point {
	return ring(names, 1)
}

func ring(names []string, radius float64) map[string]Point {
	out := make(map[string]Point, len(names))
	if len(names) == 1 {
		out[names[0]] = Point{}
		return out
	}
	for i, name := range names {
		theta := 2 * math.Pi * float64(i) / float64(len(names))
		out[name] = Point{X: radius * math.Cos(theta), Y: radius * math.Sin(theta)}
	}
	return out
}

// shell places nodes on concentric rings by degree, busiest nodes innermost.
func (gi *graphIndex) shell() map[string]Point {
	byDegree := make(map[int][]string)
	var degrees []int
	for _, name := range gi.names {
		d := gi.degree(name)
		if _, ok := byDegree[d]; !ok {
			degrees = append(degrees, d)
		}
		byDegree[d] = append(byDegree[d], name)
	}
	slices.SortFunc(degrees, func(a, b int) int { return cmp.Compare(b, a) })

	out := make(map[string]Point, len(gi.names))
	for i, d := range degrees {
		radius := float64(i+1) / float64(len(degrees))
		if i == 0 && len(byDegree[d]) == 1 && len(degrees) > 1 {
			radius = 0
		}
		for name, p := range ring(byDegree[d], radius) {
			out[name] = p
		}
	}
	return out
}

func (gi *graphIndex) random(seed uint64) map[string]Point {
	rnd := rand.New(rand.NewPCG(seed, seed))
	out := make(map[string]Point, len(gi.names))
	for _, name := range gi.names {
		out[name] = Point{X: rnd.Float64(), Y: rnd.Float64()}
	}
	return out
}

func (gi *graphIndex) spring(seed uint64) map[string]Point {
	if len(gi.names) < 2 {
		return circular(gi.names)
	}
	eades := layout.EadesR2{Repulsion: 1, Rate: 0.05, Updates: 50, Theta: 0.2, Src: rand.NewPCG(seed, seed)}
	opt := layout.NewOptimizerR2(gi.g, eades.Update)
	for opt.Update() {
	}

	out := make(map[string]Point, len(gi.names))
	for name, id := range gi.ids {
		v := opt.Coord2(id)
		out[name] = Point{X: v.X, Y: v.Y}
	}
	return rescale(out)
}

// spectral uses the second and third Laplacian eigenvectors as coordinates.
func (gi *graphIndex) spectral() map[string]Point {
	if len(gi.names) < 3 {
		return circular(gi.names)
	}
	lap := spectral.NewLaplacian(gi.g)
	sym, ok := lap.Matrix.(mat.Symmetric)
	if !ok {
		return circular(gi.names)
	}
	var eig mat.EigenSym
	if !eig.Factorize(sym, true) {
		return circular(gi.names)
	}
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	out := make(map[string]Point, len(gi.names))
	for name, id := range gi.ids {
		row := lap.Index[id]
		out[name] = Point{X: vecs.At(row, 1), Y: vecs.At(row, 2)}
	}
	return rescale(out)
}

// rescale centres positions on the origin and scales the largest coordinate
// to 1.
func rescale(pos map[string]Point) map[string]Point {
	if len(pos) == 0 {
		return pos
	}
	var mean Point
	for _, p := range pos {
		mean.X += p.X
		mean.Y += p.Y
	}
	mean.X /= float64(len(pos))
	mean.Y /= float64(len(pos))

	lim := 0.0
	for name, p := range pos {
		p = Point{X: p.X - mean.X, Y: p.Y - mean.Y}
		pos[name] = p
		lim = math.Max(lim, math.Max(math.Abs(p.X), math.Abs(p.Y)))
	}
	if lim == 0 {
		return pos
	}
	for name, p := range pos {
		pos[name] = Point{X: p.X / lim, Y: p.Y / lim}
	}
	return pos
}
