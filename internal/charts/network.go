package charts

import (
	"cmp"
	"slices"
	"strconv"

	"github.com/signalsfoundry/comms-inspector/model"
)

// widthBucket maps transmission counts in (lo, hi] to an edge width.
type widthBucket struct {
	lo, hi int
	width  float64
}

var edgeWidths = []widthBucket{
	{1, 10, 0.5},
	{10, 20, 1},
	{20, 30, 1.5},
	{30, 40, 2},
	{40, 50, 2.5},
	{50, 60, 3},
	{60, 70, 3.5},
	{70, 80, 4},
	{80, 90, 4.5},
}

const (
	busiestEdgeWidth = 5
	defaultEdgeWidth = 1
	edgeColor        = "black"
)

// markerFractions place the direction markers along each edge.
var markerFractions = [2]float64{0.25, 0.75}

// EdgeWidth returns the display width for an edge carrying count messages.
func EdgeWidth(count int) float64 {
	for _, b := range edgeWidths {
		if count > b.lo && count <= b.hi {
			return b.width
		}
	}
	if count > edgeWidths[len(edgeWidths)-1].hi {
		return busiestEdgeWidth
	}
	return defaultEdgeWidth
}

// Node is a positioned platform in the network graph.
type Node struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Position Point  `json:"position"`
	Hover    string `json:"hover"`
}

// NodeGroup collects the nodes sharing a platform type into one trace.
type NodeGroup struct {
	Type  string `json:"type"`
	Nodes []Node `json:"nodes"`
}

// Edge is one directed sender/receiver pair and its message count.
type Edge struct {
	Sender   string    `json:"sender"`
	Receiver string    `json:"receiver"`
	Count    int       `json:"count"`
	Width    float64   `json:"width"`
	Color    string    `json:"color"`
	From     Point     `json:"from"`
	To       Point     `json:"to"`
	Markers  [2]Point  `json:"markers"`
	Hover    [2]string `json:"hover"`
}

// Network is a laid-out sender/receiver graph.
type Network struct {
	Layout Layout      `json:"layout"`
	Groups []NodeGroup `json:"groups"`
	Edges  []Edge      `json:"edges"`
}

// NodeCount returns the number of distinct platforms in the graph.
func (n Network) NodeCount() int {
	total := 0
	for _, g := range n.Groups {
		total += len(g.Nodes)
	}
	return total
}

type pair struct{ sender, receiver string }

// BuildNetwork counts external transmissions per sender/receiver pair and
// lays the resulting graph out. Internal events are ignored. seed drives the
// spring and random layouts.
func BuildNetwork(rows []*model.EventRow, l Layout, seed uint64) Network {
	counts := make(map[pair]int)
	types := make(map[string]string)
	for _, r := range rows {
		if !model.IsExternal(r.EventType) {
			continue
		}
		counts[pair{r.Sender.Name, r.Receiver.Name}]++
	}

	pairs := make([]pair, 0, len(counts))
	for p := range counts {
		pairs = append(pairs, p)
	}
	slices.SortFunc(pairs, func(a, b pair) int {
		return cmp.Or(cmp.Compare(a.sender, b.sender), cmp.Compare(a.receiver, b.receiver))
	})

	// Node types come from the first row naming the platform in each role.
	for _, r := range rows {
		if !model.IsExternal(r.EventType) {
			continue
		}
		if _, ok := types["s:"+r.Sender.Name]; !ok {
			types["s:"+r.Sender.Name] = r.Sender.Type
		}
		if _, ok := types["r:"+r.Receiver.Name]; !ok {
			types["r:"+r.Receiver.Name] = r.Receiver.Type
		}
	}

	gi := newGraphIndex()
	nodeType := make(map[string]string)
	for _, p := range pairs {
		gi.connect(p.sender, p.receiver)
		if _, ok := nodeType[p.sender]; !ok {
			nodeType[p.sender] = types["s:"+p.sender]
		}
		if _, ok := nodeType[p.receiver]; !ok {
			nodeType[p.receiver] = types["r:"+p.receiver]
		}
	}
	pos := gi.place(l, seed)

	net := Network{Layout: l, Groups: []NodeGroup{}, Edges: make([]Edge, 0, len(pairs))}
	groupIdx := make(map[string]int)
	for _, name := range gi.names {
		typ := nodeType[name]
		i, ok := groupIdx[typ]
		if !ok {
			i = len(net.Groups)
			groupIdx[typ] = i
			net.Groups = append(net.Groups, NodeGroup{Type: typ})
		}
		net.Groups[i].Nodes = append(net.Groups[i].Nodes, Node{
			Name:     name,
			Type:     typ,
			Position: pos[name],
			Hover:    name + "<extra></extra>",
		})
	}

	for _, p := range pairs {
		n := counts[p]
		from, to := pos[p.sender], pos[p.receiver]
		hover := strconv.Itoa(n) + "<extra></extra>"
		net.Edges = append(net.Edges, Edge{
			Sender:   p.sender,
			Receiver: p.receiver,
			Count:    n,
			Width:    EdgeWidth(n),
			Color:    edgeColor,
			From:     from,
			To:       to,
			Markers:  [2]Point{from.lerp(to, markerFractions[0]), from.lerp(to, markerFractions[1])},
			Hover:    [2]string{hover, hover},
		})
	}
	return net
}
