// internal/board/graph.go
//
// Board topology.
// Responsibilities:
//   - Map board positions to the nodes that can hold balls (active nodes).
//   - Precompute per-node adjacency for square (4-neighbor) and hex (6-neighbor) boards.
//
// Notes:
//   - Hex boards use "odd-r" offset rows: odd rows are shifted half a cell right.
//   - Neighbor order is fixed at construction, so path tie-breaking is stable
//     for a given board shape.

package board

import (
	"fmt"
)

// Topology names a board shape.
type Topology string

const (
	TopologySquare Topology = "square"
	TopologyHex    Topology = "hex"
)

// ParseTopology accepts "square" or "hex" (empty defaults to square).
func ParseTopology(s string) (Topology, error) {
	switch Topology(s) {
	case "", TopologySquare:
		return TopologySquare, nil
	case TopologyHex:
		return TopologyHex, nil
	}
	return "", fmt.Errorf("board: unknown topology %q", s)
}

// Position is a board coordinate. X is the column, Y the row.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Position) String() string { return fmt.Sprintf("(%d,%d)", p.X, p.Y) }

func (p Position) add(dx, dy int) Position { return Position{X: p.X + dx, Y: p.Y + dy} }

// Graph is the static adjacency structure of a board.
type Graph struct {
	topology Topology
	width    int
	height   int
	blocked  map[Position]struct{}
	order    []Position // active positions, row-major
	adj      map[Position][]Position
}

var (
	squareDeltas  = [][2]int{{0, -1}, {1, 0}, {0, 1}, {-1, 0}}
	hexEvenDeltas = [][2]int{{-1, -1}, {0, -1}, {1, 0}, {0, 1}, {-1, 1}, {-1, 0}}
	hexOddDeltas  = [][2]int{{0, -1}, {1, -1}, {1, 0}, {1, 1}, {0, 1}, {-1, 0}}
)

// NewGraph builds a width x height board. Blocked positions are inactive and
// never appear in adjacency lists.
func NewGraph(topology Topology, width, height int, blocked []Position) (*Graph, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("board: invalid size %dx%d", width, height)
	}
	if topology != TopologySquare && topology != TopologyHex {
		return nil, fmt.Errorf("board: unknown topology %q", topology)
	}

	g := &Graph{
		topology: topology,
		width:    width,
		height:   height,
		blocked:  make(map[Position]struct{}, len(blocked)),
		adj:      make(map[Position][]Position, width*height),
	}
	for _, p := range blocked {
		if g.inBounds(p) {
			g.blocked[p] = struct{}{}
		}
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			p := Position{X: x, Y: y}
			if g.IsActive(p) {
				g.order = append(g.order, p)
			}
		}
	}
	for _, p := range g.order {
		for _, d := range g.deltas(p.Y) {
			if q := p.add(d[0], d[1]); g.IsActive(q) {
				g.adj[p] = append(g.adj[p], q)
			}
		}
	}
	return g, nil
}

func (g *Graph) deltas(row int) [][2]int {
	if g.topology == TopologyHex {
		if row%2 == 1 {
			return hexOddDeltas
		}
		return hexEvenDeltas
	}
	return squareDeltas
}

func (g *Graph) inBounds(p Position) bool {
	return p.X >= 0 && p.X < g.width && p.Y >= 0 && p.Y < g.height
}

// Topology reports the board shape.
func (g *Graph) Topology() Topology { return g.topology }

// Size returns the board dimensions.
func (g *Graph) Size() (width, height int) { return g.width, g.height }

// IsActive reports whether p is a playable node.
func (g *Graph) IsActive(p Position) bool {
	if !g.inBounds(p) {
		return false
	}
	_, blocked := g.blocked[p]
	return !blocked
}

// Neighbors returns the active neighbors of p. The slice is shared; do not modify.
func (g *Graph) Neighbors(p Position) []Position { return g.adj[p] }

// ActiveNodeCount is the number of playable nodes.
func (g *Graph) ActiveNodeCount() int { return len(g.order) }

// Positions returns every active position in row-major order.
func (g *Graph) Positions() []Position {
	out := make([]Position, len(g.order))
	copy(out, g.order)
	return out
}

// Blocked returns the inactive in-bounds positions, row-major.
func (g *Graph) Blocked() []Position {
	var out []Position
	for y := 0; y < g.height; y++ {
		for x := 0; x < g.width; x++ {
			p := Position{X: x, Y: y}
			if _, ok := g.blocked[p]; ok {
				out = append(out, p)
			}
		}
	}
	return out
}
