// internal/board/board.go
//
// Board engine: owns node and ball state.
// Responsibilities:
//   - Reset the board for a new game and seed the initial grow-up reservations.
//   - Attach queued balls to uniformly random free nodes.
//   - Grow reservations into balls.
//   - Move a ball between nodes (begin, then land) with ghost propagation.
//   - Remove exploded balls.
//   - Export/import node state for snapshots.
//
// Notes:
//   - Not safe for concurrent use. One writer drives a board at a time.
//   - All iteration is row-major so results are reproducible for a given seed.

package board

import (
	"fmt"
	"math/rand/v2"
)

// Board is the mutable state of one game board.
type Board struct {
	graph *Graph
	nodes map[Position]*Node
	rng   *rand.Rand
	move  *pendingMove
	keys  *ExplodeKeySet
}

type pendingMove struct {
	from, to Position
	ghost    bool
}

// New creates an empty board over g. rng drives random node selection.
func New(g *Graph, rng *rand.Rand) *Board {
	b := &Board{graph: g, rng: rng, keys: NewExplodeKeySet()}
	b.reset()
	return b
}

func (b *Board) reset() { b.replace(b.freshNodes()) }

func (b *Board) freshNodes() map[Position]*Node {
	nodes := make(map[Position]*Node, b.graph.ActiveNodeCount())
	for _, p := range b.graph.order {
		nodes[p] = &Node{Pos: p}
	}
	return nodes
}

func (b *Board) replace(nodes map[Position]*Node) {
	b.nodes = nodes
	b.move = nil
	b.keys.Clear()
}

// Graph returns the board topology.
func (b *Board) Graph() *Graph { return b.graph }

// CreateNewBoard clears every node and reserves initGrowUpCount random free
// nodes with colors drawn from color.
func (b *Board) CreateNewBoard(initGrowUpCount int, color func() int) error {
	b.reset()
	for i := 0; i < initGrowUpCount; i++ {
		if _, err := b.AttachQueueBallToRandomActiveNode(color(), false); err != nil {
			return fmt.Errorf("seed grow-up %d of %d: %w", i+1, initGrowUpCount, err)
		}
	}
	return nil
}

// Node returns a copy of the node at p. ok is false for blocked or
// out-of-bounds positions.
func (b *Board) Node(p Position) (Node, bool) {
	n, ok := b.nodes[p]
	if !ok {
		if b.graph.inBounds(p) {
			return Node{Pos: p, Type: NodeBlocked}, false
		}
		return Node{}, false
	}
	return *n, true
}

// Nodes returns copies of all active nodes, row-major.
func (b *Board) Nodes() []Node {
	out := make([]Node, 0, len(b.graph.order))
	for _, p := range b.graph.order {
		out = append(out, *b.nodes[p])
	}
	return out
}

func (b *Board) freePositions() []Position {
	var out []Position
	for _, p := range b.graph.order {
		if b.nodes[p].Free() {
			out = append(out, p)
		}
	}
	return out
}

// FreeCount is the number of active nodes with neither a ball nor a reservation.
func (b *Board) FreeCount() int { return len(b.freePositions()) }

// OutOfActiveNode reports whether no active node is free.
func (b *Board) OutOfActiveNode() bool {
	for _, p := range b.graph.order {
		if b.nodes[p].Free() {
			return false
		}
	}
	return true
}

// AttachQueueBallToRandomActiveNode reserves a uniformly random free node for a
// ball of colorID. When ghost is set the node is tagged GHOST.
func (b *Board) AttachQueueBallToRandomActiveNode(colorID int, ghost bool) (Position, error) {
	free := b.freePositions()
	if len(free) == 0 {
		return Position{}, ErrNoRoom
	}
	p := free[b.rng.IntN(len(free))]
	n := b.nodes[p]
	n.Pending = &Ball{ColorID: colorID}
	if ghost {
		n.Type = NodeGhost
	}
	return p, nil
}

// GrowQueueBalls realizes every queued reservation into a ball and returns the
// grown positions. A reservation held by an in-flight move is left alone.
func (b *Board) GrowQueueBalls() []Position {
	var grown []Position
	for _, p := range b.graph.order {
		n := b.nodes[p]
		if n.Pending == nil || n.inFlight {
			continue
		}
		n.Ball, n.Pending = n.Pending, nil
		grown = append(grown, p)
	}
	return grown
}

// AddGrowUpNode reserves p for ball. p must be free.
func (b *Board) AddGrowUpNode(p Position, ball Ball) error {
	n, ok := b.nodes[p]
	if !ok || !n.Free() {
		return fmt.Errorf("grow-up %v: %w", p, ErrInvalidSelection)
	}
	n.Pending = &ball
	return nil
}

// ReleaseGrowUpNode drops any reservation on p.
func (b *Board) ReleaseGrowUpNode(p Position) {
	if n, ok := b.nodes[p]; ok {
		n.Pending = nil
		n.inFlight = false
	}
}

// ChainExplode removes the balls at keys and returns how many were removed.
// Exploded ghost nodes return to NORMAL.
func (b *Board) ChainExplode(keys []Position) int {
	removed := 0
	for _, p := range keys {
		n, ok := b.nodes[p]
		if !ok || n.Ball == nil {
			continue
		}
		n.Ball = nil
		n.backToDefault()
		removed++
	}
	return removed
}

// BeginMove lifts the ball off from and reserves to for it until Land.
// A ghost source hands its tag to the destination on landing.
func (b *Board) BeginMove(from, to Position) (Ball, error) {
	if b.move != nil {
		return Ball{}, fmt.Errorf("move %v->%v: %w", from, to, ErrInvalidSelection)
	}
	src, ok := b.nodes[from]
	if !ok || src.Ball == nil {
		return Ball{}, fmt.Errorf("move from %v: %w", from, ErrInvalidSelection)
	}
	if err := b.AddGrowUpNode(to, *src.Ball); err != nil {
		return Ball{}, err
	}
	dst := b.nodes[to]
	dst.inFlight = true

	ball := *src.Ball
	b.move = &pendingMove{from: from, to: to, ghost: src.IsGhost()}
	src.Ball = nil
	src.backToDefault()
	return ball, nil
}

// Moving reports the in-flight move, if any.
func (b *Board) Moving() (from, to Position, ok bool) {
	if b.move == nil {
		return Position{}, Position{}, false
	}
	return b.move.from, b.move.to, true
}

// Land completes the in-flight move and returns the landing position.
func (b *Board) Land() (Position, error) {
	if b.move == nil {
		return Position{}, ErrNoMove
	}
	m := b.move
	dst := b.nodes[m.to]
	dst.Ball, dst.Pending = dst.Pending, nil
	dst.inFlight = false
	if m.ghost {
		dst.Type = NodeGhost
	}
	b.move = nil
	return m.to, nil
}

// Export returns the state of every non-default node, row-major. An in-flight
// move is reported as not yet started.
func (b *Board) Export() []NodeState {
	var out []NodeState
	for _, p := range b.graph.order {
		n := b.nodes[p]
		st := NodeState{Pos: p, Ghost: n.IsGhost()}
		if n.Ball != nil {
			ball := *n.Ball
			st.Ball = &ball
		}
		if n.Pending != nil && !n.inFlight {
			pending := *n.Pending
			st.Pending = &pending
		}
		if b.move != nil && p == b.move.from {
			ball := *b.nodes[b.move.to].Pending
			st.Ball = &ball
			st.Ghost = b.move.ghost
		}
		if st.Ball == nil && st.Pending == nil && !st.Ghost {
			continue
		}
		out = append(out, st)
	}
	return out
}

// Import replaces the board contents with states. On error the board is
// left as it was.
func (b *Board) Import(states []NodeState) error {
	nodes := b.freshNodes()
	for _, st := range states {
		n, ok := nodes[st.Pos]
		if !ok {
			return fmt.Errorf("import %v: %w", st.Pos, ErrUnknownNode)
		}
		if st.Ball != nil && st.Pending != nil {
			return fmt.Errorf("import %v: ball and reservation on one node: %w", st.Pos, ErrInvalidSelection)
		}
		if st.Ball != nil {
			ball := *st.Ball
			n.Ball = &ball
		}
		if st.Pending != nil {
			pending := *st.Pending
			n.Pending = &pending
		}
		if st.Ghost {
			n.Type = NodeGhost
		}
	}
	b.replace(nodes)
	return nil
}
