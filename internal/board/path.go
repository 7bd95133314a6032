package board

// FindPath returns a shortest route from `from` to `to`, both inclusive,
// through nodes that hold no ball. Reservations do not block traversal.
//
// from must hold a ball and to must be free, otherwise ErrInvalidSelection.
// bound caps the route length in steps; pass 0 to use the active node count.
// Among equal-length routes the one found first in neighbor order wins.
func FindPath(b *Board, from, to Position, bound int) ([]Position, error) {
	src, ok := b.nodes[from]
	if !ok || src.Ball == nil {
		return nil, ErrInvalidSelection
	}
	dst, ok := b.nodes[to]
	if !ok || !dst.Free() {
		return nil, ErrInvalidSelection
	}
	if bound <= 0 {
		bound = b.graph.ActiveNodeCount()
	}

	prev := map[Position]Position{}
	dist := map[Position]int{from: 0}
	queue := []Position{from}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == to {
			break
		}
		if dist[cur] >= bound {
			continue
		}
		for _, nb := range b.graph.Neighbors(cur) {
			if _, seen := dist[nb]; seen {
				continue
			}
			if nb != to && b.nodes[nb].Ball != nil {
				continue
			}
			dist[nb] = dist[cur] + 1
			prev[nb] = cur
			queue = append(queue, nb)
		}
	}

	if _, ok := dist[to]; !ok {
		return nil, ErrUnreachable
	}

	path := make([]Position, dist[to]+1)
	for i, p := len(path)-1, to; i >= 0; i-- {
		path[i] = p
		p = prev[p]
	}
	return path, nil
}

// FindPath is FindPath bounded by the active node count.
func (b *Board) FindPath(from, to Position) ([]Position, error) {
	return FindPath(b, from, to, b.graph.ActiveNodeCount())
}
