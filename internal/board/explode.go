// internal/board/explode.go
//
// Chain explosion.
// A landed or grown ball flood-fills its same-color neighbors; the group
// explodes once it reaches the threshold. The key set is cleared after every
// check, so groups never carry over between checks.

package board

// ExplodeKeySet is an insertion-ordered set of positions.
type ExplodeKeySet struct {
	keys []Position
	seen map[Position]struct{}
}

func NewExplodeKeySet() *ExplodeKeySet {
	return &ExplodeKeySet{seen: make(map[Position]struct{})}
}

// Add inserts p and reports whether it was new. Re-adding is a no-op.
func (s *ExplodeKeySet) Add(p Position) bool {
	if _, ok := s.seen[p]; ok {
		return false
	}
	s.seen[p] = struct{}{}
	s.keys = append(s.keys, p)
	return true
}

func (s *ExplodeKeySet) Contains(p Position) bool {
	_, ok := s.seen[p]
	return ok
}

func (s *ExplodeKeySet) Len() int { return len(s.keys) }

// Keys returns a copy in insertion order.
func (s *ExplodeKeySet) Keys() []Position {
	out := make([]Position, len(s.keys))
	copy(out, s.keys)
	return out
}

func (s *ExplodeKeySet) Clear() {
	s.keys = s.keys[:0]
	clear(s.seen)
}

// Group returns the connected same-color group containing the ball at p, or
// nil when p holds no ball.
func (b *Board) Group(p Position) []Position {
	n, ok := b.nodes[p]
	if !ok || n.Ball == nil {
		return nil
	}
	defer b.keys.Clear()
	b.collect(p, n.Ball.ColorID)
	return b.keys.Keys()
}

// CheckChainExplode explodes the group at p when it has at least threshold
// balls and returns the removed positions.
func (b *Board) CheckChainExplode(p Position, threshold int) []Position {
	group := b.Group(p)
	if len(group) == 0 || len(group) < threshold {
		return nil
	}
	b.ChainExplode(group)
	return group
}

func (b *Board) collect(p Position, colorID int) {
	if !b.keys.Add(p) {
		return
	}
	for _, nb := range b.graph.Neighbors(p) {
		if n := b.nodes[nb]; n.Ball != nil && n.Ball.ColorID == colorID {
			b.collect(nb, colorID)
		}
	}
}
