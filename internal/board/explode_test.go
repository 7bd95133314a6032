package board

import (
	"testing"
)

func TestExplodeKeySetDeduplicates(t *testing.T) {
	s := NewExplodeKeySet()
	if !s.Add(Position{1, 1}) {
		t.Fatalf("first add should report new")
	}
	if s.Add(Position{1, 1}) {
		t.Fatalf("second add should be a no-op")
	}
	s.Add(Position{0, 1})
	if s.Len() != 2 || !s.Contains(Position{0, 1}) {
		t.Fatalf("set = %v", s.Keys())
	}
	s.Clear()
	if s.Len() != 0 || s.Contains(Position{1, 1}) {
		t.Fatalf("set not cleared: %v", s.Keys())
	}
}

func TestCheckChainExplode(t *testing.T) {
	tests := []struct {
		name      string
		group     []Position
		others    []Position // same color, not connected
		threshold int
		explodes  bool
	}{
		{
			name:      "five in a row explode",
			group:     []Position{{0, 0}, {1, 0}, {2, 0}, {3, 0}, {4, 0}},
			threshold: 5,
			explodes:  true,
		},
		{
			name:      "bent group of five explodes",
			group:     []Position{{0, 0}, {0, 1}, {1, 1}, {2, 1}, {2, 2}},
			threshold: 5,
			explodes:  true,
		},
		{
			name:      "four stay",
			group:     []Position{{0, 0}, {1, 0}, {2, 0}, {3, 0}},
			others:    []Position{{5, 0}},
			threshold: 5,
			explodes:  false,
		},
		{
			name:      "six explode together",
			group:     []Position{{0, 0}, {1, 0}, {2, 0}, {3, 0}, {4, 0}, {4, 1}},
			others:    []Position{{0, 3}},
			threshold: 5,
			explodes:  true,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			b := newTestBoard(t, TopologySquare, 6, 6)
			place(t, b, 3, tt.group...)
			place(t, b, 3, tt.others...)
			// a different color touching the group never joins it
			place(t, b, 1, Position{0, 5}, Position{1, 2})

			removed := b.CheckChainExplode(tt.group[len(tt.group)-1], tt.threshold)
			if !tt.explodes {
				if removed != nil {
					t.Fatalf("unexpected explosion: %v", removed)
				}
				for _, p := range tt.group {
					if n, _ := b.Node(p); !n.Occupied() {
						t.Fatalf("ball at %v removed without explosion", p)
					}
				}
				return
			}
			if len(removed) != len(tt.group) {
				t.Fatalf("removed %v, want the %d-ball group", removed, len(tt.group))
			}
			for _, p := range tt.group {
				if n, _ := b.Node(p); n.Occupied() {
					t.Fatalf("ball at %v survived the explosion", p)
				}
			}
			for _, p := range append(tt.others, Position{0, 5}, Position{1, 2}) {
				if n, _ := b.Node(p); !n.Occupied() {
					t.Fatalf("ball at %v outside the group was removed", p)
				}
			}
			if b.keys.Len() != 0 {
				t.Fatalf("explode keys not cleared")
			}
		})
	}
}

func TestChainExplodeResetsGhost(t *testing.T) {
	b := newTestBoard(t, TopologySquare, 3, 1)
	place(t, b, 2, Position{0, 0}, Position{1, 0}, Position{2, 0})
	b.nodes[Position{1, 0}].Type = NodeGhost

	if removed := b.CheckChainExplode(Position{0, 0}, 3); len(removed) != 3 {
		t.Fatalf("removed = %v", removed)
	}
	if n, _ := b.Node(Position{1, 0}); n.IsGhost() {
		t.Fatalf("exploded ghost node kept its tag")
	}
}

func TestCheckChainExplodeEmptyNode(t *testing.T) {
	b := newTestBoard(t, TopologyHex, 3, 3)
	if removed := b.CheckChainExplode(Position{1, 1}, 1); removed != nil {
		t.Fatalf("empty node exploded: %v", removed)
	}
	place(t, b, 0, Position{1, 1})
	if removed := b.CheckChainExplode(Position{1, 1}, 1); len(removed) != 1 {
		t.Fatalf("threshold 1 should explode a single ball, got %v", removed)
	}
}
