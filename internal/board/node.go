// internal/board/node.go
//
// Node and ball types.
// A node holds at most one ball. A node may instead carry a pending ball
// (grow-up reservation) that becomes a real ball on the next growth phase.

package board

// NodeType tags a node.
type NodeType int

const (
	NodeNormal NodeType = iota
	NodeGhost
	NodeBlocked
)

func (t NodeType) String() string {
	switch t {
	case NodeNormal:
		return "normal"
	case NodeGhost:
		return "ghost"
	case NodeBlocked:
		return "blocked"
	}
	return "unknown"
}

// Ball is a colored ball. ColorID indexes the palette.
type Ball struct {
	ColorID int `json:"colorId"`
}

// Node is one board position and what sits on it.
type Node struct {
	Pos     Position
	Type    NodeType
	Ball    *Ball // realized ball, nil when empty
	Pending *Ball // grow-up reservation, nil when none

	inFlight bool // Pending is a ball mid-move, not a queued growth
}

// Occupied reports whether the node holds a realized ball.
func (n *Node) Occupied() bool { return n.Ball != nil }

// Reserved reports whether the node carries a grow-up reservation.
func (n *Node) Reserved() bool { return n.Pending != nil }

// Free reports whether a ball may be attached or moved here.
func (n *Node) Free() bool { return n.Ball == nil && n.Pending == nil }

// IsGhost reports whether the node carries the ghost tag.
func (n *Node) IsGhost() bool { return n.Type == NodeGhost }

func (n *Node) backToDefault() { n.Type = NodeNormal }

// NodeState is the persisted form of a non-default node.
type NodeState struct {
	Pos     Position `json:"pos"`
	Ball    *Ball    `json:"ball,omitempty"`
	Pending *Ball    `json:"pending,omitempty"`
	Ghost   bool     `json:"ghost,omitempty"`
}
