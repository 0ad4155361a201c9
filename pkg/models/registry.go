package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// RootID is the identifier of the root node.
const RootID = "ROOT"

// Meta holds the registry-wide settings fixed at init.
type Meta struct {
	// Goal is the root objective.
	Goal string `json:"goal"`
	// MaxDepth is the decomposition depth ceiling.
	MaxDepth int `json:"max_depth"`
	// MaxRetries is the advisory retry ceiling.
	MaxRetries int `json:"max_retries"`
}

// Registry is the whole persisted task tree.
type Registry struct {
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Meta        Meta      `json:"meta"`
	CurrentNode string    `json:"current_node"`
	Nodes       *NodeSet  `json:"nodes"`
	// Revision changes on every save and guards against lost updates.
	Revision string `json:"revision,omitempty"`
}

// NewRegistry returns a registry holding a single pending root node.
func NewRegistry(goal string, maxDepth, maxRetries int, now time.Time) *Registry {
	nodes := NewNodeSet()
	nodes.Add(NewNode(RootID, goal, nil, 0))
	return &Registry{
		CreatedAt:   now,
		UpdatedAt:   now,
		Meta:        Meta{Goal: goal, MaxDepth: maxDepth, MaxRetries: maxRetries},
		CurrentNode: RootID,
		Nodes:       nodes,
	}
}

// Node returns the node with the given ID.
func (r *Registry) Node(id string) (*Node, bool) {
	if r.Nodes == nil {
		return nil, false
	}
	return r.Nodes.Get(id)
}

// Root returns the root node.
func (r *Registry) Root() (*Node, bool) {
	return r.Node(RootID)
}

// Current returns the node the caller should act on.
func (r *Registry) Current() (*Node, bool) {
	return r.Node(r.CurrentNode)
}

// Clone returns a deep copy of the registry.
func (r *Registry) Clone() *Registry {
	c := *r
	if r.Nodes != nil {
		c.Nodes = r.Nodes.Clone()
	}
	return &c
}

// CountByStatus returns how many nodes are in the given status.
func (r *Registry) CountByStatus(status Status) int {
	count := 0
	for _, n := range r.Nodes.All() {
		if n.Status == status {
			count++
		}
	}
	return count
}

// NodeSet is a map of nodes that remembers insertion order.
// It marshals to a JSON object whose keys appear in creation order.
type NodeSet struct {
	order []string
	byID  map[string]*Node
}

// NewNodeSet creates an empty NodeSet.
func NewNodeSet() *NodeSet {
	return &NodeSet{byID: make(map[string]*Node)}
}

// Add inserts a node. Re-adding an existing ID replaces it in place.
func (s *NodeSet) Add(n *Node) {
	if _, exists := s.byID[n.ID]; !exists {
		s.order = append(s.order, n.ID)
	}
	s.byID[n.ID] = n
}

// Get returns the node with the given ID.
func (s *NodeSet) Get(id string) (*Node, bool) {
	n, ok := s.byID[id]
	return n, ok
}

// Len returns the number of nodes.
func (s *NodeSet) Len() int {
	return len(s.order)
}

// IDs returns node IDs in creation order.
func (s *NodeSet) IDs() []string {
	return append([]string{}, s.order...)
}

// All returns nodes in creation order.
func (s *NodeSet) All() []*Node {
	out := make([]*Node, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

// Clone returns a deep copy of the set.
func (s *NodeSet) Clone() *NodeSet {
	c := NewNodeSet()
	for _, id := range s.order {
		c.Add(s.byID[id].Clone())
	}
	return c
}

// MarshalJSON writes the nodes as an object keyed by ID in creation order.
// HTML characters are left unescaped.
func (s *NodeSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	buf.WriteByte('{')
	for i, id := range s.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := enc.Encode(id); err != nil {
			return nil, err
		}
		trimNewline(&buf)
		buf.WriteByte(':')
		if err := enc.Encode(s.byID[id]); err != nil {
			return nil, fmt.Errorf("marshal node %s: %w", id, err)
		}
		trimNewline(&buf)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// trimNewline drops the newline json.Encoder appends after each value.
func trimNewline(buf *bytes.Buffer) {
	if n := buf.Len(); n > 0 && buf.Bytes()[n-1] == '\n' {
		buf.Truncate(n - 1)
	}
}

// UnmarshalJSON reads an object keyed by ID, keeping the key order.
func (s *NodeSet) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("nodes: expected object, got %v", tok)
	}

	s.order = nil
	s.byID = make(map[string]*Node)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		id, ok := tok.(string)
		if !ok {
			return fmt.Errorf("nodes: expected string key, got %v", tok)
		}
		var n Node
		if err := dec.Decode(&n); err != nil {
			return fmt.Errorf("decode node %s: %w", id, err)
		}
		if n.ID == "" {
			n.ID = id
		}
		if n.Children == nil {
			n.Children = []string{}
		}
		if n.TestCriteria == nil {
			n.TestCriteria = []TestCriterion{}
		}
		s.Add(&n)
	}
	_, err = dec.Token()
	return err
}
