package scene

import (
	"fmt"
	"sync"
)

// OpKind identifies a scene mutation reported to observers.
type OpKind string

const (
	OpCreate OpKind = "create"
	OpRemove OpKind = "remove"
	OpSet    OpKind = "set"
)

// Op describes one mutation of a Memory scene.
type Op struct {
	Kind   OpKind
	Node   NodeID
	Parent NodeID
	Props  Properties
}

// NodeState is a copy of one node taken by Snapshot.
type NodeState struct {
	ID     NodeID
	Parent NodeID
	Depth  int
	Props  Properties
}

type memNode struct {
	id       NodeID
	parent   NodeID
	props    Properties
	children []NodeID
}

// Memory is an in-memory scene graph. It backs the offline renderer, the
// terminal and websocket hosts, and the tests.
type Memory struct {
	mu        sync.RWMutex
	root      NodeID
	next      NodeID
	nodes     map[NodeID]*memNode
	mutations uint64
	observers []func(Op)
}

// NewMemory creates a scene whose root covers width x height.
func NewMemory(width, height float64) *Memory {
	m := &Memory{nodes: make(map[NodeID]*memNode)}
	m.next = 1
	m.root = m.next
	m.nodes[m.root] = &memNode{
		id: m.root,
		props: Properties{
			Left:   Num(0),
			Top:    Num(0),
			Width:  Num(width),
			Height: Num(height),
		},
	}
	return m
}

// Root returns the root container.
func (m *Memory) Root() NodeID {
	return m.root
}

// Observe registers fn to be called after every mutation.
func (m *Memory) Observe(fn func(Op)) {
	m.mu.Lock()
	m.observers = append(m.observers, fn)
	m.mu.Unlock()
}

func (m *Memory) notify(observers []func(Op), op Op) {
	for _, fn := range observers {
		fn(op)
	}
}

// CreateChild appends a new node under parent.
func (m *Memory) CreateChild(parent NodeID) (NodeID, error) {
	m.mu.Lock()
	p, ok := m.nodes[parent]
	if !ok {
		m.mu.Unlock()
		return 0, fmt.Errorf("create child of %d: %w", parent, ErrNodeNotFound)
	}
	m.next++
	id := m.next
	m.nodes[id] = &memNode{id: id, parent: parent, props: Properties{}}
	p.children = append(p.children, id)
	m.mutations++
	observers := m.observers
	m.mu.Unlock()

	m.notify(observers, Op{Kind: OpCreate, Node: id, Parent: parent})
	return id, nil
}

// Remove deletes id and all of its descendants. The root cannot be removed.
func (m *Memory) Remove(id NodeID) error {
	m.mu.Lock()
	n, ok := m.nodes[id]
	if !ok || id == m.root {
		m.mu.Unlock()
		return fmt.Errorf("remove %d: %w", id, ErrNodeNotFound)
	}
	if p, ok := m.nodes[n.parent]; ok {
		for i, c := range p.children {
			if c == id {
				p.children = append(p.children[:i], p.children[i+1:]...)
				break
			}
		}
	}
	m.removeLocked(n)
	m.mutations++
	observers := m.observers
	m.mu.Unlock()

	m.notify(observers, Op{Kind: OpRemove, Node: id, Parent: n.parent})
	return nil
}

func (m *Memory) removeLocked(n *memNode) {
	for _, c := range n.children {
		if child, ok := m.nodes[c]; ok {
			m.removeLocked(child)
		}
	}
	delete(m.nodes, n.id)
}

// SetProperties merges props into the node's property map.
func (m *Memory) SetProperties(id NodeID, props Properties) error {
	m.mu.Lock()
	n, ok := m.nodes[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("set properties on %d: %w", id, ErrNodeNotFound)
	}
	n.props.Merge(props)
	m.mutations++
	observers := m.observers
	m.mu.Unlock()

	if len(observers) > 0 {
		m.notify(observers, Op{Kind: OpSet, Node: id, Parent: n.parent, Props: props.Clone()})
	}
	return nil
}

// Property returns the current value of name on id.
func (m *Memory) Property(id NodeID, name string) (Value, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.nodes[id]
	if !ok {
		return Value{}, false
	}
	v, ok := n.props[name]
	return v, ok
}

// Parent returns the parent of id. The root has none.
func (m *Memory) Parent(id NodeID) (NodeID, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.nodes[id]
	if !ok || n.parent == 0 {
		return 0, false
	}
	return n.parent, true
}

// Bounds returns the node's layout box.
func (m *Memory) Bounds(id NodeID) (Rect, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.nodes[id]
	if !ok {
		return Rect{}, fmt.Errorf("bounds of %d: %w", id, ErrNodeNotFound)
	}
	return Rect{
		X: n.props.Float(Left),
		Y: n.props.Float(Top),
		W: n.props.Float(Width),
		H: n.props.Float(Height),
	}, nil
}

// Exists reports whether id is live.
func (m *Memory) Exists(id NodeID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.nodes[id]
	return ok
}

// Len returns the number of live nodes, root excluded.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.nodes) - 1
}

// Children returns a copy of the child list of id.
func (m *Memory) Children(id NodeID) []NodeID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.nodes[id]
	if !ok {
		return nil
	}
	return append([]NodeID(nil), n.children...)
}

// Mutations counts every successful create, remove and set call.
func (m *Memory) Mutations() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.mutations
}

// Snapshot copies every node in painter order (parents before children,
// siblings in creation order). The root is included at depth 0.
func (m *Memory) Snapshot() []NodeState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]NodeState, 0, len(m.nodes))
	var walk func(id NodeID, depth int)
	walk = func(id NodeID, depth int) {
		n, ok := m.nodes[id]
		if !ok {
			return
		}
		out = append(out, NodeState{ID: n.id, Parent: n.parent, Depth: depth, Props: n.props.Clone()})
		for _, c := range n.children {
			walk(c, depth+1)
		}
	}
	walk(m.root, 0)
	return out
}
