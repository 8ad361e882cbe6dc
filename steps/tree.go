package steps

import (
	"errors"
	"fmt"
)

// ============================================================================
// AUTHORING TREE: editable pipeline, snapshotted for evaluation
// ============================================================================
// Nodes live in an arena and are addressed by NodeID. IDs stay valid for
// the life of the tree; removed nodes are tombstoned. Every edit happens
// here, never on a *Step, so an evaluation in progress only ever sees an
// unchanging snapshot.
// ============================================================================

// NodeID addresses a node in a Tree.
type NodeID int

const noParent NodeID = -1

var (
	ErrNoSuchNode = errors.New("no such step")
	ErrCycle      = errors.New("move would create a cycle")
)

// Node is the editable content of one step.
type Node struct {
	Name    string
	Inputs  []Mapping
	Action  ActionSpec
	Outputs []Mapping
	Final   bool
}

type treeNode struct {
	node     Node
	parent   NodeID
	children []NodeID
	removed  bool
}

// Tree is an editable forest of steps.
type Tree struct {
	Name  string
	nodes []treeNode
	roots []NodeID
}

func NewTree(name string) *Tree {
	return &Tree{Name: name}
}

func (t *Tree) get(id NodeID) (*treeNode, error) {
	if id < 0 || int(id) >= len(t.nodes) || t.nodes[id].removed {
		return nil, fmt.Errorf("step %d: %w", id, ErrNoSuchNode)
	}
	return &t.nodes[id], nil
}

func (t *Tree) add(parent NodeID, n Node) NodeID {
	id := NodeID(len(t.nodes))
	t.nodes = append(t.nodes, treeNode{node: n, parent: parent})
	return id
}

// AddRoot appends a top-level step.
func (t *Tree) AddRoot(n Node) NodeID {
	id := t.add(noParent, n)
	t.roots = append(t.roots, id)
	return id
}

// AddChild appends a step under parent.
func (t *Tree) AddChild(parent NodeID, n Node) (NodeID, error) {
	if _, err := t.get(parent); err != nil {
		return 0, err
	}
	id := t.add(parent, n)
	t.nodes[parent].children = append(t.nodes[parent].children, id)
	return id, nil
}

// Node returns the content of id.
func (t *Tree) Node(id NodeID) (Node, error) {
	tn, err := t.get(id)
	if err != nil {
		return Node{}, err
	}
	return tn.node, nil
}

// Update replaces the content of id; its position and children stay.
func (t *Tree) Update(id NodeID, n Node) error {
	tn, err := t.get(id)
	if err != nil {
		return err
	}
	tn.node = n
	return nil
}

// Remove deletes id and its whole subtree.
func (t *Tree) Remove(id NodeID) error {
	tn, err := t.get(id)
	if err != nil {
		return err
	}
	t.detach(id, tn.parent)
	t.tombstone(id)
	return nil
}

func (t *Tree) tombstone(id NodeID) {
	t.nodes[id].removed = true
	for _, c := range t.nodes[id].children {
		t.tombstone(c)
	}
}

func (t *Tree) detach(id, parent NodeID) {
	if parent == noParent {
		t.roots = without(t.roots, id)
		return
	}
	t.nodes[parent].children = without(t.nodes[parent].children, id)
}

// Move reattaches id, with its subtree, as the last child of parent, or as
// the last root when parent is negative.
func (t *Tree) Move(id, parent NodeID) error {
	tn, err := t.get(id)
	if err != nil {
		return err
	}
	if parent >= 0 {
		if _, err := t.get(parent); err != nil {
			return err
		}
		for p := parent; p != noParent; p = t.nodes[p].parent {
			if p == id {
				return fmt.Errorf("step %d under %d: %w", id, parent, ErrCycle)
			}
		}
	} else {
		parent = noParent
	}
	t.detach(id, tn.parent)
	tn.parent = parent
	if parent == noParent {
		t.roots = append(t.roots, id)
	} else {
		t.nodes[parent].children = append(t.nodes[parent].children, id)
	}
	return nil
}

// Roots returns the top-level steps in order.
func (t *Tree) Roots() []NodeID {
	return append([]NodeID(nil), t.roots...)
}

// Children returns the direct children of id in order.
func (t *Tree) Children(id NodeID) ([]NodeID, error) {
	tn, err := t.get(id)
	if err != nil {
		return nil, err
	}
	return append([]NodeID(nil), tn.children...), nil
}

// Len counts live nodes.
func (t *Tree) Len() int {
	n := 0
	for _, tn := range t.nodes {
		if !tn.removed {
			n++
		}
	}
	return n
}

// Snapshot builds the evaluation form of the tree, building every action.
func (t *Tree) Snapshot(bctx BuildContext) ([]*Step, error) {
	return t.snapshot(t.roots, bctx)
}

func (t *Tree) snapshot(ids []NodeID, bctx BuildContext) ([]*Step, error) {
	out := make([]*Step, 0, len(ids))
	for _, id := range ids {
		tn := &t.nodes[id]
		action, err := Build(tn.node.Action, bctx)
		if err != nil {
			return nil, fmt.Errorf("step %q: %w", tn.node.Name, err)
		}
		next, err := t.snapshot(tn.children, bctx)
		if err != nil {
			return nil, err
		}
		out = append(out, &Step{
			Name:    tn.node.Name,
			Inputs:  append([]Mapping(nil), tn.node.Inputs...),
			Action:  action,
			Outputs: append([]Mapping(nil), tn.node.Outputs...),
			Next:    next,
			Final:   tn.node.Final,
		})
	}
	return out, nil
}

func without(ids []NodeID, id NodeID) []NodeID {
	out := ids[:0]
	for _, x := range ids {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}

// Validate builds every action without a catalog, reporting unknown kinds
// and missing parameters. Catalog actions are only checked for kind.
func (t *Tree) Validate(reg *Registry) error {
	for id, tn := range t.nodes {
		if tn.removed {
			continue
		}
		_, err := Build(tn.node.Action, BuildContext{Registry: reg})
		if err != nil && !errors.Is(err, ErrNoCatalog) {
			return fmt.Errorf("step %d %q: %w", id, tn.node.Name, err)
		}
	}
	return nil
}
