package steps

// Pipeline is the stored form of a Tree: nested steps without IDs.
type Pipeline struct {
	Name  string     `msgpack:"name" json:"name"`
	Steps []StepSpec `msgpack:"steps" json:"steps"`
}

// StepSpec is one stored step and its children.
type StepSpec struct {
	Name    string     `msgpack:"name" json:"name"`
	Inputs  []Mapping  `msgpack:"inputs,omitempty" json:"inputs,omitempty"`
	Action  ActionSpec `msgpack:"action" json:"action"`
	Outputs []Mapping  `msgpack:"outputs,omitempty" json:"outputs,omitempty"`
	Final   bool       `msgpack:"final,omitempty" json:"final,omitempty"`
	Next    []StepSpec `msgpack:"next,omitempty" json:"next,omitempty"`
}

// Pipeline returns the stored form of t.
func (t *Tree) Pipeline() Pipeline {
	return Pipeline{Name: t.Name, Steps: t.specs(t.roots)}
}

func (t *Tree) specs(ids []NodeID) []StepSpec {
	out := make([]StepSpec, 0, len(ids))
	for _, id := range ids {
		tn := t.nodes[id]
		out = append(out, StepSpec{
			Name:    tn.node.Name,
			Inputs:  tn.node.Inputs,
			Action:  tn.node.Action,
			Outputs: tn.node.Outputs,
			Final:   tn.node.Final,
			Next:    t.specs(tn.children),
		})
	}
	return out
}

// FromPipeline rebuilds an editable tree.
func FromPipeline(p Pipeline) *Tree {
	t := NewTree(p.Name)
	for _, s := range p.Steps {
		t.addSpec(noParent, s)
	}
	return t
}

func (t *Tree) addSpec(parent NodeID, s StepSpec) {
	n := Node{Name: s.Name, Inputs: s.Inputs, Action: s.Action, Outputs: s.Outputs, Final: s.Final}
	var id NodeID
	if parent == noParent {
		id = t.AddRoot(n)
	} else {
		id, _ = t.AddChild(parent, n)
	}
	for _, c := range s.Next {
		t.addSpec(id, c)
	}
}
