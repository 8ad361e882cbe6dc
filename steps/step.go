// Package steps evaluates trees of named processing steps. Each step
// renames the keys it receives, runs an action and renames what the
// action produced; only steps marked Final contribute their own outputs
// to the result handed back to the caller.
package steps

import (
	"context"
	"fmt"
)

// Mapping renames From to As when a map crosses a step boundary.
type Mapping struct {
	From string `msgpack:"from" json:"from"`
	As   string `msgpack:"as" json:"as"`
}

// Action is the work a step performs on its packed inputs.
type Action interface {
	Execute(ctx context.Context, in map[string]string) (map[string]string, error)
}

// Step is one node of an evaluation snapshot. Build snapshots with
// Tree.Snapshot; a Step tree is not modified during evaluation.
type Step struct {
	Name    string
	Inputs  []Mapping
	Action  Action
	Outputs []Mapping
	Next    []*Step
	Final   bool
}

// ============================================================================
// EVALUATION
// ============================================================================
// For each step, depth-first and left to right:
//   1. pack the incoming map through Inputs (unlisted keys are dropped)
//   2. run the action
//   3. pack the action's result through Outputs
//   4. children receive the packed outputs as their input
//   5. the step returns its packed outputs only when Final, merged with
//      everything its children return (later children win)
// Actions of non-final steps still run.
// ============================================================================

// Evaluate runs every root against the same input and merges their
// results left to right.
func Evaluate(ctx context.Context, roots []*Step, input map[string]string) (map[string]string, error) {
	result := make(map[string]string)
	for _, root := range roots {
		out, err := root.Evaluate(ctx, input)
		if err != nil {
			return nil, err
		}
		merge(result, out)
	}
	return result, nil
}

// Evaluate runs s and its subtree.
func (s *Step) Evaluate(ctx context.Context, input map[string]string) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	packed := pack(input, s.Inputs)

	raw := packed
	if s.Action != nil {
		var err error
		raw, err = s.Action.Execute(ctx, packed)
		if err != nil {
			return nil, fmt.Errorf("step %q: %w", s.Name, err)
		}
	}
	current := pack(raw, s.Outputs)

	result := make(map[string]string)
	if s.Final {
		merge(result, current)
	}
	for _, child := range s.Next {
		out, err := child.Evaluate(ctx, current)
		if err != nil {
			return nil, fmt.Errorf("step %q: %w", s.Name, err)
		}
		merge(result, out)
	}
	return result, nil
}

// pack keeps only mapped keys, renamed. A later mapping onto the same
// As key overwrites an earlier one.
func pack(m map[string]string, mappings []Mapping) map[string]string {
	out := make(map[string]string, len(mappings))
	for _, mp := range mappings {
		if v, ok := m[mp.From]; ok {
			out[mp.As] = v
		}
	}
	return out
}

func merge(dst, src map[string]string) {
	for k, v := range src {
		dst[k] = v
	}
}
