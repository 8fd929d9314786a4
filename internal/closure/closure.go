// Package closure decides which referenced assemblies have to join the
// input set so that nothing left outside the merged output still depends on
// something inside it.
package closure

import "weld/internal/metadata"

type set map[metadata.ModuleID]struct{}

func (s set) has(id metadata.ModuleID) bool {
	_, ok := s[id]
	return ok
}

// State is the DFS bookkeeping. Active is the current stack and only guards
// against cycles; Visited holds finished nodes.
type State struct {
	Visited set
	Active  set
	ToAdd   []metadata.ModuleID
	added   set
}

// Computor runs the post-order dependency propagation over the arena's
// module reference graph.
type Computor struct {
	arena *metadata.Arena
	roots map[metadata.Identity]struct{}
	State State
}

// New prepares a computor for the root set; roots start out visited.
func New(a *metadata.Arena, roots []metadata.ModuleID) *Computor {
	c := &Computor{
		arena: a,
		roots: make(map[metadata.Identity]struct{}, len(roots)),
		State: State{
			Visited: make(set, len(roots)),
			Active:  make(set),
			added:   make(set),
		},
	}
	for _, r := range roots {
		c.State.Visited[r] = struct{}{}
		c.roots[a.Module(r).Identity] = struct{}{}
	}
	return c
}

// Compute returns the assemblies to add for roots, in the order their
// membership was settled.
func Compute(a *metadata.Arena, roots []metadata.ModuleID) []metadata.ModuleID {
	c := New(a, roots)
	for _, r := range roots {
		for _, ref := range a.Module(r).References {
			if ref.Module.IsValid() {
				c.Visit(ref.Module)
			}
		}
	}
	return c.State.ToAdd
}

// Visit settles membership of id after all of its references are settled.
// Back edges into the active stack are skipped; unresolved references are
// leaves.
func (c *Computor) Visit(id metadata.ModuleID) {
	st := &c.State
	if st.Visited.has(id) {
		return
	}
	st.Active[id] = struct{}{}
	refs := c.arena.Module(id).References
	for _, ref := range refs {
		if !ref.Module.IsValid() || st.Active.has(ref.Module) {
			continue
		}
		c.Visit(ref.Module)
	}
	if c.dependsOnMerge(refs) {
		st.ToAdd = append(st.ToAdd, id)
		st.added[id] = struct{}{}
	}
	delete(st.Active, id)
	st.Visited[id] = struct{}{}
}

func (c *Computor) dependsOnMerge(refs []metadata.Reference) bool {
	for _, ref := range refs {
		if ref.Module.IsValid() && c.State.added.has(ref.Module) {
			return true
		}
		if _, ok := c.roots[ref.Identity]; ok {
			return true
		}
	}
	return false
}
